package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/chorewheel/internal/remote"
)

func TestAuthAndHouseholdOnboarding(t *testing.T) {
	h := startHousehold(t, "alice")
	ctx := context.Background()
	dir := t.TempDir()

	api := remote.New(h.url, 5*time.Second)
	auth := NewAuthCache(api, NewMirror(dir, "auth"), quietLogger)
	require.NoError(t, auth.SignUp(ctx, "bob@example.com", "correct-horse", "Bob"))
	assert.NotEmpty(t, auth.Token())
	assert.Equal(t, "Bob", auth.Profile().DisplayName)

	households := NewHouseholdCache(api, NewMirror(dir, "household"), quietLogger)
	_, err := households.Join(ctx, "ZZZZZZZZ")
	require.ErrorIs(t, err, ErrInvalidInviteCode)
	assert.Equal(t, ErrInvalidInviteCode.Error(), households.Err())

	owner, err := h.clients[0].GetHousehold(ctx, h.id)
	require.NoError(t, err)
	joined, err := households.Join(ctx, owner.InviteCode)
	require.NoError(t, err)
	assert.Equal(t, h.id, joined.ID)
	assert.Empty(t, households.Err())
	assert.Equal(t, []int64{h.users[0].ID, auth.UserID()}, households.MemberIDs())
	assert.True(t, households.IsAdmin(h.users[0].ID))
	assert.False(t, households.IsAdmin(auth.UserID()))
	assert.Equal(t, "Bob", households.DisplayName(auth.UserID()))

	// A new process picks the session and household back up from disk.
	api2 := remote.New(h.url, 5*time.Second)
	auth2 := NewAuthCache(api2, NewMirror(dir, "auth"), quietLogger)
	ok, err := auth2.Restore()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, auth.UserID(), auth2.UserID())
	me, err := api2.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, auth.UserID(), me.ID)

	households2 := NewHouseholdCache(api2, NewMirror(dir, "household"), quietLogger)
	require.NoError(t, households2.Restore())
	assert.Equal(t, h.id, households2.ID())

	require.NoError(t, households2.Leave(ctx))
	assert.Zero(t, households2.ID())
	assert.ErrorIs(t, households2.Leave(ctx), ErrNoHousehold)

	require.NoError(t, auth2.SignOut())
	assert.Zero(t, auth2.UserID())
	ok, err = NewAuthCache(api2, NewMirror(dir, "auth"), quietLogger).Restore()
	require.NoError(t, err)
	assert.False(t, ok, "signed out session not restored")
}

func TestHouseholdCreate(t *testing.T) {
	h := startHousehold(t, "alice")
	c := NewHouseholdCache(h.clients[0], NewMirror(filepath.Join(t.TempDir(), "x"), "household"), quietLogger)

	hh, err := c.Create(context.Background(), "Second Home")
	require.NoError(t, err)
	assert.Len(t, hh.InviteCode, 8)
	assert.Equal(t, hh.ID, c.ID())
	assert.Equal(t, []int64{h.users[0].ID}, c.MemberIDs())
}

func TestSignInFailureSetsErr(t *testing.T) {
	h := startHousehold(t, "alice")
	auth := NewAuthCache(remote.New(h.url, 5*time.Second), nil, quietLogger)

	err := auth.SignIn(context.Background(), "alice@example.com", "wrong-password")
	require.True(t, remote.IsStatus(err, 401), "err = %v", err)
	assert.Contains(t, auth.Err(), "invalid email or password")
	assert.Zero(t, auth.UserID())

	require.NoError(t, auth.SignIn(context.Background(), "alice@example.com", "correct-horse"))
	assert.Empty(t, auth.Err())
	assert.Equal(t, h.users[0].ID, auth.UserID())
}
