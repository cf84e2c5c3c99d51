package cache

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dukerupert/chorewheel/internal/config"
	"github.com/dukerupert/chorewheel/internal/database"
	"github.com/dukerupert/chorewheel/internal/model"
	"github.com/dukerupert/chorewheel/internal/remote"
	"github.com/dukerupert/chorewheel/internal/server"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type staticUser int64

func (u staticUser) UserID() int64 { return int64(u) }

// household is a running service with a household of signed-in members.
type household struct {
	url     string
	id      int64
	clients []*remote.Client
	users   []model.User
}

func startHousehold(t *testing.T, names ...string) *household {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	cfg := config.Default()
	cfg.JWTSecret = "cache-test-secret-0123456789"
	ts := httptest.NewServer(server.New(db, cfg, quietLogger).Router())
	t.Cleanup(func() {
		ts.Close()
		db.Close()
	})

	ctx := context.Background()
	h := &household{url: ts.URL}
	for i, name := range names {
		c := remote.New(ts.URL, 5*time.Second)
		s, err := c.SignUp(ctx, name+"@example.com", "correct-horse", name)
		require.NoError(t, err)
		c.SetToken(s.Token)
		h.clients = append(h.clients, c)
		h.users = append(h.users, s.User)

		if i == 0 {
			hh, err := c.CreateHousehold(ctx, "Maple Street")
			require.NoError(t, err)
			h.id = hh.ID
			continue
		}
		hh, err := h.clients[0].GetHousehold(ctx, h.id)
		require.NoError(t, err)
		_, _, err = c.JoinHousehold(ctx, hh.InviteCode)
		require.NoError(t, err)
	}
	return h
}

func day(s string) time.Time {
	d, err := time.Parse(model.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}
