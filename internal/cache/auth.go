package cache

import (
	"context"
	"log/slog"

	"github.com/dukerupert/chorewheel/internal/model"
	"github.com/dukerupert/chorewheel/internal/remote"
)

// AuthAPI is the part of the service AuthCache uses.
type AuthAPI interface {
	SignUp(ctx context.Context, email, password, displayName string) (*remote.Session, error)
	SignIn(ctx context.Context, email, password string) (*remote.Session, error)
	SetToken(token string)
}

type authSnapshot struct {
	Token   string      `json:"token"`
	Profile *model.User `json:"profile"`
}

// AuthCache keeps the session token and profile of the signed-in user.
type AuthCache struct {
	base
	api     AuthAPI
	token   string
	profile *model.User
}

func NewAuthCache(api AuthAPI, mirror *Mirror, logger *slog.Logger) *AuthCache {
	return &AuthCache{base: newBase(mirror, logger), api: api}
}

func (c *AuthCache) SignUp(ctx context.Context, email, password, displayName string) error {
	s, err := c.api.SignUp(ctx, email, password, displayName)
	if err != nil {
		return c.fail("sign up", err, "email", email)
	}
	c.setSession(s)
	return nil
}

func (c *AuthCache) SignIn(ctx context.Context, email, password string) error {
	s, err := c.api.SignIn(ctx, email, password)
	if err != nil {
		return c.fail("sign in", err, "email", email)
	}
	c.setSession(s)
	return nil
}

func (c *AuthCache) setSession(s *remote.Session) {
	c.api.SetToken(s.Token)
	profile := s.User

	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = s.Token
	c.profile = &profile
	c.err = ""
	c.persist(authSnapshot{Token: c.token, Profile: c.profile})
}

// SignOut forgets the session locally and on disk.
func (c *AuthCache) SignOut() error {
	c.api.SetToken("")

	c.mu.Lock()
	c.token = ""
	c.profile = nil
	c.err = ""
	c.mu.Unlock()

	if err := c.mirror.Clear(); err != nil {
		return c.fail("sign out", err)
	}
	return nil
}

// Restore loads a previous session from the mirror. It reports whether one was found.
func (c *AuthCache) Restore() (bool, error) {
	var snap authSnapshot
	ok, err := c.mirror.Load(&snap)
	if err != nil {
		return false, c.fail("restore session", err)
	}
	if !ok || snap.Token == "" {
		return false, nil
	}
	c.api.SetToken(snap.Token)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = snap.Token
	c.profile = snap.Profile
	return true, nil
}

func (c *AuthCache) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Profile returns a copy of the signed-in user's profile, nil when signed out.
func (c *AuthCache) Profile() *model.User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.profile == nil {
		return nil
	}
	p := *c.profile
	return &p
}

func (c *AuthCache) UserID() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.profile == nil {
		return 0
	}
	return c.profile.ID
}
