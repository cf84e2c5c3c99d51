package main

import (
	"context"
	"errors"

	"github.com/dukerupert/chorewheel/internal/cache"
	"github.com/dukerupert/chorewheel/internal/remote"
)

var errSignedOut = errors.New("not signed in: run `chorewheel signin` first")

// session is the signed-in client state shared by the client commands. It is
// restored from the mirrors under the cache dir on every invocation.
type session struct {
	api        *remote.Client
	auth       *cache.AuthCache
	households *cache.HouseholdCache
}

func (a *app) session() *session {
	api := remote.New(a.cfg.APIURL, a.cfg.APITimeout)
	return &session{
		api:        api,
		auth:       cache.NewAuthCache(api, a.mirror("auth"), a.logger.With("component", "auth_cache")),
		households: cache.NewHouseholdCache(api, a.mirror("household"), a.logger.With("component", "household_cache")),
	}
}

func (a *app) mirror(name string) *cache.Mirror {
	return cache.NewMirror(a.cfg.CacheDir, name)
}

// signedIn restores the saved session and fails when there is none.
func (a *app) signedIn() (*session, error) {
	s := a.session()
	ok, err := s.auth.Restore()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errSignedOut
	}
	return s, nil
}

// inHousehold restores the session and refreshes the current household.
func (a *app) inHousehold(ctx context.Context) (*session, int64, error) {
	s, err := a.signedIn()
	if err != nil {
		return nil, 0, err
	}
	if err := s.households.Restore(); err != nil {
		return nil, 0, err
	}
	id := s.households.ID()
	if id == 0 {
		return nil, 0, errors.New("no household: run `chorewheel household create` or `chorewheel household join`")
	}
	if err := s.households.Fetch(ctx, id); err != nil {
		return nil, 0, err
	}
	return s, id, nil
}

func (s *session) name(userID int64) string {
	if n := s.households.DisplayName(userID); n != "" {
		return n
	}
	return "former member"
}
