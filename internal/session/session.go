// Package session ends a signed-in session.
package session

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/five82/shutter/internal/tokenstore"
)

// Canceller aborts in-flight work. The like coordinator and the token
// exchanger implement it.
type Canceller interface {
	Cancel()
}

// Resetter empties the feed.
type Resetter interface {
	Reset()
}

// Clearer forgets the loaded profile.
type Clearer interface {
	Clear()
}

// Session ties together everything that holds per-user state.
type Session struct {
	Tokens   tokenstore.Store
	Feed     Resetter
	Profile  Clearer
	Inflight []Canceller
	Logger   *slog.Logger
}

// Logout cancels in-flight work first, then clears the token, profile and
// feed. The feed and profile are cleared even when the token store fails.
func (s *Session) Logout(ctx context.Context) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	for _, c := range s.Inflight {
		if c != nil {
			c.Cancel()
		}
	}

	var err error
	if s.Tokens != nil {
		if setErr := s.Tokens.Set(ctx, ""); setErr != nil {
			err = fmt.Errorf("clear token: %w", setErr)
		}
	}
	if s.Profile != nil {
		s.Profile.Clear()
	}
	if s.Feed != nil {
		s.Feed.Reset()
	}

	if err != nil {
		logger.Error("logout incomplete", "error", err)
		return err
	}
	logger.Info("signed out")
	return nil
}
