// Package likes sends like and unlike requests for the signed-in user.
//
// Only the newest request matters: a second SetLiked cancels the one still
// running, which then reports apierr.ErrCancelled. Every call has exactly one
// outcome. Nothing here retries.
package likes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/five82/shutter/internal/apierr"
	"github.com/five82/shutter/internal/flight"
	"github.com/five82/shutter/internal/photoapi"
	"github.com/five82/shutter/internal/tokenstore"
)

// ErrSuperseded is returned by a call that a newer call or Cancel replaced.
// It matches apierr.ErrCancelled.
var ErrSuperseded = apierr.Cancelled("like toggle")

// TokenReader is the part of the token store the coordinator needs.
type TokenReader interface {
	Get(ctx context.Context) (string, error)
}

// Flagger is the collection that owns the displayed liked flag. The feed
// synchronizer implements it.
type Flagger interface {
	Photo(id string) (photoapi.Photo, bool)
	SetLiked(id string, liked bool) (prev bool, ok bool)
}

// Coordinator issues like toggles one at a time.
type Coordinator struct {
	api    photoapi.Liker
	tokens TokenReader
	logger *slog.Logger
	gate   flight.Gate
}

// NewCoordinator wires a Coordinator to the API and token store.
func NewCoordinator(api photoapi.Liker, tokens TokenReader, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{api: api, tokens: tokens, logger: logger}
}

// SetLiked asks the server to like (POST) or unlike (DELETE) photoID.
func (c *Coordinator) SetLiked(ctx context.Context, photoID string, liked bool) error {
	photoID = strings.TrimSpace(photoID)
	if photoID == "" {
		return apierr.Precondition("photo id is empty")
	}
	token, err := c.tokens.Get(ctx)
	if errors.Is(err, tokenstore.ErrNoToken) {
		return apierr.Precondition("not signed in")
	}
	if err != nil {
		return fmt.Errorf("read token: %w", err)
	}

	ticket := c.gate.Begin(ctx)
	defer ticket.Done()

	err = c.api.SetLike(ticket.Context(), token, photoID, liked)
	if !ticket.Current() {
		c.logger.Debug("like toggle superseded", "photo", photoID, "liked", liked)
		return ErrSuperseded
	}
	if err != nil {
		c.logger.Warn("like toggle failed", "photo", photoID, "liked", liked, "error", err)
		return err
	}
	c.logger.Info("like toggled", "photo", photoID, "liked", liked)
	return nil
}

// Toggle flips the liked flag of id in f straight away, then confirms with
// the server. On failure the previous flag is restored and the error is
// returned. A toggle superseded by a newer one leaves the flag alone because
// the newer toggle owns it. The returned bool is the value that was asked for.
func (c *Coordinator) Toggle(ctx context.Context, f Flagger, id string) (bool, error) {
	photo, ok := f.Photo(id)
	if !ok {
		return false, apierr.Precondition("photo %q is not loaded", id)
	}
	want := !photo.Liked
	prev, _ := f.SetLiked(id, want)

	err := c.SetLiked(ctx, id, want)
	if err != nil && !errors.Is(err, ErrSuperseded) {
		f.SetLiked(id, prev)
	}
	return want, err
}

// Cancel aborts the toggle in flight, if any.
func (c *Coordinator) Cancel() {
	c.gate.Cancel()
}
