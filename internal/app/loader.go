package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/five82/shutter/internal/apierr"
	"github.com/five82/shutter/internal/feed"
	"github.com/five82/shutter/internal/photoapi"
	"github.com/five82/shutter/internal/profile"
)

const (
	defaultRetryBase = 2 * time.Second
	maxBackoff       = 30 * time.Second
	defaultAttempts  = 4
)

// PageLoader is the part of the feed the initial load drives.
type PageLoader interface {
	FetchNextPage(ctx context.Context) ([]photoapi.Photo, error)
	Cursor() (int, bool)
}

// ProfileLoader loads the signed-in user's profile.
type ProfileLoader interface {
	Load(ctx context.Context) (profile.Profile, error)
}

// LoadOptions tune InitialLoad. The zero value retries four times starting
// at two seconds.
type LoadOptions struct {
	Attempts int
	Base     time.Duration
	Logger   *slog.Logger
	// sleep is replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// InitialLoad fetches the profile and the first feed page concurrently,
// retrying transient failures with exponential backoff. Precondition and
// cancellation failures are returned at once. A page that already loaded is
// not fetched again on retry.
func InitialLoad(ctx context.Context, pages PageLoader, prof ProfileLoader, opts LoadOptions) error {
	attempts := opts.Attempts
	if attempts <= 0 {
		attempts = defaultAttempts
	}
	base := opts.Base
	if base <= 0 {
		base = defaultRetryBase
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sleep := opts.sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		err = loadOnce(ctx, pages, prof)
		if err == nil {
			return nil
		}
		if errors.Is(err, apierr.ErrPrecondition) || apierr.IsCancelled(err) || ctx.Err() != nil {
			return err
		}
		if attempt == attempts-1 {
			break
		}
		wait := calculateBackoff(attempt, base)
		logger.Warn("initial load failed, retrying", "attempt", attempt+1, "wait", wait, "error", err)
		if sleepErr := sleep(ctx, wait); sleepErr != nil {
			return apierr.Transport(ctx, sleepErr)
		}
	}
	return err
}

func loadOnce(ctx context.Context, pages PageLoader, prof ProfileLoader) error {
	g, gctx := errgroup.WithContext(ctx)
	if prof != nil {
		g.Go(func() error {
			_, err := prof.Load(gctx)
			return err
		})
	}
	if pages != nil {
		g.Go(func() error {
			if _, loaded := pages.Cursor(); loaded {
				return nil
			}
			_, err := pages.FetchNextPage(gctx)
			if errors.Is(err, feed.ErrBusy) {
				return nil
			}
			return err
		})
	}
	return g.Wait()
}

// calculateBackoff doubles base for every consecutive failure, capped at
// maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	d := base
	for i := 0; i < failures; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
