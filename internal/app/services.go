package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/five82/shutter/internal/authcode"
	"github.com/five82/shutter/internal/config"
	"github.com/five82/shutter/internal/feed"
	"github.com/five82/shutter/internal/likes"
	"github.com/five82/shutter/internal/oauth"
	"github.com/five82/shutter/internal/photoapi"
	"github.com/five82/shutter/internal/profile"
	"github.com/five82/shutter/internal/session"
	"github.com/five82/shutter/internal/tokenstore"
)

// Services holds every collaborator shutter runs with. Build creates them
// all explicitly; nothing here is a package-level singleton.
type Services struct {
	Config    config.Config
	Logger    *slog.Logger
	Tokens    tokenstore.Store
	API       *photoapi.Client
	Exchanger *oauth.Exchanger
	Feed      *feed.Synchronizer
	Likes     *likes.Coordinator
	Profile   *profile.Service
	Session   *session.Session

	closers []io.Closer
}

// Build wires the services for cfg.
func Build(cfg config.Config, logger *slog.Logger) (*Services, error) {
	if logger == nil {
		logger = slog.Default()
	}

	tokens, err := tokenstore.Open(tokenstore.Options{
		Backend:  cfg.TokenStore.Backend,
		Dir:      cfg.TokenStore.Dir,
		RedisURL: cfg.TokenStore.RedisURL,
	})
	if err != nil {
		return nil, fmt.Errorf("open token store: %w", err)
	}
	s := &Services{Config: cfg, Logger: logger, Tokens: tokens}
	if c, ok := tokens.(io.Closer); ok {
		s.closers = append(s.closers, c)
	}

	s.API, err = photoapi.NewClient(cfg.APIBase, photoapi.Options{
		RequestsPerHour: cfg.RequestsPerHour,
		Logger:          logger.With("component", "photoapi"),
	})
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("init api client: %w", err)
	}

	s.Exchanger, err = oauth.NewExchanger(tokens, oauth.Options{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURI:  cfg.RedirectURI,
		TokenURL:     cfg.TokenURL(),
		Logger:       logger.With("component", "oauth"),
	})
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("init token exchange: %w", err)
	}

	s.Feed = feed.NewSynchronizer(s.API, tokens, feed.Options{
		PerPage: cfg.PerPage,
		Logger:  logger.With("component", "feed"),
	})
	s.Likes = likes.NewCoordinator(s.API, tokens, logger.With("component", "likes"))

	s.Profile, err = profile.NewService(s.API, tokens, logger.With("component", "profile"))
	if err != nil {
		_ = s.Close()
		return nil, err
	}

	s.Session = &session.Session{
		Tokens:   tokens,
		Feed:     s.Feed,
		Profile:  s.Profile,
		Inflight: []session.Canceller{s.Likes, s.Exchanger},
		Logger:   logger.With("component", "session"),
	}
	return s, nil
}

// SignedIn reports whether a token is stored; it decides the start view.
func (s *Services) SignedIn(ctx context.Context) (bool, error) {
	return tokenstore.Has(ctx, s.Tokens)
}

// AuthorizeURL is the sign-in page for the redirect URI currently in use.
func (s *Services) AuthorizeURL() (string, error) {
	return authcode.AuthorizeURL(authcode.AuthorizeParams{
		Endpoint:    s.Config.AuthorizeURL(),
		ClientID:    s.Config.ClientID,
		RedirectURI: s.Exchanger.RedirectURI(),
		Scope:       s.Config.Scope,
	})
}

// StartCallback starts the loopback callback server when callback_addr is
// configured and points the exchanger at it. It returns nil when the
// out-of-band flow is in use.
func (s *Services) StartCallback() (*authcode.CallbackServer, error) {
	if s.Config.CallbackAddr == "" {
		return nil, nil
	}
	srv := authcode.NewCallbackServer(s.Config.CallbackAddr, s.Logger.With("component", "callback"))
	if err := srv.Start(); err != nil {
		return nil, err
	}
	s.Exchanger.SetRedirectURI(srv.RedirectURI())
	s.closers = append(s.closers, callbackCloser{srv})
	return srv, nil
}

// Close releases the token store connection and the callback listener.
func (s *Services) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

type callbackCloser struct{ srv *authcode.CallbackServer }

func (c callbackCloser) Close() error {
	return c.srv.Close(context.Background())
}
