package app

import (
	"context"
	"fmt"

	"github.com/five82/shutter/internal/config"
	"github.com/five82/shutter/internal/prefs"
	"github.com/five82/shutter/internal/ui"
)

// Options configure the shutter TUI.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/shutter/prefs.toml
	Verbose    bool
}

// Run boots the shutter TUI until the user quits or the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, logCloser, err := NewLogger(LogOptions{File: cfg.LogFile, Verbose: opts.Verbose})
	if err != nil {
		return err
	}
	defer func() { _ = logCloser.Close() }()

	userPrefs, prefsErr := prefs.Load(opts.PrefsPath)
	if prefsErr != nil {
		logger.Warn("preferences ignored", "error", prefsErr)
	}

	svc, err := Build(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Warn("shutdown incomplete", "error", err)
		}
	}()

	var codes <-chan string
	srv, err := svc.StartCallback()
	if err != nil {
		// The paste flow still works without the listener.
		logger.Warn("callback listener unavailable", "addr", cfg.CallbackAddr, "error", err)
	} else if srv != nil {
		codes = srv.Codes()
	}

	authURL, err := svc.AuthorizeURL()
	if err != nil {
		return fmt.Errorf("build authorize url: %w", err)
	}
	signedIn, err := svc.SignedIn(ctx)
	if err != nil {
		return fmt.Errorf("read token: %w", err)
	}
	logger.Info("starting", "signed_in", signedIn, "token_store", cfg.TokenStore.Backend)

	loadOpts := LoadOptions{Logger: logger.With("component", "loader")}
	return ui.Run(ui.Options{
		Context:   ctx,
		Feed:      svc.Feed,
		Likes:     svc.Likes,
		Profile:   svc.Profile,
		Exchanger: svc.Exchanger,
		Session:   svc.Session,
		Bootstrap: func(ctx context.Context) error {
			return InitialLoad(ctx, svc.Feed, svc.Profile, loadOpts)
		},
		AuthorizeURL:  authURL,
		Callback:      codes,
		LogPath:       cfg.LogFile,
		SignedIn:      signedIn,
		ThemeName:     userPrefs.Theme,
		PrefsPath:     opts.PrefsPath,
		ConfirmLogout: userPrefs.ConfirmLogout,
		Logger:        logger.With("component", "ui"),
	})
}
