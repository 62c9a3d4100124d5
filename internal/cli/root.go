// Package cli contains the shutter command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/five82/shutter/internal/app"
	"github.com/five82/shutter/internal/config"
)

// Build information, set by main.
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// SetBuildInfo records version details for the version command.
func SetBuildInfo(v, c, bt string) {
	if v != "" {
		version = v
	}
	if c != "" {
		commit = c
	}
	if bt != "" {
		buildTime = bt
	}
}

// root holds the persistent flags shared by every command.
type root struct {
	configPath string
	prefsPath  string
	verbose    bool
}

// NewRootCommand builds the command tree. Running it without a subcommand
// starts the TUI.
func NewRootCommand() *cobra.Command {
	r := &root{}

	cmd := &cobra.Command{
		Use:   "shutter",
		Short: "Browse and like photos from the terminal",
		Long: `shutter signs in to the photo service with OAuth and shows your photo
feed in the terminal.

Example usage:
  shutter                      # Start the TUI
  shutter login                # Sign in without the TUI
  shutter feed --pages 2       # Print the first two feed pages
  shutter like Dwu85P9SOIk     # Like a photo
  shutter logs -n 100          # Show the last 100 log lines`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run(cmd.Context(), app.Options{
				ConfigPath: r.configPath,
				PrefsPath:  r.prefsPath,
				Verbose:    r.verbose,
			})
		},
	}

	cmd.PersistentFlags().StringVar(&r.configPath, "config", "", "config file (default is ~/.config/shutter/config.toml)")
	cmd.PersistentFlags().StringVar(&r.prefsPath, "prefs", "", "preferences file (default is ~/.config/shutter/prefs.toml)")
	cmd.PersistentFlags().BoolVarP(&r.verbose, "verbose", "v", false, "log to stderr at debug level")

	cmd.AddCommand(
		newLoginCmd(r),
		newLogoutCmd(r),
		newFeedCmd(r),
		newLikeCmd(r, true),
		newLikeCmd(r, false),
		newProfileCmd(r),
		newLogsCmd(r),
		newVersionCmd(),
	)
	return cmd
}

// Execute runs the command tree with ctx.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

// services loads the config and builds the services for a one-shot command.
// The caller closes the returned Services.
func (r *root) services(cmd *cobra.Command) (*app.Services, func(), error) {
	cfg, err := config.Load(r.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger, logCloser, err := r.logger(cmd, cfg)
	if err != nil {
		return nil, nil, err
	}
	svc, err := app.Build(cfg, logger)
	if err != nil {
		_ = logCloser.Close()
		return nil, nil, err
	}
	cleanup := func() {
		if err := svc.Close(); err != nil {
			logger.Warn("shutdown incomplete", "error", err)
		}
		_ = logCloser.Close()
	}
	return svc, cleanup, nil
}

// logger writes to stderr with --verbose and to the log file otherwise, so
// command output stays clean.
func (r *root) logger(cmd *cobra.Command, cfg config.Config) (*slog.Logger, io.Closer, error) {
	if r.verbose {
		return app.NewLogger(app.LogOptions{Console: cmd.ErrOrStderr(), Verbose: true})
	}
	return app.NewLogger(app.LogOptions{File: cfg.LogFile})
}
