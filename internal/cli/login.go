package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/five82/shutter/internal/authcode"
)

const loginTimeout = 5 * time.Minute

func newLoginCmd(r *root) *cobra.Command {
	var code string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store an access token",
		Long: `Print the sign-in address, then exchange the authorization code for an
access token.

With callback_addr configured, shutter listens for the browser's redirect and
picks up the code itself. Otherwise paste the code (or the whole address the
browser ended on) when asked.

Examples:
  shutter login                # Interactive sign in
  shutter login --code abc123  # Exchange a code you already have`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := r.services(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, cancel := context.WithTimeout(cmd.Context(), loginTimeout)
			defer cancel()
			out := cmd.OutOrStdout()

			if code == "" {
				srv, err := svc.StartCallback()
				if err != nil {
					return fmt.Errorf("start callback listener: %w", err)
				}
				authURL, err := svc.AuthorizeURL()
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Open this address in a browser and approve access:\n\n  %s\n\n", authURL)

				if srv != nil {
					fmt.Fprintln(out, "Waiting for the browser to return...")
					code, err = srv.Wait(ctx)
				} else {
					code, err = promptCode(ctx, cmd)
				}
				if err != nil {
					return err
				}
			} else if parsed, ok := authcode.ParseInput(code); ok {
				code = parsed
			} else {
				return fmt.Errorf("--code is not an authorization code or callback URL")
			}

			if _, err := svc.Exchanger.Exchange(ctx, code); err != nil {
				return fmt.Errorf("sign in: %w", err)
			}

			if p, err := svc.Profile.Load(ctx); err == nil {
				fmt.Fprintf(out, "Signed in as %s.\n", p.LoginName)
			} else {
				fmt.Fprintln(out, "Signed in.")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&code, "code", "", "authorization code or callback URL to exchange")
	return cmd
}

func promptCode(ctx context.Context, cmd *cobra.Command) (string, error) {
	fmt.Fprint(cmd.OutOrStdout(), "Paste the code or callback URL: ")

	type result struct {
		line string
		err  error
	}
	lines := make(chan result, 1)
	go func() {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		lines <- result{line, err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-lines:
		if res.err != nil && strings.TrimSpace(res.line) == "" {
			return "", fmt.Errorf("read code: %w", res.err)
		}
		code, ok := authcode.ParseInput(res.line)
		if !ok {
			return "", errors.New("that is not an authorization code or callback URL")
		}
		return code, nil
	}
}
