package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLogoutCmd(r *root) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := r.services(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := svc.Session.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}
