package cli

import (
	"github.com/spf13/cobra"
)

func newProfileCmd(r *root) *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Show the signed-in user's profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := r.services(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			p, err := svc.Profile.Load(cmd.Context())
			if err != nil {
				return err
			}
			t := newTable(cmd.OutOrStdout(), "Field", "Value")
			t.addRow("Name", p.Name)
			t.addRow("Login", p.LoginName)
			t.addRow("Bio", shorten(p.Bio, 80))
			t.addRow("Avatar", p.AvatarURL)
			return t.render()
		},
	}
}
