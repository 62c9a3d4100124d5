package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLikeCmd(r *root, liked bool) *cobra.Command {
	use, short, done := "like", "Like a photo", "Liked"
	if !liked {
		use, short, done = "unlike", "Remove your like from a photo", "Unliked"
	}
	return &cobra.Command{
		Use:   use + " <photo-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := r.services(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := svc.Likes.SetLiked(cmd.Context(), args[0], liked); err != nil {
				return fmt.Errorf("%s %s: %w", use, args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s.\n", done, args[0])
			return nil
		},
	}
}
