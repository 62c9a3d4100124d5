package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newFeedCmd(r *root) *cobra.Command {
	var pages int
	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Print the photo feed",
		Long: `Fetch feed pages in order and print the merged, de-duplicated list.

Examples:
  shutter feed             # First page
  shutter feed --pages 3   # First three pages`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if pages < 1 {
				return fmt.Errorf("--pages must be at least 1")
			}
			svc, cleanup, err := r.services(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			for i := 0; i < pages; i++ {
				added, err := svc.Feed.FetchNextPage(cmd.Context())
				if err != nil {
					return fmt.Errorf("fetch page %d: %w", i+1, err)
				}
				if len(added) == 0 {
					break
				}
			}

			t := newTable(cmd.OutOrStdout(), "ID", "Author", "Likes", "Liked", "Created", "Description")
			for _, p := range svc.Feed.Photos() {
				liked := ""
				if p.Liked {
					liked = "yes"
				}
				created := "-"
				if p.CreatedAt != nil {
					created = p.CreatedAt.Local().Format("2006-01-02")
				}
				t.addRow(p.ID, p.Author, strconv.Itoa(p.Likes), liked, created, shorten(p.Description, 60))
			}
			return t.render()
		},
	}
	cmd.Flags().IntVarP(&pages, "pages", "p", 1, "number of pages to fetch")
	return cmd
}

func shorten(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-3]) + "..."
}
