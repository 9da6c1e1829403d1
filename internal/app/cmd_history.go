package app

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hitoshi/nebulastream/internal/history"
	"github.com/hitoshi/nebulastream/internal/security"
)

func (c *cli) historyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show your watch history grouped by day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withRuntime(cmd.Context(), "history", func(rt *Runtime, p *printer) error {
				if _, err := requireSession(cmd.Context(), rt); err != nil {
					return err
				}
				items, err := rt.Client.History.List(cmd.Context())
				if err != nil {
					return err
				}
				for _, it := range items {
					if it != nil {
						security.SanitizeVideo(rt.Sanitizer, it.Video)
					}
				}

				now := c.now()
				groups := history.GroupByDate(items, now)
				if len(groups) == 0 && p.format == OutputTable {
					p.message("No watch history")
					return nil
				}
				return p.print(groups, func(tw *tabwriter.Writer) {
					for i, g := range groups {
						if i > 0 {
							fmt.Fprintln(tw)
						}
						fmt.Fprintln(tw, g.Label)
						for _, it := range g.Items {
							title := it.VideoID
							if it.Video != nil {
								title = it.Video.Title
							}
							status := "watching"
							if it.Completed {
								status = "completed"
							}
							fmt.Fprintf(tw, "  %s\t%s\t%s\n", truncate(title, 48), history.FormatRelative(it.WatchedAt, now), status)
						}
					}
				})
			})
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Clear your watch history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withRuntime(cmd.Context(), "history clear", func(rt *Runtime, p *printer) error {
				if _, err := requireSession(cmd.Context(), rt); err != nil {
					return err
				}
				if err := rt.Client.History.Clear(cmd.Context()); err != nil {
					return err
				}
				p.message("Watch history cleared")
				return nil
			})
		},
	})
	return cmd
}
