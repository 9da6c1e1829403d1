package app

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hitoshi/nebulastream/internal/channel"
	"github.com/hitoshi/nebulastream/internal/model"
	"github.com/hitoshi/nebulastream/internal/security"
)

func (c *cli) channelsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "channels",
		Short: "Manage your channels and the active channel",
		Long: `Channel commands operate on the channels owned by the logged-in user.

Examples:
  nebulastream channels list
  nebulastream channels use 01HXYZ...
  nebulastream channels clear`,
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List your channels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withRuntime(cmd.Context(), "channels list", func(rt *Runtime, p *printer) error {
				if _, err := requireSession(cmd.Context(), rt); err != nil {
					return err
				}
				return printChannels(p, rt.Sanitizer, rt.Channels.Snapshot())
			})
		},
	}

	use := &cobra.Command{
		Use:   "use <id>",
		Short: "Set the active channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withRuntime(cmd.Context(), "channels use", func(rt *Runtime, p *printer) error {
				if _, err := requireSession(cmd.Context(), rt); err != nil {
					return err
				}
				ch, err := rt.Channels.SetActiveChannelByID(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				p.message("Active channel: %s (%s)", ch.Name, ch.Handle)
				if p.format == OutputTable {
					return nil
				}
				return p.print(rt.Channels.Snapshot(), nil)
			})
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear the active channel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withRuntime(cmd.Context(), "channels clear", func(rt *Runtime, p *printer) error {
				if _, err := requireSession(cmd.Context(), rt); err != nil {
					return err
				}
				if err := rt.Channels.SetActiveChannel(cmd.Context(), nil); err != nil {
					return err
				}
				p.message("Active channel cleared")
				return nil
			})
		},
	}

	cmd.AddCommand(list, use, clearCmd)
	return cmd
}

func printChannels(p *printer, s security.ContentSanitizerService, snap channel.Snapshot) error {
	snap = sanitizedSnapshot(s, snap)
	if len(snap.Channels) == 0 {
		p.message("No channels found")
		if p.format == OutputTable {
			return nil
		}
	}
	return p.print(snap, func(tw *tabwriter.Writer) {
		printTableHeader(tw, "", "ID", "NAME", "HANDLE", "SUBSCRIBERS", "VIDEOS")
		for _, ch := range snap.Channels {
			marker := ""
			if snap.Active != nil && snap.Active.ID == ch.ID {
				marker = "*"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\n",
				marker, ch.ID, truncate(ch.Name, 32), ch.Handle, ch.SubscribersCount, ch.VideosCount)
		}
	})
}

// sanitizedSnapshot は表示用にテキストを無害化したコピーを返す。
// スナップショットのチャンネルはContextと共有されているため直接書き換えない。
func sanitizedSnapshot(s security.ContentSanitizerService, snap channel.Snapshot) channel.Snapshot {
	out := snap
	out.Channels = make([]*model.Channel, 0, len(snap.Channels))
	for _, ch := range snap.Channels {
		cp := *ch
		security.SanitizeChannel(s, &cp)
		out.Channels = append(out.Channels, &cp)
		if snap.Active != nil && snap.Active.ID == ch.ID {
			out.Active = &cp
		}
	}
	return out
}
