package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hitoshi/nebulastream/internal/api"
	"github.com/hitoshi/nebulastream/internal/history"
	"github.com/hitoshi/nebulastream/internal/like"
	"github.com/hitoshi/nebulastream/internal/model"
	"github.com/hitoshi/nebulastream/internal/search"
	"github.com/hitoshi/nebulastream/internal/security"
	"github.com/hitoshi/nebulastream/internal/shorts"
)

func (c *cli) videosCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "videos",
		Short: "Browse, search and upload videos",
		Long: `Video commands.

Examples:
  nebulastream videos search "go tutorial"
  nebulastream videos trending -o yaml
  nebulastream videos shorts --trending
  echo "go" | nebulastream videos suggest
  nebulastream videos like 01HXYZ... --dislike
  nebulastream videos upload ./clip.mp4 --title "My clip"`,
	}

	cmd.AddCommand(
		c.videosListCommand("search <query>", "Search videos by keyword", cobra.MinimumNArgs(1),
			func(ctx context.Context, rt *Runtime, args []string) ([]*model.Video, error) {
				return rt.Client.Videos.Search(ctx, strings.Join(args, " "))
			}),
		c.videosListCommand("trending", "List trending videos", cobra.NoArgs,
			func(ctx context.Context, rt *Runtime, args []string) ([]*model.Video, error) {
				return rt.Client.Videos.Trending(ctx)
			}),
		c.videosShortsCommand(),
		c.videosSuggestCommand(),
		c.videosLikeCommand(),
		c.videosCommentsCommand(),
		c.videosUploadCommand(),
	)
	return cmd
}

type videoFetcher func(ctx context.Context, rt *Runtime, args []string) ([]*model.Video, error)

func (c *cli) videosListCommand(use, short string, args cobra.PositionalArgs, fetch videoFetcher) *cobra.Command {
	name := strings.Fields(use)[0]
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withRuntime(cmd.Context(), "videos "+name, func(rt *Runtime, p *printer) error {
				videos, err := fetch(cmd.Context(), rt, args)
				if err != nil {
					return err
				}
				return c.printVideos(p, rt.Sanitizer, videos)
			})
		},
	}
}

func (c *cli) printVideos(p *printer, s security.ContentSanitizerService, videos []*model.Video) error {
	for _, v := range videos {
		security.SanitizeVideo(s, v)
	}
	if videos == nil {
		videos = []*model.Video{}
	}
	if len(videos) == 0 && p.format == OutputTable {
		p.message("No videos found")
		return nil
	}
	now := c.now()
	return p.print(videos, func(tw *tabwriter.Writer) {
		printTableHeader(tw, "ID", "TITLE", "CHANNEL", "VIEWS", "UPLOADED")
		for _, v := range videos {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
				v.ID, truncate(v.Title, 48), videoOwner(v), v.ViewsCount, history.FormatRelative(v.CreatedAt, now))
		}
	})
}

func videoOwner(v *model.Video) string {
	switch {
	case v.Channel != nil:
		return v.Channel.Name
	case v.User != nil:
		return v.User.Name
	default:
		return ""
	}
}

func (c *cli) videosShortsCommand() *cobra.Command {
	var trending bool
	var start string
	cmd := &cobra.Command{
		Use:   "shorts",
		Short: "List shorts in player order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withRuntime(cmd.Context(), "videos shorts", func(rt *Runtime, p *printer) error {
				var videos []*model.Video
				var err error
				if trending {
					videos, err = rt.Client.Videos.TrendingShorts(cmd.Context())
				} else {
					videos, err = rt.Client.Videos.Shorts(cmd.Context())
				}
				if err != nil {
					return err
				}
				for _, v := range videos {
					security.SanitizeVideo(rt.Sanitizer, v)
				}
				return printShorts(p, videos, start)
			})
		},
	}
	cmd.Flags().BoolVar(&trending, "trending", false, "list trending shorts")
	cmd.Flags().StringVar(&start, "start", "", "start playback at this short ID")
	return cmd
}

// shortEntry はプレイヤー順に並べたショート動画の1件。
type shortEntry struct {
	Position string       `json:"position"`
	Video    *model.Video `json:"video"`
}

// printShorts はプレイヤーの再生順（startから一周）でショート動画を出力する。
func printShorts(p *printer, videos []*model.Video, start string) error {
	player := shorts.NewPlayer(videos)
	if start != "" {
		for i := 0; i < player.Len() && player.Current().ID != start; i++ {
			player.OnEnded()
		}
		if player.Current() == nil || player.Current().ID != start {
			return fmt.Errorf("short %q not found", start)
		}
	}

	entries := make([]shortEntry, 0, player.Len())
	for i := 0; i < player.Len(); i++ {
		entries = append(entries, shortEntry{Position: player.Position(), Video: player.Current()})
		player.HandleKey(shorts.KeyDown)
	}

	if len(entries) == 0 && p.format == OutputTable {
		p.message("No shorts found")
		return nil
	}
	return p.print(entries, func(tw *tabwriter.Writer) {
		printTableHeader(tw, "POSITION", "ID", "TITLE", "LIKES", "VIEWS")
		for _, e := range entries {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\n",
				e.Position, e.Video.ID, truncate(e.Video.Title, 48), e.Video.LikesCount, e.Video.ViewsCount)
		}
	})
}

func (c *cli) videosSuggestCommand() *cobra.Command {
	var delay time.Duration
	var limit int
	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Print search suggestions for queries typed on stdin",
		Long: `Reads one query per line from stdin and prints debounced search
suggestions. Lines typed faster than --delay supersede each other.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withRuntime(cmd.Context(), "videos suggest", func(rt *Runtime, p *printer) error {
				return runSuggest(cmd.Context(), rt, p, bufio.NewScanner(cmd.InOrStdin()), c.stderr, delay, limit)
			})
		},
	}
	cmd.Flags().DurationVar(&delay, "delay", search.DefaultDelay, "debounce delay")
	cmd.Flags().IntVar(&limit, "limit", search.DefaultLimit, "maximum number of suggestions")
	return cmd
}

// runSuggest は入力行をSuggesterに流し、最後の入力に対する結果を待ってから終了する。
func runSuggest(ctx context.Context, rt *Runtime, p *printer, in *bufio.Scanner, errw io.Writer, delay time.Duration, limit int) error {
	results := make(chan search.Result, 16)
	done := make(chan struct{})
	s := search.NewSuggester(rt.Client.Videos, func(r search.Result) {
		select {
		case results <- r:
		case <-done:
		}
	},
		search.WithDelay(delay),
		search.WithLimit(limit),
		search.WithLogger(rt.Logger),
	)
	defer func() {
		close(done)
		s.Close()
	}()

	emit := func(r search.Result) error {
		if r.Query == "" {
			return nil
		}
		if r.Err != nil {
			fmt.Fprintf(errw, "suggestions for %q failed: %v\n", r.Query, r.Err)
			return nil
		}
		for _, v := range r.Videos {
			security.SanitizeVideo(rt.Sanitizer, v)
		}
		p.message("%s:", r.Query)
		if p.format != OutputTable {
			return p.print(r, nil)
		}
		for _, v := range r.Videos {
			p.message("  %s\t%s", v.ID, v.Title)
		}
		return nil
	}

	last := ""
	for in.Scan() {
		last = strings.TrimSpace(in.Text())
		s.Input(last)
		// 途中で届いた結果は随時表示する
		for drained := false; !drained; {
			select {
			case r := <-results:
				if err := emit(r); err != nil {
					return err
				}
			default:
				drained = true
			}
		}
	}
	if err := in.Err(); err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	if last == "" {
		return nil
	}

	timeout := time.NewTimer(delay + rt.Config.HTTPTimeout)
	defer timeout.Stop()
	for {
		select {
		case r := <-results:
			if err := emit(r); err != nil {
				return err
			}
			if r.Query == last {
				return nil
			}
		case <-timeout.C:
			return fmt.Errorf("timed out waiting for suggestions for %q", last)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *cli) videosLikeCommand() *cobra.Command {
	var dislike bool
	cmd := &cobra.Command{
		Use:   "like <video-id>",
		Short: "Toggle a like (or dislike) on a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withRuntime(cmd.Context(), "videos like", func(rt *Runtime, p *printer) error {
				if _, err := requireSession(cmd.Context(), rt); err != nil {
					return err
				}
				kind := model.LikeTypeLike
				if dislike {
					kind = model.LikeTypeDislike
				}
				state, err := toggleLike(cmd.Context(), rt.Client.Likes, args[0], kind)
				if err != nil {
					return err
				}
				return p.print(state, func(tw *tabwriter.Writer) {
					printTableHeader(tw, "LIKES", "DISLIKES", "YOURS")
					current := "-"
					if state.Current != "" {
						current = string(state.Current)
					}
					fmt.Fprintf(tw, "%d\t%d\t%s\n", state.Likes, state.Dislikes, current)
				})
			})
		},
	}
	cmd.Flags().BoolVar(&dislike, "dislike", false, "toggle a dislike instead of a like")
	return cmd
}

// toggleLike は現在の評価を読み込んでからトグルし、楽観的に更新した件数を返す。
func toggleLike(ctx context.Context, likes *api.LikesService, videoID string, kind model.LikeType) (like.State, error) {
	stats, err := likes.Stats(ctx, videoID, model.TargetVideo)
	if err != nil {
		return like.State{}, err
	}
	counter := like.NewCounter(*stats, likes.UserLike(ctx, videoID, model.TargetVideo))

	result, err := likes.Toggle(ctx, api.ToggleLikeRequest{
		TargetID:   videoID,
		TargetType: model.TargetVideo,
		Type:       kind,
	})
	if err != nil {
		return counter.State(), err
	}
	return counter.Apply(kind, result), nil
}

func (c *cli) videosCommentsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "comments <video-id>",
		Short: "List comments on a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withRuntime(cmd.Context(), "videos comments", func(rt *Runtime, p *printer) error {
				comments, err := rt.Client.Comments.ForVideo(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				for _, cm := range comments {
					security.SanitizeComment(rt.Sanitizer, cm)
				}
				if len(comments) == 0 && p.format == OutputTable {
					p.message("No comments yet")
					return nil
				}
				now := c.now()
				return p.print(comments, func(tw *tabwriter.Writer) {
					printTableHeader(tw, "AUTHOR", "WHEN", "LIKES", "COMMENT")
					for _, cm := range comments {
						printComment(tw, cm, now, "")
					}
				})
			})
		},
	}
}

func printComment(tw *tabwriter.Writer, cm *model.Comment, now time.Time, indent string) {
	author := ""
	if cm.User != nil {
		author = cm.User.Name
	}
	fmt.Fprintf(tw, "%s%s\t%s\t%d\t%s\n",
		indent, author, history.FormatRelative(cm.CreatedAt, now), cm.LikesCount, truncate(cm.Content, 60))
	for _, r := range cm.Replies {
		printComment(tw, r, now, indent+"  ")
	}
}

func (c *cli) videosUploadCommand() *cobra.Command {
	var req api.UploadVideoRequest
	var tags string
	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a video to the active channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withRuntime(cmd.Context(), "videos upload", func(rt *Runtime, p *printer) error {
				if _, err := requireSession(cmd.Context(), rt); err != nil {
					return err
				}
				if req.ChannelID == "" {
					active := rt.Channels.Snapshot().Active
					if active == nil {
						return fmt.Errorf("no active channel: run 'nebulastream channels use <id>' or pass --channel")
					}
					req.ChannelID = active.ID
				}
				if tags != "" {
					for _, t := range strings.Split(tags, ",") {
						if t = strings.TrimSpace(t); t != "" {
							req.Tags = append(req.Tags, t)
						}
					}
				}

				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("failed to open video: %w", err)
				}
				defer f.Close()
				info, err := f.Stat()
				if err != nil {
					return fmt.Errorf("failed to stat video: %w", err)
				}

				last := -1
				result, err := rt.Client.Videos.Upload(cmd.Context(),
					api.UploadFile{Reader: f, Name: filepath.Base(args[0]), Size: info.Size()},
					req,
					func(percent int) {
						if percent != last {
							last = percent
							fmt.Fprintf(c.stderr, "\ruploading... %3d%%", percent)
						}
					},
				)
				fmt.Fprintln(c.stderr)
				if err != nil {
					return err
				}
				return p.print(result, func(tw *tabwriter.Writer) {
					printTableHeader(tw, "ID", "TITLE", "VISIBILITY")
					if v := result.Video; v != nil {
						fmt.Fprintf(tw, "%s\t%s\t%s\n", v.ID, v.Title, v.Visibility)
					}
				})
			})
		},
	}
	cmd.Flags().StringVar(&req.Title, "title", "", "video title")
	cmd.Flags().StringVar(&req.Description, "description", "", "video description")
	cmd.Flags().StringVar((*string)(&req.Visibility), "visibility", "public", "public, unlisted or private")
	cmd.Flags().StringVar(&req.Category, "category", "", "video category")
	cmd.Flags().StringVar(&tags, "tags", "", "comma-separated tags")
	cmd.Flags().BoolVar(&req.IsShort, "short", false, "upload as a short")
	cmd.Flags().StringVar(&req.ChannelID, "channel", "", "channel ID (defaults to the active channel)")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}
