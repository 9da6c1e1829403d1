package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hitoshi/nebulastream/internal/config"
	"github.com/hitoshi/nebulastream/internal/model"
	"github.com/hitoshi/nebulastream/internal/session"
)

// cli はコマンド群が共有する入出力と設定の読み込み方法。
type cli struct {
	stdout io.Writer
	stderr io.Writer
	output string

	// テストで差し替えるための関数
	loadConfig func(w io.Writer) (*config.Config, error)
	now        func() time.Time
}

// NewRootCommand はnebulastreamのルートコマンドを構築する。
func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	c := &cli{
		stdout:     stdout,
		stderr:     stderr,
		loadConfig: Init,
		now:        time.Now,
	}
	return c.rootCommand()
}

func (c *cli) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "nebulastream",
		Short: "NebulaStream client runtime and host server",
		Long: `NebulaStream client runtime.

Runs the local client host server or drives the NebulaStream backend from the
command line. Configuration is read from environment variables (API_BASE_URL,
STORE_DRIVER, ...).

Examples:
  nebulastream serve
  nebulastream login --email jane@example.com --password secret
  nebulastream channels list -o json
  nebulastream videos search "go tutorial"`,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.SetOut(c.stdout)
	root.SetErr(c.stderr)
	root.PersistentFlags().StringVarP(&c.output, "output", "o", string(OutputTable), "output format (table, json, yaml)")

	root.AddCommand(
		c.serveCommand(),
		c.loginCommand(),
		c.loginGoogleCommand(),
		c.logoutCommand(),
		c.whoamiCommand(),
		c.channelsCommand(),
		c.videosCommand(),
		c.historyCommand(),
		c.migrateCommand(),
		c.healthcheckCommand(),
	)
	return root
}

// printer は --output に従うprinterを返す。
func (c *cli) printer() (*printer, error) {
	format, err := ParseOutputFormat(c.output)
	if err != nil {
		return nil, err
	}
	return &printer{w: c.stdout, format: format}, nil
}

// withRuntime は設定を読み込んでランタイムを組み立て、fnの終了後に解放する。
func (c *cli) withRuntime(ctx context.Context, command string, fn func(rt *Runtime, p *printer) error) error {
	p, err := c.printer()
	if err != nil {
		return err
	}
	cfg, err := c.loadConfig(c.stderr)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}
	logStart(command, cfg)

	rt, err := NewRuntime(ctx, cfg, slog.Default(), RuntimeOptions{Alerter: writerAlerter{w: c.stderr}})
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			slog.Warn("failed to close runtime", slog.String("error", err.Error()))
		}
	}()

	return fn(rt, p)
}

// requireSession は保存済みセッションを復元し、未ログインならエラーを返す。
func requireSession(ctx context.Context, rt *Runtime) (session.State, error) {
	st := rt.Restore(ctx)
	if !st.IsAuthenticated {
		return st, model.NewLoginRequiredError()
	}
	return st, nil
}

// writerAlerter はアカウント不一致の警告を端末に表示する。
type writerAlerter struct {
	w io.Writer
}

func (a writerAlerter) Alert(message string) {
	fmt.Fprintln(a.w, "WARNING: "+message)
}

// compile-time interface check
var _ session.Alerter = writerAlerter{}

func (c *cli) loginCommand() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in with email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withRuntime(cmd.Context(), "login", func(rt *Runtime, p *printer) error {
				user, err := rt.Session.LoginWithPassword(cmd.Context(), email, password)
				if err != nil {
					return err
				}
				return printUser(p, user)
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func (c *cli) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withRuntime(cmd.Context(), "logout", func(rt *Runtime, p *printer) error {
				if err := rt.Session.Logout(cmd.Context()); err != nil {
					return err
				}
				p.message("Logged out")
				return nil
			})
		},
	}
}

func (c *cli) whoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withRuntime(cmd.Context(), "whoami", func(rt *Runtime, p *printer) error {
				st := rt.Restore(cmd.Context())
				if !st.IsAuthenticated {
					if p.format != OutputTable {
						return p.print(st, nil)
					}
					p.message("Not logged in")
					return nil
				}
				if p.format != OutputTable {
					return p.print(st, nil)
				}
				return printUser(p, st.User)
			})
		},
	}
}

func printUser(p *printer, u *model.User) error {
	return p.print(u, func(tw *tabwriter.Writer) {
		printTableHeader(tw, "ID", "NAME", "EMAIL", "HANDLE", "ROLE")
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", u.ID, u.Name, u.Email, u.Handle, u.Role)
	})
}
