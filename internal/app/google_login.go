package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/hitoshi/nebulastream/internal/auth"
	"github.com/hitoshi/nebulastream/internal/model"
)

// loopbackCallbackPath はGoogleログインの戻り先として待ち受けるパス。
const loopbackCallbackPath = "/auth/callback"

func (c *cli) loginGoogleCommand() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "login-google",
		Short: "Log in with Google through the backend",
		Long: `Prints the backend's Google login URL and waits for the backend to
redirect the browser to http://localhost:$CALLBACK_PORT/auth/callback.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withRuntime(cmd.Context(), "login-google", func(rt *Runtime, p *printer) error {
				ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
				defer cancel()

				ln, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", rt.Config.CallbackPort))
				if err != nil {
					return fmt.Errorf("failed to listen for oauth callback: %w", err)
				}

				provider := auth.NewGoogleOAuthProvider(auth.GoogleOAuthConfig{BackendURL: rt.Config.APIBaseURL})
				fmt.Fprintf(c.stderr, "Open this URL in your browser to sign in:\n  %s\n", provider.GetLoginURL())

				user, err := awaitOAuthCallback(ctx, ln, rt.Session.CompleteOAuthCallback)
				if err != nil {
					return err
				}
				return printUser(p, user)
			})
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "how long to wait for the browser")
	return cmd
}

// callbackCompleter はコールバックURLからログインを完了させる。
type callbackCompleter func(ctx context.Context, rawURL string) (*model.User, error)

type callbackResult struct {
	user *model.User
	err  error
}

// awaitOAuthCallback はlnでコールバックを1回受け取り、ログイン結果を返す。
// 失敗したコールバックでも待ち受けを終了する。
func awaitOAuthCallback(ctx context.Context, ln net.Listener, complete callbackCompleter) (*model.User, error) {
	results := make(chan callbackResult, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+loopbackCallbackPath, func(w http.ResponseWriter, r *http.Request) {
		user, err := complete(r.Context(), r.URL.RequestURI())
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintln(w, "Sign-in failed. You can close this window and try again.")
		} else {
			fmt.Fprintf(w, "Signed in as %s. You can close this window.\n", user.Name)
		}
		select {
		case results <- callbackResult{user: user, err: err}:
		default:
		}
	})

	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("oauth callback listener failed", slog.String("error", err.Error()))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	select {
	case res := <-results:
		return res.user, res.err
	case <-ctx.Done():
		return nil, fmt.Errorf("timed out waiting for google sign-in: %w", ctx.Err())
	}
}
