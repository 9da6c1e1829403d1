// Package app はnebulastreamバイナリのコマンドと依存関係の組み立てを提供する。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"

	"github.com/hitoshi/nebulastream/internal/config"
	"github.com/hitoshi/nebulastream/internal/logger"
)

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップしてから環境変数のConfigを読み込み、LOG_LEVELを反映する。
// ログはwに出力する。コマンドの出力（標準出力）とは分けること。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. ログレベルの反映
	logger.SetLevel(w, logger.ParseLevel(cfg.LogLevel))

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// argsにはos.Args[1:]を渡す。コマンドの出力はstdout、ログはstderrに書き込まれる。
func Run(ctx context.Context, stdout, stderr io.Writer, args []string) error {
	root := NewRootCommand(stdout, stderr)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return "***"
	}
	return u.Redacted()
}

// logStart はコマンドの開始をログに記録する。
func logStart(command string, cfg *config.Config) {
	slog.Info("starting command",
		slog.String("command", command),
		slog.String("api_base_url", cfg.APIBaseURL),
		slog.String("store_driver", cfg.StoreDriver),
	)
}
