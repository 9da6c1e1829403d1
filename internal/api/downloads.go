package api

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/hitoshi/nebulastream/internal/model"
)

// DownloadsService はダウンロードのエンドポイントを扱う。
type DownloadsService struct {
	client *Client
}

// Download は動画ファイルをwに書き出し、書き込んだバイト数を返す。
func (s *DownloadsService) Download(ctx context.Context, videoID string, w io.Writer) (int64, error) {
	req, err := s.client.newRequest(ctx, http.MethodGet, "/downloads/file/"+escape(videoID), nil)
	if err != nil {
		return 0, err
	}

	resp, err := s.client.send(s.client.uploadClient, req, authRequired)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, decodeResponse(resp, nil)
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("failed to write download: %w", err)
	}
	return n, nil
}

// Record はダウンロードを記録する。
func (s *DownloadsService) Record(ctx context.Context, videoID string) (*model.Download, error) {
	var d model.Download
	if err := s.client.post(ctx, "/downloads/record/"+escape(videoID), authRequired, nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// List はダウンロード履歴を返す。
func (s *DownloadsService) List(ctx context.Context) ([]*model.Download, error) {
	var downloads []*model.Download
	if err := s.client.get(ctx, "/downloads", authRequired, &downloads); err != nil {
		return nil, err
	}
	return downloads, nil
}

// Remove はダウンロード履歴から動画を削除する。
func (s *DownloadsService) Remove(ctx context.Context, videoID string) error {
	return s.client.delete(ctx, "/downloads/"+escape(videoID), authRequired, nil)
}

// Count はダウンロード数を返す。失敗時は0。
func (s *DownloadsService) Count(ctx context.Context) int {
	var resp countResponse
	if err := s.client.get(ctx, "/downloads/count", authRequired, &resp); err != nil {
		s.client.logger.Debug("download count failed", slog.String("error", err.Error()))
		return 0
	}
	return resp.Count
}
