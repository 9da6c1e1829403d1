package api

import (
	"context"
	"log/slog"

	"github.com/hitoshi/nebulastream/internal/model"
)

// WatchLaterService は「後で見る」のエンドポイントを扱う。
type WatchLaterService struct {
	client *Client
}

// ToggleWatchLaterResult はトグルのレスポンス。
type ToggleWatchLaterResult struct {
	Added   bool   `json:"added"`
	Message string `json:"message"`
}

// Toggle は「後で見る」への追加・削除を切り替える。
func (s *WatchLaterService) Toggle(ctx context.Context, videoID string) (*ToggleWatchLaterResult, error) {
	var result ToggleWatchLaterResult
	if err := s.client.post(ctx, "/watch-later/toggle/"+escape(videoID), authRequired, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Add は動画を追加する。
func (s *WatchLaterService) Add(ctx context.Context, videoID string) error {
	return s.client.post(ctx, "/watch-later/"+escape(videoID), authRequired, nil, nil)
}

// Remove は動画を削除する。
func (s *WatchLaterService) Remove(ctx context.Context, videoID string) error {
	return s.client.delete(ctx, "/watch-later/"+escape(videoID), authRequired, nil)
}

// List は「後で見る」の一覧を返す。
func (s *WatchLaterService) List(ctx context.Context) ([]*model.WatchLaterItem, error) {
	var items []*model.WatchLaterItem
	if err := s.client.get(ctx, "/watch-later", authRequired, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Check は動画が追加済みかを返す。失敗時はfalse。
func (s *WatchLaterService) Check(ctx context.Context, videoID string) bool {
	var resp struct {
		IsInWatchLater bool `json:"isInWatchLater"`
	}
	if err := s.client.get(ctx, "/watch-later/check/"+escape(videoID), authRequired, &resp); err != nil {
		s.client.logger.Debug("watch later check failed", slog.String("error", err.Error()))
		return false
	}
	return resp.IsInWatchLater
}

// Count は追加済みの件数を返す。失敗時は0。
func (s *WatchLaterService) Count(ctx context.Context) int {
	var resp countResponse
	if err := s.client.get(ctx, "/watch-later/count", authRequired, &resp); err != nil {
		s.client.logger.Debug("watch later count failed", slog.String("error", err.Error()))
		return 0
	}
	return resp.Count
}
