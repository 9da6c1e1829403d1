package api

import (
	"context"

	"github.com/hitoshi/nebulastream/internal/model"
)

// HistoryService は視聴履歴のエンドポイントを扱う。
type HistoryService struct {
	client *Client
}

// List は視聴履歴を新しい順に返す。
func (s *HistoryService) List(ctx context.Context) ([]*model.HistoryItem, error) {
	var items []*model.HistoryItem
	if err := s.client.get(ctx, "/views/history", authRequired, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Clear は視聴履歴をすべて削除する。
func (s *HistoryService) Clear(ctx context.Context) error {
	return s.client.delete(ctx, "/views/history/clear", authRequired, nil)
}

// Remove は視聴履歴から1件削除する。
func (s *HistoryService) Remove(ctx context.Context, viewID string) error {
	return s.client.delete(ctx, "/views/"+escape(viewID), authRequired, nil)
}
