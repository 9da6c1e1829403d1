package api

import (
	"context"
	"log/slog"

	"github.com/hitoshi/nebulastream/internal/model"
)

// LikesService は高評価・低評価のエンドポイントを扱う。
type LikesService struct {
	client *Client
}

// ToggleLikeRequest は評価のトグルリクエスト。
type ToggleLikeRequest struct {
	TargetID   string           `json:"targetId" validate:"required"`
	TargetType model.TargetType `json:"targetType" validate:"required,oneof=video comment"`
	Type       model.LikeType   `json:"type" validate:"required,oneof=like dislike"`
}

// Toggle は評価を切り替える。同じ種別なら取り消し、異なる種別なら変更となる。
func (s *LikesService) Toggle(ctx context.Context, req ToggleLikeRequest) (*model.ToggleLikeResult, error) {
	if err := s.client.validateRequest(req); err != nil {
		return nil, err
	}
	var result model.ToggleLikeResult
	if err := s.client.post(ctx, "/likes/toggle", authRequired, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// UserLike はログインユーザーの評価を返す。未評価・未ログイン・失敗のいずれもnilを返す。
func (s *LikesService) UserLike(ctx context.Context, targetID string, targetType model.TargetType) *model.Like {
	var like *model.Like
	path := withQuery("/likes/user/"+escape(targetID), map[string]string{"targetType": string(targetType)})
	if err := s.client.get(ctx, path, authRequired, &like); err != nil {
		s.client.logger.Debug("user like unavailable", slog.String("error", err.Error()))
		return nil
	}
	return like
}

// Stats は対象の評価数を返す。
func (s *LikesService) Stats(ctx context.Context, targetID string, targetType model.TargetType) (*model.LikeStats, error) {
	var stats model.LikeStats
	path := withQuery("/likes/stats/"+escape(targetID), map[string]string{"targetType": string(targetType)})
	if err := s.client.get(ctx, path, authNone, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
