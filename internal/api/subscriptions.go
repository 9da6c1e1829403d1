package api

import (
	"context"
	"log/slog"

	"github.com/hitoshi/nebulastream/internal/model"
)

// SubscriptionsService はチャンネル登録のエンドポイントを扱う。
type SubscriptionsService struct {
	client *Client
}

// Toggle はチャンネル登録を切り替える。
func (s *SubscriptionsService) Toggle(ctx context.Context, channelID string) (*model.ToggleSubscriptionResult, error) {
	var result model.ToggleSubscriptionResult
	if err := s.client.post(ctx, "/subscriptions/toggle/"+escape(channelID), authRequired, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// IsSubscribed はチャンネルを登録済みかを返す。失敗時はfalse。
func (s *SubscriptionsService) IsSubscribed(ctx context.Context, channelID string) bool {
	var resp struct {
		IsSubscribed bool `json:"isSubscribed"`
	}
	if err := s.client.get(ctx, "/subscriptions/check/"+escape(channelID), authRequired, &resp); err != nil {
		s.client.logger.Debug("subscription check failed", slog.String("error", err.Error()))
		return false
	}
	return resp.IsSubscribed
}

// Mine はログインユーザーの登録チャンネルを返す。
func (s *SubscriptionsService) Mine(ctx context.Context) ([]*model.Subscription, error) {
	var subs []*model.Subscription
	if err := s.client.get(ctx, "/subscriptions/my-subscriptions", authRequired, &subs); err != nil {
		return nil, err
	}
	return subs, nil
}

// Subscribers はチャンネルの登録者を返す。
func (s *SubscriptionsService) Subscribers(ctx context.Context, channelID string) ([]*model.Subscription, error) {
	var subs []*model.Subscription
	if err := s.client.get(ctx, "/subscriptions/subscribers/"+escape(channelID), authNone, &subs); err != nil {
		return nil, err
	}
	return subs, nil
}

// Count はチャンネルの登録者数を返す。
func (s *SubscriptionsService) Count(ctx context.Context, channelID string) (int, error) {
	var resp countResponse
	if err := s.client.get(ctx, "/subscriptions/count/"+escape(channelID), authNone, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// UpdateNotifications は登録チャンネルの通知設定を変更する。
func (s *SubscriptionsService) UpdateNotifications(ctx context.Context, channelID string, enabled bool) (*model.Subscription, error) {
	body := map[string]bool{"notificationsEnabled": enabled}
	var sub model.Subscription
	if err := s.client.patch(ctx, "/subscriptions/notifications/"+escape(channelID), authRequired, body, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}
