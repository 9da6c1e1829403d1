package api

import (
	"context"
	"log/slog"

	"github.com/hitoshi/nebulastream/internal/model"
)

// SettingsService はサイト設定のエンドポイントを扱う。
type SettingsService struct {
	client *Client
}

// Get はサイト設定を返す。取得に失敗した場合や空の項目はデフォルト値で補完する。
func (s *SettingsService) Get(ctx context.Context) model.SiteSettings {
	var settings model.SiteSettings
	if err := s.client.get(ctx, "/settings", authNone, &settings); err != nil {
		s.client.logger.Warn("failed to load site settings, using defaults", slog.String("error", err.Error()))
		return model.SiteSettings{}.WithDefaults()
	}
	return settings.WithDefaults()
}

// Update はサイト設定を更新する。
func (s *SettingsService) Update(ctx context.Context, settings model.SiteSettings) (model.SiteSettings, error) {
	var updated model.SiteSettings
	if err := s.client.put(ctx, "/settings", authAdmin, settings, &updated); err != nil {
		return model.SiteSettings{}, err
	}
	return updated.WithDefaults(), nil
}
