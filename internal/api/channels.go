package api

import (
	"context"

	"github.com/hitoshi/nebulastream/internal/model"
)

// ChannelsService はチャンネルのエンドポイントを扱う。
type ChannelsService struct {
	client *Client
}

// CreateChannelRequest はチャンネル作成リクエスト。
type CreateChannelRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Handle      string `json:"handle" validate:"required,max=50"`
	Description string `json:"description,omitempty" validate:"max=5000"`
	Avatar      string `json:"avatar,omitempty" validate:"omitempty,url"`
	Banner      string `json:"banner,omitempty" validate:"omitempty,url"`
}

// UpdateChannelRequest はチャンネル更新リクエスト。nilのフィールドは変更しない。
type UpdateChannelRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	Handle      *string `json:"handle,omitempty" validate:"omitempty,min=1,max=50"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=5000"`
	Avatar      *string `json:"avatar,omitempty" validate:"omitempty,url"`
	Banner      *string `json:"banner,omitempty" validate:"omitempty,url"`
}

// ChannelList はチャンネル一覧のページ。
type ChannelList struct {
	Channels   []*model.Channel `json:"channels"`
	Total      int              `json:"total"`
	Page       int              `json:"page"`
	TotalPages int              `json:"totalPages"`
}

type countResponse struct {
	Count int `json:"count"`
}

// Create はチャンネルを作成する。
func (s *ChannelsService) Create(ctx context.Context, req CreateChannelRequest) (*model.Channel, error) {
	if err := s.client.validateRequest(req); err != nil {
		return nil, err
	}
	var ch model.Channel
	if err := s.client.post(ctx, "/channels", authRequired, req, &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

// MyChannels はログインユーザーが所有するチャンネルを返す。
func (s *ChannelsService) MyChannels(ctx context.Context) ([]*model.Channel, error) {
	var channels []*model.Channel
	if err := s.client.get(ctx, "/channels/my-channels", authRequired, &channels); err != nil {
		return nil, err
	}
	return channels, nil
}

// MyChannelCount はログインユーザーのチャンネル数を返す。
func (s *ChannelsService) MyChannelCount(ctx context.Context) (int, error) {
	var resp countResponse
	if err := s.client.get(ctx, "/channels/my-channels/count", authRequired, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// Get はIDでチャンネルを取得する。
func (s *ChannelsService) Get(ctx context.Context, id string) (*model.Channel, error) {
	var ch model.Channel
	if err := s.client.get(ctx, "/channels/"+escape(id), authNone, &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

// GetByHandle はハンドルでチャンネルを取得する。
func (s *ChannelsService) GetByHandle(ctx context.Context, handle string) (*model.Channel, error) {
	var ch model.Channel
	if err := s.client.get(ctx, "/channels/handle/"+escape(handle), authNone, &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

// Update はチャンネルを更新する。
func (s *ChannelsService) Update(ctx context.Context, id string, req UpdateChannelRequest) (*model.Channel, error) {
	if err := s.client.validateRequest(req); err != nil {
		return nil, err
	}
	var ch model.Channel
	if err := s.client.patch(ctx, "/channels/"+escape(id), authRequired, req, &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

// Delete はチャンネルを削除する。
func (s *ChannelsService) Delete(ctx context.Context, id string) error {
	return s.client.delete(ctx, "/channels/"+escape(id), authRequired, nil)
}

// List は公開チャンネルの一覧を返す。
func (s *ChannelsService) List(ctx context.Context, p Pagination) (*ChannelList, error) {
	var list ChannelList
	if err := s.client.get(ctx, withQuery("/channels", p.params()), authNone, &list); err != nil {
		return nil, err
	}
	return &list, nil
}
