package api

import (
	"context"

	"github.com/hitoshi/nebulastream/internal/model"
)

// PlaylistsService はプレイリストのエンドポイントを扱う。
type PlaylistsService struct {
	client *Client
}

// PlaylistRequest はプレイリストの作成・更新リクエスト。
type PlaylistRequest struct {
	Name        string           `json:"name" validate:"required,max=150"`
	Description string           `json:"description,omitempty" validate:"max=5000"`
	Visibility  model.Visibility `json:"visibility,omitempty" validate:"omitempty,oneof=public unlisted private"`
}

// Mine はログインユーザーのプレイリストを返す。
func (s *PlaylistsService) Mine(ctx context.Context) ([]*model.Playlist, error) {
	var playlists []*model.Playlist
	if err := s.client.get(ctx, "/playlists/my-playlists", authRequired, &playlists); err != nil {
		return nil, err
	}
	return playlists, nil
}

// Get はプレイリストの詳細を返す。
func (s *PlaylistsService) Get(ctx context.Context, id string) (*model.Playlist, error) {
	var p model.Playlist
	if err := s.client.get(ctx, "/playlists/"+escape(id), authOptional, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Create はプレイリストを作成する。
func (s *PlaylistsService) Create(ctx context.Context, req PlaylistRequest) (*model.Playlist, error) {
	if err := s.client.validateRequest(req); err != nil {
		return nil, err
	}
	var p model.Playlist
	if err := s.client.post(ctx, "/playlists", authRequired, req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Update はプレイリストを更新する。
func (s *PlaylistsService) Update(ctx context.Context, id string, req PlaylistRequest) (*model.Playlist, error) {
	if err := s.client.validateRequest(req); err != nil {
		return nil, err
	}
	var p model.Playlist
	if err := s.client.put(ctx, "/playlists/"+escape(id), authRequired, req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Delete はプレイリストを削除する。
func (s *PlaylistsService) Delete(ctx context.Context, id string) error {
	return s.client.delete(ctx, "/playlists/"+escape(id), authRequired, nil)
}

// AddVideo はプレイリストに動画を追加する。
func (s *PlaylistsService) AddVideo(ctx context.Context, playlistID, videoID string) error {
	body := map[string]string{"videoId": videoID}
	return s.client.post(ctx, "/playlists/"+escape(playlistID)+"/videos", authRequired, body, nil)
}

// RemoveVideo はプレイリストから動画を取り除く。
func (s *PlaylistsService) RemoveVideo(ctx context.Context, playlistID, videoID string) error {
	return s.client.delete(ctx, "/playlists/"+escape(playlistID)+"/videos/"+escape(videoID), authRequired, nil)
}
