package api

import (
	"context"

	"github.com/hitoshi/nebulastream/internal/model"
)

// AdminService は管理画面のエンドポイントを扱う。すべて管理者トークンで認証する。
type AdminService struct {
	client *Client
}

// DashboardStats は管理ダッシュボードの集計値。
type DashboardStats struct {
	TotalUsers    int `json:"totalUsers"`
	TotalVideos   int `json:"totalVideos"`
	TotalViews    int `json:"totalViews"`
	TotalComments int `json:"totalComments"`
	TotalChannels int `json:"totalChannels"`
	NewUsersToday int `json:"newUsersToday"`
}

// AdminUser は管理画面のユーザー情報。
type AdminUser struct {
	model.User
	IsBanned  bool   `json:"isBanned"`
	BanReason string `json:"banReason,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// AdminUserList はユーザー一覧のページ。
type AdminUserList struct {
	Users      []*AdminUser `json:"users"`
	Total      int          `json:"total"`
	Page       int          `json:"page"`
	TotalPages int          `json:"totalPages"`
}

// AdminCommentList はコメント一覧のページ。
type AdminCommentList struct {
	Comments   []*model.Comment `json:"comments"`
	Total      int              `json:"total"`
	Page       int              `json:"page"`
	TotalPages int              `json:"totalPages"`
}

// ChannelStats はチャンネル全体の集計値。
type ChannelStats struct {
	TotalChannels     int `json:"totalChannels"`
	ActiveChannels    int `json:"activeChannels"`
	SuspendedChannels int `json:"suspendedChannels"`
}

// CreateAdminRequest は管理者ユーザーの作成リクエスト。
type CreateAdminRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type reasonRequest struct {
	Reason string `json:"reason,omitempty"`
}

// DashboardStats はダッシュボードの集計値を返す。
func (s *AdminService) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	var stats DashboardStats
	if err := s.client.get(ctx, "/admin/dashboard/stats", authAdmin, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Analytics は期間（例: "7d"）の分析データを返す。
func (s *AdminService) Analytics(ctx context.Context, period string) (map[string]any, error) {
	if period == "" {
		period = "7d"
	}
	var data map[string]any
	if err := s.client.get(ctx, withQuery("/admin/analytics", map[string]string{"period": period}), authAdmin, &data); err != nil {
		return nil, err
	}
	return data, nil
}

// Users はユーザー一覧を返す。
func (s *AdminService) Users(ctx context.Context, p Pagination) (*AdminUserList, error) {
	var list AdminUserList
	if err := s.client.get(ctx, withQuery("/admin/users", p.params()), authAdmin, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// CreateAdmin は管理者ユーザーを作成する。
func (s *AdminService) CreateAdmin(ctx context.Context, req CreateAdminRequest) (*AdminUser, error) {
	if err := s.client.validateRequest(req); err != nil {
		return nil, err
	}
	var u AdminUser
	if err := s.client.post(ctx, "/admin/users/create-admin", authAdmin, req, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ChangePassword はユーザーのパスワードを変更する。
func (s *AdminService) ChangePassword(ctx context.Context, userID, newPassword string) error {
	if len(newPassword) < 6 {
		return model.NewValidationError("newPassword: failed on 'min'")
	}
	body := map[string]string{"newPassword": newPassword}
	return s.client.put(ctx, "/admin/users/"+escape(userID)+"/change-password", authAdmin, body, nil)
}

// UserDetails はユーザーの詳細を返す。
func (s *AdminService) UserDetails(ctx context.Context, userID string) (*AdminUser, error) {
	var u AdminUser
	if err := s.client.get(ctx, "/admin/users/"+escape(userID), authAdmin, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// BanUser はユーザーを利用停止にする。
func (s *AdminService) BanUser(ctx context.Context, userID, reason string) error {
	return s.client.put(ctx, "/admin/users/"+escape(userID)+"/ban", authAdmin, reasonRequest{Reason: reason}, nil)
}

// UnbanUser はユーザーの利用停止を解除する。
func (s *AdminService) UnbanUser(ctx context.Context, userID string) error {
	return s.client.put(ctx, "/admin/users/"+escape(userID)+"/unban", authAdmin, nil, nil)
}

// UpdateRole はユーザーのロールを変更する。
func (s *AdminService) UpdateRole(ctx context.Context, userID string, role model.Role) error {
	if role != model.RoleUser && role != model.RoleAdmin {
		return model.NewValidationError("role: failed on 'oneof'")
	}
	body := map[string]model.Role{"role": role}
	return s.client.put(ctx, "/admin/users/"+escape(userID)+"/role", authAdmin, body, nil)
}

// DeleteUser はユーザーを削除する。
func (s *AdminService) DeleteUser(ctx context.Context, userID string) error {
	return s.client.delete(ctx, "/admin/users/"+escape(userID), authAdmin, nil)
}

// Videos は動画一覧を返す。statusが空の場合はすべて。
func (s *AdminService) Videos(ctx context.Context, p Pagination, status string) (*VideoList, error) {
	params := p.params()
	params["status"] = status
	var list VideoList
	if err := s.client.get(ctx, withQuery("/admin/videos", params), authAdmin, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// FeatureVideo は動画のおすすめ表示を切り替える。
func (s *AdminService) FeatureVideo(ctx context.Context, videoID string) error {
	return s.client.put(ctx, "/admin/videos/"+escape(videoID)+"/feature", authAdmin, nil, nil)
}

// SuspendVideo は動画を公開停止にする。
func (s *AdminService) SuspendVideo(ctx context.Context, videoID, reason string) error {
	return s.client.put(ctx, "/admin/videos/"+escape(videoID)+"/suspend", authAdmin, reasonRequest{Reason: reason}, nil)
}

// UnsuspendVideo は動画の公開停止を解除する。
func (s *AdminService) UnsuspendVideo(ctx context.Context, videoID string) error {
	return s.client.put(ctx, "/admin/videos/"+escape(videoID)+"/unsuspend", authAdmin, nil, nil)
}

// DeleteVideo は動画を削除する。
func (s *AdminService) DeleteVideo(ctx context.Context, videoID string) error {
	return s.client.delete(ctx, "/admin/videos/"+escape(videoID), authAdmin, nil)
}

// Comments はコメント一覧を返す。
func (s *AdminService) Comments(ctx context.Context, p Pagination) (*AdminCommentList, error) {
	p.Search = ""
	var list AdminCommentList
	if err := s.client.get(ctx, withQuery("/admin/comments", p.params()), authAdmin, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// DeleteComment はコメントを削除する。
func (s *AdminService) DeleteComment(ctx context.Context, commentID string) error {
	return s.client.delete(ctx, "/admin/comments/"+escape(commentID), authAdmin, nil)
}

// Channels はチャンネル一覧を返す。
func (s *AdminService) Channels(ctx context.Context, p Pagination) (*ChannelList, error) {
	var list ChannelList
	if err := s.client.get(ctx, withQuery("/admin/channels", p.params()), authAdmin, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// ChannelStats はチャンネル全体の集計値を返す。
func (s *AdminService) ChannelStats(ctx context.Context) (*ChannelStats, error) {
	var stats ChannelStats
	if err := s.client.get(ctx, "/admin/channels/stats", authAdmin, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// UserChannels はユーザーが所有するチャンネルを返す。
func (s *AdminService) UserChannels(ctx context.Context, userID string) ([]*model.Channel, error) {
	var channels []*model.Channel
	if err := s.client.get(ctx, "/admin/channels/user/"+escape(userID), authAdmin, &channels); err != nil {
		return nil, err
	}
	return channels, nil
}

// UserChannelCount はユーザーが所有するチャンネル数を返す。
func (s *AdminService) UserChannelCount(ctx context.Context, userID string) (int, error) {
	var resp countResponse
	if err := s.client.get(ctx, "/admin/channels/user/"+escape(userID)+"/count", authAdmin, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// ChannelDetails はチャンネルの詳細を返す。
func (s *AdminService) ChannelDetails(ctx context.Context, channelID string) (*model.Channel, error) {
	var ch model.Channel
	if err := s.client.get(ctx, "/admin/channels/"+escape(channelID), authAdmin, &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

// SuspendChannel はチャンネルを停止する。
func (s *AdminService) SuspendChannel(ctx context.Context, channelID, reason string) error {
	return s.client.post(ctx, "/admin/channels/"+escape(channelID)+"/suspend", authAdmin, reasonRequest{Reason: reason}, nil)
}

// UnsuspendChannel はチャンネルの停止を解除する。
func (s *AdminService) UnsuspendChannel(ctx context.Context, channelID string) error {
	return s.client.post(ctx, "/admin/channels/"+escape(channelID)+"/unsuspend", authAdmin, nil, nil)
}

// DeleteChannel はチャンネルを削除する。
func (s *AdminService) DeleteChannel(ctx context.Context, channelID string) error {
	return s.client.delete(ctx, "/admin/channels/"+escape(channelID), authAdmin, nil)
}
