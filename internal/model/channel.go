package model

import "time"

// Channel はユーザーが所有する動画チャンネルを表す。
// 1ユーザーが複数のチャンネルを持つことができ、そのうち1つがアクティブとして扱われる。
type Channel struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Handle           string    `json:"handle"`
	Description      string    `json:"description,omitempty"`
	Avatar           string    `json:"avatar,omitempty"`
	Banner           string    `json:"banner,omitempty"`
	UserID           string    `json:"userId"`
	SubscribersCount int       `json:"subscribersCount"`
	VideosCount      int       `json:"videosCount"`
	TotalViews       int       `json:"totalViews"`
	IsSuspended      bool      `json:"isSuspended"`
	SuspensionReason string    `json:"suspensionReason,omitempty"`
	IsActive         bool      `json:"isActive"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// FindChannel はIDに一致するチャンネルを一覧から探す。見つからない場合はnilを返す。
func FindChannel(channels []*Channel, id string) *Channel {
	for _, c := range channels {
		if c != nil && c.ID == id {
			return c
		}
	}
	return nil
}
