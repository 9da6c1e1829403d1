package model

import "time"

// CommentAuthor はコメントに埋め込まれる投稿者情報。
type CommentAuthor struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

// Comment は動画へのコメントを表す。ParentIDが空でない場合は返信。
type Comment struct {
	ID            string         `json:"id"`
	Content       string         `json:"content"`
	UserID        string         `json:"userId"`
	VideoID       string         `json:"videoId"`
	ParentID      string         `json:"parentId,omitempty"`
	LikesCount    int            `json:"likesCount"`
	DislikesCount int            `json:"dislikesCount"`
	User          *CommentAuthor `json:"user,omitempty"`
	Replies       []*Comment     `json:"replies,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// LikeType は高評価・低評価の種別。
type LikeType string

const (
	LikeTypeLike    LikeType = "like"
	LikeTypeDislike LikeType = "dislike"
)

// TargetType は評価対象の種別。
type TargetType string

const (
	TargetVideo   TargetType = "video"
	TargetComment TargetType = "comment"
)

// Like は評価1件を表す。
type Like struct {
	ID         string     `json:"id"`
	UserID     string     `json:"userId"`
	TargetID   string     `json:"targetId"`
	TargetType TargetType `json:"targetType"`
	Type       LikeType   `json:"type"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// LikeStats は対象の評価数。
type LikeStats struct {
	Likes    int `json:"likes"`
	Dislikes int `json:"dislikes"`
}

// ToggleAction は評価トグルの結果種別。
type ToggleAction string

const (
	ToggleCreated ToggleAction = "created"
	ToggleRemoved ToggleAction = "removed"
	ToggleUpdated ToggleAction = "updated"
)

// ToggleLikeResult は評価トグルのレスポンス。
type ToggleLikeResult struct {
	Action ToggleAction `json:"action"`
	Like   *Like        `json:"like,omitempty"`
}

// SubscriptionParty は購読に埋め込まれるユーザー/チャンネル情報。
type SubscriptionParty struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Email            string `json:"email,omitempty"`
	Avatar           string `json:"avatar,omitempty"`
	SubscribersCount int    `json:"subscribersCount,omitempty"`
}

// Subscription はチャンネル購読を表す。
type Subscription struct {
	ID                   string             `json:"id"`
	SubscriberID         string             `json:"subscriberId"`
	ChannelID            string             `json:"channelId"`
	NotificationsEnabled bool               `json:"notificationsEnabled"`
	Subscriber           *SubscriptionParty `json:"subscriber,omitempty"`
	Channel              *SubscriptionParty `json:"channel,omitempty"`
	CreatedAt            time.Time          `json:"createdAt"`
}

// ToggleSubscriptionResult は購読トグルのレスポンス。
type ToggleSubscriptionResult struct {
	Action       string        `json:"action"`
	Subscription *Subscription `json:"subscription,omitempty"`
}

// Playlist は再生リストを表す。
type Playlist struct {
	ID                 string           `json:"id"`
	UserID             string           `json:"userId"`
	Name               string           `json:"name"`
	Description        string           `json:"description,omitempty"`
	Visibility         Visibility       `json:"visibility"`
	IsSystemPlaylist   bool             `json:"isSystemPlaylist"`
	SystemPlaylistType string           `json:"systemPlaylistType,omitempty"`
	VideosCount        int              `json:"videosCount"`
	PlaylistVideos     []*PlaylistVideo `json:"playlistVideos,omitempty"`
	CreatedAt          time.Time        `json:"createdAt"`
	UpdatedAt          time.Time        `json:"updatedAt"`
}

// PlaylistVideo は再生リスト内の動画1件を表す。
type PlaylistVideo struct {
	ID         string    `json:"id"`
	PlaylistID string    `json:"playlistId"`
	VideoID    string    `json:"videoId"`
	Position   int       `json:"position"`
	AddedAt    time.Time `json:"addedAt"`
	Video      *Video    `json:"video,omitempty"`
}
