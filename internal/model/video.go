package model

import "time"

// Visibility は動画・プレイリストの公開範囲を表す。
type Visibility string

const (
	VisibilityPublic   Visibility = "public"
	VisibilityUnlisted Visibility = "unlisted"
	VisibilityPrivate  Visibility = "private"
)

// VideoOwner は動画に埋め込まれる投稿者情報。
type VideoOwner struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Email            string `json:"email,omitempty"`
	Avatar           string `json:"avatar,omitempty"`
	SubscribersCount int    `json:"subscribersCount"`
}

// Video はバックエンドが管理する動画を表す。
type Video struct {
	ID            string      `json:"id"`
	Title         string      `json:"title"`
	Description   string      `json:"description,omitempty"`
	Filename      string      `json:"filename,omitempty"`
	OriginalName  string      `json:"originalName,omitempty"`
	MimeType      string      `json:"mimeType,omitempty"`
	Size          int64       `json:"size,omitempty"`
	Thumbnail     string      `json:"thumbnail,omitempty"`
	Visibility    Visibility  `json:"visibility"`
	UserID        string      `json:"userId"`
	ChannelID     string      `json:"channelId,omitempty"`
	ViewsCount    int         `json:"viewsCount"`
	LikesCount    int         `json:"likesCount"`
	DislikesCount int         `json:"dislikesCount"`
	CommentsCount int         `json:"commentsCount"`
	Tags          []string    `json:"tags,omitempty"`
	Category      string      `json:"category,omitempty"`
	Duration      float64     `json:"duration,omitempty"`
	IsShort       bool        `json:"isShort,omitempty"`
	IsFeatured    bool        `json:"isFeatured,omitempty"`
	User          *VideoOwner `json:"user,omitempty"`
	Channel       *Channel    `json:"channel,omitempty"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

// UploadResult は動画アップロードのレスポンス。
type UploadResult struct {
	Message string `json:"message"`
	Video   *Video `json:"video"`
}

// ViewRecord は視聴記録のレスポンス。
type ViewRecord struct {
	ID        string    `json:"id"`
	VideoID   string    `json:"videoId"`
	UserID    string    `json:"userId,omitempty"`
	WatchTime float64   `json:"watchTime"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
}

// HistoryItem は視聴履歴の1件を表す。
type HistoryItem struct {
	ID        string    `json:"id"`
	VideoID   string    `json:"videoId"`
	Video     *Video    `json:"video,omitempty"`
	WatchTime float64   `json:"watchTime"`
	Completed bool      `json:"completed"`
	WatchedAt time.Time `json:"watchedAt"`
}

// Download はダウンロード記録を表す。
type Download struct {
	ID        string    `json:"id"`
	VideoID   string    `json:"videoId"`
	Video     *Video    `json:"video,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// WatchLaterItem は「後で見る」リストの1件を表す。
type WatchLaterItem struct {
	ID        string    `json:"id"`
	VideoID   string    `json:"videoId"`
	Video     *Video    `json:"video,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
