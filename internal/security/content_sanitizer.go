// Package security はバックエンドから受け取ったテキストの無害化を提供する。
//
// 動画タイトル・説明文・コメント・チャンネル情報はユーザー投稿であり、
// ターミナル表示やJSON応答に埋め込む前にマークアップを除去する。
// bluemondayの許可リストベースのポリシーを使用する。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/hitoshi/nebulastream/internal/model"
)

// ContentSanitizerService はユーザー投稿テキストのサニタイズ機能のインターフェースを定義する。
type ContentSanitizerService interface {
	// Sanitize は説明文などのリッチテキストを安全なHTMLにする。
	// 許可タグ（p, br, a, strong, em, ul, ol, li）のみを通過させる。
	// aタグのhrefはhttp/httpsのみ許可し、rel="nofollow noreferrer noopener"を付与する。
	Sanitize(raw string) string
	// StripTags はすべてのタグを除去し、HTMLエンティティを復元したプレーンテキストを返す。
	// 制御文字は取り除き、改行とタブは保持する。
	StripTags(raw string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのポリシーはスレッドセーフに共有できる。
type contentSanitizer struct {
	rich   *bluemonday.Policy
	strict *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
func NewContentSanitizer() *contentSanitizer {
	rich := bluemonday.NewPolicy()
	rich.AllowElements("p", "br", "strong", "em", "ul", "ol", "li")

	// 説明文のリンク: 絶対URLのみ、外部リンクとして扱う
	rich.AllowAttrs("href").OnElements("a")
	rich.AllowURLSchemes("http", "https")
	rich.AllowRelativeURLs(false)
	rich.RequireNoFollowOnLinks(true)
	rich.RequireNoReferrerOnLinks(true)
	rich.AddTargetBlankToFullyQualifiedLinks(true)

	return &contentSanitizer{
		rich:   rich,
		strict: bluemonday.StrictPolicy(),
	}
}

// Sanitize はリッチテキストを安全なHTMLにする。
func (s *contentSanitizer) Sanitize(raw string) string {
	return s.rich.Sanitize(raw)
}

// StripTags はプレーンテキストを返す。
func (s *contentSanitizer) StripTags(raw string) string {
	if raw == "" {
		return ""
	}
	text := html.UnescapeString(s.strict.Sanitize(raw))
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, text)
}

// SanitizeVideo は動画の表示用テキストをプレーンテキスト化する。
func SanitizeVideo(s ContentSanitizerService, v *model.Video) {
	if v == nil {
		return
	}
	v.Title = s.StripTags(v.Title)
	v.Description = s.StripTags(v.Description)
	v.Category = s.StripTags(v.Category)
	for i, tag := range v.Tags {
		v.Tags[i] = s.StripTags(tag)
	}
	if v.User != nil {
		v.User.Name = s.StripTags(v.User.Name)
	}
	SanitizeChannel(s, v.Channel)
}

// SanitizeChannel はチャンネルの表示用テキストをプレーンテキスト化する。
func SanitizeChannel(s ContentSanitizerService, ch *model.Channel) {
	if ch == nil {
		return
	}
	ch.Name = s.StripTags(ch.Name)
	ch.Handle = s.StripTags(ch.Handle)
	ch.Description = s.StripTags(ch.Description)
	ch.SuspensionReason = s.StripTags(ch.SuspensionReason)
}

// SanitizeComment はコメントと返信をプレーンテキスト化する。
func SanitizeComment(s ContentSanitizerService, c *model.Comment) {
	if c == nil {
		return
	}
	c.Content = s.StripTags(c.Content)
	if c.User != nil {
		c.User.Name = s.StripTags(c.User.Name)
	}
	for _, r := range c.Replies {
		SanitizeComment(s, r)
	}
}
