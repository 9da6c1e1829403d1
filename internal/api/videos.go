package api

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/hitoshi/nebulastream/internal/model"
)

// VideosService は動画・視聴記録・ショート動画のエンドポイントを扱う。
type VideosService struct {
	client *Client
}

// UploadFile はアップロードするファイル。Sizeが0の場合は進捗を報告しない。
type UploadFile struct {
	Reader io.Reader
	Name   string
	Size   int64
}

// UploadVideoRequest は動画アップロードのメタデータ。
type UploadVideoRequest struct {
	Title       string           `json:"title" validate:"required,max=200"`
	Description string           `json:"description" validate:"max=5000"`
	Visibility  model.Visibility `json:"visibility" validate:"omitempty,oneof=public unlisted private"`
	Tags        []string         `json:"tags"`
	Category    string           `json:"category"`
	Duration    float64          `json:"duration" validate:"gte=0"`
	IsShort     bool             `json:"isShort"`
	ChannelID   string           `json:"channelId"`
	Thumbnail   *UploadFile      `json:"-"`
}

// UpdateVideoRequest は動画の更新リクエスト。nilのフィールドは変更しない。
type UpdateVideoRequest struct {
	Title       *string           `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string           `json:"description,omitempty" validate:"omitempty,max=5000"`
	Visibility  *model.Visibility `json:"visibility,omitempty" validate:"omitempty,oneof=public unlisted private"`
	Tags        []string          `json:"tags,omitempty"`
	Category    *string           `json:"category,omitempty"`
}

// VideoList は動画一覧のページ。
type VideoList struct {
	Videos     []*model.Video `json:"videos"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	TotalPages int            `json:"totalPages"`
}

// WatchTimeRequest は視聴時間の更新リクエスト。
type WatchTimeRequest struct {
	WatchTime float64 `json:"watchTime" validate:"gte=0"`
	Completed bool    `json:"completed"`
}

// ProgressFunc はアップロード進捗（0〜100）を受け取る。
type ProgressFunc func(percent int)

// Upload は動画をmultipartでアップロードする。
// ファイルはio.Pipe経由でストリーミングされ、送信済みバイト数から進捗を通知する。
func (s *VideosService) Upload(ctx context.Context, file UploadFile, req UploadVideoRequest, progress ProgressFunc) (*model.UploadResult, error) {
	if file.Reader == nil {
		return nil, model.NewValidationError("video: file is required")
	}
	if err := s.client.validateRequest(req); err != nil {
		return nil, err
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeUploadForm(mw, file, req, progress))
	}()

	httpReq, err := s.client.newRequest(ctx, http.MethodPost, "/videos/upload", pr)
	if err != nil {
		pr.Close()
		return nil, err
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := s.client.send(s.client.uploadClient, httpReq, authRequired)
	if err != nil {
		pr.CloseWithError(err)
		return nil, err
	}
	defer resp.Body.Close()

	var result model.UploadResult
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}
	if progress != nil {
		progress(100)
	}

	s.client.logger.Info("video uploaded",
		slog.String("title", req.Title),
		slog.String("channel_id", req.ChannelID),
	)
	return &result, nil
}

// writeUploadForm はmultipartフォームを書き出す。
func writeUploadForm(mw *multipart.Writer, file UploadFile, req UploadVideoRequest, progress ProgressFunc) error {
	part, err := mw.CreateFormFile("video", file.Name)
	if err != nil {
		return fmt.Errorf("failed to create video part: %w", err)
	}
	src := file.Reader
	if progress != nil && file.Size > 0 {
		src = &progressReader{r: file.Reader, total: file.Size, report: progress, last: -1}
	}
	if _, err := io.Copy(part, src); err != nil {
		return fmt.Errorf("failed to write video part: %w", err)
	}

	fields := []struct{ name, value string }{
		{"title", req.Title},
		{"description", req.Description},
		{"visibility", string(req.Visibility)},
		{"category", req.Category},
		{"channelId", req.ChannelID},
	}
	if len(req.Tags) > 0 {
		fields = append(fields, struct{ name, value string }{"tags", strings.Join(req.Tags, ",")})
	}
	if req.Duration > 0 {
		fields = append(fields, struct{ name, value string }{"duration", strconv.FormatFloat(req.Duration, 'f', -1, 64)})
	}
	if req.IsShort {
		fields = append(fields, struct{ name, value string }{"isShort", "true"})
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if err := mw.WriteField(f.name, f.value); err != nil {
			return fmt.Errorf("failed to write field %s: %w", f.name, err)
		}
	}

	if req.Thumbnail != nil && req.Thumbnail.Reader != nil {
		tp, err := mw.CreateFormFile("thumbnail", req.Thumbnail.Name)
		if err != nil {
			return fmt.Errorf("failed to create thumbnail part: %w", err)
		}
		if _, err := io.Copy(tp, req.Thumbnail.Reader); err != nil {
			return fmt.Errorf("failed to write thumbnail part: %w", err)
		}
	}

	return mw.Close()
}

// progressReader は読み取り済みバイト数を百分率で通知する。
// 100%はレスポンス受信後に通知するため、ここでは99%を上限とする。
type progressReader struct {
	r      io.Reader
	total  int64
	read   int64
	last   int
	report ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	pct := int(p.read * 100 / p.total)
	if pct > 99 {
		pct = 99
	}
	if pct != p.last {
		p.last = pct
		p.report(pct)
	}
	return n, err
}

// All は公開動画の一覧を返す。
func (s *VideosService) All(ctx context.Context, p Pagination) (*VideoList, error) {
	var list VideoList
	if err := s.client.get(ctx, withQuery("/videos", p.params()), authNone, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// Mine はログインユーザーの動画を返す。
func (s *VideosService) Mine(ctx context.Context) ([]*model.Video, error) {
	var videos []*model.Video
	if err := s.client.get(ctx, "/videos/my-videos", authRequired, &videos); err != nil {
		return nil, err
	}
	return videos, nil
}

// Get は動画の詳細を返す。非公開動画の閲覧のため保存済みトークンがあれば付与する。
func (s *VideosService) Get(ctx context.Context, id string) (*model.Video, error) {
	var v model.Video
	if err := s.client.get(ctx, "/videos/"+escape(id), authOptional, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Update は動画を更新する。
func (s *VideosService) Update(ctx context.Context, id string, req UpdateVideoRequest) (*model.Video, error) {
	if err := s.client.validateRequest(req); err != nil {
		return nil, err
	}
	var v model.Video
	if err := s.client.patch(ctx, "/videos/"+escape(id), authRequired, req, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Delete は動画を削除する。
func (s *VideosService) Delete(ctx context.Context, id string) error {
	return s.client.delete(ctx, "/videos/"+escape(id), authRequired, nil)
}

// StreamURL は動画ストリームのURLを返す。
func (s *VideosService) StreamURL(id string) string {
	return s.client.baseURL + "/videos/" + escape(id) + "/stream"
}

// ThumbnailURL はサムネイル画像のURLを返す。
func (s *VideosService) ThumbnailURL(id string) string {
	return s.client.baseURL + "/videos/" + escape(id) + "/thumbnail"
}

// Search はキーワードで動画を検索する。
func (s *VideosService) Search(ctx context.Context, query string) ([]*model.Video, error) {
	var videos []*model.Video
	if err := s.client.get(ctx, withQuery("/videos/search", map[string]string{"q": query}), authNone, &videos); err != nil {
		return nil, err
	}
	return videos, nil
}

// Trending は急上昇の動画を返す。
func (s *VideosService) Trending(ctx context.Context) ([]*model.Video, error) {
	var videos []*model.Video
	if err := s.client.get(ctx, "/videos/trending", authNone, &videos); err != nil {
		return nil, err
	}
	return videos, nil
}

// ByCategory はカテゴリの動画を返す。
func (s *VideosService) ByCategory(ctx context.Context, category string) ([]*model.Video, error) {
	var videos []*model.Video
	if err := s.client.get(ctx, "/videos/category/"+escape(category), authNone, &videos); err != nil {
		return nil, err
	}
	return videos, nil
}

// RecordView は視聴を記録する。未ログインの場合はリクエストせずnilを返す。
func (s *VideosService) RecordView(ctx context.Context, videoID string) (*model.ViewRecord, error) {
	var view model.ViewRecord
	err := s.client.post(ctx, "/views/record/"+escape(videoID), authRequired, nil, &view)
	if err != nil {
		if isLoginRequired(err) {
			s.client.logger.Warn("view not recorded: not logged in", slog.String("video_id", videoID))
			return nil, nil
		}
		return nil, err
	}
	return &view, nil
}

// UpdateWatchTime は視聴時間を更新する。失敗はログに残すだけで呼び出し元には返さない。
func (s *VideosService) UpdateWatchTime(ctx context.Context, viewID string, req WatchTimeRequest) {
	if err := s.client.validateRequest(req); err != nil {
		s.client.logger.Warn("watch time not updated", slog.String("error", err.Error()))
		return
	}
	if err := s.client.patch(ctx, "/views/"+escape(viewID)+"/watch-time", authNone, req, nil); err != nil {
		s.client.logger.Warn("watch time not updated",
			slog.String("view_id", viewID),
			slog.String("error", err.Error()),
		)
	}
}

// Shorts はショート動画の一覧を返す。
func (s *VideosService) Shorts(ctx context.Context) ([]*model.Video, error) {
	var videos []*model.Video
	if err := s.client.get(ctx, "/videos/shorts", authOptional, &videos); err != nil {
		return nil, err
	}
	return videos, nil
}

// TrendingShorts は急上昇のショート動画を返す。
func (s *VideosService) TrendingShorts(ctx context.Context) ([]*model.Video, error) {
	var videos []*model.Video
	if err := s.client.get(ctx, "/videos/shorts/trending", authNone, &videos); err != nil {
		return nil, err
	}
	return videos, nil
}

// MarkAsShort は動画をショート動画に設定する。
func (s *VideosService) MarkAsShort(ctx context.Context, id string) (*model.Video, error) {
	var v model.Video
	if err := s.client.patch(ctx, "/videos/"+escape(id)+"/mark-as-short", authRequired, nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}
