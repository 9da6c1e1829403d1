package api

import (
	"context"

	"github.com/hitoshi/nebulastream/internal/model"
)

// CommentsService はコメントのエンドポイントを扱う。
type CommentsService struct {
	client *Client
}

// CreateCommentRequest はコメント投稿リクエスト。ParentIDを指定すると返信になる。
type CreateCommentRequest struct {
	Content  string `json:"content" validate:"required,max=10000"`
	VideoID  string `json:"videoId" validate:"required"`
	ParentID string `json:"parentId,omitempty"`
}

type updateCommentRequest struct {
	Content string `json:"content" validate:"required,max=10000"`
}

// Create はコメントを投稿する。
func (s *CommentsService) Create(ctx context.Context, req CreateCommentRequest) (*model.Comment, error) {
	if err := s.client.validateRequest(req); err != nil {
		return nil, err
	}
	var c model.Comment
	if err := s.client.post(ctx, "/comments", authRequired, req, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// ForVideo は動画のトップレベルコメントを返す。
func (s *CommentsService) ForVideo(ctx context.Context, videoID string) ([]*model.Comment, error) {
	var comments []*model.Comment
	if err := s.client.get(ctx, "/comments/video/"+escape(videoID), authNone, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

// Replies はコメントへの返信を返す。
func (s *CommentsService) Replies(ctx context.Context, commentID string) ([]*model.Comment, error) {
	var comments []*model.Comment
	if err := s.client.get(ctx, "/comments/"+escape(commentID)+"/replies", authNone, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

// Update はコメント本文を更新する。
func (s *CommentsService) Update(ctx context.Context, commentID, content string) (*model.Comment, error) {
	req := updateCommentRequest{Content: content}
	if err := s.client.validateRequest(req); err != nil {
		return nil, err
	}
	var c model.Comment
	if err := s.client.patch(ctx, "/comments/"+escape(commentID), authRequired, req, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Delete はコメントを削除する。
func (s *CommentsService) Delete(ctx context.Context, commentID string) error {
	return s.client.delete(ctx, "/comments/"+escape(commentID), authRequired, nil)
}
