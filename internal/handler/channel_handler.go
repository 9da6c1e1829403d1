package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/nebulastream/internal/channel"
	"github.com/hitoshi/nebulastream/internal/middleware"
	"github.com/hitoshi/nebulastream/internal/model"
)

// ChannelServiceInterface はチャンネルハンドラーが必要とするサービスインターフェース。
type ChannelServiceInterface interface {
	Snapshot() channel.Snapshot
	SetActiveChannelByID(ctx context.Context, id string) (*model.Channel, error)
	RefreshChannels(ctx context.Context) error
}

// ChannelHandler はチャンネルコンテキストのHTTPハンドラー。
type ChannelHandler struct {
	service ChannelServiceInterface
	logger  *slog.Logger
}

// NewChannelHandler はChannelHandlerを生成する。
func NewChannelHandler(service ChannelServiceInterface, logger *slog.Logger) *ChannelHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChannelHandler{service: service, logger: logger}
}

// setActiveRequest はアクティブチャンネル変更のリクエストボディ。
// channelIdがnullまたは空の場合は選択を解除する。
type setActiveRequest struct {
	ChannelID *string `json:"channelId"`
}

// List はチャンネル一覧とアクティブチャンネルを返す。
// GET /api/channels
func (h *ChannelHandler) List(w http.ResponseWriter, r *http.Request) {
	snap := h.service.Snapshot()
	if snap.Channels == nil {
		snap.Channels = []*model.Channel{}
	}
	writeJSON(w, http.StatusOK, snap)
}

// SetActive はアクティブチャンネルを変更する。
// PUT /api/channels/active
func (h *ChannelHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	var req setActiveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		middleware.WriteError(w, h.logger, model.NewValidationError("request body must be JSON {channelId}"))
		return
	}

	id := ""
	if req.ChannelID != nil {
		id = *req.ChannelID
	}

	if _, err := h.service.SetActiveChannelByID(r.Context(), id); err != nil {
		middleware.WriteError(w, h.logger, err)
		return
	}
	h.List(w, r)
}

// Refresh はチャンネル一覧を再取得する。
// POST /api/channels/refresh
func (h *ChannelHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.service.RefreshChannels(r.Context()); err != nil {
		middleware.WriteError(w, h.logger, err)
		return
	}
	h.List(w, r)
}
