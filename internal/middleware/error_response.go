package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/nebulastream/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// 原因カテゴリと対処方法を含む。
type ErrorResponseBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// StatusForCode はエラーコードに対応するHTTPステータスを返す。
func StatusForCode(code string) int {
	switch code {
	case model.ErrCodeLoginRequired, model.ErrCodeAuthRejected, model.ErrCodeInvalidCredentials,
		model.ErrCodeOAuthFailed:
		return http.StatusUnauthorized
	case model.ErrCodeAccountMismatch:
		return http.StatusConflict
	case model.ErrCodeMalformedAuthData, model.ErrCodeValidation:
		return http.StatusBadRequest
	case model.ErrCodeChannelNotFound:
		return http.StatusNotFound
	case model.ErrCodeTransport:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// APIErrorConverter は下位パッケージのエラーをAPIErrorに変換できることを表す。
type APIErrorConverter interface {
	APIError() *model.APIError
}

// WriteError はerrを統一フォーマットで書き込む。
// APIErrorであればコードに応じたステータスで返し、それ以外は500として詳細をログに残す。
func WriteError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		WriteErrorResponse(w, StatusForCode(apiErr.Code), apiErr)
		return
	}
	var conv APIErrorConverter
	if errors.As(err, &conv) {
		converted := conv.APIError()
		WriteErrorResponse(w, StatusForCode(converted.Code), converted)
		return
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		WriteErrorResponse(w, http.StatusServiceUnavailable, &model.APIError{
			Code:     "REQUEST_CANCELLED",
			Message:  "Request was cancelled",
			Category: "system",
			Action:   "再度お試しください。",
		})
		return
	}

	if logger == nil {
		logger = slog.Default()
	}
	logger.Error("unhandled error", slog.String("error", err.Error()))
	WriteInternalServerError(w)
}
