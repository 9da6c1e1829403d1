package middleware

import "net/http"

// NewCORSMiddleware はブラウザUI（CORS_ALLOWED_ORIGIN、開発時は Vite の http://localhost:5173）から
// ホストAPIを呼べるようにする。CSRF用のCookieを送らせるためcredentialsを許可し、
// オリジンはワイルドカードにせず設定値だけを返す。空なら何も付与しない。
// UIがリクエストIDとレート制限の待ち時間を読めるよう、X-Request-IDとRetry-Afterを公開する。
func NewCORSMiddleware(allowedOrigin string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if allowedOrigin == "" {
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("Access-Control-Allow-Origin", allowedOrigin)
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, "+csrfHeaderName+", "+RequestIDHeader)
			h.Set("Access-Control-Expose-Headers", RequestIDHeader+", Retry-After")
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Max-Age", "600")
			h.Add("Vary", "Origin")

			// プリフライトはルーティングやCSRF検証に渡さない
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
