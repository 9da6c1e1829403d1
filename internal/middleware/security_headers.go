package middleware

import "net/http"

// hostContentSecurityPolicy はホストサーバーのCSP。
// ホストはJSONとリダイレクトしか返さないため、あらゆるリソース読み込みとフレーム埋め込みを禁止する。
const hostContentSecurityPolicy = "default-src 'none'; frame-ancestors 'none'"

// NewSecurityHeadersMiddleware はホストサーバーの応答にセキュリティヘッダーを付与する。
// /api/session はトークンを含む状態を返すので、ブラウザにもプロキシにも保存させない。
func NewSecurityHeadersMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Content-Security-Policy", hostContentSecurityPolicy)
			// OAuthコールバックのURLにはトークンが載るため、遷移先にリファラとして渡さない
			h.Set("Referrer-Policy", "no-referrer")
			h.Set("Cache-Control", "no-store")
			next.ServeHTTP(w, r)
		})
	}
}
