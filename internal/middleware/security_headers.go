package middleware

import "net/http"

// hstsValue はHTTPS配信時に付与するStrict-Transport-Securityの値（180日）。
const hstsValue = "max-age=15552000; includeSubDomains"

// NewSecurityHeadersMiddleware はBFFのレスポンスに共通のセキュリティヘッダーを付与するミドルウェアを返す。
// レスポンスはJSONのみのため、CSPで全リソースの読み込みとフレーム埋め込みを禁止する。
// セッションやトークンに関わる応答を残さないよう、キャッシュも無効にする。
// httpsOnlyがtrueの場合はHSTSも付与する。
func NewSecurityHeadersMiddleware(httpsOnly bool) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			h.Set("Referrer-Policy", "no-referrer")
			h.Set("Cache-Control", "no-store")
			if httpsOnly {
				h.Set("Strict-Transport-Security", hstsValue)
			}
			next.ServeHTTP(w, r)
		})
	}
}
