package middleware

import (
	"net/http"
	"strings"
)

// NewCORSMiddleware は許可オリジンに対するCORSミドルウェアを返す。
// allowedOriginsはカンマ区切りで複数指定できる（例: 管理画面の本番URLとローカル開発URL）。
// credentials送信と共存するため、ワイルドカード(*)は使用せずリクエストのOriginを返す。
// 許可されていないOriginにはCORSヘッダーを付与しない。
func NewCORSMiddleware(allowedOrigins string) func(next http.Handler) http.Handler {
	allowed := parseOrigins(allowedOrigins)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("Vary", "Origin")

			if origin, ok := allowedOrigin(allowed, r.Header.Get("Origin")); ok {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+csrfHeaderName)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Access-Control-Max-Age", "86400")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func parseOrigins(raw string) []string {
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// allowedOrigin はリクエストのOriginが許可されていればその値を返す。
// Originヘッダーがない場合（同一オリジンや非ブラウザ）は先頭の許可オリジンを返す。
func allowedOrigin(allowed []string, origin string) (string, bool) {
	if len(allowed) == 0 {
		return "", false
	}
	if origin == "" {
		return allowed[0], true
	}
	for _, o := range allowed {
		if o == origin {
			return origin, true
		}
	}
	return "", false
}
