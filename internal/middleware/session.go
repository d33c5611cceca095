// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/comanda/painel/internal/model"
	"github.com/comanda/painel/internal/session"
)

// SessionCookieName はセッションIDを保持するCookieの名前。
const SessionCookieName = "painel_session"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// sessionContextKey はリクエストコンテキストにセッションを格納するためのキー。
var sessionContextKey = contextKey("session")

// SessionLoader はセッションの読み込みに必要なインターフェース。
// session.Managerが実装する。
type SessionLoader interface {
	Load(ctx context.Context, id string) (*session.Session, error)
}

// NewSessionMiddleware はCookieのセッションIDからセッションを読み込み、
// リクエストコンテキストに注入するミドルウェアを返す。
// Cookieがない、または未知のIDの場合は未認証の新しいセッションを注入する。
func NewSessionMiddleware(loader SessionLoader) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var id string
			if cookie, err := r.Cookie(SessionCookieName); err == nil {
				id = cookie.Value
			}

			sess, err := loader.Load(r.Context(), id)
			if err != nil {
				slog.Error("failed to load session",
					slog.String("error", err.Error()),
				)
				WriteInternalServerError(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithSession(r.Context(), sess)))
		})
	}
}

// NewRequireSessionMiddleware は認証済みセッションを必須とするミドルウェアを返す。
// NewSessionMiddlewareの後に配置する。
// 未認証・期限切れの場合は401とセッション期限切れ通知を返す。
func NewRequireSessionMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := SessionFromContext(r.Context())
			if !ok || sess.State() != session.StateAuthenticated {
				writeErrorNotice(w, http.StatusUnauthorized, string(model.KindUnauthorized), model.MsgSessionExpired)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SessionFromContext はリクエストコンテキストからセッションを取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func SessionFromContext(ctx context.Context) (*session.Session, bool) {
	sess, ok := ctx.Value(sessionContextKey).(*session.Session)
	return sess, ok && sess != nil
}

// ContextWithSession はコンテキストにセッションを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithSession(ctx context.Context, sess *session.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, sess)
}
