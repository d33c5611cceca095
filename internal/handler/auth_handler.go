// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"encoding/json"
	"log/slog"
	"mime"
	"net/http"

	"github.com/comanda/painel/internal/auth"
	"github.com/comanda/painel/internal/metrics"
	"github.com/comanda/painel/internal/middleware"
	"github.com/comanda/painel/internal/model"
	"github.com/comanda/painel/internal/navigation"
	"github.com/comanda/painel/internal/notify"
)

// maxLoginBodySize はログインリクエストボディの最大サイズ。
const maxLoginBodySize = 16 << 10

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler はログイン・ログアウト関連のHTTPハンドラー。
// リクエストごとに通知と遷移を記録するauth.Serviceを生成する。
type AuthHandler struct {
	authenticator auth.Authenticator
	metrics       metrics.MetricsCollector
	config        AuthHandlerConfig
	logger        *slog.Logger
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(authenticator auth.Authenticator, collector metrics.MetricsCollector, config AuthHandlerConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authenticator: authenticator,
		metrics:       collector,
		config:        config,
		logger:        logger,
	}
}

// loginResponse はログイン成功時のレスポンス。
type loginResponse struct {
	Redirect string     `json:"redirect"`
	Role     model.Role `json:"role"`
}

// newService はリクエスト単位のauth.Serviceと記録用のNotifier/Navigatorを返す。
func (h *AuthHandler) newService() (*auth.Service, *notify.Recorder, *navigation.Recorder) {
	notes := notify.NewRecorder()
	nav := navigation.NewRecorder()
	notifier := notify.Multi{notes, notify.NewLogNotifier(h.logger)}
	return auth.NewService(h.authenticator, notifier, nav, h.metrics, h.logger), notes, nav
}

// Login はログインを処理する。
// POST /login（JSONまたはフォーム）
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		middleware.WriteInternalServerError(w)
		return
	}

	creds := decodeCredentials(w, r)

	svc, notes, _ := h.newService()
	route, err := svc.Login(r.Context(), sess, creds)
	if err != nil {
		middleware.WriteErrorResponse(w, err, notes.Notifications())
		return
	}

	h.setSessionCookie(w, sess.ID(), h.config.SessionMaxAge)
	middleware.WriteData(w, http.StatusOK, loginResponse{
		Redirect: route.Path(),
		Role:     sess.Role(),
	}, notes.Notifications())
}

// decodeCredentials はリクエストボディから認証情報を読み取る。
// 読み取れない場合は空の認証情報を返し、入力検証で拒否させる。
func decodeCredentials(w http.ResponseWriter, r *http.Request) model.Credentials {
	r.Body = http.MaxBytesReader(w, r.Body, maxLoginBodySize)

	var creds model.Credentials
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			return model.Credentials{}
		}
		return creds
	}

	creds.Email = r.PostFormValue("email")
	creds.Password = r.PostFormValue("password")
	return creds
}

// Logout はセッションを破棄し、ログイン画面へリダイレクトする。
// POST /logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	target := navigation.RouteLogin
	if sess, ok := middleware.SessionFromContext(r.Context()); ok {
		svc, _, nav := h.newService()
		if err := svc.Logout(r.Context(), sess); err != nil {
			// 失敗してもCookieはクリアする
			h.logger.Error("failed to logout", slog.String("error", err.Error()))
		}
		if route, ok := nav.Last(); ok {
			target = route
		}
	}

	h.setSessionCookie(w, "", -1)
	http.Redirect(w, r, target.Path(), http.StatusSeeOther)
}

// ForgotPassword はパスワード再設定画面へリダイレクトする。
// GET /forgot-password
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	svc, _, _ := h.newService()
	route := svc.ForgotPassword()
	http.Redirect(w, r, route.Path(), http.StatusSeeOther)
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    value,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
