package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/comanda/painel/internal/metrics"
	"github.com/comanda/painel/internal/middleware"
	"github.com/comanda/painel/internal/model"
	"github.com/comanda/painel/internal/session"
)

// --- モック定義 ---

type mockAuthenticator struct {
	authenticateFn func(ctx context.Context, email, password string) (*model.AuthResponse, error)
	calls          int
}

func (m *mockAuthenticator) Authenticate(ctx context.Context, email, password string) (*model.AuthResponse, error) {
	m.calls++
	if m.authenticateFn != nil {
		return m.authenticateFn(ctx, email, password)
	}
	return nil, nil
}

func newTestAuthHandler(authn *mockAuthenticator) *AuthHandler {
	return NewAuthHandler(authn, metrics.Nop{}, AuthHandlerConfig{SessionMaxAge: 3600}, newTestLogger())
}

// withSession はセッションミドルウェアを通過した状態のリクエストを返す。
func withSession(req *http.Request, sess *session.Session) *http.Request {
	return req.WithContext(middleware.ContextWithSession(req.Context(), sess))
}

func newTestSessionManager() *session.Manager {
	return session.NewManager(session.NewMemoryStore(), session.ManagerConfig{MaxAge: time.Hour}, newTestLogger())
}

func findResponseCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// --- テスト ---

func TestAuthHandler_Login_RedirectByRole(t *testing.T) {
	tests := []struct {
		role         string
		wantRedirect string
	}{
		{"admin", "/dashboard"},
		{"garcom", "/pedidos"},
	}

	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			token := signTestToken(t, tt.role)
			h := newTestAuthHandler(&mockAuthenticator{
				authenticateFn: func(ctx context.Context, email, password string) (*model.AuthResponse, error) {
					return &model.AuthResponse{Token: token}, nil
				},
			})
			sess := newTestSessionManager().Start()

			req := httptest.NewRequest(http.MethodPost, "/login",
				strings.NewReader(`{"email":"ana@comanda.com","password":"segredo"}`))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			h.Login(w, withSession(req, sess))

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
			}
			res := decodeEnvelope(t, w)
			if !strings.Contains(string(res.Data), `"redirect":"`+tt.wantRedirect+`"`) {
				t.Errorf("data = %s, want redirect %s", res.Data, tt.wantRedirect)
			}
			if len(res.Notifications) != 1 || res.Notifications[0].Message != model.MsgLoginSuccess {
				t.Errorf("notifications = %+v, want one success", res.Notifications)
			}

			c := findResponseCookie(w, middleware.SessionCookieName)
			if c == nil || c.Value != sess.ID() {
				t.Fatalf("セッションCookie = %v, want %s", c, sess.ID())
			}
			if !c.HttpOnly {
				t.Error("セッションCookieはHttpOnlyであるべき")
			}
			if c.MaxAge != 3600 {
				t.Errorf("MaxAge = %d, want 3600", c.MaxAge)
			}
		})
	}
}

func TestAuthHandler_Login_FormEncoded(t *testing.T) {
	authn := &mockAuthenticator{
		authenticateFn: func(ctx context.Context, email, password string) (*model.AuthResponse, error) {
			if email != "ana@comanda.com" || password != "segredo" {
				t.Errorf("credentials = %q/%q", email, password)
			}
			return &model.AuthResponse{Token: "opaque"}, nil
		},
	}
	h := newTestAuthHandler(authn)

	form := url.Values{"email": {"ana@comanda.com"}, "password": {"segredo"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	h.Login(w, withSession(req, newTestSessionManager().Start()))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if authn.calls != 1 {
		t.Errorf("Authenticate呼び出し回数 = %d, want 1", authn.calls)
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	h := newTestAuthHandler(&mockAuthenticator{
		authenticateFn: func(ctx context.Context, email, password string) (*model.AuthResponse, error) {
			return nil, model.NewAuthenticationError(http.StatusUnauthorized)
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/login",
		strings.NewReader(`{"email":"ana@comanda.com","password":"errada"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.Login(w, withSession(req, newTestSessionManager().Start()))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	res := decodeEnvelope(t, w)
	if res.Error == nil || res.Error.Kind != string(model.KindAuthentication) {
		t.Errorf("error = %+v", res.Error)
	}
	if len(res.Notifications) != 1 || res.Notifications[0].Message != model.MsgInvalidCredentials {
		t.Errorf("notifications = %+v", res.Notifications)
	}
	if c := findResponseCookie(w, middleware.SessionCookieName); c != nil {
		t.Error("ログイン失敗時にセッションCookieを設定してはならない")
	}
}

func TestAuthHandler_Login_MalformedBody_IsValidationError(t *testing.T) {
	authn := &mockAuthenticator{}
	h := newTestAuthHandler(authn)

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.Login(w, withSession(req, newTestSessionManager().Start()))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if authn.calls != 0 {
		t.Error("入力不正時にバックエンドを呼び出してはならない")
	}
	res := decodeEnvelope(t, w)
	if len(res.Notifications) != 1 || res.Notifications[0].Message != model.MsgInvalidLoginForm {
		t.Errorf("notifications = %+v", res.Notifications)
	}
}

func TestAuthHandler_Login_TransportFailure_Returns502(t *testing.T) {
	h := newTestAuthHandler(&mockAuthenticator{
		authenticateFn: func(ctx context.Context, email, password string) (*model.AuthResponse, error) {
			return nil, model.NewTransportError(errors.New("connection refused"))
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/login",
		strings.NewReader(`{"email":"ana@comanda.com","password":"segredo"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.Login(w, withSession(req, newTestSessionManager().Start()))

	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", w.Code)
	}
}

func TestAuthHandler_Logout_ClearsSessionAndRedirects(t *testing.T) {
	m := newTestSessionManager()
	sess := m.Start()
	if _, err := sess.SetToken(context.Background(), "opaque"); err != nil {
		t.Fatalf("SetToken() error = %v", err)
	}
	h := newTestAuthHandler(&mockAuthenticator{})

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	w := httptest.NewRecorder()
	h.Logout(w, withSession(req, sess))

	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/login" {
		t.Errorf("Location = %q, want /login", loc)
	}
	c := findResponseCookie(w, middleware.SessionCookieName)
	if c == nil || c.MaxAge >= 0 {
		t.Errorf("セッションCookieが削除されていない: %v", c)
	}
	if sess.State() != session.StateUnauthenticated {
		t.Errorf("state = %v, want unauthenticated", sess.State())
	}

	loaded, err := m.Load(context.Background(), sess.ID())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.State() != session.StateUnauthenticated {
		t.Error("ストアからセッションが削除されていない")
	}
}

func TestAuthHandler_ForgotPassword_Redirects(t *testing.T) {
	authn := &mockAuthenticator{}
	h := newTestAuthHandler(authn)

	w := httptest.NewRecorder()
	h.ForgotPassword(w, httptest.NewRequest(http.MethodGet, "/forgot-password", nil))

	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/esqueceu-senha" {
		t.Errorf("Location = %q, want /esqueceu-senha", loc)
	}
	if authn.calls != 0 {
		t.Error("パスワード再設定への遷移でバックエンドを呼び出してはならない")
	}
}
