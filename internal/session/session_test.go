package session

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/comanda/painel/internal/model"
	"github.com/golang-jwt/jwt/v5"
)

// --- ヘルパー ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))
}

func signToken(t *testing.T, role string, exp time.Time) string {
	t.Helper()
	claims := Claims{Role: role}
	if !exp.IsZero() {
		claims.ExpiresAt = jwt.NewNumericDate(exp)
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("backend-secret"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

type failingStore struct {
	*MemoryStore
	saveErr error
}

func (f *failingStore) Save(ctx context.Context, s *model.Session) error {
	return f.saveErr
}

var fixedNow = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

func newTestManager(store Store) *Manager {
	m := NewManager(store, ManagerConfig{MaxAge: time.Hour}, newTestLogger())
	m.now = func() time.Time { return fixedNow }
	return m
}

// --- テスト ---

func TestDecodeToken_ReturnsRoleAndExpiry(t *testing.T) {
	exp := fixedNow.Add(2 * time.Hour)
	role, expiresAt, err := DecodeToken(signToken(t, "admin", exp))
	if err != nil {
		t.Fatalf("DecodeToken error: %v", err)
	}
	if role != model.RoleAdmin {
		t.Errorf("role = %q, want admin", role)
	}
	if !expiresAt.Equal(exp) {
		t.Errorf("expiresAt = %v, want %v", expiresAt, exp)
	}
}

func TestDecodeToken_NotAJWT_ReturnsError(t *testing.T) {
	if _, _, err := DecodeToken("opaque-token"); err == nil {
		t.Error("expected error for non-JWT token")
	}
}

func TestManager_Start_IsUnauthenticated(t *testing.T) {
	s := newTestManager(NewMemoryStore()).Start()

	if s.ID() == "" {
		t.Error("session ID must not be empty")
	}
	if s.State() != StateUnauthenticated {
		t.Errorf("State() = %v, want unauthenticated", s.State())
	}

	_, err := s.Token()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Kind != model.KindUnauthorized {
		t.Errorf("Token() error = %v, want unauthorized", err)
	}
}

func TestSession_SetToken_PersistsAndReturnsRole(t *testing.T) {
	store := NewMemoryStore()
	m := newTestManager(store)
	s := m.Start()
	token := signToken(t, "admin", fixedNow.Add(2*time.Hour))

	role, err := s.SetToken(context.Background(), token)
	if err != nil {
		t.Fatalf("SetToken error: %v", err)
	}
	if role != model.RoleAdmin {
		t.Errorf("role = %q, want admin", role)
	}
	if s.State() != StateAuthenticated {
		t.Errorf("State() = %v, want authenticated", s.State())
	}

	got, err := s.Token()
	if err != nil || got != token {
		t.Errorf("Token() = %q, %v, want stored token", got, err)
	}

	rec, _ := store.FindByID(context.Background(), s.ID())
	if rec == nil || rec.Token != token || rec.Role != model.RoleAdmin {
		t.Errorf("stored record = %+v, want token and admin role", rec)
	}
}

func TestSession_SetToken_IsDeterministic(t *testing.T) {
	m := newTestManager(NewMemoryStore())
	token := signToken(t, "garcom", fixedNow.Add(time.Hour))

	r1, _ := m.Start().SetToken(context.Background(), token)
	r2, _ := m.Start().SetToken(context.Background(), token)
	if r1 != r2 || r1 != "garcom" {
		t.Errorf("roles = %q, %q, want garcom twice", r1, r2)
	}
}

func TestSession_SetToken_OpaqueTokenUsesMaxAge(t *testing.T) {
	m := newTestManager(NewMemoryStore())
	s := m.Start()

	role, err := s.SetToken(context.Background(), "opaque-token")
	if err != nil {
		t.Fatalf("SetToken error: %v", err)
	}
	if role.IsAdmin() {
		t.Error("opaque token must not yield admin role")
	}
	if want := fixedNow.Add(time.Hour); !s.ExpiresAt().Equal(want) {
		t.Errorf("ExpiresAt() = %v, want %v", s.ExpiresAt(), want)
	}
}

func TestSession_SetToken_StoreFailure_LeavesStateUnchanged(t *testing.T) {
	store := &failingStore{MemoryStore: NewMemoryStore(), saveErr: errors.New("db down")}
	s := newTestManager(store).Start()

	if _, err := s.SetToken(context.Background(), signToken(t, "admin", time.Time{})); err == nil {
		t.Fatal("expected error from SetToken")
	}
	if s.State() != StateUnauthenticated {
		t.Errorf("State() = %v, want unauthenticated", s.State())
	}
}

func TestSession_SetToken_EmptyToken_ReturnsError(t *testing.T) {
	s := newTestManager(NewMemoryStore()).Start()
	if _, err := s.SetToken(context.Background(), ""); err == nil {
		t.Error("expected error for empty token")
	}
}

func TestSession_ExpiredToken(t *testing.T) {
	m := newTestManager(NewMemoryStore())
	s := m.Start()
	if _, err := s.SetToken(context.Background(), signToken(t, "admin", fixedNow.Add(time.Minute))); err != nil {
		t.Fatalf("SetToken error: %v", err)
	}

	m.now = func() time.Time { return fixedNow.Add(time.Minute) }

	if s.State() != StateExpired {
		t.Errorf("State() = %v, want expired", s.State())
	}
	if _, err := s.Token(); err == nil {
		t.Error("Token() on expired session must fail")
	}
}

func TestSession_SetToken_AlreadyExpiredToken_Rejected(t *testing.T) {
	store := NewMemoryStore()
	s := newTestManager(store).Start()
	id := s.ID()

	_, err := s.SetToken(context.Background(), signToken(t, "admin", fixedNow.Add(-time.Minute)))

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Kind != model.KindUnauthorized {
		t.Fatalf("SetToken error = %v, want unauthorized", err)
	}
	if s.State() != StateUnauthenticated {
		t.Errorf("State() = %v, want unauthenticated", s.State())
	}
	if s.ID() != id {
		t.Error("拒否時はセッションIDを変更しないこと")
	}
	if n, _ := store.DeleteExpired(context.Background(), fixedNow.Add(24*time.Hour)); n != 0 {
		t.Errorf("期限切れトークンを保存してはならない: %d件", n)
	}
}

func TestSession_SetToken_RotatesID(t *testing.T) {
	store := NewMemoryStore()
	m := newTestManager(store)

	// 既存の認証済みセッションでもう一度ログインする
	s := m.Start()
	if _, err := s.SetToken(context.Background(), signToken(t, "admin", fixedNow.Add(time.Hour))); err != nil {
		t.Fatalf("SetToken error: %v", err)
	}
	before := s.ID()

	if _, err := s.SetToken(context.Background(), signToken(t, "waiter", fixedNow.Add(time.Hour))); err != nil {
		t.Fatalf("SetToken error: %v", err)
	}

	if s.ID() == before {
		t.Fatalf("ログイン後のIDはログイン前と異なること: %q", s.ID())
	}
	if rec, _ := store.FindByID(context.Background(), before); rec != nil {
		t.Error("ログイン前のセッションはストアから削除されること")
	}
	rec, _ := store.FindByID(context.Background(), s.ID())
	if rec == nil || rec.Role != model.Role("waiter") {
		t.Errorf("新しいIDで保存されること: %+v", rec)
	}
}

func TestManager_Load(t *testing.T) {
	store := NewMemoryStore()
	m := newTestManager(store)
	s := m.Start()
	token := signToken(t, "admin", fixedNow.Add(time.Hour))
	if _, err := s.SetToken(context.Background(), token); err != nil {
		t.Fatalf("SetToken error: %v", err)
	}

	loaded, err := m.Load(context.Background(), s.ID())
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if loaded.ID() != s.ID() || loaded.Role() != model.RoleAdmin || loaded.State() != StateAuthenticated {
		t.Errorf("loaded session = id %q role %q state %v", loaded.ID(), loaded.Role(), loaded.State())
	}

	unknown, err := m.Load(context.Background(), "unknown")
	if err != nil {
		t.Fatalf("Load(unknown) error: %v", err)
	}
	if unknown.ID() == "unknown" || unknown.State() != StateUnauthenticated {
		t.Errorf("unknown session must be a fresh unauthenticated session, got id %q", unknown.ID())
	}
}

func TestSession_Clear(t *testing.T) {
	store := NewMemoryStore()
	m := newTestManager(store)
	s := m.Start()
	s.SetToken(context.Background(), signToken(t, "admin", fixedNow.Add(time.Hour)))

	if err := s.Clear(context.Background()); err != nil {
		t.Fatalf("Clear error: %v", err)
	}
	if s.State() != StateUnauthenticated {
		t.Errorf("State() = %v, want unauthenticated", s.State())
	}
	if rec, _ := store.FindByID(context.Background(), s.ID()); rec != nil {
		t.Error("session must be deleted from store")
	}
}

func TestManager_Sweep_DeletesExpired(t *testing.T) {
	store := NewMemoryStore()
	m := newTestManager(store)

	live := m.Start()
	live.SetToken(context.Background(), signToken(t, "admin", fixedNow.Add(time.Hour)))
	store.Save(context.Background(), &model.Session{
		ID:        "dead",
		Token:     "old-token",
		ExpiresAt: fixedNow.Add(-time.Hour),
		CreatedAt: fixedNow.Add(-2 * time.Hour),
	})

	n, err := m.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep error: %v", err)
	}
	if n != 1 {
		t.Errorf("Sweep deleted %d, want 1", n)
	}
	if rec, _ := store.FindByID(context.Background(), live.ID()); rec == nil {
		t.Error("live session must survive sweep")
	}
}

func TestState_String(t *testing.T) {
	if StateAuthenticated.String() != "authenticated" || StateExpired.String() != "expired" || StateUnauthenticated.String() != "unauthenticated" {
		t.Error("unexpected State.String() values")
	}
}
