package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/comanda/painel/internal/model"
	"github.com/google/uuid"
)

// State はセッションのライフサイクル上の状態を表す。
type State int

const (
	// StateUnauthenticated はトークン未設定の状態。
	StateUnauthenticated State = iota
	// StateAuthenticated はトークンとロールが設定済みで有効期限内の状態。
	StateAuthenticated
	// StateExpired はトークンの有効期限が切れた状態。
	StateExpired
)

// String は状態名を返す。
func (s State) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateExpired:
		return "expired"
	default:
		return "unauthenticated"
	}
}

// ManagerConfig はセッションマネージャーの設定。
type ManagerConfig struct {
	MaxAge time.Duration // トークンにexpがない場合の有効期間
}

// Manager はセッションの生成と読み込みを行う。
type Manager struct {
	store  Store
	config ManagerConfig
	logger *slog.Logger
	now    func() time.Time // テスト用に差し替え可能
}

// NewManager はManagerを生成する。
func NewManager(store Store, config ManagerConfig, logger *slog.Logger) *Manager {
	return &Manager{
		store:  store,
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

// Start は新しい未認証セッションを生成する。永続化はSetTokenまで行わない。
func (m *Manager) Start() *Session {
	return &Session{
		id:      uuid.New().String(),
		manager: m,
	}
}

// Load は指定IDのセッションをストアから読み込む。
// 見つからない場合は新しい未認証セッションを返す。
func (m *Manager) Load(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return m.Start(), nil
	}

	rec, err := m.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if rec == nil {
		return m.Start(), nil
	}

	return &Session{
		id:        rec.ID,
		token:     rec.Token,
		role:      rec.Role,
		expiresAt: rec.ExpiresAt,
		createdAt: rec.CreatedAt,
		manager:   m,
	}, nil
}

// Sweep は期限切れセッションをストアから削除する。
func (m *Manager) Sweep(ctx context.Context) (int64, error) {
	n, err := m.store.DeleteExpired(ctx, m.now())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return n, nil
}

// Session は1つのブラウザセッションに対応するセッションコンテキスト。
// リソースアクセス層には生成時に注入され、各リクエストでトークンを提供する。
type Session struct {
	mu        sync.RWMutex
	id        string
	token     string
	role      model.Role
	expiresAt time.Time
	createdAt time.Time
	manager   *Manager
}

// ID はセッションIDを返す。
func (s *Session) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

// SetToken はトークンを新しいセッションIDで永続化し、トークンから導出したロールを返す。
// ログイン前のIDはストアから削除し、以降は新しいIDを使う。
// 永続化に失敗した場合、セッションの状態は変更しない。
// デコードできないトークンは不透明なトークンとして一般ロールで保持する。
// expが現在時刻以前のトークンはKindUnauthorizedのエラーで拒否する。
func (s *Session) SetToken(ctx context.Context, token string) (model.Role, error) {
	if token == "" {
		return "", fmt.Errorf("token is required")
	}

	m := s.manager
	oldID := s.ID()
	role, expiresAt, err := DecodeToken(token)
	if err != nil {
		m.logger.Warn("token has no decodable claims, treating as opaque",
			slog.String("session_id", oldID),
			slog.String("error", err.Error()),
		)
		role = ""
	}

	now := m.now()
	if expiresAt.IsZero() {
		expiresAt = now.Add(m.config.MaxAge)
	} else if !now.Before(expiresAt) {
		m.logger.Warn("rejected already expired token",
			slog.String("session_id", oldID),
			slog.Time("expires_at", expiresAt),
		)
		return "", model.NewUnauthorizedError()
	}

	rec := &model.Session{
		ID:        uuid.New().String(),
		Token:     token,
		Role:      role,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}
	if err := m.store.Save(ctx, rec); err != nil {
		return "", fmt.Errorf("failed to save session: %w", err)
	}
	if err := m.store.DeleteByID(ctx, oldID); err != nil {
		m.logger.Warn("failed to delete pre-login session",
			slog.String("session_id", oldID),
			slog.String("error", err.Error()),
		)
	}

	s.mu.Lock()
	s.id = rec.ID
	s.token = token
	s.role = role
	s.expiresAt = expiresAt
	s.createdAt = now
	s.mu.Unlock()

	return role, nil
}

// Token は有効なトークンを返す。
// 未認証または期限切れの場合はKindUnauthorizedのエラーを返す。
func (s *Session) Token() (string, error) {
	if s.State() != StateAuthenticated {
		return "", model.NewUnauthorizedError()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, nil
}

// Role はトークンから導出されたロールを返す。
func (s *Session) Role() model.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.role
}

// ExpiresAt はセッションの有効期限を返す。未認証の場合はゼロ値。
func (s *Session) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

// State は現在の状態を返す。
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return StateUnauthenticated
	}
	if !s.manager.now().Before(s.expiresAt) {
		return StateExpired
	}
	return StateAuthenticated
}

// Clear はセッションをストアから削除し、未認証状態に戻す。
func (s *Session) Clear(ctx context.Context) error {
	if err := s.manager.store.DeleteByID(ctx, s.ID()); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	s.mu.Lock()
	s.token = ""
	s.role = ""
	s.expiresAt = time.Time{}
	s.mu.Unlock()

	return nil
}
