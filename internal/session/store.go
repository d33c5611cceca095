package session

import (
	"context"
	"sync"
	"time"

	"github.com/comanda/painel/internal/model"
)

// Store はセッションの永続化に必要なインターフェース。
type Store interface {
	// Save はセッションを保存する。同一IDが存在する場合は上書きする。
	Save(ctx context.Context, s *model.Session) error
	// FindByID は指定IDのセッションを取得する。存在しない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteExpired は有効期限がbefore以前のセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// MemoryStore はプロセス内メモリにセッションを保持するStore。
// DATABASE_URL未設定時とテストで使用する。
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]model.Session
}

// NewMemoryStore はMemoryStoreを生成する。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]model.Session)}
}

// Save はセッションを保存する。
func (m *MemoryStore) Save(ctx context.Context, s *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = *s
	return nil
}

// FindByID は指定IDのセッションを取得する。
func (m *MemoryStore) FindByID(ctx context.Context, id string) (*model.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

// DeleteByID は指定IDのセッションを削除する。
func (m *MemoryStore) DeleteByID(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// DeleteExpired は期限切れセッションを削除する。
func (m *MemoryStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, s := range m.sessions {
		if !s.ExpiresAt.After(before) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

var _ Store = (*MemoryStore)(nil)
