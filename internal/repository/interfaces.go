// Package repository はデータ永続化の実装を提供する。
package repository

import (
	"github.com/comanda/painel/internal/session"
)

// SessionRepository はログインセッションの永続化インターフェース。
// session.Storeと同一であり、PostgreSQL実装はsession.Managerにそのまま渡せる。
type SessionRepository = session.Store
