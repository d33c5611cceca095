package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/comanda/painel/internal/middleware"
)

// HealthChecker は依存先の疎通確認を行う。*sql.DBが実装する。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

const healthCheckTimeout = 2 * time.Second

// NewHealthHandler はヘルスチェックのハンドラーを返す。
// checkerがnilの場合は常に正常を返す。
// GET /health
func NewHealthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			defer cancel()
			if err := checker.PingContext(ctx); err != nil {
				slog.Warn("health check failed", slog.String("error", err.Error()))
				middleware.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
