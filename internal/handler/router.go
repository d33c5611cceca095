package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/comanda/painel/internal/apiclient"
	"github.com/comanda/painel/internal/auth"
	"github.com/comanda/painel/internal/metrics"
	"github.com/comanda/painel/internal/middleware"
	"github.com/comanda/painel/internal/notify"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionLoader     middleware.SessionLoader
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig
	Logger            *slog.Logger

	// ヘルスチェック（nilの場合は常に正常）
	HealthChecker HealthChecker

	// メトリクス
	Metrics  metrics.MetricsCollector
	Gatherer prometheus.Gatherer

	// 認証
	Authenticator auth.Authenticator
	AuthConfig    AuthHandlerConfig

	// 商品
	APIClient *apiclient.Client
	Sanitizer notify.MessageSanitizer
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → CORS → CSRF → Session → RateLimit
//
// /health と /metrics はCSRF・セッションの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewSecurityHeadersMiddleware(deps.AuthConfig.CookieSecure))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}

	authHandler := NewAuthHandler(deps.Authenticator, deps.Metrics, deps.AuthConfig, deps.Logger)
	productHandler := NewProductHandler(deps.APIClient, deps.Sanitizer, deps.Logger)

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
		r.Use(middleware.NewSessionMiddleware(deps.SessionLoader))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// 認証（未ログインでもアクセス可能）
		r.With(deps.RateLimiter.LoginMiddleware()).Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.Get("/forgot-password", authHandler.ForgotPassword)

		r.Get("/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig).ServeHTTP)

		// 商品管理（認証必須）
		r.Route("/api/products", func(r chi.Router) {
			r.Use(middleware.NewRequireSessionMiddleware())

			r.Get("/", productHandler.List)
			r.Post("/", productHandler.Create)
			r.Get("/paged", productHandler.Paged)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", productHandler.Get)
				r.Put("/", productHandler.Update)
				r.Delete("/", productHandler.Delete)
				r.Put("/update-status", productHandler.UpdateStatus)
			})
		})
	})

	return r
}
