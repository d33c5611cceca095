package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/comanda/painel/internal/apiclient"
	"github.com/comanda/painel/internal/auth"
	"github.com/comanda/painel/internal/config"
	"github.com/comanda/painel/internal/database"
	"github.com/comanda/painel/internal/handler"
	"github.com/comanda/painel/internal/logger"
	"github.com/comanda/painel/internal/metrics"
	"github.com/comanda/painel/internal/middleware"
	"github.com/comanda/painel/internal/repository"
	"github.com/comanda/painel/internal/security"
	"github.com/comanda/painel/internal/session"
	"github.com/comanda/painel/internal/worker/cleanup"
)

const (
	shutdownTimeout = 30 * time.Second
	dbPingTimeout   = 5 * time.Second
)

// errDatabaseRequired はDATABASE_URLが必須のコマンドで未設定の場合のエラー。
var errDatabaseRequired = errors.New("DATABASE_URL is required for this command")

// Init はアプリケーションの初期化を行う。
// .envを読み込み、JSON構造化ログをセットアップしてから環境変数のConfigを読み込む。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}

	// 設定読み込み前にログを使えるようにする
	logger.SetupDefault(w)

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.SetLevel(cfg.LogLevel)
	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("api_url", cfg.APIURL),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case CommandWorker:
		return runWorker(ctx, cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(ctx, cfg)
	}
}

// openDatabase はDB接続を開き、疎通を確認する。
func openDatabase(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := database.Open(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := database.Ping(ctx, db, dbPingTimeout); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")
	return db, nil
}

// NewServer は設定から全依存関係をワイヤリングしたHTTPサーバーを生成する。
// storeにはセッションの保存先を渡す。healthがnilの場合、/healthは常に正常を返す。
// 戻り値のcleanupはサーバー停止後に呼び出す。
func NewServer(cfg *config.Config, store session.Store, health handler.HealthChecker) (*http.Server, *session.Manager, func()) {
	log := slog.Default()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg)

	apiClient := apiclient.NewClient(cfg.APIURL, &http.Client{Timeout: cfg.APITimeout}, log, collector)

	manager := session.NewManager(store, session.ManagerConfig{
		MaxAge: time.Duration(cfg.SessionMaxAge) * time.Second,
	}, log)

	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitLogin),
	)

	router := handler.NewRouter(&handler.RouterDeps{
		SessionLoader:     manager,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		Logger:        log,
		HealthChecker: health,
		Metrics:       collector,
		Gatherer:      reg,
		Authenticator: auth.NewClient(apiClient),
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},
		APIClient: apiClient,
		Sanitizer: security.NewMessageSanitizer(),
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.APITimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server, manager, rateLimiter.Stop
}

// runServe はBFFサーバーモードで起動する。
// DATABASE_URLが設定されている場合はセッションをPostgreSQLに保存し、
// それ以外はメモリに保持する。ctxがキャンセルされるとグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	var (
		store  session.Store = session.NewMemoryStore()
		health handler.HealthChecker
	)

	if cfg.UsesDatabase() {
		db, err := openDatabase(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()

		store = repository.NewPostgresSessionRepo(db)
		health = db
	} else {
		slog.Warn("DATABASE_URL is not set, sessions are kept in memory")
	}

	server, manager, stopServer := NewServer(cfg, store, health)
	defer stopServer()

	// 期限切れセッションの掃除をバックグラウンドで実行
	job := cleanup.NewCleanupJob(manager, slog.Default())
	job.Interval = cfg.SessionCleanupInterval
	jobCtx, cancelJob := context.WithCancel(ctx)
	defer cancelJob()
	go job.Start(jobCtx)

	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", server.Addr, err)
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("BFF server starting", slog.String("addr", ln.Addr().String()))
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
	case <-ctx.Done():
	}

	slog.Info("shutting down BFF server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("BFF server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// 期限切れセッションの削除をSESSION_CLEANUP_INTERVALごとに実行する。
// メモリストアはプロセス間で共有できないため、DATABASE_URLを必須とする。
func runWorker(ctx context.Context, cfg *config.Config) error {
	if !cfg.UsesDatabase() {
		return errDatabaseRequired
	}

	db, err := openDatabase(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	manager := session.NewManager(repository.NewPostgresSessionRepo(db), session.ManagerConfig{
		MaxAge: time.Duration(cfg.SessionMaxAge) * time.Second,
	}, slog.Default())

	job := cleanup.NewCleanupJob(manager, slog.Default())
	job.Interval = cfg.SessionCleanupInterval

	slog.Info("worker starting", slog.Duration("interval", job.Interval))

	// ブロッキング
	job.Start(ctx)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用し、適用後のバージョンを記録する。
func runMigrate(cfg *config.Config) error {
	if !cfg.UsesDatabase() {
		return errDatabaseRequired
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	version, dirty, err := database.CurrentVersion(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to read migration version: %w", err)
	}

	slog.Info("database migrations completed successfully",
		slog.Uint64("version", uint64(version)),
		slog.Bool("dirty", dirty),
	)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
