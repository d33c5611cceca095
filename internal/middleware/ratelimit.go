package middleware

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/comanda/painel/internal/model"
	"github.com/comanda/painel/internal/session"
	"golang.org/x/time/rate"
)

// RateLimiterConfig はレート制限の設定を保持する。
type RateLimiterConfig struct {
	GeneralRate     rate.Limit    // API全般のレート（req/sec）
	GeneralBurst    int           // API全般のバーストサイズ
	LoginRate       rate.Limit    // ログイン試行のレート（req/sec）
	LoginBurst      int           // ログイン試行のバーストサイズ
	CleanupInterval time.Duration // 期限切れエントリのクリーンアップ間隔
}

// DefaultRateLimiterConfig はデフォルトのレート制限設定を返す。
// API全般 120 req/min/session、ログイン 10 req/min/IP。
func DefaultRateLimiterConfig() RateLimiterConfig {
	return NewRateLimiterConfig(120, 10)
}

// NewRateLimiterConfig は1分あたりのリクエスト数からRateLimiterConfigを生成する。
func NewRateLimiterConfig(generalPerMin, loginPerMin int) RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     rate.Limit(float64(generalPerMin) / 60.0),
		GeneralBurst:    generalPerMin,
		LoginRate:       rate.Limit(float64(loginPerMin) / 60.0),
		LoginBurst:      loginPerMin,
		CleanupInterval: 5 * time.Minute,
	}
}

// keyLimiter はキーごとのレートリミッターとアクセス時刻を保持する。
type keyLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// limiterGroup は同じレート設定を共有するキー別リミッターの集合。
type limiterGroup struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*keyLimiter
}

func newLimiterGroup(limit rate.Limit, burst int) *limiterGroup {
	return &limiterGroup{
		limit:    limit,
		burst:    burst,
		limiters: make(map[string]*keyLimiter),
	}
}

// allow はキーのリミッターを取得または作成し、1トークン消費できるかを返す。
func (g *limiterGroup) allow(key string) bool {
	g.mu.Lock()
	kl, exists := g.limiters[key]
	if !exists {
		kl = &keyLimiter{limiter: rate.NewLimiter(g.limit, g.burst)}
		g.limiters[key] = kl
	}
	kl.lastAccess = time.Now()
	g.mu.Unlock()

	return kl.limiter.Allow()
}

func (g *limiterGroup) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.limiters)
}

// evict は最終アクセスがttlより古いエントリを削除する。
func (g *limiterGroup) evict(now time.Time, ttl time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for key, kl := range g.limiters {
		if now.Sub(kl.lastAccess) > ttl {
			delete(g.limiters, key)
		}
	}
}

// RateLimiter はセッション単位およびクライアントIP単位のレート制限を管理する。
type RateLimiter struct {
	config  RateLimiterConfig
	general *limiterGroup
	login   *limiterGroup
	stopCh  chan struct{}
	once    sync.Once
}

// NewRateLimiter は新しいRateLimiterを生成する。
// バックグラウンドで期限切れエントリのクリーンアップを開始する。
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	rl := &RateLimiter{
		config:  config,
		general: newLimiterGroup(config.GeneralRate, config.GeneralBurst),
		login:   newLimiterGroup(config.LoginRate, config.LoginBurst),
		stopCh:  make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。複数回呼んでもよい。
func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.stopCh) })
}

// GeneralMiddleware はAPI全般のレート制限ミドルウェアを返す。
// 認証済みセッションはセッションID、それ以外はクライアントIPをキーにする。
// 未認証セッションのIDはリクエストごとに新規発行されうるため、キーには使わない。
func (rl *RateLimiter) GeneralMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "ip:" + ClientIP(r)
			if sess, ok := SessionFromContext(r.Context()); ok && sess.State() == session.StateAuthenticated {
				key = "session:" + sess.ID()
			}

			if !rl.general.allow(key) {
				slog.Warn("rate limit exceeded",
					slog.String("key", key),
					slog.String("limit_type", "general"),
				)
				writeRateLimitResponse(w, rl.config.GeneralRate)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// LoginMiddleware はログイン試行のレート制限ミドルウェアを返す。
// クライアントIPをキーにし、API全般のレート制限とは独立に動作する。
func (rl *RateLimiter) LoginMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r)

			if !rl.login.allow(ip) {
				slog.Warn("rate limit exceeded",
					slog.String("client_ip", ip),
					slog.String("limit_type", "login"),
				)
				writeRateLimitResponse(w, rl.config.LoginRate)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GeneralLimiterCount は現在管理されているAPI全般リミッターのエントリ数を返す。
func (rl *RateLimiter) GeneralLimiterCount() int {
	return rl.general.count()
}

// LoginLimiterCount は現在管理されているログインリミッターのエントリ数を返す。
func (rl *RateLimiter) LoginLimiterCount() int {
	return rl.login.count()
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup(time.Now())
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup は最終アクセス時刻がCleanupIntervalの2倍を超えたエントリを削除する。
func (rl *RateLimiter) cleanup(now time.Time) {
	ttl := rl.config.CleanupInterval * 2
	rl.general.evict(now, ttl)
	rl.login.evict(now, ttl)
}

// ClientIP はリクエスト元のIPアドレスを返す。
// X-Forwarded-Forがある場合は先頭のアドレスを使用する。
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// writeRateLimitResponse は429 Too Many Requestsレスポンスを書き込む。
// Retry-Afterヘッダーにはトークンが補充されるまでの推定秒数を設定する。
func writeRateLimitResponse(w http.ResponseWriter, r rate.Limit) {
	retryAfterSec := 1
	if r > 0 {
		retryAfterSec = int(math.Ceil(1.0 / float64(r)))
		if retryAfterSec < 1 {
			retryAfterSec = 1
		}
	}

	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSec))
	writeErrorNotice(w, http.StatusTooManyRequests, "rate_limit", model.MsgTooManyRequests)
}
