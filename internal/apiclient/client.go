// Package apiclient は注文管理バックエンドのREST APIクライアントを提供する。
// 1回の呼び出しにつき1回だけHTTPリクエストを送信し、リトライは行わない。
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/comanda/painel/internal/metrics"
	"github.com/comanda/painel/internal/model"
	"github.com/google/uuid"
)

const (
	// maxResponseSize はレスポンスボディの最大読み取りサイズ。
	maxResponseSize = 10 << 20
	userAgent       = "Painel/1.0"
)

// Request は1回のAPI呼び出しを表す。
type Request struct {
	Method   string
	Path     string     // ベースURLからの相対パス。クエリ文字列を含んでもよい
	Query    url.Values // Pathのクエリに追加するパラメータ
	Body     any        // nilの場合はボディなし
	Token    string     // 空でない場合はBearerトークンとして送信
	Endpoint string     // メトリクス用のラベル（例: /products/{id}）。空の場合はPathを使用
}

// errorBody はバックエンドのエラーレスポンス。
type errorBody struct {
	Message string `json:"message"`
}

// Client はバックエンドAPIのクライアント。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    metrics.MetricsCollector
	baseURL    string
}

// NewClient はClientの新しいインスタンスを生成する。
// collectorがnilの場合はメトリクスを記録しない。
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger, collector metrics.MetricsCollector) *Client {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		metrics:    collector,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// Do はAPIを1回呼び出し、2xxの場合はJSONレスポンスをoutにデコードする。
// 失敗時は*model.APIErrorを返す。
//   - ステータスなし（接続不可等）: KindTransport
//   - ステータス4xx/5xx: KindBackend（メッセージはレスポンスのmessage）
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	endpoint := req.Endpoint
	if endpoint == "" {
		endpoint = req.Path
		if i := strings.IndexByte(endpoint, '?'); i >= 0 {
			endpoint = endpoint[:i]
		}
	}

	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return model.NewTransportError(err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.metrics.RecordAPITransportError(req.Method, endpoint)
		c.logger.Error("API呼び出しに失敗しました",
			slog.String("method", req.Method),
			slog.String("endpoint", endpoint),
			slog.String("request_id", httpReq.Header.Get("X-Request-ID")),
			slog.String("error", err.Error()),
		)
		return model.NewTransportError(err)
	}
	defer resp.Body.Close()

	c.metrics.RecordAPIRequest(req.Method, endpoint, resp.StatusCode, time.Since(start))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		c.logger.Error("レスポンスボディの読み取りに失敗しました",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()),
		)
		return model.NewTransportError(err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var eb errorBody
		// メッセージが取れない場合はステータステキストで補完する
		_ = json.Unmarshal(body, &eb)

		c.logger.Warn("APIがエラーステータスを返しました",
			slog.String("method", req.Method),
			slog.String("endpoint", endpoint),
			slog.Int("http_status", resp.StatusCode),
			slog.String("message", eb.Message),
		)
		return model.NewBackendError(resp.StatusCode, eb.Message)
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}

	if err := json.Unmarshal(body, out); err != nil {
		c.logger.Error("APIレスポンスのパースに失敗しました",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()),
		)
		apiErr := model.NewBackendError(resp.StatusCode, "Resposta inválida da API")
		apiErr.Err = err
		return apiErr
	}

	return nil
}

// newRequest はHTTPリクエストを組み立てる。
func (c *Client) newRequest(ctx context.Context, req Request) (*http.Request, error) {
	reqURL := c.baseURL + req.Path
	if len(req.Query) > 0 {
		sep := "?"
		if strings.Contains(req.Path, "?") {
			sep = "&"
		}
		reqURL += sep + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("リクエストボディのエンコードに失敗しました: %w", err)
		}
		body = bytes.NewReader(b)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}

	httpReq.Header.Set("User-Agent", userAgent)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", uuid.New().String())
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.Token)
	}

	return httpReq, nil
}
