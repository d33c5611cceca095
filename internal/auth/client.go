package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/comanda/painel/internal/apiclient"
	"github.com/comanda/painel/internal/model"
)

const authPath = "/auth"

// Authenticator は認証情報をトークンに交換する。
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*model.AuthResponse, error)
}

// Client はバックエンドの認証APIクライアント。
type Client struct {
	api *apiclient.Client
}

// NewClient はClientを生成する。
func NewClient(api *apiclient.Client) *Client {
	return &Client{api: api}
}

// Authenticate は認証情報をバックエンドに送信し、トークンを取得する。
// POST /auth
//   - 4xx: KindAuthentication（どの項目が誤っているかは返さない）
//   - 5xx: KindBackend
//   - ステータスなし: KindTransport
func (c *Client) Authenticate(ctx context.Context, email, password string) (*model.AuthResponse, error) {
	var resp model.AuthResponse
	err := c.api.Do(ctx, apiclient.Request{
		Method: http.MethodPost,
		Path:   authPath,
		Body:   model.Credentials{Email: email, Password: password},
	}, &resp)
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) && apiErr.Kind == model.KindBackend &&
			apiErr.Status >= http.StatusBadRequest && apiErr.Status < http.StatusInternalServerError {
			return nil, model.NewAuthenticationError(apiErr.Status)
		}
		return nil, err
	}

	if resp.Token == "" {
		return nil, model.NewBackendError(http.StatusBadGateway, "Resposta inválida da API")
	}

	return &resp, nil
}

// compile-time interface check
var _ Authenticator = (*Client)(nil)
