// Package product は商品カタログのCRUD操作を提供する。
// すべての操作は1回のAPI呼び出しをラップし、失敗時はErrorHandlerで
// ユーザー通知を行ったうえで型付きエラーを返す。
package product

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/comanda/painel/internal/apiclient"
	"github.com/comanda/painel/internal/model"
)

const collectionPath = "/products"

// ErrorHandler は失敗時の通知を行う。notify.ErrorHandlerが実装する。
type ErrorHandler interface {
	Handle(err error) error
}

// Service は商品リソースへのアクセスを提供する。
// セッション（TokenSource）は生成時に注入する。
type Service struct {
	resource *apiclient.Resource[model.Product]
	errors   ErrorHandler
	logger   *slog.Logger
}

// NewService はServiceを生成する。
func NewService(client *apiclient.Client, tokens apiclient.TokenSource, errHandler ErrorHandler, logger *slog.Logger) *Service {
	return &Service{
		resource: apiclient.NewResource[model.Product](client, tokens, collectionPath),
		errors:   errHandler,
		logger:   logger,
	}
}

// Create は商品を作成し、IDが採番された商品を返す。
// POST /products
func (s *Service) Create(ctx context.Context, p model.Product) (*model.Product, error) {
	p.ID = 0
	created, err := s.resource.Create(ctx, p)
	if err != nil {
		return nil, s.errors.Handle(err)
	}
	return &created, nil
}

// Read は全商品の一覧を返す。
// GET /products
func (s *Service) Read(ctx context.Context) ([]model.Product, error) {
	products, err := s.resource.List(ctx)
	if err != nil {
		return nil, s.errors.Handle(err)
	}
	return products, nil
}

// ReadPerType は種別で絞り込んだ有効な商品の一覧を返す。
// sizeが空でない場合のみ件数上限を同じクエリに追加する。
// GET /products?type={type}&status=1[&size={size}]
func (s *Service) ReadPerType(ctx context.Context, productType, size string) ([]model.Product, error) {
	path := collectionPath + "?type=" + url.QueryEscape(productType) + "&status=1"
	if size != "" {
		path += "&size=" + url.QueryEscape(size)
	}

	var products []model.Product
	err := s.resource.Do(ctx, apiclient.Request{
		Method:   http.MethodGet,
		Path:     path,
		Endpoint: collectionPath,
	}, &products)
	if err != nil {
		return nil, s.errors.Handle(err)
	}
	return products, nil
}

// ReadPaginated は種別で絞り込んだ商品をページ単位で返す。
// page, limit, typeはすべて必須でクエリパラメータとして送信する。
// レスポンスのpage/limitがリクエストと一致しない場合は警告ログを出力する。
// GET /products/paged?type=&page=&limit=
func (s *Service) ReadPaginated(ctx context.Context, page, limit int, productType string) (*model.PagedProduct, error) {
	params := url.Values{}
	params.Add("type", productType)
	params.Add("page", strconv.Itoa(page))
	params.Add("limit", strconv.Itoa(limit))

	var paged model.PagedProduct
	err := s.resource.Do(ctx, apiclient.Request{
		Method: http.MethodGet,
		Path:   collectionPath + "/paged",
		Query:  params,
	}, &paged)
	if err != nil {
		return nil, s.errors.Handle(err)
	}

	if !paged.Echoes(page, limit) {
		s.logger.Warn("paged response metadata does not echo the request",
			slog.Int("requested_page", page),
			slog.Int("requested_limit", limit),
			slog.Int("page", paged.Page),
			slog.Int("limit", paged.Limit),
		)
	}

	return &paged, nil
}

// ReadByID は指定IDの商品を返す。存在しない場合はバックエンドの404エラーを返す。
// GET /products/{id}
func (s *Service) ReadByID(ctx context.Context, id int) (*model.Product, error) {
	p, err := s.resource.Get(ctx, id)
	if err != nil {
		return nil, s.errors.Handle(err)
	}
	return &p, nil
}

// Update は指定IDの商品を全体置き換えする。IDはパスのidが正となる。
// PUT /products/{id}
func (s *Service) Update(ctx context.Context, p model.Product, id int) (*model.Product, error) {
	p.ID = 0
	updated, err := s.resource.Update(ctx, id, p)
	if err != nil {
		return nil, s.errors.Handle(err)
	}
	return &updated, nil
}

// Patch は商品の有効フラグのみを更新する。他の項目は送信しない。
// 戻り値はバックエンドの応答（確認応答）をそのまま返す。
// PUT /products/{id}/update-status
func (s *Service) Patch(ctx context.Context, active bool, id int) (json.RawMessage, error) {
	var ack json.RawMessage
	err := s.resource.Do(ctx, apiclient.Request{
		Method:   http.MethodPut,
		Path:     collectionPath + "/" + strconv.Itoa(id) + "/update-status",
		Body:     model.ProductStatus{Status: active},
		Endpoint: collectionPath + "/{id}/update-status",
	}, &ack)
	if err != nil {
		return nil, s.errors.Handle(err)
	}
	return ack, nil
}

// Delete は指定IDの商品を削除し、削除前の商品を返す。
// DELETE /products/{id}
func (s *Service) Delete(ctx context.Context, id int) (*model.Product, error) {
	p, err := s.resource.Delete(ctx, id)
	if err != nil {
		return nil, s.errors.Handle(err)
	}
	return &p, nil
}
