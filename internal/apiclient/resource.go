package apiclient

import (
	"context"
	"net/http"
	"strconv"
)

// TokenSource は各API呼び出しに付与するトークンを提供する。
// session.Sessionが実装する。
type TokenSource interface {
	Token() (string, error)
}

// Resource はバックエンドの1つのリソースコレクションに対するCRUD操作を提供する。
// トークンは呼び出しのたびにTokenSourceから取得し、取得できない場合は
// リクエストを送信せずにエラーを返す。
type Resource[T any] struct {
	client *Client
	tokens TokenSource
	path   string
}

// NewResource はResourceを生成する。pathはコレクションのパス（例: /products）。
func NewResource[T any](client *Client, tokens TokenSource, path string) *Resource[T] {
	return &Resource[T]{
		client: client,
		tokens: tokens,
		path:   path,
	}
}

// Do はトークンを付与してAPIを呼び出す。
func (r *Resource[T]) Do(ctx context.Context, req Request, out any) error {
	token, err := r.tokens.Token()
	if err != nil {
		return err
	}
	req.Token = token
	return r.client.Do(ctx, req, out)
}

// Create はエンティティを作成し、IDが採番されたエンティティを返す。
func (r *Resource[T]) Create(ctx context.Context, entity T) (T, error) {
	var out T
	err := r.Do(ctx, Request{Method: http.MethodPost, Path: r.path, Body: entity}, &out)
	return out, err
}

// List はエンティティの一覧を返す。
func (r *Resource[T]) List(ctx context.Context) ([]T, error) {
	var out []T
	err := r.Do(ctx, Request{Method: http.MethodGet, Path: r.path}, &out)
	return out, err
}

// Get は指定IDのエンティティを返す。
func (r *Resource[T]) Get(ctx context.Context, id int) (T, error) {
	var out T
	err := r.Do(ctx, Request{Method: http.MethodGet, Path: r.itemPath(id), Endpoint: r.path + "/{id}"}, &out)
	return out, err
}

// Update は指定IDのエンティティを置き換える（PUT）。
func (r *Resource[T]) Update(ctx context.Context, id int, entity T) (T, error) {
	var out T
	err := r.Do(ctx, Request{Method: http.MethodPut, Path: r.itemPath(id), Body: entity, Endpoint: r.path + "/{id}"}, &out)
	return out, err
}

// Delete は指定IDのエンティティを削除し、削除前の表現を返す。
func (r *Resource[T]) Delete(ctx context.Context, id int) (T, error) {
	var out T
	err := r.Do(ctx, Request{Method: http.MethodDelete, Path: r.itemPath(id), Endpoint: r.path + "/{id}"}, &out)
	return out, err
}

func (r *Resource[T]) itemPath(id int) string {
	return r.path + "/" + strconv.Itoa(id)
}
