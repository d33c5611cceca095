// Package model はドメインモデルを定義する。
package model

// Product はバックエンドが管理する商品を表す。
// IDはサーバー側で採番されるため、作成時は0（JSONでは省略）とする。
type Product struct {
	ID          int     `json:"id,omitempty"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Type        string  `json:"type"`
	Status      bool    `json:"status"`
}

// PagedProduct はページング付き商品一覧のレスポンスを表す。
type PagedProduct struct {
	Items []Product `json:"items"`
	Page  int       `json:"page"`
	Limit int       `json:"limit"`
	Total int       `json:"total"`
}

// Echoes はページメタデータがリクエストしたpage/limitと一致するかを返す。
func (p *PagedProduct) Echoes(page, limit int) bool {
	return p.Page == page && p.Limit == limit
}

// ProductStatus はステータスのみを更新する部分更新のボディ。
// falseも必ず送信するためomitemptyは付けない。
type ProductStatus struct {
	Status bool `json:"status"`
}
