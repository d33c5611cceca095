package model

// OrderToProduct は注文と商品の明細行を表す。
type OrderToProduct struct {
	ID          int     `json:"id,omitempty"`
	OrderID     int     `json:"orderId,omitempty"`
	ProductID   int     `json:"productId,omitempty"`
	Amount      int     `json:"amount"`
	Observation string  `json:"observation"`
	MeetOptions string  `json:"meet_options"`
	TotalItem   float64 `json:"total_item"`
	Products    Product `json:"products"`
}

// Subtotal は数量と商品単価から明細の小計を算出する。
func (o *OrderToProduct) Subtotal() float64 {
	return float64(o.Amount) * o.Products.Price
}
