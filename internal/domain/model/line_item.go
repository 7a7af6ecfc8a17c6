package model

// LineItem は注文1行分。価格はペンス単位。
// ExistingQuantityは「確定済みで減らせない数量」の下限。
type LineItem struct {
	ProductID        int64  `json:"product_id"`
	Name             string `json:"name"`
	UnitPrice        int64  `json:"unit_price"`
	Quantity         int64  `json:"quantity"`
	ExistingQuantity int64  `json:"existing_quantity"`
}
