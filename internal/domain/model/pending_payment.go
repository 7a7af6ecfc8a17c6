package model

import "time"

type PaymentMethod string

const (
	PaymentMethodCash PaymentMethod = "CASH"
	PaymentMethodCard PaymentMethod = "CARD"
)

// PendingPayment はオフライン現金支払い。カードはキューしない。
// OrderMutationIDs は未送信注文（PendingOrder）もカバーするため。
type PendingPayment struct {
	ID               int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	MutationID       string        `gorm:"type:varchar(64);not null;uniqueIndex" json:"mutation_id"`
	TableID          int64         `gorm:"not null;index" json:"table_id"`
	RestaurantID     int64         `gorm:"not null" json:"restaurant_id"`
	OrderIDs         []int64       `gorm:"serializer:json" json:"order_ids"`
	OrderMutationIDs []string      `gorm:"serializer:json" json:"order_mutation_ids"`
	TotalAmount      int64         `gorm:"not null" json:"total_amount"`
	Method           PaymentMethod `gorm:"type:varchar(10);not null" json:"method"`
	PaidBy           string        `gorm:"type:varchar(100);not null" json:"paid_by"`
	CreatedAt        time.Time     `gorm:"not null;autoCreateTime" json:"created_at"`
}
