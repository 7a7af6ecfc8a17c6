package model

import "time"

type PendingOrderStatus string

const (
	PendingOrderStatusPending     PendingOrderStatus = "PENDING"
	PendingOrderStatusPaidOffline PendingOrderStatus = "PAID_OFFLINE"
)

// PendingOrder はオフライン中に作成された未送信の注文。
// MutationID がリモート注文ID未採番の間の代わりになる。
type PendingOrder struct {
	ID           int64              `gorm:"primaryKey;autoIncrement" json:"id"`
	MutationID   string             `gorm:"type:varchar(64);not null;uniqueIndex" json:"mutation_id"`
	TableID      int64              `gorm:"not null;index" json:"table_id"`
	RestaurantID int64              `gorm:"not null" json:"restaurant_id"`
	Items        []LineItem         `gorm:"serializer:json" json:"items"`
	Total        int64              `gorm:"not null" json:"total"`
	Status       PendingOrderStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	CreatedAt    time.Time          `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time          `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
