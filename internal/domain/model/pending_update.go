package model

import "time"

// PendingUpdate はリモートに既にある注文への追加分（増分のみ）。
// 同じOrderIDに複数たまることがあり、IDの昇順がキュー順。
type PendingUpdate struct {
	ID         int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	MutationID string     `gorm:"type:varchar(64);not null;uniqueIndex" json:"mutation_id"`
	OrderID    int64      `gorm:"not null;index" json:"order_id"`
	TableID    int64      `gorm:"not null;index" json:"table_id"`
	AddedItems []LineItem `gorm:"serializer:json" json:"added_items"`
	Total      int64      `gorm:"not null" json:"total"`
	CreatedAt  time.Time  `gorm:"not null;autoCreateTime" json:"created_at"`
}
