package model

import "time"

// TableState はテーブルのローカルフラグ。
// オフライン支払い後もUI上は「片付け待ち」にするために持つ。
type TableState struct {
	TableID          int64     `gorm:"primaryKey" json:"table_id"`
	AwaitingCleaning bool      `gorm:"not null" json:"awaiting_cleaning"`
	UpdatedAt        time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
