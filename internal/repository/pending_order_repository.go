package repository

import (
	"context"
	"errors"

	"github.com/mariuscautis/menu-hub-sub000/internal/domain/model"
)

var ErrNotFound = errors.New("not found")

// TablePendingSummary はテーブルごとの未送信件数と合計金額。
// バッジ表示用でマージエンジンを通さず返す。
type TablePendingSummary struct {
	TableID int64 `json:"table_id"`
	Count   int64 `json:"count"`
	Total   int64 `json:"total"`
}

type PendingOrderRepository interface {
	Create(ctx context.Context, order model.PendingOrder) (int64, error)
	ListByTableID(ctx context.Context, tableID int64) ([]model.PendingOrder, error)
	UpdateItems(ctx context.Context, mutationID string, items []model.LineItem, total int64) error
	MarkPaidOffline(ctx context.Context, mutationIDs []string) error
	DeleteByTableID(ctx context.Context, tableID int64) error
	//全テーブル分の集計（件数と合計）
	SummaryByTable(ctx context.Context) ([]TablePendingSummary, error)
}
