package repository

import (
	"context"

	"github.com/mariuscautis/menu-hub-sub000/internal/domain/model"
)

type PendingUpdateRepository interface {
	Create(ctx context.Context, update model.PendingUpdate) (int64, error)
	//IDの昇順（＝キューに積んだ順）で返す
	ListByTableID(ctx context.Context, tableID int64) ([]model.PendingUpdate, error)
	DeleteByTableID(ctx context.Context, tableID int64) error
	SummaryByTable(ctx context.Context) ([]TablePendingSummary, error)
}
