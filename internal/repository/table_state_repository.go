package repository

import (
	"context"

	"github.com/mariuscautis/menu-hub-sub000/internal/domain/model"
)

type TableStateRepository interface {
	Find(ctx context.Context, tableID int64) (model.TableState, error)
	SetAwaitingCleaning(ctx context.Context, tableID int64, awaiting bool) error
}
