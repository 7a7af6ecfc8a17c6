package repository

import (
	"context"

	"github.com/mariuscautis/menu-hub-sub000/internal/domain/model"
)

type PendingPaymentRepository interface {
	Create(ctx context.Context, payment model.PendingPayment) (int64, error)
	ListByTableID(ctx context.Context, tableID int64) ([]model.PendingPayment, error)
	ListAll(ctx context.Context) ([]model.PendingPayment, error)
	//支払いは1件ずつリモート確認が取れた時点で消す
	DeleteByMutationID(ctx context.Context, mutationID string) error
	DeleteByTableID(ctx context.Context, tableID int64) error
}
