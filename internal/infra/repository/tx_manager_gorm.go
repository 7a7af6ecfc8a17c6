package repository

import (
	"context"

	repo "github.com/mariuscautis/menu-hub-sub000/internal/repository"

	"gorm.io/gorm"
)

type txReposGorm struct {
	pendingOrders   repo.PendingOrderRepository
	pendingUpdates  repo.PendingUpdateRepository
	pendingPayments repo.PendingPaymentRepository
	tableStates     repo.TableStateRepository
}

func (r *txReposGorm) PendingOrders() repo.PendingOrderRepository     { return r.pendingOrders }
func (r *txReposGorm) PendingUpdates() repo.PendingUpdateRepository   { return r.pendingUpdates }
func (r *txReposGorm) PendingPayments() repo.PendingPaymentRepository { return r.pendingPayments }
func (r *txReposGorm) TableStates() repo.TableStateRepository         { return r.tableStates }

type TxManagerGorm struct {
	db *gorm.DB
}

func NewTxManagerGorm(db *gorm.DB) *TxManagerGorm {
	return &TxManagerGorm{db: db}
}

func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		//repoはtxを持ったDBで作り直す
		r := &txReposGorm{
			pendingOrders:   NewPendingOrderGormRepository(tx),
			pendingUpdates:  NewPendingUpdateGormRepository(tx),
			pendingPayments: NewPendingPaymentGormRepository(tx),
			tableStates:     NewTableStateGormRepository(tx),
		}
		return fn(r)
	})
}
