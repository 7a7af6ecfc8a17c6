package repository

import (
	"context"

	"github.com/mariuscautis/menu-hub-sub000/internal/domain/model"
	repo "github.com/mariuscautis/menu-hub-sub000/internal/repository"

	"gorm.io/gorm"
)

type PendingPaymentGormRepository struct {
	db *gorm.DB
}

func NewPendingPaymentGormRepository(db *gorm.DB) *PendingPaymentGormRepository {
	return &PendingPaymentGormRepository{db: db}
}

func (r *PendingPaymentGormRepository) Create(ctx context.Context, payment model.PendingPayment) (int64, error) {
	if err := r.db.WithContext(ctx).Create(&payment).Error; err != nil {
		return 0, err
	}
	return payment.ID, nil
}

func (r *PendingPaymentGormRepository) ListByTableID(ctx context.Context, tableID int64) ([]model.PendingPayment, error) {
	var items []model.PendingPayment
	err := r.db.WithContext(ctx).
		Where("table_id = ?", tableID).
		Order("id asc").
		Find(&items).Error
	if err != nil {
		return []model.PendingPayment{}, err
	}
	return items, nil
}

func (r *PendingPaymentGormRepository) ListAll(ctx context.Context) ([]model.PendingPayment, error) {
	var items []model.PendingPayment
	err := r.db.WithContext(ctx).Order("id asc").Find(&items).Error
	if err != nil {
		return []model.PendingPayment{}, err
	}
	return items, nil
}

func (r *PendingPaymentGormRepository) DeleteByMutationID(ctx context.Context, mutationID string) error {
	res := r.db.WithContext(ctx).
		Where("mutation_id = ?", mutationID).
		Delete(&model.PendingPayment{})

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *PendingPaymentGormRepository) DeleteByTableID(ctx context.Context, tableID int64) error {
	return r.db.WithContext(ctx).
		Where("table_id = ?", tableID).
		Delete(&model.PendingPayment{}).Error
}
