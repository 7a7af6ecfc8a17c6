package repository

import (
	"context"

	"github.com/mariuscautis/menu-hub-sub000/internal/domain/model"
	repo "github.com/mariuscautis/menu-hub-sub000/internal/repository"

	"gorm.io/gorm"
)

type PendingOrderGormRepository struct {
	db *gorm.DB
}

func NewPendingOrderGormRepository(db *gorm.DB) *PendingOrderGormRepository {
	return &PendingOrderGormRepository{db: db}
}

func (r *PendingOrderGormRepository) Create(ctx context.Context, order model.PendingOrder) (int64, error) {
	if err := r.db.WithContext(ctx).Create(&order).Error; err != nil {
		return 0, err
	}
	return order.ID, nil
}

func (r *PendingOrderGormRepository) ListByTableID(ctx context.Context, tableID int64) ([]model.PendingOrder, error) {
	var items []model.PendingOrder
	err := r.db.WithContext(ctx).
		Where("table_id = ?", tableID).
		Order("id asc").
		Find(&items).Error
	if err != nil {
		return []model.PendingOrder{}, err
	}
	return items, nil
}

func (r *PendingOrderGormRepository) UpdateItems(ctx context.Context, mutationID string, items []model.LineItem, total int64) error {
	res := r.db.WithContext(ctx).Model(&model.PendingOrder{}).
		Where("mutation_id = ?", mutationID).
		Updates(map[string]interface{}{"items": items, "total": total})

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *PendingOrderGormRepository) MarkPaidOffline(ctx context.Context, mutationIDs []string) error {
	if len(mutationIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&model.PendingOrder{}).
		Where("mutation_id IN ?", mutationIDs).
		Update("status", model.PendingOrderStatusPaidOffline).Error
}

func (r *PendingOrderGormRepository) DeleteByTableID(ctx context.Context, tableID int64) error {
	return r.db.WithContext(ctx).
		Where("table_id = ?", tableID).
		Delete(&model.PendingOrder{}).Error
}

func (r *PendingOrderGormRepository) SummaryByTable(ctx context.Context) ([]repo.TablePendingSummary, error) {
	var rows []repo.TablePendingSummary
	err := r.db.WithContext(ctx).Model(&model.PendingOrder{}).
		Select("table_id, count(*) as count, sum(total) as total").
		Group("table_id").
		Order("table_id asc").
		Scan(&rows).Error
	if err != nil {
		return []repo.TablePendingSummary{}, err
	}
	return rows, nil
}
