package repository

import (
	"context"

	"github.com/mariuscautis/menu-hub-sub000/internal/domain/model"
	repo "github.com/mariuscautis/menu-hub-sub000/internal/repository"

	"gorm.io/gorm"
)

type PendingUpdateGormRepository struct {
	db *gorm.DB
}

func NewPendingUpdateGormRepository(db *gorm.DB) *PendingUpdateGormRepository {
	return &PendingUpdateGormRepository{db: db}
}

func (r *PendingUpdateGormRepository) Create(ctx context.Context, update model.PendingUpdate) (int64, error) {
	if err := r.db.WithContext(ctx).Create(&update).Error; err != nil {
		return 0, err
	}
	return update.ID, nil
}

func (r *PendingUpdateGormRepository) ListByTableID(ctx context.Context, tableID int64) ([]model.PendingUpdate, error) {
	var items []model.PendingUpdate
	err := r.db.WithContext(ctx).
		Where("table_id = ?", tableID).
		Order("id asc").
		Find(&items).Error
	if err != nil {
		return []model.PendingUpdate{}, err
	}
	return items, nil
}

func (r *PendingUpdateGormRepository) DeleteByTableID(ctx context.Context, tableID int64) error {
	return r.db.WithContext(ctx).
		Where("table_id = ?", tableID).
		Delete(&model.PendingUpdate{}).Error
}

func (r *PendingUpdateGormRepository) SummaryByTable(ctx context.Context) ([]repo.TablePendingSummary, error) {
	var rows []repo.TablePendingSummary
	err := r.db.WithContext(ctx).Model(&model.PendingUpdate{}).
		Select("table_id, count(*) as count, sum(total) as total").
		Group("table_id").
		Order("table_id asc").
		Scan(&rows).Error
	if err != nil {
		return []repo.TablePendingSummary{}, err
	}
	return rows, nil
}
