package repository

import (
	"context"
	"errors"

	"github.com/mariuscautis/menu-hub-sub000/internal/domain/model"
	repo "github.com/mariuscautis/menu-hub-sub000/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TableStateGormRepository struct {
	db *gorm.DB
}

func NewTableStateGormRepository(db *gorm.DB) *TableStateGormRepository {
	return &TableStateGormRepository{db: db}
}

func (r *TableStateGormRepository) Find(ctx context.Context, tableID int64) (model.TableState, error) {
	var s model.TableState
	err := r.db.WithContext(ctx).Where("table_id = ?", tableID).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.TableState{}, repo.ErrNotFound
	}
	if err != nil {
		return model.TableState{}, err
	}
	return s, nil
}

func (r *TableStateGormRepository) SetAwaitingCleaning(ctx context.Context, tableID int64, awaiting bool) error {
	s := model.TableState{TableID: tableID, AwaitingCleaning: awaiting}
	//upsert（無ければ作る）
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "table_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"awaiting_cleaning", "updated_at"}),
	}).Create(&s).Error
}
