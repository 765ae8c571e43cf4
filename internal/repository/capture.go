package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/apiscerena/medusa-paypal/internal/model"
)

type CaptureRepository interface {
	Upsert(tx *gorm.DB, capture *model.CaptureRecord) error
	Exists(captureID string) (bool, error)
	ListByOrder(orderID string) ([]*model.CaptureRecord, error)
}

type captureRepositoryImpl struct {
	db *gorm.DB
}

func NewCaptureRepository(db *gorm.DB) CaptureRepository {
	return &captureRepositoryImpl{db: db}
}

func (r *captureRepositoryImpl) Upsert(tx *gorm.DB, capture *model.CaptureRecord) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "capture_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "updated_at"}),
	}).Create(capture).Error
}

func (r *captureRepositoryImpl) Exists(captureID string) (bool, error) {
	var count int64
	err := r.db.Model(&model.CaptureRecord{}).
		Where("capture_id = ?", captureID).
		Count(&count).Error

	return count > 0, err
}

func (r *captureRepositoryImpl) ListByOrder(orderID string) ([]*model.CaptureRecord, error) {
	var captures []*model.CaptureRecord
	err := r.db.Where("order_id = ?", orderID).Find(&captures).Error
	return captures, err
}
