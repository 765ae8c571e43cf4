package repository

import (
	"gorm.io/gorm"

	"github.com/apiscerena/medusa-paypal/internal/model"
)

type RefundRepository interface {
	Create(tx *gorm.DB, refund *model.RefundRecord) error
	ListByCapture(captureID string) ([]*model.RefundRecord, error)
}

type refundRepositoryImpl struct {
	db *gorm.DB
}

func NewRefundRepository(db *gorm.DB) RefundRepository {
	return &refundRepositoryImpl{db: db}
}

func (r *refundRepositoryImpl) Create(tx *gorm.DB, refund *model.RefundRecord) error {
	return tx.Create(refund).Error
}

func (r *refundRepositoryImpl) ListByCapture(captureID string) ([]*model.RefundRecord, error) {
	var refunds []*model.RefundRecord
	err := r.db.Where("capture_id = ?", captureID).Find(&refunds).Error
	return refunds, err
}
