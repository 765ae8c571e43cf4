package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/apiscerena/medusa-paypal/internal/model"
)

type WebhookEventRepository interface {
	Exists(payPalEventID string) (bool, error)
	MarkProcessed(tx *gorm.DB, eventID, eventType, action, resourceID string) error
}

type webhookEventRepositoryImpl struct {
	db *gorm.DB
}

func NewWebhookEventRepository(db *gorm.DB) WebhookEventRepository {
	return &webhookEventRepositoryImpl{db: db}
}

func (r *webhookEventRepositoryImpl) Exists(payPalEventID string) (bool, error) {
	var count int64
	err := r.db.Model(&model.WebhookEvent{}).
		Where("event_id = ?", payPalEventID).
		Count(&count).Error

	return count > 0, err
}

func (r *webhookEventRepositoryImpl) MarkProcessed(tx *gorm.DB, eventID, eventType, action, resourceID string) error {
	return tx.Create(&model.WebhookEvent{
		EventID:     eventID,
		EventType:   eventType,
		Action:      action,
		ResourceID:  resourceID,
		ProcessedAt: time.Now(),
	}).Error
}
