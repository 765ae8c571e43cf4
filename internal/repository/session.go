package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/apiscerena/medusa-paypal/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

type SessionRepository interface {
	Create(tx *gorm.DB, session *model.PaymentSession) error
	Get(orderID string) (*model.PaymentSession, error)
	UpdateStatus(tx *gorm.DB, orderID string, status string) error
	SetAuthorization(tx *gorm.DB, orderID, authorizationID, status string) error
	SetCapture(tx *gorm.DB, orderID, captureID, status string) error
}

type sessionRepositoryImpl struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepositoryImpl{db: db}
}

func (r *sessionRepositoryImpl) Create(tx *gorm.DB, session *model.PaymentSession) error {
	return tx.Create(session).Error
}

func (r *sessionRepositoryImpl) Get(orderID string) (*model.PaymentSession, error) {
	var session model.PaymentSession
	err := r.db.Where("order_id = ?", orderID).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepositoryImpl) UpdateStatus(tx *gorm.DB, orderID string, status string) error {
	return tx.Model(&model.PaymentSession{}).
		Where("order_id = ?", orderID).
		Update("status", status).Error
}

func (r *sessionRepositoryImpl) SetAuthorization(tx *gorm.DB, orderID, authorizationID, status string) error {
	return tx.Model(&model.PaymentSession{}).
		Where("order_id = ?", orderID).
		Updates(map[string]any{
			"authorization_id": authorizationID,
			"status":           status,
		}).Error
}

func (r *sessionRepositoryImpl) SetCapture(tx *gorm.DB, orderID, captureID, status string) error {
	return tx.Model(&model.PaymentSession{}).
		Where("order_id = ?", orderID).
		Updates(map[string]any{
			"capture_id": captureID,
			"status":     status,
		}).Error
}
