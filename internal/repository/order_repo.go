package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/amorempixels/amor_server/internal/model"
)

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(order *model.Order) error {
	return r.db.Create(order).Error
}

func (r *OrderRepository) GetBySession(sessionID string) (*model.Order, error) {
	var order model.Order
	err := r.db.Where("session_id = ?", sessionID).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// MarkPaid settles an order once; it reports false when it was already paid.
func (r *OrderRepository) MarkPaid(sessionID string, at time.Time) (bool, error) {
	result := r.db.Model(&model.Order{}).
		Where("session_id = ? AND status <> ?", sessionID, model.OrderStatusPaid).
		Updates(map[string]interface{}{
			"status":  model.OrderStatusPaid,
			"paid_at": at,
		})
	return result.RowsAffected > 0, result.Error
}

// MarkStatus moves an open order to status; settled orders are left alone.
func (r *OrderRepository) MarkStatus(sessionID, status string) error {
	return r.db.Model(&model.Order{}).
		Where("session_id = ? AND status = ?", sessionID, model.OrderStatusOpen).
		Update("status", status).Error
}

// CancelOpenForSite closes every open order of a site, used before a new session is opened.
func (r *OrderRepository) CancelOpenForSite(siteID int64) error {
	return r.db.Model(&model.Order{}).
		Where("site_id = ? AND status = ?", siteID, model.OrderStatusOpen).
		Update("status", model.OrderStatusCancelled).Error
}

func (r *OrderRepository) HasPaidForSite(siteID int64) (bool, error) {
	var count int64
	err := r.db.Model(&model.Order{}).
		Where("site_id = ? AND status = ?", siteID, model.OrderStatusPaid).
		Count(&count).Error
	return count > 0, err
}

func (r *OrderRepository) DeleteBySite(siteID int64) error {
	return r.db.Where("site_id = ?", siteID).Delete(&model.Order{}).Error
}
