package model

import (
	"time"
)

const (
	OrderStatusOpen      = "open"
	OrderStatusPaid      = "paid"
	OrderStatusCancelled = "cancelled"
	OrderStatusExpired   = "expired"
)

// Order tracks one hosted checkout session for a pending site.
type Order struct {
	ID        int64      `gorm:"primaryKey" json:"id"`
	SiteID    int64      `gorm:"not null;index" json:"site_id"`
	SessionID string     `gorm:"size:255;uniqueIndex;not null" json:"session_id"`
	Plan      string     `gorm:"size:20;not null" json:"plan"`
	Email     string     `gorm:"size:100" json:"email"`
	Amount    int64      `json:"amount"`
	Currency  string     `gorm:"size:10" json:"currency"`
	Status    string     `gorm:"size:20;default:open;index" json:"status"`
	PaidAt    *time.Time `json:"paid_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (Order) TableName() string {
	return "orders"
}
