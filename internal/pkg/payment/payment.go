// Package payment opens hosted checkout sessions and verifies the
// processor's webhook callbacks.
package payment

import (
	"context"
	"errors"
)

const (
	EventCheckoutCompleted = "checkout.session.completed"
	EventCheckoutExpired   = "checkout.session.expired"
)

var ErrInvalidSignature = errors.New("invalid webhook signature")

type CheckoutRequest struct {
	SiteID     int64
	CustomURL  string
	Plan       string
	PlanName   string
	Email      string
	Amount     int64
	Currency   string
	SuccessURL string
	CancelURL  string
}

type Session struct {
	ID  string
	URL string
}

// Event is the part of a webhook callback the service acts on.
type Event struct {
	Type          string
	SessionID     string
	SiteID        int64
	PaymentStatus string
}

type Provider interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*Session, error)
	ParseWebhook(payload []byte, signature string) (*Event, error)
}
