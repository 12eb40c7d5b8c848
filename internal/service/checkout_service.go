package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/amorempixels/amor_server/internal/model"
	"github.com/amorempixels/amor_server/internal/model/dto"
	"github.com/amorempixels/amor_server/internal/pkg/payment"
	"github.com/amorempixels/amor_server/internal/repository"
)

var ErrOrderNotFound = errors.New("Pagamento não encontrado")

// CheckoutService settles checkout sessions reported by the payment processor.
type CheckoutService struct {
	orders    *repository.OrderRepository
	sites     *repository.SiteRepository
	payments  payment.Provider
	activator *SiteActivator
	log       *zap.Logger
	now       func() time.Time
}

func NewCheckoutService(
	orders *repository.OrderRepository,
	sites *repository.SiteRepository,
	payments payment.Provider,
	activator *SiteActivator,
	log *zap.Logger,
) *CheckoutService {
	return &CheckoutService{
		orders:    orders,
		sites:     sites,
		payments:  payments,
		activator: activator,
		log:       log,
		now:       time.Now,
	}
}

// HandleWebhook verifies and applies one webhook delivery. Unknown sessions
// and event types are acknowledged and ignored so the processor stops retrying.
func (s *CheckoutService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	ev, err := s.payments.ParseWebhook(payload, signature)
	if err != nil {
		return err
	}

	switch ev.Type {
	case payment.EventCheckoutCompleted:
		return s.completed(ctx, ev)
	case payment.EventCheckoutExpired:
		if err := s.orders.MarkStatus(ev.SessionID, model.OrderStatusExpired); err != nil {
			return err
		}
		s.log.Info("checkout expired", zap.String("session_id", ev.SessionID))
		return nil
	default:
		s.log.Debug("ignoring webhook event", zap.String("type", ev.Type))
		return nil
	}
}

func (s *CheckoutService) completed(ctx context.Context, ev *payment.Event) error {
	if ev.PaymentStatus != "" && ev.PaymentStatus != "paid" {
		s.log.Info("checkout completed without payment",
			zap.String("session_id", ev.SessionID),
			zap.String("payment_status", ev.PaymentStatus))
		return nil
	}

	siteID := ev.SiteID
	order, err := s.orders.GetBySession(ev.SessionID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		// the session outlived its order row; the signed metadata still names the site
		if siteID == 0 {
			s.log.Warn("webhook for unknown session", zap.String("session_id", ev.SessionID))
			return nil
		}
		s.log.Warn("paid session without order", zap.String("session_id", ev.SessionID), zap.Int64("site_id", siteID))
	case err != nil:
		return err
	default:
		siteID = order.SiteID
		if _, err := s.orders.MarkPaid(ev.SessionID, s.now()); err != nil {
			return err
		}
	}

	site, err := s.sites.GetByID(siteID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.log.Error("paid order without site", zap.String("session_id", ev.SessionID), zap.Int64("site_id", siteID))
		return nil
	}
	if err != nil {
		return err
	}
	return s.activator.Activate(ctx, site)
}

// Return reports the outcome of a checkout the user just came back from.
func (s *CheckoutService) Return(status, sessionID string) (*dto.CheckoutReturnResponse, error) {
	order, err := s.orders.GetBySession(sessionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	resp := &dto.CheckoutReturnResponse{
		Outcome:     status,
		OrderStatus: order.Status,
	}
	site, err := s.sites.GetByID(order.SiteID)
	if err == nil {
		resp.SiteStatus = site.Status
		resp.CustomURL = site.CustomURL
		resp.SiteURL = s.activator.SiteURL(site.CustomURL)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return resp, nil
}
