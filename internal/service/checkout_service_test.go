package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amorempixels/amor_server/internal/model"
	"github.com/amorempixels/amor_server/internal/pkg/payment"
	"github.com/amorempixels/amor_server/internal/testutil"
)

func webhookPayload(t *testing.T, ev payment.Event) []byte {
	t.Helper()
	data, err := json.Marshal(ev)
	require.NoError(t, err)
	return data
}

func TestCheckoutService_Completed(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	owner := testutil.TestUser(t, e.db)
	site := testutil.TestSite(t, e.db, testutil.WithOwner(owner.ID), testutil.WithStatus(model.SiteStatusPending))
	order := testutil.TestOrder(t, e.db, site.ID)

	payload := webhookPayload(t, payment.Event{
		Type:          payment.EventCheckoutCompleted,
		SessionID:     order.SessionID,
		SiteID:        site.ID,
		PaymentStatus: "paid",
	})
	require.NoError(t, e.checkout.HandleWebhook(ctx, payload, "valid"))

	got, err := e.orders.GetBySession(order.SessionID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPaid, got.Status)

	s, err := e.sites.GetByID(site.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SiteStatusActive, s.Status)
	assert.Equal(t, int64(1), e.queued(t))

	// the processor may deliver twice
	require.NoError(t, e.checkout.HandleWebhook(ctx, payload, "valid"))
	assert.Equal(t, int64(1), e.queued(t))
}

func TestCheckoutService_CompletedWithoutOrder(t *testing.T) {
	e := newEnv(t)

	site := testutil.TestSite(t, e.db, testutil.WithStatus(model.SiteStatusPending))

	// the session was opened but its order row never got written
	payload := webhookPayload(t, payment.Event{
		Type:          payment.EventCheckoutCompleted,
		SessionID:     "cs_orphan",
		SiteID:        site.ID,
		PaymentStatus: "paid",
	})
	require.NoError(t, e.checkout.HandleWebhook(context.Background(), payload, "valid"))

	s, err := e.sites.GetByID(site.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SiteStatusActive, s.Status)
}

func TestCheckoutService_CompletedUnpaid(t *testing.T) {
	e := newEnv(t)

	site := testutil.TestSite(t, e.db, testutil.WithStatus(model.SiteStatusPending))
	order := testutil.TestOrder(t, e.db, site.ID)

	payload := webhookPayload(t, payment.Event{
		Type:          payment.EventCheckoutCompleted,
		SessionID:     order.SessionID,
		PaymentStatus: "unpaid",
	})
	require.NoError(t, e.checkout.HandleWebhook(context.Background(), payload, "valid"))

	s, err := e.sites.GetByID(site.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SiteStatusPending, s.Status)
}

func TestCheckoutService_Expired(t *testing.T) {
	e := newEnv(t)

	site := testutil.TestSite(t, e.db, testutil.WithStatus(model.SiteStatusPending))
	order := testutil.TestOrder(t, e.db, site.ID)

	payload := webhookPayload(t, payment.Event{Type: payment.EventCheckoutExpired, SessionID: order.SessionID})
	require.NoError(t, e.checkout.HandleWebhook(context.Background(), payload, "valid"))

	got, err := e.orders.GetBySession(order.SessionID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusExpired, got.Status)
}

func TestCheckoutService_RejectsBadSignature(t *testing.T) {
	e := newEnv(t)

	payload := webhookPayload(t, payment.Event{Type: payment.EventCheckoutCompleted, SessionID: "cs_x"})
	err := e.checkout.HandleWebhook(context.Background(), payload, "forged")
	assert.ErrorIs(t, err, payment.ErrInvalidSignature)
}

func TestCheckoutService_UnknownSessionIgnored(t *testing.T) {
	e := newEnv(t)

	payload := webhookPayload(t, payment.Event{Type: payment.EventCheckoutCompleted, SessionID: "cs_nope", PaymentStatus: "paid"})
	assert.NoError(t, e.checkout.HandleWebhook(context.Background(), payload, "valid"))

	payload = webhookPayload(t, payment.Event{Type: "invoice.paid"})
	assert.NoError(t, e.checkout.HandleWebhook(context.Background(), payload, "valid"))
}

func TestCheckoutService_Return(t *testing.T) {
	e := newEnv(t)

	site := testutil.TestSite(t, e.db, testutil.WithCustomURL("anaebruno"), testutil.WithStatus(model.SiteStatusPending))
	order := testutil.TestOrder(t, e.db, site.ID)

	resp, err := e.checkout.Return("success", order.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "success", resp.Outcome)
	assert.Equal(t, model.OrderStatusOpen, resp.OrderStatus)
	assert.Equal(t, model.SiteStatusPending, resp.SiteStatus)
	assert.Equal(t, "https://amorempixels.test/anaebruno", resp.SiteURL)

	_, err = e.checkout.Return("cancel", "cs_missing")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}
