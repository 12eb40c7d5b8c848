package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/amorempixels/amor_server/internal/model/dto"
	"github.com/amorempixels/amor_server/internal/pkg/payment"
	"github.com/amorempixels/amor_server/internal/pkg/response"
	"github.com/amorempixels/amor_server/internal/service"
)

// maxWebhookBytes caps the body read from the payment processor.
const maxWebhookBytes = 64 << 10

type CheckoutHandler struct {
	checkoutService *service.CheckoutService
}

func NewCheckoutHandler(checkoutService *service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkoutService: checkoutService}
}

// Webhook receives Stripe events. The processor only looks at the status
// code: 400 stops retries for bad signatures, 500 asks for a redelivery.
// POST /api/v1/payments/webhook
func (h *CheckoutHandler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBytes))
	if err != nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}

	err = h.checkoutService.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	switch {
	case err == nil:
		c.Status(http.StatusOK)
	case errors.Is(err, payment.ErrInvalidSignature):
		c.Status(http.StatusBadRequest)
	default:
		_ = c.Error(err)
		c.Status(http.StatusInternalServerError)
	}
}

// Return reports the outcome after the customer leaves the checkout page.
// GET /api/v1/checkout/return?status=success|cancel&session_id=
func (h *CheckoutHandler) Return(c *gin.Context) {
	var req dto.CheckoutReturnRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.checkoutService.Return(req.Status, req.SessionID)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, resp)
}
