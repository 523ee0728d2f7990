package handlers

import (
	"errors"

	"refurbd/internal/services"
	"refurbd/pkg/payments"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// WebhookHandler receives payment provider events. It is the entry
// point of the order finalization pipeline.
type WebhookHandler struct {
	verifier *payments.Verifier
	orders   *services.OrderService
	log      *zap.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(verifier *payments.Verifier, orders *services.OrderService, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		verifier: verifier,
		orders:   orders,
		log:      log,
	}
}

// RegisterRoutes registers the webhook route with the Fiber app. The
// route sits outside the API group: the provider calls it directly.
func (h *WebhookHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/webhooks/payment", h.HandlePaymentEvent)
}

// HandlePaymentEvent verifies and dispatches one provider event.
// Responses: 200 for anything processed or deliberately ignored, 400
// for authentication or decoding failures (no side effects ran), 500
// for transient store failures so the provider's retry redelivers.
func (h *WebhookHandler) HandlePaymentEvent(c *fiber.Ctx) error {
	// The signature is computed over the raw bytes; never re-serialize.
	body := c.Body()

	event, err := h.verifier.VerifyAndParse(body, c.Get(payments.SignatureHeader))
	if err != nil {
		if errors.Is(err, payments.ErrInvalidSignature) {
			h.log.Warn("webhook signature verification failed")
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid signature",
			})
		}
		h.log.Warn("unparseable webhook payload", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid payload",
		})
	}

	// Only checkout completion drives the pipeline; every other event
	// type is acknowledged so the provider stops redelivering it.
	if event.Type == payments.EventCheckoutCompleted {
		session, err := event.CheckoutSession()
		if err != nil {
			h.log.Warn("checkout event with undecodable session", zap.Error(err))
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid payload",
			})
		}
		if err := h.orders.FinalizeCheckout(session); err != nil {
			h.log.Error("order finalization failed, provider will retry",
				zap.String("payment_session_id", session.ID), zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Temporary failure",
			})
		}
	}

	return c.JSON(fiber.Map{"received": true})
}
