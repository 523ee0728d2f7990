package handlers

import (
	"errors"

	"refurbd/internal/middleware"
	"refurbd/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// CheckoutHandler handles HTTP requests for the checkout flow.
type CheckoutHandler struct {
	checkout *services.CheckoutService
	orders   *services.OrderService
	auth     *services.AuthService
	log      *zap.Logger
}

// NewCheckoutHandler creates a new CheckoutHandler.
func NewCheckoutHandler(checkout *services.CheckoutService, orders *services.OrderService, auth *services.AuthService, log *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		checkout: checkout,
		orders:   orders,
		auth:     auth,
		log:      log,
	}
}

// RegisterRoutes registers the checkout routes with the Fiber app.
// Checkout allows guests, so auth is optional here.
func (h *CheckoutHandler) RegisterRoutes(router fiber.Router) {
	checkoutRoutes := router.Group("/checkout", middleware.OptionalAuth(h.auth))
	checkoutRoutes.Post("/session", h.HandleCreateSession)
	checkoutRoutes.Post("/quote", h.HandleQuote)
	checkoutRoutes.Get("/success", h.HandleSuccess)
}

// HandleCreateSession creates a hosted payment session and returns the
// redirect URL.
func (h *CheckoutHandler) HandleCreateSession(c *fiber.Ctx) error {
	var req services.CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	session, err := h.checkout.CreateSession(c.Context(), middleware.UserID(c), req)
	if err != nil {
		if errors.Is(err, services.ErrProductsUnavailable) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "Some products are unavailable",
			})
		}
		h.log.Error("failed to create checkout session", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not create checkout session",
		})
	}

	return c.JSON(fiber.Map{"url": session.URL})
}

// HandleQuote returns the price breakdown the user will see on the
// payment page, computed with the same arithmetic the webhook pipeline
// persists.
func (h *CheckoutHandler) HandleQuote(c *fiber.Ctx) error {
	var req struct {
		Items          []services.CheckoutItem `json:"items"`
		ShippingMethod string                  `json:"shipping_method"`
		PromoCode      string                  `json:"promo_code"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	quote, err := h.checkout.QuoteCart(req.Items, req.ShippingMethod, req.PromoCode)
	if err != nil {
		if errors.Is(err, services.ErrProductsUnavailable) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "Some products are unavailable",
			})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Could not quote cart",
			"error":   err.Error(),
		})
	}

	return c.JSON(quote)
}

// HandleSuccess resolves the order number for a completed session so
// the success page can show it. The order number is null until the
// webhook lands.
func (h *CheckoutHandler) HandleSuccess(c *fiber.Ctx) error {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Missing session_id",
		})
	}

	orderNumber, err := h.orders.GetOrderNumberBySession(sessionID)
	if err != nil {
		h.log.Error("failed to look up order by session", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not look up order",
		})
	}
	if orderNumber == "" {
		return c.JSON(fiber.Map{"order_number": nil})
	}
	return c.JSON(fiber.Map{"order_number": orderNumber})
}
