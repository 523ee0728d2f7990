package handlers

import (
	"errors"

	"refurbd/internal/middleware"
	"refurbd/internal/models"
	"refurbd/internal/repositories"
	"refurbd/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// AddressHandler handles HTTP requests for the user's address book.
type AddressHandler struct {
	service *services.AddressService
	auth    *services.AuthService
	log     *zap.Logger
}

// NewAddressHandler creates a new AddressHandler.
func NewAddressHandler(service *services.AddressService, auth *services.AuthService, log *zap.Logger) *AddressHandler {
	return &AddressHandler{
		service: service,
		auth:    auth,
		log:     log,
	}
}

// RegisterRoutes registers the address routes with the Fiber app.
func (h *AddressHandler) RegisterRoutes(router fiber.Router) {
	addressRoutes := router.Group("/addresses", middleware.AuthRequired(h.auth))
	addressRoutes.Get("/", h.HandleListAddresses)
	addressRoutes.Post("/", h.HandleCreateAddress)
	addressRoutes.Put("/:id/default", h.HandleSetDefault)
	addressRoutes.Delete("/:id", h.HandleDeleteAddress)
}

// HandleListAddresses returns the user's addresses, default first.
func (h *AddressHandler) HandleListAddresses(c *fiber.Ctx) error {
	addresses, err := h.service.ListAddresses(middleware.UserID(c))
	if err != nil {
		h.log.Error("failed to list addresses", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve addresses",
		})
	}
	return c.JSON(addresses)
}

// HandleCreateAddress adds an address to the user's book.
func (h *AddressHandler) HandleCreateAddress(c *fiber.Ctx) error {
	var address models.Address
	if err := c.BodyParser(&address); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	if err := h.service.CreateAddress(middleware.UserID(c), &address); err != nil {
		h.log.Error("failed to create address", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Could not create address",
			"error":   err.Error(),
		})
	}
	return c.Status(fiber.StatusCreated).JSON(address)
}

// HandleSetDefault makes the target the user's only default address.
func (h *AddressHandler) HandleSetDefault(c *fiber.Ctx) error {
	if err := h.service.SetDefaultAddress(middleware.UserID(c), c.Params("id")); err != nil {
		if errors.Is(err, repositories.ErrAddressNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": "Address not found",
			})
		}
		h.log.Error("failed to set default address", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not set default address",
		})
	}
	return c.JSON(fiber.Map{"success": true})
}

// HandleDeleteAddress removes an address. Deleting the default leaves
// the user with no default address.
func (h *AddressHandler) HandleDeleteAddress(c *fiber.Ctx) error {
	if err := h.service.DeleteAddress(middleware.UserID(c), c.Params("id")); err != nil {
		if errors.Is(err, repositories.ErrAddressNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": "Address not found",
			})
		}
		h.log.Error("failed to delete address", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not delete address",
		})
	}
	return c.JSON(fiber.Map{"success": true})
}
