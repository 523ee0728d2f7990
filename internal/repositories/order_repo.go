package repositories

import (
	"errors"

	"refurbd/internal/models"
)

var (
	// ErrOrderNotFound is returned when no order matches the lookup key.
	ErrOrderNotFound = errors.New("order not found")

	// ErrDuplicateSession is returned when an order already exists for
	// the payment session being inserted. Together with the check-first
	// lookup in the service this closes the duplicate-delivery race: the
	// check alone would not survive concurrent redelivery.
	ErrDuplicateSession = errors.New("order already exists for payment session")

	// ErrDuplicateOrderNumber signals an order-number collision; callers
	// retry with a fresh suffix.
	ErrDuplicateOrderNumber = errors.New("order number already taken")
)

// OrderRepository defines the interface for order data access.
type OrderRepository interface {
	GetAll() ([]models.Order, error)
	GetByID(id string) (*models.Order, error)
	// GetByPaymentSessionID returns ErrOrderNotFound when no order has
	// been created for the session yet.
	GetByPaymentSessionID(sessionID string) (*models.Order, error)
	// CreateFinalized persists the shipping address, the order with its
	// items, and the email outbox row as one all-or-nothing unit. A
	// partial failure must never leave an order without its items or
	// address.
	CreateFinalized(order *models.Order, address *models.Address, outbox *models.EmailOutbox) error
	UpdateStatus(id string, status models.OrderStatus) error
	UpdateTracking(id string, trackingNumber, carrier string) error
}
