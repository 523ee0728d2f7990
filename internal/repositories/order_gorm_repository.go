package repositories

import (
	"errors"
	"fmt"

	"refurbd/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMOrderRepository is a GORM implementation of OrderRepository.
// It requires gorm.Config{TranslateError: true} so unique-constraint
// violations surface as gorm.ErrDuplicatedKey.
type GORMOrderRepository struct {
	db *gorm.DB
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{
		db: db,
	}
}

// GetAll retrieves all orders with their items.
func (r *GORMOrderRepository) GetAll() ([]models.Order, error) {
	var orders []models.Order
	if err := r.db.Preload("Items").Preload("ShippingAddress").Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to get all orders: %w", err)
	}
	return orders, nil
}

// GetByID retrieves a single order by its ID.
func (r *GORMOrderRepository) GetByID(id string) (*models.Order, error) {
	var order models.Order
	if err := r.db.Preload("Items").Preload("ShippingAddress").First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order by ID %s: %w", id, err)
	}
	return &order, nil
}

// GetByPaymentSessionID looks up the order created for a payment
// session; this is the idempotency probe for webhook redelivery.
func (r *GORMOrderRepository) GetByPaymentSessionID(sessionID string) (*models.Order, error) {
	var order models.Order
	if err := r.db.Preload("Items").First(&order, "payment_session_id = ?", sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order by payment session %s: %w", sessionID, err)
	}
	return &order, nil
}

// CreateFinalized writes the address, order, items and outbox row in a
// single transaction. Duplicate-key failures are disambiguated after
// rollback: a hit on payment_session_id means a concurrent duplicate
// delivery already won, a miss means the order number collided.
func (r *GORMOrderRepository) CreateFinalized(order *models.Order, address *models.Address, outbox *models.EmailOutbox) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if address.ID == "" {
			address.ID = uuid.New().String()
		}
		if err := tx.Create(address).Error; err != nil {
			return err
		}
		order.ShippingAddressID = address.ID
		for i := range order.Items {
			if order.Items[i].ID == "" {
				order.Items[i].ID = uuid.New().String()
			}
			order.Items[i].OrderID = order.ID
		}
		if err := tx.Create(order).Error; err != nil {
			return err
		}
		if outbox != nil {
			if outbox.ID == "" {
				outbox.ID = uuid.New().String()
			}
			outbox.OrderID = order.ID
			if err := tx.Create(outbox).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		var count int64
		if lookupErr := r.db.Model(&models.Order{}).
			Where("payment_session_id = ?", order.PaymentSessionID).
			Count(&count).Error; lookupErr == nil && count > 0 {
			return ErrDuplicateSession
		}
		return ErrDuplicateOrderNumber
	}
	return fmt.Errorf("failed to create order: %w", err)
}

// UpdateStatus updates the fulfilment status of an order. Monetary
// fields and items are never touched here.
func (r *GORMOrderRepository) UpdateStatus(id string, status models.OrderStatus) error {
	res := r.db.Model(&models.Order{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("failed to update order status for order %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// UpdateTracking sets the shipment tracking fields on an order.
func (r *GORMOrderRepository) UpdateTracking(id string, trackingNumber, carrier string) error {
	res := r.db.Model(&models.Order{}).Where("id = ?", id).
		Updates(map[string]any{"tracking_number": trackingNumber, "carrier": carrier})
	if res.Error != nil {
		return fmt.Errorf("failed to update tracking for order %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrOrderNotFound
	}
	return nil
}
