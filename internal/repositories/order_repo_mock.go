package repositories

import (
	"sync"
	"time"

	"refurbd/internal/models"

	"github.com/google/uuid"
)

// MockOrderRepository is an in-memory implementation of OrderRepository.
// It enforces the same uniqueness guarantees as the GORM implementation
// (payment session id and order number) so idempotency tests exercise
// realistic behavior.
type MockOrderRepository struct {
	orders   map[string]models.Order
	outboxes map[string]models.EmailOutbox // keyed by order ID
	mu       sync.RWMutex
}

// NewMockOrderRepository creates a new instance of MockOrderRepository.
func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{
		orders:   make(map[string]models.Order),
		outboxes: make(map[string]models.EmailOutbox),
	}
}

// GetAll returns all orders.
func (r *MockOrderRepository) GetAll() ([]models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	orderList := make([]models.Order, 0, len(r.orders))
	for _, order := range r.orders {
		orderList = append(orderList, order)
	}
	return orderList, nil
}

// GetByID returns an order by its ID.
func (r *MockOrderRepository) GetByID(id string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return &order, nil
}

// GetByPaymentSessionID returns the order created for a payment session.
func (r *MockOrderRepository) GetByPaymentSessionID(sessionID string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, order := range r.orders {
		if order.PaymentSessionID == sessionID {
			o := order
			return &o, nil
		}
	}
	return nil, ErrOrderNotFound
}

// CreateFinalized adds the order, address and outbox row atomically
// under the repository lock.
func (r *MockOrderRepository) CreateFinalized(order *models.Order, address *models.Address, outbox *models.EmailOutbox) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.orders {
		if existing.PaymentSessionID == order.PaymentSessionID {
			return ErrDuplicateSession
		}
		if existing.OrderNumber == order.OrderNumber {
			return ErrDuplicateOrderNumber
		}
	}

	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if address.ID == "" {
		address.ID = uuid.New().String()
	}
	order.ShippingAddressID = address.ID
	order.ShippingAddress = address
	for i := range order.Items {
		if order.Items[i].ID == "" {
			order.Items[i].ID = uuid.New().String()
		}
		order.Items[i].OrderID = order.ID
	}
	order.CreatedAt = time.Now()
	order.UpdatedAt = time.Now()
	r.orders[order.ID] = *order

	if outbox != nil {
		if outbox.ID == "" {
			outbox.ID = uuid.New().String()
		}
		outbox.OrderID = order.ID
		r.outboxes[order.ID] = *outbox
	}
	return nil
}

// UpdateStatus updates the status of an order.
func (r *MockOrderRepository) UpdateStatus(id string, status models.OrderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return ErrOrderNotFound
	}
	order.Status = status
	order.UpdatedAt = time.Now()
	r.orders[id] = order
	return nil
}

// UpdateTracking sets tracking fields on an order.
func (r *MockOrderRepository) UpdateTracking(id string, trackingNumber, carrier string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return ErrOrderNotFound
	}
	order.TrackingNumber = trackingNumber
	order.Carrier = carrier
	order.UpdatedAt = time.Now()
	r.orders[id] = order
	return nil
}

// OutboxFor exposes the outbox row written for an order; test helper.
func (r *MockOrderRepository) OutboxFor(orderID string) (*models.EmailOutbox, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ob, ok := r.outboxes[orderID]
	if !ok {
		return nil, false
	}
	return &ob, true
}
