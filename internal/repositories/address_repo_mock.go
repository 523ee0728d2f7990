package repositories

import (
	"sync"

	"refurbd/internal/models"

	"github.com/google/uuid"
)

// MockAddressRepository is an in-memory implementation of AddressRepository.
type MockAddressRepository struct {
	addresses map[string]models.Address
	mu        sync.RWMutex
}

// NewMockAddressRepository creates a new instance of MockAddressRepository.
func NewMockAddressRepository() *MockAddressRepository {
	return &MockAddressRepository{
		addresses: make(map[string]models.Address),
	}
}

// Create adds a new address.
func (r *MockAddressRepository) Create(address *models.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if address.ID == "" {
		address.ID = uuid.New().String()
	}
	r.addresses[address.ID] = *address
	return nil
}

// GetByID returns an address by its ID.
func (r *MockAddressRepository) GetByID(id string) (*models.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	address, ok := r.addresses[id]
	if !ok {
		return nil, ErrAddressNotFound
	}
	return &address, nil
}

// GetByUser returns all addresses for a user.
func (r *MockAddressRepository) GetByUser(userID string) ([]models.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var addresses []models.Address
	for _, a := range r.addresses {
		if a.UserID != nil && *a.UserID == userID {
			addresses = append(addresses, a)
		}
	}
	return addresses, nil
}

// Update modifies an existing address.
func (r *MockAddressRepository) Update(address *models.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.addresses[address.ID]; !ok {
		return ErrAddressNotFound
	}
	r.addresses[address.ID] = *address
	return nil
}

// Delete removes an address; no default auto-promotion.
func (r *MockAddressRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.addresses[id]; !ok {
		return ErrAddressNotFound
	}
	delete(r.addresses, id)
	return nil
}

// SetDefault swaps the default flag under the repository lock.
func (r *MockAddressRepository) SetDefault(userID, addressID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	target, ok := r.addresses[addressID]
	if !ok || target.UserID == nil || *target.UserID != userID {
		return ErrAddressNotFound
	}
	for id, a := range r.addresses {
		if a.UserID != nil && *a.UserID == userID && a.IsDefault {
			a.IsDefault = false
			r.addresses[id] = a
		}
	}
	target.IsDefault = true
	r.addresses[addressID] = target
	return nil
}
