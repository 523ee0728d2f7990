package repositories

import (
	"errors"

	"refurbd/internal/models"
)

// ErrAddressNotFound is returned when no address matches the lookup,
// including ownership mismatches on SetDefault.
var ErrAddressNotFound = errors.New("address not found")

// AddressRepository defines the interface for address data access.
type AddressRepository interface {
	Create(address *models.Address) error
	GetByID(id string) (*models.Address, error)
	GetByUser(userID string) ([]models.Address, error)
	Update(address *models.Address) error
	Delete(id string) error
	// SetDefault atomically unsets is_default on all of the user's
	// addresses and sets it on the target. No reader may observe a state
	// with the old and new default both set.
	SetDefault(userID, addressID string) error
}
