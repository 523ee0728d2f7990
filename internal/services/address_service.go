package services

import (
	"fmt"

	"refurbd/internal/models"
	"refurbd/internal/repositories"

	"github.com/go-playground/validator/v10"
)

// AddressService manages a user's address book, including the
// single-default-per-user invariant.
type AddressService struct {
	repo     repositories.AddressRepository
	validate *validator.Validate
}

// NewAddressService creates a new AddressService.
func NewAddressService(repo repositories.AddressRepository) *AddressService {
	return &AddressService{
		repo:     repo,
		validate: validator.New(),
	}
}

// ListAddresses returns all addresses for a user, default first.
func (s *AddressService) ListAddresses(userID string) ([]models.Address, error) {
	return s.repo.GetByUser(userID)
}

// CreateAddress adds an address to the user's book. When the new
// address is flagged default, the flag is swapped atomically so exactly
// one default remains.
func (s *AddressService) CreateAddress(userID string, address *models.Address) error {
	address.UserID = &userID
	wantDefault := address.IsDefault
	address.IsDefault = false
	if err := s.validate.Struct(address); err != nil {
		return fmt.Errorf("invalid address: %w", err)
	}
	if err := s.repo.Create(address); err != nil {
		return err
	}
	if wantDefault {
		if err := s.repo.SetDefault(userID, address.ID); err != nil {
			return err
		}
		address.IsDefault = true
	}
	return nil
}

// SetDefaultAddress makes the target the user's only default address.
func (s *AddressService) SetDefaultAddress(userID, addressID string) error {
	return s.repo.SetDefault(userID, addressID)
}

// DeleteAddress removes an address after an ownership check. Deleting
// the current default deliberately leaves the user with no default;
// nothing is auto-promoted.
func (s *AddressService) DeleteAddress(userID, addressID string) error {
	address, err := s.repo.GetByID(addressID)
	if err != nil {
		return err
	}
	if address.UserID == nil || *address.UserID != userID {
		return repositories.ErrAddressNotFound
	}
	return s.repo.Delete(addressID)
}
