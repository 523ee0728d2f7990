package services

import (
	"testing"

	"refurbd/internal/models"
	"refurbd/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAddress() *models.Address {
	return &models.Address{
		FirstName: "Sam",
		LastName:  "Nguyen",
		Line1:     "12 Harbour St",
		City:      "Sydney",
		State:     "NSW",
		Postcode:  "2000",
		Country:   "AU",
	}
}

func TestCreateAddressDefaultIsExclusive(t *testing.T) {
	repo := repositories.NewMockAddressRepository()
	service := NewAddressService(repo)

	first := testAddress()
	first.IsDefault = true
	require.NoError(t, service.CreateAddress("user-1", first))

	second := testAddress()
	second.Line1 = "7 Collins St"
	second.IsDefault = true
	require.NoError(t, service.CreateAddress("user-1", second))

	addresses, err := service.ListAddresses("user-1")
	require.NoError(t, err)
	require.Len(t, addresses, 2)

	defaults := 0
	for _, a := range addresses {
		if a.IsDefault {
			defaults++
			assert.Equal(t, second.ID, a.ID)
		}
	}
	assert.Equal(t, 1, defaults)
}

func TestSetDefaultAddressSwaps(t *testing.T) {
	repo := repositories.NewMockAddressRepository()
	service := NewAddressService(repo)

	first := testAddress()
	first.IsDefault = true
	require.NoError(t, service.CreateAddress("user-1", first))
	second := testAddress()
	require.NoError(t, service.CreateAddress("user-1", second))

	require.NoError(t, service.SetDefaultAddress("user-1", second.ID))

	updatedFirst, err := repo.GetByID(first.ID)
	require.NoError(t, err)
	assert.False(t, updatedFirst.IsDefault)
	updatedSecond, err := repo.GetByID(second.ID)
	require.NoError(t, err)
	assert.True(t, updatedSecond.IsDefault)
}

func TestSetDefaultAddressRejectsForeignAddress(t *testing.T) {
	repo := repositories.NewMockAddressRepository()
	service := NewAddressService(repo)

	theirs := testAddress()
	require.NoError(t, service.CreateAddress("user-2", theirs))

	err := service.SetDefaultAddress("user-1", theirs.ID)
	assert.ErrorIs(t, err, repositories.ErrAddressNotFound)
}

func TestDeleteAddressRequiresOwnership(t *testing.T) {
	repo := repositories.NewMockAddressRepository()
	service := NewAddressService(repo)

	theirs := testAddress()
	require.NoError(t, service.CreateAddress("user-2", theirs))

	err := service.DeleteAddress("user-1", theirs.ID)
	assert.ErrorIs(t, err, repositories.ErrAddressNotFound)

	// Still there for its owner.
	addresses, err := service.ListAddresses("user-2")
	require.NoError(t, err)
	assert.Len(t, addresses, 1)
}

func TestDeleteDefaultLeavesNoDefault(t *testing.T) {
	repo := repositories.NewMockAddressRepository()
	service := NewAddressService(repo)

	first := testAddress()
	first.IsDefault = true
	require.NoError(t, service.CreateAddress("user-1", first))
	second := testAddress()
	require.NoError(t, service.CreateAddress("user-1", second))

	// Deleting the default does not promote another address.
	require.NoError(t, service.DeleteAddress("user-1", first.ID))

	addresses, err := service.ListAddresses("user-1")
	require.NoError(t, err)
	require.Len(t, addresses, 1)
	assert.False(t, addresses[0].IsDefault)
}

func TestCreateAddressRejectsMissingFields(t *testing.T) {
	repo := repositories.NewMockAddressRepository()
	service := NewAddressService(repo)

	err := service.CreateAddress("user-1", &models.Address{FirstName: "Sam"})
	assert.Error(t, err)
}
