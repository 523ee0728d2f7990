package repositories

import (
	"errors"

	"refurbd/internal/models"
)

// ErrInsufficientStock is returned by DecrementStock when the product
// does not have enough remaining stock to cover the requested quantity.
var ErrInsufficientStock = errors.New("insufficient stock")

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	GetAll() ([]models.Product, error)
	GetByID(id string) (*models.Product, error)
	// GetByIDs returns the products that resolve; callers compare the
	// result count against the request count to detect missing products.
	GetByIDs(ids []string) ([]models.Product, error)
	Create(product *models.Product) error
	Update(product *models.Product) error
	Delete(id string) error
	// DecrementStock atomically decrements stock_quantity by qty only if
	// enough stock remains. It must never drive stock negative under
	// concurrent checkouts; read-then-write is not acceptable here.
	DecrementStock(id string, qty int) error
}
