package repositories

import (
	"sync"

	"refurbd/internal/models"

	"github.com/google/uuid"
)

// MockPromoCodeRepository is an in-memory implementation of PromoCodeRepository.
type MockPromoCodeRepository struct {
	promos map[string]models.PromoCode // keyed by code
	mu     sync.RWMutex
}

// NewMockPromoCodeRepository creates a new instance of MockPromoCodeRepository.
func NewMockPromoCodeRepository() *MockPromoCodeRepository {
	return &MockPromoCodeRepository{
		promos: make(map[string]models.PromoCode),
	}
}

// GetByCode returns a promo code by its code string.
func (r *MockPromoCodeRepository) GetByCode(code string) (*models.PromoCode, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	promo, ok := r.promos[code]
	if !ok {
		return nil, ErrPromoNotFound
	}
	return &promo, nil
}

// Create adds a new promo code.
func (r *MockPromoCodeRepository) Create(promo *models.PromoCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if promo.ID == "" {
		promo.ID = uuid.New().String()
	}
	r.promos[promo.Code] = *promo
	return nil
}

// IncrementUsage mirrors the conditional cap semantics of the GORM
// implementation.
func (r *MockPromoCodeRepository) IncrementUsage(code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	promo, ok := r.promos[code]
	if !ok {
		return ErrPromoNotFound
	}
	if promo.MaxUses > 0 && promo.UsedCount >= promo.MaxUses {
		return ErrUsageCapReached
	}
	promo.UsedCount++
	r.promos[code] = promo
	return nil
}
