package repositories

import (
	"errors"

	"refurbd/internal/models"
)

var (
	// ErrPromoNotFound is returned when no promo code matches.
	ErrPromoNotFound = errors.New("promo code not found")

	// ErrUsageCapReached is returned by IncrementUsage when the usage
	// counter is already at max_uses. The discount was granted at
	// checkout time, so callers log this as an anomaly rather than
	// failing the order.
	ErrUsageCapReached = errors.New("promo code usage cap reached")
)

// PromoCodeRepository defines the interface for promo code data access.
type PromoCodeRepository interface {
	GetByCode(code string) (*models.PromoCode, error)
	Create(promo *models.PromoCode) error
	// IncrementUsage atomically increments used_count, refusing to push
	// it past max_uses (zero max_uses means uncapped). used_count is
	// never decremented.
	IncrementUsage(code string) error
}
