package repositories

import (
	"errors"
	"fmt"

	"refurbd/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMPromoCodeRepository is a GORM implementation of PromoCodeRepository.
type GORMPromoCodeRepository struct {
	db *gorm.DB
}

// NewGORMPromoCodeRepository creates a new instance of GORMPromoCodeRepository.
func NewGORMPromoCodeRepository(db *gorm.DB) *GORMPromoCodeRepository {
	return &GORMPromoCodeRepository{
		db: db,
	}
}

// GetByCode retrieves a promo code by its code string.
func (r *GORMPromoCodeRepository) GetByCode(code string) (*models.PromoCode, error) {
	var promo models.PromoCode
	if err := r.db.First(&promo, "code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPromoNotFound
		}
		return nil, fmt.Errorf("failed to get promo code %s: %w", code, err)
	}
	return &promo, nil
}

// Create creates a new promo code.
func (r *GORMPromoCodeRepository) Create(promo *models.PromoCode) error {
	if promo.ID == "" {
		promo.ID = uuid.New().String()
	}
	if err := r.db.Create(promo).Error; err != nil {
		return fmt.Errorf("failed to create promo code: %w", err)
	}
	return nil
}

// IncrementUsage bumps used_count with a single conditional UPDATE so
// concurrent orders cannot push the counter past the cap.
func (r *GORMPromoCodeRepository) IncrementUsage(code string) error {
	res := r.db.Model(&models.PromoCode{}).
		Where("code = ? AND (max_uses = 0 OR used_count < max_uses)", code).
		UpdateColumn("used_count", gorm.Expr("used_count + 1"))
	if res.Error != nil {
		return fmt.Errorf("failed to increment usage for promo %s: %w", code, res.Error)
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.Model(&models.PromoCode{}).Where("code = ?", code).Count(&count).Error; err == nil && count == 0 {
			return ErrPromoNotFound
		}
		return ErrUsageCapReached
	}
	return nil
}
