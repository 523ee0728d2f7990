package models

import (
	"time"

	"gorm.io/gorm"
)

// PromoType is how a promo code's value is interpreted.
type PromoType string

const (
	PromoPercentage  PromoType = "PERCENTAGE"
	PromoFixedAmount PromoType = "FIXED_AMOUNT"
)

// PromoCode is a discount code with a validity window and usage cap.
// UsedCount is only ever incremented by a successful order application
// and must not exceed MaxUses (MaxUses zero means uncapped).
type PromoCode struct {
	ID         string    `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Code       string    `json:"code" gorm:"uniqueIndex;type:varchar(32)" validate:"required,min=3,max=32"`
	Type       PromoType `json:"type" gorm:"type:varchar(16)" validate:"required,oneof=PERCENTAGE FIXED_AMOUNT"`
	Value      float64   `json:"value" validate:"required,gt=0"`
	MaxUses    int       `json:"max_uses" validate:"gte=0"`
	UsedCount  int       `json:"used_count" validate:"gte=0"`
	ValidFrom  time.Time `json:"valid_from"`
	ValidUntil time.Time `json:"valid_until"`
	IsActive   bool      `json:"is_active"`
	gorm.Model
}

// Usable reports whether the code can still be offered at checkout time.
func (p *PromoCode) Usable(now time.Time) bool {
	if !p.IsActive {
		return false
	}
	if now.Before(p.ValidFrom) || now.After(p.ValidUntil) {
		return false
	}
	if p.MaxUses > 0 && p.UsedCount >= p.MaxUses {
		return false
	}
	return true
}
