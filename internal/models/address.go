package models

import "gorm.io/gorm"

// Address is a shipping/billing postal record. UserID is nil when the
// address belongs solely to a guest order. At most one address per user
// may have IsDefault set; the repository enforces the swap atomically.
type Address struct {
	ID        string  `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	UserID    *string `json:"user_id" gorm:"type:varchar(36);index"`
	FirstName string  `json:"first_name" validate:"required"`
	LastName  string  `json:"last_name" validate:"required"`
	Company   string  `json:"company,omitempty"`
	Line1     string  `json:"line1" validate:"required"`
	Line2     string  `json:"line2,omitempty"`
	City      string  `json:"city" validate:"required"`
	State     string  `json:"state" validate:"required"`
	Postcode  string  `json:"postcode" validate:"required"`
	Country   string  `json:"country" gorm:"type:varchar(2);default:AU" validate:"required,len=2"`
	Phone     string  `json:"phone,omitempty"`
	IsDefault bool    `json:"is_default"`
	gorm.Model
}
