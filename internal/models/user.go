package models

import "gorm.io/gorm"

// UserRole gates access to the admin back-office.
type UserRole string

const (
	RoleCustomer UserRole = "CUSTOMER"
	RoleAdmin    UserRole = "ADMIN"
)

// User represents a registered customer or back-office operator.
type User struct {
	ID           string   `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Email        string   `json:"email" gorm:"uniqueIndex;type:varchar(255)" validate:"required,email"`
	PasswordHash string   `gorm:"type:varchar(255)"` // No json tag for security
	FirstName    string   `json:"first_name" validate:"required,min=1,max=100"`
	LastName     string   `json:"last_name" validate:"required,min=1,max=100"`
	Role         UserRole `json:"role" gorm:"type:varchar(16);default:CUSTOMER"`
	gorm.Model
}
