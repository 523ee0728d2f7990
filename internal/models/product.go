package models

import "gorm.io/gorm"

// ProductGrade is the cosmetic-condition tier of a refurbished unit.
type ProductGrade string

const (
	GradeCertifiedRefurbished ProductGrade = "CERTIFIED_REFURBISHED"
	GradeExcellent            ProductGrade = "EXCELLENT"
	GradeGood                 ProductGrade = "GOOD"
	GradeFair                 ProductGrade = "FAIR"
	GradeAcceptable           ProductGrade = "ACCEPTABLE"
)

// ProductStatus controls catalog visibility and purchasability.
type ProductStatus string

const (
	ProductActive   ProductStatus = "ACTIVE"
	ProductDraft    ProductStatus = "DRAFT"
	ProductArchived ProductStatus = "ARCHIVED"
)

// Product represents a refurbished unit in the catalog.
type Product struct {
	ID            string        `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Title         string        `json:"title" validate:"required,min=3,max=200"`
	Slug          string        `json:"slug" gorm:"uniqueIndex;type:varchar(200)" validate:"required"`
	SKU           string        `json:"sku" gorm:"uniqueIndex;type:varchar(64)" validate:"required"`
	Description   string        `json:"description" validate:"omitempty,max=2000"`
	Grade         ProductGrade  `json:"grade" gorm:"type:varchar(32)" validate:"required"`
	Price         float64       `json:"price" validate:"required,gt=0"`
	CostPrice     float64       `json:"cost_price" validate:"gte=0"`
	StockQuantity int           `json:"stock_quantity" validate:"gte=0"`
	Status        ProductStatus `json:"status" gorm:"type:varchar(16);default:ACTIVE"`
	SellerID      string        `json:"seller_id" gorm:"type:varchar(36)"`
	Seller        *Seller       `json:"seller,omitempty" gorm:"foreignKey:SellerID"`
	gorm.Model    // CreatedAt, UpdatedAt, DeletedAt
}

// Seller is a consignment partner supplying refurbished stock.
// CommissionRate is a percentage taken on each sold line.
type Seller struct {
	ID             string  `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Code           string  `json:"code" gorm:"uniqueIndex;type:varchar(16)" validate:"required"`
	BusinessName   string  `json:"business_name" validate:"required"`
	ContactName    string  `json:"contact_name"`
	Email          string  `json:"email" validate:"omitempty,email"`
	CommissionRate float64 `json:"commission_rate" validate:"gte=0,lte=100"`
	gorm.Model
}
