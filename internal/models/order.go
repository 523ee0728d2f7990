package models

import (
	"time"

	"gorm.io/gorm"
)

// OrderStatus is the fulfilment lifecycle of an order.
type OrderStatus string

const (
	OrderPending    OrderStatus = "PENDING"
	OrderConfirmed  OrderStatus = "CONFIRMED"
	OrderProcessing OrderStatus = "PROCESSING"
	OrderShipped    OrderStatus = "SHIPPED"
	OrderDelivered  OrderStatus = "DELIVERED"
	OrderCancelled  OrderStatus = "CANCELLED"
	OrderRefunded   OrderStatus = "REFUNDED"
)

// ValidOrderStatuses enumerates every accepted lifecycle value.
var ValidOrderStatuses = map[OrderStatus]bool{
	OrderPending:    true,
	OrderConfirmed:  true,
	OrderProcessing: true,
	OrderShipped:    true,
	OrderDelivered:  true,
	OrderCancelled:  true,
	OrderRefunded:   true,
}

// PaymentStatus tracks the payment side independently of fulfilment.
type PaymentStatus string

const (
	PaymentPending           PaymentStatus = "PENDING"
	PaymentPaid              PaymentStatus = "PAID"
	PaymentFailed            PaymentStatus = "FAILED"
	PaymentRefunded          PaymentStatus = "REFUNDED"
	PaymentPartiallyRefunded PaymentStatus = "PARTIALLY_REFUNDED"
)

// Order is a completed (or completing) purchase. PaymentSessionID is the
// idempotency key: at most one order may exist per payment session,
// enforced by the unique index.
//
// Once created with PaymentStatus PAID, the item set and monetary totals
// are immutable; only Status and tracking fields change afterwards.
type Order struct {
	ID          string      `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrderNumber string      `json:"order_number" gorm:"uniqueIndex;type:varchar(24)"`
	UserID      *string     `json:"user_id" gorm:"type:varchar(36);index"` // nil for guest checkout
	GuestEmail  string      `json:"guest_email" validate:"omitempty,email"`
	Status      OrderStatus `json:"status" gorm:"type:varchar(16)"`

	PaymentStatus    PaymentStatus `json:"payment_status" gorm:"type:varchar(24)"`
	PaymentSessionID string        `json:"payment_session_id" gorm:"uniqueIndex;type:varchar(128)"`
	PaymentIntentID  string        `json:"payment_intent_id" gorm:"type:varchar(128)"`

	Subtotal       float64 `json:"subtotal" validate:"gte=0"`
	ShippingCost   float64 `json:"shipping_cost" validate:"gte=0"`
	DiscountAmount float64 `json:"discount_amount" validate:"gte=0"`
	TaxAmount      float64 `json:"tax_amount" validate:"gte=0"`
	Total          float64 `json:"total" validate:"gte=0"`
	Currency       string  `json:"currency" gorm:"type:varchar(3)"`

	ShippingMethod    string   `json:"shipping_method" gorm:"type:varchar(32)"`
	ShippingAddressID string   `json:"shipping_address_id" gorm:"type:varchar(36)"`
	ShippingAddress   *Address `json:"shipping_address,omitempty" gorm:"foreignKey:ShippingAddressID"`

	PromoCode string `json:"promo_code,omitempty" gorm:"type:varchar(32)"`

	TrackingNumber string `json:"tracking_number,omitempty"`
	Carrier        string `json:"carrier,omitempty"`

	Items      []OrderItem `json:"items" gorm:"foreignKey:OrderID"`
	gorm.Model             // CreatedAt, UpdatedAt, DeletedAt
}

// OrderItem is a denormalized snapshot of a purchased product line,
// deliberately decoupled from the live Product row so later catalog
// edits never alter historical orders. LineTotal is computed once at
// creation and never recomputed.
type OrderItem struct {
	ID        string `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrderID   string `json:"order_id" gorm:"index;type:varchar(36)"`
	ProductID string `json:"product_id" gorm:"type:varchar(36)"`

	ProductTitle string       `json:"product_title"`
	ProductSKU   string       `json:"product_sku" gorm:"type:varchar(64)"`
	ProductGrade ProductGrade `json:"product_grade" gorm:"type:varchar(32)"`

	UnitPrice float64 `json:"unit_price" validate:"gte=0"`
	Quantity  int     `json:"quantity" validate:"gt=0"`
	LineTotal float64 `json:"line_total" validate:"gte=0"`

	SellerID         string  `json:"seller_id" gorm:"type:varchar(36)"`
	SellerCode       string  `json:"seller_code" gorm:"type:varchar(16)"`
	CostPrice        float64 `json:"cost_price"`
	CommissionRate   float64 `json:"commission_rate"`
	CommissionAmount float64 `json:"commission_amount"`

	CreatedAt time.Time `json:"created_at"`
}
