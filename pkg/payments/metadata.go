package payments

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// LineRef is one {product, quantity} pairing inside the metadata bag.
type LineRef struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

// ShippingAddressInput is the serialized shipping address the checkout
// page embedded into the session metadata.
type ShippingAddressInput struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Company   string `json:"company"`
	Line1     string `json:"line1" validate:"required"`
	Line2     string `json:"line2"`
	City      string `json:"city" validate:"required"`
	State     string `json:"state" validate:"required"`
	Postcode  string `json:"postcode" validate:"required"`
	Country   string `json:"country"`
	Phone     string `json:"phone"`
}

// CheckoutMetadata is the validated form of the session metadata bag.
// The bag is written at session-creation time and read back verbatim by
// the webhook; it is decoded and validated exactly once, here, so no
// undefined field ever propagates into the pipeline.
type CheckoutMetadata struct {
	UserID          string
	ShippingMethod  string
	PromoCode       string
	ShippingAddress ShippingAddressInput
	Items           []LineRef
}

// Metadata bag keys, shared by session creation and webhook decoding.
const (
	metaUserID          = "userId"
	metaShippingAddress = "shippingAddress"
	metaShippingMethod  = "shippingMethod"
	metaPromoCode       = "promoCode"
	metaItems           = "items"
)

// ParseMetadata decodes and validates the raw metadata bag. Any failure
// is an integrity violation: the payment is already captured, so the
// caller logs and acknowledges rather than retrying.
func ParseMetadata(raw map[string]string) (*CheckoutMetadata, error) {
	if raw == nil {
		return nil, fmt.Errorf("metadata bag missing")
	}

	meta := &CheckoutMetadata{
		UserID:         raw[metaUserID],
		ShippingMethod: raw[metaShippingMethod],
		PromoCode:      raw[metaPromoCode],
	}

	if err := json.Unmarshal([]byte(raw[metaItems]), &meta.Items); err != nil {
		return nil, fmt.Errorf("malformed items metadata: %w", err)
	}
	if len(meta.Items) == 0 {
		return nil, fmt.Errorf("metadata contains no line items")
	}
	if err := json.Unmarshal([]byte(raw[metaShippingAddress]), &meta.ShippingAddress); err != nil {
		return nil, fmt.Errorf("malformed shipping address metadata: %w", err)
	}
	if meta.ShippingAddress.Country == "" {
		meta.ShippingAddress.Country = "AU"
	}

	for i := range meta.Items {
		if err := validate.Struct(meta.Items[i]); err != nil {
			return nil, fmt.Errorf("invalid line items: %w", err)
		}
	}
	if err := validate.Struct(meta.ShippingAddress); err != nil {
		return nil, fmt.Errorf("invalid shipping address: %w", err)
	}
	return meta, nil
}

// EncodeMetadata builds the bag embedded into a new checkout session.
func EncodeMetadata(meta *CheckoutMetadata) (map[string]string, error) {
	items, err := json.Marshal(meta.Items)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal items: %w", err)
	}
	address, err := json.Marshal(meta.ShippingAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal shipping address: %w", err)
	}
	return map[string]string{
		metaUserID:          meta.UserID,
		metaShippingAddress: string(address),
		metaShippingMethod:  meta.ShippingMethod,
		metaPromoCode:       meta.PromoCode,
		metaItems:           string(items),
	}, nil
}
