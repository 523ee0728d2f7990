// Package payments wraps the external payment provider: webhook
// signature verification, event decoding, the versioned checkout
// metadata bag, and hosted checkout session creation.
package payments

import (
	"encoding/json"
	"errors"
	"fmt"
)

// EventCheckoutCompleted is the only event type the order pipeline acts
// on. Every other type is acknowledged and ignored, per the provider's
// at-least-once delivery contract.
const EventCheckoutCompleted = "checkout.session.completed"

// SignatureHeader carries the webhook signature on inbound requests.
const SignatureHeader = "X-Payment-Signature"

// Event is a provider webhook notification.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// CheckoutSession is the provider's view of one attempted purchase.
// Monetary amounts from the provider are in minor units (cents).
type CheckoutSession struct {
	ID              string `json:"id"`
	CustomerEmail   string `json:"customer_email"`
	PaymentIntentID string `json:"payment_intent"`
	TotalDetails    struct {
		AmountDiscount int64 `json:"amount_discount"`
	} `json:"total_details"`
	Metadata map[string]string `json:"metadata"`
}

// CheckoutSession decodes the event payload as a checkout session.
func (e *Event) CheckoutSession() (*CheckoutSession, error) {
	var session CheckoutSession
	if err := json.Unmarshal(e.Data.Object, &session); err != nil {
		return nil, fmt.Errorf("failed to decode checkout session from event %s: %w", e.ID, err)
	}
	if session.ID == "" {
		return nil, errors.New("checkout session payload missing id")
	}
	return &session, nil
}

// DiscountAmount converts the provider's minor-unit discount to dollars.
func (s *CheckoutSession) DiscountAmount() float64 {
	return float64(s.TotalDetails.AmountDiscount) / 100
}
