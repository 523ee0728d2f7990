package services

import (
	"math"

	"refurbd/internal/config"
)

// QuoteLine is one priced cart line.
type QuoteLine struct {
	UnitPrice float64
	Quantity  int
}

// Quote is the full price breakdown for a cart. The same arithmetic
// runs pre-checkout (what the user sees) and in the webhook pipeline
// (what gets persisted), so the two can never disagree.
type Quote struct {
	Subtotal       float64 `json:"subtotal"`
	ShippingCost   float64 `json:"shipping_cost"`
	DiscountAmount float64 `json:"discount_amount"`
	TaxAmount      float64 `json:"tax_amount"`
	Total          float64 `json:"total"`
}

// Pricer computes subtotal, shipping, included tax and total from the
// configured shipping tiers and tax rate. It is a pure calculator with
// no side effects.
type Pricer struct {
	methods       map[string]config.ShippingMethod
	defaultMethod string
	taxRate       float64
}

// NewPricer builds a Pricer from configured shipping tiers. An unknown
// shipping method id resolves to the default tier.
func NewPricer(methods []config.ShippingMethod, defaultMethod string, taxRate float64) *Pricer {
	byID := make(map[string]config.ShippingMethod, len(methods))
	for _, m := range methods {
		byID[m.ID] = m
	}
	return &Pricer{
		methods:       byID,
		defaultMethod: defaultMethod,
		taxRate:       taxRate,
	}
}

// Method resolves a shipping method id to its tier record.
func (p *Pricer) Method(methodID string) config.ShippingMethod {
	if m, ok := p.methods[methodID]; ok {
		return m
	}
	return p.methods[p.defaultMethod]
}

// ShippingCost derives the fee for a method given the cart subtotal,
// applying the tier's free-over-threshold waiver when configured.
func (p *Pricer) ShippingCost(methodID string, subtotal float64) float64 {
	m := p.Method(methodID)
	if m.FreeAbove > 0 && subtotal >= m.FreeAbove {
		return 0
	}
	return m.Price
}

// IncludedTax extracts the tax component of a tax-inclusive total:
// total / (1 + 1/rate). With the 10% GST rate this is total/11.
func (p *Pricer) IncludedTax(total float64) float64 {
	if p.taxRate <= 0 {
		return 0
	}
	return round2(total / (1 + 1/p.taxRate))
}

// Price computes the full quote: total = subtotal + shipping - discount.
func (p *Pricer) Price(lines []QuoteLine, methodID string, discount float64) Quote {
	var subtotal float64
	for _, l := range lines {
		subtotal += l.UnitPrice * float64(l.Quantity)
	}
	subtotal = round2(subtotal)
	shipping := p.ShippingCost(methodID, subtotal)
	total := round2(subtotal + shipping - discount)
	if total < 0 {
		total = 0
	}
	return Quote{
		Subtotal:       subtotal,
		ShippingCost:   shipping,
		DiscountAmount: round2(discount),
		TaxAmount:      p.IncludedTax(total),
		Total:          total,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
