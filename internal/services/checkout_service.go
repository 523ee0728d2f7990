package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"refurbd/internal/config"
	"refurbd/internal/models"
	"refurbd/internal/repositories"
	"refurbd/pkg/payments"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// ErrProductsUnavailable is returned when a requested product no longer
// resolves as active purchasable stock.
var ErrProductsUnavailable = errors.New("some products are unavailable")

// CheckoutItem is one requested cart line.
type CheckoutItem struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gt=0,lte=5"`
}

// CheckoutRequest is the payload for creating a hosted checkout session.
type CheckoutRequest struct {
	Items           []CheckoutItem                `json:"items" validate:"required,min=1,dive"`
	ShippingAddress payments.ShippingAddressInput `json:"shipping_address" validate:"required"`
	ShippingMethod  string                        `json:"shipping_method"`
	PromoCode       string                        `json:"promo_code"`
	Email           string                        `json:"email" validate:"omitempty,email"`
}

// CheckoutService validates carts and creates provider checkout
// sessions carrying the metadata bag the webhook later reads back.
type CheckoutService struct {
	productRepo repositories.ProductRepository
	promoRepo   repositories.PromoCodeRepository
	gateway     payments.Gateway
	pricer      *Pricer
	validate    *validator.Validate
	log         *zap.Logger
	siteURL     string
	currency    string
	now         func() time.Time
}

// NewCheckoutService creates a new CheckoutService.
func NewCheckoutService(
	productRepo repositories.ProductRepository,
	promoRepo repositories.PromoCodeRepository,
	gateway payments.Gateway,
	pricer *Pricer,
	log *zap.Logger,
	cfg *config.Config,
) *CheckoutService {
	return &CheckoutService{
		productRepo: productRepo,
		promoRepo:   promoRepo,
		gateway:     gateway,
		pricer:      pricer,
		validate:    validator.New(),
		log:         log,
		siteURL:     cfg.SiteURL,
		currency:    strings.ToLower(cfg.Currency),
		now:         time.Now,
	}
}

// resolveCart fetches the requested products and rejects the cart when
// any line cannot be fulfilled (missing, inactive or out of stock).
func (s *CheckoutService) resolveCart(items []CheckoutItem) ([]models.Product, error) {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ProductID
	}
	products, err := s.productRepo.GetByIDs(ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve cart products: %w", err)
	}
	if len(products) != len(items) {
		return nil, ErrProductsUnavailable
	}
	byID := make(map[string]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	for _, item := range items {
		p := byID[item.ProductID]
		if p.Status != models.ProductActive || p.StockQuantity < item.Quantity {
			return nil, ErrProductsUnavailable
		}
	}
	return products, nil
}

// estimateDiscount validates the promo code and returns the discount it
// would apply to the given subtotal. An unusable code yields zero, the
// same answer the provider will give, so the pre-payment quote and the
// final order agree.
func (s *CheckoutService) estimateDiscount(code string, subtotal float64) float64 {
	if code == "" {
		return 0
	}
	promo, err := s.promoRepo.GetByCode(code)
	if err != nil || !promo.Usable(s.now()) {
		return 0
	}
	var discount float64
	switch promo.Type {
	case models.PromoPercentage:
		discount = subtotal * promo.Value / 100
	case models.PromoFixedAmount:
		discount = promo.Value
	}
	return round2(math.Min(discount, subtotal))
}

// QuoteCart computes the price breakdown shown to the user before
// payment. It runs the exact arithmetic the finalization pipeline will
// persist, promo validation included, so any discrepancy surfaces
// before capture rather than after.
func (s *CheckoutService) QuoteCart(items []CheckoutItem, shippingMethod, promoCode string) (Quote, error) {
	if len(items) == 0 {
		return Quote{}, errors.New("cart is empty")
	}
	for _, item := range items {
		if err := s.validate.Struct(item); err != nil {
			return Quote{}, fmt.Errorf("invalid cart: %w", err)
		}
	}
	products, err := s.resolveCart(items)
	if err != nil {
		return Quote{}, err
	}
	byID := make(map[string]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	lines := make([]QuoteLine, len(items))
	var subtotal float64
	for i, item := range items {
		p := byID[item.ProductID]
		lines[i] = QuoteLine{UnitPrice: p.Price, Quantity: item.Quantity}
		subtotal += p.Price * float64(item.Quantity)
	}
	discount := s.estimateDiscount(promoCode, round2(subtotal))
	return s.pricer.Price(lines, shippingMethod, discount), nil
}

// CreateSession validates the cart and creates the provider checkout
// session, embedding the metadata bag read back verbatim by the
// webhook. userID is empty for guest checkout.
func (s *CheckoutService) CreateSession(ctx context.Context, userID string, req CheckoutRequest) (*payments.Session, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid checkout request: %w", err)
	}
	products, err := s.resolveCart(req.Items)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	lineItems := make([]payments.SessionLineItem, 0, len(req.Items)+1)
	var subtotal float64
	for _, item := range req.Items {
		p := byID[item.ProductID]
		lineItems = append(lineItems, payments.SessionLineItem{
			Name:        p.Title,
			Description: fmt.Sprintf("Grade: %s", strings.ReplaceAll(string(p.Grade), "_", " ")),
			UnitAmount:  int64(math.Round(p.Price * 100)),
			Quantity:    item.Quantity,
		})
		subtotal += p.Price * float64(item.Quantity)
	}
	subtotal = round2(subtotal)

	method := s.pricer.Method(req.ShippingMethod)
	shippingCost := s.pricer.ShippingCost(req.ShippingMethod, subtotal)
	if shippingCost > 0 {
		lineItems = append(lineItems, payments.SessionLineItem{
			Name:        "Shipping",
			Description: method.Description,
			UnitAmount:  int64(math.Round(shippingCost * 100)),
			Quantity:    1,
		})
	}

	var discount *payments.SessionDiscount
	promoCode := ""
	if req.PromoCode != "" {
		promo, err := s.promoRepo.GetByCode(req.PromoCode)
		if err == nil && promo.Usable(s.now()) {
			promoCode = promo.Code
			switch promo.Type {
			case models.PromoPercentage:
				discount = &payments.SessionDiscount{PercentOff: promo.Value}
			case models.PromoFixedAmount:
				discount = &payments.SessionDiscount{AmountOff: int64(math.Round(promo.Value * 100))}
			}
		} else {
			s.log.Info("ignoring unusable promo code at checkout",
				zap.String("promo_code", req.PromoCode))
		}
	}

	itemRefs := make([]payments.LineRef, len(req.Items))
	for i, item := range req.Items {
		itemRefs[i] = payments.LineRef{ProductID: item.ProductID, Quantity: item.Quantity}
	}
	metadata, err := payments.EncodeMetadata(&payments.CheckoutMetadata{
		UserID:          userID,
		ShippingMethod:  method.ID,
		PromoCode:       promoCode,
		ShippingAddress: req.ShippingAddress,
		Items:           itemRefs,
	})
	if err != nil {
		return nil, err
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, payments.SessionParams{
		Currency:      s.currency,
		LineItems:     lineItems,
		CustomerEmail: req.Email,
		Metadata:      metadata,
		Discount:      discount,
		SuccessURL:    s.siteURL + "/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     s.siteURL + "/cart",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}
	return session, nil
}
