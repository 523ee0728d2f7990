package services

import (
	"context"
	"testing"
	"time"

	"refurbd/internal/models"
	"refurbd/internal/repositories"
	"refurbd/pkg/payments"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubGateway struct {
	params  payments.SessionParams
	session *payments.Session
	err     error
}

func (g *stubGateway) CreateCheckoutSession(_ context.Context, params payments.SessionParams) (*payments.Session, error) {
	g.params = params
	if g.err != nil {
		return nil, g.err
	}
	return g.session, nil
}

type checkoutFixture struct {
	products *repositories.MockProductRepository
	promos   *repositories.MockPromoCodeRepository
	gateway  *stubGateway
	service  *CheckoutService
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()
	cfg := testConfig()
	fx := &checkoutFixture{
		products: repositories.NewMockProductRepository(),
		promos:   repositories.NewMockPromoCodeRepository(),
		gateway: &stubGateway{
			session: &payments.Session{ID: "cs_new", URL: "https://pay.example/cs_new"},
		},
	}
	pricer := NewPricer(cfg.ShippingMethods, cfg.DefaultShippingMethod, cfg.TaxRate)
	fx.service = NewCheckoutService(fx.products, fx.promos, fx.gateway, pricer, zap.NewNop(), cfg)
	return fx
}

func activeProduct(id string, price float64, stock int) *models.Product {
	return &models.Product{
		ID: id, Title: "Product " + id, Slug: "product-" + id, SKU: "SKU-" + id,
		Grade: models.GradeGood, Price: price, StockQuantity: stock, Status: models.ProductActive,
	}
}

func TestCreateSessionBuildsProviderPayload(t *testing.T) {
	fx := newCheckoutFixture(t)
	require.NoError(t, fx.products.Create(activeProduct("p1", 999.95, 4)))

	session, err := fx.service.CreateSession(context.Background(), "user-1", CheckoutRequest{
		Items:           []CheckoutItem{{ProductID: "p1", Quantity: 1}},
		ShippingAddress: testShippingAddress(),
		ShippingMethod:  "express-au",
		Email:           "sam@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/cs_new", session.URL)

	params := fx.gateway.params
	assert.Equal(t, "aud", params.Currency)
	assert.Equal(t, "sam@example.com", params.CustomerEmail)
	assert.Contains(t, params.SuccessURL, "{CHECKOUT_SESSION_ID}")

	// Product line plus a shipping line, both in minor units.
	require.Len(t, params.LineItems, 2)
	assert.Equal(t, int64(99995), params.LineItems[0].UnitAmount)
	assert.Equal(t, "Shipping", params.LineItems[1].Name)
	assert.Equal(t, int64(1495), params.LineItems[1].UnitAmount)

	// The metadata bag must round-trip through the webhook decoder.
	meta, err := payments.ParseMetadata(params.Metadata)
	require.NoError(t, err)
	assert.Equal(t, "user-1", meta.UserID)
	assert.Equal(t, "express-au", meta.ShippingMethod)
	require.Len(t, meta.Items, 1)
	assert.Equal(t, "p1", meta.Items[0].ProductID)
	assert.Equal(t, 1, meta.Items[0].Quantity)
}

func TestCreateSessionOmitsWaivedShippingLine(t *testing.T) {
	fx := newCheckoutFixture(t)
	require.NoError(t, fx.products.Create(activeProduct("p1", 150, 4)))

	_, err := fx.service.CreateSession(context.Background(), "", CheckoutRequest{
		Items:           []CheckoutItem{{ProductID: "p1", Quantity: 1}},
		ShippingAddress: testShippingAddress(),
		ShippingMethod:  "standard-au",
	})
	require.NoError(t, err)

	require.Len(t, fx.gateway.params.LineItems, 1)
}

func TestCreateSessionAppliesUsablePromo(t *testing.T) {
	fx := newCheckoutFixture(t)
	require.NoError(t, fx.products.Create(activeProduct("p1", 100, 4)))
	require.NoError(t, fx.promos.Create(&models.PromoCode{
		Code: "TAKE20", Type: models.PromoPercentage, Value: 20, IsActive: true,
		ValidFrom: time.Now().Add(-time.Hour), ValidUntil: time.Now().Add(time.Hour),
	}))

	_, err := fx.service.CreateSession(context.Background(), "", CheckoutRequest{
		Items:           []CheckoutItem{{ProductID: "p1", Quantity: 1}},
		ShippingAddress: testShippingAddress(),
		PromoCode:       "TAKE20",
	})
	require.NoError(t, err)

	require.NotNil(t, fx.gateway.params.Discount)
	assert.Equal(t, 20.0, fx.gateway.params.Discount.PercentOff)

	meta, err := payments.ParseMetadata(fx.gateway.params.Metadata)
	require.NoError(t, err)
	assert.Equal(t, "TAKE20", meta.PromoCode)
}

func TestCreateSessionIgnoresUnusablePromo(t *testing.T) {
	fx := newCheckoutFixture(t)
	require.NoError(t, fx.products.Create(activeProduct("p1", 100, 4)))
	require.NoError(t, fx.promos.Create(&models.PromoCode{
		Code: "EXPIRED", Type: models.PromoPercentage, Value: 20, IsActive: true,
		ValidFrom: time.Now().Add(-48 * time.Hour), ValidUntil: time.Now().Add(-24 * time.Hour),
	}))

	_, err := fx.service.CreateSession(context.Background(), "", CheckoutRequest{
		Items:           []CheckoutItem{{ProductID: "p1", Quantity: 1}},
		ShippingAddress: testShippingAddress(),
		PromoCode:       "EXPIRED",
	})
	require.NoError(t, err)

	assert.Nil(t, fx.gateway.params.Discount)
	meta, err := payments.ParseMetadata(fx.gateway.params.Metadata)
	require.NoError(t, err)
	assert.Empty(t, meta.PromoCode)
}

func TestCreateSessionRejectsInactiveProduct(t *testing.T) {
	fx := newCheckoutFixture(t)
	product := activeProduct("p1", 100, 4)
	product.Status = models.ProductArchived
	require.NoError(t, fx.products.Create(product))

	_, err := fx.service.CreateSession(context.Background(), "", CheckoutRequest{
		Items:           []CheckoutItem{{ProductID: "p1", Quantity: 1}},
		ShippingAddress: testShippingAddress(),
	})
	assert.ErrorIs(t, err, ErrProductsUnavailable)
}

func TestCreateSessionRejectsInsufficientStock(t *testing.T) {
	fx := newCheckoutFixture(t)
	require.NoError(t, fx.products.Create(activeProduct("p1", 100, 1)))

	_, err := fx.service.CreateSession(context.Background(), "", CheckoutRequest{
		Items:           []CheckoutItem{{ProductID: "p1", Quantity: 2}},
		ShippingAddress: testShippingAddress(),
	})
	assert.ErrorIs(t, err, ErrProductsUnavailable)
}

func TestCreateSessionRejectsMissingProduct(t *testing.T) {
	fx := newCheckoutFixture(t)

	_, err := fx.service.CreateSession(context.Background(), "", CheckoutRequest{
		Items:           []CheckoutItem{{ProductID: "ghost", Quantity: 1}},
		ShippingAddress: testShippingAddress(),
	})
	assert.ErrorIs(t, err, ErrProductsUnavailable)
}

func TestQuoteCartMatchesFinalizationArithmetic(t *testing.T) {
	fx := newCheckoutFixture(t)
	require.NoError(t, fx.products.Create(activeProduct("p1", 25, 10)))
	require.NoError(t, fx.promos.Create(&models.PromoCode{
		Code: "TAKE20", Type: models.PromoPercentage, Value: 20, IsActive: true,
		ValidFrom: time.Now().Add(-time.Hour), ValidUntil: time.Now().Add(time.Hour),
	}))

	quote, err := fx.service.QuoteCart([]CheckoutItem{{ProductID: "p1", Quantity: 2}}, "standard-au", "TAKE20")
	require.NoError(t, err)

	assert.Equal(t, 50.0, quote.Subtotal)
	assert.Equal(t, 9.95, quote.ShippingCost)
	assert.Equal(t, 10.0, quote.DiscountAmount)
	assert.Equal(t, 49.95, quote.Total)
	assert.Equal(t, 4.54, quote.TaxAmount)
}

func TestQuoteCartUnusablePromoYieldsNoDiscount(t *testing.T) {
	fx := newCheckoutFixture(t)
	require.NoError(t, fx.products.Create(activeProduct("p1", 25, 10)))

	quote, err := fx.service.QuoteCart([]CheckoutItem{{ProductID: "p1", Quantity: 2}}, "standard-au", "NOSUCHCODE")
	require.NoError(t, err)
	assert.Equal(t, 0.0, quote.DiscountAmount)
}

func TestQuoteCartFixedDiscountCappedAtSubtotal(t *testing.T) {
	fx := newCheckoutFixture(t)
	require.NoError(t, fx.products.Create(activeProduct("p1", 5, 10)))
	require.NoError(t, fx.promos.Create(&models.PromoCode{
		Code: "BIGCREDIT", Type: models.PromoFixedAmount, Value: 50, IsActive: true,
		ValidFrom: time.Now().Add(-time.Hour), ValidUntil: time.Now().Add(time.Hour),
	}))

	quote, err := fx.service.QuoteCart([]CheckoutItem{{ProductID: "p1", Quantity: 1}}, "standard-au", "BIGCREDIT")
	require.NoError(t, err)
	assert.Equal(t, 5.0, quote.DiscountAmount)
	assert.Equal(t, 9.95, quote.Total)
}

func TestQuoteCartRejectsUnavailableProducts(t *testing.T) {
	fx := newCheckoutFixture(t)

	_, err := fx.service.QuoteCart([]CheckoutItem{{ProductID: "ghost", Quantity: 1}}, "standard-au", "")
	assert.ErrorIs(t, err, ErrProductsUnavailable)
}
