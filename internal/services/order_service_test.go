package services

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"refurbd/internal/config"
	"refurbd/internal/models"
	"refurbd/internal/repositories"
	"refurbd/pkg/payments"
	"refurbd/pkg/rabbitmq"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var orderNumberPattern = regexp.MustCompile(`^RFB-\d{8}-[A-Z2-9]{4}$`)

type capturingPublisher struct {
	events []rabbitmq.OrderCreatedEvent
}

func (p *capturingPublisher) PublishOrderCreated(event rabbitmq.OrderCreatedEvent) error {
	p.events = append(p.events, event)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Currency:              "AUD",
		TaxRate:               0.10,
		OrderNumberPrefix:     "RFB",
		SiteURL:               "https://refurbd.example",
		DefaultShippingMethod: "standard-au",
		ShippingMethods:       testShippingMethods(),
	}
}

type orderFixture struct {
	orders   *repositories.MockOrderRepository
	products *repositories.MockProductRepository
	promos   *repositories.MockPromoCodeRepository
	events   *capturingPublisher
	service  *OrderService
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	cfg := testConfig()
	fx := &orderFixture{
		orders:   repositories.NewMockOrderRepository(),
		products: repositories.NewMockProductRepository(),
		promos:   repositories.NewMockPromoCodeRepository(),
		events:   &capturingPublisher{},
	}
	pricer := NewPricer(cfg.ShippingMethods, cfg.DefaultShippingMethod, cfg.TaxRate)
	fx.service = NewOrderService(fx.orders, fx.products, fx.promos, pricer, fx.events, zap.NewNop(), cfg)
	return fx
}

func testShippingAddress() payments.ShippingAddressInput {
	return payments.ShippingAddressInput{
		FirstName: "Sam",
		LastName:  "Nguyen",
		Line1:     "12 Harbour St",
		City:      "Sydney",
		State:     "NSW",
		Postcode:  "2000",
		Country:   "AU",
	}
}

func checkoutSession(t *testing.T, sessionID, email string, meta *payments.CheckoutMetadata, discountCents int64) *payments.CheckoutSession {
	t.Helper()
	bag, err := payments.EncodeMetadata(meta)
	require.NoError(t, err)
	session := &payments.CheckoutSession{
		ID:              sessionID,
		CustomerEmail:   email,
		PaymentIntentID: "pi_" + sessionID,
		Metadata:        bag,
	}
	session.TotalDetails.AmountDiscount = discountCents
	return session
}

func TestFinalizeCheckoutCreatesOrder(t *testing.T) {
	fx := newOrderFixture(t)
	require.NoError(t, fx.products.Create(&models.Product{
		ID: "p1", Title: "iPhone 13 128GB", Slug: "iphone-13-128gb", SKU: "IPH13-128",
		Grade: models.GradeExcellent, Price: 100, StockQuantity: 10, Status: models.ProductActive,
	}))

	session := checkoutSession(t, "cs_1", "sam@example.com", &payments.CheckoutMetadata{
		UserID:          "user-1",
		ShippingMethod:  "standard-au",
		ShippingAddress: testShippingAddress(),
		Items:           []payments.LineRef{{ProductID: "p1", Quantity: 2}},
	}, 0)

	require.NoError(t, fx.service.FinalizeCheckout(session))

	order, err := fx.orders.GetByPaymentSessionID("cs_1")
	require.NoError(t, err)
	assert.Regexp(t, orderNumberPattern, order.OrderNumber)
	assert.Equal(t, models.OrderConfirmed, order.Status)
	assert.Equal(t, models.PaymentPaid, order.PaymentStatus)
	assert.Equal(t, "pi_cs_1", order.PaymentIntentID)
	assert.Equal(t, "AUD", order.Currency)
	require.NotNil(t, order.UserID)
	assert.Equal(t, "user-1", *order.UserID)

	// Subtotal 200 clears the free-shipping threshold.
	assert.Equal(t, 200.0, order.Subtotal)
	assert.Equal(t, 0.0, order.ShippingCost)
	assert.Equal(t, 200.0, order.Total)
	assert.Equal(t, 18.18, order.TaxAmount)

	require.Len(t, order.Items, 1)
	assert.Equal(t, "iPhone 13 128GB", order.Items[0].ProductTitle)
	assert.Equal(t, 200.0, order.Items[0].LineTotal)

	product, err := fx.products.GetByID("p1")
	require.NoError(t, err)
	assert.Equal(t, 8, product.StockQuantity)

	outbox, ok := fx.orders.OutboxFor(order.ID)
	require.True(t, ok)
	assert.Equal(t, "sam@example.com", outbox.Recipient)
	assert.Contains(t, outbox.Subject, order.OrderNumber)
	assert.Contains(t, outbox.BodyHTML, order.OrderNumber)

	require.Len(t, fx.events.events, 1)
	assert.Equal(t, order.OrderNumber, fx.events.events[0].OrderNumber)
	assert.Equal(t, 200.0, fx.events.events[0].Total)
}

func TestFinalizeCheckoutAppliesPromoAndShipping(t *testing.T) {
	fx := newOrderFixture(t)
	require.NoError(t, fx.products.Create(&models.Product{
		ID: "p2", Title: "Galaxy Buds 2", Slug: "galaxy-buds-2", SKU: "GB2",
		Grade: models.GradeGood, Price: 25, StockQuantity: 5, Status: models.ProductActive,
	}))
	require.NoError(t, fx.promos.Create(&models.PromoCode{
		Code: "WELCOME10", Type: models.PromoFixedAmount, Value: 10,
		MaxUses: 100, UsedCount: 7, IsActive: true,
		ValidFrom: time.Now().Add(-time.Hour), ValidUntil: time.Now().Add(time.Hour),
	}))

	session := checkoutSession(t, "cs_2", "sam@example.com", &payments.CheckoutMetadata{
		ShippingMethod:  "standard-au",
		PromoCode:       "WELCOME10",
		ShippingAddress: testShippingAddress(),
		Items:           []payments.LineRef{{ProductID: "p2", Quantity: 2}},
	}, 1000)

	require.NoError(t, fx.service.FinalizeCheckout(session))

	order, err := fx.orders.GetByPaymentSessionID("cs_2")
	require.NoError(t, err)
	assert.Equal(t, 50.0, order.Subtotal)
	assert.Equal(t, 9.95, order.ShippingCost)
	assert.Equal(t, 10.0, order.DiscountAmount)
	assert.Equal(t, 49.95, order.Total)
	assert.Equal(t, "WELCOME10", order.PromoCode)
	assert.Nil(t, order.UserID) // guest checkout

	promo, err := fx.promos.GetByCode("WELCOME10")
	require.NoError(t, err)
	assert.Equal(t, 8, promo.UsedCount)
}

func TestFinalizeCheckoutSnapshotsSellerCommission(t *testing.T) {
	fx := newOrderFixture(t)
	seller := &models.Seller{ID: "s1", Code: "TECHRECYC", BusinessName: "Tech Recyclers", CommissionRate: 12.5}
	require.NoError(t, fx.products.Create(&models.Product{
		ID: "p3", Title: "ThinkPad X1 Carbon", Slug: "thinkpad-x1", SKU: "TPX1",
		Grade: models.GradeCertifiedRefurbished, Price: 100, CostPrice: 60,
		StockQuantity: 3, Status: models.ProductActive, SellerID: "s1", Seller: seller,
	}))

	session := checkoutSession(t, "cs_3", "sam@example.com", &payments.CheckoutMetadata{
		ShippingMethod:  "express-au",
		ShippingAddress: testShippingAddress(),
		Items:           []payments.LineRef{{ProductID: "p3", Quantity: 1}},
	}, 0)

	require.NoError(t, fx.service.FinalizeCheckout(session))

	order, err := fx.orders.GetByPaymentSessionID("cs_3")
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	item := order.Items[0]
	assert.Equal(t, "TECHRECYC", item.SellerCode)
	assert.Equal(t, 60.0, item.CostPrice)
	assert.Equal(t, 12.5, item.CommissionRate)
	assert.Equal(t, 12.5, item.CommissionAmount)
}

func TestFinalizeCheckoutReplayIsNoOp(t *testing.T) {
	fx := newOrderFixture(t)
	require.NoError(t, fx.products.Create(&models.Product{
		ID: "p1", Title: "iPhone 13 128GB", Slug: "iphone-13-128gb", SKU: "IPH13-128",
		Grade: models.GradeExcellent, Price: 100, StockQuantity: 10, Status: models.ProductActive,
	}))

	session := checkoutSession(t, "cs_replay", "sam@example.com", &payments.CheckoutMetadata{
		ShippingMethod:  "standard-au",
		ShippingAddress: testShippingAddress(),
		Items:           []payments.LineRef{{ProductID: "p1", Quantity: 2}},
	}, 0)

	require.NoError(t, fx.service.FinalizeCheckout(session))
	require.NoError(t, fx.service.FinalizeCheckout(session))

	orders, err := fx.orders.GetAll()
	require.NoError(t, err)
	assert.Len(t, orders, 1)

	// Stock decremented exactly once, one email, one event.
	product, err := fx.products.GetByID("p1")
	require.NoError(t, err)
	assert.Equal(t, 8, product.StockQuantity)
	assert.Len(t, fx.events.events, 1)
}

func TestFinalizeCheckoutMissingProductIsAcknowledged(t *testing.T) {
	fx := newOrderFixture(t)

	session := checkoutSession(t, "cs_ghost", "sam@example.com", &payments.CheckoutMetadata{
		ShippingMethod:  "standard-au",
		ShippingAddress: testShippingAddress(),
		Items:           []payments.LineRef{{ProductID: "ghost", Quantity: 1}},
	}, 0)

	// Integrity violations are logged and acknowledged, never retried.
	require.NoError(t, fx.service.FinalizeCheckout(session))

	orders, err := fx.orders.GetAll()
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.Empty(t, fx.events.events)
}

func TestFinalizeCheckoutMalformedMetadataIsAcknowledged(t *testing.T) {
	fx := newOrderFixture(t)

	session := &payments.CheckoutSession{
		ID:            "cs_bad",
		CustomerEmail: "sam@example.com",
		Metadata: map[string]string{
			"items":           "not json",
			"shippingAddress": "{}",
		},
	}

	require.NoError(t, fx.service.FinalizeCheckout(session))

	orders, err := fx.orders.GetAll()
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestFinalizeCheckoutStockUnderflowKeepsOrder(t *testing.T) {
	fx := newOrderFixture(t)
	require.NoError(t, fx.products.Create(&models.Product{
		ID: "p1", Title: "iPhone 13 128GB", Slug: "iphone-13-128gb", SKU: "IPH13-128",
		Grade: models.GradeExcellent, Price: 100, StockQuantity: 1, Status: models.ProductActive,
	}))

	session := checkoutSession(t, "cs_under", "sam@example.com", &payments.CheckoutMetadata{
		ShippingMethod:  "standard-au",
		ShippingAddress: testShippingAddress(),
		Items:           []payments.LineRef{{ProductID: "p1", Quantity: 2}},
	}, 0)

	// The payment is captured, so the order stands; the refused decrement
	// is an anomaly for manual reconciliation, not a failure.
	require.NoError(t, fx.service.FinalizeCheckout(session))

	orders, err := fx.orders.GetAll()
	require.NoError(t, err)
	assert.Len(t, orders, 1)

	product, err := fx.products.GetByID("p1")
	require.NoError(t, err)
	assert.Equal(t, 1, product.StockQuantity)
}

func TestFinalizeCheckoutPromoCapAnomalyKeepsOrder(t *testing.T) {
	fx := newOrderFixture(t)
	require.NoError(t, fx.products.Create(&models.Product{
		ID: "p1", Title: "iPhone 13 128GB", Slug: "iphone-13-128gb", SKU: "IPH13-128",
		Grade: models.GradeExcellent, Price: 100, StockQuantity: 10, Status: models.ProductActive,
	}))
	require.NoError(t, fx.promos.Create(&models.PromoCode{
		Code: "LASTONE", Type: models.PromoFixedAmount, Value: 5,
		MaxUses: 1, UsedCount: 1, IsActive: true,
		ValidFrom: time.Now().Add(-time.Hour), ValidUntil: time.Now().Add(time.Hour),
	}))

	session := checkoutSession(t, "cs_cap", "sam@example.com", &payments.CheckoutMetadata{
		ShippingMethod:  "standard-au",
		PromoCode:       "LASTONE",
		ShippingAddress: testShippingAddress(),
		Items:           []payments.LineRef{{ProductID: "p1", Quantity: 1}},
	}, 500)

	require.NoError(t, fx.service.FinalizeCheckout(session))

	orders, err := fx.orders.GetAll()
	require.NoError(t, err)
	assert.Len(t, orders, 1)

	// The increment was refused at the cap; the count does not overrun.
	promo, err := fx.promos.GetByCode("LASTONE")
	require.NoError(t, err)
	assert.Equal(t, 1, promo.UsedCount)
}

func TestFinalizeCheckoutWithoutEmailSkipsOutbox(t *testing.T) {
	fx := newOrderFixture(t)
	require.NoError(t, fx.products.Create(&models.Product{
		ID: "p1", Title: "iPhone 13 128GB", Slug: "iphone-13-128gb", SKU: "IPH13-128",
		Grade: models.GradeExcellent, Price: 100, StockQuantity: 10, Status: models.ProductActive,
	}))

	session := checkoutSession(t, "cs_noemail", "", &payments.CheckoutMetadata{
		ShippingMethod:  "standard-au",
		ShippingAddress: testShippingAddress(),
		Items:           []payments.LineRef{{ProductID: "p1", Quantity: 1}},
	}, 0)

	require.NoError(t, fx.service.FinalizeCheckout(session))

	order, err := fx.orders.GetByPaymentSessionID("cs_noemail")
	require.NoError(t, err)
	_, ok := fx.orders.OutboxFor(order.ID)
	assert.False(t, ok)
}

// collidingOrderRepository forces order number collisions for the first
// N create attempts.
type collidingOrderRepository struct {
	*repositories.MockOrderRepository
	rejections int
	attempts   int
}

func (r *collidingOrderRepository) CreateFinalized(order *models.Order, address *models.Address, outbox *models.EmailOutbox) error {
	r.attempts++
	if r.attempts <= r.rejections {
		return repositories.ErrDuplicateOrderNumber
	}
	return r.MockOrderRepository.CreateFinalized(order, address, outbox)
}

func TestFinalizeCheckoutRetriesOrderNumberCollision(t *testing.T) {
	cfg := testConfig()
	products := repositories.NewMockProductRepository()
	promos := repositories.NewMockPromoCodeRepository()
	orders := &collidingOrderRepository{
		MockOrderRepository: repositories.NewMockOrderRepository(),
		rejections:          2,
	}
	pricer := NewPricer(cfg.ShippingMethods, cfg.DefaultShippingMethod, cfg.TaxRate)
	service := NewOrderService(orders, products, promos, pricer, nil, zap.NewNop(), cfg)

	require.NoError(t, products.Create(&models.Product{
		ID: "p1", Title: "iPhone 13 128GB", Slug: "iphone-13-128gb", SKU: "IPH13-128",
		Grade: models.GradeExcellent, Price: 100, StockQuantity: 10, Status: models.ProductActive,
	}))

	session := checkoutSession(t, "cs_collide", "sam@example.com", &payments.CheckoutMetadata{
		ShippingMethod:  "standard-au",
		ShippingAddress: testShippingAddress(),
		Items:           []payments.LineRef{{ProductID: "p1", Quantity: 1}},
	}, 0)

	require.NoError(t, service.FinalizeCheckout(session))
	assert.Equal(t, 3, orders.attempts)

	all, err := orders.GetAll()
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestFinalizeCheckoutExhaustsOrderNumberAttempts(t *testing.T) {
	cfg := testConfig()
	products := repositories.NewMockProductRepository()
	orders := &collidingOrderRepository{
		MockOrderRepository: repositories.NewMockOrderRepository(),
		rejections:          maxOrderNumberAttempts,
	}
	pricer := NewPricer(cfg.ShippingMethods, cfg.DefaultShippingMethod, cfg.TaxRate)
	service := NewOrderService(orders, products, repositories.NewMockPromoCodeRepository(), pricer, nil, zap.NewNop(), cfg)

	require.NoError(t, products.Create(&models.Product{
		ID: "p1", Title: "iPhone 13 128GB", Slug: "iphone-13-128gb", SKU: "IPH13-128",
		Grade: models.GradeExcellent, Price: 100, StockQuantity: 10, Status: models.ProductActive,
	}))

	session := checkoutSession(t, "cs_exhaust", "sam@example.com", &payments.CheckoutMetadata{
		ShippingMethod:  "standard-au",
		ShippingAddress: testShippingAddress(),
		Items:           []payments.LineRef{{ProductID: "p1", Quantity: 1}},
	}, 0)

	assert.Error(t, service.FinalizeCheckout(session))
}

// failingOrderRepository simulates a transient store outage.
type failingOrderRepository struct {
	*repositories.MockOrderRepository
}

func (r *failingOrderRepository) CreateFinalized(order *models.Order, address *models.Address, outbox *models.EmailOutbox) error {
	return errors.New("connection refused")
}

func TestFinalizeCheckoutStoreFailurePropagates(t *testing.T) {
	cfg := testConfig()
	products := repositories.NewMockProductRepository()
	orders := &failingOrderRepository{MockOrderRepository: repositories.NewMockOrderRepository()}
	pricer := NewPricer(cfg.ShippingMethods, cfg.DefaultShippingMethod, cfg.TaxRate)
	service := NewOrderService(orders, products, repositories.NewMockPromoCodeRepository(), pricer, nil, zap.NewNop(), cfg)

	require.NoError(t, products.Create(&models.Product{
		ID: "p1", Title: "iPhone 13 128GB", Slug: "iphone-13-128gb", SKU: "IPH13-128",
		Grade: models.GradeExcellent, Price: 100, StockQuantity: 10, Status: models.ProductActive,
	}))

	session := checkoutSession(t, "cs_down", "sam@example.com", &payments.CheckoutMetadata{
		ShippingMethod:  "standard-au",
		ShippingAddress: testShippingAddress(),
		Items:           []payments.LineRef{{ProductID: "p1", Quantity: 1}},
	}, 0)

	// Transient failures surface so the provider redelivers.
	assert.Error(t, service.FinalizeCheckout(session))

	product, err := products.GetByID("p1")
	require.NoError(t, err)
	assert.Equal(t, 10, product.StockQuantity)
}

func TestGetOrderNumberBySession(t *testing.T) {
	fx := newOrderFixture(t)
	require.NoError(t, fx.products.Create(&models.Product{
		ID: "p1", Title: "iPhone 13 128GB", Slug: "iphone-13-128gb", SKU: "IPH13-128",
		Grade: models.GradeExcellent, Price: 100, StockQuantity: 10, Status: models.ProductActive,
	}))

	number, err := fx.service.GetOrderNumberBySession("cs_pendingwebhook")
	require.NoError(t, err)
	assert.Empty(t, number)

	session := checkoutSession(t, "cs_done", "sam@example.com", &payments.CheckoutMetadata{
		ShippingMethod:  "standard-au",
		ShippingAddress: testShippingAddress(),
		Items:           []payments.LineRef{{ProductID: "p1", Quantity: 1}},
	}, 0)
	require.NoError(t, fx.service.FinalizeCheckout(session))

	number, err = fx.service.GetOrderNumberBySession("cs_done")
	require.NoError(t, err)
	assert.Regexp(t, orderNumberPattern, number)
}

func TestUpdateOrderStatusRejectsUnknownStatus(t *testing.T) {
	fx := newOrderFixture(t)

	err := fx.service.UpdateOrderStatus("order-1", models.OrderStatus("TELEPORTED"))
	assert.Error(t, err)
}
