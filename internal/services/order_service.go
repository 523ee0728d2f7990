package services

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"refurbd/internal/config"
	"refurbd/internal/models"
	"refurbd/internal/repositories"
	"refurbd/pkg/mailer"
	"refurbd/pkg/payments"
	"refurbd/pkg/rabbitmq"

	"go.uber.org/zap"
)

// OrderEventPublisher publishes order lifecycle events to the broker.
type OrderEventPublisher interface {
	PublishOrderCreated(event rabbitmq.OrderCreatedEvent) error
}

// Suffix alphabet drops 0/O/1/I/L to keep order numbers readable over
// the phone.
const orderSuffixAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const maxOrderNumberAttempts = 5

// OrderService owns the checkout-to-order finalization pipeline and
// order queries.
type OrderService struct {
	orderRepo   repositories.OrderRepository
	productRepo repositories.ProductRepository
	promoRepo   repositories.PromoCodeRepository
	pricer      *Pricer
	publisher   OrderEventPublisher // nil when the broker is unavailable
	log         *zap.Logger

	orderPrefix string
	currency    string
	siteURL     string
	now         func() time.Time
}

// NewOrderService creates a new OrderService.
func NewOrderService(
	orderRepo repositories.OrderRepository,
	productRepo repositories.ProductRepository,
	promoRepo repositories.PromoCodeRepository,
	pricer *Pricer,
	publisher OrderEventPublisher,
	log *zap.Logger,
	cfg *config.Config,
) *OrderService {
	return &OrderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		promoRepo:   promoRepo,
		pricer:      pricer,
		publisher:   publisher,
		log:         log,
		orderPrefix: cfg.OrderNumberPrefix,
		currency:    cfg.Currency,
		siteURL:     cfg.SiteURL,
		now:         time.Now,
	}
}

// FinalizeCheckout turns one verified checkout-completed event into a
// durable order plus side effects. It is safe against duplicate webhook
// delivery: replaying the same event produces no new order, no second
// stock decrement and no second email.
//
// A non-nil return means a transient store failure; the handler maps it
// to a 5xx so the provider redelivers. Integrity violations (missing
// products, malformed metadata) are logged and acknowledged instead:
// the payment is already captured and redelivery cannot fix the data.
func (s *OrderService) FinalizeCheckout(session *payments.CheckoutSession) error {
	log := s.log.With(zap.String("payment_session_id", session.ID))

	// Idempotency probe. The unique index on payment_session_id backs
	// this up for the concurrent-redelivery race.
	if existing, err := s.orderRepo.GetByPaymentSessionID(session.ID); err == nil {
		log.Info("duplicate webhook delivery, order already exists",
			zap.String("order_number", existing.OrderNumber))
		return nil
	} else if !errors.Is(err, repositories.ErrOrderNotFound) {
		return fmt.Errorf("idempotency lookup failed: %w", err)
	}

	meta, err := payments.ParseMetadata(session.Metadata)
	if err != nil {
		log.Error("integrity violation: rejecting malformed checkout metadata", zap.Error(err))
		return nil
	}

	ids := make([]string, len(meta.Items))
	for i, item := range meta.Items {
		ids[i] = item.ProductID
	}
	products, err := s.productRepo.GetByIDs(ids)
	if err != nil {
		return fmt.Errorf("failed to resolve products: %w", err)
	}
	if len(products) != len(meta.Items) {
		log.Error("integrity violation: products missing at finalization, manual reconciliation required",
			zap.Int("requested", len(meta.Items)),
			zap.Int("resolved", len(products)))
		return nil
	}
	byID := make(map[string]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	items := make([]models.OrderItem, 0, len(meta.Items))
	lines := make([]QuoteLine, 0, len(meta.Items))
	for _, ref := range meta.Items {
		product := byID[ref.ProductID]
		lineTotal := round2(product.Price * float64(ref.Quantity))
		item := models.OrderItem{
			ProductID:    product.ID,
			ProductTitle: product.Title,
			ProductSKU:   product.SKU,
			ProductGrade: product.Grade,
			UnitPrice:    product.Price,
			Quantity:     ref.Quantity,
			LineTotal:    lineTotal,
			CostPrice:    product.CostPrice,
		}
		if product.Seller != nil {
			item.SellerID = product.Seller.ID
			item.SellerCode = product.Seller.Code
			item.CommissionRate = product.Seller.CommissionRate
			if product.CostPrice > 0 {
				item.CommissionAmount = round2(lineTotal * product.Seller.CommissionRate / 100)
			}
		}
		items = append(items, item)
		lines = append(lines, QuoteLine{UnitPrice: product.Price, Quantity: ref.Quantity})
	}

	quote := s.pricer.Price(lines, meta.ShippingMethod, session.DiscountAmount())

	var userID *string
	if meta.UserID != "" {
		uid := meta.UserID
		userID = &uid
	}
	address := &models.Address{
		UserID:    userID,
		FirstName: meta.ShippingAddress.FirstName,
		LastName:  meta.ShippingAddress.LastName,
		Company:   meta.ShippingAddress.Company,
		Line1:     meta.ShippingAddress.Line1,
		Line2:     meta.ShippingAddress.Line2,
		City:      meta.ShippingAddress.City,
		State:     meta.ShippingAddress.State,
		Postcode:  meta.ShippingAddress.Postcode,
		Country:   meta.ShippingAddress.Country,
		Phone:     meta.ShippingAddress.Phone,
	}

	var created *models.Order
	for attempt := 0; attempt < maxOrderNumberAttempts; attempt++ {
		orderNumber, err := s.generateOrderNumber()
		if err != nil {
			return fmt.Errorf("failed to generate order number: %w", err)
		}

		order := &models.Order{
			OrderNumber:      orderNumber,
			UserID:           userID,
			GuestEmail:       session.CustomerEmail,
			Status:           models.OrderConfirmed,
			PaymentStatus:    models.PaymentPaid,
			PaymentSessionID: session.ID,
			PaymentIntentID:  session.PaymentIntentID,
			Subtotal:         quote.Subtotal,
			ShippingCost:     quote.ShippingCost,
			DiscountAmount:   quote.DiscountAmount,
			TaxAmount:        quote.TaxAmount,
			Total:            quote.Total,
			Currency:         s.currency,
			ShippingMethod:   s.pricer.Method(meta.ShippingMethod).ID,
			PromoCode:        meta.PromoCode,
			Items:            append([]models.OrderItem(nil), items...),
		}

		outbox := s.buildConfirmationOutbox(order, address, quote, log)

		err = s.orderRepo.CreateFinalized(order, address, outbox)
		if err == nil {
			created = order
			break
		}
		if errors.Is(err, repositories.ErrDuplicateSession) {
			// A concurrent duplicate delivery won the insert race.
			log.Info("duplicate webhook delivery detected on insert")
			return nil
		}
		if errors.Is(err, repositories.ErrDuplicateOrderNumber) {
			log.Warn("order number collision, retrying with new suffix",
				zap.String("order_number", orderNumber))
			continue
		}
		return fmt.Errorf("failed to persist order: %w", err)
	}
	if created == nil {
		return fmt.Errorf("exhausted order number attempts for session %s", session.ID)
	}

	orderLog := log.With(zap.String("order_number", created.OrderNumber))

	// Stock and promo bookkeeping run after the order is durable. The
	// payment is already captured, so anomalies never undo the order;
	// they are flagged loudly for manual reconciliation instead.
	for _, item := range created.Items {
		if err := s.productRepo.DecrementStock(item.ProductID, item.Quantity); err != nil {
			if errors.Is(err, repositories.ErrInsufficientStock) {
				orderLog.Error("stock anomaly: decrement refused, manual reconciliation required",
					zap.String("product_id", item.ProductID),
					zap.String("sku", item.ProductSKU),
					zap.Int("quantity", item.Quantity))
			} else {
				orderLog.Error("stock decrement failed",
					zap.String("product_id", item.ProductID), zap.Error(err))
			}
		}
	}

	if meta.PromoCode != "" {
		if err := s.promoRepo.IncrementUsage(meta.PromoCode); err != nil {
			switch {
			case errors.Is(err, repositories.ErrUsageCapReached):
				orderLog.Warn("promo anomaly: usage cap exceeded after discount was granted",
					zap.String("promo_code", meta.PromoCode))
			case errors.Is(err, repositories.ErrPromoNotFound):
				orderLog.Warn("promo anomaly: code missing at finalization",
					zap.String("promo_code", meta.PromoCode))
			default:
				orderLog.Error("promo usage increment failed",
					zap.String("promo_code", meta.PromoCode), zap.Error(err))
			}
		}
	}

	if s.publisher != nil {
		event := rabbitmq.OrderCreatedEvent{
			OrderID:       created.ID,
			OrderNumber:   created.OrderNumber,
			Total:         created.Total,
			Currency:      created.Currency,
			ItemCount:     len(created.Items),
			PaymentStatus: string(created.PaymentStatus),
		}
		if userID != nil {
			event.UserID = *userID
		}
		if err := s.publisher.PublishOrderCreated(event); err != nil {
			orderLog.Warn("failed to publish order created event", zap.Error(err))
		}
	}

	orderLog.Info("order finalized",
		zap.Float64("total", created.Total),
		zap.Int("items", len(created.Items)))
	return nil
}

// buildConfirmationOutbox renders the confirmation email into an outbox
// row written in the order transaction. Returns nil (no email) when the
// session carried no customer email or rendering fails; neither blocks
// the order.
func (s *OrderService) buildConfirmationOutbox(order *models.Order, address *models.Address, quote Quote, log *zap.Logger) *models.EmailOutbox {
	if order.GuestEmail == "" {
		log.Info("no customer email on session, skipping confirmation email")
		return nil
	}

	emailItems := make([]mailer.OrderEmailItem, len(order.Items))
	for i, item := range order.Items {
		emailItems[i] = mailer.OrderEmailItem{
			Title:     item.ProductTitle,
			Quantity:  item.Quantity,
			LineTotal: item.LineTotal,
		}
	}
	subject, html, err := mailer.BuildOrderConfirmation(mailer.OrderEmailData{
		OrderNumber:  order.OrderNumber,
		FirstName:    address.FirstName,
		Items:        emailItems,
		Subtotal:     quote.Subtotal,
		ShippingCost: quote.ShippingCost,
		Discount:     quote.DiscountAmount,
		TaxAmount:    quote.TaxAmount,
		Total:        quote.Total,
		AddressLines: []string{
			fmt.Sprintf("%s %s", address.FirstName, address.LastName),
			address.Line1,
			fmt.Sprintf("%s, %s %s", address.City, address.State, address.Postcode),
			address.Country,
		},
		SiteURL: s.siteURL,
	})
	if err != nil {
		log.Error("failed to render confirmation email", zap.Error(err))
		return nil
	}
	return &models.EmailOutbox{
		Recipient: order.GuestEmail,
		Subject:   subject,
		BodyHTML:  html,
		Status:    models.EmailPending,
	}
}

// generateOrderNumber produces <PREFIX>-<YYYYMMDD>-<4 char suffix>.
// Uniqueness is enforced at the store; collisions retry with a fresh
// suffix.
func (s *OrderService) generateOrderNumber() (string, error) {
	suffix := make([]byte, 4)
	max := big.NewInt(int64(len(orderSuffixAlphabet)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		suffix[i] = orderSuffixAlphabet[n.Int64()]
	}
	return fmt.Sprintf("%s-%s-%s", s.orderPrefix, s.now().Format("20060102"), suffix), nil
}

// GetAllOrders retrieves all orders.
func (s *OrderService) GetAllOrders() ([]models.Order, error) {
	return s.orderRepo.GetAll()
}

// GetOrderByID retrieves a single order by its ID.
func (s *OrderService) GetOrderByID(id string) (*models.Order, error) {
	return s.orderRepo.GetByID(id)
}

// GetOrderNumberBySession resolves the order number for a completed
// payment session; backs the checkout success page. Returns an empty
// string when the webhook has not landed yet.
func (s *OrderService) GetOrderNumberBySession(sessionID string) (string, error) {
	order, err := s.orderRepo.GetByPaymentSessionID(sessionID)
	if err != nil {
		if errors.Is(err, repositories.ErrOrderNotFound) {
			return "", nil
		}
		return "", err
	}
	return order.OrderNumber, nil
}

// UpdateOrderStatus updates the fulfilment status of an existing order.
// Item sets and totals are immutable once the order is paid; only the
// status column is touched.
func (s *OrderService) UpdateOrderStatus(id string, status models.OrderStatus) error {
	if !models.ValidOrderStatuses[status] {
		return fmt.Errorf("invalid order status: %s", status)
	}
	if err := s.orderRepo.UpdateStatus(id, status); err != nil {
		return fmt.Errorf("failed to update order status for order %s: %w", id, err)
	}
	return nil
}

// UpdateOrderTracking sets shipment tracking details on an order.
func (s *OrderService) UpdateOrderTracking(id, trackingNumber, carrier string) error {
	if err := s.orderRepo.UpdateTracking(id, trackingNumber, carrier); err != nil {
		return fmt.Errorf("failed to update tracking for order %s: %w", id, err)
	}
	return nil
}
