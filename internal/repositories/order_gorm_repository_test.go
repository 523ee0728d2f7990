package repositories

import (
	"testing"

	"refurbd/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func finalizedOrder(sessionID, orderNumber string) (*models.Order, *models.Address, *models.EmailOutbox) {
	order := &models.Order{
		OrderNumber:      orderNumber,
		GuestEmail:       "sam@example.com",
		Status:           models.OrderConfirmed,
		PaymentStatus:    models.PaymentPaid,
		PaymentSessionID: sessionID,
		Subtotal:         100,
		Total:            100,
		TaxAmount:        9.09,
		Currency:         "AUD",
		ShippingMethod:   "standard-au",
		Items: []models.OrderItem{
			{ProductID: "p1", ProductTitle: "iPhone 13 128GB", ProductSKU: "IPH13-128",
				UnitPrice: 100, Quantity: 1, LineTotal: 100},
		},
	}
	address := &models.Address{
		FirstName: "Sam", LastName: "Nguyen", Line1: "12 Harbour St",
		City: "Sydney", State: "NSW", Postcode: "2000", Country: "AU",
	}
	outbox := &models.EmailOutbox{
		Recipient: "sam@example.com",
		Subject:   "Order Confirmed — " + orderNumber,
		BodyHTML:  "<p>thanks</p>",
		Status:    models.EmailPending,
	}
	return order, address, outbox
}

func TestCreateFinalizedPersistsEverything(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGORMOrderRepository(db)

	order, address, outbox := finalizedOrder("cs_1", "RFB-20260830-ABCD")
	require.NoError(t, repo.CreateFinalized(order, address, outbox))

	fetched, err := repo.GetByPaymentSessionID("cs_1")
	require.NoError(t, err)
	assert.Equal(t, "RFB-20260830-ABCD", fetched.OrderNumber)
	require.Len(t, fetched.Items, 1)
	assert.Equal(t, "iPhone 13 128GB", fetched.Items[0].ProductTitle)

	byID, err := repo.GetByID(order.ID)
	require.NoError(t, err)
	require.NotNil(t, byID.ShippingAddress)
	assert.Equal(t, "Sydney", byID.ShippingAddress.City)

	var rows []models.EmailOutbox
	require.NoError(t, db.Where("order_id = ?", order.ID).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, models.EmailPending, rows[0].Status)
}

func TestCreateFinalizedRejectsDuplicateSession(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGORMOrderRepository(db)

	first, addr1, _ := finalizedOrder("cs_dup", "RFB-20260830-AAAA")
	require.NoError(t, repo.CreateFinalized(first, addr1, nil))

	second, addr2, _ := finalizedOrder("cs_dup", "RFB-20260830-BBBB")
	err := repo.CreateFinalized(second, addr2, nil)
	assert.ErrorIs(t, err, ErrDuplicateSession)

	// Rollback left no second order or orphaned address behind.
	var count int64
	require.NoError(t, db.Model(&models.Order{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestCreateFinalizedRejectsDuplicateOrderNumber(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGORMOrderRepository(db)

	first, addr1, _ := finalizedOrder("cs_a", "RFB-20260830-SAME")
	require.NoError(t, repo.CreateFinalized(first, addr1, nil))

	second, addr2, _ := finalizedOrder("cs_b", "RFB-20260830-SAME")
	err := repo.CreateFinalized(second, addr2, nil)
	assert.ErrorIs(t, err, ErrDuplicateOrderNumber)
}

func TestCreateFinalizedWithoutOutbox(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGORMOrderRepository(db)

	order, address, _ := finalizedOrder("cs_noemail", "RFB-20260830-CCCC")
	require.NoError(t, repo.CreateFinalized(order, address, nil))

	var count int64
	require.NoError(t, db.Model(&models.EmailOutbox{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestGetByPaymentSessionIDNotFound(t *testing.T) {
	repo := NewGORMOrderRepository(setupTestDB(t))

	_, err := repo.GetByPaymentSessionID("cs_missing")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestUpdateStatus(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGORMOrderRepository(db)

	order, address, _ := finalizedOrder("cs_status", "RFB-20260830-DDDD")
	require.NoError(t, repo.CreateFinalized(order, address, nil))

	require.NoError(t, repo.UpdateStatus(order.ID, models.OrderShipped))
	fetched, err := repo.GetByID(order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderShipped, fetched.Status)

	assert.ErrorIs(t, repo.UpdateStatus("missing", models.OrderShipped), ErrOrderNotFound)
}

func TestUpdateTracking(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGORMOrderRepository(db)

	order, address, _ := finalizedOrder("cs_track", "RFB-20260830-EEEE")
	require.NoError(t, repo.CreateFinalized(order, address, nil))

	require.NoError(t, repo.UpdateTracking(order.ID, "AP123456789AU", "AusPost"))
	fetched, err := repo.GetByID(order.ID)
	require.NoError(t, err)
	assert.Equal(t, "AP123456789AU", fetched.TrackingNumber)
	assert.Equal(t, "AusPost", fetched.Carrier)
}
