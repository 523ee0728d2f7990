package repositories

import (
	"fmt"
	"strings"
	"testing"

	"refurbd/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB opens a fresh in-memory SQLite database with the same
// error translation the production Postgres connection uses, so
// unique-constraint behavior matches. The database is named after the
// test so pooled connections share it and tests stay isolated.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Seller{},
		&models.Product{},
		&models.Address{},
		&models.PromoCode{},
		&models.Order{},
		&models.OrderItem{},
		&models.EmailOutbox{},
	))
	return db
}
