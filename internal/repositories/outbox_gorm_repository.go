package repositories

import (
	"fmt"
	"time"

	"refurbd/internal/models"

	"gorm.io/gorm"
)

// GORMOutboxRepository is a GORM implementation of OutboxRepository.
type GORMOutboxRepository struct {
	db *gorm.DB
}

// NewGORMOutboxRepository creates a new instance of GORMOutboxRepository.
func NewGORMOutboxRepository(db *gorm.DB) *GORMOutboxRepository {
	return &GORMOutboxRepository{
		db: db,
	}
}

// Pending returns undelivered rows, oldest first.
func (r *GORMOutboxRepository) Pending(limit int) ([]models.EmailOutbox, error) {
	var rows []models.EmailOutbox
	if err := r.db.Where("status = ?", models.EmailPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load pending outbox rows: %w", err)
	}
	return rows, nil
}

// MarkSent flags a row as delivered.
func (r *GORMOutboxRepository) MarkSent(id string) error {
	now := time.Now()
	res := r.db.Model(&models.EmailOutbox{}).Where("id = ?", id).
		Updates(map[string]any{"status": models.EmailSent, "sent_at": &now})
	if res.Error != nil {
		return fmt.Errorf("failed to mark outbox row %s sent: %w", id, res.Error)
	}
	return nil
}

// RecordFailure bumps the attempt counter; a final failure stops retries.
func (r *GORMOutboxRepository) RecordFailure(id string, lastError string, final bool) error {
	updates := map[string]any{
		"attempts":   gorm.Expr("attempts + 1"),
		"last_error": lastError,
	}
	if final {
		updates["status"] = models.EmailFailed
	}
	res := r.db.Model(&models.EmailOutbox{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to record outbox failure for %s: %w", id, res.Error)
	}
	return nil
}
