package repositories

import "refurbd/internal/models"

// OutboxRepository defines the interface for email outbox data access.
// Rows are created inside the order transaction (see OrderRepository);
// this interface serves the drain worker.
type OutboxRepository interface {
	// Pending returns up to limit undelivered rows, oldest first.
	Pending(limit int) ([]models.EmailOutbox, error)
	MarkSent(id string) error
	// RecordFailure increments the attempt counter and stores the error;
	// when final is true the row is marked FAILED and never retried.
	RecordFailure(id string, lastError string, final bool) error
}
