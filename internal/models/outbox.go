package models

import (
	"time"

	"gorm.io/gorm"
)

// EmailStatus is the delivery state of an outbox record.
type EmailStatus string

const (
	EmailPending EmailStatus = "PENDING"
	EmailSent    EmailStatus = "SENT"
	EmailFailed  EmailStatus = "FAILED"
)

// EmailOutbox is a transactional-outbox row for a confirmation email.
// It is written in the same transaction as the order it belongs to and
// drained by a separate best-effort worker, so a slow or unavailable
// email provider can never add latency or risk to order creation.
// The unique index on OrderID caps delivery at one email per order.
type EmailOutbox struct {
	ID        string      `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrderID   string      `json:"order_id" gorm:"uniqueIndex;type:varchar(36)"`
	Recipient string      `json:"recipient" gorm:"type:varchar(255)"`
	Subject   string      `json:"subject"`
	BodyHTML  string      `json:"-"`
	Status    EmailStatus `json:"status" gorm:"type:varchar(16);index;default:PENDING"`
	Attempts  int         `json:"attempts"`
	LastError string      `json:"last_error,omitempty"`
	SentAt    *time.Time  `json:"sent_at,omitempty"`
	gorm.Model
}
