// Package workers contains background loops that drain work written
// transactionally by the request path.
package workers

import (
	"context"
	"time"

	"refurbd/internal/repositories"
	"refurbd/pkg/mailer"

	"go.uber.org/zap"
)

const drainBatchSize = 20

// EmailWorker drains the confirmation-email outbox. Rows are written in
// the same transaction as their order, so this loop is the only place
// email provider latency or downtime is felt; the order path never is.
type EmailWorker struct {
	outbox      repositories.OutboxRepository
	sender      mailer.Sender
	log         *zap.Logger
	interval    time.Duration
	maxAttempts int
}

// NewEmailWorker creates a new EmailWorker.
func NewEmailWorker(outbox repositories.OutboxRepository, sender mailer.Sender, log *zap.Logger, interval time.Duration, maxAttempts int) *EmailWorker {
	return &EmailWorker{
		outbox:      outbox,
		sender:      sender,
		log:         log,
		interval:    interval,
		maxAttempts: maxAttempts,
	}
}

// Run polls the outbox until the context is cancelled.
func (w *EmailWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info("email outbox worker started", zap.Duration("interval", w.interval))
	for {
		select {
		case <-ctx.Done():
			w.log.Info("email outbox worker stopped")
			return
		case <-ticker.C:
			w.DrainOnce(ctx)
		}
	}
}

// DrainOnce processes one batch of pending rows. Send failures are
// recorded and retried on later passes up to the attempt cap; they are
// never propagated.
func (w *EmailWorker) DrainOnce(ctx context.Context) {
	rows, err := w.outbox.Pending(drainBatchSize)
	if err != nil {
		w.log.Error("failed to load pending outbox rows", zap.Error(err))
		return
	}

	for _, row := range rows {
		if ctx.Err() != nil {
			return
		}
		if err := w.sender.Send(ctx, row.Recipient, row.Subject, row.BodyHTML); err != nil {
			final := row.Attempts+1 >= w.maxAttempts
			w.log.Warn("confirmation email send failed",
				zap.String("order_id", row.OrderID),
				zap.Int("attempt", row.Attempts+1),
				zap.Bool("final", final),
				zap.Error(err))
			if recErr := w.outbox.RecordFailure(row.ID, err.Error(), final); recErr != nil {
				w.log.Error("failed to record outbox failure", zap.Error(recErr))
			}
			continue
		}
		if err := w.outbox.MarkSent(row.ID); err != nil {
			w.log.Error("failed to mark outbox row sent",
				zap.String("order_id", row.OrderID), zap.Error(err))
			continue
		}
		w.log.Info("confirmation email sent",
			zap.String("order_id", row.OrderID),
			zap.String("recipient", row.Recipient))
	}
}
