package outbox

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/joao-fontenele/storefront/internal/domain"
)

// Batch is a set of locked pending entries. Marks become visible on Commit.
type Batch interface {
	Entries() []Entry
	MarkDispatched(ctx context.Context, id uuid.UUID, messageID string, at time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, cause error) error
	Commit() error
	Rollback() error
}

// Source locks pending entries that have been attempted fewer than
// maxAttempts times, least attempted first.
type Source interface {
	Begin(ctx context.Context, limit, maxAttempts int) (Batch, error)
}

// Queue accepts a notification for asynchronous delivery and returns the
// broker message id.
type Queue interface {
	Submit(ctx context.Context, n domain.Notification) (string, error)
}

const (
	DefaultBatchSize   = 50
	DefaultMaxAttempts = 10
)

type Relay struct {
	source      Source
	queue       Queue
	batchSize   int
	maxAttempts int
	logger      *slog.Logger
	now         func() time.Time
	dispatched  metric.Int64Counter
	failed      metric.Int64Counter
	abandoned   metric.Int64Counter
}

// NewRelay builds a relay that drains up to batchSize entries per run. An
// entry that fails maxAttempts submissions is left in the table and no longer
// picked up.
func NewRelay(source Source, queue Queue, batchSize, maxAttempts int, logger *slog.Logger) (*Relay, error) {
	meter := otel.Meter("outbox")
	dispatched, err := meter.Int64Counter("outbox.dispatched", metric.WithDescription("Notifications handed to the queue"))
	if err != nil {
		return nil, err
	}
	failed, err := meter.Int64Counter("outbox.failed", metric.WithDescription("Notification submissions that failed"))
	if err != nil {
		return nil, err
	}
	abandoned, err := meter.Int64Counter("outbox.abandoned", metric.WithDescription("Notifications that exhausted their submission attempts"))
	if err != nil {
		return nil, err
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Relay{
		source:      source,
		queue:       queue,
		batchSize:   batchSize,
		maxAttempts: maxAttempts,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
		dispatched:  dispatched,
		failed:      failed,
		abandoned:   abandoned,
	}, nil
}

// Dispatch submits one batch of pending notifications and reports how many
// were accepted by the queue. A failed submission stays pending for the next
// run until it has been attempted maxAttempts times.
func (r *Relay) Dispatch(ctx context.Context) (int, error) {
	batch, err := r.source.Begin(ctx, r.batchSize, r.maxAttempts)
	if err != nil {
		return 0, fmt.Errorf("begin outbox batch: %w", err)
	}
	defer func() { _ = batch.Rollback() }()

	sent := 0
	for _, entry := range batch.Entries() {
		n := entry.Notification

		messageID, err := r.queue.Submit(ctx, n)
		if err != nil {
			r.failed.Add(ctx, 1)
			r.logger.WarnContext(ctx, "notification submit failed",
				"notification_id", n.ID, "order_id", n.OrderID, "attempts", entry.Attempts+1, "error", err)
			if err := batch.MarkFailed(ctx, n.ID, err); err != nil {
				return sent, fmt.Errorf("mark notification %s failed: %w", n.ID, err)
			}
			if entry.Attempts+1 >= r.maxAttempts {
				r.abandoned.Add(ctx, 1)
				r.logger.ErrorContext(ctx, "giving up on notification",
					"notification_id", n.ID, "order_id", n.OrderID, "attempts", entry.Attempts+1)
			}
			continue
		}

		if err := batch.MarkDispatched(ctx, n.ID, messageID, r.now()); err != nil {
			return sent, fmt.Errorf("mark notification %s dispatched: %w", n.ID, err)
		}
		sent++
	}

	if err := batch.Commit(); err != nil {
		return 0, fmt.Errorf("commit outbox batch: %w", err)
	}

	if sent > 0 {
		r.dispatched.Add(ctx, int64(sent))
		r.logger.InfoContext(ctx, "notifications dispatched", "count", sent)
	}
	return sent, nil
}
