package outbox

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/storefront/internal/domain"
)

type fakeBatch struct {
	entries    []Entry
	dispatched map[uuid.UUID]string
	failed     map[uuid.UUID]error
	committed  bool
	commitErr  error
}

func (b *fakeBatch) Entries() []Entry { return b.entries }

func (b *fakeBatch) MarkDispatched(_ context.Context, id uuid.UUID, messageID string, _ time.Time) error {
	b.dispatched[id] = messageID
	return nil
}

func (b *fakeBatch) MarkFailed(_ context.Context, id uuid.UUID, cause error) error {
	b.failed[id] = cause
	return nil
}

func (b *fakeBatch) Commit() error {
	if b.commitErr != nil {
		return b.commitErr
	}
	b.committed = true
	return nil
}

func (b *fakeBatch) Rollback() error { return nil }

type fakeSource struct {
	batch       *fakeBatch
	limit       int
	maxAttempts int
}

func (s *fakeSource) Begin(_ context.Context, limit, maxAttempts int) (Batch, error) {
	s.limit = limit
	s.maxAttempts = maxAttempts
	return s.batch, nil
}

type fakeQueue struct {
	fail      map[uuid.UUID]bool
	submitted []domain.Notification
}

func (q *fakeQueue) Submit(_ context.Context, n domain.Notification) (string, error) {
	if q.fail[n.ID] {
		return "", errors.New("broker unavailable")
	}
	q.submitted = append(q.submitted, n)
	return "msg-" + n.ID.String(), nil
}

func newBatch(n int) *fakeBatch {
	b := &fakeBatch{dispatched: map[uuid.UUID]string{}, failed: map[uuid.UUID]error{}}
	for i := 0; i < n; i++ {
		b.entries = append(b.entries, Entry{Notification: domain.Notification{
			ID:        uuid.New(),
			OrderID:   uuid.New(),
			Recipient: "carol@example.com",
			Subject:   "subject",
			Body:      "body",
		}})
	}
	return b
}

func newTestRelay(t *testing.T, src Source, q Queue) *Relay {
	t.Helper()
	relay, err := NewRelay(src, q, 10, 3, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return relay
}

func TestRelay_Dispatch(t *testing.T) {
	t.Run("submits every pending notification once", func(t *testing.T) {
		batch := newBatch(3)
		src := &fakeSource{batch: batch}
		queue := &fakeQueue{}

		sent, err := newTestRelay(t, src, queue).Dispatch(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 3, sent)
		assert.Equal(t, 10, src.limit)
		assert.Equal(t, 3, src.maxAttempts)
		assert.Len(t, queue.submitted, 3)
		assert.Len(t, batch.dispatched, 3)
		assert.True(t, batch.committed)
		for _, e := range batch.entries {
			assert.Equal(t, "msg-"+e.Notification.ID.String(), batch.dispatched[e.Notification.ID])
		}
	})

	t.Run("failed submissions stay pending", func(t *testing.T) {
		batch := newBatch(2)
		bad := batch.entries[0].Notification.ID
		queue := &fakeQueue{fail: map[uuid.UUID]bool{bad: true}}

		sent, err := newTestRelay(t, &fakeSource{batch: batch}, queue).Dispatch(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 1, sent)
		assert.Contains(t, batch.failed, bad)
		assert.NotContains(t, batch.dispatched, bad)
		assert.True(t, batch.committed)
	})

	t.Run("logs when a notification runs out of attempts", func(t *testing.T) {
		batch := newBatch(2)
		batch.entries[0].Attempts = 2
		batch.entries[1].Attempts = 0
		queue := &fakeQueue{fail: map[uuid.UUID]bool{
			batch.entries[0].Notification.ID: true,
			batch.entries[1].Notification.ID: true,
		}}
		var logs bytes.Buffer
		relay, err := NewRelay(&fakeSource{batch: batch}, queue, 10, 3, slog.New(slog.NewJSONHandler(&logs, nil)))
		require.NoError(t, err)

		sent, err := relay.Dispatch(context.Background())

		require.NoError(t, err)
		assert.Zero(t, sent)
		assert.Len(t, batch.failed, 2)
		assert.Equal(t, 1, strings.Count(logs.String(), "giving up on notification"))
		assert.Contains(t, logs.String(), batch.entries[0].Notification.ID.String())
	})

	t.Run("defaults apply to non-positive limits", func(t *testing.T) {
		src := &fakeSource{batch: newBatch(0)}
		relay, err := NewRelay(src, &fakeQueue{}, 0, 0, slog.New(slog.NewTextHandler(io.Discard, nil)))
		require.NoError(t, err)

		_, err = relay.Dispatch(context.Background())

		require.NoError(t, err)
		assert.Equal(t, DefaultBatchSize, src.limit)
		assert.Equal(t, DefaultMaxAttempts, src.maxAttempts)
	})

	t.Run("commit failure is reported", func(t *testing.T) {
		batch := newBatch(1)
		batch.commitErr = errors.New("connection lost")

		_, err := newTestRelay(t, &fakeSource{batch: batch}, &fakeQueue{}).Dispatch(context.Background())

		require.ErrorContains(t, err, "connection lost")
	})

	t.Run("empty batch", func(t *testing.T) {
		sent, err := newTestRelay(t, &fakeSource{batch: newBatch(0)}, &fakeQueue{}).Dispatch(context.Background())

		require.NoError(t, err)
		assert.Zero(t, sent)
	})
}
