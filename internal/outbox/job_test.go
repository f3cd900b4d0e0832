package outbox

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSource struct {
	runs atomic.Int32
}

func (s *countingSource) Begin(context.Context, int, int) (Batch, error) {
	s.runs.Add(1)
	return newBatch(0), nil
}

func TestJob(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("rejects an invalid schedule", func(t *testing.T) {
		relay, err := NewRelay(&countingSource{}, &fakeQueue{}, 10, 3, logger)
		require.NoError(t, err)

		require.Error(t, NewJob(relay, "every now and then", logger).Start())
	})

	t.Run("runs the relay on schedule until stopped", func(t *testing.T) {
		source := &countingSource{}
		relay, err := NewRelay(source, &fakeQueue{}, 10, 3, logger)
		require.NoError(t, err)

		job := NewJob(relay, "@every 1s", logger)
		require.NoError(t, job.Start())

		assert.Eventually(t, func() bool { return source.runs.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		job.Stop(ctx)

		stopped := source.runs.Load()
		time.Sleep(1200 * time.Millisecond)
		assert.Equal(t, stopped, source.runs.Load())
	})
}
