package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Job runs the relay on a cron schedule. Overlapping runs are skipped.
type Job struct {
	relay    *Relay
	schedule string
	timeout  time.Duration
	cron     *cron.Cron
	logger   *slog.Logger
}

func NewJob(relay *Relay, schedule string, logger *slog.Logger) *Job {
	logger = logger.With("component", "outbox_relay_job")
	return &Job{
		relay:    relay,
		schedule: schedule,
		timeout:  30 * time.Second,
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cronLogger{logger}),
			cron.Recover(cronLogger{logger}),
		)),
		logger: logger,
	}
}

func (j *Job) Start() error {
	_, err := j.cron.AddFunc(j.schedule, j.run)
	if err != nil {
		return err
	}

	j.cron.Start()
	j.logger.Info("outbox relay job started", "schedule", j.schedule)
	return nil
}

func (j *Job) run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if _, err := j.relay.Dispatch(ctx); err != nil {
		j.logger.ErrorContext(ctx, "outbox relay run failed", "error", err)
	}
}

// Stop stops scheduling and waits for a run in progress to finish or for ctx
// to expire.
func (j *Job) Stop(ctx context.Context) {
	select {
	case <-j.cron.Stop().Done():
		j.logger.Info("outbox relay job stopped")
	case <-ctx.Done():
		j.logger.Warn("outbox relay job did not stop in time")
	}
}

// cronLogger routes cron's own messages to slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
