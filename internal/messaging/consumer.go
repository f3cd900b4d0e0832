package messaging

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

var consumerTracer = otel.Tracer("messaging/consumer")

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Delivery is one fetched message handed to a handler.
type Delivery struct {
	MessageID string
	Key       string
	Payload   []byte
	Attempt   int
}

type Handler func(ctx context.Context, d Delivery) error

type Consumer struct {
	reader      messageReader
	topic       string
	groupID     string
	maxAttempts int
	backoff     time.Duration
}

type ConsumerOption func(*Consumer, *kafka.ReaderConfig)

func WithStartOffset(offset int64) ConsumerOption {
	return func(_ *Consumer, cfg *kafka.ReaderConfig) {
		cfg.StartOffset = offset
	}
}

// WithRetry retries a failing handler up to attempts times, doubling the wait
// between tries starting at backoff.
func WithRetry(attempts int, backoff time.Duration) ConsumerOption {
	return func(c *Consumer, _ *kafka.ReaderConfig) {
		c.maxAttempts = attempts
		c.backoff = backoff
	}
}

func NewConsumer(brokers []string, topic, groupID string, opts ...ConsumerOption) *Consumer {
	cfg := kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: groupID,
	}
	c := &Consumer{
		topic:       topic,
		groupID:     groupID,
		maxAttempts: 1,
	}

	for _, opt := range opts {
		opt(c, &cfg)
	}

	c.reader = kafka.NewReader(cfg)
	return c
}

// Consume processes messages until ctx is done or a message exhausts its
// retries. A message is committed only after its handler succeeds, so an
// unprocessed message is redelivered when the group resumes.
func (c *Consumer) Consume(ctx context.Context, handler Handler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			return err
		}

		if err := c.processWithRetry(ctx, msg, handler); err != nil {
			return fmt.Errorf("process message at offset %d: %w", msg.Offset, err)
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			return err
		}
	}
}

func (c *Consumer) processWithRetry(ctx context.Context, msg kafka.Message, handler Handler) error {
	wait := c.backoff
	var err error
	for attempt := 1; attempt <= max(c.maxAttempts, 1); attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			wait *= 2
		}
		if err = c.processMessage(ctx, msg, attempt, handler); err == nil {
			return nil
		}
	}
	return err
}

func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message, attempt int, handler Handler) error {
	parentCtx := otel.GetTextMapPropagator().Extract(ctx, headerCarrier{msg: &msg})
	messageID := header(&msg, HeaderMessageID)

	spanCtx, span := consumerTracer.Start(parentCtx, "process "+c.topic,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			semconv.MessagingSystemKafka,
			semconv.MessagingOperationName("process"),
			semconv.MessagingOperationTypeDeliver,
			semconv.MessagingDestinationName(c.topic),
			semconv.MessagingKafkaConsumerGroup(c.groupID),
			semconv.MessagingKafkaMessageOffset(int(msg.Offset)),
			semconv.MessagingDestinationPartitionID(strconv.Itoa(msg.Partition)),
			semconv.MessagingKafkaMessageKey(string(msg.Key)),
			semconv.MessagingMessageID(messageID),
			attribute.Int("messaging.delivery.attempt", attempt),
		),
	)
	defer span.End()

	err := handler(spanCtx, Delivery{
		MessageID: messageID,
		Key:       string(msg.Key),
		Payload:   msg.Value,
		Attempt:   attempt,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
