package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/joao-fontenele/storefront/internal/domain"
)

var producerTracer = otel.Tracer("messaging/producer")

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NotificationQueue publishes customer notifications to Kafka, keyed by order
// so that messages for one order stay in one partition.
type NotificationQueue struct {
	writer messageWriter
	topic  string
}

func NewNotificationQueue(brokers []string, topic string) *NotificationQueue {
	return &NotificationQueue{
		topic: topic,
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
			BatchTimeout:           10 * time.Millisecond,
		},
	}
}

// Submit writes n and returns its message id. The id is the notification id,
// so a redelivered notification carries the same id and consumers can drop
// duplicates.
func (q *NotificationQueue) Submit(ctx context.Context, n domain.Notification) (string, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return "", fmt.Errorf("marshal notification: %w", err)
	}

	messageID := n.ID.String()
	key := n.OrderID.String()
	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
	}
	setHeader(&msg, HeaderMessageID, messageID)
	setHeader(&msg, HeaderContentType, "application/json")

	ctx, span := producerTracer.Start(ctx, "send "+q.topic,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			semconv.MessagingSystemKafka,
			semconv.MessagingOperationName("send"),
			semconv.MessagingOperationTypePublish,
			semconv.MessagingDestinationName(q.topic),
			semconv.MessagingKafkaMessageKey(key),
			semconv.MessagingMessageID(messageID),
		),
	)
	defer span.End()

	otel.GetTextMapPropagator().Inject(ctx, headerCarrier{msg: &msg})

	if err := q.writer.WriteMessages(ctx, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("write notification %s: %w", messageID, err)
	}

	return messageID, nil
}

func (q *NotificationQueue) Close() error {
	return q.writer.Close()
}
