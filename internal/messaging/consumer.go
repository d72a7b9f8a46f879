package messaging

import (
	"context"
	"log/slog"
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

type Handler func(ctx context.Context, payload []byte) error

// Consumer reads a topic as part of a consumer group. A message is
// committed once its handler succeeds or its attempts run out, so one bad
// message cannot wedge the partition.
type Consumer struct {
	reader      *kafka.Reader
	topic       string
	groupID     string
	maxAttempts int
	backoff     time.Duration
	logger      *slog.Logger
}

type ConsumerOption func(*Consumer, *kafka.ReaderConfig)

func WithStartOffset(offset int64) ConsumerOption {
	return func(_ *Consumer, cfg *kafka.ReaderConfig) {
		cfg.StartOffset = offset
	}
}

// WithRetry sets how many times a failing message is handed to the handler
// and the pause between attempts, doubled after each failure.
func WithRetry(maxAttempts int, backoff time.Duration) ConsumerOption {
	return func(c *Consumer, _ *kafka.ReaderConfig) {
		c.maxAttempts = maxAttempts
		c.backoff = backoff
	}
}

func WithLogger(logger *slog.Logger) ConsumerOption {
	return func(c *Consumer, _ *kafka.ReaderConfig) {
		c.logger = logger
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
		maxAttempts: 3,
		backoff:     500 * time.Millisecond,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(c, &cfg)
	}

	c.reader = kafka.NewReader(cfg)
	return c
}

func (c *Consumer) Consume(ctx context.Context, handler Handler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			return err
		}

		if err := c.deliver(ctx, msg, handler); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.ErrorContext(ctx, "dropping message after retries",
				"topic", c.topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
				"key", string(msg.Key),
				"error", err,
			)
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			return err
		}
	}
}

func (c *Consumer) deliver(ctx context.Context, msg kafka.Message, handler Handler) error {
	backoff := c.backoff
	var err error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err = c.processMessage(ctx, msg, attempt, handler); err == nil {
			return nil
		}
		if attempt == c.maxAttempts {
			break
		}

		c.logger.WarnContext(ctx, "message handler failed, retrying",
			"topic", c.topic, "offset", msg.Offset, "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return err
}

func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message, attempt int, handler Handler) error {
	parentCtx := otel.GetTextMapPropagator().Extract(ctx, NewMessageCarrier(&msg))

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
			attribute.Int("messaging.delivery.attempt", attempt),
		),
	)
	defer span.End()

	if err := handler(spanCtx, msg.Value); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
