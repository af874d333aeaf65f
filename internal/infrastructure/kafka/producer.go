package kafka

import (
	"context"
	"errors"
	"strings"
	"time"

	"hfbridge/internal/infrastructure/telemetry"
	"hfbridge/internal/streaming"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Producer struct {
	writer *kafka.Writer
	topic  string
}

type ProducerConfig struct {
	Brokers     []string
	TopicPrefix string
}

func NewProducer(cfg ProducerConfig) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if strings.TrimSpace(cfg.TopicPrefix) == "" {
		cfg.TopicPrefix = "hfbridge"
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 500 * time.Millisecond,
	}
	return &Producer{writer: writer, topic: cfg.TopicPrefix + "-audit"}, nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

// PublishLifecycle writes one audit message per lifecycle mutation. The
// message key is the origin id so an exchange's history lands in one
// partition.
func (p *Producer) PublishLifecycle(ctx context.Context, event streaming.AuditEvent) error {
	tracer := otel.Tracer("hfbridge/kafka")

	traceID, traceIDHex, ok := telemetry.NewTraceID()
	traceCtx := ctx
	if ok {
		if spanCtx, ok := telemetry.NewSpanContext(traceID); ok {
			traceCtx = trace.ContextWithSpanContext(ctx, spanCtx)
		}
	}
	traceCtx, span := tracer.Start(traceCtx, "audit.publish_lifecycle", trace.WithSpanKind(trace.SpanKindProducer))
	defer span.End()
	span.SetAttributes(
		attribute.String("audit.kind", string(event.Kind)),
		attribute.String("tx.origin", event.Origin),
		attribute.String("tx.status", event.Status),
	)

	event.TraceID = traceIDHex
	payload, err := streaming.Encode(event)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	headers := make([]kafka.Header, 0, 2)
	telemetry.InjectKafkaHeaders(traceCtx, &headers)
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic:   p.topic,
		Key:     []byte(event.Origin),
		Value:   payload,
		Headers: headers,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
