package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"
	"github.com/getsentry/sentry-go"

	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/logging"
)

type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   *slog.Logger
}

func NewSaramaConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.ClientID = "storefront"
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Idempotent = true
	cfg.Net.MaxOpenRequests = 1
	return cfg
}

func NewKafkaPublisher(brokers []string, topic string, logger *slog.Logger) (*KafkaPublisher, error) {
	producer, err := sarama.NewSyncProducer(brokers, NewSaramaConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return NewKafkaPublisherWithProducer(producer, topic, logger), nil
}

func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, topic string, logger *slog.Logger) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic, logger: logger}
}

// Publish keys messages by order id so one order's events stay on one
// partition in the order they were produced.
func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic:   p.topic,
		Key:     sarama.StringEncoder(event.OrderID.String()),
		Value:   sarama.ByteEncoder(payload),
		Headers: traceHeaders(ctx, event),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to send %s event: %w", event.Type, err)
	}

	logging.FromContext(ctx, p.logger).Debug("event published",
		"event_type", event.Type,
		"order_id", event.OrderID,
		"topic", p.topic,
		"partition", partition,
		"offset", offset,
	)
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

func traceHeaders(ctx context.Context, event Event) []sarama.RecordHeader {
	headers := []sarama.RecordHeader{
		{Key: []byte("event_type"), Value: []byte(event.Type)},
	}
	if requestID := logging.RequestID(ctx); requestID != "" {
		headers = append(headers, sarama.RecordHeader{Key: []byte("request_id"), Value: []byte(requestID)})
	}
	if span := sentry.SpanFromContext(ctx); span != nil {
		headers = append(headers,
			sarama.RecordHeader{Key: []byte(sentry.SentryTraceHeader), Value: []byte(span.ToSentryTrace())},
			sarama.RecordHeader{Key: []byte(sentry.SentryBaggageHeader), Value: []byte(span.ToBaggage())},
		)
	}
	return headers
}
