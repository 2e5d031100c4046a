// Package events publishes reservation lifecycle events for downstream
// consumers (order workflow, notifications).
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/sonic7adarsh/bharat-shop-sub006/internal/domain"
)

// KafkaPublisher writes lifecycle events as JSON messages keyed by
// tenant and variant, so one variant's events stay ordered per partition.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(writer *kafka.Writer) *KafkaPublisher {
	return &KafkaPublisher{writer: writer}
}

// NewWriter builds a writer for the given brokers and topic.
func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event domain.ReservationEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal reservation event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.TenantID + "/" + event.VariantID),
		Value: payload,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write reservation event: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Nop discards events; used in tests and kafka-less deployments.
type Nop struct{}

func (Nop) Publish(context.Context, domain.ReservationEvent) error {
	return nil
}
