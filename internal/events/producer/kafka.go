// Package producer dispatches domain events to Kafka.
package producer

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"authplane/internal/events"
)

// KafkaDispatcher implements events.Dispatcher using segmentio/kafka-go.
type KafkaDispatcher struct {
	writer *kafka.Writer
	topic  string
}

// NewKafkaDispatcher creates a dispatcher that writes domain events to the given topic.
// Returns (nil, nil) when brokers or topic are empty so callers can fall back to events.Nop.
// Call Close when shutting down.
func NewKafkaDispatcher(brokers []string, topic string) (*KafkaDispatcher, error) {
	if len(brokers) == 0 || topic == "" {
		return nil, nil
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 50 * time.Millisecond,
	}
	return &KafkaDispatcher{writer: writer, topic: topic}, nil
}

// Dispatch serializes each event as JSON and writes the batch to the topic,
// keyed by aggregate ID so per-aggregate ordering survives partitioning.
// Uses a short timeout so a slow broker does not block the caller indefinitely.
func (d *KafkaDispatcher) Dispatch(ctx context.Context, evs []events.Event) error {
	if d == nil || d.writer == nil || len(evs) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(evs))
	for _, ev := range evs {
		payload, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(ev.AggregateID),
			Value: payload,
		})
	}
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := d.writer.WriteMessages(writeCtx, msgs...); err != nil {
		log.Printf("events: kafka dispatch failed: %v", err)
		return err
	}
	return nil
}

// Close closes the Kafka writer. Safe to call multiple times.
func (d *KafkaDispatcher) Close() error {
	if d == nil || d.writer == nil {
		return nil
	}
	return d.writer.Close()
}
