// Package publish forwards newly archived events to downstream consumers.
package publish

import (
	"context"
	"encoding/json"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/mr1hm/disaster-watch/internal/metrics"
	"github.com/mr1hm/disaster-watch/internal/models"
)

type Publisher interface {
	Publish(ctx context.Context, events ...*models.DisasterEvent) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// KafkaPublisher produces one message per event to a single topic.
type KafkaPublisher struct {
	writer  messageWriter
	metrics *metrics.Metrics
}

func NewKafkaPublisher(brokers []string, topic string, m *metrics.Metrics) *KafkaPublisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &KafkaPublisher{writer: w, metrics: m}
}

func (p *KafkaPublisher) Publish(ctx context.Context, events ...*models.DisasterEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(events))
	for i, e := range events {
		msg, err := serializeToMessage(e)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d messages: %w", len(msgs), err)
	}
	if p.metrics != nil {
		p.metrics.EventsPublished.Add(float64(len(msgs)))
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage keys by source and id so one event always lands on the same partition.
func serializeToMessage(e *models.DisasterEvent) (kafkago.Message, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize disaster event %s: %w", e.Key(), err)
	}
	return kafkago.Message{
		Key:   []byte(e.Key()),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "source", Value: []byte(e.Source)},
			{Key: "category", Value: []byte(e.Category)},
			{Key: "severity", Value: []byte(e.Severity.String())},
		},
	}, nil
}
