package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/example/carwatch/internal/models"
)

// MatchPublisher fans terminal match events out to Kafka so downstream
// collaborators (dashboards, delivery relays) can consume them without
// coupling to the search loop. Optional: a nil publisher drops events.
type MatchPublisher struct {
	writer *kafka.Writer
}

func NewMatchPublisher(brokers []string, topic string) *MatchPublisher {
	w := kafka.NewWriter(kafka.WriterConfig{Brokers: brokers, Topic: topic, Balancer: &kafka.LeastBytes{}})
	return &MatchPublisher{writer: w}
}

func (p *MatchPublisher) PublishMatch(ev models.MatchEvent) error {
	if p == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(ev.City), Value: b})
}

func (p *MatchPublisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
