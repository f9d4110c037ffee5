// Package alerts publishes threat assessments to Kafka.
package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/i474232898/coastal-threat-monitor/internal/coastal"
)

// messageWriter is the subset of *kafkago.Writer used here.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher produces threat alerts to a Kafka topic.
// It implements coastal.ThreatPublisher.
type Publisher struct {
	writer messageWriter
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the alerts topic.
func NewPublisher(brokers []string, topic string, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// Publish writes one assessment. Messages are keyed by position so alerts for the
// same place stay ordered within a partition.
func (p *Publisher) Publish(ctx context.Context, a coastal.ThreatAssessment) error {
	msg, err := serializeToMessage(a)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write threat alert: %w", err)
	}
	p.logger.Info("threat alert published", "coords", a.Coords.Key(), "threats", len(a.Threats))
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a ThreatAssessment into a Kafka message.
func serializeToMessage(a coastal.ThreatAssessment) (kafkago.Message, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize threat assessment: %w", err)
	}
	key := strconv.FormatFloat(a.Coords.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(a.Coords.Lon, 'f', -1, 64)
	return kafkago.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "source", Value: []byte(a.Source)},
			{Key: "fetched_at", Value: []byte(a.FetchedAt.Format(time.RFC3339))},
		},
	}, nil
}
