// Package kafka publishes aggregated sea-info records to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/sea-info-service/internal/config"
	"github.com/couchcryptid/sea-info-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Publisher produces one message per freshly aggregated record.
// It implements aggregator.Publisher.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured record topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}
	return &Publisher{writer: w, logger: logger}
}

// Publish writes rec keyed by its cache key, so records for the same
// rounded coordinate land on the same partition.
func (p *Publisher) Publish(ctx context.Context, rec domain.SeaInfoRecord) error {
	msg, err := serializeToMessage(rec)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write record %s: %w", rec.Coordinate.Key(), err)
	}
	p.logger.Debug("record published", "key", string(msg.Key), "topic", p.writer.Topic)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a SeaInfoRecord into a Kafka message.
func serializeToMessage(rec domain.SeaInfoRecord) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize sea-info record: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(rec.Coordinate.Key()),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "grid", Value: []byte(strconv.Itoa(rec.Grid.X) + "," + strconv.Itoa(rec.Grid.Y))},
			{Key: "sampled", Value: []byte(strconv.FormatBool(rec.Weather.Sampled))},
			{Key: "generated_at", Value: []byte(rec.GeneratedAt.Format(time.RFC3339))},
		},
	}, nil
}
