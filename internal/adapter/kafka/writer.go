package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/groundwater-trends/internal/config"
	"github.com/couchcryptid/groundwater-trends/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer publishes region snapshots to a Kafka topic.
// It implements pipeline.SnapshotLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured snapshot topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch serializes and publishes snapshots in a single WriteMessages
// call. Messages are keyed by region so one region stays on one partition.
func (w *Writer) LoadBatch(ctx context.Context, snapshots []domain.RegionSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(snapshots))
	for i := range snapshots {
		msg, err := serializeToMessage(snapshots[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish snapshots: %w", err)
	}
	w.logger.Debug("snapshots published", "topic", w.writer.Topic, "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a RegionSnapshot into a Kafka message.
func serializeToMessage(snap domain.RegionSnapshot) (kafkago.Message, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize region snapshot: %w", err)
	}

	direction := ""
	if snap.Trend != nil {
		direction = string(snap.Trend.Direction)
	}
	return kafkago.Message{
		Key:   []byte(snap.Region),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "region", Value: []byte(snap.Region)},
			{Key: "generated_at", Value: []byte(snap.GeneratedAt.Format(time.RFC3339))},
			{Key: "points", Value: []byte(strconv.Itoa(len(snap.Series)))},
			{Key: "direction", Value: []byte(direction)},
		},
	}, nil
}
