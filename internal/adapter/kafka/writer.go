// Package kafka publishes hotspot alert summaries to the alerts topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/geoandina/droughtfire/internal/config"
	"github.com/geoandina/droughtfire/internal/observability"
	"github.com/geoandina/droughtfire/internal/pipeline"
)

// AlertWriter produces per-date hotspot summaries to a Kafka topic.
type AlertWriter struct {
	writer  *kafkago.Writer
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewAlertWriter creates a Kafka producer for the configured alerts topic.
func NewAlertWriter(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *AlertWriter {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaAlertsTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &AlertWriter{writer: w, logger: logger, metrics: metrics}
}

// Publish serializes and writes one alert summary, keyed by date so a
// re-assessed date compacts onto its previous alert.
func (w *AlertWriter) Publish(ctx context.Context, summary pipeline.AlertSummary) error {
	msg, err := serializeToMessage(summary)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish alert for %s: %w", summary.Date, err)
	}
	w.metrics.AlertsPublished.Inc()
	w.logger.Info("alert published",
		"date", summary.Date,
		"hotspot_pixels", summary.HotspotPixels,
	)
	return nil
}

func (w *AlertWriter) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals an alert summary into a Kafka message.
func serializeToMessage(summary pipeline.AlertSummary) (kafkago.Message, error) {
	data, err := json.Marshal(summary)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize alert summary: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(summary.Date),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "region", Value: []byte(summary.Region)},
		},
	}, nil
}
