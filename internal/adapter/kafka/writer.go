package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/groundwater-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// DefaultBatchSize bounds the messages sent per WriteMessages call.
const DefaultBatchSize = 500

// Publisher produces surviving measurements to a Kafka topic.
// It implements pipeline.MeasurementPublisher.
type Publisher struct {
	writer    messageWriter
	batchSize int
	logger    *slog.Logger
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// NewPublisher creates a Kafka producer for topic.
func NewPublisher(brokers []string, topic string, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, batchSize: DefaultBatchSize, logger: logger}
}

// PublishBatch serializes and publishes measurements in chunks of at most
// batchSize messages. Messages are keyed by site_id so one site's readings
// stay on one partition in order.
func (p *Publisher) PublishBatch(ctx context.Context, runID string, measurements []domain.Measurement) (int, error) {
	published := 0
	for start := 0; start < len(measurements); start += p.batchSize {
		end := min(start+p.batchSize, len(measurements))
		msgs := make([]kafkago.Message, 0, end-start)
		for i := start; i < end; i++ {
			msg, err := serializeToMessage(runID, measurements[i])
			if err != nil {
				return published, err
			}
			msgs = append(msgs, msg)
		}
		if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
			return published, fmt.Errorf("publish measurements: %w", err)
		}
		published += len(msgs)
		p.logger.Debug("published measurement batch", "run_id", runID, "count", len(msgs), "total", published)
	}
	return published, nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a Measurement into a Kafka message.
func serializeToMessage(runID string, m domain.Measurement) (kafkago.Message, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize measurement: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(m.SiteID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "lev_agency_cd", Value: []byte(m.MeasuringAgency)},
			{Key: "run_id", Value: []byte(runID)},
		},
	}, nil
}
