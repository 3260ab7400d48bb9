package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/meteoburkina/bulletin-etl/internal/domain"
)

// ImportMode tells downstream importers how to treat a date they already
// hold: replace the stored bulletin, or reject the incoming one. The mode
// travels as a message header; the publisher itself never looks at existing
// topic contents.
type ImportMode string

const (
	ModeReplace ImportMode = "replace"
	ModeReject  ImportMode = "reject"
)

// ParseImportMode validates a mode string from flags or config.
func ParseImportMode(s string) (ImportMode, error) {
	switch ImportMode(s) {
	case ModeReplace, ModeReject:
		return ImportMode(s), nil
	default:
		return "", fmt.Errorf("unknown import mode %q (want replace or reject)", s)
	}
}

// Publisher produces merged bulletins to a Kafka topic, one message per
// date, keyed by the bulletin date so a compacted topic keeps exactly the
// latest bulletin per date.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the sink topic.
func NewPublisher(brokers []string, topic string, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// PublishCorpus serializes every bulletin of the dataset and publishes them
// in a single WriteMessages call, so the batch either lands or fails as one.
func (p *Publisher) PublishCorpus(ctx context.Context, dataset domain.CorpusDataset, mode ImportMode) error {
	if len(dataset.Bulletins) == 0 {
		p.logger.Info("corpus empty, nothing to publish")
		return nil
	}

	publishedAt := time.Now().UTC().Format(time.RFC3339)
	msgs := make([]kafkago.Message, len(dataset.Bulletins))
	for i, b := range dataset.Bulletins {
		msg, err := serializeBulletin(b, mode, publishedAt)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publishing corpus: %w", err)
	}
	p.logger.Info("corpus published", "bulletins", len(msgs), "mode", mode)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeBulletin marshals one merged bulletin into a Kafka message keyed
// by its date.
func serializeBulletin(b domain.CorpusBulletin, mode ImportMode, publishedAt string) (kafkago.Message, error) {
	data, err := json.Marshal(b.MergedBulletin)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize bulletin %s: %w", b.Date, err)
	}
	return kafkago.Message{
		Key:   []byte(b.Date),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "import_mode", Value: []byte(mode)},
			{Key: "source_file", Value: []byte(b.SourceFile)},
			{Key: "published_at", Value: []byte(publishedAt)},
		},
	}, nil
}
