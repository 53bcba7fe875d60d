// README: Trip event publishing to Kafka; a no-op publisher is used when no brokers are configured.
package trip

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
)

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// MessageWriter is satisfied by *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type KafkaPublisher struct {
	writer MessageWriter
}

func NewKafkaPublisher(w MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: w}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.SessionID),
		Value: b,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("trip." + string(e.To))},
		},
	})
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
