package relay

import (
	"context"
	"fmt"
	"log/slog"
	"mailbox/codec"
	"mailbox/contract"
	"mailbox/domain"
	"mailbox/errors"
	"time"

	"github.com/segmentio/kafka-go"
)

// Writer is the subset of *kafka.Writer used by the relay.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

var _ contract.IRelay = (*KafkaRelay)(nil)

// KafkaRelay writes messages CBOR-encoded, keyed by message id.
type KafkaRelay struct {
	writer Writer
	log    *slog.Logger
}

func NewKafkaRelay(writer Writer, log *slog.Logger) *KafkaRelay {
	return &KafkaRelay{writer: writer, log: log}
}

// NewKafkaWriter builds a synchronous writer acknowledged by all replicas.
func NewKafkaWriter(brokers []string, topic string, timeout time.Duration) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		WriteTimeout:           timeout,
		AllowAutoTopicCreation: false,
		Async:                  false,
	}
}

func (r *KafkaRelay) Relay(ctx context.Context, message domain.Message) error {
	value, err := codec.Marshal(message)
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrRelayFailed, err)
	}
	err = r.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(message.ID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "content-type", Value: []byte("application/cbor")},
		},
	})
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", errors.ErrRelayTimeout, err)
		}
		return fmt.Errorf("%w: %v", errors.ErrRelayFailed, err)
	}
	r.log.Debug("Message relayed over Kafka", "id", message.ID)
	return nil
}

func (r *KafkaRelay) Close() error {
	return r.writer.Close()
}
