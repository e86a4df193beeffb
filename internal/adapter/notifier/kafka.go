package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"wallet-withdrawal-engine/config"
	"wallet-withdrawal-engine/internal/core/ports"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// messageWriter is the slice of kafka.Writer the notifier needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaNotifier implements ports.Notifier by publishing terminal-state
// events to a Kafka topic. Messages are keyed by transaction id so all
// events for one withdrawal land on the same partition.
type KafkaNotifier struct {
	writer messageWriter
	log    zerolog.Logger
}

// NewKafkaNotifier creates a notifier publishing to the configured topic.
func NewKafkaNotifier(cfg config.KafkaConfig, log zerolog.Logger) *KafkaNotifier {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(cfg.Brokers...),
		Topic:    cfg.Topic,
		Balancer: &kafka.LeastBytes{},
	}
	return newKafkaNotifier(writer, log)
}

func newKafkaNotifier(writer messageWriter, log zerolog.Logger) *KafkaNotifier {
	return &KafkaNotifier{
		writer: writer,
		log:    log.With().Str("component", "kafka_notifier").Logger(),
	}
}

// Notify publishes a terminal notification.
func (n *KafkaNotifier) Notify(ctx context.Context, notification ports.TerminalNotification) error {
	payload, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(notification.TransactionID.String()),
		Value: payload,
		Time:  time.Now(),
	}
	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}

	n.log.Debug().
		Str("transaction_id", notification.TransactionID.String()).
		Str("state", string(notification.State)).
		Msg("Terminal notification published")
	return nil
}
