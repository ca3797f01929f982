package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"
)

var ErrNotifierClosed = errors.New("notifier closed")

// UpdateNotice is the wire payload published per affected cart.
type UpdateNotice struct {
	CartID     string    `json:"cart_id"`
	Message    string    `json:"message"`
	OccurredAt time.Time `json:"occurred_at"`
}

type KafkaNotifierConfig struct {
	Brokers       []string
	Topic         string
	NumPartitions int
	BatchSize     int
	RetryAttempts int
}

// KafkaCartNotifier publishes notices keyed by cart id, so notices for one
// cart stay ordered on one partition.
type KafkaCartNotifier struct {
	writer *kafka.Writer
	closed atomic.Bool
}

var _ CartNotifier = (*KafkaCartNotifier)(nil)

func NewKafkaCartNotifier(cfg KafkaNotifierConfig) (*KafkaCartNotifier, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka notifier requires at least one broker")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka notifier requires a topic")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 3
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     NewCartBalancer(cfg.NumPartitions),
		BatchSize:    cfg.BatchSize,
		BatchTimeout: time.Second,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
		MaxAttempts:  cfg.RetryAttempts,

		Transport: &kafka.Transport{
			Dial: func(ctx context.Context, network string, address string) (net.Conn, error) {
				dialer := &kafka.Dialer{
					Timeout:   10 * time.Second,
					DualStack: true,
					KeepAlive: 30 * time.Second,
				}
				return dialer.DialContext(ctx, network, address)
			},
		},

		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			log.Printf("kafka notifier error: "+msg, args...)
		}),

		Compression: kafka.Snappy,
	}

	return &KafkaCartNotifier{writer: writer}, nil
}

func (n *KafkaCartNotifier) Notify(ctx context.Context, cartID string, notice string) error {
	if n.closed.Load() {
		return ErrNotifierClosed
	}

	payload, err := json.Marshal(UpdateNotice{
		CartID:     cartID,
		Message:    notice,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	return n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(cartID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "notice_type", Value: []byte("cart_update")},
		},
	})
}

func (n *KafkaCartNotifier) Close() error {
	if !n.closed.CompareAndSwap(false, true) {
		return nil
	}
	return n.writer.Close()
}
