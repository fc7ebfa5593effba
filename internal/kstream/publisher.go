// Package kstream publishes list mutation events to Kafka or to local JSONL files.
package kstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"amlaw-directory/internal/model"
)

// Publisher delivers list events.
type Publisher interface {
	Publish(ctx context.Context, event model.ListEvent) error
	Close() error
}

// KafkaPublisher writes events to a topic through one long-lived writer.
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher creates a publisher for topic on brokers. Writes are
// asynchronous; delivery errors are reported to log.
func NewKafkaPublisher(brokers []string, topic string, log *zap.Logger) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka publisher: no brokers configured")
	}
	if topic == "" {
		return nil, errors.New("kafka publisher: no topic configured")
	}
	if log == nil {
		log = zap.NewNop()
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...), // segmentio/kafka-go: broker addresses
		Topic:        topic,
		Balancer:     &kafka.Hash{},    // same user key, same partition
		RequiredAcks: kafka.RequireOne, // leader ack only
		Async:        true,             // WriteMessages never blocks the request
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				log.Warn("kafka delivery failed", zap.String("topic", topic), zap.Int("messages", len(messages)), zap.Error(err))
			}
		},
	}
	return &KafkaPublisher{writer: w}, nil
}

// Publish enqueues the event keyed by its user key.
func (p *KafkaPublisher) Publish(ctx context.Context, event model.ListEvent) error {
	msg, err := message(event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msg)
}

// Close flushes pending messages.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func message(event model.ListEvent) (kafka.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode list event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(event.UserKey),
		Value: data,
		Time:  time.Now(),
	}, nil
}

// FilePublisher appends events to a daily JSONL file.
type FilePublisher struct {
	dir string
	mu  sync.Mutex
	now func() time.Time
}

// NewFilePublisher creates dir if needed.
func NewFilePublisher(dir string) (*FilePublisher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create events dir: %w", err)
	}
	return &FilePublisher{dir: dir, now: time.Now}, nil
}

// Publish appends one line to list_events_<date>.jsonl.
func (p *FilePublisher) Publish(_ context.Context, event model.ListEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode list event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	fpath := filepath.Join(p.dir, fmt.Sprintf("list_events_%s.jsonl", p.now().UTC().Format("2006-01-02")))
	f, err := os.OpenFile(fpath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(append(data, '\n'))
	return err
}

func (p *FilePublisher) Close() error { return nil }

// NopPublisher discards events.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, model.ListEvent) error { return nil }
func (NopPublisher) Close() error { return nil }
