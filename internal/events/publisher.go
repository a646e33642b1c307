// Package events publishes run lifecycle events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"example.com/clanstats/internal/domain"
)

// EventTypeRunCompleted is the event_type header value for run summaries.
const EventTypeRunCompleted = "clanstats.run_completed"

// Publisher emits run summaries to a Kafka topic. A nil *Publisher is a
// no-op, so callers do not need to special-case the brokerless setup.
type Publisher struct {
	brokers []string
	topic   string

	mu     sync.Mutex
	writer *kafka.Writer
}

// NewPublisher creates a Publisher, or nil when no brokers are configured.
func NewPublisher(brokers []string, topic string) *Publisher {
	if len(brokers) == 0 || topic == "" {
		return nil
	}
	return &Publisher{brokers: brokers, topic: topic}
}

// PublishRunCompleted emits the summary of a successful run.
func (p *Publisher) PublishRunCompleted(ctx context.Context, summary domain.RunSummary) error {
	if p == nil {
		return nil
	}

	payload, err := json.Marshal(summary)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(summary.RunID),
		Value: payload,
		Time:  time.Now().UTC(),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventTypeRunCompleted)},
		},
	}
	return p.writeMessages(ctx, msg)
}

func (p *Publisher) writeMessages(ctx context.Context, msgs ...kafka.Message) error {
	return p.lazyWriter().WriteMessages(ctx, msgs...)
}

func (p *Publisher) lazyWriter() *kafka.Writer {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.writer == nil {
		p.writer = &kafka.Writer{
			Addr:         kafka.TCP(p.brokers...),
			Topic:        p.topic,
			RequiredAcks: kafka.RequireAll,
			Compression:  kafka.Snappy,
			Async:        false,
		}
	}
	return p.writer
}

// Close releases the underlying writer.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.writer == nil {
		return nil
	}
	err := p.writer.Close()
	p.writer = nil
	return err
}
