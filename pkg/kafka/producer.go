package kafka

import (
	"context"
	"fmt"
	"sync"

	kafka_config "examseat/pkg/kafka/config"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/compress"
)

// Producer wraps a kafka-go writer for a single topic.
type Producer struct {
	writer *kafka.Writer
	topic  string
	closed bool
	mu     sync.RWMutex
}

func NewProducer(cfg *kafka_config.Config, topic string) (*Producer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if topic == "" {
		return nil, fmt.Errorf("topic cannot be empty")
	}

	var compression compress.Compression
	switch cfg.ProducerCompression {
	case "gzip":
		compression = compress.Gzip
	case "snappy":
		compression = compress.Snappy
	case "lz4":
		compression = compress.Lz4
	case "zstd":
		compression = compress.Zstd
	default:
		compression = compress.Snappy
	}

	var requiredAcks kafka.RequiredAcks
	switch cfg.ProducerRequireAcks {
	case -1:
		requiredAcks = kafka.RequireAll
	case 0:
		requiredAcks = kafka.RequireNone
	case 1:
		requiredAcks = kafka.RequireOne
	default:
		requiredAcks = kafka.RequireAll
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: requiredAcks,
		Compression:  compression,
		MaxAttempts:  cfg.ProducerMaxAttempts,
		BatchTimeout: cfg.ProducerBatchTimeout,
		Async:        cfg.ProducerAsync,
		WriteTimeout: cfg.WriteTimeout,
	}

	return &Producer{
		writer: writer,
		topic:  topic,
	}, nil
}

// Publish writes a single message to the producer's topic.
func (p *Producer) Publish(ctx context.Context, msg Message) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return fmt.Errorf("producer is closed")
	}
	p.mu.RUnlock()

	headers := make([]kafka.Header, 0, len(msg.Headers))
	for key, value := range msg.Headers {
		headers = append(headers, kafka.Header{Key: key, Value: []byte(value)})
	}

	kafkaMsg := kafka.Message{
		Key:     []byte(msg.Key),
		Value:   msg.Value,
		Headers: headers,
		Time:    msg.Timestamp,
	}

	if err := p.writer.WriteMessages(ctx, kafkaMsg); err != nil {
		return fmt.Errorf("failed to publish message to topic %s: %w", p.topic, err)
	}

	return nil
}

// Close flushes pending messages and releases the writer.
func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	return p.writer.Close()
}
