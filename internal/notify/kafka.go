package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"epiwatch/internal/alert"
	"epiwatch/internal/logger"
)

// MessageWriter is the part of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes one JSON message per alert, keyed by keyword.
type KafkaPublisher struct {
	writer MessageWriter
	log    logger.Logger
}

func NewKafkaWriter(brokers []string, topic string, writeTimeout time.Duration) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: writeTimeout,
		MaxAttempts:  3,
	}
}

func NewKafkaPublisher(w MessageWriter, log logger.Logger) *KafkaPublisher {
	if log == nil {
		log = logger.NewNop()
	}
	return &KafkaPublisher{writer: w, log: log}
}

func (p *KafkaPublisher) Notify(ctx context.Context, set alert.AlertSet) error {
	if set.Empty() {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(set.Alerts))
	for _, a := range set.Alerts {
		data, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("marshal alert: %w", err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(a.Keyword),
			Value: data,
			Headers: []kafka.Header{
				{Key: "run_id", Value: []byte(set.RunID)},
				{Key: "source", Value: []byte(a.Source)},
			},
		})
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		p.log.Error("Publish alerts failed", logger.String("run_id", set.RunID), logger.Error(err))
		return fmt.Errorf("publish alerts: %w", err)
	}
	p.log.Info("Alerts published", logger.String("run_id", set.RunID), logger.Int("messages", len(msgs)))
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
