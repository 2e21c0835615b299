package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"

	"eventsphere/internal/logger"
	"eventsphere/internal/notify"
)

type Consumer struct {
	reader *kafka.Reader
	log    *logger.Logger
}

// NewConsumer reads topic under groupID. Each instance needs its own group so
// that every instance receives every notification.
func NewConsumer(brokers []string, topic, groupID string, log *logger.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		Topic:       topic,
		GroupID:     groupID,
		StartOffset: kafka.LastOffset,
		MinBytes:    1,
		MaxBytes:    10e6, // 10MB
	})
	return &Consumer{reader: reader, log: log}
}

// Start hands every decoded message to deliver until ctx ends.
func (c *Consumer) Start(ctx context.Context, deliver func(notify.Message)) error {
	c.log.LogKafka("consume", c.reader.Config().Topic, "consumer started as "+c.reader.Config().GroupID)

	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			c.log.Error("KAFKA", fmt.Sprintf("Error reading message: %v", err))
			continue
		}

		msg, err := decode(m)
		if err != nil {
			c.log.Warn("KAFKA", fmt.Sprintf("Skipping undecodable message: %v", err))
			continue
		}
		deliver(msg)
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
