package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"eventsphere/internal/logger"
	"eventsphere/internal/notify"
)

// Producer publishes notifications to a Kafka topic so every instance's hub
// sees them. It satisfies notify.Publisher.
type Producer struct {
	Writer *kafka.Writer
	Local  *notify.Hub
	Logger *logger.Logger
}

// NewProducer builds an async writer. Messages the broker refuses are
// delivered to the local hub instead of being lost.
func NewProducer(brokers []string, topic string, local *notify.Hub, log *logger.Logger) *Producer {
	p := &Producer{Local: local, Logger: log}
	p.Writer = &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		Async:        true,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Completion:   p.completion,
	}
	return p
}

// Publish keys by channel so one channel's events stay ordered.
func (p *Producer) Publish(channel, event string, payload interface{}) {
	msg, err := encode(channel, event, payload)
	if err != nil {
		p.Logger.Error("KAFKA", fmt.Sprintf("Failed to serialise %s for %s: %v", event, channel, err))
		return
	}
	if err := p.Writer.WriteMessages(context.Background(), msg); err != nil {
		p.Logger.Warn("KAFKA", fmt.Sprintf("Write of %s failed, delivering locally: %v", event, err))
		p.deliverLocally([]kafka.Message{msg})
	}
}

func (p *Producer) completion(messages []kafka.Message, err error) {
	if err == nil {
		p.Logger.LogKafka("produced", p.Writer.Topic, fmt.Sprintf("%d message(s)", len(messages)))
		return
	}
	p.Logger.Warn("KAFKA", fmt.Sprintf("Batch of %d failed, delivering locally: %v", len(messages), err))
	p.deliverLocally(messages)
}

func (p *Producer) deliverLocally(messages []kafka.Message) {
	if p.Local == nil {
		return
	}
	for _, m := range messages {
		msg, err := decode(m)
		if err != nil {
			continue
		}
		p.Local.Deliver(msg)
	}
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}

func encode(channel, event string, payload interface{}) (kafka.Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return kafka.Message{}, err
	}
	value, err := json.Marshal(notify.Message{Channel: channel, Event: event, Payload: raw})
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{Key: []byte(channel), Value: value}, nil
}

func decode(m kafka.Message) (notify.Message, error) {
	var msg notify.Message
	if err := json.Unmarshal(m.Value, &msg); err != nil {
		return notify.Message{}, err
	}
	if msg.Channel == "" || msg.Event == "" {
		return notify.Message{}, fmt.Errorf("message at offset %d has no channel or event", m.Offset)
	}
	return msg, nil
}
