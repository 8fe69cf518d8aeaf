// Package events publishes contact change events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"gitlab.com/dirk.krummacker/address-book/internal/model"
)

// Event types.
const (
	ContactCreated = "contact.created"
	ContactUpdated = "contact.updated"
	ContactDeleted = "contact.deleted"
)

// ContactEvent describes a committed change of a contact. For deletions Contact holds the
// state before the deletion.
type ContactEvent struct {
	ID         string        `json:"id"`
	Type       string        `json:"type"`
	OwnerID    int64         `json:"owner_id"`
	OccurredAt time.Time     `json:"occurred_at"`
	Contact    model.Contact `json:"contact"`
}

// NewContactEvent creates an event with a random id.
func NewContactEvent(eventType string, contact model.Contact, occurredAt time.Time) ContactEvent {
	return ContactEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		OwnerID:    contact.UserID,
		OccurredAt: occurredAt,
		Contact:    contact,
	}
}

// Publisher sends contact events.
type Publisher interface {
	Publish(ctx context.Context, event ContactEvent) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to a Kafka topic. Messages are keyed by owner so that all
// changes of one user keep their order.
type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event ContactEvent) error {
	msg, err := encode(event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to send %s event to kafka: %w", event.Type, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka producer: %w", err)
	}
	return nil
}

func encode(event ContactEvent) (kafka.Message, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to encode %s event: %w", event.Type, err)
	}
	return kafka.Message{
		Key:   []byte(strconv.FormatInt(event.OwnerID, 10)),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "event_id", Value: []byte(event.ID)},
		},
		Time: event.OccurredAt,
	}, nil
}

// NopPublisher drops all events. It is used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, ContactEvent) error { return nil }
func (NopPublisher) Close() error                                { return nil }
