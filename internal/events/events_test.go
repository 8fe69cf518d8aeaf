package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/dirk.krummacker/address-book/internal/model"
)

type recordingWriter struct {
	messages []kafka.Message
	err      error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

var occurredAt = time.Date(2026, time.October, 19, 12, 0, 0, 0, time.UTC)

func contact() model.Contact {
	return model.Contact{
		ID:       29,
		UserID:   7,
		Name:     "Erika",
		Surname:  "Mustermann",
		Birthday: model.NewDate(1969, time.March, 2),
	}
}

// TestNewContactEvent expects a fresh event id and the owner taken from the contact.
func TestNewContactEvent(t *testing.T) {
	first := NewContactEvent(ContactCreated, contact(), occurredAt)
	second := NewContactEvent(ContactCreated, contact(), occurredAt)

	_, err := uuid.Parse(first.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, int64(7), first.OwnerID)
}

// TestPublish expects one message keyed by owner with the event as JSON value.
func TestPublish(t *testing.T) {
	w := &recordingWriter{}
	p := &KafkaPublisher{writer: w}
	event := NewContactEvent(ContactDeleted, contact(), occurredAt)

	require.NoError(t, p.Publish(context.Background(), event))
	require.Len(t, w.messages, 1)
	msg := w.messages[0]
	assert.Equal(t, "7", string(msg.Key))
	assert.Equal(t, occurredAt, msg.Time)
	assert.Contains(t, msg.Headers, kafka.Header{Key: "event_type", Value: []byte(ContactDeleted)})

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "contact.deleted", decoded["type"])
	assert.Equal(t, event.ID, decoded["id"])
	body := decoded["contact"].(map[string]any)
	assert.Equal(t, "Erika", body["name"])
	assert.Equal(t, "1969-03-02", body["birthday"])
	assert.NotContains(t, body, "user_id")
}

// TestPublishFailure expects broker errors to be returned to the caller.
func TestPublishFailure(t *testing.T) {
	p := &KafkaPublisher{writer: &recordingWriter{err: errors.New("leader not available")}}
	err := p.Publish(context.Background(), NewContactEvent(ContactCreated, contact(), occurredAt))
	assert.ErrorContains(t, err, "leader not available")
}
