package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeWireForm(t *testing.T) {
	ev := &Event{
		ID:        "internal-id",
		Type:      EventReservationExpired,
		Actor:     "scheduler",
		Subject:   "res1",
		Data:      map[string]string{"product_id": "p1"},
		Timestamp: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}

	raw, err := ev.Envelope()
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "reservation.expired", got["type"])
	assert.Equal(t, "scheduler", got["actor"])
	assert.Equal(t, "res1", got["subject"])
	assert.Contains(t, got, "ts")
	// The internal event ID never crosses the wire.
	assert.NotContains(t, got, "id")
}

func TestBrokerDeliversToSubscriber(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()
	b.Publish(&Event{Type: EventDepositWritten, Subject: "d1"})

	select {
	case ev := <-sub:
		assert.Equal(t, EventDepositWritten, ev.Type)
		assert.False(t, ev.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}

	// Unsubscribe closes the channel so range loops terminate.
	b.Unsubscribe(sub)
	_, open := <-sub
	assert.False(t, open)
}
