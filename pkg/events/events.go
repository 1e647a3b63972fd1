package events

import (
	"encoding/json"
	"sync"
	"time"
)

// EventType represents the type of audit event
type EventType string

const (
	EventReservationCreated     EventType = "reservation.created"
	EventReservationActivated   EventType = "reservation.activated"
	EventReservationDeactivated EventType = "reservation.deactivated"
	EventReservationExpired     EventType = "reservation.expired"
	EventRecordInvalidated      EventType = "record.invalidated"
	EventRecordsAssigned        EventType = "records.assigned"
	EventRequestSubmitted       EventType = "request.submitted"
	EventRequestApproved        EventType = "request.approved"
	EventRequestRejected        EventType = "request.rejected"
	EventDepositWritten         EventType = "deposit.written"
	EventClassificationFlipped  EventType = "classification.flipped"
	EventDailyReport            EventType = "report.daily"
	EventRepairCompleted        EventType = "repair.completed"
	EventInvariantViolated      EventType = "invariant.violated"
)

// Event is one audit event. Actor is the user who triggered the change,
// Subject the entity it concerns.
type Event struct {
	ID        string            `json:"id"`
	Type      EventType         `json:"type"`
	Actor     string            `json:"actor,omitempty"`
	Subject   string            `json:"subject,omitempty"`
	Data      map[string]string `json:"data,omitempty"`
	Timestamp time.Time         `json:"ts"`
}

// Envelope renders the event as the JSON wire form consumed by the
// notification adapter: {type, actor, subject, data, ts}.
func (e *Event) Envelope() ([]byte, error) {
	return json.Marshal(struct {
		Type    EventType         `json:"type"`
		Actor   string            `json:"actor,omitempty"`
		Subject string            `json:"subject,omitempty"`
		Data    map[string]string `json:"data,omitempty"`
		TS      time.Time         `json:"ts"`
	}{e.Type, e.Actor, e.Subject, e.Data, e.Timestamp})
}

// Subscriber is a channel that receives events
type Subscriber chan *Event

// Broker manages event subscriptions and distribution. Publishing never
// blocks the engine: a subscriber with a full buffer misses the event and
// the delivery adapter is expected to reconcile on its own schedule.
type Broker struct {
	subscribers map[Subscriber]bool
	mu          sync.RWMutex
	eventCh     chan *Event
	stopCh      chan struct{}
}

// NewBroker creates a new event broker
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[Subscriber]bool),
		eventCh:     make(chan *Event, 100), // Buffer up to 100 events
		stopCh:      make(chan struct{}),
	}
}

// Start begins the broker's event distribution loop
func (b *Broker) Start() {
	go b.run()
}

// Stop stops the broker
func (b *Broker) Stop() {
	close(b.stopCh)
}

// Subscribe creates a new subscription and returns a channel
func (b *Broker) Subscribe() Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := make(Subscriber, 50) // Buffer per subscriber
	b.subscribers[sub] = true
	return sub
}

// Unsubscribe removes a subscription
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.subscribers, sub)
	close(sub)
}

// Publish publishes an event to all subscribers
func (b *Broker) Publish(event *Event) {
	// Set timestamp if not set
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	select {
	case b.eventCh <- event:
	case <-b.stopCh:
	}
}

func (b *Broker) run() {
	for {
		select {
		case event := <-b.eventCh:
			b.broadcast(event)
		case <-b.stopCh:
			return
		}
	}
}

func (b *Broker) broadcast(event *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subscribers {
		select {
		case sub <- event:
		default:
			// Subscriber buffer full, skip
		}
	}
}

// SubscriberCount returns the number of active subscribers
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
