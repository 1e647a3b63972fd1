/*
Package events provides an in-memory event broker for Omzet's pub/sub messaging.

The events package implements a lightweight event bus for broadcasting domain
events to interested subscribers. It supports asynchronous delivery over
buffered channels, enabling loose coupling between the engines for state
changes, notifications, and monitoring.

# Core Components

Broker:
  - In-memory message bus, started once by the manager
  - Non-blocking publish; a slow subscriber drops, never stalls writers
  - Subscribe returns a receive channel; Unsubscribe detaches it

Event:
  - Type names the domain occurrence (records assigned, reservation
    expired, deposit written, classification flipped, daily report,
    invariant violated, repair completed)
  - Subject carries the primary entity ID
  - Data carries string key/value details for consumers

# Usage

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	go func() {
		for ev := range sub {
			fmt.Println(ev.Type, ev.Subject)
		}
	}()

	broker.Publish(&events.Event{
		Type:    events.EventRecordsAssigned,
		Subject: "db-123",
		Data:    map[string]string{"staff_id": "s1", "count": "50"},
	})

# Integration Points

Every engine publishes here: pkg/resolver, pkg/reservation, pkg/assign,
pkg/deposit, pkg/report, and pkg/repair. External delivery (messaging
platforms, webhooks) subscribes at the edge and stays out of the engines.
*/
package events
