// Package events publishes domain events about invoices and imports.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	TypeImportCompleted = "import.completed"
	TypeInvoiceCreated  = "invoice.created"
	TypeInvoiceDeleted  = "invoice.deleted"
)

// Event is the envelope written to the broker.
type Event struct {
	ID         string    `json:"event_id"`
	Type       string    `json:"event_type"`
	Key        string    `json:"key"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload,omitempty"`
}

// New stamps an event with a fresh id and the current time.
func New(eventType, key string, payload any) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		Key:        key,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

// ImportCompleted is the payload of TypeImportCompleted.
type ImportCompleted struct {
	BatchID  string `json:"batch_id"`
	Source   string `json:"source"`
	Rows     int    `json:"rows"`
	Invoices int    `json:"invoices"`
	Details  int    `json:"details"`
}

// InvoiceCreated is the payload of TypeInvoiceCreated.
type InvoiceCreated struct {
	Code         string `json:"code"`
	StoreCode    string `json:"store_code"`
	CustomerCode string `json:"customer_code"`
	Lines        int    `json:"lines"`
}

// InvoiceDeleted is the payload of TypeInvoiceDeleted.
type InvoiceDeleted struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Events returns a copy of what was published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Types lists the types of the recorded events in publish order.
func (r *Recorder) Types() []string {
	var out []string
	for _, e := range r.Events() {
		out = append(out, e.Type)
	}
	return out
}
