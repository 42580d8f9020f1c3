package history

import (
	"context"
	"time"
)

// EventKind classifies a ledger entry.
type EventKind string

const (
	EventCreated  EventKind = "created"
	EventInflight EventKind = "inflight"
	EventStatus   EventKind = "status"
	EventPromoted EventKind = "promoted"
)

// Event is one entry in the candidate ledger. The ledger is append-only;
// entries record what the coordinator did, not what the fleet should do.
type Event struct {
	ID        string    `json:"id"`
	Version   string    `json:"version"`
	BuildName string    `json:"build_name"`
	Kind      EventKind `json:"kind"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Filter narrows a ledger listing. Zero values match everything.
type Filter struct {
	Version   string
	BuildName string
	Kind      EventKind
	Limit     int
	Offset    int
}

// Store defines the interface for the candidate ledger.
type Store interface {
	// Lifecycle
	Init(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error

	// Ledger operations
	RecordEvent(ctx context.Context, event *Event) error
	ListEvents(ctx context.Context, filter Filter) ([]*Event, error)
	LatestPromotion(ctx context.Context) (*Event, error)
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Utility
	HealthCheck(ctx context.Context) error
}
