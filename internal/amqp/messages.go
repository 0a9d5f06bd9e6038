package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"paie/internal/core"
)

// EventKind names a ledger mutation.
type EventKind string

const (
	EventWorkerCreated      EventKind = "worker.created"
	EventWorkerDeleted      EventKind = "worker.deleted"
	EventTransactionCreated EventKind = "transaction.created"
	EventTransactionDeleted EventKind = "transaction.deleted"
)

// LedgerEvent is published after every successful mutation of the ledger.
// Worker is always set; Transaction only for transaction events.
type LedgerEvent struct {
	ID          string            `json:"id"`
	Kind        EventKind         `json:"kind"`
	Worker      core.Worker       `json:"worker"`
	Transaction *core.Transaction `json:"transaction,omitempty"`
	// Removed counts the transactions dropped along with a deleted worker.
	Removed    int       `json:"removed,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewWorkerEvent(kind EventKind, w core.Worker) *LedgerEvent {
	return &LedgerEvent{
		ID:         uuid.NewString(),
		Kind:       kind,
		Worker:     w,
		OccurredAt: time.Now().UTC(),
	}
}

func NewTransactionEvent(kind EventKind, w core.Worker, t core.Transaction) *LedgerEvent {
	ev := NewWorkerEvent(kind, w)
	ev.Transaction = &t
	return ev
}

// Validate rejects events the journal cannot record.
func (e *LedgerEvent) Validate() error {
	switch e.Kind {
	case EventWorkerCreated, EventWorkerDeleted:
	case EventTransactionCreated, EventTransactionDeleted:
		if e.Transaction == nil {
			return fmt.Errorf("%s event without transaction", e.Kind)
		}
	default:
		return fmt.Errorf("unknown event kind %q", e.Kind)
	}
	if e.Worker.ID == "" {
		return fmt.Errorf("%s event without worker", e.Kind)
	}
	return nil
}

func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var ev LedgerEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	return &ev, nil
}
