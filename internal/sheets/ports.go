// Package sheets defines the journal port: an append-only, human readable
// record of every ledger mutation.
package sheets

import (
	"context"
	"time"

	"paie/internal/core"
)

// Header is the first row of a journal sheet.
var Header = []any{"date", "event", "worker_id", "worker", "type", "amount", "description"}

// JournalEntry is one row of the journal.
type JournalEntry struct {
	Date        time.Time
	Event       string
	WorkerID    string
	Worker      string
	Type        core.TransactionType // empty for worker events
	Amount      *core.Money          // nil for worker events
	Description string
}

// Row renders the entry in Header order. Dates are written in loc.
func (e JournalEntry) Row(loc *time.Location) []any {
	if loc == nil {
		loc = time.UTC
	}
	amount := any("")
	if e.Amount != nil {
		amount = e.Amount.Euros()
	}
	return []any{
		e.Date.In(loc).Format("2006-01-02 15:04:05"),
		e.Event,
		e.WorkerID,
		e.Worker,
		string(e.Type),
		amount,
		e.Description,
	}
}

// JournalWriter appends entries and returns a reference to the written row.
type JournalWriter interface {
	AppendEntry(ctx context.Context, e JournalEntry) (rowRef string, err error)
}
