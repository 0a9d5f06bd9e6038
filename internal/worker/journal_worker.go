// Package worker turns ledger events into journal rows.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"paie/internal/amqp"
	"paie/internal/cache"
	"paie/internal/log"
	"paie/internal/sheets"
)

// EventConsumer delivers ledger events to a handler until ctx ends.
type EventConsumer interface {
	ConsumeEvents(ctx context.Context, handler func(context.Context, *amqp.LedgerEvent) error) error
}

// JournalWorker appends one journal row per ledger event. Redelivered events
// that were already written are skipped.
type JournalWorker struct {
	writer sheets.JournalWriter
	logger *log.Logger
	seen   *cache.LRUCache[string]
}

const (
	seenCapacity = 10000
	seenTTL      = 24 * time.Hour
)

func NewJournalWorker(writer sheets.JournalWriter, logger *log.Logger) *JournalWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &JournalWorker{
		writer: writer,
		logger: logger.WithComponent(log.ComponentWorker),
		seen:   cache.NewLRUCache[string](seenCapacity, seenTTL),
	}
}

// HandleEvent writes ev to the journal. A returned error asks the broker to
// redeliver.
func (w *JournalWorker) HandleEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	if ev == nil {
		return errors.New("nil event")
	}
	if ref, ok := w.seen.Get(ev.ID); ok {
		w.logger.DebugContext(ctx, "Event already journaled, skipping",
			log.FieldEvent, string(ev.Kind),
			"event_id", ev.ID,
			"row", ref)
		return nil
	}

	ref, err := w.writer.AppendEntry(ctx, EntryFromEvent(ev))
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to append journal entry",
			log.FieldEvent, string(ev.Kind),
			"event_id", ev.ID,
			log.FieldError, err.Error())
		return fmt.Errorf("append journal entry: %w", err)
	}
	w.seen.Set(ev.ID, ref)

	w.logger.InfoContext(ctx, "Event journaled",
		log.FieldEvent, string(ev.Kind),
		log.FieldWorkerID, ev.Worker.ID,
		"row", ref)
	return nil
}

// Run consumes events until ctx is cancelled.
func (w *JournalWorker) Run(ctx context.Context, consumer EventConsumer) error {
	w.logger.InfoContext(ctx, "Journal worker started")
	err := consumer.ConsumeEvents(ctx, w.HandleEvent)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("consume events: %w", err)
	}
	w.logger.InfoContext(ctx, "Journal worker stopped")
	return nil
}

// EntryFromEvent flattens an event into a journal row.
func EntryFromEvent(ev *amqp.LedgerEvent) sheets.JournalEntry {
	e := sheets.JournalEntry{
		Date:     ev.OccurredAt,
		Event:    string(ev.Kind),
		WorkerID: ev.Worker.ID,
		Worker:   ev.Worker.Name,
	}

	switch {
	case ev.Transaction != nil:
		amount := ev.Transaction.Amount
		e.Type = ev.Transaction.Type
		e.Amount = &amount
		e.Description = ev.Transaction.Description
	case ev.Kind == amqp.EventWorkerCreated:
		e.Description = joinNonEmpty(ev.Worker.Position, ev.Worker.Phone)
	case ev.Kind == amqp.EventWorkerDeleted && ev.Removed > 0:
		e.Description = fmt.Sprintf("%d transaction(s) supprimée(s)", ev.Removed)
	}
	return e
}

func joinNonEmpty(parts ...string) string {
	out := ""
	for _, p := range parts {
		if p == "" {
			continue
		}
		if out != "" {
			out += " · "
		}
		out += p
	}
	return out
}
