package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"paie/internal/amqp"
	"paie/internal/core"
	"paie/internal/ledger/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*amqp.LedgerEvent
	err    error
}

func (p *recordingPublisher) PublishEvent(_ context.Context, ev *amqp.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) kinds() []amqp.EventKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]amqp.EventKind, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Kind
	}
	return out
}

// newTestService returns a service with deterministic ids and a clock that
// advances one minute per call.
func newTestService(pub EventPublisher) *LedgerService {
	s := NewLedgerService(memory.New(), pub, nil)
	var n int
	base := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	s.newID = func() string { n++; return fmt.Sprintf("id-%d", n) }
	s.now = func() core.Timestamp { n++; return core.Timestamp{Time: base.Add(time.Duration(n) * time.Minute)} }
	return s
}

func TestLedgerService_WorkerWithNameOnly(t *testing.T) {
	ctx := context.Background()
	s := newTestService(nil)

	w, err := s.CreateWorker(ctx, core.WorkerInput{Name: "  Jean Dupont "})
	if err != nil {
		t.Fatalf("CreateWorker() error = %v", err)
	}
	if w.Name != "Jean Dupont" || w.Position != "" || w.Phone != "" {
		t.Fatalf("CreateWorker() = %+v", w)
	}
	if w.ID == "" || w.CreatedAt.IsZero() {
		t.Fatalf("server fields not assigned: %+v", w)
	}

	balances, err := s.ListBalances(ctx)
	if err != nil {
		t.Fatalf("ListBalances() error = %v", err)
	}
	if len(balances) != 1 {
		t.Fatalf("ListBalances() len = %d, want 1", len(balances))
	}
	wb := balances[0]
	if wb.TotalDue.Cents != 0 || wb.TotalPaid.Cents != 0 || wb.Balance.Cents != 0 || len(wb.Transactions) != 0 {
		t.Fatalf("fresh worker balance = %+v", wb)
	}
}

func TestLedgerService_DueThenPaid(t *testing.T) {
	ctx := context.Background()
	s := newTestService(nil)
	w, _ := s.CreateWorker(ctx, core.WorkerInput{Name: "Jean"})

	if _, err := s.CreateTransaction(ctx, core.TransactionInput{WorkerID: w.ID, Type: core.TransactionDue, Amount: core.Money{Cents: 10000}}); err != nil {
		t.Fatalf("CreateTransaction(due) error = %v", err)
	}
	wb, err := s.WorkerBalance(ctx, w.ID)
	if err != nil {
		t.Fatalf("WorkerBalance() error = %v", err)
	}
	if wb.TotalDue.Cents != 10000 || wb.TotalPaid.Cents != 0 || wb.Balance.Cents != 10000 {
		t.Fatalf("after due 100: %+v", wb)
	}

	if _, err := s.CreateTransaction(ctx, core.TransactionInput{WorkerID: w.ID, Type: core.TransactionPaid, Amount: core.Money{Cents: 4000}}); err != nil {
		t.Fatalf("CreateTransaction(paid) error = %v", err)
	}
	wb, _ = s.WorkerBalance(ctx, w.ID)
	if wb.Balance.Cents != 6000 || !wb.Consistent() {
		t.Fatalf("after paid 40: %+v", wb)
	}
	if wb.Transactions[0].Type != core.TransactionPaid {
		t.Errorf("newest transaction should come first, got %v", wb.Transactions[0].Type)
	}
}

func TestLedgerService_Validation(t *testing.T) {
	ctx := context.Background()
	s := newTestService(nil)
	w, _ := s.CreateWorker(ctx, core.WorkerInput{Name: "Jean"})

	tests := []struct {
		name string
		call func() error
		want error
	}{
		{"blank name", func() error { _, err := s.CreateWorker(ctx, core.WorkerInput{Name: "   "}); return err }, core.ErrEmptyName},
		{"bad type", func() error {
			_, err := s.CreateTransaction(ctx, core.TransactionInput{WorkerID: w.ID, Type: "bonus"})
			return err
		}, core.ErrInvalidType},
		{"negative amount", func() error {
			_, err := s.CreateTransaction(ctx, core.TransactionInput{WorkerID: w.ID, Type: core.TransactionDue, Amount: core.Money{Cents: -1}})
			return err
		}, core.ErrNegativeAmount},
		{"unknown worker", func() error {
			_, err := s.CreateTransaction(ctx, core.TransactionInput{WorkerID: "ghost", Type: core.TransactionDue})
			return err
		}, core.ErrWorkerNotFound},
		{"delete unknown worker", func() error { return s.DeleteWorker(ctx, "ghost") }, core.ErrWorkerNotFound},
		{"delete unknown transaction", func() error { return s.DeleteTransaction(ctx, "ghost") }, core.ErrTransactionNotFound},
		{"balance of unknown worker", func() error { _, err := s.WorkerBalance(ctx, "ghost"); return err }, core.ErrWorkerNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLedgerService_DeleteCascadesAndPublishes(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	s := newTestService(pub)

	jean, _ := s.CreateWorker(ctx, core.WorkerInput{Name: "Jean"})
	marie, _ := s.CreateWorker(ctx, core.WorkerInput{Name: "Marie"})
	_, _ = s.CreateTransaction(ctx, core.TransactionInput{WorkerID: jean.ID, Type: core.TransactionDue, Amount: core.Money{Cents: 100}})
	tx, _ := s.CreateTransaction(ctx, core.TransactionInput{WorkerID: marie.ID, Type: core.TransactionDue, Amount: core.Money{Cents: 200}})

	if err := s.DeleteWorker(ctx, jean.ID); err != nil {
		t.Fatalf("DeleteWorker() error = %v", err)
	}
	all, _ := s.ListTransactions(ctx)
	if len(all) != 1 || all[0].ID != tx.ID {
		t.Fatalf("transactions after cascade = %+v", all)
	}

	if err := s.DeleteTransaction(ctx, tx.ID); err != nil {
		t.Fatalf("DeleteTransaction() error = %v", err)
	}

	want := []amqp.EventKind{
		amqp.EventWorkerCreated, amqp.EventWorkerCreated,
		amqp.EventTransactionCreated, amqp.EventTransactionCreated,
		amqp.EventWorkerDeleted, amqp.EventTransactionDeleted,
	}
	got := pub.kinds()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}
	if pub.events[4].Removed != 1 {
		t.Errorf("worker.deleted Removed = %d, want 1", pub.events[4].Removed)
	}
	if pub.events[5].Worker.Name != "Marie" {
		t.Errorf("transaction.deleted worker = %+v", pub.events[5].Worker)
	}
}

func TestLedgerService_PublishFailureDoesNotFailMutation(t *testing.T) {
	ctx := context.Background()
	s := newTestService(&recordingPublisher{err: errors.New("broker down")})

	if _, err := s.CreateWorker(ctx, core.WorkerInput{Name: "Jean"}); err != nil {
		t.Fatalf("CreateWorker() error = %v, want nil", err)
	}
	ws, _ := s.ListWorkers(ctx)
	if len(ws) != 1 {
		t.Fatalf("worker not stored: %v", ws)
	}
}

func TestLedgerService_Close(t *testing.T) {
	s := NewLedgerService(memory.New(), nil, nil)
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}

type pingStore struct {
	*memory.Store
	err error
}

func (p pingStore) Ping(context.Context) error { return p.err }

func TestLedgerService_Ping(t *testing.T) {
	ctx := context.Background()
	if err := NewLedgerService(memory.New(), nil, nil).Ping(ctx); err != nil {
		t.Errorf("memory store Ping() = %v, want nil", err)
	}
	down := errors.New("database is locked")
	if err := NewLedgerService(pingStore{memory.New(), down}, nil, nil).Ping(ctx); !errors.Is(err, down) {
		t.Errorf("Ping() = %v, want %v", err, down)
	}
}
