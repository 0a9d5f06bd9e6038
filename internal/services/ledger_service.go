package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"paie/internal/amqp"
	"paie/internal/core"
	"paie/internal/ledger"
	"paie/internal/log"
)

// EventPublisher is the outbound side of the journal queue.
type EventPublisher interface {
	PublishEvent(ctx context.Context, ev *amqp.LedgerEvent) error
}

// LedgerService owns ids, timestamps, validation and aggregation on top of a
// ledger.Store, and publishes an event after every mutation.
type LedgerService struct {
	store     ledger.Store
	publisher EventPublisher
	logger    *log.Logger

	now   func() core.Timestamp
	newID func() string
}

var _ ledger.Ledger = (*LedgerService)(nil)

// NewLedgerService wires a store and an optional publisher.
func NewLedgerService(store ledger.Store, publisher EventPublisher, logger *log.Logger) *LedgerService {
	if logger == nil {
		logger = log.Discard()
	}
	return &LedgerService{
		store:     store,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentLedger),
		now:       core.Now,
		newID:     uuid.NewString,
	}
}

func (s *LedgerService) CreateWorker(ctx context.Context, in core.WorkerInput) (core.Worker, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Position = strings.TrimSpace(in.Position)
	in.Phone = strings.TrimSpace(in.Phone)
	if err := in.Validate(); err != nil {
		return core.Worker{}, err
	}

	w := core.Worker{
		ID:        s.newID(),
		Name:      in.Name,
		Position:  in.Position,
		Phone:     in.Phone,
		CreatedAt: s.now(),
	}
	if err := s.store.CreateWorker(ctx, w); err != nil {
		return core.Worker{}, fmt.Errorf("save worker: %w", err)
	}

	s.logger.InfoContext(ctx, "Worker created",
		log.FieldWorkerID, w.ID,
		log.FieldWorkerName, w.Name)
	s.publish(ctx, amqp.NewWorkerEvent(amqp.EventWorkerCreated, w))
	return w, nil
}

func (s *LedgerService) GetWorker(ctx context.Context, id string) (core.Worker, error) {
	return s.store.GetWorker(ctx, id)
}

func (s *LedgerService) ListWorkers(ctx context.Context) ([]core.Worker, error) {
	return s.store.ListWorkers(ctx)
}

// DeleteWorker removes a worker together with its transactions.
func (s *LedgerService) DeleteWorker(ctx context.Context, id string) error {
	w, err := s.store.GetWorker(ctx, id)
	if err != nil {
		return err
	}
	txs, err := s.store.ListWorkerTransactions(ctx, id)
	if err != nil {
		return fmt.Errorf("list transactions: %w", err)
	}
	if err := s.store.DeleteWorker(ctx, id); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Worker deleted",
		log.FieldWorkerID, id,
		log.FieldCount, len(txs))
	ev := amqp.NewWorkerEvent(amqp.EventWorkerDeleted, w)
	ev.Removed = len(txs)
	s.publish(ctx, ev)
	return nil
}

func (s *LedgerService) CreateTransaction(ctx context.Context, in core.TransactionInput) (core.Transaction, error) {
	in.Description = strings.TrimSpace(in.Description)
	if err := in.Validate(); err != nil {
		return core.Transaction{}, err
	}
	w, err := s.store.GetWorker(ctx, in.WorkerID)
	if err != nil {
		return core.Transaction{}, err
	}

	t := core.Transaction{
		ID:          s.newID(),
		WorkerID:    in.WorkerID,
		Type:        in.Type,
		Amount:      in.Amount,
		Description: in.Description,
		Date:        s.now(),
	}
	if err := s.store.CreateTransaction(ctx, t); err != nil {
		if errors.Is(err, core.ErrWorkerNotFound) {
			return core.Transaction{}, err
		}
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	s.logger.InfoContext(ctx, "Transaction created",
		log.FieldTransactionID, t.ID,
		log.FieldWorkerID, t.WorkerID,
		log.FieldTxType, string(t.Type),
		log.FieldAmountCents, t.Amount.Cents)
	s.publish(ctx, amqp.NewTransactionEvent(amqp.EventTransactionCreated, w, t))
	return t, nil
}

func (s *LedgerService) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	return s.store.ListTransactions(ctx)
}

// ListWorkerTransactions returns an empty list for an unknown worker.
func (s *LedgerService) ListWorkerTransactions(ctx context.Context, workerID string) ([]core.Transaction, error) {
	return s.store.ListWorkerTransactions(ctx, workerID)
}

func (s *LedgerService) DeleteTransaction(ctx context.Context, id string) error {
	t, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Transaction deleted",
		log.FieldTransactionID, id,
		log.FieldWorkerID, t.WorkerID)

	w, err := s.store.GetWorker(ctx, t.WorkerID)
	if err != nil {
		w = core.Worker{ID: t.WorkerID}
	}
	s.publish(ctx, amqp.NewTransactionEvent(amqp.EventTransactionDeleted, w, t))
	return nil
}

// WorkerBalance aggregates one worker.
func (s *LedgerService) WorkerBalance(ctx context.Context, id string) (core.WorkerBalance, error) {
	w, err := s.store.GetWorker(ctx, id)
	if err != nil {
		return core.WorkerBalance{}, err
	}
	txs, err := s.store.ListWorkerTransactions(ctx, id)
	if err != nil {
		return core.WorkerBalance{}, fmt.Errorf("list transactions: %w", err)
	}
	return core.NewWorkerBalance(w, txs), nil
}

// ListBalances aggregates every worker, in creation order.
func (s *LedgerService) ListBalances(ctx context.Context) ([]core.WorkerBalance, error) {
	workers, err := s.store.ListWorkers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list workers: %w", err)
	}
	balances := make([]core.WorkerBalance, 0, len(workers))
	for _, w := range workers {
		txs, err := s.store.ListWorkerTransactions(ctx, w.ID)
		if err != nil {
			return nil, fmt.Errorf("list transactions of %s: %w", w.ID, err)
		}
		balances = append(balances, core.NewWorkerBalance(w, txs))
	}
	return balances, nil
}

// publish never fails the caller: the mutation is already stored.
func (s *LedgerService) publish(ctx context.Context, ev *amqp.LedgerEvent) {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "AMQP publisher not configured, skipping event", log.FieldEvent, string(ev.Kind))
		return
	}
	if err := s.publisher.PublishEvent(ctx, ev); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish ledger event",
			log.FieldEvent, string(ev.Kind),
			log.FieldError, err.Error())
	}
}

// Ping reports whether the store is reachable. Stores without a connection
// are always reachable.
func (s *LedgerService) Ping(ctx context.Context) error {
	if p, ok := s.store.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close closes the store and, when it can be closed, the publisher.
func (s *LedgerService) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if c, ok := s.publisher.(io.Closer); ok && c != nil {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %w", errors.Join(errs...))
	}
	return nil
}
