// Package memory is an in-process ledger store, used by default by the API
// and throughout the tests.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"paie/internal/core"
)

type Store struct {
	mu      sync.Mutex
	workers []core.Worker
	txs     []core.Transaction
}

func New() *Store {
	return &Store{}
}

func (s *Store) CreateWorker(_ context.Context, w core.Worker) error {
	if w.ID == "" {
		return core.ErrEmptyWorkerID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.workerIndex(w.ID) >= 0 {
		return fmt.Errorf("worker %s already exists", w.ID)
	}
	s.workers = append(s.workers, w)
	return nil
}

func (s *Store) GetWorker(_ context.Context, id string) (core.Worker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.workerIndex(id)
	if i < 0 {
		return core.Worker{}, core.ErrWorkerNotFound
	}
	return s.workers[i], nil
}

func (s *Store) ListWorkers(_ context.Context) ([]core.Worker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Worker{}, s.workers...), nil
}

// DeleteWorker removes the worker and cascades to its transactions.
func (s *Store) DeleteWorker(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.workerIndex(id)
	if i < 0 {
		return core.ErrWorkerNotFound
	}
	s.workers = slices.Delete(s.workers, i, i+1)
	s.txs = slices.DeleteFunc(s.txs, func(t core.Transaction) bool { return t.WorkerID == id })
	return nil
}

func (s *Store) CreateTransaction(_ context.Context, t core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.workerIndex(t.WorkerID) < 0 {
		return core.ErrWorkerNotFound
	}
	s.txs = append(s.txs, t)
	return nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.txs {
		if t.ID == id {
			return t, nil
		}
	}
	return core.Transaction{}, core.ErrTransactionNotFound
}

func (s *Store) ListTransactions(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return newestFirst(s.txs, func(core.Transaction) bool { return true }), nil
}

func (s *Store) ListWorkerTransactions(_ context.Context, workerID string) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return newestFirst(s.txs, func(t core.Transaction) bool { return t.WorkerID == workerID }), nil
}

func (s *Store) DeleteTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.txs)
	s.txs = slices.DeleteFunc(s.txs, func(t core.Transaction) bool { return t.ID == id })
	if len(s.txs) == n {
		return core.ErrTransactionNotFound
	}
	return nil
}

func (s *Store) Close() error { return nil }

func (s *Store) workerIndex(id string) int {
	return slices.IndexFunc(s.workers, func(w core.Worker) bool { return w.ID == id })
}

// newestFirst filters txs and orders them by date descending; among equal
// dates the later insert comes first.
func newestFirst(txs []core.Transaction, keep func(core.Transaction) bool) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	for i := len(txs) - 1; i >= 0; i-- {
		if keep(txs[i]) {
			out = append(out, txs[i])
		}
	}
	slices.SortStableFunc(out, func(a, b core.Transaction) int {
		return b.Date.Compare(a.Date.Time)
	})
	return out
}
