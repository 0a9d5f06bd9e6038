// Package ledger declares the ports between the ledger view, the ledger
// service and the persistence adapters.
package ledger

import (
	"context"

	"paie/internal/core"
)

type (
	// Ledger is what the view talks to. The HTTP client in ledgerapi and the
	// in-process LedgerService both satisfy it.
	Ledger interface {
		ListBalances(ctx context.Context) ([]core.WorkerBalance, error)
		CreateWorker(ctx context.Context, in core.WorkerInput) (core.Worker, error)
		CreateTransaction(ctx context.Context, in core.TransactionInput) (core.Transaction, error)
		DeleteWorker(ctx context.Context, id string) error
		DeleteTransaction(ctx context.Context, id string) error
	}

	WorkerStore interface {
		CreateWorker(ctx context.Context, w core.Worker) error
		// GetWorker returns core.ErrWorkerNotFound when id is unknown.
		GetWorker(ctx context.Context, id string) (core.Worker, error)
		// ListWorkers returns workers in creation order.
		ListWorkers(ctx context.Context) ([]core.Worker, error)
		// DeleteWorker removes the worker and all of its transactions.
		DeleteWorker(ctx context.Context, id string) error
	}

	TransactionStore interface {
		// CreateTransaction returns core.ErrWorkerNotFound when the worker is unknown.
		CreateTransaction(ctx context.Context, t core.Transaction) error
		GetTransaction(ctx context.Context, id string) (core.Transaction, error)
		// ListTransactions and ListWorkerTransactions return the newest first.
		ListTransactions(ctx context.Context) ([]core.Transaction, error)
		ListWorkerTransactions(ctx context.Context, workerID string) ([]core.Transaction, error)
		DeleteTransaction(ctx context.Context, id string) error
	}

	// Store is the persistence port of the reference backend.
	Store interface {
		WorkerStore
		TransactionStore
		Close() error
	}
)
