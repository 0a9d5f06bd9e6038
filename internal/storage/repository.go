package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"paie/internal/core"
	"paie/internal/log"

	_ "modernc.org/sqlite"
)

// SQLiteRepository implements ledger.Store on a SQLite file.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	logger  *log.Logger
}

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = log.Discard()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Run migrations first, on their own connection.
	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		logger:  logger.WithComponent(log.ComponentStorage),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database connection.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) CreateWorker(ctx context.Context, w core.Worker) error {
	if err := r.queries.CreateWorker(ctx, Worker{
		ID:        w.ID,
		Name:      w.Name,
		Position:  w.Position,
		Phone:     w.Phone,
		CreatedAt: w.CreatedAt.UnixMicro(),
	}); err != nil {
		return fmt.Errorf("create worker: %w", err)
	}
	r.logger.DebugContext(ctx, "Worker saved to SQLite", log.FieldWorkerID, w.ID)
	return nil
}

func (r *SQLiteRepository) GetWorker(ctx context.Context, id string) (core.Worker, error) {
	row, err := r.queries.GetWorker(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Worker{}, core.ErrWorkerNotFound
	}
	if err != nil {
		return core.Worker{}, fmt.Errorf("get worker %s: %w", id, err)
	}
	return toWorker(row), nil
}

func (r *SQLiteRepository) ListWorkers(ctx context.Context) ([]core.Worker, error) {
	rows, err := r.queries.ListWorkers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list workers: %w", err)
	}
	workers := make([]core.Worker, len(rows))
	for i, row := range rows {
		workers[i] = toWorker(row)
	}
	return workers, nil
}

// DeleteWorker removes the worker and its transactions in one transaction.
func (r *SQLiteRepository) DeleteWorker(ctx context.Context, id string) error {
	return r.inTx(ctx, func(q *Queries) error {
		removed, err := q.DeleteWorkerTransactions(ctx, id)
		if err != nil {
			return fmt.Errorf("delete worker transactions: %w", err)
		}
		n, err := q.DeleteWorker(ctx, id)
		if err != nil {
			return fmt.Errorf("delete worker: %w", err)
		}
		if n == 0 {
			return core.ErrWorkerNotFound
		}
		r.logger.InfoContext(ctx, "Worker deleted from SQLite",
			log.FieldWorkerID, id,
			log.FieldCount, removed)
		return nil
	})
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) error {
	return r.inTx(ctx, func(q *Queries) error {
		if _, err := q.GetWorker(ctx, t.WorkerID); errors.Is(err, sql.ErrNoRows) {
			return core.ErrWorkerNotFound
		} else if err != nil {
			return fmt.Errorf("get worker %s: %w", t.WorkerID, err)
		}
		if err := q.CreateTransaction(ctx, Transaction{
			ID:          t.ID,
			WorkerID:    t.WorkerID,
			Type:        string(t.Type),
			AmountCents: t.Amount.Cents,
			Description: t.Description,
			Date:        t.Date.UnixMicro(),
		}); err != nil {
			return fmt.Errorf("create transaction: %w", err)
		}
		return nil
	})
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row, err := r.queries.GetTransaction(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrTransactionNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %s: %w", id, err)
	}
	return toTransaction(row), nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return toTransactions(rows), nil
}

func (r *SQLiteRepository) ListWorkerTransactions(ctx context.Context, workerID string) ([]core.Transaction, error) {
	rows, err := r.queries.ListWorkerTransactions(ctx, workerID)
	if err != nil {
		return nil, fmt.Errorf("list transactions of worker %s: %w", workerID, err)
	}
	return toTransactions(rows), nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) error {
	n, err := r.queries.DeleteTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n == 0 {
		return core.ErrTransactionNotFound
	}
	return nil
}

func (r *SQLiteRepository) inTx(ctx context.Context, fn func(*Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func toWorker(row Worker) core.Worker {
	return core.Worker{
		ID:        row.ID,
		Name:      row.Name,
		Position:  row.Position,
		Phone:     row.Phone,
		CreatedAt: fromMicros(row.CreatedAt),
	}
}

func toTransactions(rows []Transaction) []core.Transaction {
	txs := make([]core.Transaction, len(rows))
	for i, row := range rows {
		txs[i] = toTransaction(row)
	}
	return txs
}

func toTransaction(row Transaction) core.Transaction {
	return core.Transaction{
		ID:          row.ID,
		WorkerID:    row.WorkerID,
		Type:        core.TransactionType(row.Type),
		Amount:      core.Money{Cents: row.AmountCents},
		Description: row.Description,
		Date:        fromMicros(row.Date),
	}
}

func fromMicros(us int64) core.Timestamp {
	return core.Timestamp{Time: time.UnixMicro(us).UTC()}
}
