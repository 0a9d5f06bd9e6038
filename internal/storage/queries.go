package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Worker is a row of the workers table.
type Worker struct {
	ID        string
	Name      string
	Position  string
	Phone     string
	CreatedAt int64
}

// Transaction is a row of the transactions table.
type Transaction struct {
	ID          string
	WorkerID    string
	Type        string
	AmountCents int64
	Description string
	Date        int64
}

const createWorker = `INSERT INTO workers (id, name, position, phone, created_at) VALUES (?, ?, ?, ?, ?)`

func (q *Queries) CreateWorker(ctx context.Context, w Worker) error {
	_, err := q.db.ExecContext(ctx, createWorker, w.ID, w.Name, w.Position, w.Phone, w.CreatedAt)
	return err
}

const getWorker = `SELECT id, name, position, phone, created_at FROM workers WHERE id = ?`

func (q *Queries) GetWorker(ctx context.Context, id string) (Worker, error) {
	var w Worker
	err := q.db.QueryRowContext(ctx, getWorker, id).Scan(&w.ID, &w.Name, &w.Position, &w.Phone, &w.CreatedAt)
	return w, err
}

const listWorkers = `SELECT id, name, position, phone, created_at FROM workers ORDER BY created_at, rowid`

func (q *Queries) ListWorkers(ctx context.Context) ([]Worker, error) {
	rows, err := q.db.QueryContext(ctx, listWorkers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Worker
	for rows.Next() {
		var w Worker
		if err := rows.Scan(&w.ID, &w.Name, &w.Position, &w.Phone, &w.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, w)
	}
	return items, rows.Err()
}

const deleteWorker = `DELETE FROM workers WHERE id = ?`

func (q *Queries) DeleteWorker(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteWorker, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteWorkerTransactions = `DELETE FROM transactions WHERE worker_id = ?`

func (q *Queries) DeleteWorkerTransactions(ctx context.Context, workerID string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteWorkerTransactions, workerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const createTransaction = `INSERT INTO transactions (id, worker_id, type, amount_cents, description, date) VALUES (?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateTransaction(ctx context.Context, t Transaction) error {
	_, err := q.db.ExecContext(ctx, createTransaction, t.ID, t.WorkerID, t.Type, t.AmountCents, t.Description, t.Date)
	return err
}

const getTransaction = `SELECT id, worker_id, type, amount_cents, description, date FROM transactions WHERE id = ?`

func (q *Queries) GetTransaction(ctx context.Context, id string) (Transaction, error) {
	var t Transaction
	err := q.db.QueryRowContext(ctx, getTransaction, id).Scan(&t.ID, &t.WorkerID, &t.Type, &t.AmountCents, &t.Description, &t.Date)
	return t, err
}

const listTransactions = `SELECT id, worker_id, type, amount_cents, description, date FROM transactions ORDER BY date DESC, rowid DESC`

func (q *Queries) ListTransactions(ctx context.Context) ([]Transaction, error) {
	return q.scanTransactions(q.db.QueryContext(ctx, listTransactions))
}

const listWorkerTransactions = `SELECT id, worker_id, type, amount_cents, description, date FROM transactions WHERE worker_id = ? ORDER BY date DESC, rowid DESC`

func (q *Queries) ListWorkerTransactions(ctx context.Context, workerID string) ([]Transaction, error) {
	return q.scanTransactions(q.db.QueryContext(ctx, listWorkerTransactions, workerID))
}

const deleteTransaction = `DELETE FROM transactions WHERE id = ?`

func (q *Queries) DeleteTransaction(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteTransaction, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) scanTransactions(rows *sql.Rows, err error) ([]Transaction, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.WorkerID, &t.Type, &t.AmountCents, &t.Description, &t.Date); err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}
