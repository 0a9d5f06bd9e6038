package core

import (
	"errors"
	"fmt"
	"strings"
)

const (
	TransactionDue  TransactionType = "due"
	TransactionPaid TransactionType = "paid"
)

type (
	// TransactionType tells whether an amount is owed to the worker or was paid out.
	TransactionType string

	Worker struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		Position  string    `json:"position"`
		Phone     string    `json:"phone"`
		CreatedAt Timestamp `json:"created_at"`
	}

	// WorkerInput is the body of a worker creation request.
	WorkerInput struct {
		Name     string `json:"name"`
		Position string `json:"position"`
		Phone    string `json:"phone"`
	}

	Transaction struct {
		ID          string          `json:"id"`
		WorkerID    string          `json:"worker_id"`
		Type        TransactionType `json:"type"`
		Amount      Money           `json:"amount"`
		Description string          `json:"description"`
		Date        Timestamp       `json:"date"`
	}

	// TransactionInput is the body of a transaction creation request.
	TransactionInput struct {
		WorkerID    string          `json:"worker_id"`
		Type        TransactionType `json:"type"`
		Amount      Money           `json:"amount"`
		Description string          `json:"description"`
	}

	// WorkerBalance is a worker with its history and the totals derived from it.
	WorkerBalance struct {
		Worker       Worker        `json:"worker"`
		TotalDue     Money         `json:"total_due"`
		TotalPaid    Money         `json:"total_paid"`
		Balance      Money         `json:"balance"`
		Transactions []Transaction `json:"transactions"`
	}
)

var (
	ErrEmptyName           = errors.New("empty worker name")
	ErrEmptyWorkerID       = errors.New("empty worker id")
	ErrInvalidType         = errors.New("invalid transaction type")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrNegativeAmount      = errors.New("negative amount")
	ErrWorkerNotFound      = errors.New("worker not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrTooLong             = errors.New("field too long (max 200 characters)")
)

const maxTextLength = 200

func (t TransactionType) Valid() bool {
	return t == TransactionDue || t == TransactionPaid
}

func (in WorkerInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return ErrEmptyName
	}
	if len(in.Name) > maxTextLength || len(in.Position) > maxTextLength || len(in.Phone) > maxTextLength {
		return ErrTooLong
	}
	return nil
}

func (in TransactionInput) Validate() error {
	if strings.TrimSpace(in.WorkerID) == "" {
		return ErrEmptyWorkerID
	}
	if !in.Type.Valid() {
		return ErrInvalidType
	}
	if in.Amount.Cents < 0 {
		return ErrNegativeAmount
	}
	if len(in.Description) > maxTextLength {
		return fmt.Errorf("description: %w", ErrTooLong)
	}
	return nil
}

// NewWorkerBalance aggregates the transactions of a worker. The order of txs is
// kept as given.
func NewWorkerBalance(w Worker, txs []Transaction) WorkerBalance {
	wb := WorkerBalance{Worker: w, Transactions: txs}
	if wb.Transactions == nil {
		wb.Transactions = []Transaction{}
	}
	for _, t := range txs {
		switch t.Type {
		case TransactionDue:
			wb.TotalDue.Cents += t.Amount.Cents
		case TransactionPaid:
			wb.TotalPaid.Cents += t.Amount.Cents
		}
	}
	wb.Balance = Money{Cents: wb.TotalDue.Cents - wb.TotalPaid.Cents}
	return wb
}

// Consistent reports whether Balance equals TotalDue minus TotalPaid.
func (wb WorkerBalance) Consistent() bool {
	return wb.Balance.Cents == wb.TotalDue.Cents-wb.TotalPaid.Cents
}

// FindBalance returns the entry for workerID, if present.
func FindBalance(balances []WorkerBalance, workerID string) (WorkerBalance, bool) {
	for _, wb := range balances {
		if wb.Worker.ID == workerID {
			return wb, true
		}
	}
	return WorkerBalance{}, false
}
