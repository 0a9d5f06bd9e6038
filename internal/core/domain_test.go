package core

import (
	"encoding/json"
	"testing"
)

func TestWorkerInputValidate(t *testing.T) {
	if err := (WorkerInput{Name: "Jean Dupont"}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (WorkerInput{Name: "   "}).Validate(); err != ErrEmptyName {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
}

func TestTransactionInputValidate(t *testing.T) {
	good := TransactionInput{WorkerID: "w1", Type: TransactionDue, Amount: Money{Cents: 100}}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []TransactionInput{
		{WorkerID: "", Type: TransactionDue, Amount: Money{Cents: 1}},
		{WorkerID: "w1", Type: "bonus", Amount: Money{Cents: 1}},
		{WorkerID: "w1", Type: TransactionPaid, Amount: Money{Cents: -1}},
	}
	for i, in := range bads {
		if err := in.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestNewWorkerBalance(t *testing.T) {
	w := Worker{ID: "w1", Name: "Marie Martin"}

	wb := NewWorkerBalance(w, nil)
	if wb.TotalDue.Cents != 0 || wb.TotalPaid.Cents != 0 || wb.Balance.Cents != 0 {
		t.Fatalf("expected zero totals, got %+v", wb)
	}
	if wb.Transactions == nil {
		t.Fatalf("expected empty, non-nil transactions")
	}

	txs := []Transaction{
		{ID: "t2", Type: TransactionPaid, Amount: Money{Cents: 4000}},
		{ID: "t1", Type: TransactionDue, Amount: Money{Cents: 10000}},
	}
	wb = NewWorkerBalance(w, txs)
	if wb.TotalDue.Cents != 10000 || wb.TotalPaid.Cents != 4000 || wb.Balance.Cents != 6000 {
		t.Fatalf("unexpected totals: %+v", wb)
	}
	if !wb.Consistent() {
		t.Fatalf("expected consistent balance")
	}
	if wb.Transactions[0].ID != "t2" {
		t.Fatalf("order must be preserved")
	}

	over := NewWorkerBalance(w, []Transaction{{Type: TransactionPaid, Amount: Money{Cents: 500}}})
	if over.Balance.Cents != -500 {
		t.Fatalf("expected negative balance, got %d", over.Balance.Cents)
	}
}

func TestWorkerBalanceDecode(t *testing.T) {
	payload := `{
		"worker": {"id": "w1", "name": "Jean", "position": null, "phone": null, "created_at": "2025-03-01T08:30:00.123456"},
		"total_due": 100.0, "total_paid": 40.0, "balance": 60.0,
		"transactions": [
			{"id": "t1", "worker_id": "w1", "type": "due", "amount": 100.0, "description": null, "date": "2025-03-01T09:00:00"}
		]
	}`
	var wb WorkerBalance
	if err := json.Unmarshal([]byte(payload), &wb); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if wb.Worker.Position != "" || wb.Balance.Cents != 6000 || len(wb.Transactions) != 1 {
		t.Fatalf("unexpected decode: %+v", wb)
	}
	if wb.Transactions[0].Date.Hour() != 9 {
		t.Fatalf("naive timestamp must be read as UTC, got %v", wb.Transactions[0].Date)
	}
}

func TestFindBalance(t *testing.T) {
	list := []WorkerBalance{{Worker: Worker{ID: "a"}}, {Worker: Worker{ID: "b"}}}
	if _, ok := FindBalance(list, "b"); !ok {
		t.Fatalf("expected to find b")
	}
	if _, ok := FindBalance(list, "c"); ok {
		t.Fatalf("did not expect c")
	}
}
