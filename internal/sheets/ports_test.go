package sheets

import (
	"testing"
	"time"

	"paie/internal/core"
)

func TestJournalEntry_Row(t *testing.T) {
	paris, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		t.Skip("tzdata not available")
	}
	amount := core.Money{Cents: 123450}
	e := JournalEntry{
		Date:        time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC),
		Event:       "transaction.created",
		WorkerID:    "w1",
		Worker:      "Jean",
		Type:        core.TransactionDue,
		Amount:      &amount,
		Description: "Semaine 22",
	}

	row := e.Row(paris)
	if len(row) != len(Header) {
		t.Fatalf("row has %d cells, header %d", len(row), len(Header))
	}
	if row[0] != "2024-06-01 10:30:00" {
		t.Errorf("date = %v", row[0])
	}
	if row[4] != "due" || row[5] != 1234.5 || row[6] != "Semaine 22" {
		t.Errorf("row = %v", row)
	}

	worker := JournalEntry{Date: e.Date, Event: "worker.created", WorkerID: "w1", Worker: "Jean"}.Row(nil)
	if worker[0] != "2024-06-01 08:30:00" || worker[4] != "" || worker[5] != "" {
		t.Errorf("worker row = %v", worker)
	}
}
