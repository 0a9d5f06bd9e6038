// Package memory is an in-process journal, used when no spreadsheet is
// configured and in tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"paie/internal/sheets"
)

type Journal struct {
	mu      sync.Mutex
	entries []sheets.JournalEntry
}

var _ sheets.JournalWriter = (*Journal)(nil)

func New() *Journal {
	return &Journal{}
}

// AppendEntry stores the entry and returns a synthetic row reference.
func (j *Journal) AppendEntry(_ context.Context, e sheets.JournalEntry) (string, error) {
	if e.Event == "" {
		return "", errors.New("journal entry without event")
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, e)
	// Row 1 holds the header.
	return fmt.Sprintf("mem:%d", len(j.entries)+1), nil
}

// Entries returns a copy of everything appended so far.
func (j *Journal) Entries() []sheets.JournalEntry {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]sheets.JournalEntry(nil), j.entries...)
}
