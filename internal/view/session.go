// Package view holds the state and behaviour of the ledger screen: one
// Session per browser, driven by user actions and rendered through Page.
package view

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"paie/internal/core"
	"paie/internal/ledger"
	"paie/internal/log"
)

// WorkerDraft is the add-worker form as typed.
type WorkerDraft struct {
	Name     string
	Position string
	Phone    string
}

// TransactionDraft is the add-transaction form as typed. Amount is kept as
// text so a rejected value is shown back unchanged.
type TransactionDraft struct {
	WorkerID    string
	Type        string
	Amount      string
	Description string
}

func emptyTransactionDraft() TransactionDraft {
	return TransactionDraft{Type: string(core.TransactionDue)}
}

// Session is the state of one ledger screen. Methods are safe for concurrent
// use; the lock is never held across a backend call, so mutations from
// parallel requests are not serialized unless the submit guard is on.
type Session struct {
	ledger ledger.Ledger
	logger *log.Logger
	loc    *time.Location
	guard  bool

	mu       sync.Mutex
	balances []core.WorkerBalance
	loading  bool

	// Loads are numbered when they start; a result older than the one
	// already shown is dropped.
	loadSeq     uint64
	shownSeq    uint64
	loadsActive int

	showAddWorker      bool
	showAddTransaction bool
	selectedID         string

	workerDraft      WorkerDraft
	transactionDraft TransactionDraft
	workerErr        *ValidationError
	transactionErr   *ValidationError

	workerPending      bool
	transactionPending bool
}

// Options tunes a Session.
type Options struct {
	Logger      *log.Logger
	Location    *time.Location
	SubmitGuard bool
}

// NewSession starts in the loading state; call LoadBalances to fill it.
func NewSession(l ledger.Ledger, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Session{
		ledger:           l,
		logger:           logger.WithComponent(log.ComponentView),
		loc:              loc,
		guard:            opts.SubmitGuard,
		loading:          true,
		transactionDraft: emptyTransactionDraft(),
	}
}

// LoadBalances replaces the local snapshot with the backend's. On failure
// the previous snapshot is kept and the error is only logged. When loads
// overlap, a load finishing after a later-started one has been shown is
// discarded.
func (s *Session) LoadBalances(ctx context.Context) error {
	s.mu.Lock()
	s.loading = true
	s.loadSeq++
	seq := s.loadSeq
	s.loadsActive++
	s.mu.Unlock()

	balances, err := s.ledger.ListBalances(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadsActive--
	s.loading = s.loadsActive > 0
	if err != nil {
		s.logger.ErrorContext(ctx, "Erreur lors du chargement des ouvriers",
			log.FieldOperation, log.OpLoad,
			log.FieldError, err.Error())
		return err
	}
	if seq < s.shownSeq {
		s.logger.DebugContext(ctx, "Stale balances dropped", log.FieldOperation, log.OpLoad)
		return nil
	}
	s.shownSeq = seq

	for _, wb := range balances {
		if !wb.Consistent() {
			s.logger.WarnContext(ctx, "Balance does not match totals, showing server value",
				log.FieldWorkerID, wb.Worker.ID,
				"total_due", wb.TotalDue.Cents,
				"total_paid", wb.TotalPaid.Cents,
				"balance", wb.Balance.Cents)
		}
	}
	s.balances = balances

	if s.selectedID != "" {
		if _, ok := core.FindBalance(balances, s.selectedID); !ok {
			s.selectedID = ""
		}
	}
	return nil
}

// CreateWorker validates and submits the add-worker form. On success the
// form is cleared and closed and the snapshot reloaded; on failure the
// form keeps what was typed and p is alerted.
func (s *Session) CreateWorker(ctx context.Context, draft WorkerDraft, p Prompter) error {
	s.mu.Lock()
	s.workerDraft = draft
	s.workerErr = nil

	in := core.WorkerInput{
		Name:     strings.TrimSpace(draft.Name),
		Position: strings.TrimSpace(draft.Position),
		Phone:    strings.TrimSpace(draft.Phone),
	}
	if in.Name == "" {
		s.workerErr = &ValidationError{Field: "name", Message: msgNameRequired}
		err := s.workerErr
		s.mu.Unlock()
		return err
	}
	if s.guard && s.workerPending {
		s.mu.Unlock()
		return ErrSubmitPending
	}
	s.workerPending = true
	s.mu.Unlock()

	w, err := s.ledger.CreateWorker(ctx, in)

	s.mu.Lock()
	s.workerPending = false
	if err != nil {
		s.mu.Unlock()
		s.logger.ErrorContext(ctx, "Erreur lors de l'ajout de l'ouvrier",
			log.FieldOperation, log.OpCreate,
			log.FieldError, err.Error())
		p.Alert(ctx, msgAlertCreateWorker)
		return err
	}
	s.workerDraft = WorkerDraft{}
	s.showAddWorker = false
	s.mu.Unlock()

	s.logger.DebugContext(ctx, "Worker added", log.FieldWorkerID, w.ID)
	_ = s.LoadBalances(ctx)
	return nil
}

// CreateTransaction validates and submits the add-transaction form. The
// worker must be one of the loaded workers.
func (s *Session) CreateTransaction(ctx context.Context, draft TransactionDraft, p Prompter) error {
	s.mu.Lock()
	s.transactionDraft = draft
	s.transactionErr = nil

	in, verr := s.validateTransaction(draft)
	if verr != nil {
		s.transactionErr = verr
		s.mu.Unlock()
		return verr
	}
	if s.guard && s.transactionPending {
		s.mu.Unlock()
		return ErrSubmitPending
	}
	s.transactionPending = true
	s.mu.Unlock()

	t, err := s.ledger.CreateTransaction(ctx, in)

	s.mu.Lock()
	s.transactionPending = false
	if err != nil {
		s.mu.Unlock()
		s.logger.ErrorContext(ctx, "Erreur lors de l'ajout de la transaction",
			log.FieldOperation, log.OpCreate,
			log.FieldWorkerID, in.WorkerID,
			log.FieldError, err.Error())
		p.Alert(ctx, msgAlertCreateTransaction)
		return err
	}
	s.transactionDraft = emptyTransactionDraft()
	s.showAddTransaction = false
	s.mu.Unlock()

	s.logger.DebugContext(ctx, "Transaction added", log.FieldTransactionID, t.ID)
	_ = s.LoadBalances(ctx)
	return nil
}

// validateTransaction runs with mu held.
func (s *Session) validateTransaction(d TransactionDraft) (core.TransactionInput, *ValidationError) {
	workerID := strings.TrimSpace(d.WorkerID)
	if _, ok := core.FindBalance(s.balances, workerID); workerID == "" || !ok {
		return core.TransactionInput{}, &ValidationError{Field: "worker_id", Message: msgWorkerRequired}
	}

	typ := core.TransactionType(strings.TrimSpace(d.Type))
	if !typ.Valid() {
		return core.TransactionInput{}, &ValidationError{Field: "type", Message: msgTypeInvalid}
	}

	amount, err := core.ParseAmount(d.Amount)
	switch {
	case errors.Is(err, core.ErrNegativeAmount):
		return core.TransactionInput{}, &ValidationError{Field: "amount", Message: msgAmountNegative}
	case err != nil:
		return core.TransactionInput{}, &ValidationError{Field: "amount", Message: msgAmountInvalid}
	}

	return core.TransactionInput{
		WorkerID:    workerID,
		Type:        typ,
		Amount:      amount,
		Description: strings.TrimSpace(d.Description),
	}, nil
}

// DeleteWorker asks for confirmation, deletes the worker (the backend drops
// its transactions) and reloads.
func (s *Session) DeleteWorker(ctx context.Context, workerID string, p Prompter) error {
	if !p.Confirm(ctx, ConfirmDeleteWorker) {
		return nil
	}
	if err := s.ledger.DeleteWorker(ctx, workerID); err != nil {
		s.logger.ErrorContext(ctx, "Erreur lors de la suppression",
			log.FieldOperation, log.OpDelete,
			log.FieldWorkerID, workerID,
			log.FieldError, err.Error())
		p.Alert(ctx, msgAlertDeleteWorker)
		return err
	}
	_ = s.LoadBalances(ctx)
	return nil
}

// DeleteTransaction asks for confirmation, deletes and reloads. An open
// detail view follows the reload since it is derived from the snapshot.
func (s *Session) DeleteTransaction(ctx context.Context, transactionID string, p Prompter) error {
	if !p.Confirm(ctx, ConfirmDeleteTransaction) {
		return nil
	}
	if err := s.ledger.DeleteTransaction(ctx, transactionID); err != nil {
		s.logger.ErrorContext(ctx, "Erreur lors de la suppression de la transaction",
			log.FieldOperation, log.OpDelete,
			log.FieldTransactionID, transactionID,
			log.FieldError, err.Error())
		p.Alert(ctx, msgAlertDeleteTransaction)
		return err
	}
	_ = s.LoadBalances(ctx)
	return nil
}

func (s *Session) OpenAddWorker() {
	s.mu.Lock()
	s.showAddWorker = true
	s.mu.Unlock()
}

// CloseAddWorker hides the form; what was typed stays for next time.
func (s *Session) CloseAddWorker() {
	s.mu.Lock()
	s.showAddWorker = false
	s.workerErr = nil
	s.mu.Unlock()
}

func (s *Session) OpenAddTransaction() {
	s.mu.Lock()
	s.showAddTransaction = true
	s.mu.Unlock()
}

func (s *Session) CloseAddTransaction() {
	s.mu.Lock()
	s.showAddTransaction = false
	s.transactionErr = nil
	s.mu.Unlock()
}

// SelectWorker opens the detail view. It reports false when the worker is
// not in the current snapshot.
func (s *Session) SelectWorker(workerID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := core.FindBalance(s.balances, workerID); !ok {
		return false
	}
	s.selectedID = workerID
	return true
}

func (s *Session) CloseDetail() {
	s.mu.Lock()
	s.selectedID = ""
	s.mu.Unlock()
}

// Balances returns a copy of the current snapshot.
func (s *Session) Balances() []core.WorkerBalance {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.WorkerBalance(nil), s.balances...)
}

// Selected returns the balance shown in the detail view, if any.
func (s *Session) Selected() (core.WorkerBalance, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selectedID == "" {
		return core.WorkerBalance{}, false
	}
	return core.FindBalance(s.balances, s.selectedID)
}
