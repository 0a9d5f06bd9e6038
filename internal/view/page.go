package view

import "paie/internal/core"

// Page is everything the templates need to draw the ledger screen.
type Page struct {
	Loading bool
	Workers []WorkerCard

	ShowAddWorker      bool
	ShowAddTransaction bool
	Detail             *Detail

	WorkerForm      WorkerDraft
	WorkerFormError *ValidationError
	WorkerPending   bool

	TransactionForm      TransactionDraft
	TransactionFormError *ValidationError
	TransactionPending   bool
	WorkerOptions        []WorkerOption

	SubmitGuard bool
}

// Empty reports whether the "no workers" message should be shown.
func (p Page) Empty() bool {
	return !p.Loading && len(p.Workers) == 0
}

type WorkerCard struct {
	ID               string
	Name             string
	Position         string
	Phone            string
	TotalDue         string
	TotalPaid        string
	Balance          string
	Tone             core.Tone
	TransactionCount int
}

type Detail struct {
	WorkerCard
	Transactions []TransactionRow
}

type TransactionRow struct {
	ID          string
	Due         bool
	Label       string
	Amount      string
	Description string
	Date        string
}

type WorkerOption struct {
	ID       string
	Name     string
	Selected bool
}

// Page snapshots the session for rendering.
func (s *Session) Page() Page {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := Page{
		Loading:              s.loading && s.balances == nil,
		ShowAddWorker:        s.showAddWorker,
		ShowAddTransaction:   s.showAddTransaction,
		WorkerForm:           s.workerDraft,
		WorkerFormError:      s.workerErr,
		WorkerPending:        s.guard && s.workerPending,
		TransactionForm:      s.transactionDraft,
		TransactionFormError: s.transactionErr,
		TransactionPending:   s.guard && s.transactionPending,
		SubmitGuard:          s.guard,
		Workers:              make([]WorkerCard, 0, len(s.balances)),
		WorkerOptions:        make([]WorkerOption, 0, len(s.balances)),
	}

	for _, wb := range s.balances {
		p.Workers = append(p.Workers, card(wb))
		p.WorkerOptions = append(p.WorkerOptions, WorkerOption{
			ID:       wb.Worker.ID,
			Name:     wb.Worker.Name,
			Selected: wb.Worker.ID == s.transactionDraft.WorkerID,
		})
	}

	if wb, ok := core.FindBalance(s.balances, s.selectedID); ok && s.selectedID != "" {
		d := &Detail{WorkerCard: card(wb), Transactions: make([]TransactionRow, 0, len(wb.Transactions))}
		for _, t := range wb.Transactions {
			d.Transactions = append(d.Transactions, s.row(t))
		}
		p.Detail = d
	}
	return p
}

func card(wb core.WorkerBalance) WorkerCard {
	return WorkerCard{
		ID:               wb.Worker.ID,
		Name:             wb.Worker.Name,
		Position:         wb.Worker.Position,
		Phone:            wb.Worker.Phone,
		TotalDue:         core.FormatCurrency(wb.TotalDue),
		TotalPaid:        core.FormatCurrency(wb.TotalPaid),
		Balance:          core.FormatCurrency(wb.Balance),
		Tone:             core.BalanceTone(wb.Balance),
		TransactionCount: len(wb.Transactions),
	}
}

func (s *Session) row(t core.Transaction) TransactionRow {
	r := TransactionRow{
		ID:          t.ID,
		Due:         t.Type == core.TransactionDue,
		Amount:      core.FormatCurrency(t.Amount),
		Description: t.Description,
		Date:        core.FormatDate(t.Date, s.loc),
	}
	if r.Due {
		r.Label = "💰 Montant dû"
	} else {
		r.Label = "✅ Montant payé"
	}
	return r
}
