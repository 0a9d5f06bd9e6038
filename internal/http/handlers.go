package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"time"

	"paie/internal/core"
	"paie/internal/log"
	"paie/internal/view"
)

var templateFuncs = template.FuncMap{
	"confirmDeleteWorker":      func() string { return view.ConfirmDeleteWorker },
	"confirmDeleteTransaction": func() string { return view.ConfirmDeleteTransaction },
	"toneClass": func(t core.Tone) string {
		switch t {
		case core.ToneDue:
			return "balance-due"
		case core.ToneCredit:
			return "balance-credit"
		default:
			return "balance-neutral"
		}
	},
}

// pageData is the template model. Refresh makes the ledger section reload
// itself once the page is shown.
type pageData struct {
	view.Page
	Refresh bool
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		s.logger.ErrorContext(r.Context(), "Templates not loaded",
			log.FieldPath, r.URL.Path,
			log.FieldComponent, log.ComponentTemplate)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	sess := s.session(w, r)
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "index.html", pageData{Page: sess.Page(), Refresh: true}); err != nil {
		s.logger.ErrorContext(r.Context(), "Index template execution failed",
			log.FieldOperation, log.OpRender,
			log.FieldError, err.Error())
		http.Error(w, "Erreur d'affichage", http.StatusInternalServerError)
		return
	}
	NewHTMXResponse().BodyHTML(buf.Bytes()).Write(w)
}

// handleLedger reloads the balances and renders the ledger section.
func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	err := sess.LoadBalances(r.Context())
	s.metrics.LedgerOp(log.OpLoad, outcome(err))
	s.renderLedger(w, r, sess, NewHTMXResponse())
}

func (s *Server) handleWorkerForm(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	switch r.PathValue("action") {
	case "open":
		sess.OpenAddWorker()
	case "close":
		sess.CloseAddWorker()
	default:
		http.NotFound(w, r)
		return
	}
	s.renderLedger(w, r, sess, NewHTMXResponse())
}

func (s *Server) handleTransactionForm(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	switch r.PathValue("action") {
	case "open":
		sess.OpenAddTransaction()
	case "close":
		sess.CloseAddTransaction()
	default:
		http.NotFound(w, r)
		return
	}
	s.renderLedger(w, r, sess, NewHTMXResponse())
}

// handleSelectWorker opens the detail view. A worker missing from the
// session's snapshot triggers one reload before giving up.
func (s *Server) handleSelectWorker(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	id := r.PathValue("id")
	if !sess.SelectWorker(id) {
		_ = sess.LoadBalances(r.Context())
		if !sess.SelectWorker(id) {
			s.logger.WarnContext(r.Context(), "Worker not in ledger", log.FieldWorkerID, id)
			s.renderLedger(w, r, sess, NewHTMXResponse().TriggerAlert("Ouvrier non trouvé"))
			return
		}
	}
	s.renderLedger(w, r, sess, NewHTMXResponse())
}

func (s *Server) handleCloseDetail(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	sess.CloseDetail()
	s.renderLedger(w, r, sess, NewHTMXResponse())
}

func (s *Server) handleCreateWorker(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		s.badForm(w, r, err)
		return
	}

	prompt := &requestPrompter{}
	err := sess.CreateWorker(r.Context(), p.WorkerDraft(), prompt)
	s.metrics.LedgerOp("create_worker", outcome(err))
	s.afterMutation(w, r, sess, prompt, err)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		s.badForm(w, r, err)
		return
	}

	prompt := &requestPrompter{}
	err := sess.CreateTransaction(r.Context(), p.TransactionDraft(), prompt)
	s.metrics.LedgerOp("create_transaction", outcome(err))
	s.afterMutation(w, r, sess, prompt, err)
}

func (s *Server) handleDeleteWorker(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	prompt := &requestPrompter{confirmed: confirmed(r, NewRequestBodyParser(w, r))}
	err := sess.DeleteWorker(r.Context(), r.PathValue("id"), prompt)
	s.metrics.LedgerOp("delete_worker", outcome(err))
	s.afterMutation(w, r, sess, prompt, err)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	prompt := &requestPrompter{confirmed: confirmed(r, NewRequestBodyParser(w, r))}
	err := sess.DeleteTransaction(r.Context(), r.PathValue("id"), prompt)
	s.metrics.LedgerOp("delete_transaction", outcome(err))
	s.afterMutation(w, r, sess, prompt, err)
}

// afterMutation answers a create or delete. Validation problems and backend
// failures still re-render the section: the first show inline in the form,
// the second as alerts.
func (s *Server) afterMutation(w http.ResponseWriter, r *http.Request, sess *view.Session, prompt *requestPrompter, err error) {
	if errors.Is(err, view.ErrSubmitPending) {
		s.logger.DebugContext(r.Context(), "Duplicate submission ignored", log.FieldPath, r.URL.Path)
		ConflictResponse().Write(w)
		return
	}

	b := NewHTMXResponse().TriggerAlert(prompt.alerts...)
	if err == nil {
		b.TriggerLedgerChanged()
	}
	s.renderLedger(w, r, sess, b)
}

func (s *Server) badForm(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.WarnContext(r.Context(), "Parse form error",
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path,
		log.FieldError, err.Error())
	status := http.StatusBadRequest
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		status = http.StatusRequestEntityTooLarge
	}
	ErrorResponse(status, "Formulaire invalide").Write(w)
}

// renderLedger writes the ledger section through b.
func (s *Server) renderLedger(w http.ResponseWriter, r *http.Request, sess *view.Session, b *HTMXResponseBuilder) {
	if s.templates == nil {
		InternalServerError("Erreur d'affichage").Write(w)
		return
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "ledger", pageData{Page: sess.Page()}); err != nil {
		s.logger.ErrorContext(r.Context(), "Ledger template execution failed",
			log.FieldOperation, log.OpRender,
			log.FieldError, err.Error())
		InternalServerError("Erreur d'affichage").Write(w)
		return
	}
	b.BodyHTML(buf.Bytes()).Write(w)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady checks the templates and, when configured, the backend.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if s.ready == nil {
		checks["backend"] = "not_checked"
	} else if err := s.ready(ctx); err != nil {
		checks["backend"] = "failed: " + err.Error()
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["backend"] = "ok"
	}

	checks["sessions"] = s.sessions.Size()
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
