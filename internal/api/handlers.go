package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"paie/internal/core"
	"paie/internal/log"
	"paie/internal/metrics"
)

const (
	msgRoot               = "API de gestion des paies des ouvriers"
	msgWorkerNotFound     = "Ouvrier non trouvé"
	msgTxNotFound         = "Transaction non trouvée"
	msgWorkerDeleted      = "Ouvrier et ses transactions supprimés avec succès"
	msgTransactionDeleted = "Transaction supprimée avec succès"
	msgInvalidBody        = "Corps de requête invalide"
	msgInternal           = "Erreur interne du serveur"
)

const maxBodyBytes = 1 << 20

// transactionRequest keeps the amount optional so a missing amount can be
// told apart from zero.
type transactionRequest struct {
	WorkerID    string               `json:"worker_id"`
	Type        core.TransactionType `json:"type"`
	Amount      *core.Money          `json:"amount"`
	Description string               `json:"description"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": msgRoot})
}

func (s *Server) handleCreateWorker(w http.ResponseWriter, r *http.Request) {
	var in core.WorkerInput
	if err := decodeBody(w, r, &in); err != nil {
		s.fail(w, r, "create_worker", err)
		return
	}
	worker, err := s.svc.CreateWorker(r.Context(), in)
	if err != nil {
		s.fail(w, r, "create_worker", err)
		return
	}
	s.metrics.LedgerOp("create_worker", metrics.OutcomeSuccess)
	writeJSON(w, http.StatusOK, worker)
}

func (s *Server) handleListWorkers(w http.ResponseWriter, r *http.Request) {
	workers, err := s.svc.ListWorkers(r.Context())
	if err != nil {
		s.fail(w, r, "list_workers", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(workers))
}

func (s *Server) handleGetWorker(w http.ResponseWriter, r *http.Request) {
	worker, err := s.svc.GetWorker(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, "get_worker", err)
		return
	}
	writeJSON(w, http.StatusOK, worker)
}

func (s *Server) handleDeleteWorker(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteWorker(r.Context(), r.PathValue("id")); err != nil {
		s.fail(w, r, "delete_worker", err)
		return
	}
	s.metrics.LedgerOp("delete_worker", metrics.OutcomeSuccess)
	writeJSON(w, http.StatusOK, map[string]string{"message": msgWorkerDeleted})
}

func (s *Server) handleListWorkerTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.svc.ListWorkerTransactions(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, "list_worker_transactions", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(txs))
}

func (s *Server) handleWorkerBalance(w http.ResponseWriter, r *http.Request) {
	wb, err := s.svc.WorkerBalance(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, "worker_balance", err)
		return
	}
	writeJSON(w, http.StatusOK, wb)
}

func (s *Server) handleListBalances(w http.ResponseWriter, r *http.Request) {
	balances, err := s.svc.ListBalances(r.Context())
	if err != nil {
		s.fail(w, r, "list_balances", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(balances))
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.fail(w, r, "create_transaction", err)
		return
	}
	if req.Amount == nil {
		s.fail(w, r, "create_transaction", core.ErrInvalidAmount)
		return
	}

	t, err := s.svc.CreateTransaction(r.Context(), core.TransactionInput{
		WorkerID:    req.WorkerID,
		Type:        req.Type,
		Amount:      *req.Amount,
		Description: req.Description,
	})
	if err != nil {
		s.fail(w, r, "create_transaction", err)
		return
	}
	s.metrics.LedgerOp("create_transaction", metrics.OutcomeSuccess)
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.svc.ListTransactions(r.Context())
	if err != nil {
		s.fail(w, r, "list_transactions", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(txs))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteTransaction(r.Context(), r.PathValue("id")); err != nil {
		s.fail(w, r, "delete_transaction", err)
		return
	}
	s.metrics.LedgerOp("delete_transaction", metrics.OutcomeSuccess)
	writeJSON(w, http.StatusOK, map[string]string{"message": msgTransactionDeleted})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]any{
		"rate_limiter": map[string]any{
			"active_clients": s.rateLimiter.ActiveClients(),
			"rejected":       s.rateLimiter.Hits(),
		},
	}

	switch {
	case s.ready == nil:
		checks["storage"] = "not_checked"
	default:
		if err := s.ready(ctx); err != nil {
			checks["storage"] = "failed: " + err.Error()
			status, code = "not_ready", http.StatusServiceUnavailable
		} else {
			checks["storage"] = "ok"
		}
	}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// fail maps a service error to its HTTP status, records it and responds.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	code, detail, outcome := classify(err)
	s.metrics.LedgerOp(op, outcome)

	logger := log.FromContext(r.Context())
	if code >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Ledger operation failed",
			log.FieldOperation, op,
			log.FieldError, err.Error())
	} else {
		logger.DebugContext(r.Context(), "Ledger request rejected",
			log.FieldOperation, op,
			log.FieldStatusCode, code,
			log.FieldError, err.Error())
	}
	writeDetail(w, code, detail)
}

func classify(err error) (int, string, string) {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	var maxErr *http.MaxBytesError

	switch {
	case errors.Is(err, core.ErrWorkerNotFound):
		return http.StatusNotFound, msgWorkerNotFound, metrics.OutcomeNotFound
	case errors.Is(err, core.ErrTransactionNotFound):
		return http.StatusNotFound, msgTxNotFound, metrics.OutcomeNotFound
	case errors.Is(err, core.ErrEmptyName):
		return http.StatusUnprocessableEntity, "Le nom est requis", metrics.OutcomeInvalid
	case errors.Is(err, core.ErrEmptyWorkerID):
		return http.StatusUnprocessableEntity, "L'ouvrier est requis", metrics.OutcomeInvalid
	case errors.Is(err, core.ErrInvalidType):
		return http.StatusUnprocessableEntity, "Le type doit être 'due' ou 'paid'", metrics.OutcomeInvalid
	case errors.Is(err, core.ErrNegativeAmount):
		return http.StatusUnprocessableEntity, "Le montant doit être positif", metrics.OutcomeInvalid
	case errors.Is(err, core.ErrInvalidAmount):
		return http.StatusUnprocessableEntity, "Montant invalide", metrics.OutcomeInvalid
	case errors.Is(err, core.ErrTooLong):
		return http.StatusUnprocessableEntity, "Champ trop long (200 caractères maximum)", metrics.OutcomeInvalid
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge, msgInvalidBody, metrics.OutcomeInvalid
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr), errors.Is(err, errBadBody):
		return http.StatusUnprocessableEntity, msgInvalidBody, metrics.OutcomeInvalid
	default:
		return http.StatusInternalServerError, msgInternal, metrics.OutcomeError
	}
}
