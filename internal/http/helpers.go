package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"paie/internal/core"
	"paie/internal/metrics"
	"paie/internal/view"
)

const sessionCookie = "paie_session"

// requestPrompter answers a Session's questions for one request. The
// browser already asked the confirmation before sending a delete, so the
// answer travels with the request; alerts go back in HX-Trigger.
type requestPrompter struct {
	confirmed bool
	alerts    []string
}

var _ view.Prompter = (*requestPrompter)(nil)

func (p *requestPrompter) Confirm(context.Context, string) bool { return p.confirmed }

func (p *requestPrompter) Alert(_ context.Context, msg string) {
	p.alerts = append(p.alerts, msg)
}

// session returns the caller's Session, creating it and setting the cookie
// on first visit or after expiry.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *view.Session {
	id := ""
	if c, err := r.Cookie(sessionCookie); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			id = c.Value
		}
	}
	if id == "" {
		id = uuid.NewString()
	}

	sess, existed := s.sessions.GetOrCreate(id, func() *view.Session {
		return view.NewSession(s.ledger, view.Options{
			Logger:      s.logger,
			Location:    s.loc,
			SubmitGuard: s.submitGuard,
		})
	})
	if !existed {
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    id,
			Path:     "/",
			MaxAge:   int(s.sessionTTL.Seconds()),
			HttpOnly: true,
			Secure:   r.TLS != nil,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return sess
}

// outcome classifies a Session error for the ledger operation metric.
func outcome(err error) string {
	var verr *view.ValidationError
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.As(err, &verr), errors.Is(err, view.ErrSubmitPending):
		return metrics.OutcomeInvalid
	case errors.Is(err, core.ErrWorkerNotFound), errors.Is(err, core.ErrTransactionNotFound):
		return metrics.OutcomeNotFound
	default:
		return metrics.OutcomeError
	}
}
