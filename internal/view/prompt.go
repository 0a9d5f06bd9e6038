package view

import (
	"context"
	"errors"
)

// Prompter is the user-facing side of a session: a blocking yes/no question
// and a blocking notice.
type Prompter interface {
	Confirm(ctx context.Context, message string) bool
	Alert(ctx context.Context, message string)
}

// ErrSubmitPending is returned when the submit guard rejects a second
// submission of the same form while the first is in flight.
var ErrSubmitPending = errors.New("submission already in progress")

// ValidationError is a form problem caught before any request is sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// Questions asked before a delete. The web page shows the same text in its
// own confirmation dialog.
const (
	ConfirmDeleteWorker      = "Êtes-vous sûr de vouloir supprimer cet ouvrier et toutes ses transactions ?"
	ConfirmDeleteTransaction = "Êtes-vous sûr de vouloir supprimer cette transaction ?"
)

const (
	msgAlertCreateWorker      = "Erreur lors de l'ajout de l'ouvrier"
	msgAlertCreateTransaction = "Erreur lors de l'ajout de la transaction"
	msgAlertDeleteWorker      = "Erreur lors de la suppression"
	msgAlertDeleteTransaction = "Erreur lors de la suppression de la transaction"

	msgNameRequired   = "Le nom est requis"
	msgWorkerRequired = "Sélectionnez un ouvrier"
	msgTypeInvalid    = "Type de transaction invalide"
	msgAmountInvalid  = "Montant invalide"
	msgAmountNegative = "Le montant doit être positif"
)
