package workflow

import (
	"errors"
	"fmt"
)

// Kind is the closed set of failure categories a workflow operation can
// produce. Every core operation either returns the updated entity or fails
// with exactly one of these; callers translate kinds into presentation.
type Kind string

const (
	KindInvalidTransition     Kind = "INVALID_TRANSITION"
	KindForbidden             Kind = "FORBIDDEN"
	KindLockedEntity          Kind = "LOCKED_ENTITY"
	KindDuplicateAgendaNumber Kind = "DUPLICATE_AGENDA_NUMBER"
	KindDuplicateDecision     Kind = "DUPLICATE_DECISION"
	KindUnassignedTask        Kind = "UNASSIGNED_TASK"
	KindApprovalRequired      Kind = "APPROVAL_REQUIRED"
	KindDossierNotEligible    Kind = "DOSSIER_NOT_ELIGIBLE"
	KindNotFound              Kind = "NOT_FOUND"
	KindValidation            Kind = "VALIDATION_ERROR"
	KindUnexpected            Kind = "UNEXPECTED"
)

type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return string(e.Kind) + ": " + e.Message
}

func Errf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf classifies any error into the taxonomy. Errors that did not
// originate here surface as KindUnexpected so callers can render a
// fallback without guessing.
func KindOf(err error) Kind {
	var wf *Error
	if errors.As(err, &wf) {
		return wf.Kind
	}
	return KindUnexpected
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
