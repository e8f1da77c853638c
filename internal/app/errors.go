package app

import (
	"errors"
	"fmt"
	"net/http"

	"rvmdesk/api/internal/store"
	"rvmdesk/api/internal/workflow"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

// statusForKind decides the HTTP status per workflow error code. State
// conflicts are 409, precondition failures on the payload are 422.
func statusForKind(kind workflow.Kind) int {
	switch kind {
	case workflow.KindInvalidTransition,
		workflow.KindLockedEntity,
		workflow.KindDuplicateAgendaNumber,
		workflow.KindDuplicateDecision,
		workflow.KindApprovalRequired:
		return http.StatusConflict
	case workflow.KindForbidden:
		return http.StatusForbidden
	case workflow.KindUnassignedTask,
		workflow.KindDossierNotEligible,
		workflow.KindValidation:
		return http.StatusUnprocessableEntity
	case workflow.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// toDomainError translates workflow taxonomy errors and store-level
// classifications into the API error shape. Store denials map to FORBIDDEN
// even when the permission gate already allowed the action.
func toDomainError(err error) *DomainError {
	var wfErr *workflow.Error
	if errors.As(err, &wfErr) {
		return domainError(statusForKind(wfErr.Kind), string(wfErr.Kind), wfErr.Message, nil)
	}
	if store.IsNotFound(err) {
		return domainError(http.StatusNotFound, string(workflow.KindNotFound), "Not found", nil)
	}
	if store.IsPermissionDenied(err) {
		return domainError(http.StatusForbidden, string(workflow.KindForbidden), "Forbidden", nil)
	}
	return nil
}
