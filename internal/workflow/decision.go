package workflow

import "time"

type DecisionStatus string

const (
	DecisionPending  DecisionStatus = "pending"
	DecisionApproved DecisionStatus = "approved"
	DecisionDeferred DecisionStatus = "deferred"
	DecisionRejected DecisionStatus = "rejected"
)

func ValidDecisionStatus(s DecisionStatus) bool {
	switch s {
	case DecisionPending, DecisionApproved, DecisionDeferred, DecisionRejected:
		return true
	}
	return false
}

// The decision lifecycle is not a strict linear machine: decision_status can
// be set freely by an authorized update while is_final is false. Finalization
// is a separate, deliberate gate.

// CheckDecisionMutable rejects edits once a decision is final.
func CheckDecisionMutable(isFinal bool) error {
	if isFinal {
		return Errf(KindLockedEntity, "decision is final and can no longer be modified")
	}
	return nil
}

// CheckDecisionFinalize enforces the chair-approval gate: a decision cannot
// become final until approval metadata is recorded. Recording approval and
// finalizing are intentionally separate steps; nothing auto-finalizes.
func CheckDecisionFinalize(isFinal bool, chairApprovedAt *time.Time) error {
	if isFinal {
		return Errf(KindLockedEntity, "decision is already final")
	}
	if chairApprovedAt == nil {
		return Errf(KindApprovalRequired, "decision cannot be finalized without chair approval")
	}
	return nil
}

type AgendaItemStatus string

const (
	AgendaScheduled AgendaItemStatus = "scheduled"
	AgendaPresented AgendaItemStatus = "presented"
	AgendaWithdrawn AgendaItemStatus = "withdrawn"
	AgendaMoved     AgendaItemStatus = "moved"
)

func ValidAgendaItemStatus(s AgendaItemStatus) bool {
	switch s {
	case AgendaScheduled, AgendaPresented, AgendaWithdrawn, AgendaMoved:
		return true
	}
	return false
}
