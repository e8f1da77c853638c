package workflow

import (
	"testing"
	"time"
)

func TestCheckDecisionMutable(t *testing.T) {
	if err := CheckDecisionMutable(false); err != nil {
		t.Fatalf("non-final decision should be mutable: %v", err)
	}
	err := CheckDecisionMutable(true)
	if KindOf(err) != KindLockedEntity {
		t.Fatalf("expected LOCKED_ENTITY for final decision, got %v", err)
	}
}

func TestCheckDecisionFinalizeRequiresChairApproval(t *testing.T) {
	err := CheckDecisionFinalize(false, nil)
	if KindOf(err) != KindApprovalRequired {
		t.Fatalf("expected APPROVAL_REQUIRED without chair approval, got %v", err)
	}

	approved := time.Now()
	if err := CheckDecisionFinalize(false, &approved); err != nil {
		t.Fatalf("finalize with chair approval should succeed: %v", err)
	}
}

func TestCheckDecisionFinalizeRejectsAlreadyFinal(t *testing.T) {
	approved := time.Now()
	err := CheckDecisionFinalize(true, &approved)
	if KindOf(err) != KindLockedEntity {
		t.Fatalf("expected LOCKED_ENTITY for already-final decision, got %v", err)
	}
}

func TestValidDecisionStatus(t *testing.T) {
	for _, s := range []DecisionStatus{DecisionPending, DecisionApproved, DecisionDeferred, DecisionRejected} {
		if !ValidDecisionStatus(s) {
			t.Errorf("expected %s to be valid", s)
		}
	}
	if ValidDecisionStatus("final") {
		t.Error("'final' is not a decision status")
	}
}

func TestValidAgendaItemStatus(t *testing.T) {
	for _, s := range []AgendaItemStatus{AgendaScheduled, AgendaPresented, AgendaWithdrawn, AgendaMoved} {
		if !ValidAgendaItemStatus(s) {
			t.Errorf("expected %s to be valid", s)
		}
	}
	if ValidAgendaItemStatus("deleted") {
		t.Error("'deleted' is not an agenda item status")
	}
}
