package workflow

import "testing"

var allDossierStatuses = []DossierStatus{
	DossierDraft, DossierRegistered, DossierInPreparation,
	DossierScheduled, DossierDecided, DossierArchived, DossierCancelled,
}

func TestDossierTransitionTableIsExhaustive(t *testing.T) {
	allowed := map[DossierStatus]map[DossierStatus]bool{
		DossierDraft:         {DossierRegistered: true},
		DossierRegistered:    {DossierInPreparation: true, DossierCancelled: true},
		DossierInPreparation: {DossierScheduled: true, DossierCancelled: true},
		DossierScheduled:     {DossierDecided: true, DossierCancelled: true},
		DossierDecided:       {DossierArchived: true},
		DossierArchived:      {},
		DossierCancelled:     {},
	}

	for _, from := range allDossierStatuses {
		for _, to := range allDossierStatuses {
			err := CheckDossierTransition(from, to)
			if allowed[from][to] {
				if err != nil {
					t.Errorf("expected %s -> %s to be allowed, got %v", from, to, err)
				}
				continue
			}
			if err == nil {
				t.Errorf("expected %s -> %s to be rejected", from, to)
			} else if KindOf(err) != KindInvalidTransition {
				t.Errorf("expected INVALID_TRANSITION for %s -> %s, got %s", from, to, KindOf(err))
			}
		}
	}
}

func TestCheckDossierTransitionRejectsUnknownStatus(t *testing.T) {
	if err := CheckDossierTransition("bogus", DossierRegistered); err == nil {
		t.Fatal("expected error for unknown current status")
	}
	if err := CheckDossierTransition(DossierDraft, "bogus"); err == nil {
		t.Fatal("expected error for unknown target status")
	}
}

func TestDossierLocked(t *testing.T) {
	locked := map[DossierStatus]bool{
		DossierDecided:   true,
		DossierArchived:  true,
		DossierCancelled: true,
	}
	for _, s := range allDossierStatuses {
		if got := DossierLocked(s); got != locked[s] {
			t.Errorf("DossierLocked(%s) = %v, want %v", s, got, locked[s])
		}
	}
}

func TestDossierAgendaEligible(t *testing.T) {
	eligible := map[DossierStatus]bool{
		DossierInPreparation: true,
		DossierScheduled:     true,
	}
	for _, s := range allDossierStatuses {
		if got := DossierAgendaEligible(s); got != eligible[s] {
			t.Errorf("DossierAgendaEligible(%s) = %v, want %v", s, got, eligible[s])
		}
	}
}

func TestCheckProposalSubtype(t *testing.T) {
	opa := SubtypeOPA
	bogus := ProposalSubtype("bogus")

	if err := CheckProposalSubtype(ServiceProposal, &opa); err != nil {
		t.Fatalf("subtype on proposal should be allowed: %v", err)
	}
	if err := CheckProposalSubtype(ServiceMissive, nil); err != nil {
		t.Fatalf("missive without subtype should be allowed: %v", err)
	}
	if err := CheckProposalSubtype(ServiceMissive, &opa); err == nil {
		t.Fatal("subtype on missive must be rejected")
	}
	if err := CheckProposalSubtype(ServiceProposal, &bogus); err == nil {
		t.Fatal("unknown subtype must be rejected")
	}
}
