// Package workflow holds the pure state machines for dossiers, meetings,
// tasks and decisions, plus the lock-propagation rules that couple them.
// Nothing here performs I/O; time is always injected so transitions are
// deterministic and unit-testable.
package workflow

type DossierStatus string

const (
	DossierDraft         DossierStatus = "draft"
	DossierRegistered    DossierStatus = "registered"
	DossierInPreparation DossierStatus = "in_preparation"
	DossierScheduled     DossierStatus = "scheduled"
	DossierDecided       DossierStatus = "decided"
	DossierArchived      DossierStatus = "archived"
	DossierCancelled     DossierStatus = "cancelled"
)

var dossierTransitions = map[DossierStatus][]DossierStatus{
	DossierDraft:         {DossierRegistered},
	DossierRegistered:    {DossierInPreparation, DossierCancelled},
	DossierInPreparation: {DossierScheduled, DossierCancelled},
	DossierScheduled:     {DossierDecided, DossierCancelled},
	DossierDecided:       {DossierArchived},
	DossierArchived:      {},
	DossierCancelled:     {},
}

func ValidDossierStatus(s DossierStatus) bool {
	_, ok := dossierTransitions[s]
	return ok
}

// DossierNextStatuses returns the allowed targets from the current status.
func DossierNextStatuses(s DossierStatus) []DossierStatus {
	return dossierTransitions[s]
}

// CheckDossierTransition validates current → target against the transition
// table.
func CheckDossierTransition(current, target DossierStatus) error {
	if !ValidDossierStatus(current) || !ValidDossierStatus(target) {
		return Errf(KindValidation, "unknown dossier status")
	}
	for _, next := range dossierTransitions[current] {
		if next == target {
			return nil
		}
	}
	return Errf(KindInvalidTransition, "dossier cannot move from %s to %s", current, target)
}

// DossierLocked reports whether the dossier and its dependents are frozen.
// Decided, archived and cancelled dossiers reject field edits regardless of
// role.
func DossierLocked(s DossierStatus) bool {
	switch s {
	case DossierDecided, DossierArchived, DossierCancelled:
		return true
	}
	return false
}

// DossierAgendaEligible reports whether a dossier may be placed on a meeting
// agenda. Only dossiers in preparation or already scheduled qualify.
func DossierAgendaEligible(s DossierStatus) bool {
	return s == DossierInPreparation || s == DossierScheduled
}

type ServiceType string

const (
	ServiceProposal ServiceType = "proposal"
	ServiceMissive  ServiceType = "missive"
)

type UrgencyLevel string

const (
	UrgencyRegular UrgencyLevel = "regular"
	UrgencyUrgent  UrgencyLevel = "urgent"
	UrgencySpecial UrgencyLevel = "special"
)

type ConfidentialityLevel string

const (
	ConfidentialityStandard         ConfidentialityLevel = "standard_confidential"
	ConfidentialityRestricted       ConfidentialityLevel = "restricted"
	ConfidentialityHighlyRestricted ConfidentialityLevel = "highly_restricted"
)

type ProposalSubtype string

const (
	SubtypeOPA  ProposalSubtype = "OPA"
	SubtypeORAG ProposalSubtype = "ORAG"
)

func ValidServiceType(s ServiceType) bool {
	return s == ServiceProposal || s == ServiceMissive
}

func ValidUrgency(u UrgencyLevel) bool {
	return u == UrgencyRegular || u == UrgencyUrgent || u == UrgencySpecial
}

func ValidConfidentiality(c ConfidentialityLevel) bool {
	switch c {
	case ConfidentialityStandard, ConfidentialityRestricted, ConfidentialityHighlyRestricted:
		return true
	}
	return false
}

func ValidProposalSubtype(p ProposalSubtype) bool {
	return p == SubtypeOPA || p == SubtypeORAG
}

// CheckProposalSubtype enforces the invariant that a subtype is present only
// on proposals.
func CheckProposalSubtype(serviceType ServiceType, subtype *ProposalSubtype) error {
	if subtype == nil {
		return nil
	}
	if serviceType != ServiceProposal {
		return Errf(KindValidation, "proposal_subtype is only allowed when service_type is proposal")
	}
	if !ValidProposalSubtype(*subtype) {
		return Errf(KindValidation, "invalid proposal_subtype %q", *subtype)
	}
	return nil
}
