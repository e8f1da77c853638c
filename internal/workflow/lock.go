package workflow

// Lock propagation: a parent entity in a terminal or closed state freezes
// its dependents. These checks run before any field mutation, independently
// of the transition tables.

// CheckDossierMutable rejects field edits on a locked dossier. It also
// guards the dossier's tasks, which share the parent's lock.
func CheckDossierMutable(s DossierStatus) error {
	if DossierLocked(s) {
		return Errf(KindLockedEntity, "dossier is %s and cannot be modified", s)
	}
	return nil
}

// CheckMeetingAgendaMutable rejects agenda mutations (add, update, reorder,
// withdraw) under a closed meeting.
func CheckMeetingAgendaMutable(s MeetingStatus) error {
	if MeetingLocked(s) {
		return Errf(KindLockedEntity, "meeting is closed; agenda items cannot be modified")
	}
	return nil
}

// CheckDossierSchedulable gates agenda placement on the dossier's status.
func CheckDossierSchedulable(s DossierStatus) error {
	if !DossierAgendaEligible(s) {
		return Errf(KindDossierNotEligible, "dossier in status %s is not eligible for agenda scheduling", s)
	}
	return nil
}
