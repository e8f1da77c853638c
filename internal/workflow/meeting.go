package workflow

type MeetingStatus string

const (
	MeetingDraft     MeetingStatus = "draft"
	MeetingPublished MeetingStatus = "published"
	MeetingClosed    MeetingStatus = "closed"
)

// Meetings move strictly draft → published → closed. No skips, no
// back-transitions.
var meetingTransitions = map[MeetingStatus][]MeetingStatus{
	MeetingDraft:     {MeetingPublished},
	MeetingPublished: {MeetingClosed},
	MeetingClosed:    {},
}

func ValidMeetingStatus(s MeetingStatus) bool {
	_, ok := meetingTransitions[s]
	return ok
}

func MeetingNextStatuses(s MeetingStatus) []MeetingStatus {
	return meetingTransitions[s]
}

func CheckMeetingTransition(current, target MeetingStatus) error {
	if !ValidMeetingStatus(current) || !ValidMeetingStatus(target) {
		return Errf(KindValidation, "unknown meeting status")
	}
	for _, next := range meetingTransitions[current] {
		if next == target {
			return nil
		}
	}
	return Errf(KindInvalidTransition, "meeting cannot move from %s to %s", current, target)
}

// MeetingLocked reports whether the meeting's agenda is frozen.
func MeetingLocked(s MeetingStatus) bool {
	return s == MeetingClosed
}

type MeetingType string

const (
	MeetingRegular MeetingType = "regular"
	MeetingUrgent  MeetingType = "urgent"
	MeetingSpecial MeetingType = "special"
)

func ValidMeetingType(t MeetingType) bool {
	return t == MeetingRegular || t == MeetingUrgent || t == MeetingSpecial
}
