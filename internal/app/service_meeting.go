package app

import (
	"context"
	"time"

	"rvmdesk/api/internal/rbac"
	"rvmdesk/api/internal/store"
	"rvmdesk/api/internal/workflow"
)

type CreateMeetingInput struct {
	MeetingDate string `json:"meetingDate"`
	MeetingType string `json:"meetingType"`
	Location    string `json:"location"`
}

type UpdateMeetingInput struct {
	MeetingDate *string `json:"meetingDate"`
	MeetingType *string `json:"meetingType"`
	Location    *string `json:"location"`
	// Status edits must go through Transition; its presence here is rejected.
	Status *string `json:"status"`
}

const meetingDateLayout = "2006-01-02"

func (s *Service) ListMeetings(ctx context.Context, filters store.MeetingFilters) ([]map[string]any, error) {
	meetings, err := s.store.ListMeetings(ctx, filters)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(meetings))
	for _, m := range meetings {
		items = append(items, meetingJSON(m))
	}
	return items, nil
}

func (s *Service) ListUpcomingMeetings(ctx context.Context) ([]map[string]any, error) {
	meetings, err := s.store.ListUpcomingMeetings(ctx, time.Now())
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(meetings))
	for _, m := range meetings {
		items = append(items, meetingJSON(m))
	}
	return items, nil
}

// GetMeeting returns the meeting with its agenda, ordered by agenda number.
func (s *Service) GetMeeting(ctx context.Context, id string) (map[string]any, error) {
	m, err := s.store.GetMeeting(ctx, id)
	if err != nil {
		return nil, err
	}
	agenda, err := s.store.ListAgendaItems(ctx, id)
	if err != nil {
		return nil, err
	}

	items := make([]map[string]any, 0, len(agenda))
	for _, item := range agenda {
		items = append(items, agendaItemJSON(item))
	}

	payload := meetingJSON(m)
	payload["agenda"] = items
	payload["nextStatuses"] = statusStrings(workflow.MeetingNextStatuses(workflow.MeetingStatus(m.Status)))
	return payload, nil
}

func (s *Service) CreateMeeting(ctx context.Context, p rbac.Principal, input CreateMeetingInput) (map[string]any, error) {
	if err := s.require(p, rbac.ActionCreateMeeting); err != nil {
		return nil, err
	}

	date, err := time.Parse(meetingDateLayout, input.MeetingDate)
	if err != nil {
		return nil, workflow.Errf(workflow.KindValidation, "meetingDate must be YYYY-MM-DD")
	}

	meetingType := input.MeetingType
	if meetingType == "" {
		meetingType = string(workflow.MeetingRegular)
	}
	if !workflow.ValidMeetingType(workflow.MeetingType(meetingType)) {
		return nil, workflow.Errf(workflow.KindValidation, "unknown meeting type %q", input.MeetingType)
	}

	meeting, err := s.store.InsertMeeting(ctx, store.Meeting{
		MeetingDate: date,
		MeetingType: meetingType,
		Location:    input.Location,
		Status:      string(workflow.MeetingDraft),
		CreatedBy:   p.Name,
	})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, p, "meeting.created", "meeting", meeting.ID, map[string]any{
		"meetingDate": input.MeetingDate,
	})
	return meetingJSON(meeting), nil
}

func (s *Service) UpdateMeeting(ctx context.Context, p rbac.Principal, id string, input UpdateMeetingInput) (map[string]any, error) {
	if err := s.require(p, rbac.ActionEditMeeting); err != nil {
		return nil, err
	}
	if input.Status != nil {
		return nil, workflow.Errf(workflow.KindValidation, "status cannot be edited directly; use the transition endpoint")
	}

	current, err := s.store.GetMeeting(ctx, id)
	if err != nil {
		return nil, err
	}
	if workflow.MeetingLocked(workflow.MeetingStatus(current.Status)) {
		return nil, workflow.Errf(workflow.KindLockedEntity, "meeting is closed and cannot be modified")
	}

	patch := store.MeetingPatch{
		MeetingType: input.MeetingType,
		Location:    input.Location,
	}
	if input.MeetingDate != nil {
		date, err := time.Parse(meetingDateLayout, *input.MeetingDate)
		if err != nil {
			return nil, workflow.Errf(workflow.KindValidation, "meetingDate must be YYYY-MM-DD")
		}
		patch.MeetingDate = &date
	}
	if input.MeetingType != nil && !workflow.ValidMeetingType(workflow.MeetingType(*input.MeetingType)) {
		return nil, workflow.Errf(workflow.KindValidation, "unknown meeting type %q", *input.MeetingType)
	}

	meeting, err := s.store.UpdateMeetingFields(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, p, "meeting.updated", "meeting", meeting.ID, nil)
	return meetingJSON(meeting), nil
}

func (s *Service) TransitionMeeting(ctx context.Context, p rbac.Principal, id, target string) (map[string]any, error) {
	if err := s.require(p, rbac.ActionTransitionMeeting); err != nil {
		return nil, err
	}

	current, err := s.store.GetMeeting(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := workflow.CheckMeetingTransition(workflow.MeetingStatus(current.Status), workflow.MeetingStatus(target)); err != nil {
		return nil, err
	}

	meeting, err := s.store.UpdateMeetingStatus(ctx, id, target)
	if err != nil {
		return nil, err
	}

	s.metrics.Transition("meeting", target)
	s.audit(ctx, p, "meeting.transitioned", "meeting", meeting.ID, map[string]any{
		"from": current.Status,
		"to":   target,
	})
	return meetingJSON(meeting), nil
}

func meetingJSON(m store.Meeting) map[string]any {
	return map[string]any{
		"id":          m.ID,
		"meetingDate": m.MeetingDate.Format(meetingDateLayout),
		"meetingType": m.MeetingType,
		"location":    m.Location,
		"status":      m.Status,
		"createdBy":   m.CreatedBy,
		"createdAt":   m.CreatedAt,
	}
}
