package app

import (
	"context"

	"rvmdesk/api/internal/rbac"
	"rvmdesk/api/internal/store"
	"rvmdesk/api/internal/workflow"
)

type AddAgendaItemInput struct {
	DossierID     string `json:"dossierId"`
	AgendaNumber  int    `json:"agendaNumber"`
	TitleOverride string `json:"titleOverride"`
	Notes         string `json:"notes"`
}

type UpdateAgendaItemInput struct {
	TitleOverride *string `json:"titleOverride"`
	Notes         *string `json:"notes"`
	Status        *string `json:"status"`
}

type AgendaOrderInput struct {
	ItemID       string `json:"itemId"`
	AgendaNumber int    `json:"agendaNumber"`
}

func (s *Service) ListAgendaItems(ctx context.Context, meetingID string) ([]map[string]any, error) {
	if _, err := s.store.GetMeeting(ctx, meetingID); err != nil {
		return nil, err
	}
	agenda, err := s.store.ListAgendaItems(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(agenda))
	for _, item := range agenda {
		items = append(items, agendaItemJSON(item))
	}
	return items, nil
}

// NextAgendaNumber returns the number a new item would receive.
func (s *Service) NextAgendaNumber(ctx context.Context, meetingID string) (int, error) {
	if _, err := s.store.GetMeeting(ctx, meetingID); err != nil {
		return 0, err
	}
	max, err := s.store.MaxAgendaNumber(ctx, meetingID)
	if err != nil {
		return 0, err
	}
	return max + 1, nil
}

// AddAgendaItem places a dossier on a meeting agenda. A zero agendaNumber
// means append after the current highest number.
func (s *Service) AddAgendaItem(ctx context.Context, p rbac.Principal, meetingID string, input AddAgendaItemInput) (map[string]any, error) {
	if err := s.require(p, rbac.ActionManageAgenda); err != nil {
		return nil, err
	}

	meeting, err := s.store.GetMeeting(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if err := workflow.CheckMeetingAgendaMutable(workflow.MeetingStatus(meeting.Status)); err != nil {
		return nil, err
	}

	dossier, err := s.store.GetDossier(ctx, input.DossierID)
	if err != nil {
		return nil, err
	}
	if err := workflow.CheckDossierSchedulable(workflow.DossierStatus(dossier.Status)); err != nil {
		return nil, err
	}

	number := input.AgendaNumber
	if number == 0 {
		max, err := s.store.MaxAgendaNumber(ctx, meetingID)
		if err != nil {
			return nil, err
		}
		number = max + 1
	}
	if number < 1 {
		return nil, workflow.Errf(workflow.KindValidation, "agendaNumber must be positive")
	}

	item, err := s.store.InsertAgendaItem(ctx, store.AgendaItem{
		MeetingID:     meetingID,
		DossierID:     input.DossierID,
		AgendaNumber:  number,
		TitleOverride: input.TitleOverride,
		Notes:         input.Notes,
		Status:        string(workflow.AgendaScheduled),
	})
	if err != nil {
		if store.IsUniqueViolation(err, "rvm_agenda_item_meeting_number_key") {
			return nil, workflow.Errf(workflow.KindDuplicateAgendaNumber, "agenda number %d is already taken in this meeting", number)
		}
		return nil, err
	}

	s.audit(ctx, p, "agenda.item_added", "agenda_item", item.ID, map[string]any{
		"meetingId":    meetingID,
		"dossierId":    input.DossierID,
		"agendaNumber": number,
	})
	return agendaItemJSON(item), nil
}

func (s *Service) UpdateAgendaItem(ctx context.Context, p rbac.Principal, id string, input UpdateAgendaItemInput) (map[string]any, error) {
	if err := s.require(p, rbac.ActionManageAgenda); err != nil {
		return nil, err
	}

	current, err := s.store.GetAgendaItem(ctx, id)
	if err != nil {
		return nil, err
	}
	meeting, err := s.store.GetMeeting(ctx, current.MeetingID)
	if err != nil {
		return nil, err
	}
	if err := workflow.CheckMeetingAgendaMutable(workflow.MeetingStatus(meeting.Status)); err != nil {
		return nil, err
	}
	if input.Status != nil && !workflow.ValidAgendaItemStatus(workflow.AgendaItemStatus(*input.Status)) {
		return nil, workflow.Errf(workflow.KindValidation, "unknown agenda item status %q", *input.Status)
	}

	item, err := s.store.UpdateAgendaItemFields(ctx, id, store.AgendaItemPatch{
		TitleOverride: input.TitleOverride,
		Notes:         input.Notes,
		Status:        input.Status,
	})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, p, "agenda.item_updated", "agenda_item", item.ID, nil)
	return agendaItemJSON(item), nil
}

// ReorderAgenda renumbers a meeting's agenda in one transaction. Either every
// item gets its new number or nothing changes.
func (s *Service) ReorderAgenda(ctx context.Context, p rbac.Principal, meetingID string, order []AgendaOrderInput) error {
	if err := s.require(p, rbac.ActionManageAgenda); err != nil {
		return err
	}

	meeting, err := s.store.GetMeeting(ctx, meetingID)
	if err != nil {
		return err
	}
	if err := workflow.CheckMeetingAgendaMutable(workflow.MeetingStatus(meeting.Status)); err != nil {
		return err
	}
	if len(order) == 0 {
		return workflow.Errf(workflow.KindValidation, "order must not be empty")
	}

	seen := make(map[int]struct{}, len(order))
	pairs := make([]store.AgendaOrder, 0, len(order))
	for _, entry := range order {
		if entry.AgendaNumber < 1 {
			return workflow.Errf(workflow.KindValidation, "agenda numbers must be positive")
		}
		if _, dup := seen[entry.AgendaNumber]; dup {
			return workflow.Errf(workflow.KindDuplicateAgendaNumber, "agenda number %d appears twice in the requested order", entry.AgendaNumber)
		}
		seen[entry.AgendaNumber] = struct{}{}
		pairs = append(pairs, store.AgendaOrder{ItemID: entry.ItemID, AgendaNumber: entry.AgendaNumber})
	}

	if err := s.store.ReorderAgendaItems(ctx, meetingID, pairs); err != nil {
		if store.IsUniqueViolation(err, "rvm_agenda_item_meeting_number_key") {
			return workflow.Errf(workflow.KindDuplicateAgendaNumber, "requested order collides with an existing agenda number")
		}
		return err
	}

	s.audit(ctx, p, "agenda.reordered", "meeting", meetingID, map[string]any{
		"itemCount": len(order),
	})
	return nil
}

// WithdrawAgendaItem marks an item withdrawn without renumbering the rest.
func (s *Service) WithdrawAgendaItem(ctx context.Context, p rbac.Principal, id string) (map[string]any, error) {
	if err := s.require(p, rbac.ActionManageAgenda); err != nil {
		return nil, err
	}

	current, err := s.store.GetAgendaItem(ctx, id)
	if err != nil {
		return nil, err
	}
	meeting, err := s.store.GetMeeting(ctx, current.MeetingID)
	if err != nil {
		return nil, err
	}
	if err := workflow.CheckMeetingAgendaMutable(workflow.MeetingStatus(meeting.Status)); err != nil {
		return nil, err
	}

	item, err := s.store.WithdrawAgendaItem(ctx, id)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, p, "agenda.item_withdrawn", "agenda_item", item.ID, map[string]any{
		"meetingId": item.MeetingID,
	})
	return agendaItemJSON(item), nil
}

func agendaItemJSON(item store.AgendaItem) map[string]any {
	return map[string]any{
		"id":            item.ID,
		"meetingId":     item.MeetingID,
		"dossierId":     item.DossierID,
		"agendaNumber":  item.AgendaNumber,
		"titleOverride": item.TitleOverride,
		"notes":         item.Notes,
		"status":        item.Status,
		"dossierNumber": item.DossierNumber,
		"dossierTitle":  item.DossierTitle,
		"createdAt":     item.CreatedAt,
	}
}
