package app

import (
	"context"
	"strings"
	"time"

	"rvmdesk/api/internal/rbac"
	"rvmdesk/api/internal/search"
	"rvmdesk/api/internal/store"
	"rvmdesk/api/internal/workflow"
)

type CreateDecisionInput struct {
	AgendaItemID string `json:"agendaItemId"`
	DecisionText string `json:"decisionText"`
	Status       string `json:"status"`
}

type UpdateDecisionInput struct {
	DecisionText *string `json:"decisionText"`
	Status       *string `json:"status"`
}

func (s *Service) GetDecision(ctx context.Context, id string) (map[string]any, error) {
	d, err := s.store.GetDecision(ctx, id)
	if err != nil {
		return nil, err
	}
	return decisionJSON(d), nil
}

func (s *Service) GetDecisionByAgendaItem(ctx context.Context, agendaItemID string) (map[string]any, error) {
	if _, err := s.store.GetAgendaItem(ctx, agendaItemID); err != nil {
		return nil, err
	}
	d, err := s.store.GetDecisionByAgendaItem(ctx, agendaItemID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, nil
	}
	return decisionJSON(*d), nil
}

func (s *Service) ListDecisionsByMeeting(ctx context.Context, meetingID string) ([]map[string]any, error) {
	if _, err := s.store.GetMeeting(ctx, meetingID); err != nil {
		return nil, err
	}
	decisions, err := s.store.ListDecisionsByMeeting(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(decisions))
	for _, d := range decisions {
		items = append(items, decisionJSON(d))
	}
	return items, nil
}

// CreateDecision records the decision for an agenda item. One decision per
// item; a second attempt is a conflict.
func (s *Service) CreateDecision(ctx context.Context, p rbac.Principal, input CreateDecisionInput) (map[string]any, error) {
	if err := s.require(p, rbac.ActionRecordDecision); err != nil {
		return nil, err
	}

	text := strings.TrimSpace(input.DecisionText)
	if text == "" {
		return nil, workflow.Errf(workflow.KindValidation, "decisionText is required")
	}
	status := input.Status
	if status == "" {
		status = string(workflow.DecisionPending)
	}
	if !workflow.ValidDecisionStatus(workflow.DecisionStatus(status)) {
		return nil, workflow.Errf(workflow.KindValidation, "unknown decision status %q", input.Status)
	}

	if _, err := s.store.GetAgendaItem(ctx, input.AgendaItemID); err != nil {
		return nil, err
	}

	decision, err := s.store.InsertDecision(ctx, store.Decision{
		AgendaItemID:   input.AgendaItemID,
		DecisionText:   text,
		DecisionStatus: status,
	})
	if err != nil {
		if store.IsUniqueViolation(err, "rvm_decision_agenda_item_key") {
			return nil, workflow.Errf(workflow.KindDuplicateDecision, "agenda item already has a decision")
		}
		return nil, err
	}

	s.audit(ctx, p, "decision.recorded", "decision", decision.ID, map[string]any{
		"agendaItemId": input.AgendaItemID,
		"status":       status,
	})
	s.indexDecision(decision)
	return decisionJSON(decision), nil
}

func (s *Service) UpdateDecision(ctx context.Context, p rbac.Principal, id string, input UpdateDecisionInput) (map[string]any, error) {
	if err := s.require(p, rbac.ActionRecordDecision); err != nil {
		return nil, err
	}

	current, err := s.store.GetDecision(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := workflow.CheckDecisionMutable(current.IsFinal); err != nil {
		return nil, err
	}
	if input.Status != nil && !workflow.ValidDecisionStatus(workflow.DecisionStatus(*input.Status)) {
		return nil, workflow.Errf(workflow.KindValidation, "unknown decision status %q", *input.Status)
	}
	if input.DecisionText != nil && strings.TrimSpace(*input.DecisionText) == "" {
		return nil, workflow.Errf(workflow.KindValidation, "decisionText must not be blank")
	}

	decision, err := s.store.UpdateDecisionFields(ctx, id, store.DecisionPatch{
		DecisionText:   input.DecisionText,
		DecisionStatus: input.Status,
	})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, p, "decision.updated", "decision", decision.ID, nil)
	s.indexDecision(decision)
	return decisionJSON(decision), nil
}

// RecordChairApproval stamps the chair's sign-off on a decision. It does not
// finalize; finalization is a separate, also chair-gated step.
func (s *Service) RecordChairApproval(ctx context.Context, p rbac.Principal, id string) (map[string]any, error) {
	if err := s.require(p, rbac.ActionChairApprove); err != nil {
		return nil, err
	}

	current, err := s.store.GetDecision(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := workflow.CheckDecisionMutable(current.IsFinal); err != nil {
		return nil, err
	}

	decision, err := s.store.RecordChairApproval(ctx, id, p.UserID, time.Now())
	if err != nil {
		return nil, err
	}

	s.audit(ctx, p, "decision.chair_approved", "decision", decision.ID, nil)
	return decisionJSON(decision), nil
}

// FinalizeDecision makes a decision immutable. Requires prior chair approval.
func (s *Service) FinalizeDecision(ctx context.Context, p rbac.Principal, id string) (map[string]any, error) {
	if err := s.require(p, rbac.ActionFinalizeDecision); err != nil {
		return nil, err
	}

	current, err := s.store.GetDecision(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := workflow.CheckDecisionFinalize(current.IsFinal, current.ChairApprovedAt); err != nil {
		return nil, err
	}

	decision, err := s.store.FinalizeDecision(ctx, id)
	if err != nil {
		return nil, err
	}

	s.metrics.Transition("decision", "final")
	s.audit(ctx, p, "decision.finalized", "decision", decision.ID, map[string]any{
		"status": decision.DecisionStatus,
	})
	s.indexDecision(decision)
	return decisionJSON(decision), nil
}

func (s *Service) indexDecision(d store.Decision) {
	s.search.IndexDecision(search.DecisionRecord{
		ID:        d.ID,
		Text:      d.DecisionText,
		Status:    d.DecisionStatus,
		DossierID: d.DossierID,
	})
}

func decisionJSON(d store.Decision) map[string]any {
	return map[string]any{
		"id":              d.ID,
		"agendaItemId":    d.AgendaItemID,
		"decisionText":    d.DecisionText,
		"status":          d.DecisionStatus,
		"isFinal":         d.IsFinal,
		"chairApprovedBy": d.ChairApprovedBy,
		"chairApprovedAt": d.ChairApprovedAt,
		"agendaNumber":    d.AgendaNumber,
		"dossierId":       d.DossierID,
		"createdAt":       d.CreatedAt,
		"updatedAt":       d.UpdatedAt,
	}
}
