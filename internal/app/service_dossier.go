package app

import (
	"context"
	"strings"

	"rvmdesk/api/internal/rbac"
	"rvmdesk/api/internal/search"
	"rvmdesk/api/internal/store"
	"rvmdesk/api/internal/workflow"
)

type CreateDossierInput struct {
	Title                string  `json:"title"`
	ServiceType          string  `json:"serviceType"`
	ProposalSubtype      *string `json:"proposalSubtype"`
	SenderMinistry       string  `json:"senderMinistry"`
	Urgency              string  `json:"urgency"`
	ConfidentialityLevel string  `json:"confidentialityLevel"`
	Summary              string  `json:"summary"`
}

type UpdateDossierInput struct {
	Title                *string `json:"title"`
	SenderMinistry       *string `json:"senderMinistry"`
	Urgency              *string `json:"urgency"`
	ConfidentialityLevel *string `json:"confidentialityLevel"`
	Summary              *string `json:"summary"`
	ProposalSubtype      *string `json:"proposalSubtype"`
	// Status edits must go through Transition; its presence here is rejected.
	Status *string `json:"status"`
}

func (s *Service) ListDossiers(ctx context.Context, filters store.DossierFilters) ([]map[string]any, error) {
	dossiers, err := s.store.ListDossiers(ctx, filters)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(dossiers))
	for _, d := range dossiers {
		items = append(items, dossierJSON(d))
	}
	return items, nil
}

// ListAgendaEligibleDossiers returns dossiers whose status admits agenda
// placement, for the meeting-planning picker.
func (s *Service) ListAgendaEligibleDossiers(ctx context.Context) ([]map[string]any, error) {
	dossiers, err := s.store.ListAgendaEligibleDossiers(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(dossiers))
	for _, d := range dossiers {
		items = append(items, dossierJSON(d))
	}
	return items, nil
}

func (s *Service) GetDossier(ctx context.Context, id string) (map[string]any, error) {
	d, err := s.store.GetDossier(ctx, id)
	if err != nil {
		return nil, err
	}
	payload := dossierJSON(d)
	payload["nextStatuses"] = statusStrings(workflow.DossierNextStatuses(workflow.DossierStatus(d.Status)))
	return payload, nil
}

func (s *Service) CreateDossier(ctx context.Context, p rbac.Principal, input CreateDossierInput) (map[string]any, error) {
	if err := s.require(p, rbac.ActionCreateDossier); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, workflow.Errf(workflow.KindValidation, "title is required")
	}
	ministry := strings.TrimSpace(input.SenderMinistry)
	if ministry == "" {
		return nil, workflow.Errf(workflow.KindValidation, "senderMinistry is required")
	}

	serviceType := workflow.ServiceType(input.ServiceType)
	if !workflow.ValidServiceType(serviceType) {
		return nil, workflow.Errf(workflow.KindValidation, "unknown service type %q", input.ServiceType)
	}

	urgency := input.Urgency
	if urgency == "" {
		urgency = string(workflow.UrgencyRegular)
	}
	if !workflow.ValidUrgency(workflow.UrgencyLevel(urgency)) {
		return nil, workflow.Errf(workflow.KindValidation, "unknown urgency %q", input.Urgency)
	}

	confidentiality := input.ConfidentialityLevel
	if confidentiality == "" {
		confidentiality = string(workflow.ConfidentialityStandard)
	}
	if !workflow.ValidConfidentiality(workflow.ConfidentialityLevel(confidentiality)) {
		return nil, workflow.Errf(workflow.KindValidation, "unknown confidentiality level %q", input.ConfidentialityLevel)
	}

	var subtype *workflow.ProposalSubtype
	if input.ProposalSubtype != nil {
		st := workflow.ProposalSubtype(*input.ProposalSubtype)
		subtype = &st
	}
	if err := workflow.CheckProposalSubtype(serviceType, subtype); err != nil {
		return nil, err
	}

	dossier, err := s.store.InsertDossier(ctx, store.Dossier{
		Title:                title,
		ServiceType:          string(serviceType),
		ProposalSubtype:      input.ProposalSubtype,
		SenderMinistry:       ministry,
		Urgency:              urgency,
		ConfidentialityLevel: confidentiality,
		Summary:              strings.TrimSpace(input.Summary),
		Status:               string(workflow.DossierDraft),
		CreatedBy:            p.Name,
	})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, p, "dossier.created", "dossier", dossier.ID, map[string]any{
		"dossierNumber": dossier.DossierNumber,
		"serviceType":   dossier.ServiceType,
	})
	s.indexDossier(dossier)
	return dossierJSON(dossier), nil
}

func (s *Service) UpdateDossier(ctx context.Context, p rbac.Principal, id string, input UpdateDossierInput) (map[string]any, error) {
	if err := s.require(p, rbac.ActionEditDossier); err != nil {
		return nil, err
	}
	if input.Status != nil {
		return nil, workflow.Errf(workflow.KindValidation, "status cannot be edited directly; use the transition endpoint")
	}

	current, err := s.store.GetDossier(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := workflow.CheckDossierMutable(workflow.DossierStatus(current.Status)); err != nil {
		return nil, err
	}

	if input.Urgency != nil && !workflow.ValidUrgency(workflow.UrgencyLevel(*input.Urgency)) {
		return nil, workflow.Errf(workflow.KindValidation, "unknown urgency %q", *input.Urgency)
	}
	if input.ConfidentialityLevel != nil && !workflow.ValidConfidentiality(workflow.ConfidentialityLevel(*input.ConfidentialityLevel)) {
		return nil, workflow.Errf(workflow.KindValidation, "unknown confidentiality level %q", *input.ConfidentialityLevel)
	}
	if input.ProposalSubtype != nil {
		st := workflow.ProposalSubtype(*input.ProposalSubtype)
		if err := workflow.CheckProposalSubtype(workflow.ServiceType(current.ServiceType), &st); err != nil {
			return nil, err
		}
	}

	dossier, err := s.store.UpdateDossierFields(ctx, id, store.DossierPatch{
		Title:                input.Title,
		SenderMinistry:       input.SenderMinistry,
		Urgency:              input.Urgency,
		ConfidentialityLevel: input.ConfidentialityLevel,
		Summary:              input.Summary,
		ProposalSubtype:      input.ProposalSubtype,
	})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, p, "dossier.updated", "dossier", dossier.ID, nil)
	s.indexDossier(dossier)
	return dossierJSON(dossier), nil
}

// TransitionDossier moves a dossier along its lifecycle. The target must be
// adjacent to the current status in the transition table.
func (s *Service) TransitionDossier(ctx context.Context, p rbac.Principal, id, target string) (map[string]any, error) {
	if err := s.require(p, rbac.ActionTransitionDossier); err != nil {
		return nil, err
	}

	current, err := s.store.GetDossier(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := workflow.CheckDossierTransition(workflow.DossierStatus(current.Status), workflow.DossierStatus(target)); err != nil {
		return nil, err
	}

	dossier, err := s.store.UpdateDossierStatus(ctx, id, target)
	if err != nil {
		return nil, err
	}

	s.metrics.Transition("dossier", target)
	s.audit(ctx, p, "dossier.transitioned", "dossier", dossier.ID, map[string]any{
		"from": current.Status,
		"to":   target,
	})
	s.indexDossier(dossier)
	return dossierJSON(dossier), nil
}

func (s *Service) indexDossier(d store.Dossier) {
	s.search.IndexDossier(search.DossierRecord{
		ID:             d.ID,
		DossierNumber:  d.DossierNumber,
		Title:          d.Title,
		Summary:        d.Summary,
		SenderMinistry: d.SenderMinistry,
		Status:         d.Status,
	})
}

func dossierJSON(d store.Dossier) map[string]any {
	return map[string]any{
		"id":                   d.ID,
		"dossierNumber":        d.DossierNumber,
		"title":                d.Title,
		"serviceType":          d.ServiceType,
		"proposalSubtype":      d.ProposalSubtype,
		"senderMinistry":       d.SenderMinistry,
		"urgency":              d.Urgency,
		"confidentialityLevel": d.ConfidentialityLevel,
		"summary":              d.Summary,
		"status":               d.Status,
		"createdBy":            d.CreatedBy,
		"createdAt":            d.CreatedAt,
		"updatedAt":            d.UpdatedAt,
	}
}

func statusStrings[S ~string](statuses []S) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}
