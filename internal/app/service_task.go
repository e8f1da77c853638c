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

type CreateTaskInput struct {
	DossierID        string  `json:"dossierId"`
	Title            string  `json:"title"`
	Description      string  `json:"description"`
	TaskType         string  `json:"taskType"`
	AssignedRoleCode string  `json:"assignedRoleCode"`
	AssignedUserID   *string `json:"assignedUserId"`
	Priority         string  `json:"priority"`
	DueAt            *string `json:"dueAt"`
}

type UpdateTaskInput struct {
	Title            *string `json:"title"`
	Description      *string `json:"description"`
	TaskType         *string `json:"taskType"`
	AssignedRoleCode *string `json:"assignedRoleCode"`
	AssignedUserID   *string `json:"assignedUserId"`
	Priority         *string `json:"priority"`
	DueAt            *string `json:"dueAt"`
	// Status edits must go through Transition; its presence here is rejected.
	Status *string `json:"status"`
}

type TransitionTaskInput struct {
	Target string `json:"target"`
	// AssignUserID lets the caller assign and start in one request; the
	// assignee guard checks the state after assignment.
	AssignUserID *string `json:"assignUserId"`
}

func (s *Service) ListTasks(ctx context.Context, filters store.TaskFilters) ([]map[string]any, error) {
	tasks, err := s.store.ListTasks(ctx, filters)
	if err != nil {
		return nil, err
	}
	return tasksJSON(tasks), nil
}

func (s *Service) ListPendingTasks(ctx context.Context) ([]map[string]any, error) {
	tasks, err := s.store.ListPendingTasks(ctx)
	if err != nil {
		return nil, err
	}
	return tasksJSON(tasks), nil
}

func (s *Service) ListOverdueTasks(ctx context.Context) ([]map[string]any, error) {
	tasks, err := s.store.ListOverdueTasks(ctx, time.Now())
	if err != nil {
		return nil, err
	}
	return tasksJSON(tasks), nil
}

func (s *Service) ListTasksByDossier(ctx context.Context, dossierID string) ([]map[string]any, error) {
	if _, err := s.store.GetDossier(ctx, dossierID); err != nil {
		return nil, err
	}
	tasks, err := s.store.ListTasksByDossier(ctx, dossierID)
	if err != nil {
		return nil, err
	}
	return tasksJSON(tasks), nil
}

func (s *Service) GetTask(ctx context.Context, id string) (map[string]any, error) {
	t, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	payload := taskJSON(t)
	payload["nextStatuses"] = statusStrings(workflow.TaskNextStatuses(workflow.TaskStatus(t.Status)))
	return payload, nil
}

func (s *Service) CreateTask(ctx context.Context, p rbac.Principal, input CreateTaskInput) (map[string]any, error) {
	if err := s.require(p, rbac.ActionCreateTask); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, workflow.Errf(workflow.KindValidation, "title is required")
	}
	if !rbac.ValidRole(rbac.Role(input.AssignedRoleCode)) {
		return nil, workflow.Errf(workflow.KindValidation, "unknown role code %q", input.AssignedRoleCode)
	}

	taskType := input.TaskType
	if taskType == "" {
		taskType = string(workflow.TaskTypeOther)
	}
	if !workflow.ValidTaskType(workflow.TaskType(taskType)) {
		return nil, workflow.Errf(workflow.KindValidation, "unknown task type %q", input.TaskType)
	}
	priority := input.Priority
	if priority == "" {
		priority = string(workflow.PriorityNormal)
	}
	if !workflow.ValidTaskPriority(workflow.TaskPriority(priority)) {
		return nil, workflow.Errf(workflow.KindValidation, "unknown priority %q", input.Priority)
	}

	dossier, err := s.store.GetDossier(ctx, input.DossierID)
	if err != nil {
		return nil, err
	}
	if err := workflow.CheckDossierMutable(workflow.DossierStatus(dossier.Status)); err != nil {
		return nil, err
	}

	dueAt, err := parseOptionalTime(input.DueAt)
	if err != nil {
		return nil, err
	}

	task, err := s.store.InsertTask(ctx, store.Task{
		DossierID:        input.DossierID,
		Title:            title,
		Description:      input.Description,
		TaskType:         taskType,
		AssignedRoleCode: input.AssignedRoleCode,
		AssignedUserID:   input.AssignedUserID,
		Priority:         priority,
		Status:           string(workflow.TaskTodo),
		DueAt:            dueAt,
		CreatedBy:        p.Name,
	})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, p, "task.created", "task", task.ID, map[string]any{
		"dossierId": input.DossierID,
		"taskType":  taskType,
	})
	s.indexTask(task)
	return taskJSON(task), nil
}

func (s *Service) UpdateTask(ctx context.Context, p rbac.Principal, id string, input UpdateTaskInput) (map[string]any, error) {
	if err := s.require(p, rbac.ActionEditTask); err != nil {
		return nil, err
	}
	if input.Status != nil {
		return nil, workflow.Errf(workflow.KindValidation, "status cannot be edited directly; use the transition endpoint")
	}

	current, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	dossier, err := s.store.GetDossier(ctx, current.DossierID)
	if err != nil {
		return nil, err
	}
	if err := workflow.CheckDossierMutable(workflow.DossierStatus(dossier.Status)); err != nil {
		return nil, err
	}

	if input.TaskType != nil && !workflow.ValidTaskType(workflow.TaskType(*input.TaskType)) {
		return nil, workflow.Errf(workflow.KindValidation, "unknown task type %q", *input.TaskType)
	}
	if input.Priority != nil && !workflow.ValidTaskPriority(workflow.TaskPriority(*input.Priority)) {
		return nil, workflow.Errf(workflow.KindValidation, "unknown priority %q", *input.Priority)
	}
	if input.AssignedRoleCode != nil && !rbac.ValidRole(rbac.Role(*input.AssignedRoleCode)) {
		return nil, workflow.Errf(workflow.KindValidation, "unknown role code %q", *input.AssignedRoleCode)
	}

	dueAt, err := parseOptionalTime(input.DueAt)
	if err != nil {
		return nil, err
	}

	task, err := s.store.UpdateTaskFields(ctx, id, store.TaskPatch{
		Title:            input.Title,
		Description:      input.Description,
		TaskType:         input.TaskType,
		AssignedRoleCode: input.AssignedRoleCode,
		AssignedUserID:   input.AssignedUserID,
		Priority:         input.Priority,
		DueAt:            dueAt,
	})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, p, "task.updated", "task", task.ID, nil)
	s.indexTask(task)
	return taskJSON(task), nil
}

// TransitionTask moves a task along its lifecycle. The parent dossier's lock
// propagates; a frozen dossier freezes its tasks.
func (s *Service) TransitionTask(ctx context.Context, p rbac.Principal, id string, input TransitionTaskInput) (map[string]any, error) {
	if err := s.require(p, rbac.ActionTransitionTask); err != nil {
		return nil, err
	}

	current, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	dossier, err := s.store.GetDossier(ctx, current.DossierID)
	if err != nil {
		return nil, err
	}
	if err := workflow.CheckDossierMutable(workflow.DossierStatus(dossier.Status)); err != nil {
		return nil, err
	}

	hasAssignee := current.AssignedUserID != nil || input.AssignUserID != nil
	next, err := workflow.TransitionTask(workflow.TaskState{
		Status:      workflow.TaskStatus(current.Status),
		HasAssignee: hasAssignee,
		StartedAt:   current.StartedAt,
		CompletedAt: current.CompletedAt,
	}, workflow.TaskStatus(input.Target), time.Now(), s.taskStartedAtPolicy())
	if err != nil {
		return nil, err
	}

	task, err := s.store.UpdateTaskStatus(ctx, id, string(next.Status), store.TaskTimestamps{
		StartedAt:   next.StartedAt,
		CompletedAt: next.CompletedAt,
	}, input.AssignUserID)
	if err != nil {
		return nil, err
	}

	s.metrics.Transition("task", input.Target)
	s.audit(ctx, p, "task.transitioned", "task", task.ID, map[string]any{
		"from": current.Status,
		"to":   input.Target,
	})
	s.indexTask(task)
	return taskJSON(task), nil
}

func (s *Service) indexTask(t store.Task) {
	s.search.IndexTask(search.TaskRecord{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		DossierID:   t.DossierID,
	})
}

func parseOptionalTime(raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, *raw)
	if err != nil {
		return nil, workflow.Errf(workflow.KindValidation, "timestamps must be RFC 3339")
	}
	return &parsed, nil
}

func tasksJSON(tasks []store.Task) []map[string]any {
	items := make([]map[string]any, 0, len(tasks))
	for _, t := range tasks {
		items = append(items, taskJSON(t))
	}
	return items
}

func taskJSON(t store.Task) map[string]any {
	return map[string]any{
		"id":               t.ID,
		"dossierId":        t.DossierID,
		"title":            t.Title,
		"description":      t.Description,
		"taskType":         t.TaskType,
		"assignedRoleCode": t.AssignedRoleCode,
		"assignedUserId":   t.AssignedUserID,
		"priority":         t.Priority,
		"status":           t.Status,
		"dueAt":            t.DueAt,
		"startedAt":        t.StartedAt,
		"completedAt":      t.CompletedAt,
		"dossierNumber":    t.DossierNumber,
		"dossierTitle":     t.DossierTitle,
		"createdBy":        t.CreatedBy,
		"createdAt":        t.CreatedAt,
		"updatedAt":        t.UpdatedAt,
	}
}
