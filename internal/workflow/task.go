package workflow

import "time"

type TaskStatus string

const (
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in_progress"
	TaskBlocked    TaskStatus = "blocked"
	TaskDone       TaskStatus = "done"
	TaskCancelled  TaskStatus = "cancelled"
)

var taskTransitions = map[TaskStatus][]TaskStatus{
	TaskTodo:       {TaskInProgress, TaskBlocked, TaskCancelled},
	TaskInProgress: {TaskDone, TaskBlocked, TaskCancelled},
	TaskBlocked:    {TaskInProgress, TaskCancelled},
	TaskDone:       {},
	TaskCancelled:  {},
}

func ValidTaskStatus(s TaskStatus) bool {
	_, ok := taskTransitions[s]
	return ok
}

func TaskNextStatuses(s TaskStatus) []TaskStatus {
	return taskTransitions[s]
}

func CheckTaskTransition(current, target TaskStatus) error {
	if !ValidTaskStatus(current) || !ValidTaskStatus(target) {
		return Errf(KindValidation, "unknown task status")
	}
	for _, next := range taskTransitions[current] {
		if next == target {
			return nil
		}
	}
	return Errf(KindInvalidTransition, "task cannot move from %s to %s", current, target)
}

// StartedAtPolicy controls what happens to started_at when a task re-enters
// in_progress from blocked. The source system always overwrites; that stays
// the default for compatibility, but first-entry semantics are available.
type StartedAtPolicy int

const (
	StartedAtOverwrite StartedAtPolicy = iota
	StartedAtFirstEntry
)

// TaskState is the slice of a task the state machine cares about.
type TaskState struct {
	Status      TaskStatus
	HasAssignee bool
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// TransitionTask applies a status transition and its timestamp side effects.
// The assignee guard checks the state as it will be after the request, so a
// caller may assign a user and start the task in one go. Entering
// in_progress stamps started_at per the policy; entering done stamps
// completed_at.
func TransitionTask(state TaskState, target TaskStatus, now time.Time, policy StartedAtPolicy) (TaskState, error) {
	if err := CheckTaskTransition(state.Status, target); err != nil {
		return TaskState{}, err
	}
	if target == TaskInProgress && !state.HasAssignee {
		return TaskState{}, Errf(KindUnassignedTask, "task cannot be in_progress without an assigned user")
	}

	next := state
	next.Status = target
	switch target {
	case TaskInProgress:
		if policy == StartedAtOverwrite || state.StartedAt == nil {
			stamp := now
			next.StartedAt = &stamp
		}
	case TaskDone:
		stamp := now
		next.CompletedAt = &stamp
	}
	return next, nil
}

type TaskType string

const (
	TaskTypeIntake            TaskType = "intake"
	TaskTypeDossierManagement TaskType = "dossier_management"
	TaskTypeAgendaPrep        TaskType = "agenda_prep"
	TaskTypeReporting         TaskType = "reporting"
	TaskTypeReview            TaskType = "review"
	TaskTypeDistribution      TaskType = "distribution"
	TaskTypeOther             TaskType = "other"
)

func ValidTaskType(t TaskType) bool {
	switch t {
	case TaskTypeIntake, TaskTypeDossierManagement, TaskTypeAgendaPrep,
		TaskTypeReporting, TaskTypeReview, TaskTypeDistribution, TaskTypeOther:
		return true
	}
	return false
}

type TaskPriority string

const (
	PriorityNormal TaskPriority = "normal"
	PriorityHigh   TaskPriority = "high"
	PriorityUrgent TaskPriority = "urgent"
)

func ValidTaskPriority(p TaskPriority) bool {
	return p == PriorityNormal || p == PriorityHigh || p == PriorityUrgent
}
