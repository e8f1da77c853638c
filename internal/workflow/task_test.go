package workflow

import (
	"testing"
	"time"
)

var allTaskStatuses = []TaskStatus{TaskTodo, TaskInProgress, TaskBlocked, TaskDone, TaskCancelled}

func TestTaskTransitionTableIsExhaustive(t *testing.T) {
	allowed := map[TaskStatus]map[TaskStatus]bool{
		TaskTodo:       {TaskInProgress: true, TaskBlocked: true, TaskCancelled: true},
		TaskInProgress: {TaskDone: true, TaskBlocked: true, TaskCancelled: true},
		TaskBlocked:    {TaskInProgress: true, TaskCancelled: true},
		TaskDone:       {},
		TaskCancelled:  {},
	}

	for _, from := range allTaskStatuses {
		for _, to := range allTaskStatuses {
			err := CheckTaskTransition(from, to)
			if allowed[from][to] {
				if err != nil {
					t.Errorf("expected %s -> %s to be allowed, got %v", from, to, err)
				}
				continue
			}
			if KindOf(err) != KindInvalidTransition {
				t.Errorf("expected INVALID_TRANSITION for %s -> %s, got %v", from, to, err)
			}
		}
	}
}

func TestTransitionTaskRequiresAssigneeForInProgress(t *testing.T) {
	now := time.Now()

	_, err := TransitionTask(TaskState{Status: TaskTodo}, TaskInProgress, now, StartedAtOverwrite)
	if KindOf(err) != KindUnassignedTask {
		t.Fatalf("expected UNASSIGNED_TASK, got %v", err)
	}

	next, err := TransitionTask(TaskState{Status: TaskTodo, HasAssignee: true}, TaskInProgress, now, StartedAtOverwrite)
	if err != nil {
		t.Fatalf("TransitionTask() error = %v", err)
	}
	if next.StartedAt == nil || !next.StartedAt.Equal(now) {
		t.Fatalf("expected started_at to be stamped, got %v", next.StartedAt)
	}
}

func TestTransitionTaskBlockDoesNotRequireAssignee(t *testing.T) {
	next, err := TransitionTask(TaskState{Status: TaskTodo}, TaskBlocked, time.Now(), StartedAtOverwrite)
	if err != nil {
		t.Fatalf("TransitionTask() error = %v", err)
	}
	if next.Status != TaskBlocked {
		t.Fatalf("expected blocked, got %s", next.Status)
	}
}

func TestTransitionTaskStampsCompletedAtOnDone(t *testing.T) {
	started := time.Now().Add(-time.Hour)
	now := time.Now()

	next, err := TransitionTask(TaskState{Status: TaskInProgress, HasAssignee: true, StartedAt: &started}, TaskDone, now, StartedAtOverwrite)
	if err != nil {
		t.Fatalf("TransitionTask() error = %v", err)
	}
	if next.CompletedAt == nil || !next.CompletedAt.Equal(now) {
		t.Fatalf("expected completed_at to be stamped, got %v", next.CompletedAt)
	}
	if next.StartedAt == nil || !next.StartedAt.Equal(started) {
		t.Fatalf("started_at must not change on done, got %v", next.StartedAt)
	}
}

func TestStartedAtPolicyOnResumeFromBlocked(t *testing.T) {
	original := time.Now().Add(-2 * time.Hour)
	now := time.Now()
	state := TaskState{Status: TaskBlocked, HasAssignee: true, StartedAt: &original}

	overwrite, err := TransitionTask(state, TaskInProgress, now, StartedAtOverwrite)
	if err != nil {
		t.Fatalf("TransitionTask() error = %v", err)
	}
	if !overwrite.StartedAt.Equal(now) {
		t.Fatalf("overwrite policy must restamp started_at, got %v", overwrite.StartedAt)
	}

	firstEntry, err := TransitionTask(state, TaskInProgress, now, StartedAtFirstEntry)
	if err != nil {
		t.Fatalf("TransitionTask() error = %v", err)
	}
	if !firstEntry.StartedAt.Equal(original) {
		t.Fatalf("first-entry policy must keep the original started_at, got %v", firstEntry.StartedAt)
	}
}

func TestTransitionTaskRejectsTerminalStates(t *testing.T) {
	for _, from := range []TaskStatus{TaskDone, TaskCancelled} {
		for _, to := range allTaskStatuses {
			if _, err := TransitionTask(TaskState{Status: from, HasAssignee: true}, to, time.Now(), StartedAtOverwrite); err == nil {
				t.Errorf("expected %s -> %s to fail", from, to)
			}
		}
	}
}
