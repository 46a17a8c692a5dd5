package models

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents where a task is in its lifecycle
type TaskStatus string

const (
	TaskStatusNotStarted TaskStatus = "not_started"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
	TaskStatusWaiting    TaskStatus = "waiting"
	TaskStatusArchived   TaskStatus = "archived"
)

// Valid reports whether s is a known status.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusNotStarted, TaskStatusInProgress, TaskStatusDone, TaskStatusWaiting, TaskStatusArchived:
		return true
	}
	return false
}

// IsOpen reports whether a task in this status still needs doing.
func (s TaskStatus) IsOpen() bool {
	return s != TaskStatusDone && s != TaskStatusArchived
}

// TaskPriority represents how urgent a task is
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
)

// TaskView selects one of the predefined task lists.
type TaskView string

const (
	TaskViewToday    TaskView = "today"
	TaskViewUpcoming TaskView = "upcoming"
	TaskViewNext     TaskView = "next"
	TaskViewInbox    TaskView = "inbox"
)

// Valid reports whether v names a known view. The empty view means "all tasks".
func (v TaskView) Valid() bool {
	switch v {
	case "", TaskViewToday, TaskViewUpcoming, TaskViewNext, TaskViewInbox:
		return true
	}
	return false
}

// Task represents a single actionable item
type Task struct {
	ID          uuid.UUID     `json:"id"`
	UserID      uuid.UUID     `json:"user_id"`
	Name        string        `json:"name"`
	Note        string        `json:"note"`
	Status      TaskStatus    `json:"status"`
	Priority    TaskPriority  `json:"priority"`
	DueDate     *time.Time    `json:"due_date,omitempty"`
	ProjectID   uuid.NullUUID `json:"project_id"`
	Tags        []Tag         `json:"tags"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// TaskPayload is the create/update body for a task.
type TaskPayload struct {
	Name         *string       `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Note         *string       `json:"note,omitempty" validate:"omitempty,max=10000"`
	Status       *TaskStatus   `json:"status,omitempty" validate:"omitempty,task_status"`
	Priority     *TaskPriority `json:"priority,omitempty" validate:"omitempty,task_priority"`
	DueDate      *time.Time    `json:"due_date,omitempty"`
	ClearDue     bool          `json:"clear_due_date,omitempty"`
	ProjectID    *uuid.UUID    `json:"project_id,omitempty"`
	ClearProject bool          `json:"clear_project,omitempty"`
	Tags         []string      `json:"tags" validate:"omitempty,max=50,dive,max=64"`
}

func (t Task) RecordID() uuid.UUID { return t.ID }

func (t Task) IsPersisted() bool { return t.ID != uuid.Nil }

// Payload converts the task into a full write body.
func (t Task) Payload() TaskPayload {
	p := TaskPayload{
		Name: &t.Name,
		Note: &t.Note,
		Tags: append([]string{}, TagNames(t.Tags)...),
	}
	if t.Status != "" {
		p.Status = &t.Status
	}
	if t.Priority != "" {
		p.Priority = &t.Priority
	}
	if t.DueDate != nil {
		due := *t.DueDate
		p.DueDate = &due
	} else if t.IsPersisted() {
		p.ClearDue = true
	}
	if t.ProjectID.Valid {
		id := t.ProjectID.UUID
		p.ProjectID = &id
	} else if t.IsPersisted() {
		p.ClearProject = true
	}
	return p
}

// SetStatus moves the task to s, stamping CompletedAt when it becomes done and
// clearing it when it leaves done.
func (t *Task) SetStatus(s TaskStatus, now time.Time) {
	if s == TaskStatusDone && t.Status != TaskStatusDone {
		completed := now
		t.CompletedAt = &completed
	} else if s != TaskStatusDone {
		t.CompletedAt = nil
	}
	t.Status = s
}

// DateOnly truncates t to midnight UTC of its calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
