package domain

import (
	"time"

	"github.com/google/uuid"
)

// Step names the pipeline stages, in execution order.
type Step string

const (
	StepPreprocess Step = "preprocess"
	StepExtract    Step = "extract"
	StepResolve    Step = "resolve"
	StepDerive     Step = "derive"
)

// Steps returns the pipeline stages in strict execution order.
func Steps() []Step {
	return []Step{StepPreprocess, StepExtract, StepResolve, StepDerive}
}

type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskProcessing TaskStatus = "processing"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
)

// Task wraps one pipeline stage invocation for one conversation unit. Failed
// tasks stay visible for diagnosis; they are never silently dropped.
type Task struct {
	ID          uuid.UUID      `json:"id"`
	UnitID      uuid.UUID      `json:"unit_id"`
	Step        Step           `json:"step"`
	Status      TaskStatus     `json:"status"`
	Priority    int            `json:"priority"`
	Attempts    int            `json:"attempts"`
	MaxAttempts int            `json:"max_attempts"`
	LastError   string         `json:"last_error,omitempty"`
	Checkpoint  map[string]any `json:"checkpoint,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

// QueueStatus is a point-in-time snapshot of pipeline work.
type QueueStatus struct {
	Pending    int    `json:"pending"`
	Processing int    `json:"processing"`
	Completed  int    `json:"completed"`
	Failed     int    `json:"failed"`
	Tasks      []Task `json:"tasks,omitempty"`
}
