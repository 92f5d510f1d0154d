package models

import (
	"abm/src/types"
	"time"

	"github.com/google/uuid"
)

// AutomatedTask is one unit of deferred work picked up by the task
// processor. Rows are only ever mutated by the processor after
// creation and are retained after completion or failure for audit.
type AutomatedTask struct {
	ID       uuid.UUID      `gorm:"primarykey;type:uuid" json:"id"`
	TaskType types.TaskType `json:"task_type"`

	DisputeID      *uuid.UUID `gorm:"type:uuid" json:"dispute_id,omitempty"`
	BookingID      *uint      `json:"booking_id,omitempty"`
	NotificationID *uuid.UUID `gorm:"type:uuid" json:"notification_id,omitempty"`

	ScheduledFor time.Time        `json:"scheduled_for"`
	Status       types.TaskStatus `gorm:"default:'pending'" json:"status"`
	Attempts     int              `gorm:"default:0" json:"attempts"`
	LastAttempt  *time.Time       `json:"last_attempt,omitempty"`
	ErrorMessage string           `json:"error_message,omitempty"`

	types.Timestamps
}
