package models

import (
	"abm/src/types"

	"github.com/google/uuid"
)

// TrailLog records admin force overrides with before/after snapshots,
// since those writes bypass the normal transition checks.
type TrailLog struct {
	ID        uuid.UUID   `gorm:"primarykey;type:uuid" json:"id"`
	Type      string      `json:"type"`
	Initiator string      `json:"initiator"`
	BookingID uint        `json:"booking_id"`
	Before    types.JSONB `gorm:"type:jsonb" json:"before"`
	After     types.JSONB `gorm:"type:jsonb" json:"after"`
	Reason    string      `json:"reason,omitempty"`

	types.Timestamps
}
