package models

import (
	"abm/src/types"
	"time"

	"github.com/google/uuid"
)

type Dispute struct {
	ID               uuid.UUID           `gorm:"primarykey;type:uuid" json:"id"`
	BookingID        uint                `json:"booking_id"`
	ReportedByID     uint                `json:"reported_by_id"`
	IssueDescription string              `json:"issue_description"`
	Status           types.DisputeStatus `gorm:"default:'open'" json:"status"`

	AdminDecision     *types.DisputeDecision `json:"admin_decision,omitempty"`
	AdminNotes        *string                `json:"admin_notes,omitempty"`
	AdminDecisionDate *time.Time             `json:"admin_decision_date,omitempty"`

	Booking    Booking `gorm:"foreignKey:booking_id" json:"booking,omitempty"`
	ReportedBy User    `gorm:"foreignKey:reported_by_id" json:"-"`

	types.Timestamps
}
