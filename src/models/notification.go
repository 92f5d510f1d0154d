package models

import (
	"abm/src/types"
	"time"

	"github.com/google/uuid"
)

type Notification struct {
	ID               uuid.UUID  `gorm:"primarykey;type:uuid" json:"id"`
	UserID           uint       `json:"user_id"`
	BookingID        *uint      `json:"booking_id,omitempty"`
	DisputeID        *uuid.UUID `gorm:"type:uuid" json:"dispute_id,omitempty"`
	NotificationType string     `json:"notification_type"`
	Title            string     `json:"title"`
	Message          string     `json:"message"`
	SentAt           *time.Time `json:"sent_at,omitempty"`

	User User `gorm:"foreignKey:user_id" json:"-"`

	types.Timestamps
}
