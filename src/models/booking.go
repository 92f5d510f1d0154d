package models

import (
	"abm/src/types"
	"time"
)

type Booking struct {
	ID            uint                `gorm:"primarykey" json:"id"`
	Reference     string              `json:"reference,omitempty"`
	ArtistID      uint                `json:"artist_id,omitempty"`
	OrganizerID   uint                `json:"organizer_id,omitempty"`
	EventID       uint                `json:"event_id,omitempty"`
	Status        types.BookingStatus `gorm:"default:'pending'" json:"status,omitempty"`
	PaymentStatus types.PaymentStatus `gorm:"default:'pending'" json:"payment_status,omitempty"`
	TotalAmount   float64             `json:"total_amount,omitempty"`
	PlatformFee   float64             `json:"platform_fee,omitempty"`
	NetAmount     float64             `json:"net_amount,omitempty"`
	Notes         string              `json:"notes,omitempty"`
	CancelReason  string              `json:"cancel_reason,omitempty"`

	ConfirmedAt    *time.Time `json:"confirmed_at,omitempty"`
	PaymentDate    *time.Time `json:"payment_date,omitempty"`
	CompletionDate *time.Time `json:"completion_date,omitempty"`

	Artist    *User     `gorm:"foreignKey:artist_id" json:"artist,omitempty"`
	Organizer *User     `gorm:"foreignKey:organizer_id" json:"organizer,omitempty"`
	Event     *Event    `gorm:"foreignKey:event_id" json:"event,omitempty"`
	Disputes  []Dispute `gorm:"foreignKey:booking_id" json:"disputes,omitempty"`

	types.Timestamps
}
