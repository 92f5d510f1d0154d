package models

import (
	"abm/src/types"
	"time"
)

type Event struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	Title       string    `json:"title,omitempty"`
	Location    string    `json:"location,omitempty"`
	DateTime    time.Time `json:"date_time,omitempty"`
	OrganizerID uint      `json:"organizer,omitempty"`

	Organizer User      `gorm:"foreignKey:organizer_id" json:"-"`
	Bookings  []Booking `gorm:"foreignKey:event_id" json:"bookings,omitempty"`

	types.Timestamps
}
