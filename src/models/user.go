package models

import (
	"abm/src/types"
	"time"
)

type User struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	Name          string    `json:"name,omitempty"`
	Email         string    `json:"email,omitempty"`
	Role          string    `json:"role,omitempty"`
	UID           string    `json:"uid,omitempty"`
	EmailVerified bool      `json:"email_verified,omitempty"`
	VerifiedAt    time.Time `json:"verified_at,omitempty"`

	ArtistBookings    []Booking `gorm:"foreignKey:artist_id" json:"artist_bookings,omitempty"`
	OrganizerBookings []Booking `gorm:"foreignKey:organizer_id" json:"organizer_bookings,omitempty"`

	types.Timestamps
}
