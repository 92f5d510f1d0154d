package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

type Timestamps struct {
	CreatedAt time.Time      `gorm:"autoCreateTime:nano" json:"created_at,omitempty"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime:nano" json:"updated_at,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty,omitnil"`
}

type JSONB map[string]any

func (a JSONB) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *JSONB) Scan(value any) error {
	b, ok := value.([]byte)
	if !ok {
		s, ok := value.(string)
		if !ok {
			return errors.New("type assertion to []byte failed")
		}
		b = []byte(s)
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	return nil
}

type BookingStatus string

const (
	BOOKING_PENDING     BookingStatus = "pending"
	BOOKING_CONFIRMED   BookingStatus = "confirmed"
	BOOKING_REJECTED    BookingStatus = "rejected"
	BOOKING_CANCELED    BookingStatus = "cancelled"
	BOOKING_IN_PROGRESS BookingStatus = "in_progress"
	BOOKING_COMPLETED   BookingStatus = "completed"
	BOOKING_DISPUTED    BookingStatus = "disputed"
	BOOKING_REFUNDED    BookingStatus = "refunded"
)

// Terminal reports whether no further status transition is permitted.
func (s BookingStatus) Terminal() bool {
	switch s {
	case BOOKING_CANCELED, BOOKING_REJECTED, BOOKING_REFUNDED:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PAYMENT_PENDING  PaymentStatus = "pending"
	PAYMENT_PAID     PaymentStatus = "paid"
	PAYMENT_RELEASED PaymentStatus = "released"
	PAYMENT_REFUNDED PaymentStatus = "refunded"
)

type DisputeStatus string

const (
	DISPUTE_OPEN          DisputeStatus = "open"
	DISPUTE_RESOLVED      DisputeStatus = "resolved"
	DISPUTE_AUTO_RESOLVED DisputeStatus = "auto_resolved"
)

type DisputeDecision string

const (
	DECISION_FAVOR_ARTIST    DisputeDecision = "favor_artist"
	DECISION_FAVOR_ORGANIZER DisputeDecision = "favor_organizer"
	DECISION_PARTIAL_REFUND  DisputeDecision = "partial_refund"
	DECISION_FULL_REFUND     DisputeDecision = "full_refund"
	DECISION_ESCALATE        DisputeDecision = "escalate"
	DECISION_REQUEST_INFO    DisputeDecision = "request_info"
)

type TaskType string

const (
	TASK_AUTO_RESOLVE_DISPUTE TaskType = "auto_resolve_dispute"
	TASK_SEND_NOTIFICATION    TaskType = "send_notification"
	TASK_PROCESS_REFUND       TaskType = "process_refund"
)

type TaskStatus string

const (
	TASK_PENDING   TaskStatus = "pending"
	TASK_COMPLETED TaskStatus = "completed"
	TASK_FAILED    TaskStatus = "failed"
)

type RespondAction string

const (
	RESPOND_ACCEPT  RespondAction = "accept"
	RESPOND_DECLINE RespondAction = "decline"
)

type SimpleRequestParams struct {
	ID uint `uri:"id" binding:"required"`
}

type UUIDRequestParams struct {
	ID string `uri:"id" binding:"required,uuid"`
}

type CreateBookingRequestBody struct {
	ArtistID    uint    `json:"artist" binding:"required"`
	EventID     uint    `json:"event" binding:"required"`
	TotalAmount float64 `json:"total_amount" binding:"required,gt=0"`
	Notes       string  `json:"notes,omitempty"`
}

type RespondBookingRequestBody struct {
	Action RespondAction `json:"action" binding:"required,oneof=accept decline"`
}

type CancelBookingRequestBody struct {
	Reason string `json:"reason,omitempty"`
}

type OpenDisputeRequestBody struct {
	Description string `json:"description" binding:"required"`
}

type ResolveDisputeRequestBody struct {
	Decision DisputeDecision `json:"decision" binding:"required,oneof=favor_artist favor_organizer partial_refund full_refund escalate request_info"`
	Notes    string          `json:"notes,omitempty"`
}

type ForceUpdateRequestBody struct {
	Status        BookingStatus `json:"status" binding:"required,oneof=pending confirmed rejected cancelled in_progress completed disputed refunded"`
	PaymentStatus PaymentStatus `json:"payment_status" binding:"required,oneof=pending paid released refunded"`
	Reason        string        `json:"reason,omitempty"`
}

type BookingQueryFilters struct {
	Status        string `form:"status,omitempty"`
	PaymentStatus string `form:"payment_status,omitempty"`
	CreatedBefore string `form:"created_before,omitempty"`
	CreatedAfter  string `form:"created_after,omitempty"`
}

type TaskQueryFilters struct {
	Status string `form:"status,omitempty" binding:"omitempty,oneof=pending completed failed"`
	Type   string `form:"type,omitempty" binding:"omitempty,oneof=auto_resolve_dispute send_notification process_refund"`
}

type StatusChangeEvent struct {
	BookingID     uint          `json:"booking_id"`
	Status        BookingStatus `json:"status"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	PrevStatus    BookingStatus `json:"prev_status,omitempty"`
	Initiator     string        `json:"initiator,omitempty"`
	OccurredAt    time.Time     `json:"occurred_at"`
}
