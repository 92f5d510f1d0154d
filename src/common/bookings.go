package common

import (
	"abm/src/config"
	"abm/src/lib"
	"abm/src/models"
	"abm/src/types"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// bookingTransitions enumerates every legal status move once. The
// disputed row is only reachable through the dispute resolver; the
// admin force override bypasses this table entirely.
var bookingTransitions = map[types.BookingStatus][]types.BookingStatus{
	types.BOOKING_PENDING:     {types.BOOKING_CONFIRMED, types.BOOKING_REJECTED, types.BOOKING_CANCELED},
	types.BOOKING_CONFIRMED:   {types.BOOKING_IN_PROGRESS, types.BOOKING_CANCELED, types.BOOKING_DISPUTED},
	types.BOOKING_IN_PROGRESS: {types.BOOKING_COMPLETED, types.BOOKING_DISPUTED, types.BOOKING_CANCELED},
	types.BOOKING_DISPUTED:    {types.BOOKING_COMPLETED, types.BOOKING_CANCELED, types.BOOKING_REFUNDED},
	types.BOOKING_COMPLETED:   {},
	types.BOOKING_CANCELED:    {},
	types.BOOKING_REJECTED:    {},
	types.BOOKING_REFUNDED:    {},
}

// CanTransition reports whether the status move is listed in the
// transition table.
func CanTransition(from, to types.BookingStatus) bool {
	for _, next := range bookingTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// EventPublisher pushes a status-change event to downstream consumers.
type EventPublisher func(event types.StatusChangeEvent)

// BookingService owns the authoritative status and payment-status
// fields of a Booking and validates every transition against the
// table above. All writes are guarded updates on the expected prior
// status so a concurrent writer cannot apply a lost update.
type BookingService struct {
	db      *gorm.DB
	rate    func() float64
	publish EventPublisher
}

func NewBookingService(db *gorm.DB, fee config.FeeConfig) *BookingService {
	s := &BookingService{db: db, publish: publishStatusEvent}
	s.rate = func() float64 { return GetFeeRate(db, fee.Rate) }
	return s
}

// WithPublisher replaces the status event publisher. Used by tests and
// deployments without a broker.
func (s *BookingService) WithPublisher(p EventPublisher) *BookingService {
	s.publish = p
	return s
}

func publishStatusEvent(event types.StatusChangeEvent) {
	if err := lib.KafkaProduceMessage(lib.BookingEventsTopic, &event); err != nil {
		log.Printf("Error publishing status event for Booking [%d]: %s\n", event.BookingID, err.Error())
	}
}

func (s *BookingService) emit(booking *models.Booking, prev types.BookingStatus, initiator string) {
	if s.publish == nil {
		return
	}
	s.publish(types.StatusChangeEvent{
		BookingID:     booking.ID,
		Status:        booking.Status,
		PaymentStatus: booking.PaymentStatus,
		PrevStatus:    prev,
		Initiator:     initiator,
		OccurredAt:    time.Now(),
	})
}

// Create opens a new engagement between an artist and an organizer.
// New bookings always start as pending/pending.
func (s *BookingService) Create(organizerID uint, body *types.CreateBookingRequestBody) (*models.Booking, error) {
	if body.TotalAmount <= 0 {
		return nil, fmt.Errorf("%w: total amount must be positive", ErrInvalidState)
	}
	var booking models.Booking
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var event models.Event
		if err := tx.Model(&models.Event{}).Where(&models.Event{ID: body.EventID}).First(&event).Error; err != nil {
			return err
		}
		booking = models.Booking{
			ArtistID:      body.ArtistID,
			OrganizerID:   organizerID,
			EventID:       body.EventID,
			Status:        types.BOOKING_PENDING,
			PaymentStatus: types.PAYMENT_PENDING,
			TotalAmount:   body.TotalAmount,
			Notes:         body.Notes,
		}
		if err := tx.Create(&booking).Error; err != nil {
			return err
		}
		reference := fmt.Sprintf("%s-%d", slug.Make(event.Title), booking.ID)
		if err := tx.Model(&models.Booking{}).Where("id = ?", booking.ID).Update("reference", reference).Error; err != nil {
			return err
		}
		booking.Reference = reference
		return nil
	})
	if err != nil {
		return nil, err
	}
	notification := models.Notification{
		ID:               uuid.New(),
		UserID:           booking.ArtistID,
		BookingID:        &booking.ID,
		NotificationType: "booking_request",
		Title:            "New booking request",
		Message:          fmt.Sprintf("You have a new booking request (%s)", booking.Reference),
	}
	if err := s.db.Create(&notification).Error; err != nil {
		log.Printf("Error creating notification for Booking [%d]: %s\n", booking.ID, err.Error())
	}
	return &booking, nil
}

// Respond records the artist's answer to a pending booking request.
func (s *BookingService) Respond(bookingID uint, action types.RespondAction) (*models.Booking, error) {
	var booking models.Booking
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Booking{}).Where(&models.Booking{ID: bookingID}).First(&booking).Error; err != nil {
			return err
		}
		if booking.Status != types.BOOKING_PENDING {
			return fmt.Errorf("%w: cannot respond while %s", ErrInvalidState, booking.Status)
		}
		now := time.Now()
		updates := map[string]any{}
		switch action {
		case types.RESPOND_ACCEPT:
			updates["status"] = types.BOOKING_CONFIRMED
			updates["confirmed_at"] = &now
		case types.RESPOND_DECLINE:
			updates["status"] = types.BOOKING_REJECTED
		default:
			return fmt.Errorf("%w: unknown action %q", ErrInvalidState, action)
		}
		res := tx.Model(&models.Booking{}).
			Where("id = ? AND status = ?", bookingID, types.BOOKING_PENDING).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConflict
		}
		return tx.Model(&models.Booking{}).Where(&models.Booking{ID: bookingID}).First(&booking).Error
	})
	if err != nil {
		return nil, err
	}
	s.emit(&booking, types.BOOKING_PENDING, "artist")
	return &booking, nil
}

// Pay places the gross amount into escrow and derives the ledger
// split. Fees are never supplied by a caller; the rate is read per
// payment, so an operator override takes effect without a restart.
func (s *BookingService) Pay(bookingID uint) (*models.Booking, error) {
	var booking models.Booking
	var prev types.BookingStatus
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Booking{}).Where(&models.Booking{ID: bookingID}).First(&booking).Error; err != nil {
			return err
		}
		if booking.Status != types.BOOKING_CONFIRMED || booking.PaymentStatus != types.PAYMENT_PENDING {
			return fmt.Errorf("%w: status=%s payment=%s", ErrNotPayable, booking.Status, booking.PaymentStatus)
		}
		if booking.TotalAmount <= 0 {
			return fmt.Errorf("%w: zero amount", ErrNotPayable)
		}
		prev = booking.Status
		fee, net := ComputeLedger(booking.TotalAmount, s.rate())
		now := time.Now()
		res := tx.Model(&models.Booking{}).
			Where("id = ? AND status = ? AND payment_status = ?", bookingID, types.BOOKING_CONFIRMED, types.PAYMENT_PENDING).
			Updates(map[string]any{
				"payment_status": types.PAYMENT_PAID,
				"platform_fee":   fee,
				"net_amount":     net,
				"payment_date":   &now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConflict
		}
		return tx.Model(&models.Booking{}).Where(&models.Booking{ID: bookingID}).First(&booking).Error
	})
	if err != nil {
		return nil, err
	}
	s.emit(&booking, prev, "organizer")
	return &booking, nil
}

// Start moves a confirmed booking into the engagement window.
func (s *BookingService) Start(bookingID uint) (*models.Booking, error) {
	var booking models.Booking
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Booking{}).Where(&models.Booking{ID: bookingID}).First(&booking).Error; err != nil {
			return err
		}
		if booking.Status != types.BOOKING_CONFIRMED {
			return fmt.Errorf("%w: cannot start while %s", ErrInvalidState, booking.Status)
		}
		res := tx.Model(&models.Booking{}).
			Where("id = ? AND status = ?", bookingID, types.BOOKING_CONFIRMED).
			Update("status", types.BOOKING_IN_PROGRESS)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConflict
		}
		return tx.Model(&models.Booking{}).Where(&models.Booking{ID: bookingID}).First(&booking).Error
	})
	if err != nil {
		return nil, err
	}
	s.emit(&booking, types.BOOKING_CONFIRMED, "organizer")
	return &booking, nil
}

// MarkCompleted closes out the engagement and releases the escrowed
// funds to the artist. Disputed bookings complete through the dispute
// resolver, never here.
func (s *BookingService) MarkCompleted(bookingID uint) (*models.Booking, error) {
	var booking models.Booking
	var prev types.BookingStatus
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Booking{}).Where(&models.Booking{ID: bookingID}).First(&booking).Error; err != nil {
			return err
		}
		if booking.PaymentStatus != types.PAYMENT_PAID {
			return fmt.Errorf("%w: payment=%s", ErrPaymentRequired, booking.PaymentStatus)
		}
		if booking.Status == types.BOOKING_DISPUTED || !CanTransition(booking.Status, types.BOOKING_COMPLETED) {
			return fmt.Errorf("%w: cannot complete while %s", ErrInvalidState, booking.Status)
		}
		prev = booking.Status
		now := time.Now()
		res := tx.Model(&models.Booking{}).
			Where("id = ? AND status = ? AND payment_status = ?", bookingID, prev, types.PAYMENT_PAID).
			Updates(map[string]any{
				"status":          types.BOOKING_COMPLETED,
				"payment_status":  types.PAYMENT_RELEASED,
				"completion_date": &now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConflict
		}
		return tx.Model(&models.Booking{}).Where(&models.Booking{ID: bookingID}).First(&booking).Error
	})
	if err != nil {
		return nil, err
	}
	s.emit(&booking, prev, "organizer")
	return &booking, nil
}

// Cancel aborts a booking that has not completed. Escrowed funds flow
// back to the organizer. Disputed bookings close through the dispute
// resolver, never here.
func (s *BookingService) Cancel(bookingID uint, reason string) (*models.Booking, error) {
	var booking models.Booking
	var prev types.BookingStatus
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Booking{}).Where(&models.Booking{ID: bookingID}).First(&booking).Error; err != nil {
			return err
		}
		if booking.Status == types.BOOKING_DISPUTED || !CanTransition(booking.Status, types.BOOKING_CANCELED) {
			return fmt.Errorf("%w: cannot cancel while %s", ErrInvalidState, booking.Status)
		}
		prev = booking.Status
		updates := map[string]any{
			"status":        types.BOOKING_CANCELED,
			"cancel_reason": reason,
		}
		if booking.PaymentStatus == types.PAYMENT_PAID {
			updates["payment_status"] = types.PAYMENT_REFUNDED
		}
		res := tx.Model(&models.Booking{}).
			Where("id = ? AND status = ?", bookingID, prev).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConflict
		}
		return tx.Model(&models.Booking{}).Where(&models.Booking{ID: bookingID}).First(&booking).Error
	})
	if err != nil {
		return nil, err
	}
	s.emit(&booking, prev, "organizer")
	return &booking, nil
}

// ForceUpdate is the admin escape hatch. It bypasses the transition
// table entirely, so every call is written to the audit trail with
// before and after snapshots.
func (s *BookingService) ForceUpdate(bookingID uint, initiator string, body *types.ForceUpdateRequestBody) (*models.Booking, error) {
	var booking models.Booking
	var prev types.BookingStatus
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Booking{}).Where(&models.Booking{ID: bookingID}).First(&booking).Error; err != nil {
			return err
		}
		prev = booking.Status
		trail := models.TrailLog{
			ID:        uuid.New(),
			Type:      "booking_force_update",
			Initiator: initiator,
			BookingID: booking.ID,
			Reason:    body.Reason,
			Before: types.JSONB{
				"status":         string(booking.Status),
				"payment_status": string(booking.PaymentStatus),
			},
			After: types.JSONB{
				"status":         string(body.Status),
				"payment_status": string(body.PaymentStatus),
			},
		}
		if err := tx.Create(&trail).Error; err != nil {
			return err
		}
		res := tx.Model(&models.Booking{}).
			Where("id = ?", bookingID).
			Updates(map[string]any{
				"status":         body.Status,
				"payment_status": body.PaymentStatus,
			})
		if res.Error != nil {
			return res.Error
		}
		return tx.Model(&models.Booking{}).Where(&models.Booking{ID: bookingID}).First(&booking).Error
	})
	if err != nil {
		return nil, err
	}
	log.Printf("Force override on Booking [%d] by %s: %s -> %s\n", bookingID, initiator, prev, booking.Status)
	s.emit(&booking, prev, initiator)
	return &booking, nil
}

// Delete removes a booking record. Only cancelled and rejected
// bookings may be deleted.
func (s *BookingService) Delete(bookingID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var booking models.Booking
		if err := tx.Model(&models.Booking{}).Where(&models.Booking{ID: bookingID}).First(&booking).Error; err != nil {
			return err
		}
		if booking.Status != types.BOOKING_CANCELED && booking.Status != types.BOOKING_REJECTED {
			return fmt.Errorf("%w: cannot delete while %s", ErrInvalidState, booking.Status)
		}
		return tx.Unscoped().Delete(&models.Booking{}, bookingID).Error
	})
}

// Get loads one booking with its relations.
func (s *BookingService) Get(bookingID uint) (*models.Booking, error) {
	var booking models.Booking
	err := s.db.Model(&models.Booking{}).
		Where(&models.Booking{ID: bookingID}).
		Preload("Event").
		Preload("Artist").
		Preload("Organizer").
		First(&booking).
		Error
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// List returns bookings visible to the user, newest first.
func (s *BookingService) List(userID uint, filters *types.BookingQueryFilters) ([]models.Booking, error) {
	var bookings []models.Booking
	q := s.db.Model(&models.Booking{}).
		Where("artist_id = ? OR organizer_id = ?", userID, userID)
	if filters != nil {
		if filters.Status != "" {
			q = q.Where("status = ?", filters.Status)
		}
		if filters.PaymentStatus != "" {
			q = q.Where("payment_status = ?", filters.PaymentStatus)
		}
		if filters.CreatedBefore != "" {
			before, err := time.Parse(config.TIME_PARSE_FORMAT, filters.CreatedBefore)
			if err != nil {
				return nil, fmt.Errorf("%w: created_before %q, want format %s", ErrBadFilter, filters.CreatedBefore, config.TIME_PARSE_FORMAT)
			}
			q = q.Where("created_at < ?", before)
		}
		if filters.CreatedAfter != "" {
			after, err := time.Parse(config.TIME_PARSE_FORMAT, filters.CreatedAfter)
			if err != nil {
				return nil, fmt.Errorf("%w: created_after %q, want format %s", ErrBadFilter, filters.CreatedAfter, config.TIME_PARSE_FORMAT)
			}
			q = q.Where("created_at > ?", after)
		}
	}
	err := q.Order("created_at desc").Limit(100).Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

// IsNotFound reports whether the error is a missing-record lookup.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
