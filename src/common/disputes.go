package common

import (
	"abm/src/config"
	"abm/src/models"
	"abm/src/types"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DisputeService creates disputes against paid bookings and applies
// resolution verdicts. Resolution is idempotent: the scheduler may
// re-enter it after a partial failure, or race a human admin, and the
// second resolver must observe a closed dispute and back off.
type DisputeService struct {
	db       *gorm.DB
	cfg      config.SchedulerConfig
	bookings *BookingService
}

func NewDisputeService(db *gorm.DB, cfg config.SchedulerConfig, bookings *BookingService) *DisputeService {
	return &DisputeService{db: db, cfg: cfg, bookings: bookings}
}

// Open escalates a paid booking into a dispute. The booking enters
// the disputed status and an auto-resolution task is scheduled in
// case no admin decision arrives within the timeout.
func (s *DisputeService) Open(bookingID uint, reporterID uint, description string) (*models.Dispute, error) {
	var dispute models.Dispute
	var prev types.BookingStatus
	var booking models.Booking
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Booking{}).Where(&models.Booking{ID: bookingID}).First(&booking).Error; err != nil {
			return err
		}
		if booking.PaymentStatus != types.PAYMENT_PAID {
			return fmt.Errorf("%w: payment=%s", ErrNotDisputable, booking.PaymentStatus)
		}
		var openCount int64
		if err := tx.Model(&models.Dispute{}).
			Where("booking_id = ? AND status = ?", bookingID, types.DISPUTE_OPEN).
			Count(&openCount).Error; err != nil {
			return err
		}
		if openCount > 0 {
			return fmt.Errorf("%w: a dispute is already open", ErrNotDisputable)
		}
		prev = booking.Status
		res := tx.Model(&models.Booking{}).
			Where("id = ? AND status = ? AND payment_status = ?", bookingID, prev, types.PAYMENT_PAID).
			Update("status", types.BOOKING_DISPUTED)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConflict
		}
		dispute = models.Dispute{
			ID:               uuid.New(),
			BookingID:        bookingID,
			ReportedByID:     reporterID,
			IssueDescription: description,
			Status:           types.DISPUTE_OPEN,
		}
		if err := tx.Create(&dispute).Error; err != nil {
			return err
		}
		disputeID := dispute.ID
		task := models.AutomatedTask{
			ID:           uuid.New(),
			TaskType:     types.TASK_AUTO_RESOLVE_DISPUTE,
			DisputeID:    &disputeID,
			BookingID:    &bookingID,
			ScheduledFor: time.Now().Add(s.cfg.DisputeTimeout),
			Status:       types.TASK_PENDING,
		}
		if err := tx.Create(&task).Error; err != nil {
			return err
		}
		notification := models.Notification{
			ID:               uuid.New(),
			UserID:           booking.ArtistID,
			BookingID:        &bookingID,
			DisputeID:        &disputeID,
			NotificationType: "dispute_opened",
			Title:            "Booking disputed",
			Message:          fmt.Sprintf("A dispute was opened on booking %s", booking.Reference),
		}
		return tx.Create(&notification).Error
	})
	if err != nil {
		return nil, err
	}
	booking.Status = types.BOOKING_DISPUTED
	s.bookings.emit(&booking, prev, "organizer")
	log.Printf("Opened dispute %s on Booking [%d]\n", dispute.ID.String(), bookingID)
	return &dispute, nil
}

// Resolve applies an admin (or scheduler) verdict to an open dispute
// and drives the matching booking transition. Resolving a dispute
// that is no longer open is a no-op success.
func (s *DisputeService) Resolve(disputeID uuid.UUID, decision types.DisputeDecision, notes string, isAuto bool) error {
	var booking models.Booking
	var prev types.BookingStatus
	var moved bool
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var dispute models.Dispute
		if err := tx.Model(&models.Dispute{}).Where("id = ?", disputeID).First(&dispute).Error; err != nil {
			return err
		}
		if dispute.Status != types.DISPUTE_OPEN {
			// Already settled, likely by a human admin racing the
			// scheduler's auto-resolve task.
			return nil
		}
		if err := tx.Model(&models.Booking{}).Where(&models.Booking{ID: dispute.BookingID}).First(&booking).Error; err != nil {
			return err
		}
		prev = booking.Status

		var newStatus types.BookingStatus
		var newPayment types.PaymentStatus
		switch decision {
		case types.DECISION_FAVOR_ARTIST:
			newStatus = types.BOOKING_COMPLETED
			newPayment = types.PAYMENT_RELEASED
		case types.DECISION_FAVOR_ORGANIZER:
			newStatus = types.BOOKING_CANCELED
			newPayment = types.PAYMENT_REFUNDED
		case types.DECISION_PARTIAL_REFUND, types.DECISION_FULL_REFUND:
			newStatus = types.BOOKING_CANCELED
			newPayment = types.PAYMENT_REFUNDED
		case types.DECISION_ESCALATE, types.DECISION_REQUEST_INFO:
			// Informational holds. The dispute stays open and the
			// booking does not move.
			if notes != "" {
				return tx.Model(&models.Dispute{}).
					Where("id = ? AND status = ?", disputeID, types.DISPUTE_OPEN).
					Update("admin_notes", notes).Error
			}
			return nil
		default:
			return fmt.Errorf("%w: unknown decision %q", ErrInvalidState, decision)
		}

		if booking.Status == types.BOOKING_DISPUTED {
			updates := map[string]any{"status": newStatus}
			if booking.PaymentStatus == types.PAYMENT_PAID {
				updates["payment_status"] = newPayment
				if newStatus == types.BOOKING_COMPLETED {
					now := time.Now()
					updates["completion_date"] = &now
				}
			}
			res := tx.Model(&models.Booking{}).
				Where("id = ? AND status = ?", dispute.BookingID, types.BOOKING_DISPUTED).
				Updates(updates)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrConflict
			}
			moved = true
		}

		resolved := types.DISPUTE_RESOLVED
		if isAuto {
			resolved = types.DISPUTE_AUTO_RESOLVED
		}
		now := time.Now()
		res := tx.Model(&models.Dispute{}).
			Where("id = ? AND status = ?", disputeID, types.DISPUTE_OPEN).
			Updates(map[string]any{
				"status":              resolved,
				"admin_decision":      decision,
				"admin_notes":         notes,
				"admin_decision_date": &now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConflict
		}
		return tx.Model(&models.Booking{}).Where(&models.Booking{ID: dispute.BookingID}).First(&booking).Error
	})
	if err != nil {
		return err
	}
	if moved {
		initiator := "admin"
		if isAuto {
			initiator = "scheduler"
		}
		s.bookings.emit(&booking, prev, initiator)
	}
	return nil
}

// Get loads one dispute with its booking.
func (s *DisputeService) Get(disputeID uuid.UUID) (*models.Dispute, error) {
	var dispute models.Dispute
	err := s.db.Model(&models.Dispute{}).
		Where("id = ?", disputeID).
		Preload("Booking").
		First(&dispute).
		Error
	if err != nil {
		return nil, err
	}
	return &dispute, nil
}

// List returns disputes, newest first.
func (s *DisputeService) List() ([]models.Dispute, error) {
	var disputes []models.Dispute
	err := s.db.Model(&models.Dispute{}).
		Order("created_at desc").
		Limit(100).
		Find(&disputes).
		Error
	if err != nil {
		return nil, err
	}
	return disputes, nil
}
