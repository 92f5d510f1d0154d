package common

import (
	"abm/src/lib"
	"abm/src/models"
	"abm/src/types"
	"errors"
	"testing"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func makeDueTask(t *testing.T, d *gorm.DB, taskType types.TaskType, disputeID *uuid.UUID, bookingID *uint, notificationID *uuid.UUID) *models.AutomatedTask {
	t.Helper()
	task := models.AutomatedTask{
		ID:             uuid.New(),
		TaskType:       taskType,
		DisputeID:      disputeID,
		BookingID:      bookingID,
		NotificationID: notificationID,
		ScheduledFor:   time.Now().Add(-time.Second),
		Status:         types.TASK_PENDING,
	}
	if err := d.Create(&task).Error; err != nil {
		t.Fatalf("could not create task: %s", err.Error())
	}
	return &task
}

func TestStartRegistersPollingJob(t *testing.T) {
	_, _, _, processor := newTestServices(t)

	sched, err := gocron.NewScheduler()
	assert.Nil(t, err)
	lib.NewScheduler(sched)
	defer lib.NewScheduler(nil)

	err = processor.Start()
	assert.Nil(t, err)
	assert.GreaterOrEqual(t, len(sched.Jobs()), 1)

	assert.Nil(t, processor.Stop())
}

func TestTickAutoResolvesDueDispute(t *testing.T) {
	d, _, disputes, processor := newTestServices(t)
	booking := seedBooking(t, d, types.BOOKING_IN_PROGRESS, types.PAYMENT_PAID)
	dispute, err := disputes.Open(booking.ID, booking.OrganizerID, "no response")
	assert.Nil(t, err)

	// Pull the auto-resolve task forward so the next tick picks it up.
	err = d.Model(&models.AutomatedTask{}).
		Where("dispute_id = ?", dispute.ID).
		Update("scheduled_for", time.Now().Add(-time.Second)).Error
	assert.Nil(t, err)

	processor.RunTick()

	resolved, err := disputes.Get(dispute.ID)
	assert.Nil(t, err)
	assert.Equal(t, types.DISPUTE_AUTO_RESOLVED, resolved.Status)
	assert.Equal(t, types.DECISION_FAVOR_ORGANIZER, *resolved.AdminDecision)

	reloaded := reloadBooking(t, d, booking.ID)
	assert.Equal(t, types.BOOKING_CANCELED, reloaded.Status)
	assert.Equal(t, types.PAYMENT_REFUNDED, reloaded.PaymentStatus)

	var task models.AutomatedTask
	err = d.Model(&models.AutomatedTask{}).Where("dispute_id = ? AND task_type = ?", dispute.ID, types.TASK_AUTO_RESOLVE_DISPUTE).First(&task).Error
	assert.Nil(t, err)
	assert.Equal(t, types.TASK_COMPLETED, task.Status)
	assert.Equal(t, 1, task.Attempts)
	assert.NotNil(t, task.LastAttempt)

	// The organizer gets a notification record and a follow-up
	// delivery task.
	var notification models.Notification
	err = d.Model(&models.Notification{}).Where("dispute_id = ? AND user_id = ?", dispute.ID, booking.OrganizerID).First(&notification).Error
	assert.Nil(t, err)
	var sendTask models.AutomatedTask
	err = d.Model(&models.AutomatedTask{}).Where("notification_id = ?", notification.ID).First(&sendTask).Error
	assert.Nil(t, err)
	assert.Equal(t, types.TASK_SEND_NOTIFICATION, sendTask.TaskType)
}

func TestTickSkipsSupersededTask(t *testing.T) {
	d, _, disputes, processor := newTestServices(t)
	booking := seedBooking(t, d, types.BOOKING_IN_PROGRESS, types.PAYMENT_PAID)
	dispute, err := disputes.Open(booking.ID, booking.OrganizerID, "no response")
	assert.Nil(t, err)

	// A human admin settles the dispute before the task fires.
	err = disputes.Resolve(dispute.ID, types.DECISION_FAVOR_ARTIST, "delivered", false)
	assert.Nil(t, err)

	err = d.Model(&models.AutomatedTask{}).
		Where("dispute_id = ?", dispute.ID).
		Update("scheduled_for", time.Now().Add(-time.Second)).Error
	assert.Nil(t, err)

	processor.RunTick()

	var task models.AutomatedTask
	err = d.Model(&models.AutomatedTask{}).Where("dispute_id = ?", dispute.ID).First(&task).Error
	assert.Nil(t, err)
	assert.Equal(t, types.TASK_COMPLETED, task.Status)

	// The admin verdict stands.
	reloaded := reloadBooking(t, d, booking.ID)
	assert.Equal(t, types.BOOKING_COMPLETED, reloaded.Status)
	assert.Equal(t, types.PAYMENT_RELEASED, reloaded.PaymentStatus)
	resolved, err := disputes.Get(dispute.ID)
	assert.Nil(t, err)
	assert.Equal(t, types.DISPUTE_RESOLVED, resolved.Status)
}

func TestTickIgnoresFutureTasks(t *testing.T) {
	d, _, disputes, processor := newTestServices(t)
	booking := seedBooking(t, d, types.BOOKING_IN_PROGRESS, types.PAYMENT_PAID)
	dispute, err := disputes.Open(booking.ID, booking.OrganizerID, "no response")
	assert.Nil(t, err)

	processor.RunTick()

	var task models.AutomatedTask
	err = d.Model(&models.AutomatedTask{}).Where("dispute_id = ?", dispute.ID).First(&task).Error
	assert.Nil(t, err)
	assert.Equal(t, types.TASK_PENDING, task.Status)
	assert.Equal(t, 0, task.Attempts)

	resolved, err := disputes.Get(dispute.ID)
	assert.Nil(t, err)
	assert.Equal(t, types.DISPUTE_OPEN, resolved.Status)
}

func TestFailingHandlerRetriesThenFails(t *testing.T) {
	d, _, _, processor := newTestServices(t)
	booking := seedBooking(t, d, types.BOOKING_IN_PROGRESS, types.PAYMENT_PAID)

	processor.Register(types.TASK_PROCESS_REFUND, func(task *models.AutomatedTask) error {
		return errors.New("storage unavailable")
	})
	task := makeDueTask(t, d, types.TASK_PROCESS_REFUND, nil, &booking.ID, nil)

	for i := 1; i <= 3; i++ {
		processor.RunTick()
		var current models.AutomatedTask
		err := d.Model(&models.AutomatedTask{}).Where("id = ?", task.ID).First(&current).Error
		assert.Nil(t, err)
		assert.Equal(t, i, current.Attempts)
		assert.Equal(t, "storage unavailable", current.ErrorMessage)
		if i < 3 {
			assert.Equal(t, types.TASK_PENDING, current.Status)
		} else {
			assert.Equal(t, types.TASK_FAILED, current.Status)
		}
	}

	// A further tick never dispatches a task at the attempt cap.
	processor.RunTick()
	var final models.AutomatedTask
	err := d.Model(&models.AutomatedTask{}).Where("id = ?", task.ID).First(&final).Error
	assert.Nil(t, err)
	assert.Equal(t, 3, final.Attempts)
	assert.Equal(t, types.TASK_FAILED, final.Status)

	// Booking state is untouched by the failing handler.
	reloaded := reloadBooking(t, d, booking.ID)
	assert.Equal(t, types.BOOKING_IN_PROGRESS, reloaded.Status)
	assert.Equal(t, types.PAYMENT_PAID, reloaded.PaymentStatus)
}

func TestPanickingHandlerIsRecovered(t *testing.T) {
	d, _, _, processor := newTestServices(t)
	booking := seedBooking(t, d, types.BOOKING_IN_PROGRESS, types.PAYMENT_PAID)

	processor.Register(types.TASK_PROCESS_REFUND, func(task *models.AutomatedTask) error {
		panic("boom")
	})
	task := makeDueTask(t, d, types.TASK_PROCESS_REFUND, nil, &booking.ID, nil)

	processor.RunTick()

	var current models.AutomatedTask
	err := d.Model(&models.AutomatedTask{}).Where("id = ?", task.ID).First(&current).Error
	assert.Nil(t, err)
	assert.Equal(t, types.TASK_PENDING, current.Status)
	assert.Equal(t, 1, current.Attempts)
	assert.Contains(t, current.ErrorMessage, "handler panic")
}

func TestProcessRefund(t *testing.T) {
	d, _, _, processor := newTestServices(t)
	booking := seedBooking(t, d, types.BOOKING_CANCELED, types.PAYMENT_PAID)
	task := makeDueTask(t, d, types.TASK_PROCESS_REFUND, nil, &booking.ID, nil)

	processor.RunTick()

	reloaded := reloadBooking(t, d, booking.ID)
	assert.Equal(t, types.PAYMENT_REFUNDED, reloaded.PaymentStatus)

	var current models.AutomatedTask
	err := d.Model(&models.AutomatedTask{}).Where("id = ?", task.ID).First(&current).Error
	assert.Nil(t, err)
	assert.Equal(t, types.TASK_COMPLETED, current.Status)
}

func TestSendNotificationStampsSentAt(t *testing.T) {
	d, _, _, processor := newTestServices(t)
	booking := seedBooking(t, d, types.BOOKING_IN_PROGRESS, types.PAYMENT_PAID)

	notification := models.Notification{
		ID:               uuid.New(),
		UserID:           booking.OrganizerID,
		BookingID:        &booking.ID,
		NotificationType: "booking_update",
		Title:            "Update",
		Message:          "Your booking changed",
	}
	err := d.Create(&notification).Error
	assert.Nil(t, err)
	notificationID := notification.ID
	task := makeDueTask(t, d, types.TASK_SEND_NOTIFICATION, nil, nil, &notificationID)

	processor.RunTick()

	var sent models.Notification
	err = d.Model(&models.Notification{}).Where("id = ?", notification.ID).First(&sent).Error
	assert.Nil(t, err)
	assert.NotNil(t, sent.SentAt)

	var current models.AutomatedTask
	err = d.Model(&models.AutomatedTask{}).Where("id = ?", task.ID).First(&current).Error
	assert.Nil(t, err)
	assert.Equal(t, types.TASK_COMPLETED, current.Status)
}

func TestUnknownTaskTypeFailsSafely(t *testing.T) {
	d, _, _, processor := newTestServices(t)
	task := models.AutomatedTask{
		ID:           uuid.New(),
		TaskType:     types.TaskType("reconcile_ledger"),
		ScheduledFor: time.Now().Add(-time.Second),
		Status:       types.TASK_PENDING,
	}
	err := d.Create(&task).Error
	assert.Nil(t, err)

	processor.RunTick()

	var current models.AutomatedTask
	err = d.Model(&models.AutomatedTask{}).Where("id = ?", task.ID).First(&current).Error
	assert.Nil(t, err)
	assert.Equal(t, 1, current.Attempts)
	assert.Contains(t, current.ErrorMessage, "no handler registered")
}
