package common

import (
	"abm/src/config"
	"abm/src/lib"
	"abm/src/models"
	"abm/src/types"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TaskHandler executes one unit of deferred work. A nil return marks
// the task completed; an error leaves it pending for the next tick
// until the attempt cap is reached.
type TaskHandler func(task *models.AutomatedTask) error

// TaskProcessor polls the automated_tasks table on a fixed period and
// dispatches due work. A task is claimed with a guarded update that
// bumps its attempt counter before the handler runs, so a crash mid
// handler can never redeliver past the cap, and two processors can
// never run the same task.
type TaskProcessor struct {
	db       *gorm.DB
	cfg      config.SchedulerConfig
	disputes *DisputeService
	handlers map[types.TaskType]TaskHandler
	jobID    *string
}

func NewTaskProcessor(db *gorm.DB, cfg config.SchedulerConfig, disputes *DisputeService) *TaskProcessor {
	p := &TaskProcessor{
		db:       db,
		cfg:      cfg,
		disputes: disputes,
		handlers: map[types.TaskType]TaskHandler{},
	}
	p.Register(types.TASK_AUTO_RESOLVE_DISPUTE, p.autoResolveDispute)
	p.Register(types.TASK_PROCESS_REFUND, p.processRefund)
	p.Register(types.TASK_SEND_NOTIFICATION, p.sendNotification)
	return p
}

func (p *TaskProcessor) Register(t types.TaskType, h TaskHandler) {
	p.handlers[t] = h
}

// Start registers the polling job on the shared scheduler and starts
// it. Ticks never overlap; a long tick reschedules the next one.
func (p *TaskProcessor) Start() error {
	id, err := lib.CreateCronJob(p.RunTick, p.cfg.PollInterval)
	if err != nil {
		return err
	}
	p.jobID = id
	// Catch-up tick so work that came due before boot is not delayed
	// a full poll interval.
	if _, err := lib.CreateOneTimeCronJob(
		gocron.OneTimeJob(gocron.OneTimeJobStartImmediately()),
		gocron.NewTask(p.RunTick),
	); err != nil {
		return err
	}
	sched, err := lib.GetScheduler()
	if err != nil {
		return err
	}
	sched.Start()
	log.Printf("Task processor started: job=%s interval=%s\n", *id, p.cfg.PollInterval)
	return nil
}

func (p *TaskProcessor) Stop() error {
	sched, err := lib.GetScheduler()
	if err != nil {
		return err
	}
	return sched.Shutdown()
}

// RunTick processes one polling cycle: every pending task that is due
// and still under the attempt cap, oldest schedule first. A failing
// task is recorded and skipped; it never stops the cycle.
func (p *TaskProcessor) RunTick() {
	var tasks []models.AutomatedTask
	err := p.db.Model(&models.AutomatedTask{}).
		Where("status = ? AND scheduled_for <= ? AND attempts < ?", types.TASK_PENDING, time.Now(), p.cfg.MaxAttempts).
		Order("scheduled_for asc").
		Limit(p.cfg.BatchSize).
		Find(&tasks).
		Error
	if err != nil {
		log.Printf("Error loading due tasks: %s\n", err.Error())
		return
	}
	for i := range tasks {
		p.processTask(&tasks[i])
	}
}

func (p *TaskProcessor) processTask(task *models.AutomatedTask) {
	now := time.Now()
	claim := p.db.Model(&models.AutomatedTask{}).
		Where("id = ? AND status = ? AND attempts < ?", task.ID, types.TASK_PENDING, p.cfg.MaxAttempts).
		Updates(map[string]any{
			"attempts":     gorm.Expr("attempts + ?", 1),
			"last_attempt": &now,
		})
	if claim.Error != nil {
		log.Printf("Error claiming task %s: %s\n", task.ID.String(), claim.Error.Error())
		return
	}
	if claim.RowsAffected == 0 {
		// Another processor got here first, or the task was closed
		// between the poll and the claim.
		return
	}
	var claimed models.AutomatedTask
	if err := p.db.Model(&models.AutomatedTask{}).Where("id = ?", task.ID).First(&claimed).Error; err != nil {
		log.Printf("Error reloading task %s: %s\n", task.ID.String(), err.Error())
		return
	}

	err := p.dispatch(&claimed)
	if err == nil {
		if uerr := p.db.Model(&models.AutomatedTask{}).
			Where("id = ?", task.ID).
			Update("status", types.TASK_COMPLETED).Error; uerr != nil {
			log.Printf("Error completing task %s: %s\n", task.ID.String(), uerr.Error())
		}
		return
	}

	log.Printf("Task %s attempt %d failed: %s\n", task.ID.String(), claimed.Attempts, err.Error())
	updates := map[string]any{"error_message": err.Error()}
	if claimed.Attempts >= p.cfg.MaxAttempts {
		// Terminal. Left for manual operator inspection.
		updates["status"] = types.TASK_FAILED
	}
	if uerr := p.db.Model(&models.AutomatedTask{}).
		Where("id = ?", task.ID).
		Updates(updates).Error; uerr != nil {
		log.Printf("Error recording task failure %s: %s\n", task.ID.String(), uerr.Error())
	}
}

func (p *TaskProcessor) dispatch(task *models.AutomatedTask) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	handler, ok := p.handlers[task.TaskType]
	if !ok {
		return fmt.Errorf("no handler registered for task type %q", task.TaskType)
	}
	return handler(task)
}

// autoResolveDispute closes a dispute that received no admin decision
// within the timeout. Unresolved disputes default in favor of the
// paying organizer. A dispute already settled by a human is a
// superseded no-op.
func (p *TaskProcessor) autoResolveDispute(task *models.AutomatedTask) error {
	if task.DisputeID == nil {
		return fmt.Errorf("task %s has no dispute reference", task.ID.String())
	}
	var dispute models.Dispute
	if err := p.db.Model(&models.Dispute{}).Where("id = ?", *task.DisputeID).First(&dispute).Error; err != nil {
		return err
	}
	if dispute.Status != types.DISPUTE_OPEN {
		log.Printf("Dispute %s already settled, skipping auto-resolve\n", dispute.ID.String())
		return nil
	}
	err := p.disputes.Resolve(dispute.ID, types.DECISION_FAVOR_ORGANIZER, "auto-resolved: no artist response within timeout", true)
	if err != nil {
		return err
	}

	var booking models.Booking
	if err := p.db.Model(&models.Booking{}).Where(&models.Booking{ID: dispute.BookingID}).First(&booking).Error; err != nil {
		return err
	}
	disputeID := dispute.ID
	notification := models.Notification{
		ID:               uuid.New(),
		UserID:           booking.OrganizerID,
		BookingID:        &booking.ID,
		DisputeID:        &disputeID,
		NotificationType: "dispute_auto_resolved",
		Title:            "Dispute resolved",
		Message:          fmt.Sprintf("Your dispute on booking %s was resolved in your favor and the payment refunded", booking.Reference),
	}
	if err := p.db.Create(&notification).Error; err != nil {
		return err
	}
	notificationID := notification.ID
	followUp := models.AutomatedTask{
		ID:             uuid.New(),
		TaskType:       types.TASK_SEND_NOTIFICATION,
		NotificationID: &notificationID,
		BookingID:      &booking.ID,
		ScheduledFor:   time.Now(),
		Status:         types.TASK_PENDING,
	}
	return p.db.Create(&followUp).Error
}

// processRefund flips the payment status to refunded. Fund movement
// is simulated; there is no external gateway call.
func (p *TaskProcessor) processRefund(task *models.AutomatedTask) error {
	if task.BookingID == nil {
		return fmt.Errorf("task %s has no booking reference", task.ID.String())
	}
	return p.db.Model(&models.Booking{}).
		Where("id = ?", *task.BookingID).
		Update("payment_status", types.PAYMENT_REFUNDED).
		Error
}

// sendNotification stamps the delivery time on a pre-existing
// notification record and, when SMTP is configured, mails a copy.
func (p *TaskProcessor) sendNotification(task *models.AutomatedTask) error {
	if task.NotificationID == nil {
		return fmt.Errorf("task %s has no notification reference", task.ID.String())
	}
	var notification models.Notification
	if err := p.db.Model(&models.Notification{}).Where("id = ?", *task.NotificationID).First(&notification).Error; err != nil {
		return err
	}
	if notification.SentAt != nil {
		return nil
	}
	now := time.Now()
	if err := p.db.Model(&models.Notification{}).
		Where("id = ?", notification.ID).
		Update("sent_at", &now).Error; err != nil {
		return err
	}
	if os.Getenv("SMTP_HOST") != "" {
		var user models.User
		if err := p.db.Model(&models.User{}).Where(&models.User{ID: notification.UserID}).First(&user).Error; err == nil && user.Email != "" {
			if err := lib.SendMail(&lib.SendMailInput{
				From:     os.Getenv("MAIL_FROM"),
				FromName: "Bookings",
				To:       []string{user.Email},
				Subject:  notification.Title,
				Body:     notification.Message,
			}); err != nil {
				log.Printf("Error mailing notification %s: %s\n", notification.ID.String(), err.Error())
			}
		}
	}
	return nil
}
