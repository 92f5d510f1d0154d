package common

import (
	"abm/src/config"
	"abm/src/models"
	"abm/src/types"
	"fmt"
	"log"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	d, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Fatalf("An error '%s' was not expected when opening test database", err)
	}
	err = d.AutoMigrate(
		&models.User{},
		&models.Event{},
		&models.Booking{},
		&models.Dispute{},
		&models.AutomatedTask{},
		&models.Notification{},
		&models.Setting{},
		&models.TrailLog{},
	)
	if err != nil {
		log.Fatalf("error migration: %s", err.Error())
	}
	return d
}

func testSchedulerConfig() config.SchedulerConfig {
	return config.SchedulerConfig{
		PollInterval:   time.Minute,
		MaxAttempts:    3,
		BatchSize:      100,
		DisputeTimeout: 48 * time.Hour,
	}
}

func newTestServices(t *testing.T) (*gorm.DB, *BookingService, *DisputeService, *TaskProcessor) {
	t.Helper()
	d := newTestDB(t)
	bookings := NewBookingService(d, config.FeeConfig{Rate: 0.10}).WithPublisher(nil)
	disputes := NewDisputeService(d, testSchedulerConfig(), bookings)
	processor := NewTaskProcessor(d, testSchedulerConfig(), disputes)
	return d, bookings, disputes, processor
}

func seedBooking(t *testing.T, d *gorm.DB, status types.BookingStatus, payment types.PaymentStatus) *models.Booking {
	t.Helper()
	artist := models.User{Name: "Artist", Email: "artist@example.com", Role: "artist"}
	organizer := models.User{Name: "Organizer", Email: "organizer@example.com", Role: "organizer"}
	if err := d.Create(&artist).Error; err != nil {
		t.Fatalf("could not create artist: %s", err.Error())
	}
	if err := d.Create(&organizer).Error; err != nil {
		t.Fatalf("could not create organizer: %s", err.Error())
	}
	event := models.Event{Title: "Summer Gala", Location: "Main Hall", DateTime: time.Now().Add(72 * time.Hour), OrganizerID: organizer.ID}
	if err := d.Create(&event).Error; err != nil {
		t.Fatalf("could not create event: %s", err.Error())
	}
	booking := models.Booking{
		Reference:     fmt.Sprintf("summer-gala-%d", event.ID),
		ArtistID:      artist.ID,
		OrganizerID:   organizer.ID,
		EventID:       event.ID,
		Status:        status,
		PaymentStatus: payment,
		TotalAmount:   200,
	}
	if payment == types.PAYMENT_PAID {
		now := time.Now()
		booking.PlatformFee = 20
		booking.NetAmount = 180
		booking.PaymentDate = &now
	}
	if err := d.Create(&booking).Error; err != nil {
		t.Fatalf("could not create booking: %s", err.Error())
	}
	return &booking
}

func reloadBooking(t *testing.T, d *gorm.DB, id uint) *models.Booking {
	t.Helper()
	var booking models.Booking
	if err := d.Model(&models.Booking{}).Where("id = ?", id).First(&booking).Error; err != nil {
		t.Fatalf("could not reload booking %d: %s", id, err.Error())
	}
	return &booking
}
