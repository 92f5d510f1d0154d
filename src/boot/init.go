package boot

import (
	"abm/src/common"
	"abm/src/config"
	"abm/src/db"
	"abm/src/lib"
	"abm/src/models"
	"log"

	"gorm.io/gorm"
)

func InitDb() *gorm.DB {
	db := db.GetDb()

	err := db.AutoMigrate(
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

	return db
}

// InitServices wires the domain services from the shared database
// handle and configuration.
func InitServices(d *gorm.DB) (*common.BookingService, *common.DisputeService, *common.TaskProcessor) {
	schedCfg := config.GetSchedulerConfig()
	feeCfg := config.GetFeeConfig()
	bookings := common.NewBookingService(d, feeCfg)
	disputes := common.NewDisputeService(d, schedCfg, bookings)
	processor := common.NewTaskProcessor(d, schedCfg, disputes)
	return bookings, disputes, processor
}

func InitBroker() {
	go func() {
		if _, err := lib.KafkaCreateTopics(lib.BookingEventsTopic); err != nil {
			log.Printf("Error ensuring kafka topics: %s\n", err.Error())
		}
	}()
}

func InitScheduler(processor *common.TaskProcessor) {
	if err := processor.Start(); err != nil {
		log.Printf("Error starting task processor: %s\n", err.Error())
	}
}

func StopScheduler(processor *common.TaskProcessor) {
	if err := processor.Stop(); err != nil {
		log.Println("An error has occurred while stopping the task processor. Check logs for info")
	}
}
