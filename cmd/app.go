package cmd

import (
	"fmt"
	"time"

	"agenda-backend/config"
	"agenda-backend/repository"
	"agenda-backend/services"
	"agenda-backend/services/availability"
	"agenda-backend/services/booking"
	"agenda-backend/services/chatflow"
	"agenda-backend/services/messaging"
	"agenda-backend/utils"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// app is the object graph shared by the commands. Everything hangs off
// the one store built from the connection pool.
type app struct {
	cfg       config.Config
	logger    *zap.Logger
	db        *gorm.DB
	store     *repository.Store
	calendar  *availability.Calculator
	manager   *booking.Manager
	sender    messaging.Sender
	engine    *chatflow.Engine
	reminders *services.ReminderService
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	utils.InitializeLogger(cfg.IsProduction())
	logger := utils.GetLogger()

	db, err := config.ConnectDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	a := &app{cfg: cfg, logger: logger, db: db, store: repository.NewStore(db)}
	a.calendar = availability.NewCalculator(a.store, time.Now)
	a.manager = booking.NewManager(a.store, time.Now, logger.Named("booking"))

	if cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" {
		a.sender = messaging.NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioWhatsAppNumber, a.store, logger.Named("twilio"))
	} else {
		logger.Warn("Twilio credentials missing, outgoing messages are only logged")
		a.sender = messaging.NewDryRunSender(a.store, logger.Named("twilio"))
	}

	a.engine = chatflow.NewEngine(a.store, a.calendar, a.manager, chatflow.Options{
		DaysAhead: cfg.BookingDaysAhead,
		Logger:    logger.Named("chatflow"),
	})
	a.reminders = services.NewReminderService(a.store, a.sender, a.manager, time.Now, logger.Named("reminders"))
	return a, nil
}

func (a *app) close() {
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = a.logger.Sync()
}
