package config

import (
	"fmt"
	"time"

	"agenda-backend/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ConnectDB opens the connection pool. The returned handle is shared by
// every component and is safe for concurrent use.
func ConnectDB(cfg Config) (*gorm.DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DB_URL is required")
	}

	logLevel := logger.Warn
	if !cfg.IsProduction() {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger:  logger.Default.LogMode(logLevel),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	return db, nil
}

const appointmentOverlapConstraint = `
DO $$
BEGIN
	IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'appointments_no_overlap') THEN
		ALTER TABLE appointments ADD CONSTRAINT appointments_no_overlap
			EXCLUDE USING gist (
				company_id WITH =,
				service_id WITH =,
				tstzrange(starts_at, ends_at, '[)') WITH &&
			) WHERE (status IN ('PENDING', 'CONFIRMED'));
	END IF;
END
$$;`

// Migrate creates or updates the schema, including the exclusion
// constraint that keeps active appointments of a service from overlapping.
func Migrate(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS btree_gist`).Error; err != nil {
		return fmt.Errorf("enable btree_gist: %w", err)
	}

	err := db.AutoMigrate(
		&models.Company{},
		&models.Service{},
		&models.Professional{},
		&models.Customer{},
		&models.Appointment{},
		&models.CustomHoliday{},
		&models.HolidayBridge{},
		&models.DateBlock{},
		&models.DateUnblock{},
		&models.MessageLog{},
		&models.ReminderTemplate{},
		&models.Invoice{},
		&models.InvoiceItem{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	if err := db.Exec(appointmentOverlapConstraint).Error; err != nil {
		return fmt.Errorf("add overlap constraint: %w", err)
	}
	return nil
}
