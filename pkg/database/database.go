package database

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/asclep-health/asclep/internal/config"
	"github.com/asclep-health/asclep/internal/domain"
	"github.com/asclep-health/asclep/internal/domain/appointment"
	"github.com/asclep-health/asclep/internal/domain/doselog"
	"github.com/asclep-health/asclep/internal/domain/medication"
	"github.com/asclep-health/asclep/internal/domain/prescription"
)

func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
		PrepareStmt:                              true,
		DisableForeignKeyConstraintWhenMigrating: false,
		DisableAutomaticPing:                     false,
	}

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DSN(),
		PreferSimpleProtocol: false,
	}), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	// Configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return db, nil
}

func Migrate(db *gorm.DB, log *zap.Logger) error {
	log.Info("running database migrations")
	start := time.Now()

	schemas := []string{"meds", "auth", "activity"} // logical namespace
	for _, schema := range schemas {
		if err := db.Exec(fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema)).Error; err != nil {
			return fmt.Errorf("creating schema %s: %w", schema, err)
		}
	}

	models := []any{
		&domain.User{},
		&domain.Activity{},
		&medication.Medication{},
		&doselog.Entry{},
		&prescription.Prescription{},
		&appointment.Appointment{},
	}

	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("auto-migrating models: %w", err)
	}

	if err := createIndexes(db); err != nil {
		return fmt.Errorf("creating indexes: %w", err)
	}

	log.Info("migrations completed", zap.Duration("duration", time.Since(start)))
	return nil
}

func createIndexes(db *gorm.DB) error {
	indexes := []struct {
		name  string
		query string
	}{
		// The scheduler poll and the upcoming/schedule reads both scan by
		// due time over active reminder-enabled medications.
		{
			name:  "idx_medications_reminder_poll",
			query: `CREATE INDEX IF NOT EXISTS idx_medications_reminder_poll ON meds.medications (next_dose_time) WHERE deleted_at IS NULL AND status = 'active' AND reminder_enabled`,
		},
		{
			name:  "idx_medications_user_due",
			query: `CREATE INDEX IF NOT EXISTS idx_medications_user_due ON meds.medications (user_id, next_dose_time) WHERE deleted_at IS NULL`,
		},
		// Adherence aggregation windows over scheduled_time per user.
		{
			name:  "idx_dose_logs_user_scheduled",
			query: `CREATE INDEX IF NOT EXISTS idx_dose_logs_user_scheduled ON meds.dose_logs (user_id, scheduled_time DESC)`,
		},
		{
			name:  "idx_activity_user_recent",
			query: `CREATE INDEX IF NOT EXISTS idx_activity_user_recent ON activity.entries (user_id, occurred_at DESC)`,
		},
	}

	for _, idx := range indexes {
		if err := db.Exec(idx.query).Error; err != nil {
			return fmt.Errorf("creating index %s: %w", idx.name, err)
		}
	}

	return nil
}
