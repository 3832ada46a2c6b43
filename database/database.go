package database

import (
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"subscription-app/config"
	"subscription-app/internal/domain/entitlement"
	"subscription-app/internal/domain/plans"
	"subscription-app/internal/domain/subscription"
)

var DB *gorm.DB

func InitDB() {
	db, err := gorm.Open(postgres.Open(config.DB_URL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	DB = db

	if err := Migrate(DB); err != nil {
		log.Fatal().Err(err).Msg("database migration failed")
	}
	log.Info().Msg("database connected and migrated")
}

// Migrate creates/updates the engine's schema. Shared with package tests,
// which run it against an in-memory database.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&plans.Plan{},
		&subscription.Record{},
		&entitlement.UsageCounters{},
		&entitlement.Alert{},
	); err != nil {
		return err
	}
	// At most one unacknowledged alert per (account, kind, threshold),
	// enforced in the schema as well as by the emitter's dedup.
	return db.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_alerts_open
		 ON alerts (account_id, resource_kind, threshold_crossed)
		 WHERE acknowledged_at IS NULL`,
	).Error
}

// SeedPlans writes the shipped catalog into the plans table. The catalog is
// immutable at runtime; the rows exist for reporting and joins only.
func SeedPlans(db *gorm.DB, list []plans.Plan) error {
	for _, p := range list {
		if err := db.Where(plans.Plan{PlanID: p.PlanID}).Assign(p).FirstOrCreate(&plans.Plan{}).Error; err != nil {
			return err
		}
	}
	return nil
}
