package gorm

import (
	"fmt"

	"github.com/flow-hydraulics/settings-client/configs"
	"github.com/flow-hydraulics/settings-client/migrations"
	"github.com/go-gormigrate/gormigrate/v2"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// New opens the configured database and brings its schema up to date.
func New(cfg *configs.Config) (*gorm.DB, error) {
	gormCfg, err := parseConfig(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(gormCfg.Dialector, gormCfg.Options)
	if err != nil {
		return nil, fmt.Errorf("error while opening database: %w", err)
	}

	m := gormigrate.New(db, gormigrate.DefaultOptions, migrations.List())
	if err := m.Migrate(); err != nil {
		Close(db)
		return nil, fmt.Errorf("error while migrating database: %w", err)
	}

	log.WithFields(log.Fields{"type": cfg.DatabaseType}).Debug("Database ready")

	return db, nil
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Warnf("unable to close database: %s", err)
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Warnf("unable to close database: %s", err)
	}
}
