package database

import (
	"fmt"
	"log"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yourusername/survey-rewards-api/internal/config"
)

// Open подключается к базе данных по драйверу из конфигурации и готовит схему:
// для postgres применяются SQL-миграции, для sqlite - AutoMigrate и тестовые данные.
func Open(cfg config.DatabaseConfig, debug bool) (*gorm.DB, error) {
	logLevel := logger.Warn
	if debug {
		logLevel = logger.Info
	}

	switch cfg.Driver {
	case config.DriverPostgres:
		db, err := NewPostgresDB(cfg.PostgresConnectionString(), logLevel)
		if err != nil {
			return nil, err
		}
		if err := MigrateDB(db, cfg.MigrationsPath); err != nil {
			return nil, err
		}
		return db, nil
	case config.DriverSQLite:
		log.Printf("[Database] Используется SQLite: %s", cfg.SQLitePath)
		db, err := NewSQLiteDB(cfg.SQLitePath, logLevel)
		if err != nil {
			return nil, err
		}
		if err := SeedSQLite(db); err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %q", cfg.Driver)
	}
}
