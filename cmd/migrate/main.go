package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/yourusername/survey-rewards-api/internal/config"
)

// Утилита управления миграциями PostgreSQL.
//
//	migrate -up          применить все миграции
//	migrate -down 1      откатить N миграций
//	migrate -force 1     снять флаг dirty, выставив версию
//	migrate -version     показать текущую версию
func main() {
	up := flag.Bool("up", false, "apply all pending migrations")
	down := flag.Int("down", 0, "roll back N migrations")
	force := flag.Int("force", -1, "force schema version and clear dirty state")
	version := flag.Bool("version", false, "print current schema version")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("Файл .env не найден, используются переменные окружения")
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Database.Driver != config.DriverPostgres {
		log.Fatalf("Миграции поддерживаются только для postgres, текущий драйвер: %s", cfg.Database.Driver)
	}

	db, err := sql.Open("postgres", cfg.Database.PostgresConnectionString())
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatal(err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		log.Fatal(err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+cfg.Database.MigrationsPath, "postgres", driver)
	if err != nil {
		log.Fatal(err)
	}

	switch {
	case *force >= 0:
		fmt.Printf("Forcing migration version to %d to clean dirty state...\n", *force)
		err = m.Force(*force)
	case *down > 0:
		fmt.Printf("Rolling back %d migration(s)...\n", *down)
		err = m.Steps(-*down)
	case *up:
		err = m.Up()
	case *version:
		v, dirty, verr := m.Version()
		if errors.Is(verr, migrate.ErrNilVersion) {
			fmt.Println("No migrations applied")
			return
		}
		if verr != nil {
			log.Fatal(verr)
		}
		fmt.Printf("Version: %d, dirty: %t\n", v, dirty)
		return
	default:
		flag.Usage()
		os.Exit(2)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		fmt.Println("No change")
		return
	}
	if err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	fmt.Println("Success!")
}
