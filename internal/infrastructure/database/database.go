package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/crosslane/bridge_service/internal/infrastructure/config"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
)

const (
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 5
	defaultConnLifetimeSec = 300

	connectTimeout = 10 * time.Second
	migrationsPath = "file://migrations"
)

var circuitBreaker *gobreaker.CircuitBreaker

func init() {
	settings := gobreaker.Settings{
		Name:        "database",
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	}
	circuitBreaker = gobreaker.NewCircuitBreaker(settings)
}

// NewConnection opens a pooled Postgres connection and verifies it with a ping.
func NewConnection(cfg config.DatabaseConfig) (*sql.DB, error) {
	var db *sql.DB

	_, err := circuitBreaker.Execute(func() (interface{}, error) {
		opened, err := sql.Open("postgres", cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database connection: %w", err)
		}

		maxOpen := cfg.MaxOpenConns
		if maxOpen == 0 {
			maxOpen = defaultMaxOpenConns
		}
		maxIdle := cfg.MaxIdleConns
		if maxIdle == 0 {
			maxIdle = defaultMaxIdleConns
		}
		connLifetime := cfg.ConnMaxLifetime
		if connLifetime == 0 {
			connLifetime = defaultConnLifetimeSec
		}
		opened.SetMaxOpenConns(maxOpen)
		opened.SetMaxIdleConns(maxIdle)
		opened.SetConnMaxLifetime(time.Duration(connLifetime) * time.Second)
		opened.SetConnMaxIdleTime(5 * time.Minute)

		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()

		if err := opened.PingContext(ctx); err != nil {
			opened.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}

		db = opened
		return opened, nil
	})
	if err != nil {
		return nil, fmt.Errorf("circuit breaker: %w", err)
	}

	return db, nil
}

// RunMigrations applies pending schema migrations from the migrations directory.
func RunMigrations(databaseURL string) error {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create postgres driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(migrationsPath, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
