// Package dbutil provides the shared PostgreSQL connection pool and health
// check used by the frontend service.
package dbutil

import (
	"fmt"
	"time"
)

// Config holds PostgreSQL connection settings for the frontend's job and
// meeting storage.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// Validate checks that the pool settings are internally consistent.
func (c Config) Validate() error {
	if c.MaxOpenConns < 1 {
		return fmt.Errorf("MaxOpenConns must be at least 1")
	}
	if c.MaxIdleConns < 0 {
		return fmt.Errorf("MaxIdleConns cannot be negative")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return fmt.Errorf("MaxIdleConns (%d) cannot exceed MaxOpenConns (%d)", c.MaxIdleConns, c.MaxOpenConns)
	}
	return nil
}

// DSN builds a libpq-style connection string for the pgx stdlib driver.
func (c Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// Defaults returns production-reasonable pool settings, mirroring the
// teacher's database config defaults.
func Defaults() Config {
	return Config{
		Host:            "localhost",
		Port:            5432,
		User:            "meetscribe",
		Database:        "meetscribe",
		SSLMode:         "disable",
		MaxOpenConns:    25,
		MaxIdleConns:    10,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 15 * time.Minute,
	}
}
