// Package database owns the Postgres connection, schema migrations, and seed data.
package database

import (
	"embed"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // registers the postgres:// scheme
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"keyhaven/internal/config"
	"keyhaven/internal/models"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Database owns the GORM handle used by the rest of the process.
type Database struct {
	DB     *gorm.DB
	logger *zap.Logger
}

// New opens the connection pool and configures it.
func New(dsn string, logger *zap.Logger) (*Database, error) {
	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &Database{DB: db, logger: logger}, nil
}

// migrationURL builds the postgres:// URL golang-migrate expects from the
// same connection settings gorm uses.
func migrationURL(dc config.DatabaseConfig) string {
	u := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", dc.Host, dc.Port),
		Path:   "/" + dc.Name,
	}
	if dc.User != "" {
		if dc.Password != "" {
			u.User = url.UserPassword(dc.User, dc.Password)
		} else {
			u.User = url.User(dc.User)
		}
	}
	q := u.Query()
	q.Set("sslmode", dc.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Migrate runs versioned SQL migrations, then reconciles model drift with AutoMigrate.
func (d *Database) Migrate(dc config.DatabaseConfig) error {
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("load migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, migrationURL(dc))
	if err != nil {
		d.logger.Warn("versioned migration unavailable, relying on AutoMigrate only", zap.Error(err))
	} else if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		d.logger.Warn("versioned migration failed, relying on AutoMigrate to reconcile", zap.Error(err))
	}

	return d.DB.AutoMigrate(
		&models.Channel{},
		&models.ApiKey{},
		&models.Proxy{},
		&models.Token{},
		&models.RequestLog{},
		&models.Settings{},
	)
}

// SeedSettings ensures the singleton Settings row exists.
func (d *Database) SeedSettings(checkIntervalMS, maxLogsRetentionMS int64) error {
	var count int64
	if err := d.DB.Model(&models.Settings{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return d.DB.Create(&models.Settings{
		CheckInterval:    checkIntervalMS,
		MaxLogsRetention: maxLogsRetentionMS,
	}).Error
}

// Close releases the underlying connection pool.
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
