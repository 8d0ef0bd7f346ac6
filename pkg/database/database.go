// Package database owns the single shared *gorm.DB handle the loader
// registers as core infrastructure, and that every persistence-backed
// feature (the audit repository, primarily) resolves through.
package database

import (
	"fmt"
	"log/slog"
	"strings"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/glebarez/sqlite"
)

// Service wraps the process's database connection and the schema-creation
// step the loader runs once every feature has registered.
type Service struct {
	db     *gorm.DB
	logger *slog.Logger
}

// ParseDatabasePath extracts a sqlite file path (or ":memory:") from a
// SQLAlchemy-style "sqlite:///..." URL, ported from
// original_source/core/loader/loader.py's parse_database_path. Any URL
// that is not a "sqlite://" URL yields the default path "audit.db";
// callers that need a dialect should inspect the URL scheme directly
// rather than calling this helper.
func ParseDatabasePath(databaseURL string) string {
	switch {
	case databaseURL == "sqlite:///:memory:", databaseURL == "sqlite://":
		return ":memory:"
	case strings.HasPrefix(databaseURL, "sqlite:///"):
		return strings.TrimPrefix(databaseURL, "sqlite:///")
	default:
		return "audit.db"
	}
}

// Open connects to databaseURL, selecting a gorm dialect from its scheme:
// "sqlite:///path" (the default), "postgres://..." or "mysql://...". echo
// enables gorm's verbose SQL logging.
func Open(databaseURL string, echo bool, slogger *slog.Logger) (*Service, error) {
	if slogger == nil {
		slogger = slog.Default()
	}

	level := logger.Silent
	if echo {
		level = logger.Info
	}
	gcfg := &gorm.Config{Logger: logger.Default.LogMode(level)}

	var dialector gorm.Dialector
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		dialector = postgres.Open(databaseURL)
	case strings.HasPrefix(databaseURL, "mysql://"):
		dialector = mysql.Open(strings.TrimPrefix(databaseURL, "mysql://"))
	default:
		dialector = sqlite.Open(ParseDatabasePath(databaseURL))
	}

	db, err := gorm.Open(dialector, gcfg)
	if err != nil {
		return nil, fmt.Errorf("database: open %q: %w", databaseURL, err)
	}

	return &Service{db: db, logger: slogger}, nil
}

// DB returns the underlying *gorm.DB for feature repositories to share.
func (s *Service) DB() *gorm.DB {
	return s.db
}

// EnsureSchema auto-migrates the given models; with no models it is a
// no-op. The loader calls it once, at the end of boot, without models; the
// audit repository creates its own table through Repository.AutoMigrate.
func (s *Service) EnsureSchema(models ...any) error {
	if len(models) == 0 {
		return nil
	}
	if err := s.db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("database: ensure schema: %w", err)
	}
	s.logger.Info("database schema ensured", "models", len(models))
	return nil
}

// Close releases the underlying connection pool.
func (s *Service) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
