package audit

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Repository is the GORM-backed persistence layer for audit logs,
// grounded method-for-method on audit_repository.py's AuditRepository.
// The schema (table + 5 indexes) is created via AutoMigrate, which is
// idempotent like the original's "CREATE TABLE IF NOT EXISTS" script.
type Repository struct {
	db *gorm.DB
}

// NewRepository wraps an already-connected *gorm.DB. Callers open the DB
// using the driver implied by the configured database URL's scheme (see
// database.Open in pkg/database for sqlite/postgres/mysql dispatch).
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// AutoMigrate creates the audit_logs table and its indexes if they do not
// already exist. For dialects golang-migrate has a database.Driver for
// (postgres, mysql) it applies the embedded versioned migration set;
// sqlite, the default single-process backend, has no such driver wired
// into this module, so it falls back to GORM's reflection-based
// AutoMigrate.
func (r *Repository) AutoMigrate() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("audit: unwrap sql.DB: %w", err)
	}

	if err := runVersionedMigrations(r.db.Dialector.Name(), sqlDB); err != nil {
		if !errors.Is(err, errNoDialectDriver) {
			return err
		}
		if err := r.db.AutoMigrate(&logRecord{}); err != nil {
			return fmt.Errorf("audit: auto-migrate audit_logs: %w", err)
		}
	}
	return nil
}

// Create persists a validated CreateEntry and returns its assigned id.
// Callers must have already run CreateEntry.Validate().
func (r *Repository) Create(c *CreateEntry) (int64, error) {
	if c.Username == "" {
		c.Username = fmt.Sprintf("user_%d", c.UserID)
	}
	rec := fromCreateEntry(c, time.Now())
	if err := r.db.Create(rec).Error; err != nil {
		return 0, fmt.Errorf("audit: create log: %w", err)
	}
	return rec.ID, nil
}

// FindByID returns the entry with the given id, or (nil, nil) if absent.
func (r *Repository) FindByID(id int64) (*Entry, error) {
	var rec logRecord
	err := r.db.Where("id = ?", id).First(&rec).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("audit: find log %d: %w", id, err)
	}
	entry := rec.toEntry()
	return &entry, nil
}

// FindByFilters returns entries matching filters, newest first, paginated
// by Limit/Offset (defaulting to 100/0 as AuditLogFilterDTO does).
func (r *Repository) FindByFilters(f Filter) ([]Entry, error) {
	query := applyFilter(r.db.Model(&logRecord{}), f)
	limit, offset := paginationOf(f)

	var recs []logRecord
	if err := query.Order("timestamp DESC, id DESC").Limit(limit).Offset(offset).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("audit: find logs by filters: %w", err)
	}
	return toEntries(recs), nil
}

// Search performs a full-text LIKE search across details and action,
// additionally constrained by filters (audit_repository.py
// search_in_details(), aliased there as search()).
func (r *Repository) Search(keyword string, f Filter) ([]Entry, error) {
	query := applyFilter(r.db.Model(&logRecord{}), f)
	pattern := "%" + keyword + "%"
	query = query.Where("details LIKE ? OR action LIKE ?", pattern, pattern)
	limit, offset := paginationOf(f)

	var recs []logRecord
	if err := query.Order("timestamp DESC, id DESC").Limit(limit).Offset(offset).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("audit: search logs for %q: %w", keyword, err)
	}
	return toEntries(recs), nil
}

// DeleteBefore deletes entries with timestamp < cutoff, optionally scoped
// to a single feature, and returns the number of rows deleted.
func (r *Repository) DeleteBefore(cutoff time.Time, feature string) (int64, error) {
	query := r.db.Where("timestamp < ?", cutoff)
	if feature != "" {
		query = query.Where("feature = ?", feature)
	}
	result := query.Delete(&logRecord{})
	if result.Error != nil {
		return 0, fmt.Errorf("audit: delete old logs: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func applyFilter(query *gorm.DB, f Filter) *gorm.DB {
	if f.UserID != nil {
		query = query.Where("user_id = ?", *f.UserID)
	}
	if f.Feature != "" {
		query = query.Where("feature = ?", f.Feature)
	}
	if f.Action != "" {
		query = query.Where("action = ?", f.Action)
	}
	if f.LogLevel != "" {
		query = query.Where("log_level = ?", string(f.LogLevel))
	}
	if f.Severity != "" {
		query = query.Where("severity = ?", string(f.Severity))
	}
	if f.StartDate != nil {
		query = query.Where("timestamp >= ?", *f.StartDate)
	}
	if f.EndDate != nil {
		query = query.Where("timestamp <= ?", *f.EndDate)
	}
	return query
}

func paginationOf(f Filter) (limit, offset int) {
	limit = f.Limit
	if limit <= 0 {
		limit = 100
	}
	return limit, f.Offset
}

func toEntries(recs []logRecord) []Entry {
	entries := make([]Entry, len(recs))
	for i, r := range recs {
		entries[i] = r.toEntry()
	}
	return entries
}
