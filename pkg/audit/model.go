package audit

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// detailsJSON is a custom GORM type storing an arbitrary details map as a
// JSON text column, adapted from the teacher's JSONAny helper.
type detailsJSON map[string]any

// Scan implements sql.Scanner for detailsJSON.
func (d *detailsJSON) Scan(value any) error {
	if value == nil {
		*d = nil
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("unsupported type for detailsJSON: %T", value)
	}
	if len(raw) == 0 {
		*d = nil
		return nil
	}
	return json.Unmarshal(raw, d)
}

// Value implements driver.Valuer for detailsJSON.
func (d detailsJSON) Value() (driver.Value, error) {
	if d == nil {
		return nil, nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// logRecord is the GORM model backing the audit_logs table, grounded
// column-for-column and index-for-index on audit_repository.py's
// _ensure_schema().
type logRecord struct {
	ID        int64       `gorm:"column:id;primaryKey;autoIncrement"`
	Timestamp time.Time   `gorm:"column:timestamp;not null;index:idx_audit_timestamp"`
	UserID    int64       `gorm:"column:user_id;not null;index:idx_audit_user_id"`
	Username  string      `gorm:"column:username;not null"`
	Feature   string      `gorm:"column:feature;not null;index:idx_audit_feature"`
	Action    string      `gorm:"column:action;not null"`
	LogLevel  string      `gorm:"column:log_level;not null;index:idx_audit_log_level"`
	Severity  string      `gorm:"column:severity;not null;index:idx_audit_severity"`
	IPAddress string      `gorm:"column:ip_address"`
	SessionID string      `gorm:"column:session_id"`
	Module    string      `gorm:"column:module"`
	Function  string      `gorm:"column:function"`
	Details   detailsJSON `gorm:"column:details;type:text"`
}

func (logRecord) TableName() string { return "audit_logs" }

func (r logRecord) toEntry() Entry {
	return Entry{
		ID: r.ID, Timestamp: r.Timestamp, UserID: r.UserID, Username: r.Username,
		Feature: r.Feature, Action: r.Action, LogLevel: LogLevel(r.LogLevel),
		Severity: Severity(r.Severity), IPAddress: r.IPAddress, SessionID: r.SessionID,
		Module: r.Module, Function: r.Function, Details: map[string]any(r.Details),
	}
}

func fromCreateEntry(c *CreateEntry, timestamp time.Time) *logRecord {
	return &logRecord{
		Timestamp: timestamp, UserID: c.UserID, Username: c.Username, Feature: c.Feature,
		Action: c.Action, LogLevel: string(c.LogLevel), Severity: string(c.Severity),
		IPAddress: c.IPAddress, SessionID: c.SessionID, Module: c.Module, Function: c.Function,
		Details: detailsJSON(c.Details),
	}
}
