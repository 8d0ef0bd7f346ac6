// Package audit implements the compliance audit trail and structured
// application logging subsystem (spec §4.4). It is the one feature every
// other feature depends on transitively: the loader refuses to boot any
// non-audit feature until this one is running (spec §4.6, §7).
package audit

import "time"

// LogLevel is a classic developer-facing logging level, ordered
// DEBUG < INFO < WARNING < ERROR < CRITICAL (enum/audit_enum.py LogLevel).
type LogLevel string

const (
	LevelDebug    LogLevel = "DEBUG"
	LevelInfo     LogLevel = "INFO"
	LevelWarning  LogLevel = "WARNING"
	LevelError    LogLevel = "ERROR"
	LevelCritical LogLevel = "CRITICAL"
)

var logLevelOrder = map[LogLevel]int{
	LevelDebug: 0, LevelInfo: 1, LevelWarning: 2, LevelError: 3, LevelCritical: 4,
}

// Severity is the compliance-relevance classification, independent of
// LogLevel (enum/audit_enum.py AuditSeverity).
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

var validLogLevels = map[LogLevel]bool{
	LevelDebug: true, LevelInfo: true, LevelWarning: true, LevelError: true, LevelCritical: true,
}

var validSeverities = map[Severity]bool{
	SeverityInfo: true, SeverityWarning: true, SeverityCritical: true,
}

// CriticalActions lists the actions classified as critical
// (AuditActionType.get_critical_actions()). Service.Log does not consult
// it: an entry keeps the severity its caller passes.
var CriticalActions = []string{
	"SIGN_DOCUMENT", "ARCHIVE_DOCUMENT", "DELETE_USER", "CHANGE_ROLE",
	"CHANGE_CONFIG", "DELETE_LOGS",
}

// IsCriticalAction reports whether action is one of CriticalActions.
func IsCriticalAction(action string) bool {
	for _, a := range CriticalActions {
		if a == action {
			return true
		}
	}
	return false
}

// Entry is a full, immutable audit log record as read back from storage
// (dto/audit_dto.py AuditLogDTO) — the wer/wann/wo/was ("who/when/where/
// what") pattern the original documents.
type Entry struct {
	ID        int64
	Timestamp time.Time
	UserID    int64
	Username  string
	Feature   string
	Action    string
	LogLevel  LogLevel
	Severity  Severity
	IPAddress string
	SessionID string
	Module    string
	Function  string
	Details   map[string]any
}

// IsCritical reports whether the entry's severity is CRITICAL.
func (e Entry) IsCritical() bool { return e.Severity == SeverityCritical }

// ToMap renders the entry the way a JSON export does
// (AuditLogDTO.to_dict()).
func (e Entry) ToMap() map[string]any {
	details := e.Details
	if details == nil {
		details = map[string]any{}
	}
	return map[string]any{
		"id":         e.ID,
		"timestamp":  e.Timestamp.Format(time.RFC3339Nano),
		"user_id":    e.UserID,
		"username":   e.Username,
		"feature":    e.Feature,
		"action":     e.Action,
		"log_level":  string(e.LogLevel),
		"severity":   string(e.Severity),
		"module":     e.Module,
		"function":   e.Function,
		"details":    details,
		"ip_address": e.IPAddress,
		"session_id": e.SessionID,
	}
}

// CreateEntry is the input to Service.Log, mutable until Validate runs
// (dto/audit_dto.py CreateAuditLogDTO).
type CreateEntry struct {
	UserID    int64
	Username  string
	Feature   string
	Action    string
	LogLevel  LogLevel
	Severity  Severity
	IPAddress string
	SessionID string
	Module    string
	Function  string
	Details   map[string]any
}

// Validate checks the required fields, mirroring
// CreateAuditLogDTO.validate() exactly, including its accumulate-then-join
// error message style.
func (c *CreateEntry) Validate() error {
	var errs []string

	if c.UserID < 0 {
		errs = append(errs, "user_id must be >= 0 (0 = System)")
	}
	if trimEmpty(c.Feature) {
		errs = append(errs, "feature must be a non-empty string")
	}
	if trimEmpty(c.Action) {
		errs = append(errs, "action must be a non-empty string")
	}
	if !validLogLevels[c.LogLevel] {
		errs = append(errs, "log_level must be one of [DEBUG INFO WARNING ERROR CRITICAL], got '"+string(c.LogLevel)+"'")
	}
	if !validSeverities[c.Severity] {
		errs = append(errs, "severity must be one of [INFO WARNING CRITICAL], got '"+string(c.Severity)+"'")
	}

	if len(errs) > 0 {
		return &ValidationError{Reasons: errs}
	}
	return nil
}

func trimEmpty(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' {
			return false
		}
	}
	return true
}

// Filter is the combinable set of query criteria for reads, searches, and
// exports (dto/audit_dto.py AuditLogFilterDTO). Zero values mean
// "unconstrained" for that field.
type Filter struct {
	UserID    *int64
	Feature   string
	Action    string
	LogLevel  LogLevel
	Severity  Severity
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
	Offset    int
}

// HasFilters reports whether at least one criterion is set
// (AuditLogFilterDTO.has_filters()).
func (f Filter) HasFilters() bool {
	return f.UserID != nil || f.Feature != "" || f.Action != "" ||
		f.LogLevel != "" || f.Severity != "" || f.StartDate != nil || f.EndDate != nil
}

// FeatureAuditConfig is a feature's audit block extracted from its
// meta.json, as returned by Service.GetFeatureAuditConfig.
type FeatureAuditConfig struct {
	MustAudit       bool
	MinLogLevel     LogLevel
	CriticalActions []string
	RetentionDays   int
}
