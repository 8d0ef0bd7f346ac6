package audit

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/qmtool-platform/qmtool-core/pkg/cache"
	"github.com/qmtool-platform/qmtool-core/pkg/descriptor"
)

// unboundedRetentionCacheSize bounds the per-feature retention-days cache
// at a size no real feature set would reach, so it behaves as effectively
// unbounded without requiring the cache type to support true unlimited
// capacity.
const unboundedRetentionCacheSize = 100000

// ConfiguratorPort is the subset of the configurator the audit service
// needs to resolve a feature's audit block from meta.json
// (audit_service.py calls self._configurator.get_feature_meta()).
type ConfiguratorPort interface {
	GetFeatureMeta(featureID string) (*descriptor.FeatureDescriptor, error)
}

// Service is the central audit and structured-application-logging
// facade, grounded on audit_service.py's AuditService.
type Service struct {
	repo         *Repository
	policy       Policy
	configurator ConfiguratorPort
	logger       *slog.Logger

	mu               sync.RWMutex
	globalMinLevel   LogLevel
	featureMinLevels map[string]LogLevel
	globalRetention  int
	retentionCache   *cache.TypedCache[int]
}

// NewService wires a Repository, Policy, and configurator into an audit
// Service. globalRetentionDays seeds the default retention window used
// when a feature has no retention_days override (spec §4.4).
func NewService(repo *Repository, policy Policy, configurator ConfiguratorPort, globalRetentionDays int, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if globalRetentionDays <= 0 {
		globalRetentionDays = 365
	}
	return &Service{
		repo: repo, policy: policy, configurator: configurator, logger: logger,
		globalMinLevel:   LevelInfo,
		featureMinLevels: map[string]LogLevel{},
		globalRetention:  globalRetentionDays,
		// Never invalidated except by a test-only hook (see InvalidateRetentionCache):
		// mirrors the original's unbounded self._retention_days dict, which is
		// populated once per feature and never cleared during a process lifetime.
		// maxSize is set far above any realistic feature count so eviction never
		// triggers in practice, matching the original's unbounded dict.
		retentionCache: cache.New[int](unboundedRetentionCacheSize, 0),
	}
}

// Log is the central logging entry point combining compliance audit and
// structured application logging (audit_service.py log()). A return value
// of -1 means the entry was below the effective min-log-level and was
// silently dropped, matching the original's sentinel return.
func (s *Service) Log(c CreateEntry) (int64, error) {
	if !s.shouldLog(c.Feature, c.LogLevel) {
		return -1, nil
	}

	if c.Username == "" {
		c.Username = s.resolveUsername(c.UserID)
	}
	if c.Details == nil {
		c.Details = map[string]any{}
	}

	if err := c.Validate(); err != nil {
		return 0, fmt.Errorf("audit: invalid log entry: %w", err)
	}

	id, err := s.repo.Create(&c)
	if err != nil {
		return 0, err
	}

	if c.Severity == SeverityCritical {
		s.handleCriticalLog(c, id)
	}

	return id, nil
}

// GetLogs returns logs matching filters after a read-permission check
// against the calling user (audit_service.py get_logs()).
func (s *Service) GetLogs(callerID int64, f Filter) ([]Entry, error) {
	if !s.policy.CanReadLogs(callerID, f) {
		return nil, &AccessDeniedError{CallerID: callerID, Detail: "not permitted to read these logs"}
	}
	return s.repo.FindByFilters(f)
}

// GetUserLogs returns logs for a specific user within an optional date
// range (audit_service.py get_user_logs()).
func (s *Service) GetUserLogs(callerID, userID int64, start, end *time.Time) ([]Entry, error) {
	f := Filter{UserID: &userID, StartDate: start, EndDate: end}
	if !s.policy.CanReadLogs(callerID, f) {
		return nil, &AccessDeniedError{CallerID: callerID, Detail: fmt.Sprintf("not permitted to read user %d logs", userID)}
	}
	return s.repo.FindByFilters(f)
}

// GetFeatureLogs returns logs for a specific feature within an optional
// date range (audit_service.py get_feature_logs()).
func (s *Service) GetFeatureLogs(callerID int64, feature string, start, end *time.Time) ([]Entry, error) {
	f := Filter{Feature: feature, StartDate: start, EndDate: end}
	if !s.policy.CanReadLogs(callerID, f) {
		return nil, &AccessDeniedError{CallerID: callerID, Detail: fmt.Sprintf("not permitted to read feature %q logs", feature)}
	}
	return s.repo.FindByFilters(f)
}

// SearchLogs performs a full-text search over details and action
// (audit_service.py search_logs()).
func (s *Service) SearchLogs(callerID int64, query string, f Filter) ([]Entry, error) {
	if !s.policy.CanReadLogs(callerID, f) {
		return nil, &AccessDeniedError{CallerID: callerID, Detail: "not permitted to search logs"}
	}
	return s.repo.Search(query, f)
}

// ExportLogs renders matching logs as "json" or "csv", after checking
// both export permission and read permission for the filtered set
// (audit_service.py export_logs()).
func (s *Service) ExportLogs(callerID int64, f Filter, format string) (string, error) {
	if !s.policy.CanExportLogs(callerID) {
		return "", &AccessDeniedError{CallerID: callerID, Detail: "not permitted to export logs"}
	}
	if !s.policy.CanReadLogs(callerID, f) {
		return "", &AccessDeniedError{CallerID: callerID, Detail: "not permitted to read the logs being exported"}
	}

	logs, err := s.repo.FindByFilters(f)
	if err != nil {
		return "", err
	}

	switch strings.ToLower(format) {
	case "json":
		return exportJSON(logs)
	case "csv":
		return exportCSV(logs), nil
	default:
		return "", &ExportFormatError{Format: format}
	}
}

// DeleteOldLogs removes logs older than the applicable retention window
// and emits a self-referential audit entry about the cleanup
// (audit_service.py delete_old_logs()). retentionDaysOverride, when
// non-nil, takes precedence over the feature/global default.
func (s *Service) DeleteOldLogs(feature string, retentionDaysOverride *int) (int64, error) {
	var days int
	switch {
	case retentionDaysOverride != nil:
		days = *retentionDaysOverride
	case feature != "":
		days = s.featureRetentionDays(feature)
	default:
		days = s.globalRetentionDays()
	}

	cutoff := time.Now().AddDate(0, 0, -days)
	deleted, err := s.repo.DeleteBefore(cutoff, feature)
	if err != nil {
		return 0, err
	}

	if deleted > 0 {
		if _, err := s.Log(CreateEntry{
			UserID: 0, Action: "DELETE_OLD_LOGS", Feature: "audittrail",
			LogLevel: LevelInfo, Severity: SeverityInfo,
			Details: map[string]any{
				"deleted_count":  deleted,
				"feature":        feature,
				"retention_days": days,
				"cutoff_date":    cutoff.Format(time.RFC3339Nano),
			},
		}); err != nil {
			s.logger.Error("failed to log retention cleanup", "error", err)
		}
	}

	return deleted, nil
}

// SetMinLogLevel sets the minimum level stored globally, or for a single
// feature when feature is non-empty (audit_service.py set_min_log_level()).
func (s *Service) SetMinLogLevel(level LogLevel, feature string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if feature != "" {
		s.featureMinLevels[feature] = level
	} else {
		s.globalMinLevel = level
	}
}

// GetFeatureAuditConfig reads a feature's audit block from its descriptor
// (audit_service.py get_feature_audit_config()).
func (s *Service) GetFeatureAuditConfig(feature string) (*FeatureAuditConfig, error) {
	meta, err := s.configurator.GetFeatureMeta(feature)
	if err != nil {
		return nil, &FeatureNotFoundError{Feature: feature}
	}

	cfg := &FeatureAuditConfig{MinLogLevel: LevelInfo, RetentionDays: s.globalRetentionDays()}
	if meta.Audit != nil {
		cfg.MustAudit = meta.Audit.MustAudit
		if meta.Audit.MinLogLevel != "" {
			cfg.MinLogLevel = LogLevel(meta.Audit.MinLogLevel)
		}
		cfg.CriticalActions = meta.Audit.CriticalActions
		if meta.Audit.RetentionDays > 0 {
			cfg.RetentionDays = meta.Audit.RetentionDays
		}
	}
	return cfg, nil
}

// InvalidateRetentionCache clears the cached per-feature retention-days
// values. Test-only hook: production code never calls this, matching the
// original's unbounded, never-invalidated _retention_days dict
// (spec §9 Open Question).
func (s *Service) InvalidateRetentionCache() {
	s.retentionCache.InvalidateAll()
}

func (s *Service) shouldLog(feature string, level LogLevel) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	effective := s.globalMinLevel
	if l, ok := s.featureMinLevels[feature]; ok {
		effective = l
	}
	return logLevelOrder[level] >= logLevelOrder[effective]
}

func (s *Service) resolveUsername(userID int64) string {
	if userID == 0 {
		return "SYSTEM"
	}
	return fmt.Sprintf("user_%d", userID)
}

func (s *Service) handleCriticalLog(c CreateEntry, logID int64) {
	// Placeholder hook for future notification fan-out (webhook, email),
	// matching audit_service.py's _handle_critical_log no-op.
	_ = c
	_ = logID
}

func (s *Service) featureRetentionDays(feature string) int {
	if days, ok := s.retentionCache.Get(feature); ok {
		return days
	}

	days := s.globalRetentionDays()
	cfg, err := s.GetFeatureAuditConfig(feature)
	if err == nil && cfg.RetentionDays > 0 {
		days = cfg.RetentionDays
	}

	s.retentionCache.Set(feature, days)
	return days
}

func (s *Service) globalRetentionDays() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.globalRetention
}

func exportJSON(logs []Entry) (string, error) {
	data := make([]map[string]any, len(logs))
	for i, l := range logs {
		data[i] = l.ToMap()
	}
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("audit: export json: %w", err)
	}
	return string(b), nil
}

func exportCSV(logs []Entry) string {
	const header = "id,timestamp,user_id,username,feature,action,log_level,severity,ip_address,session_id,module,function"
	if len(logs) == 0 {
		return header + "\n"
	}

	lines := []string{header}
	for _, l := range logs {
		lines = append(lines, strings.Join([]string{
			strconv.FormatInt(l.ID, 10),
			l.Timestamp.Format(time.RFC3339Nano),
			strconv.FormatInt(l.UserID, 10),
			quoteCSV(l.Username),
			quoteCSV(l.Feature),
			quoteCSV(l.Action),
			string(l.LogLevel),
			string(l.Severity),
			quoteCSV(l.IPAddress),
			quoteCSV(l.SessionID),
			quoteCSV(l.Module),
			quoteCSV(l.Function),
		}, ","))
	}
	return strings.Join(lines, "\n")
}

func quoteCSV(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}
