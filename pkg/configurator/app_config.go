package configurator

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// AppConfig mirrors AppEnv's field taxonomy but is sourced from the
// app-level JSON file rather than the process-level INI file (spec §4.3,
// §6).
type AppConfig struct {
	DatabaseURL         string
	DBEcho              bool
	GlobalRetentionDays int
	MinLogLevel         string
	SessionTimeoutMins  int
	FeaturesRoot        string
	DataDir             string
}

func defaultAppConfig() AppConfig {
	return AppConfig{
		DatabaseURL:         "sqlite:///qmtool.db",
		DBEcho:              false,
		GlobalRetentionDays: 365,
		MinLogLevel:         "INFO",
		SessionTimeoutMins:  1440,
	}
}

// ConfigValidationError is raised in strict mode when app_config.json is
// missing, malformed, or fails a field-level check.
type ConfigValidationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ConfigValidationError) Error() string {
	return fmt.Sprintf("configurator: invalid config field %q (value %v): %s", e.Field, e.Value, e.Reason)
}

// AppConfigLoader reads "<projectRoot>/config/app_config.json".
type AppConfigLoader struct {
	projectRoot string
	logger      *slog.Logger
}

// NewAppConfigLoader returns a loader rooted at projectRoot.
func NewAppConfigLoader(projectRoot string, logger *slog.Logger) *AppConfigLoader {
	if logger == nil {
		logger = slog.Default()
	}
	return &AppConfigLoader{projectRoot: projectRoot, logger: logger}
}

// Load reads app_config.json. In strict mode, a missing file, malformed
// JSON, a non-object root, or a field failing validation raises
// ConfigValidationError. In lenient mode, any such failure is logged and
// defaults are substituted.
func (l *AppConfigLoader) Load(strict bool) (*AppConfig, error) {
	cfg := defaultAppConfig()
	path := filepath.Join(l.projectRoot, "config", "app_config.json")

	raw, err := os.ReadFile(path)
	if err != nil {
		if strict {
			return nil, &ConfigValidationError{Field: "app_config.json", Reason: "file not found: " + err.Error()}
		}
		l.logger.Warn("app config not found, using defaults", "path", path)
		return &cfg, nil
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		if strict {
			return nil, &ConfigValidationError{Field: "app_config.json", Reason: "invalid JSON: " + err.Error()}
		}
		l.logger.Warn("app config invalid JSON, using defaults", "path", path, "error", err)
		return &cfg, nil
	}

	database := asObject(doc["database"])
	audit := asObject(doc["audit"])
	session := asObject(doc["session"])
	paths := asObject(doc["paths"])

	if v, ok := database["url"].(string); ok && v != "" {
		cfg.DatabaseURL = v
	}
	if v, ok := database["echo"].(bool); ok {
		cfg.DBEcho = v
	}

	days, err := l.getIntWithMin(audit, "global_retention_days", 1, strict)
	if err != nil {
		return nil, err
	}
	if days != 0 {
		cfg.GlobalRetentionDays = days
	}
	if v, ok := audit["min_log_level"].(string); ok && v != "" {
		cfg.MinLogLevel = strings.ToUpper(v)
	}

	mins, err := l.getIntWithMin(session, "timeout_minutes", 1, strict)
	if err != nil {
		return nil, err
	}
	if mins != 0 {
		cfg.SessionTimeoutMins = mins
	}

	if v, ok := paths["features_root"].(string); ok && v != "" {
		cfg.FeaturesRoot = v
	}
	if v, ok := paths["data_dir"].(string); ok && v != "" {
		cfg.DataDir = v
	}

	return &cfg, nil
}

func asObject(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

// getIntWithMin extracts an integer field, enforcing minValue. A missing
// field returns (0, nil) so the caller keeps its default. A present but
// invalid field (wrong type or below minValue) raises ConfigValidationError
// in strict mode; in lenient mode it is logged and (0, nil) is returned so
// the built-in default applies, matching config_repository.py's
// warn-and-default behavior.
func (l *AppConfigLoader) getIntWithMin(doc map[string]any, key string, minValue int, strict bool) (int, error) {
	v, present := doc[key]
	if !present {
		return 0, nil
	}
	n, ok := v.(float64)
	if !ok || int(n) < minValue {
		if strict {
			return 0, &ConfigValidationError{Field: key, Value: v, Reason: fmt.Sprintf("must be an integer >= %d", minValue)}
		}
		l.logger.Warn("app config field below minimum or wrong type, using default", "field", key, "value", v, "min", minValue)
		return 0, nil
	}
	return int(n), nil
}
