package env

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// ConfigLoadError wraps a failure parsing the process config file. Ported
// from original_source/core/environment/config_loader.py's ConfigLoadError.
type ConfigLoadError struct {
	Path   string
	Reason string
}

func (e *ConfigLoadError) Error() string {
	return fmt.Sprintf("env: failed to load config %q: %s", e.Path, e.Reason)
}

// Load parses configPath (an INI-style file) into an AppEnv. An empty
// configPath defaults to "<projectRoot>/config.ini". A missing file is not
// an error: Load returns the defaults rooted at projectRoot, matching
// config_loader.py's graceful degradation.
func Load(configPath, projectRoot string, logger *slog.Logger) (*AppEnv, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if projectRoot == "" {
		var err error
		projectRoot, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("env: resolve project root: %w", err)
		}
	}
	if configPath == "" {
		configPath = filepath.Join(projectRoot, "config.ini")
	}

	out := defaults(projectRoot)

	if _, err := os.Stat(configPath); err != nil {
		logger.Warn("process config file not found, using defaults", "path", configPath)
		return &out, nil
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("ini")
	if err := v.ReadInConfig(); err != nil {
		return nil, &ConfigLoadError{Path: configPath, Reason: err.Error()}
	}

	resolve := func(rel string) string {
		if rel == "" {
			return rel
		}
		if filepath.IsAbs(rel) {
			return rel
		}
		return filepath.Join(projectRoot, rel)
	}

	if v.IsSet("database.url") {
		out.DatabaseURL = v.GetString("database.url")
	}
	if v.IsSet("database.echo") {
		out.DBEcho = v.GetBool("database.echo")
	}

	if v.IsSet("licensing.license_path") {
		out.LicensePath = expandPath(v.GetString("licensing.license_path"))
	}
	if v.IsSet("licensing.public_key_path") {
		out.PublicKeyPath = expandPath(v.GetString("licensing.public_key_path"))
	}

	if v.IsSet("paths.features_root") {
		out.FeaturesRoot = resolve(v.GetString("paths.features_root"))
	}
	if v.IsSet("paths.data_dir") {
		out.DataDir = resolve(v.GetString("paths.data_dir"))
	}

	if v.IsSet("audit.global_retention_days") {
		out.GlobalRetentionDays = v.GetInt("audit.global_retention_days")
	}
	if v.IsSet("audit.min_log_level") {
		out.MinLogLevel = strings.ToUpper(v.GetString("audit.min_log_level"))
	}

	if v.IsSet("session.timeout_minutes") {
		out.SessionTimeoutMins = v.GetInt("session.timeout_minutes")
	}

	return &out, nil
}

// expandPath expands both Windows-style %VAR% and Unix-style $VAR/${VAR}
// environment variable references, matching config_loader.py's
// _expand_path (which supports both styles so a config file authored on
// either platform still resolves license paths correctly).
func expandPath(raw string) string {
	expanded := raw
	for _, kv := range os.Environ() {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			continue
		}
		expanded = strings.ReplaceAll(expanded, "%"+parts[0]+"%", parts[1])
	}
	return os.ExpandEnv(expanded)
}
