// Package env loads the process-level configuration into a typed, immutable
// AppEnv record. The backing file is an optional INI-style document; its
// absence is not an error (defaults apply throughout).
package env

import "path/filepath"

// AppEnv is the process's typed configuration, built once at boot and never
// mutated afterwards.
type AppEnv struct {
	DatabaseURL         string
	DBEcho              bool
	LicensePath         string
	PublicKeyPath       string
	FeaturesRoot        string
	ProjectRoot         string
	DataDir             string
	GlobalRetentionDays int
	MinLogLevel         string
	SessionTimeoutMins  int
}

// Default values, ported from original_source/core/environment/app_env.py.
const (
	DefaultDatabaseURL         = "sqlite:///qmtool.db"
	DefaultPublicKeyPath       = "assets/licensing/public_key.pem"
	DefaultGlobalRetentionDays = 365
	DefaultMinLogLevel         = "INFO"
	DefaultSessionTimeoutMins  = 1440 // 24 hours
)

// defaults returns an AppEnv populated with the original source's defaults,
// rooted at projectRoot (features_root and project_root both default to it
// when no [paths] section is present).
func defaults(projectRoot string) AppEnv {
	return AppEnv{
		DatabaseURL:         DefaultDatabaseURL,
		DBEcho:              false,
		LicensePath:         "",
		PublicKeyPath:       DefaultPublicKeyPath,
		FeaturesRoot:        projectRoot,
		ProjectRoot:         projectRoot,
		DataDir:             filepath.Join(projectRoot, "data"),
		GlobalRetentionDays: DefaultGlobalRetentionDays,
		MinLogLevel:         DefaultMinLogLevel,
		SessionTimeoutMins:  DefaultSessionTimeoutMins,
	}
}
