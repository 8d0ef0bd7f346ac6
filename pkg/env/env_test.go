package env

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	dir := t.TempDir()

	got, err := Load(filepath.Join(dir, "missing.ini"), dir, nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultDatabaseURL, got.DatabaseURL)
	assert.Equal(t, dir, got.FeaturesRoot)
	assert.Equal(t, dir, got.ProjectRoot)
	assert.Equal(t, DefaultGlobalRetentionDays, got.GlobalRetentionDays)
	assert.Equal(t, DefaultMinLogLevel, got.MinLogLevel)
	assert.Equal(t, DefaultSessionTimeoutMins, got.SessionTimeoutMins)
}

func TestLoadParsesSections(t *testing.T) {
	dir := t.TempDir()
	ini := `
[database]
url = postgres://localhost/qm
echo = true

[paths]
features_root = features
data_dir = var/data

[audit]
global_retention_days = 30
min_log_level = warning

[session]
timeout_minutes = 60
`
	path := filepath.Join(dir, "config.ini")
	require.NoError(t, os.WriteFile(path, []byte(ini), 0o644))

	got, err := Load(path, dir, nil)
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/qm", got.DatabaseURL)
	assert.True(t, got.DBEcho)
	assert.Equal(t, filepath.Join(dir, "features"), got.FeaturesRoot)
	assert.Equal(t, filepath.Join(dir, "var/data"), got.DataDir)
	assert.Equal(t, 30, got.GlobalRetentionDays)
	assert.Equal(t, "WARNING", got.MinLogLevel)
	assert.Equal(t, 60, got.SessionTimeoutMins)
}

func TestExpandPathUnixStyle(t *testing.T) {
	t.Setenv("QMTOOL_TEST_VAR", "/opt/qmtool")
	assert.Equal(t, "/opt/qmtool/license.lic", expandPath("$QMTOOL_TEST_VAR/license.lic"))
	assert.Equal(t, "/opt/qmtool/license.lic", expandPath("${QMTOOL_TEST_VAR}/license.lic"))
}

func TestExpandPathWindowsStyle(t *testing.T) {
	t.Setenv("QMTOOL_TEST_VAR", `C:\ProgramData\qmtool`)
	assert.Equal(t, `C:\ProgramData\qmtool\license.lic`, expandPath(`%QMTOOL_TEST_VAR%\license.lic`))
}
