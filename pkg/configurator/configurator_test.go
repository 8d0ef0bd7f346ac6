package configurator

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qmtool-platform/qmtool-core/pkg/descriptor"
)

func TestGetAllFeaturesSortsByOrderThenID(t *testing.T) {
	root := t.TempDir()
	writeDesc(t, root, "zeta", 1, nil)
	writeDesc(t, root, "alpha", 1, nil)
	writeDesc(t, root, "beta", 0, nil)

	repo := descriptor.New(root, true, nil)
	svc := New(repo, NewAppConfigLoader(root, nil))

	entries, err := svc.GetAllFeatures("")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "beta", entries[0].Descriptor.ID)
	assert.Equal(t, "alpha", entries[1].Descriptor.ID)
	assert.Equal(t, "zeta", entries[2].Descriptor.ID)
}

func TestGetAllFeaturesFiltersByRole(t *testing.T) {
	root := t.TempDir()
	writeDesc(t, root, "everyone", 0, nil)
	writeDesc(t, root, "admins-only", 0, []string{"admin"})

	repo := descriptor.New(root, true, nil)
	svc := New(repo, NewAppConfigLoader(root, nil))

	entries, err := svc.GetAllFeatures("viewer")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "everyone", entries[0].Descriptor.ID)
}

func TestGetAppConfigMissingFileLenientDefaults(t *testing.T) {
	root := t.TempDir()
	repo := descriptor.New(root, true, nil)
	svc := New(repo, NewAppConfigLoader(root, nil))

	cfg, err := svc.GetAppConfig()
	require.NoError(t, err)
	assert.Equal(t, "sqlite:///qmtool.db", cfg.DatabaseURL)
	assert.Equal(t, 365, cfg.GlobalRetentionDays)
}

func TestAppConfigLoaderStrictFailsOnMissingFile(t *testing.T) {
	root := t.TempDir()
	loader := NewAppConfigLoader(root, nil)
	_, err := loader.Load(true)
	var cve *ConfigValidationError
	require.ErrorAs(t, err, &cve)
}

func TestAppConfigLoaderParsesFile(t *testing.T) {
	root := t.TempDir()
	configDir := filepath.Join(root, "config")
	require.NoError(t, os.MkdirAll(configDir, 0o755))
	doc := map[string]any{
		"database": map[string]any{"url": "postgres://x", "echo": true},
		"audit":    map[string]any{"global_retention_days": 90, "min_log_level": "error"},
		"session":  map[string]any{"timeout_minutes": 30},
	}
	b, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "app_config.json"), b, 0o644))

	loader := NewAppConfigLoader(root, nil)
	cfg, err := loader.Load(false)
	require.NoError(t, err)
	assert.Equal(t, "postgres://x", cfg.DatabaseURL)
	assert.True(t, cfg.DBEcho)
	assert.Equal(t, 90, cfg.GlobalRetentionDays)
	assert.Equal(t, "ERROR", cfg.MinLogLevel)
	assert.Equal(t, 30, cfg.SessionTimeoutMins)
}

func TestAppConfigLoaderStrictRejectsFieldBelowMinimum(t *testing.T) {
	root := t.TempDir()
	configDir := filepath.Join(root, "config")
	require.NoError(t, os.MkdirAll(configDir, 0o755))
	doc := map[string]any{"audit": map[string]any{"global_retention_days": 0}}
	b, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "app_config.json"), b, 0o644))

	loader := NewAppConfigLoader(root, nil)
	_, err = loader.Load(true)
	var cve *ConfigValidationError
	require.ErrorAs(t, err, &cve)
	assert.Equal(t, "global_retention_days", cve.Field)
}

func writeDesc(t *testing.T, root, id string, sortOrder int, visibleFor []string) {
	t.Helper()
	dir := filepath.Join(root, id)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	doc := map[string]any{
		"id": id, "label": id, "version": "1.0.0", "main_class": "X",
		"sort_order": sortOrder,
	}
	if visibleFor != nil {
		doc["visible_for"] = visibleFor
	}
	b, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "meta.json"), b, 0o644))
}
