package descriptor

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeMeta(t *testing.T, root, folder string, doc map[string]any) {
	t.Helper()
	dir := filepath.Join(root, folder)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	b, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "meta.json"), b, 0o644))
}

func TestDiscoverAllFindsValidFeatures(t *testing.T) {
	root := t.TempDir()
	writeMeta(t, root, "audittrail", map[string]any{
		"id": "audittrail", "label": "Audit Trail", "version": "1.0.0", "main_class": "AuditTrail",
	})
	writeMeta(t, root, "config", map[string]any{ // ignored folder
		"id": "config", "label": "x", "version": "1.0.0", "main_class": "x",
	})
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty_dir"), 0o755)) // no meta.json

	repo := New(root, true, nil)
	found, err := repo.DiscoverAll()
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "audittrail", found[0].ID)
	assert.True(t, found[0].RequiresLogin, "requires_login defaults to true")
	assert.Equal(t, defaultSortOrder, found[0].SortOrder)
}

func TestStrictModeAbortsOnFirstInvalid(t *testing.T) {
	root := t.TempDir()
	writeMeta(t, root, "bad", map[string]any{
		"id": "mismatched", "label": "x", "version": "1.0.0", "main_class": "x",
	})

	repo := New(root, true, nil)
	_, err := repo.DiscoverAll()
	var invalid *InvalidMetaError
	require.ErrorAs(t, err, &invalid)
	assert.Contains(t, invalid.Reason, "id")
	assert.Contains(t, invalid.Reason, "folder name")
}

func TestLenientModeSkipsInvalid(t *testing.T) {
	root := t.TempDir()
	writeMeta(t, root, "bad", map[string]any{
		"id": "mismatched", "label": "x", "version": "1.0.0", "main_class": "x",
	})
	writeMeta(t, root, "good", map[string]any{
		"id": "good", "label": "x", "version": "1.0.0", "main_class": "x",
	})

	repo := New(root, false, nil)
	found, err := repo.DiscoverAll()
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "good", found[0].ID)
}

func TestVersionMustBeSemantic(t *testing.T) {
	root := t.TempDir()
	writeMeta(t, root, "f", map[string]any{
		"id": "f", "label": "x", "version": "not-a-version", "main_class": "x",
	})

	repo := New(root, true, nil)
	_, err := repo.DiscoverAll()
	var invalid *InvalidMetaError
	require.ErrorAs(t, err, &invalid)
	assert.Contains(t, invalid.Reason, "semantic versioning")
}

func TestGetByIDMissingFolderFails(t *testing.T) {
	root := t.TempDir()
	repo := New(root, true, nil)
	_, err := repo.GetByID("missing")
	var notFound *FeatureNotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestGetByIDUsesCache(t *testing.T) {
	root := t.TempDir()
	writeMeta(t, root, "f", map[string]any{
		"id": "f", "label": "x", "version": "1.0.0", "main_class": "x",
	})
	repo := New(root, true, nil)

	first, err := repo.GetByID("f")
	require.NoError(t, err)

	// Remove the file on disk; GetByID must still hit the cache.
	require.NoError(t, os.RemoveAll(filepath.Join(root, "f")))
	second, err := repo.GetByID("f")
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestAuditBlockParsedWithDefaults(t *testing.T) {
	root := t.TempDir()
	writeMeta(t, root, "f", map[string]any{
		"id": "f", "label": "x", "version": "1.0.0", "main_class": "x",
		"audit": map[string]any{"must_audit": true},
	})
	repo := New(root, true, nil)
	d, err := repo.GetByID("f")
	require.NoError(t, err)
	require.NotNil(t, d.Audit)
	assert.True(t, d.Audit.MustAudit)
	assert.Equal(t, LevelInfo, d.Audit.MinLogLevel)
	assert.Equal(t, defaultAuditRetention, d.Audit.RetentionDays)
}

func TestInvalidAuditRetentionDaysRejected(t *testing.T) {
	root := t.TempDir()
	writeMeta(t, root, "f", map[string]any{
		"id": "f", "label": "x", "version": "1.0.0", "main_class": "x",
		"audit": map[string]any{"retention_days": -1},
	})
	repo := New(root, true, nil)
	_, err := repo.GetByID("f")
	var invalid *InvalidMetaError
	require.ErrorAs(t, err, &invalid)
}

func TestIsVisibleForRole(t *testing.T) {
	open := &FeatureDescriptor{VisibleFor: nil}
	assert.True(t, open.IsVisibleForRole("anyone"))

	restricted := &FeatureDescriptor{VisibleFor: []string{"admin", "qmb"}}
	assert.True(t, restricted.IsVisibleForRole("Admin"))
	assert.False(t, restricted.IsVisibleForRole("viewer"))
}
