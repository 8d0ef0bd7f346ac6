package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeMeta(t *testing.T, root, id, contents string) {
	t.Helper()
	dir := filepath.Join(root, id)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "meta.json"), []byte(contents), 0o644))
}

func writeInMemoryConfig(t *testing.T, root string) string {
	t.Helper()
	path := filepath.Join(root, "config.ini")
	require.NoError(t, os.WriteFile(path, []byte("[database]\nurl = sqlite:///:memory:\n"), 0o644))
	return path
}

func newHappyPathProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	writeMeta(t, root, "audittrail", `{
		"id": "audittrail", "label": "Audit Trail", "version": "1.0.0",
		"main_class": "audittrail.Module", "is_core": false, "sort_order": 10
	}`)
	writeMeta(t, root, "user_management", `{
		"id": "user_management", "label": "User Management", "version": "1.0.0",
		"main_class": "user_management.Module", "sort_order": 20,
		"dependencies": ["audittrail"],
		"audit": {"must_audit": true}
	}`)
	writeMeta(t, root, "authenticator", `{
		"id": "authenticator", "label": "Authenticator", "version": "1.0.0",
		"main_class": "authenticator.Module", "sort_order": 30,
		"dependencies": ["user_management"],
		"audit": {"must_audit": true}
	}`)
	return root
}

func TestLoaderBootHappyPath(t *testing.T) {
	root := newHappyPathProject(t)
	configPath := writeInMemoryConfig(t, root)

	l := New(Options{ConfigPath: configPath, ProjectRoot: root})
	bootLog, err := l.Boot(context.Background())
	require.NoError(t, err)
	require.Len(t, bootLog, 3)

	pos := map[string]int{}
	for i, id := range bootLog {
		pos[id] = i
	}
	assert.Less(t, pos["audittrail"], pos["user_management"])
	assert.Less(t, pos["user_management"], pos["authenticator"])
	assert.True(t, l.Container().IsRegistered(KeyAuditSink))
}

func TestLoaderBootIsIdempotent(t *testing.T) {
	root := newHappyPathProject(t)
	configPath := writeInMemoryConfig(t, root)

	l := New(Options{ConfigPath: configPath, ProjectRoot: root})
	first, err := l.Boot(context.Background())
	require.NoError(t, err)

	second, err := l.Boot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestLoaderBootAbortsWhenAudittrailSkipped(t *testing.T) {
	root := newHappyPathProject(t)
	configPath := writeInMemoryConfig(t, root)

	l := New(Options{ConfigPath: configPath, ProjectRoot: root, SkipFeatures: []string{"audittrail"}})
	_, err := l.Boot(context.Background())
	require.Error(t, err)
	var gateErr *AuditSinkNotAvailableError
	assert.ErrorAs(t, err, &gateErr)
}

func TestLoaderBootDetectsCycle(t *testing.T) {
	root := t.TempDir()
	configPath := writeInMemoryConfig(t, root)

	writeMeta(t, root, "audittrail", `{
		"id": "audittrail", "label": "Audit Trail", "version": "1.0.0",
		"main_class": "audittrail.Module", "sort_order": 1
	}`)
	writeMeta(t, root, "alpha", `{
		"id": "alpha", "label": "Alpha", "version": "1.0.0",
		"main_class": "alpha.Module", "sort_order": 2, "dependencies": ["beta"]
	}`)
	writeMeta(t, root, "beta", `{
		"id": "beta", "label": "Beta", "version": "1.0.0",
		"main_class": "beta.Module", "sort_order": 3, "dependencies": ["alpha"]
	}`)

	l := New(Options{ConfigPath: configPath, ProjectRoot: root})
	_, err := l.Boot(context.Background())
	require.Error(t, err)
	var cycleErr *CyclicDependencyError
	require.ErrorAs(t, err, &cycleErr)
	assert.ElementsMatch(t, []string{"alpha", "beta"}, cycleErr.Remaining)
}

func TestLoaderBootDescriptorIDMismatchAbortsInStrictMode(t *testing.T) {
	root := t.TempDir()
	configPath := writeInMemoryConfig(t, root)

	writeMeta(t, root, "auth", `{
		"id": "Auth", "label": "Auth", "version": "1.0.0", "main_class": "auth.Module"
	}`)

	l := New(Options{ConfigPath: configPath, ProjectRoot: root, Strict: true})
	_, err := l.Boot(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "id")
	assert.Contains(t, err.Error(), "folder name")
}

func TestLoaderEnvBeforeBootIsBootstrapError(t *testing.T) {
	l := New(Options{})
	_, err := l.Env()
	require.Error(t, err)
	var bootstrapErr *BootstrapError
	assert.ErrorAs(t, err, &bootstrapErr)
}
