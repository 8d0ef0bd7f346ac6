package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateEntryValidateRejectsNegativeUserID(t *testing.T) {
	c := CreateEntry{UserID: -1, Feature: "auth", Action: "LOGIN", LogLevel: LevelInfo, Severity: SeverityInfo}
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user_id must be >= 0")
}

func TestCreateEntryValidateAllowsSystemUser(t *testing.T) {
	c := CreateEntry{UserID: 0, Feature: "auth", Action: "LOGIN", LogLevel: LevelInfo, Severity: SeverityInfo}
	assert.NoError(t, c.Validate())
}

func TestCreateEntryValidateRejectsBlankFeatureAndAction(t *testing.T) {
	c := CreateEntry{UserID: 1, Feature: "  ", Action: "", LogLevel: LevelInfo, Severity: SeverityInfo}
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "feature must be a non-empty string")
	assert.Contains(t, err.Error(), "action must be a non-empty string")
}

func TestCreateEntryValidateRejectsUnknownLevelAndSeverity(t *testing.T) {
	c := CreateEntry{UserID: 1, Feature: "auth", Action: "LOGIN", LogLevel: "BOGUS", Severity: "BOGUS"}
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_level must be one of")
	assert.Contains(t, err.Error(), "severity must be one of")
}

func TestIsCriticalActionMatchesKnownList(t *testing.T) {
	assert.True(t, IsCriticalAction("SIGN_DOCUMENT"))
	assert.False(t, IsCriticalAction("LOGIN"))
}

func TestFilterHasFilters(t *testing.T) {
	assert.False(t, Filter{}.HasFilters())
	assert.True(t, Filter{Feature: "auth"}.HasFilters())
	uid := int64(5)
	assert.True(t, Filter{UserID: &uid}.HasFilters())
}

func TestEntryIsCriticalAndToMap(t *testing.T) {
	e := Entry{ID: 1, Feature: "doc", Action: "SIGN_DOCUMENT", Severity: SeverityCritical}
	assert.True(t, e.IsCritical())
	m := e.ToMap()
	assert.Equal(t, "SIGN_DOCUMENT", m["action"])
	assert.Equal(t, map[string]any{}, m["details"])
}
