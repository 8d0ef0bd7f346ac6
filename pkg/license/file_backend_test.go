package license

import (
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLicenseFile(t *testing.T, path string, doc map[string]any) {
	t.Helper()
	b, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o644))
}

func validLicenseDoc(validUntil string, fingerprints []string) map[string]any {
	doc := map[string]any{
		"schema":      "qmtool-license-v1",
		"license_id":  "LIC-2025-000123",
		"customer":    "Acme",
		"issued_at":   "2025-01-01",
		"valid_until": validUntil,
		"entitlements": map[string]any{
			"translation": true,
		},
	}
	if fingerprints != nil {
		doc["allowed_fingerprints"] = fingerprints
	}
	doc["signature"] = base64.StdEncoding.EncodeToString([]byte("sig"))
	return doc
}

func TestFileBackendLoadLicenseMissingFileReturnsNil(t *testing.T) {
	b := NewFileBackend(filepath.Join(t.TempDir(), "missing.json"), NewAcceptAnyValidBase64Verifier(), nil)
	rec, err := b.LoadLicense()
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestFileBackendLoadLicenseMissingRequiredFieldReturnsNil(t *testing.T) {
	path := filepath.Join(t.TempDir(), "license.json")
	writeLicenseFile(t, path, map[string]any{"schema": "x"})
	b := NewFileBackend(path, NewAcceptAnyValidBase64Verifier(), nil)
	rec, err := b.LoadLicense()
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestFileBackendVerifyValidLicense(t *testing.T) {
	path := filepath.Join(t.TempDir(), "license.json")
	future := time.Now().Add(24 * time.Hour).Format("2006-01-02")
	writeLicenseFile(t, path, validLicenseDoc(future, nil))

	b := NewFileBackend(path, NewAcceptAnyValidBase64Verifier(), nil)
	rec, err := b.LoadLicense()
	require.NoError(t, err)
	require.NotNil(t, rec)

	result := b.Verify(rec, "hex:anything")
	assert.Equal(t, StatusValid, result.Status)
}

func TestFileBackendVerifyExpiredLicense(t *testing.T) {
	path := filepath.Join(t.TempDir(), "license.json")
	past := time.Now().Add(-24 * time.Hour).Format("2006-01-02")
	writeLicenseFile(t, path, validLicenseDoc(past, nil))

	b := NewFileBackend(path, NewAcceptAnyValidBase64Verifier(), nil)
	rec, err := b.LoadLicense()
	require.NoError(t, err)

	result := b.Verify(rec, "hex:anything")
	assert.Equal(t, StatusExpired, result.Status)
	assert.Equal(t, ErrorLicenseExpired, result.ErrorCode)
}

func TestFileBackendVerifyFingerprintMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "license.json")
	future := time.Now().Add(24 * time.Hour).Format("2006-01-02")
	writeLicenseFile(t, path, validLicenseDoc(future, []string{"hex:other"}))

	b := NewFileBackend(path, NewAcceptAnyValidBase64Verifier(), nil)
	rec, err := b.LoadLicense()
	require.NoError(t, err)

	result := b.Verify(rec, "hex:mine")
	assert.Equal(t, StatusFingerprintMismatch, result.Status)
}

func TestFileBackendVerifyInvalidSignature(t *testing.T) {
	path := filepath.Join(t.TempDir(), "license.json")
	future := time.Now().Add(24 * time.Hour).Format("2006-01-02")
	doc := validLicenseDoc(future, nil)
	doc["signature"] = "not-base64!!!"
	writeLicenseFile(t, path, doc)

	b := NewFileBackend(path, NewAcceptAnyValidBase64Verifier(), nil)
	rec, err := b.LoadLicense()
	require.NoError(t, err)

	result := b.Verify(rec, "hex:anything")
	assert.Equal(t, StatusInvalidSignature, result.Status)
}

func TestFileBackendGetEntitlements(t *testing.T) {
	path := filepath.Join(t.TempDir(), "license.json")
	future := time.Now().Add(24 * time.Hour).Format("2006-01-02")
	writeLicenseFile(t, path, validLicenseDoc(future, nil))

	b := NewFileBackend(path, NewAcceptAnyValidBase64Verifier(), nil)
	rec, _ := b.LoadLicense()
	assert.True(t, b.GetEntitlements(rec)["translation"])
}
