package license

import (
	"encoding/json"
	"log/slog"
	"os"
	"time"
)

// Backend is the abstraction a LicensingService depends on, grounded on
// LOGIC/interfaces/license_backend_interface.py. A future online backend
// (re-fetching from a license server) can implement the same interface.
type Backend interface {
	LoadLicense() (*Record, error)
	Verify(rec *Record, machineFP string) VerificationResult
	GetEntitlements(rec *Record) map[string]bool
	Refresh() error
}

// FileBackend reads a signed license from a local JSON file, grounded
// directly on file_license_repository.py.
type FileBackend struct {
	licensePath string
	verifier    SignatureVerifier
	logger      *slog.Logger
}

// NewFileBackend returns a FileBackend rooted at licensePath.
func NewFileBackend(licensePath string, verifier SignatureVerifier, logger *slog.Logger) *FileBackend {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileBackend{licensePath: licensePath, verifier: verifier, logger: logger}
}

var requiredLicenseFields = []string{"schema", "license_id", "customer", "issued_at", "valid_until"}

// LoadLicense reads and parses the license file. A missing file, invalid
// JSON, or a missing required field returns (nil, nil) — absence, not an
// error — matching the original's "return None" behavior so callers treat
// it as StatusMissing rather than a load failure.
func (b *FileBackend) LoadLicense() (*Record, error) {
	raw, err := os.ReadFile(b.licensePath)
	if err != nil {
		b.logger.Warn("license file not found", "path", b.licensePath)
		return nil, nil
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		b.logger.Error("invalid JSON in license file", "error", err)
		return nil, nil
	}

	for _, field := range requiredLicenseFields {
		if _, ok := doc[field]; !ok {
			b.logger.Error("license missing required field", "field", field)
			return nil, nil
		}
	}

	rec := &Record{}
	fields := map[string]*string{
		"schema":      &rec.Schema,
		"license_id":  &rec.LicenseID,
		"customer":    &rec.Customer,
		"issued_at":   &rec.IssuedAt,
		"valid_until": &rec.ValidUntil,
	}
	for field, dst := range fields {
		s, ok := doc[field].(string)
		if !ok {
			b.logger.Error("license field has wrong type", "field", field)
			return nil, nil
		}
		*dst = s
	}
	if fps, ok := doc["allowed_fingerprints"].([]any); ok {
		for _, v := range fps {
			if s, ok := v.(string); ok {
				rec.AllowedFingerprints = append(rec.AllowedFingerprints, s)
			}
		}
	}
	if ent, ok := doc["entitlements"].(map[string]any); ok {
		rec.Entitlements = make(map[string]bool, len(ent))
		for k, v := range ent {
			if b, ok := v.(bool); ok {
				rec.Entitlements[k] = b
			}
		}
	}
	if sig, ok := doc["signature"].(string); ok {
		rec.Signature = sig
	}
	return rec, nil
}

// Verify checks signature, expiry, and fingerprint in that order, exactly
// as file_license_repository.py's verify() does.
func (b *FileBackend) Verify(rec *Record, machineFP string) VerificationResult {
	canonical, err := CanonicalJSON(rec.ToCanonicalMap(), "signature")
	if err != nil {
		return VerificationResult{
			Status: StatusInvalidFormat, ErrorCode: ErrorLicenseInvalidFormat,
			Message: "could not canonicalize license", LicenseID: rec.LicenseID,
		}
	}

	if !b.verifier.Verify(canonical, rec.Signature) {
		return VerificationResult{
			Status: StatusInvalidSignature, ErrorCode: ErrorLicenseInvalidSignature,
			Message: "License signature verification failed", LicenseID: rec.LicenseID,
		}
	}

	validUntil, err := parseISODate(rec.ValidUntil)
	if err != nil {
		b.logger.Error("invalid date format in license", "error", err)
		return VerificationResult{
			Status: StatusInvalidFormat, ErrorCode: ErrorLicenseInvalidFormat,
			Message: "Invalid date format in license", LicenseID: rec.LicenseID,
		}
	}
	if time.Now().After(validUntil) {
		return VerificationResult{
			Status: StatusExpired, ErrorCode: ErrorLicenseExpired,
			Message: "License expired on " + rec.ValidUntil, LicenseID: rec.LicenseID,
		}
	}

	if len(rec.AllowedFingerprints) > 0 {
		allowed := false
		for _, fp := range rec.AllowedFingerprints {
			if fp == machineFP {
				allowed = true
				break
			}
		}
		if !allowed {
			return VerificationResult{
				Status: StatusFingerprintMismatch, ErrorCode: ErrorLicenseFingerprintMismatch,
				Message: "Machine fingerprint not in allowed list", LicenseID: rec.LicenseID,
			}
		}
	}

	return VerificationResult{Status: StatusValid, Message: "License is valid", LicenseID: rec.LicenseID}
}

// GetEntitlements returns the record's feature entitlement map.
func (b *FileBackend) GetEntitlements(rec *Record) map[string]bool {
	return rec.Entitlements
}

// Refresh is a no-op for the file backend; present to satisfy Backend for
// parity with a future network-backed implementation.
func (b *FileBackend) Refresh() error {
	b.logger.Debug("refresh called on file backend (no-op)")
	return nil
}

func parseISODate(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &DateFormatError{Value: s}
}

// DateFormatError indicates a license's valid_until/issued_at field isn't
// a recognized ISO-8601 date or datetime.
type DateFormatError struct {
	Value string
}

func (e *DateFormatError) Error() string {
	return "license: invalid ISO date " + e.Value
}
