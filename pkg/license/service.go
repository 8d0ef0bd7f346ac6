package license

import (
	"context"
	"log/slog"
	"sync"
)

// Service wraps a Backend and FingerprintProvider (spec §4.5). The loader
// only registers it; the license is loaded and verified on the first
// GetVerification call. It caches the verified record and entitlements for
// the process lifetime until RefreshLicense is called explicitly.
type Service struct {
	backend Backend
	fp      FingerprintProvider
	logger  *slog.Logger

	mu           sync.RWMutex
	record       *Record
	verification VerificationResult
	machineFP    MachineFingerprint
}

// NewService returns a Service wired to the given backend and fingerprint
// provider.
func NewService(backend Backend, fp FingerprintProvider, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{backend: backend, fp: fp, logger: logger}
}

// GetVerification loads the license (if not already cached) and returns its
// verification result. A missing license file yields StatusMissing rather
// than an error, matching the original's load_license() -> None path.
func (s *Service) GetVerification(ctx context.Context) (VerificationResult, error) {
	s.mu.RLock()
	if s.record != nil {
		v := s.verification
		s.mu.RUnlock()
		return v, nil
	}
	s.mu.RUnlock()
	return s.load(ctx)
}

func (s *Service) load(ctx context.Context) (VerificationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.backend.LoadLicense()
	if err != nil {
		return VerificationResult{}, err
	}
	if rec == nil {
		s.verification = VerificationResult{Status: StatusMissing, ErrorCode: ErrorLicenseMissing, Message: "License file not found"}
		s.record = nil
		return s.verification, nil
	}

	fingerprint, err := s.fp.Collect(ctx)
	if err != nil {
		return VerificationResult{}, err
	}
	s.machineFP = fingerprint

	s.verification = s.backend.Verify(rec, HashFingerprint(fingerprint))
	s.record = rec
	return s.verification, nil
}

// GetEntitlements returns the currently-loaded license's entitlement map.
// An unverified or missing license yields an empty map, so gatekeeper
// checks against it naturally deny every non-core, license-gated feature.
func (s *Service) GetEntitlements() map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.record == nil || s.verification.Status != StatusValid {
		return map[string]bool{}
	}
	return s.backend.GetEntitlements(s.record)
}

// IsFeatureAllowed is a convenience wrapper combining GetEntitlements with
// a Gatekeeper check.
func (s *Service) IsFeatureAllowed(gk *Gatekeeper, meta *FeatureLicensingMeta) GateDecision {
	return gk.CheckFeature(meta, s.GetEntitlements())
}

// RefreshLicense reloads the license from the backend immediately and
// returns the new verification result.
func (s *Service) RefreshLicense(ctx context.Context) (VerificationResult, error) {
	if err := s.backend.Refresh(); err != nil {
		return VerificationResult{}, err
	}
	s.mu.Lock()
	s.record = nil
	s.mu.Unlock()
	return s.load(ctx)
}
