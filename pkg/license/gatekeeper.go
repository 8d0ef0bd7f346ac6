package license

import (
	"log/slog"
	"regexp"
)

// featureCodePattern mirrors FeatureGatekeeper.FEATURE_CODE_PATTERN exactly.
var featureCodePattern = regexp.MustCompile(`^[a-z0-9_]+$`)

// Gatekeeper decides whether a feature is allowed to register, grounded on
// LOGIC/services/feature_gatekeeper.py.
type Gatekeeper struct {
	logger *slog.Logger
}

// NewGatekeeper returns a Gatekeeper.
func NewGatekeeper(logger *slog.Logger) *Gatekeeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gatekeeper{logger: logger}
}

// CheckFeature runs the five-branch decision: core features are always
// allowed; features that don't require a license are allowed; a missing or
// malformed feature_code is a metadata error; otherwise the decision
// follows the current entitlement map.
func (g *Gatekeeper) CheckFeature(meta *FeatureLicensingMeta, entitlements map[string]bool) GateDecision {
	if meta.IsCore {
		g.logger.Debug("core feature, allowing registration", "feature", meta.ID)
		return GateDecision{Allowed: true, Reason: "Core feature is always allowed"}
	}

	if !meta.RequiresLicense {
		g.logger.Debug("feature does not require license", "feature", meta.ID)
		return GateDecision{Allowed: true, Reason: "Feature does not require license"}
	}

	if meta.FeatureCode == "" {
		g.logger.Error("feature requires license but has no feature_code", "feature", meta.ID)
		return GateDecision{
			Allowed: false, ErrorCode: ErrorFeatureMetaInvalid,
			Reason: "Feature requires license but feature_code is missing",
		}
	}

	if !featureCodePattern.MatchString(meta.FeatureCode) {
		g.logger.Error("invalid feature_code format", "feature_code", meta.FeatureCode)
		return GateDecision{
			Allowed: false, ErrorCode: ErrorFeatureMetaInvalid,
			Reason: "Invalid feature_code format: " + meta.FeatureCode,
		}
	}

	if entitlements[meta.FeatureCode] {
		g.logger.Info("feature is entitled, allowing registration", "feature_code", meta.FeatureCode)
		return GateDecision{Allowed: true, Reason: "Feature " + meta.FeatureCode + " is entitled in license"}
	}

	g.logger.Warn("feature is not entitled, blocking registration", "feature_code", meta.FeatureCode)
	return GateDecision{
		Allowed: false, ErrorCode: ErrorFeatureNotEntitled,
		Reason: "Feature " + meta.FeatureCode + " is not entitled in license",
	}
}

// FeatureLicensingMeta is the subset of a feature descriptor's metadata the
// gatekeeper needs, kept independent of pkg/descriptor to avoid an import
// cycle (callers such as pkg/adminapi and cmd/qmtoolctl build it from a
// descriptor).
type FeatureLicensingMeta struct {
	ID              string
	IsCore          bool
	RequiresLicense bool
	FeatureCode     string
}
