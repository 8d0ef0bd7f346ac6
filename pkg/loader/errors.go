package loader

import (
	"fmt"
	"strings"
)

// BootstrapError is the base error for every boot failure that isn't one
// of the more specific kinds below.
type BootstrapError struct {
	Reason string
}

func (e *BootstrapError) Error() string {
	return fmt.Sprintf("loader: bootstrap failed: %s", e.Reason)
}

// AuditSinkNotAvailableError is the hard-gate failure: it is raised the
// moment the audit sink cannot be verified, both immediately after
// registering audittrail and again after the full boot loop completes.
type AuditSinkNotAvailableError struct {
	Reason string
}

func (e *AuditSinkNotAvailableError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "audit sink is not available; audit is mandatory"
	}
	return fmt.Sprintf("loader: %s", reason)
}

// FeatureLoadError is raised when a feature's registration hook fails.
type FeatureLoadError struct {
	FeatureID string
	Reason    string
}

func (e *FeatureLoadError) Error() string {
	return fmt.Sprintf("loader: failed to load feature %q: %s", e.FeatureID, e.Reason)
}

// DependencyError is raised when a feature declares a dependency that
// cannot be resolved.
type DependencyError struct {
	FeatureID  string
	Dependency string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("loader: feature %q depends on %q which is not available", e.FeatureID, e.Dependency)
}

// CyclicDependencyError is raised when the boot-order topological sort
// cannot account for every discovered feature.
type CyclicDependencyError struct {
	Remaining []string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("loader: cyclic dependency detected among: %s", strings.Join(e.Remaining, ", "))
}
