package descriptor

import "fmt"

// FeatureNotFoundError is returned when a feature id has no corresponding
// folder/meta.json under the features root.
type FeatureNotFoundError struct {
	FeatureID string
}

func (e *FeatureNotFoundError) Error() string {
	return fmt.Sprintf("descriptor: feature not found: %s", e.FeatureID)
}

// InvalidMetaError is returned when a meta.json fails validation. Reason is
// a human-readable sentence; callers in strict mode see this abort the
// whole scan, in lenient mode it is logged and the folder skipped.
type InvalidMetaError struct {
	FeatureID string
	Reason    string
}

func (e *InvalidMetaError) Error() string {
	return fmt.Sprintf("descriptor: invalid meta for %q: %s", e.FeatureID, e.Reason)
}
