package audit

import "fmt"

// ValidationError reports one or more CreateEntry field failures, joined
// the way CreateAuditLogDTO.validate()'s "; ".join(errors) does.
type ValidationError struct {
	Reasons []string
}

func (e *ValidationError) Error() string {
	msg := e.Reasons[0]
	for _, r := range e.Reasons[1:] {
		msg += "; " + r
	}
	return msg
}

// AccessDeniedError reports that a caller lacks permission for the
// requested read or export operation (audit_exceptions.py
// AuditAccessDeniedException).
type AccessDeniedError struct {
	CallerID int64
	Detail   string
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("audit: caller %d denied: %s", e.CallerID, e.Detail)
}

// FeatureNotFoundError reports that a feature's meta.json could not be
// loaded (audit_exceptions.py FeatureNotFoundException).
type FeatureNotFoundError struct {
	Feature string
}

func (e *FeatureNotFoundError) Error() string {
	return fmt.Sprintf("audit: feature %q not found", e.Feature)
}

// ExportFormatError reports an unsupported export format
// (audit_exceptions.py ExportFormatException).
type ExportFormatError struct {
	Format string
}

func (e *ExportFormatError) Error() string {
	return fmt.Sprintf("audit: invalid export format %q, allowed: json, csv", e.Format)
}
