package audit

import "context"

// ctxKey is an unexported type used as the context key for the caller id,
// adapted from the teacher's tenancy context-propagation idiom.
type ctxKey struct{}

// WithCallerID returns a new context carrying callerID. Service methods take
// the caller id as an explicit argument; HTTP callers such as pkg/adminapi
// read it back with CallerIDFromContext and pass it to
// Service.GetLogs/ExportLogs/etc., in place of the original's placeholder
// _get_current_user_id() (always 0, "no auth integration yet").
func WithCallerID(ctx context.Context, callerID int64) context.Context {
	return context.WithValue(ctx, ctxKey{}, callerID)
}

// CallerIDFromContext retrieves the caller id set by WithCallerID,
// defaulting to 0 (the system user) when absent — matching the original's
// _get_current_user_id() fallback.
func CallerIDFromContext(ctx context.Context) int64 {
	id, ok := ctx.Value(ctxKey{}).(int64)
	if !ok {
		return 0
	}
	return id
}
