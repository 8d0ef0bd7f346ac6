package audit

// Policy decides whether a caller may read or export audit logs, grounded
// on audit_policy.py's AuditPolicy. Service depends on this interface
// rather than a concrete type so a future UserManagement/Roles-backed
// implementation can replace it without touching Service.
type Policy interface {
	CanReadLogs(callerID int64, f Filter) bool
	CanExportLogs(callerID int64) bool
}

// DefaultPolicy implements the original's placeholder rule set: the
// system user (id 0) and configured admin/QMB ids get full access;
// everyone else may only read their own logs when the filter is scoped
// to their own user_id. Unlike the original's hardcoded admin_user_ids
// = [1] / qmb_user_ids = [2], the id sets are supplied by the caller so
// they can be sourced from real role data once UserManagement exists.
type DefaultPolicy struct {
	adminUserIDs map[int64]bool
	qmbUserIDs   map[int64]bool
}

// NewDefaultPolicy returns a DefaultPolicy recognizing the given admin
// and QMB (quality management board) user ids.
func NewDefaultPolicy(adminUserIDs, qmbUserIDs []int64) *DefaultPolicy {
	p := &DefaultPolicy{adminUserIDs: map[int64]bool{}, qmbUserIDs: map[int64]bool{}}
	for _, id := range adminUserIDs {
		p.adminUserIDs[id] = true
	}
	for _, id := range qmbUserIDs {
		p.qmbUserIDs[id] = true
	}
	return p
}

// CanReadLogs implements Policy.
func (p *DefaultPolicy) CanReadLogs(callerID int64, f Filter) bool {
	if callerID == 0 {
		return true
	}
	if p.isAdminOrQMB(callerID) {
		return true
	}
	if f.UserID != nil {
		return *f.UserID == callerID
	}
	return false
}

// CanExportLogs implements Policy.
func (p *DefaultPolicy) CanExportLogs(callerID int64) bool {
	return callerID == 0 || p.isAdminOrQMB(callerID)
}

func (p *DefaultPolicy) isAdminOrQMB(userID int64) bool {
	return p.adminUserIDs[userID] || p.qmbUserIDs[userID]
}
