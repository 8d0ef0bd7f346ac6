package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultPolicySystemUserFullAccess(t *testing.T) {
	p := NewDefaultPolicy([]int64{1}, []int64{2})
	assert.True(t, p.CanReadLogs(0, Filter{Feature: "anything"}))
	assert.True(t, p.CanExportLogs(0))
}

func TestDefaultPolicyAdminAndQMBFullAccess(t *testing.T) {
	p := NewDefaultPolicy([]int64{1}, []int64{2})
	assert.True(t, p.CanReadLogs(1, Filter{}))
	assert.True(t, p.CanReadLogs(2, Filter{}))
	assert.True(t, p.CanExportLogs(1))
	assert.True(t, p.CanExportLogs(2))
}

func TestDefaultPolicyOrdinaryUserOwnLogsOnly(t *testing.T) {
	p := NewDefaultPolicy([]int64{1}, []int64{2})
	self := int64(42)
	other := int64(99)
	assert.True(t, p.CanReadLogs(42, Filter{UserID: &self}))
	assert.False(t, p.CanReadLogs(42, Filter{UserID: &other}))
}

func TestDefaultPolicyOrdinaryUserNoFilterDenied(t *testing.T) {
	p := NewDefaultPolicy([]int64{1}, []int64{2})
	assert.False(t, p.CanReadLogs(42, Filter{}))
}

func TestDefaultPolicyOrdinaryUserCannotExport(t *testing.T) {
	p := NewDefaultPolicy([]int64{1}, []int64{2})
	assert.False(t, p.CanExportLogs(42))
}
