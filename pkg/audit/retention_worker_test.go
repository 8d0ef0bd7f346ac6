package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/qmtool-platform/qmtool-core/pkg/descriptor"
)

func TestRetentionWorkerRunSweepsUntilCanceled(t *testing.T) {
	svc := newTestService(t, &fakeConfigurator{descriptors: map[string]*descriptor.FeatureDescriptor{}})
	_, err := svc.Log(CreateEntry{UserID: 1, Feature: "auth", Action: "LOGIN", LogLevel: LevelInfo, Severity: SeverityInfo})
	require.NoError(t, err)

	worker := NewRetentionWorker(svc, 5*time.Millisecond, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		worker.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("retention worker did not stop after context cancellation")
	}
}
