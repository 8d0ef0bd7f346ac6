package main

import (
	"context"
	"log/slog"

	"github.com/qmtool-platform/qmtool-core/pkg/loader"
)

// bootLoader runs the full boot sequence against the configured project,
// matching what cmd/qmtool-server runs at startup. Boot logging is
// discarded so command output isn't interleaved with it.
func bootLoader() (*loader.Loader, []string, error) {
	l := loader.New(loader.Options{
		ConfigPath:  configPath,
		ProjectRoot: projectRoot,
		Strict:      strictFlag,
		Logger:      slog.New(slog.NewTextHandler(logDiscard{}, &slog.HandlerOptions{Level: slog.LevelWarn})),
	})
	bootLog, err := l.Boot(context.Background())
	return l, bootLog, err
}

type logDiscard struct{}

func (logDiscard) Write(p []byte) (int, error) { return len(p), nil }
