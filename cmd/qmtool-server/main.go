// Package main provides the qmtool server entry point: it boots the
// composition root (pkg/loader) and then hosts the administrative HTTP
// surface (pkg/adminapi) over the resulting container.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/qmtool-platform/qmtool-core/pkg/adminapi"
	"github.com/qmtool-platform/qmtool-core/pkg/loader"
)

func main() {
	var (
		listenAddr   string
		configPath   string
		projectRoot  string
		strictConfig bool
		jwtPublicKey string
		jwtUserClaim string
	)

	flag.StringVar(&listenAddr, "listen", envOrDefault("QMTOOL_LISTEN", ":8080"), "Address to listen on")
	flag.StringVar(&configPath, "config", os.Getenv("QMTOOL_CONFIG"), "Path to config.ini (defaults to <project-root>/config.ini)")
	flag.StringVar(&projectRoot, "project-root", os.Getenv("QMTOOL_PROJECT_ROOT"), "Project root directory (defaults to the working directory)")
	flag.BoolVar(&strictConfig, "strict", os.Getenv("QMTOOL_STRICT") == "true", "Abort discovery on the first invalid feature descriptor")
	flag.StringVar(&jwtPublicKey, "jwt-public-key", os.Getenv("QMTOOL_JWT_PUBLIC_KEY_PATH"), "PEM-encoded RSA public key used to verify admin API bearer tokens")
	flag.StringVar(&jwtUserClaim, "jwt-user-claim", envOrDefault("QMTOOL_JWT_USER_CLAIM", "sub"), "JWT claim carrying the numeric caller id")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	logger.Info("starting qmtool server", "listen", listenAddr, "configPath", configPath, "projectRoot", projectRoot)

	l := loader.New(loader.Options{
		ConfigPath:  configPath,
		ProjectRoot: projectRoot,
		Logger:      logger,
		Strict:      strictConfig,
	})

	bootLog, err := l.Boot(ctx)
	if err != nil {
		logger.Error("boot failed", "error", err)
		os.Exit(1)
	}
	logger.Info("boot complete", "boot_id", l.BootID(), "features", bootLog)

	adminSrv, err := adminapi.NewServer(l.Container(), adminapi.AuthConfig{
		PublicKeyPath: jwtPublicKey,
		UserIDClaim:   jwtUserClaim,
	}, logger)
	if err != nil {
		logger.Error("failed to build admin API server", "error", err)
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:    listenAddr,
		Handler: adminSrv.Router(),
	}

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			cancel()
		}
	}()

	logger.Info("qmtool server ready", "listen", listenAddr)

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	logger.Info("qmtool server stopped")
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
