package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	"filestore/internal/analytics"
	"filestore/internal/db"
	"filestore/internal/server"
	"filestore/internal/store"
)

func main() {
	if err := server.ValidateAllConfiguration(); err != nil {
		fmt.Fprint(os.Stderr, err)
		os.Exit(2)
	}

	log, err := server.NewLogger(getenvDefault("FS_LOG_LEVEL", server.LogLevelInfo), getenvDefault("FS_LOG_FORMAT", server.LogFormatJSON))
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(2)
	}
	defer func() { _ = log.Sync() }()

	if err := run(log); err != nil {
		log.Error("backend stopped", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := getenvDefault("FS_ADDR", ":5000")
	build := server.BuildInfo{
		Version: getenvDefault("FS_VERSION", "dev"),
		Commit:  getenvDefault("FS_COMMIT", "unknown"),
	}
	server.WarnOnOptionalMissingConfig(log)

	st, err := store.Open(getenvDefault("FS_STORE_DIR", "resources/filestore"), store.WithLogger(log.Named("store")))
	if err != nil {
		return err
	}

	cfg := server.Config{
		Addr:           addr,
		Build:          build,
		Store:          st,
		Logger:         log,
		MaxUploadBytes: getenvInt64("FS_MAX_UPLOAD_BYTES", 0),
		RateLimit:      getenvFloat("FS_RATE_LIMIT", 0),
		RateBurst:      int(getenvInt64("FS_RATE_BURST", 0)),
		Analytics: analytics.New(st,
			analytics.WithWorkers(int(getenvInt64("FS_SCAN_WORKERS", 0))),
			analytics.WithLogger(log.Named("analytics"))),
	}

	if dsn := getenvDefault("DATABASE_URL", ""); dsn != "" {
		conn, err := server.OpenDB(ctx, dsn)
		if err != nil {
			return fmt.Errorf("db connect: %w", err)
		}
		defer func() { _ = conn.Close() }()

		log.Info("running migrations")
		if err := db.RunMigrations(conn); err != nil {
			return err
		}
		version, _, err := db.Version(conn)
		if err != nil {
			return err
		}
		log.Info("migrations complete", zap.Uint("schema_version", version))
		cfg.Recorder = server.NewAuditor(conn)
	}

	if mc := server.MirrorConfigFromEnv(); mc.Enabled() {
		mirror, err := server.NewMirror(ctx, mc)
		if err != nil {
			return fmt.Errorf("object mirror: %w", err)
		}
		cfg.Mirror = server.WithCircuitBreaker(mirror, server.NewCircuitBreaker(5, 30*time.Second, log.Named("mirror")))
		log.Info("object mirror enabled", zap.String("bucket", mc.Bucket))
	}

	srv := server.New(cfg)

	go srv.RunReconcileJob(ctx, server.ReconcileJobConfig{
		OnStart:  getenvBool("FS_RECONCILE_ON_START", false),
		Interval: getenvDuration("FS_RECONCILE_INTERVAL", 0),
	})

	// Start the HTTP server in a background goroutine and wait for either
	// a shutdown signal or a server error.
	errCh := make(chan error, 1)
	go func() {
		log.Info("starting", zap.String("addr", addr), zap.String("store", st.Dir()),
			zap.String("version", build.Version), zap.String("commit", build.Commit))
		errCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
		// Give the server 5 seconds to finish in-flight requests.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		log.Info("shutdown complete")
		return nil
	case err := <-errCh:
		return err
	}
}

// getenvDefault reads an environment variable and returns a default value if not set.
func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

// The typed helpers below fall back to def on parse errors;
// ValidateAllConfiguration has already rejected malformed values.

func getenvInt64(key string, def int64) int64 {
	n, err := strconv.ParseInt(getenvDefault(key, ""), 10, 64)
	if err != nil {
		return def
	}
	return n
}

func getenvFloat(key string, def float64) float64 {
	f, err := strconv.ParseFloat(getenvDefault(key, ""), 64)
	if err != nil {
		return def
	}
	return f
}

func getenvBool(key string, def bool) bool {
	b, err := strconv.ParseBool(getenvDefault(key, ""))
	if err != nil {
		return def
	}
	return b
}

func getenvDuration(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(getenvDefault(key, ""))
	if err != nil {
		return def
	}
	return d
}
