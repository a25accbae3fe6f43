package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"fecharvest/internal/collect"
	"fecharvest/internal/collect/health"
	"fecharvest/internal/collect/progress"
	"fecharvest/internal/collect/ratelimit"
	"fecharvest/internal/core/config"
	"fecharvest/internal/core/domain"
	"fecharvest/internal/fec"
	redisclient "fecharvest/internal/infra/redis"
	"fecharvest/internal/output"
)

// Residual failures map to the exit status so schedulers can alert on
// incomplete cycles; POSIX codes above this are reserved.
const maxExitStatus = 125

var (
	cfgPath string
	isDebug bool
	cycle   int
	fresh   bool

	// exitCode carries the process exit status out of the command so that
	// deferred cleanup (run lock release, server shutdown) unwinds before
	// the single os.Exit in Execute.
	exitCode int
)

var rootCmd = &cobra.Command{
	Use:   "fecharvest",
	Short: "FEC campaign finance collector",
	Long:  `fecharvest walks every candidate in an election cycle through the FEC API, collects per-committee filing reports, and emits quarterly-aggregated artifacts. Runs are resumable from a durable checkpoint.`,
	Run:   runCollect,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "config file (default is config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().IntVar(&cycle, "cycle", 2024, "election cycle to collect")
	rootCmd.Flags().BoolVar(&fresh, "fresh", false, "discard any existing checkpoint and start over")
}

func loadConfig() *config.AppConfig {
	_ = godotenv.Load()

	if !domain.Cycle(cycle).Valid() {
		initLogging("info")
		slog.Error("Invalid election cycle, expected an even year", "cycle", cycle)
		os.Exit(1)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		initLogging("info")
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	level := cfg.Logging.Level
	if isDebug {
		level = "debug"
	}
	initLogging(level)
	return cfg
}

func initLogging(level string) {
	slogLevel := slog.LevelInfo
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	}
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slogLevel,
		TimeFormat: time.RFC3339,
	})))
}

// runCollect never calls os.Exit after the run lock is acquired: doing so
// would skip the deferred release and leave the lock held for its full TTL,
// blocking the immediate resume an operator reaches for after a bad run.
// Failure paths record exitCode and return so defers unwind.
func runCollect(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	if cfg.API.Key == "" {
		slog.Error("api.key is required to collect (set FEC_API_KEY)")
		exitCode = 1
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runID := uuid.New().String()

	// With Redis configured, a per-cycle lock keeps a second collector
	// started by the scheduler from racing the checkpoint.
	if cfg.Redis.URL != "" {
		release, err := acquireLock(ctx, cfg.Redis, cycle, runID)
		if err != nil {
			slog.Error("Run lock unavailable", "cycle", cycle, "error", err)
			exitCode = 1
			return
		}
		defer release()
	}

	exitCode = executeRun(ctx, cfg)
}

// executeRun wires the pipeline and runs the collection, returning the
// process exit status.
func executeRun(ctx context.Context, cfg *config.AppConfig) int {
	limiter := ratelimit.New(cfg.RateLimit.MinInterval.Std())
	client := fec.NewClient(fec.Options{
		BaseURL:     cfg.API.BaseURL,
		Key:         cfg.API.Key,
		CallTimeout: cfg.API.CallTimeout.Std(),
		PageSize:    cfg.API.PageSize,
	}, limiter)

	pipe := collect.NewPipeline(collect.Config{
		MaxPasses:       cfg.Retry.MaxPasses,
		InitialBackoff:  cfg.Retry.RateLimitBackoff.Std(),
		MaxBackoffSteps: cfg.Retry.MaxBackoffSteps,
	}, client, client,
		progress.NewFileStore(cfg.Paths.CheckpointDir),
		output.NewWriter(cfg.Paths.OutputDir),
	)

	if cfg.Server.Port > 0 {
		srv := health.NewServer(pipe.Snapshot, cfg.Server.Port)
		go func() {
			if err := srv.Start(); err != nil {
				slog.Error("Status server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Stop(shutdownCtx)
		}()
		slog.Info("Status server listening", "port", cfg.Server.Port)
	}

	summary, err := pipe.Run(ctx, cycle, fresh)
	if err != nil {
		if ctx.Err() != nil {
			slog.Info("Interrupted, checkpoint saved for resume", "cycle", cycle)
			return 1
		}
		slog.Error("Collection failed", "cycle", cycle, "error", err)
		return 1
	}

	return exitStatus(summary.Failures)
}

// exitStatus maps residual failures to the process exit status, capped to
// stay a valid code.
func exitStatus(failures int) int {
	if failures > maxExitStatus {
		return maxExitStatus
	}
	return failures
}

// acquireLock takes the per-cycle run lock and keeps it refreshed until the
// returned release function is called.
func acquireLock(
	ctx context.Context,
	cfg redisclient.Config,
	cycle int,
	runID string,
) (func(), error) {
	const lockTTL = 15 * time.Minute

	rdb, err := redisclient.NewClient(cfg)
	if err != nil {
		return nil, err
	}

	ok, err := rdb.AcquireRunLock(ctx, cycle, runID, lockTTL)
	if err != nil {
		_ = rdb.Close()
		return nil, err
	}
	if !ok {
		holder, _ := rdb.LockHolder(ctx, cycle)
		_ = rdb.Close()
		return nil, fmt.Errorf("another collection holds the cycle lock (run %s)", holder)
	}

	refreshCtx, cancelRefresh := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(lockTTL / 3)
		defer ticker.Stop()
		for {
			select {
			case <-refreshCtx.Done():
				return
			case <-ticker.C:
				if err := rdb.RefreshRunLock(refreshCtx, cycle, lockTTL); err != nil {
					slog.Warn("Failed to refresh run lock", "error", err)
				}
			}
		}
	}()

	release := func() {
		cancelRefresh()
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.ReleaseRunLock(releaseCtx, cycle, runID); err != nil {
			slog.Warn("Failed to release run lock", "error", err)
		}
		_ = rdb.Close()
	}
	return release, nil
}
