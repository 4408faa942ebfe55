// Package main implements graderctl, the gradecore command-line front end.
//
// graderctl wires together internal/config, internal/logging,
// internal/store, internal/runner, internal/sandbox, and
// internal/orchestrator behind four subcommands: compile, run, and cache
// inspect, mirroring spec.md §4.8's three operations, plus serve.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"gradecore/internal/config"
	"gradecore/internal/logging"
	"gradecore/internal/orchestrator"
	"gradecore/internal/runner"
	"gradecore/internal/sandbox"
	"gradecore/internal/store"
)

var (
	verbose    bool
	configPath string
	opTimeout  time.Duration

	logger *zap.Logger
	cfg    *config.Config
	st     *store.Store
	orch   *orchestrator.Orchestrator
)

var rootCmd = &cobra.Command{
	Use:   "graderctl",
	Short: "graderctl - compiles code problems and grades submissions",
	Long: `graderctl turns a code-problem specification into a reusable test
harness and grades student submissions against it inside an isolated
container.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapCfg := zap.NewProductionConfig()
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		level := cfg.LogLevel
		if verbose {
			level = "debug"
		}
		ws, _ := os.Getwd()
		if err := logging.Initialize(ws, verbose, level, false); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to initialize file logging: %v\n", err)
		}
		if err := logging.InitAudit(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to initialize audit logging: %v\n", err)
		}

		st, err = store.Open(cfg.StoragePath)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}

		runtimes := make([]orchestrator.Runtime, len(cfg.Runtimes))
		for i, rt := range cfg.Runtimes {
			runtimes[i] = orchestrator.Runtime{ID: rt.ID, Language: rt.Language, Image: rt.Image}
		}

		docker := sandbox.NewDocker()
		executor := sandbox.NewExecutor(docker, int64(cfg.Limits.MaxConcurrent), "")
		cache := runner.NewTieredCache(runner.NewMemCache(), store.NewHarnessCache(st))
		orch = orchestrator.New(runner.Default(), cache, executor, st, runtimes)

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAudit()
		logging.CloseAll()
		if st != nil {
			st.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose/debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "graderctl.yaml", "path to the config file")
	rootCmd.PersistentFlags().DurationVar(&opTimeout, "timeout", 2*time.Minute, "operation timeout")

	rootCmd.AddCommand(compileCmd, runCmd, cacheCmd, serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
