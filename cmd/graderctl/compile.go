package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gradecore/internal/logging"
)

var (
	compileProblemID string
	compileTimeoutS  int
	compileMemoryMB  int
)

var compileCmd = &cobra.Command{
	Use:   "compile [spec-file]",
	Short: "Compile a problem specification and store its IR",
	Long: `Reads a problem specification (YAML/JSON), compiles it to IR
(C1+C2), and persists it under --problem-id. Re-running compile against
the same problem id only bumps ir_version when the canonical IR actually
changed.`,
	Args: cobra.ExactArgs(1),
	RunE: runCompile,
}

func init() {
	compileCmd.Flags().StringVar(&compileProblemID, "problem-id", "", "problem id to store the compiled IR under (required)")
	compileCmd.Flags().IntVar(&compileTimeoutS, "timeout-s", 0, "per-test timeout default for this problem (0 = system default)")
	compileCmd.Flags().IntVar(&compileMemoryMB, "memory-mb", 0, "memory limit default for this problem (0 = system default)")
	compileCmd.MarkFlagRequired("problem-id")
}

func runCompile(cmd *cobra.Command, args []string) error {
	specPath := args[0]
	rawText, err := os.ReadFile(specPath)
	if err != nil {
		return fmt.Errorf("read spec file: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	start := time.Now()
	spec, err := orch.CompileSpec(string(rawText))
	if err != nil {
		return fmt.Errorf("compile spec: %w", err)
	}
	durationMs := time.Since(start).Milliseconds()

	version, bumped, err := orch.StoreIR(ctx, compileProblemID, string(rawText), spec, compileTimeoutS, compileMemoryMB)
	if err != nil {
		return fmt.Errorf("store ir: %w", err)
	}

	logging.AuditForJob(compileProblemID, "").SpecCompiled(durationMs)
	logging.AuditForJob(compileProblemID, "").IRStored(version, bumped)
	logger.Info("compiled problem", zap.String("problem_id", compileProblemID), zap.Int("ir_version", version), zap.Bool("bumped", bumped))

	fmt.Printf("problem %s stored at ir_version=%d (bumped=%v)\n", compileProblemID, version, bumped)
	return nil
}
