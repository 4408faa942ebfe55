package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gradecore/internal/logging"
	"gradecore/internal/orchestrator"
)

var (
	runProblemID       string
	runLanguage        string
	runRuntimeID       string
	runTimeoutS        int
	runOverallTimeoutS int
	runMemoryMB        int
	runDebug           bool
)

var runCmd = &cobra.Command{
	Use:   "run [student-source-file]",
	Short: "Run a student submission against a compiled problem",
	Long: `Submits student source code for grading (C8's run_submission): resolves
the stored IR, picks a runtime, generates or reuses a cached harness, runs
it in an isolated container, classifies the result, and persists the
submission record.`,
	Args: cobra.ExactArgs(1),
	RunE: runGrade,
}

func init() {
	runCmd.Flags().StringVar(&runProblemID, "problem-id", "", "problem id to grade against (required)")
	runCmd.Flags().StringVar(&runLanguage, "language", "", "restrict runtime selection to this language")
	runCmd.Flags().StringVar(&runRuntimeID, "runtime", "", "run against this exact runtime id")
	runCmd.Flags().IntVar(&runTimeoutS, "timeout-s", 0, "override per-test timeout (0 = use problem/system default)")
	runCmd.Flags().IntVar(&runOverallTimeoutS, "overall-timeout-s", 0, "override overall submission timeout (0 = 2x timeout)")
	runCmd.Flags().IntVar(&runMemoryMB, "memory-mb", 0, "override memory limit (0 = use problem/system default)")
	runCmd.Flags().BoolVar(&runDebug, "debug", false, "include raw stdout/stderr/report details in the verdict")
	runCmd.MarkFlagRequired("problem-id")
}

func runGrade(cmd *cobra.Command, args []string) error {
	sourcePath := args[0]
	studentSource, err := os.ReadFile(sourcePath)
	if err != nil {
		return fmt.Errorf("read student source: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	sub, err := orch.RunSubmission(ctx, orchestrator.RunRequest{
		ProblemID:       runProblemID,
		StudentSource:   string(studentSource),
		Language:        runLanguage,
		RuntimeID:       runRuntimeID,
		TimeoutS:        runTimeoutS,
		OverallTimeoutS: runOverallTimeoutS,
		MemoryMB:        runMemoryMB,
		Debug:           runDebug,
	})
	if err != nil {
		return fmt.Errorf("run submission: %w", err)
	}

	logging.AuditForJob(sub.ProblemID, sub.JobID).VerdictClassified(string(sub.Status))
	logging.AuditForJob(sub.ProblemID, sub.JobID).SubmissionStored()
	logger.Info("graded submission",
		zap.String("job_id", sub.JobID),
		zap.String("status", string(sub.Status)),
		zap.Float64("duration_s", sub.DurationS),
	)

	fmt.Printf("job %s: %s\n%s\n", sub.JobID, sub.Status, sub.Message)
	fmt.Printf("tests=%d failures=%d errors=%d time_s=%.3f\n",
		sub.Summary.Tests, sub.Summary.Failures, sub.Summary.Errors, sub.Summary.TimeS)
	if sub.FirstFailure != nil {
		fmt.Printf("first failure: %s: %s\n", sub.FirstFailure.Test, sub.FirstFailure.Message)
	}
	if sub.Debug != nil {
		fmt.Printf("--- debug details ---\n%s\n", sub.Debug.Details)
	}
	return nil
}
