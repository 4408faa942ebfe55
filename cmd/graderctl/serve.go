package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gradecore/internal/logging"
	"gradecore/internal/orchestrator"
)

// jobLine is one line of serve's stdin job queue: a (problem, source file)
// pair to grade.
type jobLine struct {
	ProblemID string `json:"problem_id"`
	Source    string `json:"source"`
	Language  string `json:"language,omitempty"`
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run an in-process queue that grades jobs read from stdin",
	Long: `serve is a trivial in-process queue demonstrating A5's concurrency
control (spec.md §5): each line of stdin is one JSON job
({"problem_id":..., "source":...}), and up to limits.max_concurrent_submissions
are graded at once via a bounded worker pool. Results are printed to stdout
as they complete, in completion order, not submission order.

This is a demo harness for operators and CI pipelines, not a network
service — there is no HTTP/RPC layer in this system's scope.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	maxConcurrent := cfg.Limits.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	jobs := make(chan jobLine)
	results := make(chan string)
	var wg sync.WaitGroup

	for i := 0; i < maxConcurrent; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				results <- gradeOneJob(job)
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	go func() {
		defer close(jobs)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			var job jobLine
			if err := json.Unmarshal([]byte(line), &job); err != nil {
				logger.Warn("skipping malformed job line", zap.Error(err))
				continue
			}
			jobs <- job
		}
	}()

	for line := range results {
		fmt.Println(line)
	}
	return nil
}

func gradeOneJob(job jobLine) string {
	source, err := os.ReadFile(job.Source)
	if err != nil {
		return fmt.Sprintf(`{"problem_id":%q,"error":%q}`, job.ProblemID, err.Error())
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	sub, err := orch.RunSubmission(ctx, orchestrator.RunRequest{
		ProblemID:     job.ProblemID,
		StudentSource: string(source),
		Language:      job.Language,
	})
	if err != nil {
		return fmt.Sprintf(`{"problem_id":%q,"error":%q}`, job.ProblemID, err.Error())
	}

	logging.AuditForJob(sub.ProblemID, sub.JobID).VerdictClassified(string(sub.Status))
	logging.AuditForJob(sub.ProblemID, sub.JobID).SubmissionStored()

	data, err := json.Marshal(map[string]any{
		"job_id":     sub.JobID,
		"problem_id": sub.ProblemID,
		"status":     sub.Status,
		"tests":      sub.Summary.Tests,
		"failures":   sub.Summary.Failures,
		"errors":     sub.Summary.Errors,
	})
	if err != nil {
		return fmt.Sprintf(`{"problem_id":%q,"error":%q}`, job.ProblemID, err.Error())
	}
	return string(data)
}
