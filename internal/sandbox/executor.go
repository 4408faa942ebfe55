package sandbox

import (
	"context"
	"os"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// containerRunner is the seam between Executor and the container engine,
// satisfied by *Docker; tests substitute a fake to exercise staging,
// concurrency, and reaping without a real docker daemon.
type containerRunner interface {
	Run(ctx context.Context, job Job) (*Result, error)
}

// Executor stages a workspace, runs a container, and reaps both —
// unconditionally, on every exit path (spec.md §4.5 "Reaping invariant").
// It bounds concurrent container launches with a weighted semaphore sized
// to host capacity (spec.md §5 "Shared-resource policy": "orchestrator
// SHOULD cap concurrent in-flight containers with a bounded semaphore").
type Executor struct {
	docker    containerRunner
	sem       *semaphore.Weighted
	stageRoot string
	onAudit   func(AuditEvent)
}

// NewExecutor builds an Executor. maxConcurrent bounds simultaneous
// container launches; stageRoot is the base directory workspaces are
// created under (empty uses the OS temp dir).
func NewExecutor(docker *Docker, maxConcurrent int64, stageRoot string) *Executor {
	return newExecutor(docker, maxConcurrent, stageRoot)
}

func newExecutor(docker containerRunner, maxConcurrent int64, stageRoot string) *Executor {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Executor{
		docker:    docker,
		sem:       semaphore.NewWeighted(maxConcurrent),
		stageRoot: stageRoot,
	}
}

// SetAuditCallback registers a callback invoked at each lifecycle point.
func (e *Executor) SetAuditCallback(fn func(AuditEvent)) {
	e.onAudit = fn
}

func (e *Executor) emit(ev AuditEvent) {
	if e.onAudit != nil {
		e.onAudit(ev)
	}
}

// Request is the input to one submission run: the generated harness and
// student source, plus resolved limits and the target runtime's image and
// launch command.
type Request struct {
	EntryName     string
	EntrySource   []byte
	HarnessName   string
	HarnessSource string
	Image         string
	Command       []string // argv executed inside the container
	Limits        Limits
}

// Run executes one submission end-to-end: stage → acquire concurrency slot
// → launch → wait → reap. ctx governs cancellation (spec.md §5
// "Cancellation": the submission exposes a cancellation signal that
// propagates to the executor).
func (e *Executor) Run(ctx context.Context, req Request) (*Result, error) {
	jobID := uuid.NewString()

	e.emit(AuditEvent{Type: AuditJobStarted, JobID: jobID})

	ws, err := Stage(jobID, e.stageRoot, req.EntryName, req.EntrySource, req.HarnessName, req.HarnessSource)
	if err != nil {
		e.emit(AuditEvent{Type: AuditSandboxError, JobID: jobID, Message: err.Error()})
		return nil, err
	}
	defer func() {
		_ = ws.Destroy()
	}()

	if err := e.sem.Acquire(ctx, 1); err != nil {
		return nil, newError(jobID, "could not acquire a container launch slot", err)
	}
	defer e.sem.Release(1)

	reportPath := ContainerReportPath()
	job := Job{
		ID:           jobID,
		WorkspaceDir: ws.Dir,
		ReportDir:    ws.ReportDir,
		EntryFile:    ws.EntryFile,
		HarnessFile:  ws.HarnessFile,
		Limits:       req.Limits,
		Isolation:    DefaultIsolation(req.Image),
		ReportPath:   reportPath,
		Command:      req.Command,
	}

	e.emit(AuditEvent{Type: AuditContainerLaunched, JobID: jobID})

	result, err := e.docker.Run(ctx, job)

	e.emit(AuditEvent{Type: AuditContainerReaped, JobID: jobID})

	if err != nil {
		e.emit(AuditEvent{Type: AuditSandboxError, JobID: jobID, Message: err.Error()})
		return nil, err
	}

	if !result.HostTimeoutFired {
		if report, readErr := os.ReadFile(ws.ReportPath(reportPath)); readErr == nil {
			result.ReportBytes = report
		}
	}

	return result, nil
}
