// Package orchestrator implements the Submission Orchestrator (C8): the
// single entry point composing internal/compiler → internal/runner →
// internal/sandbox → internal/report → internal/verdict, persisting
// through internal/store. Grounded structurally on
// original_source/sandbox/utils.py's run_submission, which performs the
// same compile/resolve/generate/execute/classify/persist pipeline as one
// function; here it is split across the three operations spec.md §4.8
// names (compile_spec, store_ir, run_submission) but the composition order
// is unchanged.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"gradecore/internal/compiler"
	"gradecore/internal/ir"
	"gradecore/internal/report"
	"gradecore/internal/runner"
	"gradecore/internal/sandbox"
	"gradecore/internal/store"
	"gradecore/internal/verdict"
)

// sandboxExecutor is the seam between Orchestrator and internal/sandbox,
// satisfied by *sandbox.Executor; tests substitute a fake so RunSubmission
// is exercised without a real docker daemon, the same seam shape as
// internal/sandbox's own containerRunner interface.
type sandboxExecutor interface {
	Run(ctx context.Context, req sandbox.Request) (*sandbox.Result, error)
}

// Orchestrator composes the six components behind the three operations
// exposed to callers.
type Orchestrator struct {
	registry *runner.Registry
	cache    runner.Cache
	executor sandboxExecutor
	store    *store.Store
	runtimes []Runtime
}

// New builds an Orchestrator. registry is typically runner.Default();
// cache is usually a runner.TieredCache over a runner.MemCache and a
// store.HarnessCache so repeated generation is avoided across restarts.
func New(registry *runner.Registry, cache runner.Cache, executor *sandbox.Executor, st *store.Store, runtimes []Runtime) *Orchestrator {
	return &Orchestrator{registry: registry, cache: cache, executor: executor, store: st, runtimes: runtimes}
}

// newWithExecutor builds an Orchestrator against any sandboxExecutor,
// used by tests to inject a fake in place of a real *sandbox.Executor.
func newWithExecutor(registry *runner.Registry, cache runner.Cache, executor sandboxExecutor, st *store.Store, runtimes []Runtime) *Orchestrator {
	return &Orchestrator{registry: registry, cache: cache, executor: executor, store: st, runtimes: runtimes}
}

// CompileSpec runs C1+C2 (spec.md §4.8 bullet 1). It is a pure function of
// its input text — idempotent, as required.
func (o *Orchestrator) CompileSpec(rawText string) (*ir.IR, error) {
	return compiler.Compile(rawText)
}

// StoreIR persists a compiled problem, bumping ir_version only when the
// canonical IR bytes actually changed (spec.md §4.8 bullet 2, §8 invariant
// 3). rawText is the spec source that produced spec, kept for the
// problem record's raw_spec_text field.
func (o *Orchestrator) StoreIR(ctx context.Context, problemID, rawText string, spec *ir.IR, timeoutS, memoryMB int) (version int, bumped bool, err error) {
	canonical, err := spec.CanonicalBytes()
	if err != nil {
		return 0, false, fmt.Errorf("orchestrator: canonicalize IR for %s: %w", problemID, err)
	}
	return o.store.StoreIR(ctx, problemID, rawText, canonical, timeoutS, memoryMB)
}

// Submission is the normalized record returned by RunSubmission — the Go
// shape of spec.md §3's "Submission record".
type Submission struct {
	JobID        string
	ProblemID    string
	Runtime      string
	Status       verdict.Status
	Title        string
	Message      string
	Summary      report.Summary
	FirstFailure *verdict.FirstFailure
	DurationS    float64
	TimeoutS     int
	MemoryMB     int
	Debug        *verdict.DebugInfo
}

// RunSubmission implements spec.md §4.8 bullet 3 end to end: resolve the
// stored IR, resolve the runtime and limits, fetch or generate the
// harness, execute it in the sandbox, parse and classify the result, and
// persist the submission record.
func (o *Orchestrator) RunSubmission(ctx context.Context, req RunRequest) (*Submission, error) {
	problem, err := o.store.GetProblem(ctx, req.ProblemID)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: load problem %s: %w", req.ProblemID, err)
	}
	if problem == nil {
		return nil, &ProblemNotFound{ProblemID: req.ProblemID}
	}

	spec, err := ir.FromCanonicalBytes(problem.IRCanonical)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: decode stored IR for %s: %w", req.ProblemID, err)
	}

	rt, err := o.resolveRuntime(req)
	if err != nil {
		return nil, err
	}

	timeoutS, overallS, memoryMB := o.resolveLimits(req, problem)

	generate, err := o.registry.Lookup(rt.Language, spec.Type)
	if err != nil {
		return nil, err
	}

	cacheKey := runner.CacheKey(req.ProblemID, problem.IRCanonical, runner.GeneratorVersion, rt.Language)
	harnessSrc, ok := o.cache.Get(cacheKey)
	if !ok {
		harnessSrc, err = generate(spec)
		if err != nil {
			return nil, fmt.Errorf("orchestrator: generate harness for %s/%s: %w", req.ProblemID, rt.Language, err)
		}
		o.cache.Put(cacheKey, harnessSrc)
	}

	entryName := entryFileName(rt.Language)
	harnessName := harnessFileName(rt.Language)

	start := time.Now()
	result, err := o.executor.Run(ctx, sandbox.Request{
		EntryName:     entryName,
		EntrySource:   []byte(req.StudentSource),
		HarnessName:   harnessName,
		HarnessSource: harnessSrc,
		Image:         rt.Image,
		Command:       buildCommand(rt.Language, entryName, harnessName),
		Limits:        sandbox.Limits{TimeoutS: timeoutS, OverallTimeoutS: overallS, MemoryMB: memoryMB},
	})
	duration := time.Since(start).Seconds()

	var v *verdict.Verdict
	var reportBlob []byte
	if err != nil {
		// Launch/reap failure is itself a sandbox-error outcome, not a Go
		// error returned to the caller — every submission yields exactly
		// one verdict record (spec.md §7 "User-visible behavior").
		v = verdict.Classify(verdict.Execution{ReportPresent: false}, nil, req.Debug)
	} else {
		reportPresent := len(result.ReportBytes) > 0
		var summary *report.Summary
		if reportPresent {
			summary, err = report.Parse(result.ReportBytes)
			if err != nil {
				reportPresent = false
			} else {
				reportBlob = result.ReportBytes
			}
		}
		v = verdict.Classify(verdict.Execution{
			HostTimeoutFired: result.HostTimeoutFired,
			OOMKilled:        result.OOMKilled,
			ReportPresent:    reportPresent,
			Stdout:           result.StdoutBytes,
			Stderr:           result.StderrBytes,
		}, summary, req.Debug)
	}

	jobID := fmt.Sprintf("%s-%d", req.ProblemID, time.Now().UnixNano())
	firstTest, firstMsg := "", ""
	if v.FirstFailure != nil {
		firstTest, firstMsg = v.FirstFailure.Test, v.FirstFailure.Message
	}

	persistErr := o.store.InsertSubmission(ctx, store.SubmissionRecord{
		JobID:            jobID,
		ProblemID:        req.ProblemID,
		Runtime:          rt.ID,
		StudentSource:    req.StudentSource,
		Status:           string(v.Status),
		Tests:            v.Summary.Tests,
		Failures:         v.Summary.Failures,
		Errors:           v.Summary.Errors,
		TimeS:            v.Summary.TimeS,
		FirstFailureTest: firstTest,
		FirstFailureMsg:  firstMsg,
		ReportBlob:       reportBlob,
		DurationS:        duration,
		TimeoutS:         timeoutS,
		MemoryMB:         memoryMB,
	})
	if persistErr != nil {
		return nil, fmt.Errorf("orchestrator: persist submission %s: %w", jobID, persistErr)
	}

	return &Submission{
		JobID:        jobID,
		ProblemID:    req.ProblemID,
		Runtime:      rt.ID,
		Status:       v.Status,
		Title:        v.Title,
		Message:      v.Message,
		Summary:      v.Summary,
		FirstFailure: v.FirstFailure,
		DurationS:    duration,
		TimeoutS:     timeoutS,
		MemoryMB:     memoryMB,
		Debug:        v.Debug,
	}, nil
}

// resolveRuntime implements spec.md §4.8's ordered resolution: exact id,
// else language match, else auto-pick if exactly one runtime is
// configured, else MultipleRuntimes with the candidate set.
func (o *Orchestrator) resolveRuntime(req RunRequest) (Runtime, error) {
	if req.RuntimeID != "" {
		for _, rt := range o.runtimes {
			if rt.ID == req.RuntimeID {
				return rt, nil
			}
		}
		return Runtime{}, &MultipleRuntimes{Candidates: o.runtimes}
	}

	candidates := o.runtimes
	if req.Language != "" {
		candidates = nil
		for _, rt := range o.runtimes {
			if rt.Language == req.Language {
				candidates = append(candidates, rt)
			}
		}
	}

	if len(candidates) == 1 {
		return candidates[0], nil
	}
	return Runtime{}, &MultipleRuntimes{Candidates: candidates}
}

// resolveLimits implements the override ▷ problem default ▷ system default
// precedence (spec.md §4.8 bullet 3) and the overall-timeout default of
// 2×timeout_s unless the caller explicitly overrides it (spec.md §9 "Open
// question: overall-timeout default" — explicit override wins).
func (o *Orchestrator) resolveLimits(req RunRequest, problem *store.ProblemRecord) (timeoutS, overallS, memoryMB int) {
	timeoutS = firstPositive(req.TimeoutS, problem.TimeoutS, systemDefaultTimeoutS)
	memoryMB = firstPositive(req.MemoryMB, problem.MemoryMB, systemDefaultMemoryMB)
	overallS = firstPositive(req.OverallTimeoutS, 2*timeoutS)
	return
}

func firstPositive(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}

func entryFileName(language string) string {
	switch language {
	case "go":
		return "solution.go"
	default:
		return "solution.py"
	}
}

func harnessFileName(language string) string {
	switch language {
	case "go":
		return "runner.go"
	default:
		return "runner.py"
	}
}

// buildCommand builds the container's entry-point argv per runtime. Go is
// a compiled language and the workspace is mounted read-only, so the
// command builds the student and harness sources into the container's
// writable tmpfs before running the harness binary; Python runs its
// harness directly against the interpreter.
func buildCommand(language, entryName, harnessName string) []string {
	switch language {
	case "go":
		return []string{"sh", "-c", fmt.Sprintf(
			"go build -o /tmp/student_bin /workspace/student/%s && STUDENT_BIN=/tmp/student_bin go run /workspace/tests/%s",
			entryName, harnessName,
		)}
	default:
		return []string{"python3", "/workspace/tests/" + harnessName}
	}
}
