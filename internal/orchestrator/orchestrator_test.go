package orchestrator

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"gradecore/internal/runner"
	"gradecore/internal/sandbox"
	"gradecore/internal/store"
)

const addSpec = `
type: standardIo
description: add two numbers
tests:
  - name: add
    stdin: "2\n3\n"
    stdout: "5"
`

type fakeExecutor struct {
	result *sandbox.Result
	err    error
}

func (f *fakeExecutor) Run(ctx context.Context, req sandbox.Request) (*sandbox.Result, error) {
	return f.result, f.err
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "gradecore.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func compileAndStore(t *testing.T, o *Orchestrator, problemID, specText string) {
	t.Helper()
	spec, err := o.CompileSpec(specText)
	require.NoError(t, err)
	_, bumped, err := o.StoreIR(context.Background(), problemID, specText, spec, 5, 128)
	require.NoError(t, err)
	require.True(t, bumped)
}

func TestRunSubmissionPassedEndToEnd(t *testing.T) {
	st := newTestStore(t)
	passingReport := `<testsuite name="StandardIOTests" tests="1" failures="0" errors="0" time="0.01">
  <testcase name="add" time="0.01"/>
</testsuite>`
	exec := &fakeExecutor{result: &sandbox.Result{ReportBytes: []byte(passingReport)}}
	o := newWithExecutor(runner.Default(), runner.NewMemCache(), exec, st,
		[]Runtime{{ID: "python-3.12", Language: "python", Image: "python:3.12-slim"}})

	compileAndStore(t, o, "prob-add", addSpec)

	sub, err := o.RunSubmission(context.Background(), RunRequest{ProblemID: "prob-add", StudentSource: "print(5)"})
	require.NoError(t, err)
	require.EqualValues(t, "passed", sub.Status)
	require.Equal(t, 1, sub.Summary.Tests)
	require.Equal(t, "python-3.12", sub.Runtime)
}

func TestRunSubmissionFailed(t *testing.T) {
	st := newTestStore(t)
	failingReport := `<testsuite name="StandardIOTests" tests="1" failures="1" errors="0" time="0.01">
  <testcase name="add" time="0.01">
    <failure message="stdout mismatch" type="AssertionError">expected 5\ngot 6</failure>
  </testcase>
</testsuite>`
	exec := &fakeExecutor{result: &sandbox.Result{ReportBytes: []byte(failingReport)}}
	o := newWithExecutor(runner.Default(), runner.NewMemCache(), exec, st,
		[]Runtime{{ID: "python-3.12", Language: "python", Image: "python:3.12-slim"}})

	compileAndStore(t, o, "prob-add", addSpec)

	sub, err := o.RunSubmission(context.Background(), RunRequest{ProblemID: "prob-add", StudentSource: "print(6)"})
	require.NoError(t, err)
	require.EqualValues(t, "failed", sub.Status)
	require.NotNil(t, sub.FirstFailure)
}

func TestRunSubmissionProblemNotFoundIsTypedError(t *testing.T) {
	st := newTestStore(t)
	o := newWithExecutor(runner.Default(), runner.NewMemCache(), &fakeExecutor{}, st,
		[]Runtime{{ID: "python-3.12", Language: "python", Image: "python:3.12-slim"}})

	_, err := o.RunSubmission(context.Background(), RunRequest{ProblemID: "missing", StudentSource: "x"})
	require.Error(t, err)
	var notFound *ProblemNotFound
	require.ErrorAs(t, err, &notFound)
}

func TestRunSubmissionSandboxErrorYieldsVerdictNotGoError(t *testing.T) {
	st := newTestStore(t)
	exec := &fakeExecutor{err: &sandbox.Error{JobID: "j", Reason: "docker unavailable"}}
	o := newWithExecutor(runner.Default(), runner.NewMemCache(), exec, st,
		[]Runtime{{ID: "python-3.12", Language: "python", Image: "python:3.12-slim"}})

	compileAndStore(t, o, "prob-add", addSpec)

	sub, err := o.RunSubmission(context.Background(), RunRequest{ProblemID: "prob-add", StudentSource: "print(5)"})
	require.NoError(t, err, "a sandbox failure is a normal verdict, not a Go error")
	require.EqualValues(t, "sandbox-error", sub.Status)
}

func TestResolveRuntimeAutoPicksSoleConfiguredRuntime(t *testing.T) {
	o := &Orchestrator{runtimes: []Runtime{{ID: "only-one", Language: "python"}}}
	rt, err := o.resolveRuntime(RunRequest{})
	require.NoError(t, err)
	require.Equal(t, "only-one", rt.ID)
}

func TestResolveRuntimeExactIDWins(t *testing.T) {
	o := &Orchestrator{runtimes: []Runtime{
		{ID: "py312", Language: "python"},
		{ID: "go122", Language: "go"},
	}}
	rt, err := o.resolveRuntime(RunRequest{RuntimeID: "go122"})
	require.NoError(t, err)
	require.Equal(t, "go122", rt.ID)
}

func TestResolveRuntimeByLanguageWhenUnambiguous(t *testing.T) {
	o := &Orchestrator{runtimes: []Runtime{
		{ID: "py312", Language: "python"},
		{ID: "go122", Language: "go"},
	}}
	rt, err := o.resolveRuntime(RunRequest{Language: "go"})
	require.NoError(t, err)
	require.Equal(t, "go122", rt.ID)
}

func TestResolveRuntimeAmbiguousReturnsMultipleRuntimes(t *testing.T) {
	o := &Orchestrator{runtimes: []Runtime{
		{ID: "py311", Language: "python"},
		{ID: "py312", Language: "python"},
	}}
	_, err := o.resolveRuntime(RunRequest{Language: "python"})
	require.Error(t, err)
	var multi *MultipleRuntimes
	require.ErrorAs(t, err, &multi)
	require.Len(t, multi.Candidates, 2)
}

func TestResolveLimitsPrecedenceOverrideBeatsProblemBeatsSystemDefault(t *testing.T) {
	o := &Orchestrator{}
	problem := &store.ProblemRecord{TimeoutS: 8, MemoryMB: 256}

	timeoutS, overallS, memoryMB := o.resolveLimits(RunRequest{}, problem)
	require.Equal(t, 8, timeoutS)
	require.Equal(t, 256, memoryMB)
	require.Equal(t, 16, overallS, "overall defaults to 2x timeout when not overridden")

	timeoutS, overallS, memoryMB = o.resolveLimits(RunRequest{TimeoutS: 3, OverallTimeoutS: 20, MemoryMB: 64}, problem)
	require.Equal(t, 3, timeoutS)
	require.Equal(t, 64, memoryMB)
	require.Equal(t, 20, overallS, "explicit override wins over the 2x default")
}

func TestResolveLimitsFallsBackToSystemDefaultWhenProblemHasNone(t *testing.T) {
	o := &Orchestrator{}
	timeoutS, _, memoryMB := o.resolveLimits(RunRequest{}, &store.ProblemRecord{})
	require.Equal(t, systemDefaultTimeoutS, timeoutS)
	require.Equal(t, systemDefaultMemoryMB, memoryMB)
}
