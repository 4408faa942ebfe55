package verdict_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"gradecore/internal/report"
	"gradecore/internal/verdict"
)

func TestClassifyPassed(t *testing.T) {
	summary := &report.Summary{Tests: 1, Failures: 0, Errors: 0}
	v := verdict.Classify(verdict.Execution{ReportPresent: true}, summary, false)
	require.Equal(t, verdict.StatusPassed, v.Status)
	require.Nil(t, v.FirstFailure)
}

func TestClassifyFailed(t *testing.T) {
	summary := &report.Summary{
		Tests: 1, Failures: 1,
		First: &report.Failure{Test: "base", Message: "values differ"},
	}
	v := verdict.Classify(verdict.Execution{ReportPresent: true}, summary, false)
	require.Equal(t, verdict.StatusFailed, v.Status)
	require.Equal(t, "base", v.FirstFailure.Test)
}

func TestClassifyErrorTakesPrecedenceOverFailures(t *testing.T) {
	summary := &report.Summary{Tests: 2, Failures: 1, Errors: 1}
	v := verdict.Classify(verdict.Execution{ReportPresent: true}, summary, false)
	require.Equal(t, verdict.StatusError, v.Status)
}

func TestClassifyHostTimeoutWithoutReportIsTimeout(t *testing.T) {
	v := verdict.Classify(verdict.Execution{HostTimeoutFired: true, ReportPresent: false}, nil, false)
	require.Equal(t, verdict.StatusTimeout, v.Status)
}

func TestClassifyMissingReportWithoutHostTimeoutIsSandboxError(t *testing.T) {
	v := verdict.Classify(verdict.Execution{ReportPresent: false}, nil, false)
	require.Equal(t, verdict.StatusSandboxError, v.Status)
}

func TestClassifyFailedMessageMentioningTimeoutReclassifies(t *testing.T) {
	summary := &report.Summary{
		Tests: 1, Failures: 1,
		First: &report.Failure{Test: "slow_case", Message: "Timeout waiting for process", Details: ""},
	}
	v := verdict.Classify(verdict.Execution{ReportPresent: true}, summary, false)
	require.Equal(t, verdict.StatusTimeout, v.Status)
}

func TestClassifyFailedDetailsMentioningTimeoutReclassifiesCaseInsensitive(t *testing.T) {
	summary := &report.Summary{
		Tests: 1, Failures: 1,
		First: &report.Failure{Test: "slow_case", Message: "assertion failed", Details: "subprocess TIMEOUT after 1s"},
	}
	v := verdict.Classify(verdict.Execution{ReportPresent: true}, summary, false)
	require.Equal(t, verdict.StatusTimeout, v.Status)
}

func TestClassifyErrorMentioningTimeoutIsNotReclassified(t *testing.T) {
	summary := &report.Summary{
		Tests: 1, Errors: 1,
		First: &report.Failure{Test: "t", Message: "connection timeout in setup"},
	}
	v := verdict.Classify(verdict.Execution{ReportPresent: true}, summary, false)
	require.Equal(t, verdict.StatusError, v.Status, "rule 4 only reclassifies failed, not error")
}

func TestClassifyOOMOverridesEverything(t *testing.T) {
	summary := &report.Summary{Tests: 1, Failures: 1, First: &report.Failure{Test: "t", Message: "boom"}}
	v := verdict.Classify(verdict.Execution{ReportPresent: true, OOMKilled: true}, summary, false)
	require.Equal(t, verdict.StatusOOM, v.Status)
}

func TestClassifyOOMOverridesHostTimeout(t *testing.T) {
	v := verdict.Classify(verdict.Execution{HostTimeoutFired: true, OOMKilled: true}, nil, false)
	require.Equal(t, verdict.StatusOOM, v.Status)
}

func TestClassifyDebugFalseOmitsRawDetails(t *testing.T) {
	summary := &report.Summary{Tests: 1, Failures: 1, First: &report.Failure{Test: "t", Message: "m", Details: "raw stack"}}
	v := verdict.Classify(verdict.Execution{ReportPresent: true, Stdout: []byte("out"), Stderr: []byte("err")}, summary, false)
	require.Nil(t, v.Debug)
}

func TestClassifyDebugTrueIncludesRawDetails(t *testing.T) {
	summary := &report.Summary{Tests: 1, Failures: 1, First: &report.Failure{Test: "t", Message: "m", Details: "raw stack"}}
	v := verdict.Classify(verdict.Execution{ReportPresent: true, Stdout: []byte("out"), Stderr: []byte("err")}, summary, true)
	require.NotNil(t, v.Debug)
	require.Equal(t, "raw stack", v.Debug.Details)
	require.Equal(t, "out", v.Debug.Stdout)
	require.Equal(t, "err", v.Debug.Stderr)
}

func TestClassifyStatusAlwaysInClosedSet(t *testing.T) {
	allowed := map[verdict.Status]bool{
		verdict.StatusPassed: true, verdict.StatusFailed: true, verdict.StatusError: true,
		verdict.StatusTimeout: true, verdict.StatusOOM: true, verdict.StatusSandboxError: true,
		verdict.StatusUnknown: true,
	}
	cases := []*verdict.Verdict{
		verdict.Classify(verdict.Execution{ReportPresent: true}, &report.Summary{}, false),
		verdict.Classify(verdict.Execution{}, nil, false),
		verdict.Classify(verdict.Execution{HostTimeoutFired: true}, nil, false),
		verdict.Classify(verdict.Execution{OOMKilled: true}, &report.Summary{Failures: 1}, false),
	}
	for _, v := range cases {
		require.True(t, allowed[v.Status], "status %q not in the closed set", v.Status)
	}
}
