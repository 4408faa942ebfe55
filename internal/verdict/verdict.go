// Package verdict classifies a submission's raw execution-and-report
// bundle into the normalized outcome spec.md §4.7 describes, and builds
// the compact, student-facing record returned to the caller.
package verdict

import (
	"fmt"
	"strings"

	"gradecore/internal/report"
)

// Status is the closed set a verdict's outcome belongs to (spec.md §8
// invariant 6).
type Status string

const (
	StatusPassed       Status = "passed"
	StatusFailed       Status = "failed"
	StatusError        Status = "error"
	StatusTimeout      Status = "timeout"
	StatusOOM          Status = "oom"
	StatusSandboxError Status = "sandbox-error"
	StatusUnknown      Status = "unknown"
)

// Execution is the subset of a sandbox run's outcome the classifier needs:
// whether the host-side clock fired, whether the container was OOM-killed,
// and whether a report file was actually produced. It is deliberately
// decoupled from internal/sandbox.Result so this package can be unit
// tested against literal scenarios without constructing a full sandbox
// run.
type Execution struct {
	HostTimeoutFired bool
	OOMKilled        bool
	ReportPresent    bool
	Stdout           []byte
	Stderr           []byte
}

// Verdict is the normalized, student-facing outcome of one submission.
type Verdict struct {
	Status  Status
	Title   string
	Message string
	Summary report.Summary

	// FirstFailure is the first failing/erroring test's name and message,
	// never raw stack details, per spec.md §4.7.
	FirstFailure *FirstFailure

	// Debug carries raw details and is populated only when the caller
	// passes debug=true to Classify (spec.md §7 "raw stack traces and
	// container stderr are surfaced only when the caller explicitly
	// requests debug output").
	Debug *DebugInfo
}

// FirstFailure is the student-visible summary of the first failing case.
type FirstFailure struct {
	Test    string
	Message string
}

// DebugInfo carries raw diagnostic content, gated behind an explicit
// caller flag.
type DebugInfo struct {
	Details string
	Stdout  string
	Stderr  string
}

// Classify implements spec.md §4.7's five ordered rules. summary is nil
// when exec.ReportPresent is false; callers must not call report.Parse at
// all when the report file was never written, since a missing file is not
// a parser-level condition (spec.md §4.6).
func Classify(exec Execution, summary *report.Summary, debug bool) *Verdict {
	var status Status

	switch {
	case exec.HostTimeoutFired && !exec.ReportPresent:
		status = StatusTimeout
	case !exec.ReportPresent:
		status = StatusSandboxError
	case summary.Errors > 0:
		status = StatusError
	case summary.Failures > 0:
		status = StatusFailed
	default:
		status = StatusPassed
	}

	var first *report.Failure
	if summary != nil {
		first = summary.First
	}

	if status == StatusFailed && first != nil && mentionsTimeout(first) {
		status = StatusTimeout
	}

	if exec.OOMKilled {
		status = StatusOOM
	}

	v := &Verdict{Status: status}
	if summary != nil {
		v.Summary = *summary
	}
	if first != nil {
		v.FirstFailure = &FirstFailure{Test: first.Test, Message: first.Message}
	}

	v.Title, v.Message = describe(status, v.FirstFailure)

	if debug {
		v.Debug = &DebugInfo{Stdout: string(exec.Stdout), Stderr: string(exec.Stderr)}
		if first != nil {
			v.Debug.Details = first.Details
		}
	}

	return v
}

func mentionsTimeout(f *report.Failure) bool {
	haystack := strings.ToLower(f.Message + " " + f.Details)
	return strings.Contains(haystack, "timeout")
}

func describe(status Status, first *FirstFailure) (title, message string) {
	switch status {
	case StatusPassed:
		return "Passed", "All tests passed."
	case StatusFailed:
		if first != nil {
			return "Failed", fmt.Sprintf("%s: %s", first.Test, first.Message)
		}
		return "Failed", "One or more tests failed."
	case StatusError:
		if first != nil {
			return "Error", fmt.Sprintf("%s raised an unexpected error: %s", first.Test, first.Message)
		}
		return "Error", "The submission raised an unexpected error."
	case StatusTimeout:
		return "Timed out", "The submission did not finish within the time limit."
	case StatusOOM:
		return "Out of memory", "The submission exceeded its memory limit."
	case StatusSandboxError:
		return "Could not be graded", "Grading could not complete due to an internal error. Please try again."
	default:
		return "Unknown", "The submission result could not be determined."
	}
}
