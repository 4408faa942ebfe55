package orchestrator

import "fmt"

// Runtime is one configured (language, image) pairing the orchestrator can
// route a submission to. Spec.md §4.8 talks about "declared" runtimes
// without prescribing their shape; a system administrator configures the
// set at startup (mirrors the teacher's own pattern of a fixed,
// process-wide configuration loaded once — see internal/config).
type Runtime struct {
	ID       string
	Language string
	Image    string
}

// MultipleRuntimes is returned when submission routing cannot be resolved
// to exactly one runtime: the caller's (runtime, language) hints matched
// zero or more than one configured runtime (spec.md §4.8 bullet 3, §7
// taxonomy). Candidates holds every configured runtime when an unknown
// runtime id was requested, and otherwise the runtimes the hints matched,
// which is empty when a language hint matched none.
type MultipleRuntimes struct {
	Candidates []Runtime
}

func (e *MultipleRuntimes) Error() string {
	if len(e.Candidates) == 0 {
		return "orchestrator: no configured runtime matches the request"
	}
	ids := make([]string, len(e.Candidates))
	for i, c := range e.Candidates {
		ids[i] = c.ID
	}
	return fmt.Sprintf("orchestrator: ambiguous runtime selection, candidates: %v", ids)
}

// ProblemNotFound is returned when run_submission names a problem id that
// has never been compiled and stored.
type ProblemNotFound struct {
	ProblemID string
}

func (e *ProblemNotFound) Error() string {
	return fmt.Sprintf("orchestrator: no stored problem with id %q", e.ProblemID)
}

// RunRequest is the input to run_submission (spec.md §4.8 bullet 3); all
// fields except ProblemID and StudentSource are optional overrides.
type RunRequest struct {
	ProblemID       string
	StudentSource   string
	Language        string
	RuntimeID       string
	TimeoutS        int
	OverallTimeoutS int
	MemoryMB        int
	Debug           bool
}

// system default limits, used when neither the caller nor the problem
// record supplies a value (spec.md §4.8 "system default: timeout_s=5,
// memory_mb=128-256").
const (
	systemDefaultTimeoutS = 5
	systemDefaultMemoryMB = 128
)
