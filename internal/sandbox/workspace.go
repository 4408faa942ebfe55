package sandbox

import (
	"fmt"
	"os"
	"path/filepath"
)

// Workspace is the per-submission filesystem scaffold mounted into the
// sandbox (Glossary: Workspace). Staging is atomic from the caller's
// perspective: Stage either returns a fully-populated Workspace or cleans
// up after itself and returns a *Error (spec.md §4.5 "Staging is atomic").
type Workspace struct {
	Dir         string
	EntryFile   string // relative to Dir, e.g. "student/solution.py"
	HarnessFile string // relative to Dir, e.g. "tests/runner.py"
	ReportDir   string // host path mounted read-write at /report (everything else is read-only)
}

// Stage creates a fresh, uniquely-named directory under base (or the OS
// temp dir if base is empty) with "student/<entry>" and "tests/<harness>"
// subpaths populated, mirroring the layout spec.md §6 prescribes for the
// in-container view ("student code at /workspace/student/<entry>; tests at
// /workspace/tests/<harness>").
func Stage(jobID, base, entryName string, entrySource []byte, harnessName, harnessSource string) (*Workspace, error) {
	dir, err := os.MkdirTemp(base, "sandbox-"+jobID+"-")
	if err != nil {
		return nil, newError(jobID, "workspace staging failed", err)
	}

	ws := &Workspace{
		Dir:         dir,
		EntryFile:   filepath.Join("student", entryName),
		HarnessFile: filepath.Join("tests", harnessName),
		ReportDir:   filepath.Join(dir, "report"),
	}

	if err := ws.writeStaged(entrySource, harnessSource); err != nil {
		_ = os.RemoveAll(dir)
		return nil, newError(jobID, "workspace staging failed", err)
	}

	return ws, nil
}

func (w *Workspace) writeStaged(entrySource []byte, harnessSource string) error {
	studentDir := filepath.Join(w.Dir, "student")
	testsDir := filepath.Join(w.Dir, "tests")

	if err := os.MkdirAll(studentDir, 0o755); err != nil {
		return fmt.Errorf("create student dir: %w", err)
	}
	if err := os.MkdirAll(testsDir, 0o755); err != nil {
		return fmt.Errorf("create tests dir: %w", err)
	}
	if err := os.MkdirAll(w.ReportDir, 0o777); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	if err := os.WriteFile(filepath.Join(w.Dir, w.EntryFile), entrySource, 0o644); err != nil {
		return fmt.Errorf("write student entry: %w", err)
	}
	if err := os.WriteFile(filepath.Join(w.Dir, w.HarnessFile), []byte(harnessSource), 0o644); err != nil {
		return fmt.Errorf("write test harness: %w", err)
	}

	return nil
}

// ReportPath returns the absolute host path the executor should read once
// the container exits, given the in-container REPORT_PATH it was launched
// with. REPORT_PATH always names a file under the one read-write mount
// (/report); everything else in the container is read-only (spec.md §4.5
// "the workspace mounted read-only" combined with §6's report-emission
// requirement means the report's own mount must be the one exception).
func (w *Workspace) ReportPath(containerReportPath string) string {
	rel := filepath.Base(containerReportPath)
	return filepath.Join(w.ReportDir, rel)
}

// ContainerReportPath is the in-container path the harness is told to
// write its report to via the REPORT_PATH environment variable.
func ContainerReportPath() string {
	return "/report/report.xml"
}

// Destroy removes the workspace directory unconditionally. Callers MUST
// call this on every exit path (spec.md §4.5 "Reaping invariant").
func (w *Workspace) Destroy() error {
	if w == nil {
		return nil
	}
	return os.RemoveAll(w.Dir)
}
