// Package store persists problems, generated-harness cache entries, and
// submission records in SQLite (spec.md §3 "Data model"), following the
// teacher's internal/store pattern of a single *sql.DB wrapped by a
// narrow domain-specific API rather than a generic ORM.
package store

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// Store wraps the SQLite connection backing the grading service's
// persisted state. One Store is shared process-wide; per-problem
// compare-and-swap on ir_version is guarded by problemLocks, grounded on
// LocalStore's single-writer-connection discipline
// (db.SetMaxOpenConns(1)) in the teacher's internal/store/local_core.go.
type Store struct {
	db *sql.DB

	mu           sync.Mutex
	problemLocks map[string]*sync.Mutex
}

// Open creates (if needed) the directory for path and opens/initializes
// the SQLite database there.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open database at %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: %s: %w", pragma, err)
		}
	}

	s := &Store{db: db, problemLocks: make(map[string]*sync.Mutex)}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initialize() error {
	const schema = `
CREATE TABLE IF NOT EXISTS problems (
	id             TEXT PRIMARY KEY,
	raw_spec_text  TEXT NOT NULL,
	ir_canonical   BLOB NOT NULL,
	ir_version     INTEGER NOT NULL,
	compiled_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	timeout_s      INTEGER NOT NULL,
	memory_mb      INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS harness_cache (
	cache_key     TEXT PRIMARY KEY,
	content       TEXT NOT NULL,
	generated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS submissions (
	job_id                  TEXT PRIMARY KEY,
	problem_id              TEXT NOT NULL,
	runtime                 TEXT NOT NULL,
	student_source          TEXT NOT NULL,
	status                  TEXT NOT NULL,
	tests                   INTEGER NOT NULL,
	failures                INTEGER NOT NULL,
	errors                  INTEGER NOT NULL,
	time_s                  REAL NOT NULL,
	first_failure_test      TEXT,
	first_failure_message   TEXT,
	report_blob             BLOB,
	stdout_tail             TEXT,
	stderr_tail             TEXT,
	duration_s              REAL NOT NULL,
	timeout_s               INTEGER NOT NULL,
	memory_mb               INTEGER NOT NULL,
	created_at              DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_submissions_problem ON submissions(problem_id);
`
	_, err := s.db.Exec(schema)
	return err
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) lockFor(problemID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.problemLocks[problemID]
	if !ok {
		lock = &sync.Mutex{}
		s.problemLocks[problemID] = lock
	}
	return lock
}

// ProblemRecord is the persisted shape spec.md §3 describes for a compiled
// problem.
type ProblemRecord struct {
	ID          string
	RawSpecText string
	IRCanonical []byte
	IRVersion   int
	TimeoutS    int
	MemoryMB    int
}

// StoreIR persists a problem's canonical IR bytes, bumping ir_version only
// when the content actually differs from what is already stored (spec.md
// §3 "ir_version increments only when ir content differs"; §8 invariant
// 3). The per-problem mutex plus a version-matched UPDATE give the
// compare-and-swap discipline spec.md §5 "Locking discipline" requires —
// the in-process mutex handles the common case, the WHERE clause catches
// a second Store instance racing against the same row.
func (s *Store) StoreIR(ctx context.Context, problemID, rawSpecText string, irCanonical []byte, timeoutS, memoryMB int) (version int, bumped bool, err error) {
	lock := s.lockFor(problemID)
	lock.Lock()
	defer lock.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("store: begin StoreIR transaction: %w", err)
	}
	defer tx.Rollback()

	var existing []byte
	var existingVersion int
	row := tx.QueryRowContext(ctx, `SELECT ir_canonical, ir_version FROM problems WHERE id = ?`, problemID)
	switch scanErr := row.Scan(&existing, &existingVersion); scanErr {
	case sql.ErrNoRows:
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO problems (id, raw_spec_text, ir_canonical, ir_version, timeout_s, memory_mb) VALUES (?, ?, ?, 1, ?, ?)`,
			problemID, rawSpecText, irCanonical, timeoutS, memoryMB,
		); err != nil {
			return 0, false, fmt.Errorf("store: insert problem %s: %w", problemID, err)
		}
		if err := tx.Commit(); err != nil {
			return 0, false, fmt.Errorf("store: commit StoreIR insert: %w", err)
		}
		return 1, true, nil

	case nil:
		if bytes.Equal(existing, irCanonical) {
			if err := tx.Commit(); err != nil {
				return 0, false, fmt.Errorf("store: commit StoreIR no-op: %w", err)
			}
			return existingVersion, false, nil
		}

		newVersion := existingVersion + 1
		result, err := tx.ExecContext(ctx,
			`UPDATE problems SET raw_spec_text = ?, ir_canonical = ?, ir_version = ?, timeout_s = ?, memory_mb = ?, compiled_at = CURRENT_TIMESTAMP
			 WHERE id = ? AND ir_version = ?`,
			rawSpecText, irCanonical, newVersion, timeoutS, memoryMB, problemID, existingVersion,
		)
		if err != nil {
			return 0, false, fmt.Errorf("store: update problem %s: %w", problemID, err)
		}
		affected, _ := result.RowsAffected()
		if affected == 0 {
			return 0, false, fmt.Errorf("store: ir_version compare-and-swap lost the race for problem %s", problemID)
		}
		if err := tx.Commit(); err != nil {
			return 0, false, fmt.Errorf("store: commit StoreIR update: %w", err)
		}
		return newVersion, true, nil

	default:
		return 0, false, fmt.Errorf("store: read problem %s: %w", problemID, scanErr)
	}
}

// GetProblem fetches the current problem record, or (nil, nil) if no
// problem with that id has ever been stored.
func (s *Store) GetProblem(ctx context.Context, problemID string) (*ProblemRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, raw_spec_text, ir_canonical, ir_version, timeout_s, memory_mb FROM problems WHERE id = ?`, problemID)

	rec := &ProblemRecord{}
	err := row.Scan(&rec.ID, &rec.RawSpecText, &rec.IRCanonical, &rec.IRVersion, &rec.TimeoutS, &rec.MemoryMB)
	switch err {
	case nil:
		return rec, nil
	case sql.ErrNoRows:
		return nil, nil
	default:
		return nil, fmt.Errorf("store: read problem %s: %w", problemID, err)
	}
}

// SubmissionRecord is the append-only record spec.md §3 describes for one
// graded submission.
type SubmissionRecord struct {
	JobID            string
	ProblemID        string
	Runtime          string
	StudentSource    string
	Status           string
	Tests            int
	Failures         int
	Errors           int
	TimeS            float64
	FirstFailureTest string
	FirstFailureMsg  string
	ReportBlob       []byte
	StdoutTail       string
	StderrTail       string
	DurationS        float64
	TimeoutS         int
	MemoryMB         int
}

// InsertSubmission appends one submission record. Submissions are never
// updated in place (spec.md §3 "Records are append-only").
func (s *Store) InsertSubmission(ctx context.Context, rec SubmissionRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO submissions (
			job_id, problem_id, runtime, student_source, status,
			tests, failures, errors, time_s,
			first_failure_test, first_failure_message,
			report_blob, stdout_tail, stderr_tail,
			duration_s, timeout_s, memory_mb
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.JobID, rec.ProblemID, rec.Runtime, rec.StudentSource, rec.Status,
		rec.Tests, rec.Failures, rec.Errors, rec.TimeS,
		nullable(rec.FirstFailureTest), nullable(rec.FirstFailureMsg),
		rec.ReportBlob, rec.StdoutTail, rec.StderrTail,
		rec.DurationS, rec.TimeoutS, rec.MemoryMB,
	)
	if err != nil {
		return fmt.Errorf("store: insert submission %s: %w", rec.JobID, err)
	}
	return nil
}

// GetSubmission fetches one submission record by job id.
func (s *Store) GetSubmission(ctx context.Context, jobID string) (*SubmissionRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT job_id, problem_id, runtime, student_source, status,
		       tests, failures, errors, time_s,
		       COALESCE(first_failure_test, ''), COALESCE(first_failure_message, ''),
		       report_blob, stdout_tail, stderr_tail,
		       duration_s, timeout_s, memory_mb
		FROM submissions WHERE job_id = ?`, jobID)

	rec := &SubmissionRecord{}
	err := row.Scan(
		&rec.JobID, &rec.ProblemID, &rec.Runtime, &rec.StudentSource, &rec.Status,
		&rec.Tests, &rec.Failures, &rec.Errors, &rec.TimeS,
		&rec.FirstFailureTest, &rec.FirstFailureMsg,
		&rec.ReportBlob, &rec.StdoutTail, &rec.StderrTail,
		&rec.DurationS, &rec.TimeoutS, &rec.MemoryMB,
	)
	switch err {
	case nil:
		return rec, nil
	case sql.ErrNoRows:
		return nil, nil
	default:
		return nil, fmt.Errorf("store: read submission %s: %w", jobID, err)
	}
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
