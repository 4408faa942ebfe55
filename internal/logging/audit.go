// Package logging also provides audit logging: one JSON line per submission
// lifecycle event, for operators replaying what happened to a given job_id.
package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// AuditEventType names a submission lifecycle event.
type AuditEventType string

const (
	AuditSpecCompiled     AuditEventType = "spec_compiled"
	AuditIRStored         AuditEventType = "ir_stored"
	AuditHarnessGenerated AuditEventType = "harness_generated"
	AuditHarnessCacheHit  AuditEventType = "harness_cache_hit"
	AuditSandboxLaunch    AuditEventType = "sandbox_launch"
	AuditSandboxExit      AuditEventType = "sandbox_exit"
	AuditVerdictClassified AuditEventType = "verdict_classified"
	AuditSubmissionStored AuditEventType = "submission_stored"
)

// AuditEvent is a structured audit log entry.
type AuditEvent struct {
	Timestamp  int64                  `json:"ts"`
	EventType  AuditEventType         `json:"event"`
	ProblemID  string                 `json:"problem_id,omitempty"`
	JobID      string                 `json:"job_id,omitempty"`
	Runtime    string                 `json:"runtime,omitempty"`
	Success    bool                   `json:"success"`
	DurationMs int64                  `json:"dur_ms,omitempty"`
	Error      string                 `json:"error,omitempty"`
	Message    string                 `json:"msg"`
	Fields     map[string]interface{} `json:"fields,omitempty"`
}

var (
	auditFile *os.File
	auditMu   sync.Mutex
)

// InitAudit opens the audit log for the day, a no-op when debug mode is
// disabled.
func InitAudit() error {
	if !IsDebugMode() {
		return nil
	}

	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile != nil {
		return nil
	}

	date := time.Now().Format("2006-01-02")
	auditPath := filepath.Join(logsDir, fmt.Sprintf("%s_audit.log", date))

	file, err := os.OpenFile(auditPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	auditFile = file

	header := fmt.Sprintf("# gradecore audit log started at %s\n", time.Now().Format(time.RFC3339))
	auditFile.WriteString(header)
	return nil
}

// CloseAudit closes the audit log file.
func CloseAudit() {
	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile != nil {
		auditFile.Close()
		auditFile = nil
	}
}

// AuditLogger scopes audit events to a problem/job pair.
type AuditLogger struct {
	problemID string
	jobID     string
}

// AuditForJob scopes an audit logger to one submission's lifecycle.
func AuditForJob(problemID, jobID string) *AuditLogger {
	return &AuditLogger{problemID: problemID, jobID: jobID}
}

// Log writes an audit event, a no-op when the audit file isn't open.
func (a *AuditLogger) Log(event AuditEvent) {
	if !IsDebugMode() || auditFile == nil {
		return
	}

	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}
	if event.ProblemID == "" {
		event.ProblemID = a.problemID
	}
	if event.JobID == "" {
		event.JobID = a.jobID
	}

	auditMu.Lock()
	defer auditMu.Unlock()

	data, err := json.Marshal(event)
	if err == nil {
		auditFile.WriteString(string(data) + "\n")
	}
}

// SpecCompiled logs a successful compile_spec call.
func (a *AuditLogger) SpecCompiled(durationMs int64) {
	a.Log(AuditEvent{
		EventType:  AuditSpecCompiled,
		Success:    true,
		DurationMs: durationMs,
		Message:    fmt.Sprintf("spec compiled for %s", a.problemID),
	})
}

// IRStored logs a store_ir call and whether it bumped ir_version.
func (a *AuditLogger) IRStored(version int, bumped bool) {
	a.Log(AuditEvent{
		EventType: AuditIRStored,
		Success:   true,
		Fields:    map[string]interface{}{"ir_version": version, "bumped": bumped},
		Message:   fmt.Sprintf("ir stored for %s at version %d (bumped=%v)", a.problemID, version, bumped),
	})
}

// HarnessGenerated logs a harness-cache miss that required generation.
func (a *AuditLogger) HarnessGenerated(runtime string, durationMs int64) {
	a.Log(AuditEvent{
		EventType:  AuditHarnessGenerated,
		Runtime:    runtime,
		Success:    true,
		DurationMs: durationMs,
		Message:    fmt.Sprintf("harness generated for %s/%s", a.problemID, runtime),
	})
}

// HarnessCacheHit logs a harness-cache hit.
func (a *AuditLogger) HarnessCacheHit(runtime string) {
	a.Log(AuditEvent{
		EventType: AuditHarnessCacheHit,
		Runtime:   runtime,
		Success:   true,
		Message:   fmt.Sprintf("harness cache hit for %s/%s", a.problemID, runtime),
	})
}

// SandboxLaunch logs the start of a sandboxed execution.
func (a *AuditLogger) SandboxLaunch(runtime string) {
	a.Log(AuditEvent{
		EventType: AuditSandboxLaunch,
		Runtime:   runtime,
		Success:   true,
		Message:   fmt.Sprintf("sandbox launched for job %s", a.jobID),
	})
}

// SandboxExit logs the end of a sandboxed execution, success or not.
func (a *AuditLogger) SandboxExit(durationMs int64, success bool, errMsg string) {
	a.Log(AuditEvent{
		EventType:  AuditSandboxExit,
		Success:    success,
		DurationMs: durationMs,
		Error:      errMsg,
		Message:    fmt.Sprintf("sandbox exited for job %s (success=%v, %dms)", a.jobID, success, durationMs),
	})
}

// VerdictClassified logs the final classification assigned to a job.
func (a *AuditLogger) VerdictClassified(status string) {
	a.Log(AuditEvent{
		EventType: AuditVerdictClassified,
		Success:   true,
		Fields:    map[string]interface{}{"status": status},
		Message:   fmt.Sprintf("job %s classified as %s", a.jobID, status),
	})
}

// SubmissionStored logs a completed persistence write.
func (a *AuditLogger) SubmissionStored() {
	a.Log(AuditEvent{
		EventType: AuditSubmissionStored,
		Success:   true,
		Message:   fmt.Sprintf("submission %s persisted", a.jobID),
	})
}
