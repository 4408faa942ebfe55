package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"
)

// hostTimeoutGrace is added on top of a job's overall budget before the
// executor force-kills the container process itself (spec.md §4.5: "the
// executor also applies a host-side wall-clock of
// max(2, overall_timeout_s + grace)").
const hostTimeoutGrace = 5 * time.Second

// Docker drives a single container per job through the docker CLI. It
// mirrors internal/tactile's DockerExecutor's detect/buildArgs/Execute
// shape, narrowed to the one isolation profile spec.md §4.5 mandates (every
// run gets every isolation flag; there is no per-job opt-out).
type Docker struct {
	mu         sync.RWMutex
	dockerPath string
	available  bool
}

// NewDocker probes for a usable docker binary at construction time, the
// same way internal/tactile.DockerExecutor.detectDocker does.
func NewDocker() *Docker {
	d := &Docker{}
	d.detect()
	return d
}

func (d *Docker) detect() {
	path, err := exec.LookPath("docker")
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := exec.CommandContext(ctx, path, "version", "--format", "{{.Server.Version}}").Run(); err != nil {
		return
	}
	d.dockerPath = path
	d.available = true
}

func (d *Docker) IsAvailable() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.available
}

// containerName derives a unique name from (host pid, a nanosecond
// timestamp, job id) so reaping is unambiguous even under concurrent runs
// (spec.md §4.5).
func containerName(jobID string) string {
	return fmt.Sprintf("gradecore-%d-%d-%s", os.Getpid(), time.Now().UnixNano(), jobID)
}

// buildArgs constructs the `docker run` argument list implementing every
// isolation flag spec.md §4.5 requires simultaneously.
func (d *Docker) buildArgs(job Job, name string) []string {
	args := []string{
		"run", "--rm",
		"--name", name,
		"--network", "none",
		"--read-only",
		"--security-opt", "no-new-privileges",
		"--pids-limit", "64",
		"--cpu-period", "100000",
		"--cpu-quota", "100000", // ≤ 1 CPU
	}

	for _, cap := range job.Isolation.DropCapabilities {
		args = append(args, "--cap-drop", cap)
	}
	if job.Isolation.User != "" {
		args = append(args, "--user", job.Isolation.User)
	}

	tmpfsSize := job.Isolation.TmpfsSizeMB
	if tmpfsSize <= 0 || tmpfsSize > 64 {
		tmpfsSize = 64
	}
	args = append(args, "--tmpfs", fmt.Sprintf("/tmp:size=%dm,noexec,nosuid,nodev", tmpfsSize))

	if job.Limits.MemoryMB > 0 {
		mem := fmt.Sprintf("%dm", job.Limits.MemoryMB)
		args = append(args, "--memory", mem, "--memory-swap", mem)
	}

	args = append(args, "-v", job.WorkspaceDir+":/workspace:ro")
	if job.ReportDir != "" {
		args = append(args, "-v", job.ReportDir+":/report:rw")
	}

	args = append(args,
		"-e", "RUN_TIMEOUT="+strconv.Itoa(job.Limits.TimeoutS),
		"-e", "REPORT_PATH="+job.ReportPath,
	)

	args = append(args, image(job))
	args = append(args, job.Command...)

	return args
}

func image(job Job) string {
	if job.Isolation.Image != "" {
		return job.Isolation.Image
	}
	return "python:3.12-slim"
}

// Run launches job's container, waits (bounded by the host wall clock),
// and returns the captured Result. The report file itself is read by the
// caller from the workspace after Run returns — Run only answers whether
// the host-side clock fired.
func (d *Docker) Run(ctx context.Context, job Job) (*Result, error) {
	if !d.IsAvailable() {
		return nil, newError(job.ID, "docker binary not available", nil)
	}

	name := containerName(job.ID)
	args := d.buildArgs(job, name)

	overall := job.Limits.OverallTimeoutS
	if overall <= 0 {
		overall = 2 * job.Limits.TimeoutS
	}
	hostTimeout := time.Duration(overall)*time.Second + hostTimeoutGrace
	if hostTimeout < 2*time.Second {
		hostTimeout = 2 * time.Second
	}

	runCtx, cancel := context.WithTimeout(ctx, hostTimeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, d.dockerPath, args...)
	cmd.Stdin = nil // function/oop harnesses embed their inputs; standardIo harnesses own stdin per case internally

	var stdout, stderr bytes.Buffer
	maxOutput := int64(4 * 1024 * 1024)
	cmd.Stdout = &limitedWriter{w: &stdout, max: maxOutput}
	cmd.Stderr = &limitedWriter{w: &stderr, max: maxOutput}

	start := time.Now()
	runErr := cmd.Run()
	wall := time.Since(start)

	result := &Result{
		StdoutBytes:   stdout.Bytes(),
		StderrBytes:   stderr.Bytes(),
		WallTime:      wall,
		ContainerName: name,
		ExitCode:      -1,
	}

	if runCtx.Err() == context.DeadlineExceeded {
		d.forceRemove(name)
		result.HostTimeoutFired = true
		return result, nil
	}

	d.forceRemove(name)

	if exitErr, ok := runErr.(*exec.ExitError); ok {
		result.ExitCode = exitErr.ExitCode()
		if isOOMExitCode(result.ExitCode) {
			result.OOMKilled = true
		}
	} else if runErr != nil {
		return nil, newError(job.ID, "container launch error", runErr)
	} else {
		result.ExitCode = 0
	}

	return result, nil
}

// isOOMExitCode reports whether code matches the conventional signal exit
// for an OOM kill (exit code 128+9 = 137 for SIGKILL, which the cgroup OOM
// killer sends).
func isOOMExitCode(code int) bool {
	return code == 137
}

// forceRemove removes the container by name unconditionally, best-effort
// (spec.md §4.5 reaping invariant "(a) force-remove the container by
// name"). Errors are swallowed: the container may already be gone (--rm
// already cleaned it up on a normal exit), which is the common case.
func (d *Docker) forceRemove(name string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = exec.CommandContext(ctx, d.dockerPath, "rm", "--force", name).Run()
}

// limitedWriter caps total bytes written, matching the teacher's
// internal/tactile direct/docker executors' output-capture behavior.
type limitedWriter struct {
	w         *bytes.Buffer
	max       int64
	written   int64
	truncated bool
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	if lw.written >= lw.max {
		lw.truncated = true
		return n, nil
	}
	remaining := lw.max - lw.written
	if int64(n) > remaining {
		lw.truncated = true
		p = p[:remaining]
	}
	written, err := lw.w.Write(p)
	lw.written += int64(written)
	return n, err
}
