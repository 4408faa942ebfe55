package sandbox

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStageLayoutAndDestroy(t *testing.T) {
	ws, err := Stage("job-1", t.TempDir(), "solution.py", []byte("print('hi')"), "runner.py", "# harness")
	require.NoError(t, err)

	require.FileExists(t, filepath.Join(ws.Dir, "student", "solution.py"))
	require.FileExists(t, filepath.Join(ws.Dir, "tests", "runner.py"))
	require.DirExists(t, ws.ReportDir)

	require.NoError(t, ws.Destroy())
	_, statErr := os.Stat(ws.Dir)
	require.True(t, os.IsNotExist(statErr), "workspace directory must not exist after Destroy")
}

func TestReportPathResolvesUnderReportDir(t *testing.T) {
	ws, err := Stage("job-2", t.TempDir(), "solution.py", []byte(""), "runner.py", "")
	require.NoError(t, err)
	defer ws.Destroy()

	got := ws.ReportPath(ContainerReportPath())
	require.Equal(t, filepath.Join(ws.ReportDir, "report.xml"), got)
}

func TestDestroyOnNilWorkspaceIsNoOp(t *testing.T) {
	var ws *Workspace
	require.NoError(t, ws.Destroy())
}
