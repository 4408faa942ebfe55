package runner

import (
	"fmt"
	"strings"

	"gradecore/internal/ir"
)

func init() {
	Register("go", ir.StyleStandardIO, GenerateGoStandardIO)
}

// GenerateGoStandardIO emits a standalone Go program that execs the
// compiled-at-sandbox-time student binary once per test, feeds stdin, and
// asserts exact stdout equality. It writes its own JUnit-style report
// rather than shelling out to `go test` plus a separate XML-reporting
// tool, so the sandbox image only needs a Go toolchain and no additional
// reporting dependency (the same report shape as the Python generators,
// so internal/report parses both without a per-language branch). Each case
// runs under its own RUN_TIMEOUT-bounded context so a hung student binary
// fails that case instead of the whole harness.
func GenerateGoStandardIO(spec *ir.IR) (string, error) {
	if spec.Type != ir.StyleStandardIO || spec.StandardIO == nil {
		return "", fmt.Errorf("runner: GenerateGoStandardIO requires a standardIo IR, got %q", spec.Type)
	}
	if len(spec.StandardIO.Tests) == 0 {
		return "", fmt.Errorf("runner: standardIo IR has no tests")
	}

	var cases strings.Builder
	for _, test := range spec.StandardIO.Tests {
		fmt.Fprintf(&cases, "\t\t{Name: %s, Stdin: %s, Stdout: %s},\n",
			goLiteral(test.Name), goLiteral(test.Stdin), goLiteral(test.Stdout))
	}

	return fmt.Sprintf(goStandardIOTemplate, cases.String()), nil
}

// goLiteral renders s as a Go string literal; Go's %q is already exactly
// Go source syntax, unlike the Python case.
func goLiteral(s string) string {
	return fmt.Sprintf("%q", s)
}

const goStandardIOTemplate = `// AUTO-GENERATED: go standardIo runner
// Regenerated whenever the problem is recompiled; do not edit by hand.
package main

import (
	"bytes"
	"context"
	"encoding/xml"
	"os"
	"os/exec"
	"strconv"
	"time"
)

type testCase struct {
	Name   string
	Stdin  string
	Stdout string
}

var cases = []testCase{
%s}

type junitCase struct {
	Name    string   `+"`"+`xml:"name,attr"`+"`"+`
	Time    float64  `+"`"+`xml:"time,attr"`+"`"+`
	Failure *failure `+"`"+`xml:"failure,omitempty"`+"`"+`
	Error   *failure `+"`"+`xml:"error,omitempty"`+"`"+`
}

type failure struct {
	Message string `+"`"+`xml:"message,attr"`+"`"+`
	Type    string `+"`"+`xml:"type,attr"`+"`"+`
	Text    string `+"`"+`xml:",chardata"`+"`"+`
}

type junitSuite struct {
	XMLName  xml.Name    `+"`"+`xml:"testsuite"`+"`"+`
	Name     string      `+"`"+`xml:"name,attr"`+"`"+`
	Tests    int         `+"`"+`xml:"tests,attr"`+"`"+`
	Failures int         `+"`"+`xml:"failures,attr"`+"`"+`
	Errors   int         `+"`"+`xml:"errors,attr"`+"`"+`
	Time     float64     `+"`"+`xml:"time,attr"`+"`"+`
	Cases    []junitCase `+"`"+`xml:"testcase"`+"`"+`
}

func main() {
	studentBin := os.Getenv("STUDENT_BIN")
	if studentBin == "" {
		studentBin = "/workspace/student/solution"
	}
	reportPath := os.Getenv("REPORT_PATH")
	if reportPath == "" {
		reportPath = "/workspace/report.xml"
	}
	runTimeoutS, err := strconv.Atoi(os.Getenv("RUN_TIMEOUT"))
	if err != nil || runTimeoutS <= 0 {
		runTimeoutS = 5
	}
	runTimeout := time.Duration(runTimeoutS) * time.Second

	suite := junitSuite{Name: "StandardIOTests"}
	exitCode := 0

	for _, tc := range cases {
		start := time.Now()
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		cmd := exec.CommandContext(ctx, studentBin)
		cmd.Stdin = bytes.NewBufferString(tc.Stdin)
		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
		err := cmd.Run()
		elapsed := time.Since(start).Seconds()
		timedOut := ctx.Err() == context.DeadlineExceeded
		cancel()

		jc := junitCase{Name: tc.Name, Time: elapsed}
		suite.Tests++
		if timedOut {
			jc.Failure = &failure{
				Message: "execution timeout",
				Type:    "Timeout",
				Text:    "case exceeded its " + runTimeout.String() + " timeout\n" + stderr.String(),
			}
			suite.Failures++
			exitCode = 1
		} else if err != nil {
			jc.Error = &failure{Message: "process error", Type: "ProcessError", Text: err.Error() + "\n" + stderr.String()}
			suite.Errors++
			exitCode = 1
		} else if stdout.String() != tc.Stdout {
			jc.Failure = &failure{
				Message: "stdout mismatch",
				Type:    "AssertionError",
				Text:    "expected:\n" + tc.Stdout + "\ngot:\n" + stdout.String(),
			}
			suite.Failures++
			exitCode = 1
		}
		suite.Time += elapsed
		suite.Cases = append(suite.Cases, jc)
	}

	out, _ := xml.MarshalIndent(suite, "", "  ")
	_ = os.WriteFile(reportPath, out, 0o644)
	os.Exit(exitCode)
}
`
