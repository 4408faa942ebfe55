package runner

import (
	"fmt"
	"strings"

	"gradecore/internal/ir"
)

func init() {
	Register("python", ir.StyleOOP, GeneratePythonOOP)
}

// GeneratePythonOOP emits a Python unittest harness for an oop problem.
// Each IR test becomes one test method: setup steps instantiate objects
// bound to local variables, then steps apply method calls in order against
// those bindings, asserting the declared expected value or exception per
// step. A fresh instance set is created for every test method, but state
// persists across steps within one test (spec.md §4.3). The whole method
// body runs under a SIGALRM-based watchdog keyed to RUN_TIMEOUT, since
// setup and steps execute in-process rather than in a subprocess.
func GeneratePythonOOP(spec *ir.IR) (string, error) {
	if spec.Type != ir.StyleOOP || spec.OOP == nil {
		return "", fmt.Errorf("runner: GeneratePythonOOP requires an oop IR, got %q", spec.Type)
	}
	if len(spec.OOP.Tests) == 0 {
		return "", fmt.Errorf("runner: oop IR has no tests")
	}

	className := spec.OOP.Class.Name

	var methods strings.Builder
	for _, test := range spec.OOP.Tests {
		var body strings.Builder
		for _, create := range test.Setup {
			args := make([]string, len(create.Args))
			for i, v := range create.Args {
				args[i] = v.CanonicalString()
			}
			fmt.Fprintf(&body, "        %s = student.%s(%s)\n", create.As, className, strings.Join(args, ", "))
		}
		for i, step := range test.Steps {
			args := make([]string, len(step.Args))
			for j, v := range step.Args {
				args[j] = v.CanonicalString()
			}
			callExpr := fmt.Sprintf("%s.%s(%s)", step.On, step.Method, strings.Join(args, ", "))
			resultVar := fmt.Sprintf("result_%d", i)

			if step.Expected != nil {
				fmt.Fprintf(&body, "        %s = %s\n        self.assertEqual(%s, %s)\n", resultVar, callExpr, step.Expected.CanonicalString(), resultVar)
				continue
			}

			msgCheck := ""
			if step.Exception.Message != "" {
				msgCheck = fmt.Sprintf("\n        self.assertIn(%s, str(ctx.exception))", pyLiteral(step.Exception.Message))
			}
			fmt.Fprintf(&body, "        with self.assertRaises(Exception) as ctx:\n            %s\n        self.assertEqual(%s, type(ctx.exception).__name__)%s\n", callExpr, pyLiteral(step.Exception.Type), msgCheck)
		}

		fmt.Fprintf(&methods, `
    def %s(self):
        previous = signal.signal(signal.SIGALRM, _alarm_handler)
        signal.alarm(RUN_TIMEOUT)
        try:
%s        except _CaseTimeout:
            self.fail(f"%s: execution timeout after {RUN_TIMEOUT}s")
        finally:
            signal.alarm(0)
            signal.signal(signal.SIGALRM, previous)
`, test.Name, indentPythonBlock(body.String()), test.Name)
	}

	return fmt.Sprintf(pythonOOPTemplate, methods.String()), nil
}

// indentPythonBlock adds one further indent level to a generated step body
// so it can be nested inside the per-test-case timeout's try: block.
func indentPythonBlock(block string) string {
	lines := strings.Split(strings.TrimRight(block, "\n"), "\n")
	for i, line := range lines {
		if line == "" {
			continue
		}
		lines[i] = "    " + line
	}
	return strings.Join(lines, "\n") + "\n"
}

const pythonOOPTemplate = `# AUTO-GENERATED: python oop runner
# Regenerated whenever the problem is recompiled; do not edit by hand.
import os
import signal
import sys
import unittest

import xmlrunner

RUN_TIMEOUT = int(float(os.environ.get("RUN_TIMEOUT", "5")))
REPORT_PATH = os.environ.get("REPORT_PATH", "/workspace/report.xml")
sys.path.insert(0, os.path.join(os.path.dirname(os.path.abspath(__file__)), "..", "student"))
import solution as student  # noqa: E402


class _CaseTimeout(BaseException):
    """Raised by the SIGALRM handler; BaseException so assertRaises(Exception)
    in step exception checks never swallows it."""


def _alarm_handler(signum, frame):
    raise _CaseTimeout()


class OOPTests(unittest.TestCase):
%s

if __name__ == "__main__":
    with open(REPORT_PATH, "wb") as report_file:
        unittest.main(
            testRunner=xmlrunner.XMLTestRunner(output=report_file),
            argv=["runner"],
            exit=False,
        )
`
