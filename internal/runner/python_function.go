package runner

import (
	"fmt"
	"strings"

	"gradecore/internal/ir"
)

func init() {
	Register("python", ir.StyleFunction, GeneratePythonFunction)
}

// GeneratePythonFunction emits a Python unittest harness for a function
// problem: the student module is imported once, then the declared function
// is invoked with positional args for each test. Float-typed returns are
// compared with assertAlmostEqual (spec.md §4.3 "asserts equality by the
// declared return type's comparison rule"); every other type uses exact
// equality. Exception tests assert both the raised type's name and, when
// provided, a substring match on the message. Each call runs under a
// SIGALRM-based watchdog keyed to RUN_TIMEOUT, since the student function
// executes in-process rather than in its own subprocess.
func GeneratePythonFunction(spec *ir.IR) (string, error) {
	if spec.Type != ir.StyleFunction || spec.Function == nil {
		return "", fmt.Errorf("runner: GeneratePythonFunction requires a function IR, got %q", spec.Type)
	}
	if len(spec.Function.Tests) == 0 {
		return "", fmt.Errorf("runner: function IR has no tests")
	}

	fn := spec.Function.Function
	var argNames []string
	for _, a := range fn.Args {
		argNames = append(argNames, a.Name)
	}

	var methods strings.Builder
	for _, test := range spec.Function.Tests {
		args := make([]string, len(test.Args))
		for i, v := range test.Args {
			args[i] = v.CanonicalString()
		}
		callExpr := fmt.Sprintf("student.%s(%s)", fn.Name, strings.Join(args, ", "))

		if test.Expected != nil {
			assertion := "assertEqual"
			if fn.Returns == ir.TypeFloat {
				assertion = "assertAlmostEqual"
			}
			fmt.Fprintf(&methods, `
    def %s(self):
        try:
            result = self._call_with_timeout(lambda: %s)
        except _CaseTimeout:
            self.fail(f"%s: execution timeout after {RUN_TIMEOUT}s")
        self.%s(%s, result)
`, test.Name, callExpr, test.Name, assertion, test.Expected.CanonicalString())
			continue
		}

		msgCheck := ""
		if test.Exception.Message != "" {
			msgCheck = fmt.Sprintf(`
            self.assertIn(%s, str(ctx.exception))`, pyLiteral(test.Exception.Message))
		}
		fmt.Fprintf(&methods, `
    def %s(self):
        try:
            with self.assertRaises(Exception) as ctx:
                self._call_with_timeout(lambda: %s)
        except _CaseTimeout:
            self.fail(f"%s: execution timeout after {RUN_TIMEOUT}s")
        self.assertEqual(%s, type(ctx.exception).__name__)%s
`, test.Name, callExpr, test.Name, pyLiteral(test.Exception.Type), msgCheck)
	}

	return fmt.Sprintf(pythonFunctionTemplate, strings.Join(argNames, ", "), methods.String()), nil
}

const pythonFunctionTemplate = `# AUTO-GENERATED: python function runner
# Regenerated whenever the problem is recompiled; do not edit by hand.
import os
import signal
import sys
import unittest

import xmlrunner

RUN_TIMEOUT = int(float(os.environ.get("RUN_TIMEOUT", "5")))
REPORT_PATH = os.environ.get("REPORT_PATH", "/workspace/report.xml")
sys.path.insert(0, os.path.join(os.path.dirname(os.path.abspath(__file__)), "..", "student"))
import solution as student  # noqa: E402  (args declared for documentation: %s)


class _CaseTimeout(BaseException):
    """Raised by the SIGALRM handler; BaseException so assertRaises(Exception)
    in exception-test bodies never swallows it."""


def _alarm_handler(signum, frame):
    raise _CaseTimeout()


class FunctionTests(unittest.TestCase):
    def _call_with_timeout(self, fn):
        previous = signal.signal(signal.SIGALRM, _alarm_handler)
        signal.alarm(RUN_TIMEOUT)
        try:
            return fn()
        finally:
            signal.alarm(0)
            signal.signal(signal.SIGALRM, previous)
%s

if __name__ == "__main__":
    with open(REPORT_PATH, "wb") as report_file:
        unittest.main(
            testRunner=xmlrunner.XMLTestRunner(output=report_file),
            argv=["runner"],
            exit=False,
        )
`
