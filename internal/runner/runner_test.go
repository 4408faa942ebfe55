package runner_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"gradecore/internal/ir"
	"gradecore/internal/runner"
)

func sampleStandardIO() *ir.IR {
	return &ir.IR{
		Type: ir.StyleStandardIO,
		StandardIO: &ir.StandardIOSpec{
			Tests: []ir.StandardIOTest{
				{Name: "add", Stdin: "2\n3\n", Stdout: "5\n"},
			},
		},
	}
}

func TestRegistryLookupPythonStandardIO(t *testing.T) {
	fn, err := runner.Lookup("python", ir.StyleStandardIO)
	require.NoError(t, err)
	require.NotNil(t, fn)
}

func TestRegistryLookupMissingGenerator(t *testing.T) {
	_, err := runner.Lookup("rust", ir.StyleOOP)
	require.Error(t, err)
	var missing *runner.GeneratorMissing
	require.ErrorAs(t, err, &missing)
}

func TestRegistryRegisterAfterLookupPanics(t *testing.T) {
	r := runner.NewRegistry()
	r.Register("python", ir.StyleStandardIO, runner.GeneratePythonStandardIO)
	_, err := r.Lookup("python", ir.StyleStandardIO)
	require.NoError(t, err)

	require.Panics(t, func() {
		r.Register("python", ir.StyleFunction, runner.GeneratePythonFunction)
	})
}

func TestGeneratePythonStandardIOIsDeterministic(t *testing.T) {
	spec := sampleStandardIO()
	a, err := runner.GeneratePythonStandardIO(spec)
	require.NoError(t, err)
	b, err := runner.GeneratePythonStandardIO(spec)
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Contains(t, a, "def add(self):", "test name must appear verbatim in generated harness")
}

func TestGeneratePythonStandardIOCatchesTimeoutExpired(t *testing.T) {
	src, err := runner.GeneratePythonStandardIO(sampleStandardIO())
	require.NoError(t, err)
	require.Contains(t, src, "except subprocess.TimeoutExpired:")
	require.Contains(t, src, "self.fail(")
	require.Contains(t, src, "execution timeout")
}

func TestGeneratePythonFunctionExpectedAndException(t *testing.T) {
	spec := &ir.IR{
		Type: ir.StyleFunction,
		Function: &ir.FunctionSpec{
			Function: ir.FunctionSig{
				Name:    "factorial",
				Args:    []ir.Argument{{Name: "n", Type: ir.TypeInteger}},
				Returns: ir.TypeInteger,
			},
			Tests: []ir.FunctionTest{
				{Name: "base", Args: []ir.Value{ir.IntValue(0)}, Expected: ptr(ir.IntValue(1))},
				{Name: "neg", Args: []ir.Value{ir.IntValue(-1)}, Exception: &ir.Exception{Type: "ValueError"}},
			},
		},
	}
	src, err := runner.GeneratePythonFunction(spec)
	require.NoError(t, err)
	require.Contains(t, src, "def base(self):")
	require.Contains(t, src, "def neg(self):")
	require.Contains(t, src, "student.factorial(0)")
	require.Contains(t, src, "assertRaises")
	require.Contains(t, src, "signal.alarm(RUN_TIMEOUT)")
	require.Contains(t, src, "_call_with_timeout")
	require.Contains(t, src, "except _CaseTimeout:")
}

func TestGeneratePythonOOPSequence(t *testing.T) {
	spec := &ir.IR{
		Type: ir.StyleOOP,
		OOP: &ir.OOPSpec{
			Class: ir.ClassSig{
				Name: "Counter",
				Methods: []ir.Method{
					{Name: ir.ConstructorName},
					{Name: "increment"},
					{Name: "get", Returns: ir.TypeInteger},
				},
			},
			Tests: []ir.OOPTest{
				{
					Name:  "basic",
					Setup: []ir.CreateOp{{Op: "create", Class: "Counter", As: "c"}},
					Steps: []ir.CallOp{
						{Op: "call", On: "c", Method: "increment", Expected: ptr(ir.NullValue())},
						{Op: "call", On: "c", Method: "increment", Expected: ptr(ir.NullValue())},
						{Op: "call", On: "c", Method: "get", Expected: ptr(ir.IntValue(2))},
					},
				},
			},
		},
	}
	src, err := runner.GeneratePythonOOP(spec)
	require.NoError(t, err)
	require.Contains(t, src, "c = student.Counter()")
	require.Contains(t, src, "c.increment()")
	require.Equal(t, 2, strings.Count(src, "c.increment()"))
	require.Contains(t, src, "self.assertEqual(2, result_2)")
	require.Contains(t, src, "signal.alarm(RUN_TIMEOUT)")
	require.Contains(t, src, "except _CaseTimeout:")
}

func TestGenerateGoStandardIOEmbedsCasesVerbatim(t *testing.T) {
	src, err := runner.GenerateGoStandardIO(sampleStandardIO())
	require.NoError(t, err)
	require.Contains(t, src, `Name: "add"`)
}

func TestGenerateGoStandardIOEnforcesRunTimeout(t *testing.T) {
	src, err := runner.GenerateGoStandardIO(sampleStandardIO())
	require.NoError(t, err)
	require.Contains(t, src, `os.Getenv("RUN_TIMEOUT")`)
	require.Contains(t, src, "context.WithTimeout")
	require.Contains(t, src, "exec.CommandContext")
	require.Contains(t, src, "context.DeadlineExceeded")
}

func TestCacheKeyChangesWithIRContent(t *testing.T) {
	k1 := runner.CacheKey("p1", []byte("a"), "1", "python")
	k2 := runner.CacheKey("p1", []byte("b"), "1", "python")
	require.NotEqual(t, k1, k2)

	k3 := runner.CacheKey("p1", []byte("a"), "1", "python")
	require.Equal(t, k1, k3)
}

func TestMemCacheGetPut(t *testing.T) {
	c := runner.NewMemCache()
	_, ok := c.Get("missing")
	require.False(t, ok)

	c.Put("k", "content")
	got, ok := c.Get("k")
	require.True(t, ok)
	require.Equal(t, "content", got)
}

func TestTieredCachePopulatesHotFromCold(t *testing.T) {
	hot := runner.NewMemCache()
	cold := runner.NewMemCache()
	cold.Put("k", "from-cold")

	tiered := runner.NewTieredCache(hot, cold)
	got, ok := tiered.Get("k")
	require.True(t, ok)
	require.Equal(t, "from-cold", got)

	_, hotOK := hot.Get("k")
	require.True(t, hotOK, "a cold hit must populate the hot tier")
}

func ptr(v ir.Value) *ir.Value { return &v }
