package compiler_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"gradecore/internal/compiler"
	"gradecore/internal/ir"
)

func TestCompileStandardIOPassingShape(t *testing.T) {
	spec := `
type: standardIo
description: add two numbers
tests:
  - name: add
    stdin: "2\n3\n"
    stdout: "5"
`
	result, err := compiler.Compile(spec)
	require.NoError(t, err)
	require.Equal(t, ir.StyleStandardIO, result.Type)
	require.Len(t, result.StandardIO.Tests, 1)
	require.Equal(t, "5\n", result.StandardIO.Tests[0].Stdout, "stdout must be normalized to end with \\n")
}

func TestCompileFunctionExpected(t *testing.T) {
	spec := `
type: function
description: factorial
function:
  name: factorial
  args:
    - {name: n, type: integer}
  returns: integer
tests:
  - name: base
    args: {n: 0}
    expected: 1
`
	result, err := compiler.Compile(spec)
	require.NoError(t, err)
	require.Len(t, result.Function.Tests, 1)
	test := result.Function.Tests[0]
	require.Len(t, test.Args, 1)
	require.True(t, test.Args[0].Equal(ir.IntValue(0)))
	require.NotNil(t, test.Expected)
	require.True(t, test.Expected.Equal(ir.IntValue(1)))
}

func TestCompileFunctionException(t *testing.T) {
	spec := `
type: function
description: factorial
function:
  name: factorial
  args:
    - {name: n, type: integer}
  returns: integer
tests:
  - name: neg
    args: {n: -1}
    exception: ValueError
`
	result, err := compiler.Compile(spec)
	require.NoError(t, err)
	test := result.Function.Tests[0]
	require.Nil(t, test.Expected)
	require.NotNil(t, test.Exception)
	require.Equal(t, "ValueError", test.Exception.Type)
}

func TestCompileOOPSequence(t *testing.T) {
	spec := `
type: oop
description: counter
class:
  name: Counter
  methods:
    - {name: init}
    - {name: increment}
    - {name: get, returns: integer}
tests:
  - name: basic
    setup:
      - {class: Counter, as: c}
    steps:
      - {on: c, method: increment, expected: null}
      - {on: c, method: increment, expected: null}
      - {on: c, method: get, expected: 2}
`
	result, err := compiler.Compile(spec)
	require.NoError(t, err)
	require.Equal(t, "Counter", result.OOP.Class.Name)
	test := result.OOP.Tests[0]
	require.Len(t, test.Setup, 1)
	require.Equal(t, "c", test.Setup[0].As)
	require.Len(t, test.Steps, 3)
	last := test.Steps[2]
	require.NotNil(t, last.Expected)
	require.True(t, last.Expected.Equal(ir.IntValue(2)))
}

func TestCompileOOPClassWithNoConstructorAllowsEmptyArgsCreate(t *testing.T) {
	spec := `
type: oop
description: stack with no declared init
class:
  name: Stack
  methods:
    - {name: push, args: [{name: v, type: integer}]}
    - {name: pop, returns: integer}
tests:
  - name: basic
    setup:
      - {class: Stack, as: s}
    steps:
      - {on: s, method: push, args: {v: 1}, expected: null}
      - {on: s, method: pop, expected: 1}
`
	result, err := compiler.Compile(spec)
	require.NoError(t, err)
	require.Empty(t, result.OOP.Tests[0].Setup[0].Args)
}

func TestCompileOOPClassWithNoConstructorRejectsNonEmptyArgsCreate(t *testing.T) {
	spec := `
type: oop
description: stack with no declared init
class:
  name: Stack
  methods:
    - {name: push, args: [{name: v, type: integer}]}
tests:
  - name: basic
    setup:
      - {class: Stack, as: s, args: {v: 1}}
    steps:
      - {on: s, method: push, args: {v: 1}}
`
	_, err := compiler.Compile(spec)
	require.Error(t, err)
}

func TestCompileWhitespaceAndKeySpellingInsensitive(t *testing.T) {
	a := `
type: function
description: add
function:
  name: add
  args:
    - {name: a, type: integer}
    - {name: b, type: integer}
  returns: integer
tests:
  - name: t1
    args: {a: 1, b: 2}
    expected: 3
`
	b := `
type:    function
description:    add
function:
  name: add
  args:
    - {name: a, type: integer}
    - {name: b, type: integer}
  returns: integer

tests:
  - name: t1
    args: {b: 2, a: 1}
    expected: 3
`
	irA, err := compiler.Compile(a)
	require.NoError(t, err)
	irB, err := compiler.Compile(b)
	require.NoError(t, err)

	eq, err := ir.Equal(irA, irB)
	require.NoError(t, err)
	require.True(t, eq, "insignificant whitespace/key-order differences must compile to identical IR")
}

func TestCompileEmptyTestsIsSpecError(t *testing.T) {
	spec := `
type: standardIo
description: nothing
tests: []
`
	_, err := compiler.Compile(spec)
	require.Error(t, err)
	var specErr *compiler.SpecError
	require.ErrorAs(t, err, &specErr)
}

func TestCompileUnknownTopLevelKeyIsSpecError(t *testing.T) {
	spec := `
type: standardIo
description: add two numbers
bogus: true
tests:
  - {name: add, stdout: "5"}
`
	_, err := compiler.Compile(spec)
	require.Error(t, err)
	var specErr *compiler.SpecError
	require.ErrorAs(t, err, &specErr)
	require.Equal(t, "bogus", specErr.Path)
}

func TestCompileBadIdentifierIsSpecError(t *testing.T) {
	spec := `
type: function
description: bad name
function:
  name: "9bad"
  args: []
  returns: integer
tests:
  - name: t1
    args: {}
    expected: 1
`
	_, err := compiler.Compile(spec)
	require.Error(t, err)
	var specErr *compiler.SpecError
	require.ErrorAs(t, err, &specErr)
}

func TestCompileBothExpectedAndExceptionIsSpecError(t *testing.T) {
	spec := `
type: function
description: bad test
function:
  name: f
  args: []
  returns: integer
tests:
  - name: t1
    args: {}
    expected: 1
    exception: ValueError
`
	_, err := compiler.Compile(spec)
	require.Error(t, err)
}

func TestCompileMissingArgumentNamesTheMissingArg(t *testing.T) {
	spec := `
type: function
description: bad test
function:
  name: add
  args:
    - {name: a, type: integer}
    - {name: b, type: integer}
  returns: integer
tests:
  - name: t1
    args: {a: 1}
    expected: 3
`
	_, err := compiler.Compile(spec)
	require.Error(t, err)
	var specErr *compiler.SpecError
	require.ErrorAs(t, err, &specErr)
	require.Contains(t, specErr.Message, "b")
}

func TestCompileMultipleDocumentsRejected(t *testing.T) {
	spec := "type: standardIo\ndescription: a\ntests: [{name: t, stdout: x}]\n---\ntype: standardIo\ndescription: b\ntests: [{name: t, stdout: y}]\n"
	_, err := compiler.Compile(spec)
	require.Error(t, err)
}

func TestCompileRoundTripIsDeterministic(t *testing.T) {
	spec := `
type: standardIo
description: add
tests:
  - {name: t1, stdin: "1\n", stdout: "1"}
`
	a, err := compiler.Compile(spec)
	require.NoError(t, err)
	b, err := compiler.Compile(spec)
	require.NoError(t, err)

	ab, err := a.CanonicalBytes()
	require.NoError(t, err)
	bb, err := b.CanonicalBytes()
	require.NoError(t, err)
	require.Equal(t, ab, bb)
}
