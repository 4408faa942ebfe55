// Package ir defines the canonical intermediate representation produced by
// the spec compiler (internal/compiler) and consumed by the runner
// generators (internal/runner). It is a tree, never a graph: references
// between a test's steps and a class's method signatures are resolved by
// name against the Class/Function tables, never via pointers, per the
// "No cyclic object graphs" design note.
package ir

import "fmt"

// SchemaVersion is the current IR schema version, carried on every IR.
const SchemaVersion = 1

// TestStyle discriminates the three problem shapes.
type TestStyle string

const (
	StyleStandardIO TestStyle = "standardIo"
	StyleFunction   TestStyle = "function"
	StyleOOP        TestStyle = "oop"
)

// ConstructorName is the language-neutral logical name for a class
// constructor in the IR. Generators rewrite it to each target language's
// actual constructor symbol (e.g. "__init__" for Python) at generation
// time — the IR itself never stores a language-specific name, per the
// generation-time "init" rewriting decision recorded in DESIGN.md.
const ConstructorName = "init"

// Type is a primitive type label used for function/method argument and
// return types.
type Type string

const (
	TypeInteger Type = "integer"
	TypeFloat   Type = "float"
	TypeString  Type = "string"
	TypeBool    Type = "bool"
	TypeAny     Type = "any"
	TypeVoid    Type = "void"
)

// IR is the canonical, versioned intermediate representation of a compiled
// problem. Exactly one of StandardIO, Function, or OOP is populated,
// selected by Type. Field order here is the marshal order used for
// byte-equality canonicalization (CanonicalBytes), so it must never be
// reordered casually — doing so changes every problem's stored IR bytes.
type IR struct {
	SchemaVersion int       `json:"schema_version"`
	Type          TestStyle `json:"type"`
	Description   string    `json:"description"`

	StandardIO *StandardIOSpec `json:"standardIo,omitempty"`
	Function   *FunctionSpec   `json:"function,omitempty"`
	OOP        *OOPSpec        `json:"oop,omitempty"`
}

// StandardIOSpec is the normalized form of a standardIo problem.
type StandardIOSpec struct {
	Tests []StandardIOTest `json:"tests"`
}

// StandardIOTest is a single stdin/stdout test case. Stdin defaults to the
// empty string; Stdout is guaranteed (by the normalizer) to end in "\n" and
// to contain no "\r".
type StandardIOTest struct {
	Name   string `json:"name"`
	Stdin  string `json:"stdin"`
	Stdout string `json:"stdout"`
}

// Argument is a named, typed function or method parameter.
type Argument struct {
	Name string `json:"name"`
	Type Type   `json:"type"`
}

// FunctionSig is a pure-function signature.
type FunctionSig struct {
	Name    string     `json:"name"`
	Args    []Argument `json:"args"`
	Returns Type       `json:"returns"`
}

// FunctionSpec is the normalized form of a function problem.
type FunctionSpec struct {
	Function FunctionSig    `json:"function"`
	Tests    []FunctionTest `json:"tests"`
}

// FunctionTest is a single function invocation test. Args is positional, in
// the order declared by FunctionSig.Args. Exactly one of Expected or
// Exception is set.
type FunctionTest struct {
	Name      string     `json:"name"`
	Args      []Value    `json:"args"`
	Expected  *Value     `json:"expected,omitempty"`
	Exception *Exception `json:"exception,omitempty"`
}

// Exception is the canonical normalized form of an exception assertion: a
// bare string in the source spec becomes {Type: string}; a mapping must
// supply Type and may supply Message.
type Exception struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}

// Method is a class method signature. Name is already rewritten from the
// source spec's raw spelling only in the sense that "init" is preserved as
// the logical constructor marker — see ConstructorName.
type Method struct {
	Name    string     `json:"name"`
	Args    []Argument `json:"args"`
	Returns Type       `json:"returns"`
}

// ClassSig is a class signature: name plus ordered method list.
type ClassSig struct {
	Name    string   `json:"name"`
	Methods []Method `json:"methods"`
}

// OOPSpec is the normalized form of an oop problem.
type OOPSpec struct {
	Class ClassSig  `json:"class"`
	Tests []OOPTest `json:"tests"`
}

// OOPTest is one object-oriented scenario: a setup phase that creates
// instances, then an ordered sequence of method-call steps against them.
type OOPTest struct {
	Name  string     `json:"name"`
	Setup []CreateOp `json:"setup"`
	Steps []CallOp   `json:"steps"`
}

// CreateOp instantiates a class and binds it to a local variable name.
type CreateOp struct {
	Op    string  `json:"op"` // always "create"
	Class string  `json:"class"`
	As    string  `json:"as"`
	Args  []Value `json:"args,omitempty"`
}

// CallOp invokes a method on a previously created instance. Args is
// positional, in the order declared by the target method's signature.
// Exactly one of Expected or Exception is set.
type CallOp struct {
	Op        string     `json:"op"` // always "call"
	On        string     `json:"on"`
	Method    string     `json:"method"`
	Args      []Value    `json:"args"`
	Expected  *Value     `json:"expected,omitempty"`
	Exception *Exception `json:"exception,omitempty"`
}

// MethodSignature looks up a declared method by name. The normalizer uses it
// to check that a referenced method exists and reports a miss as a
// SpecError.
func (c ClassSig) MethodSignature(name string) (Method, error) {
	for _, m := range c.Methods {
		if m.Name == name {
			return m, nil
		}
	}
	return Method{}, fmt.Errorf("method %q not found on class %q", name, c.Name)
}

// TestNames returns the test names in IR order (spec.md §5 "Ordering
// guarantees"). internal/report does not call it.
func (ir *IR) TestNames() []string {
	switch ir.Type {
	case StyleStandardIO:
		names := make([]string, len(ir.StandardIO.Tests))
		for i, t := range ir.StandardIO.Tests {
			names[i] = t.Name
		}
		return names
	case StyleFunction:
		names := make([]string, len(ir.Function.Tests))
		for i, t := range ir.Function.Tests {
			names[i] = t.Name
		}
		return names
	case StyleOOP:
		names := make([]string, len(ir.OOP.Tests))
		for i, t := range ir.OOP.Tests {
			names[i] = t.Name
		}
		return names
	default:
		return nil
	}
}
