package ir

import (
	"fmt"
	"sort"
)

// Kind discriminates the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindInt
	KindFloat
	KindString
	KindBool
)

// Value is a closed sum type for heterogeneous test data: constructor and
// method-call arguments, expected return values, and literal test fields.
// Only one field is meaningful, selected by Kind; this is the Go analogue of
// a tagged union rather than an untyped any, per the Design Notes.
type Value struct {
	Kind Kind

	IntVal    int64
	FloatVal  float64
	StringVal string
	BoolVal   bool
}

func NullValue() Value                { return Value{Kind: KindNull} }
func IntValue(v int64) Value          { return Value{Kind: KindInt, IntVal: v} }
func FloatValue(v float64) Value      { return Value{Kind: KindFloat, FloatVal: v} }
func StringValue(v string) Value      { return Value{Kind: KindString, StringVal: v} }
func BoolValue(v bool) Value          { return Value{Kind: KindBool, BoolVal: v} }

// FromYAML converts a decoded YAML scalar (as produced by yaml.v3 into `any`)
// into a Value. Mappings and sequences are rejected by the caller before this
// is reached; this only handles the primitive leaves.
func FromYAML(raw any) (Value, error) {
	switch v := raw.(type) {
	case nil:
		return NullValue(), nil
	case bool:
		return BoolValue(v), nil
	case int:
		return IntValue(int64(v)), nil
	case int64:
		return IntValue(v), nil
	case float64:
		// yaml.v3 decodes whole-number floats as int when untyped, but an
		// explicit "1.0" in the document decodes as float64.
		if v == float64(int64(v)) {
			return FloatValue(v), nil
		}
		return FloatValue(v), nil
	case string:
		return StringValue(v), nil
	default:
		return Value{}, fmt.Errorf("unsupported value type %T", raw)
	}
}

// Equal reports whether two values are equal by kind and payload. Integers
// and floats never compare equal to one another, matching the declared
// argument/return type system (comparisons are type-directed, not coerced).
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindNull:
		return true
	case KindInt:
		return v.IntVal == other.IntVal
	case KindFloat:
		return v.FloatVal == other.FloatVal
	case KindString:
		return v.StringVal == other.StringVal
	case KindBool:
		return v.BoolVal == other.BoolVal
	default:
		return false
	}
}

// CanonicalString renders the value the way the IR serializer emits it into
// generated harness source (Python literal syntax), so callers that build
// source text can share one formatting rule.
func (v Value) CanonicalString() string {
	switch v.Kind {
	case KindNull:
		return "None"
	case KindInt:
		return fmt.Sprintf("%d", v.IntVal)
	case KindFloat:
		return fmt.Sprintf("%g", v.FloatVal)
	case KindString:
		return fmt.Sprintf("%q", v.StringVal)
	case KindBool:
		if v.BoolVal {
			return "True"
		}
		return "False"
	default:
		return "None"
	}
}

// SortedKeys is a small helper used by the normalizer when it needs a
// deterministic key order for error messages (_check_exact_keys reports
// missing/unexpected keys sorted in the original).
func SortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
