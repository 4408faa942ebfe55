package compiler

import (
	"errors"
	"io"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"gradecore/internal/ir"
)

// identifierRE matches spec.md's identifier rule: letters/underscore first,
// then letters/digits/underscore.
var identifierRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var allowedPrimitiveTypes = map[string]ir.Type{
	"integer": ir.TypeInteger,
	"float":   ir.TypeFloat,
	"string":  ir.TypeString,
	"bool":    ir.TypeBool,
	"any":     ir.TypeAny,
	"void":    ir.TypeVoid,
}

// ParseDocument decodes raw problem-spec text into a generic tree, enforcing
// that it is exactly one YAML document whose root is a mapping. This is the
// Go analogue of spec_compiler.py's _parse_single_yaml.
func ParseDocument(text string) (map[string]any, error) {
	dec := yaml.NewDecoder(strings.NewReader(text))

	var first any
	if err := dec.Decode(&first); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, specErr("", "YAML is empty")
		}
		return nil, specErr("", "YAML parse error: %s", err)
	}

	var second any
	if err := dec.Decode(&second); err == nil {
		return nil, specErr("", "Multiple YAML documents found; upload exactly one problem per file")
	} else if !errors.Is(err, io.EOF) {
		return nil, specErr("", "YAML parse error: %s", err)
	}

	m, ok := first.(map[string]any)
	if !ok {
		return nil, specErr("", "Top-level YAML must be a mapping (key/value object)")
	}
	return m, nil
}

// Compile is the public entry point: parse + validate + normalize raw
// problem-spec text into a canonical ir.IR, or a *SpecError. It is
// deterministic: identical input yields byte-identical IR (spec.md §2
// "Compilation is idempotent and deterministic").
func Compile(text string) (*ir.IR, error) {
	raw, err := ParseDocument(text)
	if err != nil {
		return nil, err
	}

	style, err := requireType(raw)
	if err != nil {
		return nil, err
	}
	description, err := requireDescription(raw)
	if err != nil {
		return nil, err
	}

	out := &ir.IR{
		SchemaVersion: ir.SchemaVersion,
		Type:          style,
		Description:   description,
	}

	allowed := map[string]bool{"type": true, "description": true, "tests": true}

	switch style {
	case ir.StyleStandardIO:
		spec, err := normalizeStandardIO(raw)
		if err != nil {
			return nil, err
		}
		out.StandardIO = spec
	case ir.StyleFunction:
		allowed["function"] = true
		spec, err := normalizeFunction(raw)
		if err != nil {
			return nil, err
		}
		out.Function = spec
	case ir.StyleOOP:
		allowed["class"] = true
		spec, err := normalizeOOP(raw)
		if err != nil {
			return nil, err
		}
		out.OOP = spec
	}

	if err := rejectUnknownKeys(raw, allowed, ""); err != nil {
		return nil, err
	}

	return out, nil
}

func requireType(raw map[string]any) (ir.TestStyle, error) {
	v, ok := raw["type"]
	if !ok {
		return "", specErr("type", "Missing required key")
	}
	s, ok := v.(string)
	if !ok {
		return "", specErr("type", "must be a string")
	}
	switch ir.TestStyle(s) {
	case ir.StyleStandardIO, ir.StyleFunction, ir.StyleOOP:
		return ir.TestStyle(s), nil
	default:
		return "", specErr("type", "Must be one of: standardIo, function, oop")
	}
}

func requireDescription(raw map[string]any) (string, error) {
	v, ok := raw["description"]
	if !ok {
		return "", specErr("description", "description must be a non-empty string")
	}
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", specErr("description", "description must be a non-empty string")
	}
	return s, nil
}

func rejectUnknownKeys(m map[string]any, allowed map[string]bool, path string) *SpecError {
	for k := range m {
		if !allowed[k] {
			p := k
			if path != "" {
				p = path + "." + k
			}
			return specErr(p, "Unknown key '%s'", k)
		}
	}
	return nil
}

func asString(v any, path string) (string, *SpecError) {
	s, ok := v.(string)
	if !ok {
		return "", specErr(path, "must be a string")
	}
	return s, nil
}

func asIdentifier(v any, path string) (string, *SpecError) {
	s, serr := asString(v, path)
	if serr != nil {
		return "", serr
	}
	if !identifierRE.MatchString(s) {
		return "", specErr(path, "must be a valid identifier (letters, digits, underscore; cannot start with digit)")
	}
	return s, nil
}

func asType(v any, path string) (ir.Type, *SpecError) {
	s, serr := asString(v, path)
	if serr != nil {
		return "", serr
	}
	t, ok := allowedPrimitiveTypes[s]
	if !ok {
		return "", specErr(path, "type must be one of [any bool float integer string void]")
	}
	return t, nil
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return s
}

func requireTestsList(raw map[string]any) ([]any, *SpecError) {
	v, ok := raw["tests"]
	if !ok {
		return nil, specErr("tests", "tests must be a list")
	}
	tests, ok := v.([]any)
	if !ok {
		return nil, specErr("tests", "tests must be a list")
	}
	return tests, nil
}

func requireNonEmpty(n int, path string) *SpecError {
	if n == 0 {
		return specErr(path, "must contain at least one item")
	}
	return nil
}

func requireName(m map[string]any, path string) (string, *SpecError) {
	v, ok := m["name"]
	if !ok {
		return "", specErr(path+".name", "Missing required key 'name'")
	}
	return asIdentifier(v, path+".name")
}

// checkExactKeys enforces set-equality between a test's args mapping and the
// declared argument names, mirroring spec_compiler.py's _check_exact_keys.
func checkExactKeys(m map[string]any, expected []string, path string) *SpecError {
	expectedSet := make(map[string]bool, len(expected))
	for _, k := range expected {
		expectedSet[k] = true
	}
	actualSet := make(map[string]bool, len(m))
	for k := range m {
		actualSet[k] = true
	}

	var missing, extra []string
	for k := range expectedSet {
		if !actualSet[k] {
			missing = append(missing, k)
		}
	}
	for k := range actualSet {
		if !expectedSet[k] {
			extra = append(extra, k)
		}
	}

	if len(missing) == 0 && len(extra) == 0 {
		return nil
	}

	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "missing: "+joinSorted(missing))
	}
	if len(extra) > 0 {
		parts = append(parts, "unexpected: "+joinSorted(extra))
	}
	return specErr(path, strings.Join(parts, "; "))
}

func joinSorted(items []string) string {
	m := make(map[string]any, len(items))
	for _, it := range items {
		m[it] = struct{}{}
	}
	return "[" + strings.Join(ir.SortedKeys(m), " ") + "]"
}

// normalizeException converts a raw exception field (bare string or
// mapping) into the canonical ir.Exception, mirroring
// spec_compiler.py's _normalize_exception.
func normalizeException(v any, path string) (*ir.Exception, *SpecError) {
	switch val := v.(type) {
	case string:
		return &ir.Exception{Type: val}, nil
	case map[string]any:
		rawType, ok := val["type"]
		if !ok {
			return nil, specErr(path, "exception mapping must include 'type'")
		}
		etype, serr := asString(rawType, path+".type")
		if serr != nil {
			return nil, serr
		}
		result := &ir.Exception{Type: etype}
		if msg, ok := val["message"]; ok {
			m, serr := asString(msg, path+".message")
			if serr != nil {
				return nil, serr
			}
			result.Message = m
		}
		if serr := rejectUnknownKeys(val, map[string]bool{"type": true, "message": true}, path); serr != nil {
			return nil, serr
		}
		return result, nil
	default:
		return nil, specErr(path, "exception must be a string or mapping")
	}
}

func valueFromRaw(v any, path string) (ir.Value, *SpecError) {
	val, err := ir.FromYAML(v)
	if err != nil {
		return ir.Value{}, specErr(path, "%s", err.Error())
	}
	return val, nil
}
