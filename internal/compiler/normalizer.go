package compiler

import (
	"fmt"
	"strings"

	"gradecore/internal/ir"
)

// normalizeStandardIO validates and normalizes a "standardIo" problem's
// tests list, mirroring spec_compiler.py's _normalize_standard_io_tests.
func normalizeStandardIO(raw map[string]any) (*ir.StandardIOSpec, *SpecError) {
	rawTests, serr := requireTestsList(raw)
	if serr != nil {
		return nil, serr
	}
	if serr := requireNonEmpty(len(rawTests), "tests"); serr != nil {
		return nil, serr
	}

	seen := map[string]bool{}
	tests := make([]ir.StandardIOTest, 0, len(rawTests))

	for i, rawTest := range rawTests {
		path := fmt.Sprintf("tests[%d]", i)
		m, ok := rawTest.(map[string]any)
		if !ok {
			return nil, specErr(path, "must be a mapping")
		}

		name, serr := requireName(m, path)
		if serr != nil {
			return nil, serr
		}
		if seen[name] {
			return nil, specErr(path+".name", "duplicate test name '%s'", name)
		}
		seen[name] = true

		var stdin string
		if v, ok := m["stdin"]; ok {
			stdin, serr = asString(v, path+".stdin")
			if serr != nil {
				return nil, serr
			}
		}

		rawStdout, ok := m["stdout"]
		if !ok {
			return nil, specErr(path+".stdout", "Missing required key 'stdout'")
		}
		stdout, serr := asString(rawStdout, path+".stdout")
		if serr != nil {
			return nil, serr
		}
		stdout = normalizeNewlines(stdout)
		if !strings.HasSuffix(stdout, "\n") {
			stdout += "\n"
		}

		if serr := rejectUnknownKeys(m, map[string]bool{"name": true, "stdin": true, "stdout": true}, path); serr != nil {
			return nil, serr
		}

		tests = append(tests, ir.StandardIOTest{
			Name:   name,
			Stdin:  normalizeNewlines(stdin),
			Stdout: stdout,
		})
	}

	return &ir.StandardIOSpec{Tests: tests}, nil
}

// normalizeFunctionSignature validates and normalizes the "function" key,
// mirroring spec_compiler.py's _normalize_function_signature.
func normalizeFunctionSignature(raw map[string]any) (ir.FunctionSig, *SpecError) {
	rawFn, ok := raw["function"]
	if !ok {
		return ir.FunctionSig{}, specErr("function", "Missing required key")
	}
	m, ok := rawFn.(map[string]any)
	if !ok {
		return ir.FunctionSig{}, specErr("function", "must be a mapping")
	}

	name, serr := requireName(m, "function")
	if serr != nil {
		return ir.FunctionSig{}, serr
	}

	argsKey, rawArgs := argsKeyAndValue(m)
	args, serr := normalizeArgs(rawArgs, "function."+argsKey)
	if serr != nil {
		return ir.FunctionSig{}, serr
	}

	returns := ir.TypeAny
	if rawReturns, ok := m["returns"]; ok {
		returns, serr = asType(rawReturns, "function.returns")
		if serr != nil {
			return ir.FunctionSig{}, serr
		}
	}

	if serr := rejectUnknownKeys(m, map[string]bool{"name": true, "args": true, "arguments": true, "returns": true}, "function"); serr != nil {
		return ir.FunctionSig{}, serr
	}

	return ir.FunctionSig{Name: name, Args: args, Returns: returns}, nil
}

// argsKeyAndValue resolves the "args"/"arguments" spelling alias accepted by
// spec.md §4.2 ("function.args|arguments (either spelling accepted)"). The
// returned key is used purely for error-path labeling.
func argsKeyAndValue(m map[string]any) (string, any) {
	if v, ok := m["args"]; ok {
		return "args", v
	}
	if v, ok := m["arguments"]; ok {
		return "arguments", v
	}
	return "args", nil
}

func normalizeArgs(raw any, path string) ([]ir.Argument, *SpecError) {
	if raw == nil {
		return nil, nil
	}
	rawList, ok := raw.([]any)
	if !ok {
		return nil, specErr(path, "must be a list")
	}

	seen := map[string]bool{}
	args := make([]ir.Argument, 0, len(rawList))
	for i, item := range rawList {
		itemPath := fmt.Sprintf("%s[%d]", path, i)
		m, ok := item.(map[string]any)
		if !ok {
			return nil, specErr(itemPath, "must be a mapping")
		}
		name, serr := requireName(m, itemPath)
		if serr != nil {
			return nil, serr
		}
		if seen[name] {
			return nil, specErr(itemPath+".name", "duplicate argument name '%s'", name)
		}
		seen[name] = true

		typ := ir.TypeAny
		if rawType, ok := m["type"]; ok {
			typ, serr = asType(rawType, itemPath+".type")
			if serr != nil {
				return nil, serr
			}
		}

		if serr := rejectUnknownKeys(m, map[string]bool{"name": true, "type": true}, itemPath); serr != nil {
			return nil, serr
		}

		args = append(args, ir.Argument{Name: name, Type: typ})
	}
	return args, nil
}

// normalizeFunctionTests validates and normalizes a function problem's
// tests list, mirroring spec_compiler.py's _normalize_function_tests.
func normalizeFunctionTests(rawTests []any, sig ir.FunctionSig) ([]ir.FunctionTest, *SpecError) {
	if serr := requireNonEmpty(len(rawTests), "tests"); serr != nil {
		return nil, serr
	}

	argNames := make([]string, len(sig.Args))
	for i, a := range sig.Args {
		argNames[i] = a.Name
	}

	seen := map[string]bool{}
	tests := make([]ir.FunctionTest, 0, len(rawTests))

	for i, rawTest := range rawTests {
		path := fmt.Sprintf("tests[%d]", i)
		m, ok := rawTest.(map[string]any)
		if !ok {
			return nil, specErr(path, "must be a mapping")
		}

		name, serr := requireName(m, path)
		if serr != nil {
			return nil, serr
		}
		if seen[name] {
			return nil, specErr(path+".name", "duplicate test name '%s'", name)
		}
		seen[name] = true

		rawArgs, ok := m["args"]
		if !ok {
			rawArgs = map[string]any{}
		}
		argMap, ok := rawArgs.(map[string]any)
		if !ok {
			return nil, specErr(path+".args", "must be a mapping of argument name to value")
		}
		if serr := checkExactKeys(argMap, argNames, path+".args"); serr != nil {
			return nil, serr
		}

		positional := make([]ir.Value, len(argNames))
		for idx, argName := range argNames {
			val, serr := valueFromRaw(argMap[argName], fmt.Sprintf("%s.args.%s", path, argName))
			if serr != nil {
				return nil, serr
			}
			positional[idx] = val
		}

		_, hasExpected := m["expected"]
		_, hasException := m["exception"]
		if hasExpected == hasException {
			return nil, specErr(path, "exactly one of 'expected' or 'exception' must be set")
		}

		test := ir.FunctionTest{Name: name, Args: positional}
		if hasExpected {
			val, serr := valueFromRaw(m["expected"], path+".expected")
			if serr != nil {
				return nil, serr
			}
			test.Expected = &val
		} else {
			exc, serr := normalizeException(m["exception"], path+".exception")
			if serr != nil {
				return nil, serr
			}
			test.Exception = exc
		}

		if serr := rejectUnknownKeys(m, map[string]bool{"name": true, "args": true, "expected": true, "exception": true}, path); serr != nil {
			return nil, serr
		}

		tests = append(tests, test)
	}

	return tests, nil
}

func normalizeFunction(raw map[string]any) (*ir.FunctionSpec, *SpecError) {
	sig, serr := normalizeFunctionSignature(raw)
	if serr != nil {
		return nil, serr
	}
	rawTests, serr := requireTestsList(raw)
	if serr != nil {
		return nil, serr
	}
	tests, serr := normalizeFunctionTests(rawTests, sig)
	if serr != nil {
		return nil, serr
	}
	return &ir.FunctionSpec{Function: sig, Tests: tests}, nil
}

// normalizeClassSignature validates and normalizes the "class" key,
// mirroring spec_compiler.py's _normalize_class_signature. The constructor,
// if declared, must be spelled "init" (ir.ConstructorName) in the source
// spec; it is never rewritten here, only at generation time.
func normalizeClassSignature(raw map[string]any) (ir.ClassSig, *SpecError) {
	rawClass, ok := raw["class"]
	if !ok {
		return ir.ClassSig{}, specErr("class", "Missing required key")
	}
	m, ok := rawClass.(map[string]any)
	if !ok {
		return ir.ClassSig{}, specErr("class", "must be a mapping")
	}

	name, serr := requireName(m, "class")
	if serr != nil {
		return ir.ClassSig{}, serr
	}

	rawMethods, ok := m["methods"]
	if !ok {
		return ir.ClassSig{}, specErr("class.methods", "Missing required key")
	}
	rawList, ok := rawMethods.([]any)
	if !ok {
		return ir.ClassSig{}, specErr("class.methods", "must be a list")
	}
	if serr := requireNonEmpty(len(rawList), "class.methods"); serr != nil {
		return ir.ClassSig{}, serr
	}

	seen := map[string]bool{}
	methods := make([]ir.Method, 0, len(rawList))
	for i, item := range rawList {
		path := fmt.Sprintf("class.methods[%d]", i)
		mm, ok := item.(map[string]any)
		if !ok {
			return ir.ClassSig{}, specErr(path, "must be a mapping")
		}
		mname, serr := requireName(mm, path)
		if serr != nil {
			return ir.ClassSig{}, serr
		}
		if seen[mname] {
			return ir.ClassSig{}, specErr(path+".name", "duplicate method name '%s'", mname)
		}
		seen[mname] = true

		args, serr := normalizeArgs(mm["args"], path+".args")
		if serr != nil {
			return ir.ClassSig{}, serr
		}

		returns := ir.TypeAny
		if rawReturns, ok := mm["returns"]; ok {
			returns, serr = asType(rawReturns, path+".returns")
			if serr != nil {
				return ir.ClassSig{}, serr
			}
		}

		if serr := rejectUnknownKeys(mm, map[string]bool{"name": true, "args": true, "returns": true}, path); serr != nil {
			return ir.ClassSig{}, serr
		}

		methods = append(methods, ir.Method{Name: mname, Args: args, Returns: returns})
	}

	if serr := rejectUnknownKeys(m, map[string]bool{"name": true, "methods": true}, "class"); serr != nil {
		return ir.ClassSig{}, serr
	}

	return ir.ClassSig{Name: name, Methods: methods}, nil
}

// getMethodSig looks up a method declared on class, returning a *SpecError
// (not a bare Go error) when absent so callers can propagate it directly,
// mirroring spec_compiler.py's _get_method_sig.
func getMethodSig(class ir.ClassSig, name, path string) (ir.Method, *SpecError) {
	m, err := class.MethodSignature(name)
	if err != nil {
		return ir.Method{}, specErr(path, "class '%s' has no method '%s'", class.Name, name)
	}
	return m, nil
}

func normalizeArgsAgainstSig(rawArgs any, argNames []string, path string) ([]ir.Value, *SpecError) {
	if rawArgs == nil {
		rawArgs = map[string]any{}
	}
	argMap, ok := rawArgs.(map[string]any)
	if !ok {
		return nil, specErr(path, "must be a mapping of argument name to value")
	}
	if serr := checkExactKeys(argMap, argNames, path); serr != nil {
		return nil, serr
	}
	positional := make([]ir.Value, len(argNames))
	for idx, argName := range argNames {
		val, serr := valueFromRaw(argMap[argName], fmt.Sprintf("%s.%s", path, argName))
		if serr != nil {
			return nil, serr
		}
		positional[idx] = val
	}
	return positional, nil
}

// normalizeOOPTests validates and normalizes an oop problem's tests list,
// mirroring spec_compiler.py's _normalize_oop_tests.
func normalizeOOPTests(rawTests []any, class ir.ClassSig) ([]ir.OOPTest, *SpecError) {
	if serr := requireNonEmpty(len(rawTests), "tests"); serr != nil {
		return nil, serr
	}

	seenTestNames := map[string]bool{}
	tests := make([]ir.OOPTest, 0, len(rawTests))

	for i, rawTest := range rawTests {
		path := fmt.Sprintf("tests[%d]", i)
		m, ok := rawTest.(map[string]any)
		if !ok {
			return nil, specErr(path, "must be a mapping")
		}

		name, serr := requireName(m, path)
		if serr != nil {
			return nil, serr
		}
		if seenTestNames[name] {
			return nil, specErr(path+".name", "duplicate test name '%s'", name)
		}
		seenTestNames[name] = true

		bound := map[string]bool{}

		var setup []ir.CreateOp
		if rawSetup, ok := m["setup"]; ok {
			rawSetupList, ok := rawSetup.([]any)
			if !ok {
				return nil, specErr(path+".setup", "must be a list")
			}
			for j, rawOp := range rawSetupList {
				opPath := fmt.Sprintf("%s.setup[%d]", path, j)
				op, serr := normalizeCreateOp(rawOp, opPath, class)
				if serr != nil {
					return nil, serr
				}
				if bound[op.As] {
					return nil, specErr(opPath+".as", "duplicate binding name '%s'", op.As)
				}
				bound[op.As] = true
				setup = append(setup, op)
			}
		}

		rawSteps, ok := m["steps"]
		if !ok {
			return nil, specErr(path+".steps", "Missing required key")
		}
		rawStepsList, ok := rawSteps.([]any)
		if !ok {
			return nil, specErr(path+".steps", "must be a list")
		}
		if serr := requireNonEmpty(len(rawStepsList), path+".steps"); serr != nil {
			return nil, serr
		}

		steps := make([]ir.CallOp, 0, len(rawStepsList))
		for j, rawOp := range rawStepsList {
			opPath := fmt.Sprintf("%s.steps[%d]", path, j)
			op, serr := normalizeCallOp(rawOp, opPath, class, bound)
			if serr != nil {
				return nil, serr
			}
			steps = append(steps, op)
		}

		if serr := rejectUnknownKeys(m, map[string]bool{"name": true, "setup": true, "steps": true}, path); serr != nil {
			return nil, serr
		}

		tests = append(tests, ir.OOPTest{Name: name, Setup: setup, Steps: steps})
	}

	return tests, nil
}

func normalizeCreateOp(rawOp any, path string, class ir.ClassSig) (ir.CreateOp, *SpecError) {
	m, ok := rawOp.(map[string]any)
	if !ok {
		return ir.CreateOp{}, specErr(path, "must be a mapping")
	}

	rawClassName, ok := m["class"]
	if !ok {
		return ir.CreateOp{}, specErr(path+".class", "Missing required key")
	}
	className, serr := asIdentifier(rawClassName, path+".class")
	if serr != nil {
		return ir.CreateOp{}, serr
	}
	if className != class.Name {
		return ir.CreateOp{}, specErr(path+".class", "unknown class '%s'", className)
	}

	rawAs, ok := m["as"]
	if !ok {
		return ir.CreateOp{}, specErr(path+".as", "Missing required key")
	}
	as, serr := asIdentifier(rawAs, path+".as")
	if serr != nil {
		return ir.CreateOp{}, serr
	}

	// A class with no declared constructor is valid; only a create step that
	// actually supplies args needs one to validate them against.
	rawArgs, hasArgs := m["args"]
	suppliesArgs := hasArgs
	if argMap, ok := rawArgs.(map[string]any); ok {
		suppliesArgs = len(argMap) > 0
	}

	var argNames []string
	if suppliesArgs {
		ctor, serr := getMethodSig(class, ir.ConstructorName, path)
		if serr != nil {
			return ir.CreateOp{}, serr
		}
		argNames = make([]string, len(ctor.Args))
		for i, a := range ctor.Args {
			argNames[i] = a.Name
		}
	}
	args, serr := normalizeArgsAgainstSig(rawArgs, argNames, path+".args")
	if serr != nil {
		return ir.CreateOp{}, serr
	}

	if serr := rejectUnknownKeys(m, map[string]bool{"class": true, "as": true, "args": true}, path); serr != nil {
		return ir.CreateOp{}, serr
	}

	return ir.CreateOp{Op: "create", Class: className, As: as, Args: args}, nil
}

func normalizeCallOp(rawOp any, path string, class ir.ClassSig, bound map[string]bool) (ir.CallOp, *SpecError) {
	m, ok := rawOp.(map[string]any)
	if !ok {
		return ir.CallOp{}, specErr(path, "must be a mapping")
	}

	rawOn, ok := m["on"]
	if !ok {
		return ir.CallOp{}, specErr(path+".on", "Missing required key")
	}
	on, serr := asIdentifier(rawOn, path+".on")
	if serr != nil {
		return ir.CallOp{}, serr
	}
	if !bound[on] {
		return ir.CallOp{}, specErr(path+".on", "'%s' was never created by a setup step", on)
	}

	rawMethod, ok := m["method"]
	if !ok {
		return ir.CallOp{}, specErr(path+".method", "Missing required key")
	}
	method, serr := asIdentifier(rawMethod, path+".method")
	if serr != nil {
		return ir.CallOp{}, serr
	}

	sig, serr := getMethodSig(class, method, path+".method")
	if serr != nil {
		return ir.CallOp{}, serr
	}
	argNames := make([]string, len(sig.Args))
	for i, a := range sig.Args {
		argNames[i] = a.Name
	}
	args, serr := normalizeArgsAgainstSig(m["args"], argNames, path+".args")
	if serr != nil {
		return ir.CallOp{}, serr
	}

	_, hasExpected := m["expected"]
	_, hasException := m["exception"]
	if hasExpected == hasException {
		return ir.CallOp{}, specErr(path, "exactly one of 'expected' or 'exception' must be set")
	}

	op := ir.CallOp{Op: "call", On: on, Method: method, Args: args}
	if hasExpected {
		val, serr := valueFromRaw(m["expected"], path+".expected")
		if serr != nil {
			return ir.CallOp{}, serr
		}
		op.Expected = &val
	} else {
		exc, serr := normalizeException(m["exception"], path+".exception")
		if serr != nil {
			return ir.CallOp{}, serr
		}
		op.Exception = exc
	}

	if serr := rejectUnknownKeys(m, map[string]bool{"on": true, "method": true, "args": true, "expected": true, "exception": true}, path); serr != nil {
		return ir.CallOp{}, serr
	}

	return op, nil
}

func normalizeOOP(raw map[string]any) (*ir.OOPSpec, *SpecError) {
	class, serr := normalizeClassSignature(raw)
	if serr != nil {
		return nil, serr
	}
	rawTests, serr := requireTestsList(raw)
	if serr != nil {
		return nil, serr
	}
	tests, serr := normalizeOOPTests(rawTests, class)
	if serr != nil {
		return nil, serr
	}
	return &ir.OOPSpec{Class: class, Tests: tests}, nil
}
