// Package compiler implements the spec parser/validator (C1) and spec
// normalizer (C2): it turns raw problem-definition YAML into the canonical
// ir.IR, rejecting anything malformed or ambiguous along the way. This is a
// structural translation of original_source/codequestions/spec_compiler.py
// into Go, generalized from Django-model glue to a standalone library.
package compiler

import "fmt"

// SpecError is a validation or normalization failure. Path pinpoints the
// offending location in the source document (e.g. "tests[2].args.n"); it is
// empty for document-level failures (malformed YAML, multiple documents).
type SpecError struct {
	Path    string
	Message string
}

func (e *SpecError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

func specErr(path, format string, args ...any) *SpecError {
	return &SpecError{Path: path, Message: fmt.Sprintf(format, args...)}
}
