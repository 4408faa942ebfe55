package ir

import (
	"bytes"
	"encoding/json"
)

// CanonicalBytes renders the IR to a stable byte sequence: struct field
// order (fixed at compile time) acts as the canonical key order, and the
// encoder is configured not to HTML-escape so the bytes are stable across
// Go versions. Two IRs are semantically equal iff CanonicalBytes are equal
// (spec.md §6 "External Interfaces").
func (ir *IR) CanonicalBytes() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(ir); err != nil {
		return nil, err
	}
	// json.Encoder.Encode appends a trailing newline; strip it so
	// CanonicalBytes has no incidental trailing whitespace dependence.
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Equal reports byte-equality of the canonical serialization of two IRs,
// which is defined to be semantic equality (spec.md invariant: equivalent
// re-compiles do not bump ir_version).
func Equal(a, b *IR) (bool, error) {
	ab, err := a.CanonicalBytes()
	if err != nil {
		return false, err
	}
	bb, err := b.CanonicalBytes()
	if err != nil {
		return false, err
	}
	return bytes.Equal(ab, bb), nil
}

// FromCanonicalBytes parses previously serialized canonical bytes back into
// an IR. Used by the round-trip property test (compile(serialize(ir)) ==
// ir) and by the orchestrator when decoding the IR bytes the store returns
// for a persisted Problem record.
func FromCanonicalBytes(data []byte) (*IR, error) {
	var out IR
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
