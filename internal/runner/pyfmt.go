package runner

import "encoding/json"

// pyLiteral renders s as a Python string literal. JSON's string escaping
// (\n, \t, \", \\, \uXXXX) is a strict subset of Python's, so a JSON-encoded
// string is always a valid Python double-quoted literal.
func pyLiteral(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
