// Package runner implements the runner generator registry (C3) and the
// content-addressed harness cache (C4): it maps (target language, test
// style) to a pure generator function producing harness source, and caches
// that source by the content of the IR that produced it.
package runner

import (
	"fmt"
	"sync"

	"gradecore/internal/ir"
)

// GeneratorFunc materializes a self-contained test harness source string
// from an IR. Generators are pure: the same IR bytes in MUST produce the
// same harness bytes out (spec.md §4.3).
type GeneratorFunc func(spec *ir.IR) (string, error)

// GeneratorMissing is returned when no generator is registered for a
// (language, style) pair. Surfaced to the caller as a configuration error
// (spec.md §7), never retried.
type GeneratorMissing struct {
	Language string
	Style    ir.TestStyle
}

func (e *GeneratorMissing) Error() string {
	return fmt.Sprintf("no runner generator registered for language=%q style=%q", e.Language, e.Style)
}

type generatorKey struct {
	language string
	style    ir.TestStyle
}

// Registry is process-wide state that is write-once at startup and
// read-only thereafter (Design Note "Global state"): generators register
// themselves from package init() functions, and any Register call observed
// after the first Lookup panics rather than silently mutating live state.
type Registry struct {
	mu       sync.RWMutex
	fns      map[generatorKey]GeneratorFunc
	readOnce bool
}

// defaultRegistry is the process-wide registry. Generator packages call
// Register from their own init() functions against this instance.
var defaultRegistry = NewRegistry()

func NewRegistry() *Registry {
	return &Registry{fns: make(map[generatorKey]GeneratorFunc)}
}

// Register adds a generator for (language, style). It panics if called
// after any Lookup on this Registry has already executed — registration
// must complete during process startup, before the first submission.
func (r *Registry) Register(language string, style ir.TestStyle, fn GeneratorFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.readOnce {
		panic(fmt.Sprintf("runner: Register(%q, %q) called after Lookup has already been served; registries are write-once at startup", language, style))
	}
	r.fns[generatorKey{language, style}] = fn
}

// Lookup finds the generator for (language, style), or a *GeneratorMissing
// error. The first call to Lookup freezes the registry against further
// Register calls.
func (r *Registry) Lookup(language string, style ir.TestStyle) (GeneratorFunc, error) {
	r.mu.Lock()
	r.readOnce = true
	r.mu.Unlock()

	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.fns[generatorKey{language, style}]
	if !ok {
		return nil, &GeneratorMissing{Language: language, Style: style}
	}
	return fn, nil
}

// Languages reports the distinct languages with at least one registered
// generator. The orchestrator's runtime auto-pick works from its configured
// runtimes and does not call it.
func (r *Registry) Languages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := map[string]bool{}
	var out []string
	for k := range r.fns {
		if !seen[k.language] {
			seen[k.language] = true
			out = append(out, k.language)
		}
	}
	return out
}

// Register adds a generator to the process-wide default registry.
func Register(language string, style ir.TestStyle, fn GeneratorFunc) {
	defaultRegistry.Register(language, style, fn)
}

// Lookup resolves a generator from the process-wide default registry.
func Lookup(language string, style ir.TestStyle) (GeneratorFunc, error) {
	return defaultRegistry.Lookup(language, style)
}

// Default returns the process-wide default registry. Tests that want an
// isolated registry construct one with NewRegistry instead.
func Default() *Registry {
	return defaultRegistry
}
