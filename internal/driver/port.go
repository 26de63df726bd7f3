// Package driver defines the Compiler Driver Port (spec.md section 4.C /
// 6) consumed by the Service Facade: a thin adapter that, given a source
// text, a logical name, and a target phase, produces a session that can be
// advanced and inspected. The core never depends on a concrete compiler
// implementation directly — only on this port — so the reference
// implementation in the groovydriver subpackage can be swapped for a real
// Groovy toolchain binding without touching the cache, graph, or facade.
package driver

import (
	"groovyls/internal/compileresult"
	"groovyls/internal/groovyast"
	"groovyls/internal/phase"
)

// Config is an opaque compiler configuration value (spec.md section 6,
// "Compiler Configuration Port"). The core never inspects its fields; it
// only threads it through to NewSession.
type Config struct {
	Encoding          string
	ModernSyntax      bool // "parrot parser" flag
	Invokedynamic     bool
	PreserveGroovydoc bool
	ClasspathEntries  []string
}

// DefaultConfig returns the default configuration described in spec.md
// section 6: UTF-8 encoding, modern syntax enabled, invokedynamic enabled,
// groovydoc preserved.
func DefaultConfig() Config {
	return Config{
		Encoding:          "UTF-8",
		ModernSyntax:      true,
		Invokedynamic:     true,
		PreserveGroovydoc: true,
	}
}

// WithClasspath returns a copy of cfg with the given classpath entries set,
// for classpath-aware compiles as opposed to standalone-script compiles.
func (cfg Config) WithClasspath(entries ...string) Config {
	cfg.ClasspathEntries = append([]string(nil), entries...)
	return cfg
}

// Session is a single compile attempt for one (logical name, source text)
// pair, advanced phase by phase. A Session is never shared across compile
// calls: each call to Port.NewSession creates its own.
type Session interface {
	// Advance drives the session to the requested phase. It is idempotent:
	// calling with a phase <= the phase already reached is a no-op that
	// returns the phase actually reached and no error. AdvanceResult.Thrown
	// is non-nil if and only if the underlying driver raised an exception;
	// the core folds that into a single "compilation failed" error and never
	// lets it escape as a panic or a Go error return.
	Advance(requested phase.Phase) AdvanceResult

	// AST returns the module AST reached so far, or nil if no phase that
	// produces an AST has completed yet.
	AST() *groovyast.File

	// Errors returns non-warning diagnostics emitted so far, in emission order.
	Errors() []compileresult.CompilationError

	// Warnings returns warning diagnostics emitted so far, in emission order.
	Warnings() []compileresult.CompilationError
}

// AdvanceResult is the outcome of one Advance call. This is the explicit,
// result-valued replacement for "driver throws, facade catches" (spec.md
// section 9, "Thrown-and-caught-as-control-flow"): Thrown is one tagged
// variant of this result rather than a panic or a returned error the
// facade has to recover from.
type AdvanceResult struct {
	// Reached is the highest phase actually completed by this call.
	Reached phase.Phase
	// Succeeded is true if the driver itself reports the phase completed
	// without a fatal exception (there may still be syntax/semantic errors
	// recorded via Errors() — that is a normal compile failure, not a thrown
	// exception).
	Succeeded bool
	// Thrown is non-nil only when the underlying driver raised an exception;
	// its message becomes a single synthetic "compilation failed" error.
	Thrown error
}

// Port is the adapter the Service Facade depends on. Implementations wrap a
// concrete Groovy compiler (or, for tests, a fake).
type Port interface {
	// NewSession creates a fresh compile session for the given logical name
	// and source text, using cfg. It does not itself perform any compilation.
	NewSession(cfg Config, logicalName, sourceText string) Session
}
