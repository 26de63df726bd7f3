// Package service implements the Service Facade (spec.md section 4.G): the
// public operations of the Incremental Compilation Service, coordinating
// the Phase Ladder, Compilation Result, Compiler Driver Port, TTL+LRU
// Cache, Dependency Extractor, and Dependency Graph.
package service

import (
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"groovyls/internal/cache"
	"groovyls/internal/compileresult"
	"groovyls/internal/depgraph"
	"groovyls/internal/driver"
	"groovyls/internal/extractor"
	"groovyls/internal/groovyast"
	"groovyls/internal/metrics"
	"groovyls/internal/phase"
)

// Service is the Incremental Compilation Service. Construct with New.
type Service struct {
	port   driver.Port
	cache  *cache.Cache
	graph  *depgraph.Graph
	flight singleflight.Group
	log    *zap.Logger
	mx     *metrics.Metrics
	cfg    driver.Config
}

// Option configures a Service at construction time.
type Option func(*Service)

// WithLogger overrides the zap logger used for structured diagnostics;
// the default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithMetrics wires Prometheus instrumentation into the service; the
// default leaves every metric uninitialized and unrecorded.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.mx = m }
}

// WithDriverConfig overrides the compiler configuration passed to every
// new driver session; the default is driver.DefaultConfig().
func WithDriverConfig(cfg driver.Config) Option {
	return func(s *Service) { s.cfg = cfg }
}

// New constructs a Service backed by port, with a cache of the given TTL
// and capacity (spec.md section 6: max-cache-entries default 100,
// cache-ttl-milliseconds default 30000) and a process-wide dependency
// graph whose affected-set results are capped at maxGraphDepth entries
// (<=0 uses depgraph's default).
func New(port driver.Port, ttl time.Duration, maxCacheEntries int, maxGraphDepth int, opts ...Option) *Service {
	g := depgraph.New()
	if maxGraphDepth > 0 {
		g = g.WithMaxDepth(maxGraphDepth)
	}
	s := &Service{
		port:  port,
		cache: cache.New(ttl, maxCacheEntries),
		graph: g,
		log:   zap.NewNop(),
		cfg:   driver.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fingerprint computes the source fingerprint (spec.md section 3) used to
// distinguish same-name-different-content from same-name-same-content.
// xxhash is a non-cryptographic, high-throughput hash; only strong
// bytewise equality is required here, never collision resistance against
// an adversary, so xxhash is the right tool rather than a cryptographic
// digest.
func Fingerprint(source string) uint64 {
	return xxhash.Sum64String(source)
}

// CompileToPhase is the backwards-compatible entry point (spec.md section
// 4.G): equivalent to CompileToPhaseWithResult, discarding errors on
// success and returning (nil, false) for a Partial or Failure result.
func (s *Service) CompileToPhase(name, source string, target phase.Phase) (*groovyast.File, bool) {
	result := s.CompileToPhaseWithResult(name, source, target)
	if result.IsSuccessful() {
		return result.AST(), true
	}
	return nil, false
}

// CompileToPhaseWithResult implements the nine-step protocol of spec.md
// section 4.G.
func (s *Service) CompileToPhaseWithResult(name, source string, target phase.Phase) compileresult.Result {
	if source == "" {
		return compileresult.NewFailure([]compileresult.CompilationError{
			compileresult.NewError("Source code cannot be null/empty", 0, 0, name, compileresult.KindSyntax),
		})
	}

	fp := Fingerprint(source)

	if entry, ok := s.cache.Get(name); ok && entry.Satisfies(fp, target) {
		s.recordHit()
		return entry.Result
	}

	flightKey := fmt.Sprintf("%s\x00%d\x00%d", name, fp, target)
	v, _, _ := s.flight.Do(flightKey, func() (interface{}, error) {
		// Double-checked: another goroutine may have admitted a
		// satisfying entry while we waited to enter the flight.
		if entry, ok := s.cache.Get(name); ok && entry.Satisfies(fp, target) {
			s.recordHit()
			return entry.Result, nil
		}
		return s.compileAndAdmit(name, source, fp, target), nil
	})

	return v.(compileresult.Result)
}

func (s *Service) recordHit() {
	if s.mx != nil {
		s.mx.CacheHits.Inc()
	}
}

func (s *Service) compileAndAdmit(name, source string, fp uint64, target phase.Phase) compileresult.Result {
	if s.mx != nil {
		s.mx.CacheMisses.Inc()
	}
	start := time.Now()

	session := s.port.NewSession(s.cfg, name, source)
	adv := session.Advance(target)

	if s.mx != nil {
		s.mx.CompileDuration.WithLabelValues(target.String()).Observe(time.Since(start).Seconds())
	}

	var allErrors []compileresult.CompilationError
	if adv.Thrown != nil {
		// spec.md section 4.C: a thrown driver exception becomes a single
		// synthetic "compilation failed" error; it never escapes as a panic
		// or Go error return from this method.
		allErrors = append(allErrors, compileresult.CompilationFailedError(name, adv.Thrown))
	} else {
		allErrors = append(allErrors, session.Errors()...)
		allErrors = append(allErrors, session.Warnings()...)
	}

	ast := session.AST()
	result := compileresult.Classify(ast, allErrors)

	reached := adv.Reached
	if result.AST() != nil && reached >= phase.Conversion {
		deps := extractor.Extract(ast)
		s.graph.Record(name, deps)
	} else if result.Status() == compileresult.StatusFailure {
		s.graph.Clear(name)
	}

	s.cache.Put(name, cache.Entry{
		Fingerprint: fp,
		Reached:     reached,
		Result:      result,
	})

	if s.mx != nil {
		s.mx.Compiles.WithLabelValues(result.Status().String()).Inc()
	}
	s.log.Debug("compiled module",
		zap.String("name", name),
		zap.Stringer("target_phase", target),
		zap.Stringer("reached_phase", reached),
		zap.Stringer("status", result.Status()))

	return result
}

// UpdateModule implements spec.md section 4.G's update-module shortcut:
// invalidate the cached entry for name, then recompile newSource at the
// phase originalAST was produced at. originalAST's own reached phase is
// not recoverable from the AST handle alone, so callers pass the phase
// they compiled originalAST to.
func (s *Service) UpdateModule(name string, originalPhase phase.Phase, newSource string) (*groovyast.File, bool) {
	s.cache.Invalidate(name)
	return s.CompileToPhase(name, newSource, originalPhase)
}

// Affected implements spec.md section 4.G's affected-set query.
func (s *Service) Affected(name string) []string {
	result := s.graph.Affected(name)
	if s.mx != nil {
		s.mx.AffectedSetSize.Observe(float64(len(result)))
	}
	return result
}

// GetDependencies implements the get-dependencies external operation
// (spec.md section 6): the extractor's mapping for an arbitrary AST, for
// testability and tooling, independent of whether that AST is cached.
func (s *Service) GetDependencies(ast *groovyast.File) map[string]extractor.Relation {
	return extractor.AsMap(extractor.Extract(ast))
}

// GetAffectedModules is the external-interface name (spec.md section 6)
// for Affected.
func (s *Service) GetAffectedModules(name string) []string {
	return s.Affected(name)
}

// ClearCache implements clear-cache(name): removes the cache entry and the
// module's outgoing graph edges.
func (s *Service) ClearCache(name string) {
	s.cache.Invalidate(name)
	s.graph.Clear(name)
	if s.mx != nil {
		s.mx.CacheEvictions.Inc()
	}
}

// ClearAllCaches implements clear-all-caches(): empties the cache and the
// entire dependency graph.
func (s *Service) ClearAllCaches() {
	s.cache.Clear()
	s.graph.ClearAll()
}

// Stats is a point-in-time snapshot of service occupancy, supplementing
// the spec's operation list the way mangle.Stats supplements the teacher's
// engine (internal/mangle/engine.go) with an observability accessor the
// core protocol doesn't strictly require but every production caller ends
// up wanting.
type Stats struct {
	CacheSize  int
	GraphNodes int
	GraphEdges int
}

// GetStats returns a snapshot of cache and graph occupancy.
func (s *Service) GetStats() Stats {
	return Stats{
		CacheSize:  s.cache.Size(),
		GraphNodes: s.graph.Size(),
		GraphEdges: s.graph.EdgeCount(),
	}
}
