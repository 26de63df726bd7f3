package service

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"

	"groovyls/internal/compileresult"
	"groovyls/internal/driver"
	"groovyls/internal/driver/groovydriver"
	"groovyls/internal/groovyast"
	"groovyls/internal/phase"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestService() *Service {
	return New(groovydriver.NewPort(), 30*time.Second, 100, 0)
}

func TestRejectsEmptySource(t *testing.T) {
	svc := newTestService()
	result := svc.CompileToPhaseWithResult("Empty.groovy", "", phase.Conversion)
	assert.Equal(t, compileresult.StatusFailure, result.Status())
	first, ok := result.FirstError()
	require.True(t, ok)
	assert.Equal(t, compileresult.KindSyntax, first.Kind)
	assert.Contains(t, first.Message, "cannot be null/empty")
}

func TestS1CacheIdempotence(t *testing.T) {
	svc := newTestService()
	first := svc.CompileToPhaseWithResult("Cached.groovy", "class CachedClass { }", phase.Conversion)
	second := svc.CompileToPhaseWithResult("Cached.groovy", "class CachedClass { }", phase.Conversion)

	require.True(t, first.IsSuccessful())
	assert.Same(t, first.AST(), second.AST(), "cache hit must return the identical AST handle")
}

func TestContentSensitivity(t *testing.T) {
	svc := newTestService()
	first := svc.CompileToPhaseWithResult("A.groovy", "class A { }", phase.Conversion)
	second := svc.CompileToPhaseWithResult("A.groovy", "class ADifferent { }", phase.Conversion)

	require.True(t, first.IsSuccessful())
	require.True(t, second.IsSuccessful())
	assert.NotSame(t, first.AST(), second.AST())
	assert.NotEqual(t, first.AST().Classes[0].Name, second.AST().Classes[0].Name)
}

func TestPhaseMonotonicity(t *testing.T) {
	svc := newTestService()
	deep := svc.CompileToPhaseWithResult("A.groovy", "class A { }", phase.SemanticAnalysis)
	require.True(t, deep.IsSuccessful())

	shallow := svc.CompileToPhaseWithResult("A.groovy", "class A { }", phase.Conversion)
	assert.Same(t, deep.AST(), shallow.AST(), "a request for a shallower phase must be served from the deeper cached entry")
}

// countingPort wraps groovydriver's port and counts NewSession calls, to
// verify at-most-one-build under concurrent identical requests.
type countingPort struct {
	inner driver.Port
	calls int64
}

func (p *countingPort) NewSession(cfg driver.Config, logicalName, sourceText string) driver.Session {
	atomic.AddInt64(&p.calls, 1)
	return p.inner.NewSession(cfg, logicalName, sourceText)
}

func TestAtMostOneBuildUnderConcurrency(t *testing.T) {
	defer goleak.VerifyNone(t)

	port := &countingPort{inner: groovydriver.NewPort()}
	svc := New(port, 30*time.Second, 100, 0)

	const n = 32
	var wg sync.WaitGroup
	results := make([]compileresult.Result, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			results[idx] = svc.CompileToPhaseWithResult("Shared.groovy", "class Shared { }", phase.Conversion)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), atomic.LoadInt64(&port.calls), "exactly one driver session must be created")
	for i := 1; i < n; i++ {
		assert.Same(t, results[0].AST(), results[i].AST())
	}
}

// TestConcurrentCompilesAcrossDistinctNames fans out N concurrent compiles
// of distinct modules with errgroup, the same controlled-concurrency
// fan-out pattern the teacher uses for parallel gathering
// (internal/campaign/intelligence_gatherer.go): operations on distinct
// logical names are unordered with respect to each other (spec.md
// section 5) and must all succeed independently.
func TestConcurrentCompilesAcrossDistinctNames(t *testing.T) {
	defer goleak.VerifyNone(t)

	svc := newTestService()
	var eg errgroup.Group
	for i := 0; i < 20; i++ {
		name := string(rune('A' + i))
		eg.Go(func() error {
			result := svc.CompileToPhaseWithResult(name+".groovy", "class "+name+" { }", phase.SemanticAnalysis)
			if !result.IsSuccessful() {
				return assertErr{"expected success for " + name}
			}
			return nil
		})
	}
	require.NoError(t, eg.Wait())
	assert.Equal(t, 20, svc.GetStats().CacheSize)
}

type assertErr struct{ msg string }

func (e assertErr) Error() string { return e.msg }

func TestTTLCorrectness(t *testing.T) {
	svc := New(groovydriver.NewPort(), 10*time.Millisecond, 100, 0)
	first := svc.CompileToPhaseWithResult("A.groovy", "class A { }", phase.Conversion)
	require.True(t, first.IsSuccessful())

	time.Sleep(25 * time.Millisecond)
	second := svc.CompileToPhaseWithResult("A.groovy", "class A { }", phase.Conversion)
	require.True(t, second.IsSuccessful())
	assert.NotSame(t, first.AST(), second.AST(), "TTL expiry must force recompilation")
}

func TestS6EvictionCapacityThree(t *testing.T) {
	svc := New(groovydriver.NewPort(), 30*time.Second, 3, 0)

	t0First := svc.CompileToPhaseWithResult("Test0.groovy", "class Test0 { }", phase.Conversion)
	svc.CompileToPhase("Test1.groovy", "class Test1 { }", phase.Conversion)
	svc.CompileToPhase("Test2.groovy", "class Test2 { }", phase.Conversion)
	svc.CompileToPhase("Test3.groovy", "class Test3 { }", phase.Conversion)

	t0Second := svc.CompileToPhaseWithResult("Test0.groovy", "class Test0 { }", phase.Conversion)
	assert.NotSame(t, t0First.AST(), t0Second.AST(), "Test0 must have been evicted and recompiled")

	for _, name := range []struct{ file, src string }{
		{"Test1.groovy", "class Test1 { }"},
		{"Test2.groovy", "class Test2 { }"},
		{"Test3.groovy", "class Test3 { }"},
	} {
		cached := svc.CompileToPhaseWithResult(name.file, name.src, phase.Conversion)
		assert.True(t, cached.IsSuccessful())
	}
}

func TestS5SyntaxErrorFailure(t *testing.T) {
	svc := newTestService()
	result := svc.CompileToPhaseWithResult("T.groovy", "class T { void m() { def x = } }", phase.Conversion)

	assert.Equal(t, compileresult.StatusFailure, result.Status())
	assert.True(t, result.HasErrors())
	assert.False(t, result.IsSuccessful())
	first, ok := result.FirstError()
	require.True(t, ok)
	assert.Equal(t, compileresult.KindSyntax, first.Kind)
	assert.Equal(t, 1, first.Line)
}

func TestGraphFreshnessAfterCompile(t *testing.T) {
	svc := newTestService()
	svc.CompileToPhaseWithResult("B.groovy", "class B extends A { }", phase.SemanticAnalysis)

	affected := svc.Affected("A")
	assert.ElementsMatch(t, []string{"B.groovy"}, affected)

	svc.CompileToPhaseWithResult("B.groovy", "class B { }", phase.SemanticAnalysis)
	assert.Empty(t, svc.Affected("A"), "stale edge from B's prior version must be gone")
}

func TestAffectedSetChainS3(t *testing.T) {
	svc := newTestService()
	svc.CompileToPhaseWithResult("A.groovy", "class A { }", phase.SemanticAnalysis)
	svc.CompileToPhaseWithResult("B.groovy", "class B extends A { }", phase.SemanticAnalysis)
	svc.CompileToPhaseWithResult("C.groovy", "class C extends B { }", phase.SemanticAnalysis)

	assert.ElementsMatch(t, []string{"B.groovy", "C.groovy"}, svc.Affected("A"))
}

func TestUpdateModuleRecompiles(t *testing.T) {
	svc := newTestService()
	first, ok := svc.CompileToPhase("A.groovy", "class A { }", phase.Conversion)
	require.True(t, ok)

	second, ok := svc.UpdateModule("A.groovy", phase.Conversion, "class ARenamed { }")
	require.True(t, ok)
	assert.NotSame(t, first, second)
	assert.Equal(t, "ARenamed", second.Classes[0].Name)
}

func TestClearCacheAndClearAll(t *testing.T) {
	svc := newTestService()
	svc.CompileToPhaseWithResult("A.groovy", "class A { }", phase.SemanticAnalysis)

	svc.ClearCache("A.groovy")
	stats := svc.GetStats()
	assert.Equal(t, 0, stats.CacheSize)

	svc.CompileToPhaseWithResult("A.groovy", "class A { }", phase.SemanticAnalysis)
	svc.CompileToPhaseWithResult("B.groovy", "class B { }", phase.SemanticAnalysis)
	svc.ClearAllCaches()

	stats = svc.GetStats()
	assert.Equal(t, 0, stats.CacheSize)
	assert.Equal(t, 0, stats.GraphNodes)
}

func TestGetDependenciesIndependentOfCache(t *testing.T) {
	svc := newTestService()
	ast := &groovyast.File{
		Classes: []groovyast.Class{{Name: "T", Superclass: "Base"}},
	}
	deps := svc.GetDependencies(ast)
	assert.Equal(t, 1, len(deps))
}

func TestNoExceptionEscapesOnMalformedSource(t *testing.T) {
	svc := newTestService()
	inputs := []string{
		"class T { void m() { def x = } }",
		"class { } }",
		"}}}{{{",
		"class T {",
	}
	for _, src := range inputs {
		assert.NotPanics(t, func() {
			result := svc.CompileToPhaseWithResult("T.groovy", src, phase.Output)
			assert.False(t, result.Status() == compileresult.StatusSuccess && result.AST() == nil)
		})
	}
}
