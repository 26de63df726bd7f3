// Package depgraph implements the process-wide Dependency Graph (spec.md
// section 4.F): a reverse-adjacency index over logical names, built
// incrementally as modules are compiled, supporting transitive reverse
// reachability.
//
// Outgoing edges are stored as facts in a github.com/google/mangle Datalog
// engine rather than as a hand-rolled adjacency map, following the same
// fact-store-plus-recursive-rule pattern the teacher's own internal/mangle
// engine wraps: Record writes depends_on facts (atomically replacing a
// name's previous outgoing edges, the way internal/mangle's
// Engine.ReplaceFactsForFile replaces all facts keyed by a file), and
// Affected queries a recursive rule over depends_on instead of walking the
// reverse index by hand.
package depgraph

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	_ "github.com/google/mangle/builtin"
	mengine "github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"
	"github.com/google/mangle/unionfind"

	"groovyls/internal/extractor"
)

// schema declares the two predicates the graph reasons over. depends_on is
// the fact Record writes, one per outgoing edge; affected is a recursive
// rule over depends_on computing the transitive reverse-reachability
// closure, grounded on the edge/path transitive-closure schema the
// teacher's own engine tests exercise (internal/mangle/engine_test.go,
// TestDerivedFactsGasLimit's "path(X, Z) :- edge(X, Y), path(Y, Z)." rule).
const schema = `
Decl depends_on(Name, Dep, Rel) bound [/string, /string, /string].
Decl affected(Dep, Name) descr [mode("+", "-")].

affected(Dep, Name) :- depends_on(Name, Dep, _).
affected(Dep, Name) :- depends_on(Name, Mid, _), affected(Dep, Mid).
`

// Package-level, parsed once: the schema above is a fixed internal
// constant, never user input, so a failure to parse or analyze it is a
// programming error caught at init time rather than a runtime condition
// callers need to handle.
var (
	schemaPredicates  map[string]ast.PredicateSym
	schemaPredToRules map[ast.PredicateSym][]ast.Clause
	schemaPredToDecl  map[ast.PredicateSym]*ast.Decl
)

func init() {
	unit, err := parse.Unit(strings.NewReader(schema))
	if err != nil {
		panic(fmt.Sprintf("depgraph: schema failed to parse: %v", err))
	}

	programInfo, err := analysis.AnalyzeOneUnit(parse.SourceUnit{Clauses: unit.Clauses, Decls: unit.Decls}, nil)
	if err != nil {
		panic(fmt.Sprintf("depgraph: schema failed to analyze: %v", err))
	}

	schemaPredicates = make(map[string]ast.PredicateSym, len(programInfo.Decls))
	schemaPredToDecl = make(map[ast.PredicateSym]*ast.Decl, len(programInfo.Decls))
	for sym, decl := range programInfo.Decls {
		schemaPredicates[sym.Symbol] = sym
		schemaPredToDecl[sym] = decl
	}

	schemaPredToRules = make(map[ast.PredicateSym][]ast.Clause)
	for _, clause := range programInfo.Rules {
		schemaPredToRules[clause.Head.Predicate] = append(schemaPredToRules[clause.Head.Predicate], clause)
	}
}

// defaultResultCap bounds the size of a single Affected result. Mangle's
// Datalog evaluation computes the affected-set fixpoint over whatever
// depends_on facts currently exist, which already guarantees termination
// on cyclic graphs (spec.md section 8 property 8) without a hand-rolled
// visited-set guard; this cap is a sanity ceiling against pathological
// fan-out, not a termination mechanism.
const defaultResultCap = 100000

// errResultCapReached stops an EvalQuery callback early once resultCap
// results have been collected.
var errResultCapReached = errors.New("depgraph: result cap reached")

// Graph is the reverse-adjacency dependency graph, backed by a Mangle
// Datalog engine. The zero value is not usable; construct with New.
type Graph struct {
	mu        sync.RWMutex
	store     factstore.FactStoreWithRemove
	cstore    factstore.ConcurrentFactStore
	queryCtx  *mengine.QueryContext
	fileFacts map[string][]ast.Atom // name -> its current depends_on facts
	resultCap int
}

// New constructs an empty dependency graph.
func New() *Graph {
	base := factstore.NewSimpleInMemoryStore()
	cstore := factstore.NewConcurrentFactStore(base)
	return &Graph{
		store:  base,
		cstore: cstore,
		queryCtx: &mengine.QueryContext{
			PredToRules: schemaPredToRules,
			PredToDecl:  schemaPredToDecl,
			Store:       cstore,
		},
		fileFacts: make(map[string][]ast.Atom),
		resultCap: defaultResultCap,
	}
}

// WithMaxDepth returns g with its affected-set result cap set to max.
// Unlike the hand-rolled traversal this replaces, the Datalog evaluator
// backing Affected does not walk the graph level-by-level, so there is no
// traversal "depth" to bound; max instead caps how many dependents a
// single Affected call will return, guarding the same pathological-fan-out
// case the original depth cap guarded.
func (g *Graph) WithMaxDepth(max int) *Graph {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resultCap = max
	return g
}

// Record atomically replaces all outgoing edges from name with deps,
// removing any previous outgoing edges first, per spec.md section 4.F.
// This mirrors internal/mangle's Engine.ReplaceFactsForFile: remove every
// fact previously recorded for the key, then insert the new ones, under
// one critical section. An empty deps slice simply clears name's outgoing
// edges.
func (g *Graph) Record(name string, deps []extractor.Dependency) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.removeFactsLocked(name)
	if len(deps) == 0 {
		return
	}

	sym := schemaPredicates["depends_on"]
	fresh := make([]ast.Atom, 0, len(deps))
	for _, d := range deps {
		fresh = append(fresh, ast.Atom{
			Predicate: sym,
			Args: []ast.BaseTerm{
				ast.String(name),
				ast.String(d.ExternalClass),
				ast.String(d.Relation.String()),
			},
		})
	}

	for _, atom := range fresh {
		if g.cstore.Add(atom) {
			g.fileFacts[name] = append(g.fileFacts[name], atom)
		}
	}
}

// removeFactsLocked drops every depends_on fact previously recorded for
// name. Callers must hold g.mu.
func (g *Graph) removeFactsLocked(name string) {
	atoms, ok := g.fileFacts[name]
	if !ok {
		return
	}
	for _, atom := range atoms {
		if !g.store.Remove(atom) {
			log.Printf("depgraph: stale fact for %s missing from store on replace", name)
		}
	}
	delete(g.fileFacts, name)
}

// Clear removes all outgoing edges from name (and the corresponding
// depends_on facts), without affecting edges other modules have pointing
// at name.
func (g *Graph) Clear(name string) {
	g.Record(name, nil)
}

// ClearAll removes every edge from the graph.
func (g *Graph) ClearAll() {
	g.mu.Lock()
	defer g.mu.Unlock()

	base := factstore.NewSimpleInMemoryStore()
	g.store = base
	g.cstore = factstore.NewConcurrentFactStore(base)
	g.queryCtx.Store = g.cstore
	g.fileFacts = make(map[string][]ast.Atom)
}

// Affected returns the transitive set of logical names that depend on
// name, directly or indirectly, not including name itself. It evaluates
// the affected(Dep, Name) rule on demand against the current depends_on
// facts (github.com/google/mangle/engine's query evaluation, the same
// EvalQuery path internal/mangle's own Engine.Query uses) rather than
// eagerly materializing derived facts into the store: Record/Clear must be
// able to retract edges, and Mangle's engine has no general support for
// retracting facts a prior fixpoint run already derived, so recomputing
// the closure fresh on every call is what keeps Affected consistent with
// the latest Record call (spec.md section 4.F / section 8 property 5).
//
// A module never seen by the graph (never compiled, or recently cleared)
// returns an empty slice — the strict-empty semantics spec.md's Open
// Questions section chooses over a conservative "everything" answer.
func (g *Graph) Affected(name string) []string {
	g.mu.RLock()
	queryCtx := g.queryCtx
	resultCap := g.resultCap
	g.mu.RUnlock()

	sym := schemaPredicates["affected"]
	decl := schemaPredToDecl[sym]
	modes := decl.Modes()
	if len(modes) == 0 {
		log.Printf("depgraph: affected predicate has no declared mode")
		return nil
	}

	atom := ast.Atom{
		Predicate: sym,
		Args:      []ast.BaseTerm{ast.String(name), ast.Variable{Symbol: "Name"}},
	}

	var out []string
	seen := map[string]struct{}{name: {}}
	err := queryCtx.EvalQuery(atom, modes[0], unionfind.New(), func(fact ast.Atom) error {
		if len(fact.Args) != 2 {
			return nil
		}
		constant, ok := fact.Args[1].(ast.Constant)
		if !ok {
			return nil
		}
		dependent := constant.Symbol
		if _, dup := seen[dependent]; dup {
			return nil
		}
		seen[dependent] = struct{}{}
		out = append(out, dependent)
		if resultCap > 0 && len(out) >= resultCap {
			return errResultCapReached
		}
		return nil
	})
	if err != nil && !errors.Is(err, errResultCapReached) {
		log.Printf("depgraph: affected-set query for %s failed: %v", name, err)
		return nil
	}

	return out
}

// Size returns the number of logical names with at least one recorded
// outgoing edge. Approximate under concurrent mutation, like cache.Size.
func (g *Graph) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.fileFacts)
}

// EdgeCount returns the total number of outgoing edges across all modules.
func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n := 0
	for _, atoms := range g.fileFacts {
		n += len(atoms)
	}
	return n
}

// Dependencies returns the recorded outgoing edges for name, or nil if
// name has none recorded.
func (g *Graph) Dependencies(name string) map[string]extractor.Relation {
	g.mu.RLock()
	defer g.mu.RUnlock()

	atoms, ok := g.fileFacts[name]
	if !ok {
		return nil
	}

	out := make(map[string]extractor.Relation, len(atoms))
	for _, atom := range atoms {
		dep, ok := atom.Args[1].(ast.Constant)
		if !ok {
			continue
		}
		rel, ok := atom.Args[2].(ast.Constant)
		if !ok {
			continue
		}
		out[dep.Symbol] = relationFromString(rel.Symbol)
	}
	return out
}

// relationFromString is the inverse of extractor.Relation.String, needed
// because depends_on facts store the relation as a Mangle string constant.
func relationFromString(s string) extractor.Relation {
	switch s {
	case extractor.RelationExtends.String():
		return extractor.RelationExtends
	case extractor.RelationImplements.String():
		return extractor.RelationImplements
	case extractor.RelationFieldType.String():
		return extractor.RelationFieldType
	case extractor.RelationMethodType.String():
		return extractor.RelationMethodType
	case extractor.RelationParameterType.String():
		return extractor.RelationParameterType
	case extractor.RelationAnnotation.String():
		return extractor.RelationAnnotation
	case extractor.RelationGenericArgument.String():
		return extractor.RelationGenericArgument
	default:
		return extractor.RelationImport
	}
}
