// Package extractor implements the Dependency Extractor (spec.md section
// 4.E): given a finished AST, it yields a mapping from external class name
// to the relation under which that class was referenced, applying the
// section's precedence rule when a class is referenced multiple ways.
package extractor

import (
	"sort"

	"groovyls/internal/groovyast"
)

// Relation is one of the dependency relation kinds in spec.md section 3/4.E.
type Relation int

const (
	RelationImport Relation = iota
	RelationExtends
	RelationImplements
	RelationFieldType
	RelationMethodType
	RelationParameterType
	RelationAnnotation
	RelationGenericArgument
)

// precedence ranks relations highest-first per spec.md section 4.E:
// extends > implements > field-type > method-type > parameter-type >
// annotation > generic-argument > import.
var precedence = map[Relation]int{
	RelationExtends:         7,
	RelationImplements:      6,
	RelationFieldType:       5,
	RelationMethodType:      4,
	RelationParameterType:   3,
	RelationAnnotation:      2,
	RelationGenericArgument: 1,
	RelationImport:          0,
}

func (r Relation) String() string {
	switch r {
	case RelationImport:
		return "import"
	case RelationExtends:
		return "extends"
	case RelationImplements:
		return "implements"
	case RelationFieldType:
		return "field-type"
	case RelationMethodType:
		return "method-type"
	case RelationParameterType:
		return "parameter-type"
	case RelationAnnotation:
		return "annotation"
	case RelationGenericArgument:
		return "generic-argument"
	default:
		return "unknown"
	}
}

// Dependency is one resolved (external class, relation) pair.
type Dependency struct {
	ExternalClass string
	Relation      Relation
}

// filtered excludes primitive types and the root object type from the
// dependency map (spec.md section 4.E).
var filtered = map[string]bool{
	"boolean": true, "byte": true, "short": true, "int": true, "long": true,
	"float": true, "double": true, "char": true, "void": true,
	"Object": true, "java.lang.Object": true,
}

// Extract walks a finished AST and returns its dependency map, ordered
// deterministically by (relation precedence descending, class name) so
// repeated calls for the same AST are reproducible (SPEC_FULL.md
// "Deterministic Extract() ordering"). A nil AST yields an empty
// mapping; this function never panics on a partial AST with missing
// subtrees — each accessor here only reads slices that are nil-safe.
func Extract(file *groovyast.File) []Dependency {
	if file == nil {
		return nil
	}

	best := map[string]Relation{}
	record := func(class string, rel Relation) {
		class = trim(class)
		if class == "" || filtered[class] {
			return
		}
		existing, ok := best[class]
		if !ok || precedence[rel] > precedence[existing] {
			best[class] = rel
		}
	}

	for _, imp := range file.Imports {
		if imp.Star {
			record(imp.Target+".*", RelationImport)
			continue
		}
		record(imp.Target, RelationImport)
	}

	for _, cls := range file.Classes {
		if cls.Superclass != "" {
			record(cls.Superclass, RelationExtends)
		}
		for _, iface := range cls.Interfaces {
			record(iface, RelationImplements)
		}
		for _, ann := range cls.Annotations {
			record(ann.Type, RelationAnnotation)
		}
		for _, f := range cls.Fields {
			record(f.Type, RelationFieldType)
			for _, g := range f.GenericArgs {
				record(g, RelationGenericArgument)
			}
			for _, ann := range f.Annotations {
				record(ann.Type, RelationAnnotation)
			}
		}
		for _, m := range cls.Methods {
			record(m.ReturnType, RelationMethodType)
			for _, p := range m.ParameterTypes {
				record(p, RelationParameterType)
			}
			for _, ann := range m.Annotations {
				record(ann.Type, RelationAnnotation)
			}
		}
	}

	deps := make([]Dependency, 0, len(best))
	for class, rel := range best {
		deps = append(deps, Dependency{ExternalClass: class, Relation: rel})
	}
	sort.Slice(deps, func(i, j int) bool {
		pi, pj := precedence[deps[i].Relation], precedence[deps[j].Relation]
		if pi != pj {
			return pi > pj
		}
		return deps[i].ExternalClass < deps[j].ExternalClass
	})
	return deps
}

// AsMap returns the same data as a plain map, for callers (e.g.
// get-dependencies, spec.md section 6) that want map semantics instead of
// the deterministically-ordered slice.
func AsMap(deps []Dependency) map[string]Relation {
	out := make(map[string]Relation, len(deps))
	for _, d := range deps {
		out[d.ExternalClass] = d.Relation
	}
	return out
}

func trim(s string) string {
	start, end := 0, len(s)
	for start < end && isSpace(s[start]) {
		start++
	}
	for end > start && isSpace(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
