// Package groovyast defines the minimal module-level AST shape the driver
// produces and the dependency extractor walks. It is intentionally shallow:
// the core treats the AST as an opaque handle inspected only through the
// Compiler Driver Port and the Dependency Extractor (spec.md section 3),
// never mutated.
package groovyast

// Import is a single import declaration. Star is true for `import pkg.*`.
type Import struct {
	Target string // fully-qualified class name, or the package name (without ".*") for a star import
	Star   bool
}

// Annotation is a single `@Name` usage on a class, field, or method.
type Annotation struct {
	Type string
}

// Field is a field declaration, `<Type> name`. GenericArgs holds any type
// parameters inside angle brackets (e.g. List<String> -> ["String"]).
type Field struct {
	Name        string
	Type        string
	GenericArgs []string
	Annotations []Annotation
}

// Method is a method signature: return type, name, parameter types.
type Method struct {
	Name           string
	ReturnType     string
	ParameterTypes []string
	GenericArgs    []string // generic args appearing in the return type
	Annotations    []Annotation
}

// Class is a single class/interface/trait declaration.
type Class struct {
	Name        string
	Superclass  string   // "" if none declared
	Interfaces  []string // declared `implements` targets
	Fields      []Field
	Methods     []Method
	Annotations []Annotation
}

// File is the module-level AST handle for a single compiled source unit.
type File struct {
	LogicalName string
	PackageName string
	Imports     []Import
	Classes     []Class
}
