// Package groovydriver is the reference implementation of the Compiler
// Driver Port (driver.Port) used by this module's Service Facade and its
// tests. It drives Groovy-looking source through a lightweight,
// regex/brace-matching front end that is faithful to the phase ladder and
// error taxonomy spec.md describes, without depending on a JVM or an actual
// Groovy compiler binding.
//
// No Groovy grammar is available among the retrieval pack's tree-sitter
// bindings (github.com/smacker/go-tree-sitter ships golang, javascript,
// python, rust, and typescript grammars only), so this front end follows
// the same per-language regex scanning approach the teacher repo uses for
// lightweight code-element extraction (codedom.extractCodeElements),
// generalized into a small multi-phase pipeline.
package groovydriver

import (
	"fmt"
	"regexp"
	"strings"

	"groovyls/internal/compileresult"
	"groovyls/internal/driver"
	"groovyls/internal/groovyast"
	"groovyls/internal/phase"
)

// Port implements driver.Port against the lightweight front end.
type Port struct{}

// NewPort constructs the reference driver port.
func NewPort() *Port {
	return &Port{}
}

// NewSession implements driver.Port.
func (p *Port) NewSession(cfg driver.Config, logicalName, sourceText string) driver.Session {
	s := &Session{
		logicalName: logicalName,
		sourceText:  sourceText,
		reached:     phase.Initialization,
	}
	s.analyze()
	return s
}

var _ driver.Port = (*Port)(nil)

// Session implements driver.Session.
type Session struct {
	logicalName string
	sourceText  string
	reached     phase.Phase

	syntaxErrors   []compileresult.CompilationError
	ast            *groovyast.File
	semanticErrors []compileresult.CompilationError
	warnings       []compileresult.CompilationError

	thrown error
}

var _ driver.Session = (*Session)(nil)

// Advance implements driver.Session.
func (s *Session) Advance(requested phase.Phase) (result driver.AdvanceResult) {
	defer func() {
		if r := recover(); r != nil {
			s.thrown = fmt.Errorf("panic in groovydriver: %v", r)
			result = driver.AdvanceResult{Reached: phase.Initialization, Succeeded: false, Thrown: s.thrown}
		}
	}()

	if requested <= s.reached {
		return driver.AdvanceResult{Reached: s.reached, Succeeded: true}
	}

	if len(s.syntaxErrors) > 0 {
		// Parsing itself failed; no later phase can be reached.
		s.reached = phase.Initialization
		return driver.AdvanceResult{Reached: phase.Initialization, Succeeded: false}
	}

	s.reached = requested
	return driver.AdvanceResult{Reached: requested, Succeeded: true}
}

// AST implements driver.Session.
func (s *Session) AST() *groovyast.File {
	if len(s.syntaxErrors) > 0 {
		return nil
	}
	if s.reached < phase.Conversion {
		return nil
	}
	return s.ast
}

// Errors implements driver.Session.
func (s *Session) Errors() []compileresult.CompilationError {
	if len(s.syntaxErrors) > 0 {
		return append([]compileresult.CompilationError(nil), s.syntaxErrors...)
	}
	if s.reached >= phase.SemanticAnalysis {
		return append([]compileresult.CompilationError(nil), s.semanticErrors...)
	}
	return nil
}

// Warnings implements driver.Session.
func (s *Session) Warnings() []compileresult.CompilationError {
	if s.reached >= phase.SemanticAnalysis {
		return append([]compileresult.CompilationError(nil), s.warnings...)
	}
	return nil
}

// ---- analysis ----

var (
	importPattern = regexp.MustCompile(`^\s*import\s+(static\s+)?([\w.]+(?:\.\*)?)\s*;?\s*$`)
	classPattern  = regexp.MustCompile(`(?m)^\s*(?:@\w+\s*)*(?:public\s+|final\s+|abstract\s+)*(class|interface|trait)\s+(\w+)(?:\s+extends\s+([\w.]+))?(?:\s+implements\s+([\w.,\s]+))?\s*\{`)
	fieldPattern  = regexp.MustCompile(`(?:@(\w+)\s+)?([A-Za-z_][\w.]*)(<[^;(){}]*>)?\s+(\w+)\s*;`)
	methodPattern = regexp.MustCompile(`(?:@(\w+)\s+)?([A-Za-z_][\w.]*)(<[^;(){}]*>)?\s+(\w+)\s*\(([^()]*)\)\s*\{`)
	// badAssignment matches an assignment with no right-hand expression
	// before a closing brace or parenthesis, e.g. "def x = }".
	badAssignment = regexp.MustCompile(`=\s*[}\)]`)
	genericArgs   = regexp.MustCompile(`<([^<>]*)>`)
)

func (s *Session) analyze() {
	if loc := badAssignment.FindStringIndex(s.sourceText); loc != nil {
		line, col := lineColAt(s.sourceText, loc[0])
		s.syntaxErrors = append(s.syntaxErrors, compileresult.NewError(
			"unexpected token '}'", line, col, s.logicalName, compileresult.KindSyntax))
		return
	}

	if !bracesBalanced(s.sourceText) {
		idx := len(s.sourceText)
		line, col := lineColAt(s.sourceText, idx-1)
		s.syntaxErrors = append(s.syntaxErrors, compileresult.NewError(
			"unexpected end of file", line, col, s.logicalName, compileresult.KindSyntax))
		return
	}

	file := &groovyast.File{LogicalName: s.logicalName}

	for _, line := range strings.Split(s.sourceText, "\n") {
		if m := importPattern.FindStringSubmatch(line); m != nil {
			target := m[2]
			file.Imports = append(file.Imports, groovyast.Import{
				Target: strings.TrimSuffix(target, ".*"),
				Star:   strings.HasSuffix(target, ".*"),
			})
		}
	}

	for _, m := range classPattern.FindAllStringSubmatchIndex(s.sourceText, -1) {
		groups := classPattern.FindStringSubmatch(s.sourceText[m[0]:m[1]])
		name := groups[2]
		superclass := groups[3]
		var interfaces []string
		if groups[4] != "" {
			for _, iface := range strings.Split(groups[4], ",") {
				interfaces = append(interfaces, strings.TrimSpace(iface))
			}
		}

		bodyStart := m[1] - 1 // index of the opening '{' just matched
		bodyEnd := matchingBrace(s.sourceText, bodyStart)
		body := ""
		if bodyEnd > bodyStart {
			body = s.sourceText[bodyStart+1 : bodyEnd]
		}

		cls := groovyast.Class{
			Name:       name,
			Superclass: superclass,
			Interfaces: interfaces,
		}
		cls.Fields, cls.Methods = parseMembers(body)
		file.Classes = append(file.Classes, cls)
	}

	s.ast = file
	s.semanticErrors, s.warnings = checkSemantics(file, s.logicalName)
}

// parseMembers scans a class body for field and method declarations.
// Method signatures (and their bodies, brace-matched) are located and
// blanked out first, so that statements inside a method body are never
// mistaken for field declarations of the enclosing class — this mirrors
// the "simplified implementation" disclaimer the teacher repo carries on
// its own regex-based extractor (codedom.extractCodeElements).
func parseMembers(body string) ([]groovyast.Field, []groovyast.Method) {
	var fields []groovyast.Field
	var methods []groovyast.Method

	blanked := []byte(body)
	for _, m := range methodPattern.FindAllStringSubmatchIndex(body, -1) {
		groups := methodPattern.FindStringSubmatch(body[m[0]:m[1]])
		openBrace := m[1] - 1
		bodyEnd := matchingBrace(body, openBrace)
		if bodyEnd < openBrace {
			bodyEnd = openBrace
		}
		methods = append(methods, groovyast.Method{
			Name:           groups[4],
			ReturnType:     groups[2],
			ParameterTypes: splitParamTypes(groups[5]),
			GenericArgs:    extractGenericArgs(groups[3]),
			Annotations:    annotationsOf(groups[1]),
		})
		for i := m[0]; i <= bodyEnd && i < len(blanked); i++ {
			if blanked[i] != '\n' {
				blanked[i] = ' '
			}
		}
	}

	for _, m := range fieldPattern.FindAllStringSubmatch(string(blanked), -1) {
		fields = append(fields, groovyast.Field{
			Name:        m[4],
			Type:        m[2],
			GenericArgs: extractGenericArgs(m[3]),
			Annotations: annotationsOf(m[1]),
		})
	}
	return fields, methods
}

func annotationsOf(name string) []groovyast.Annotation {
	if name == "" {
		return nil
	}
	return []groovyast.Annotation{{Type: name}}
}

func extractGenericArgs(bracket string) []string {
	if bracket == "" {
		return nil
	}
	m := genericArgs.FindStringSubmatch(bracket)
	if m == nil {
		return nil
	}
	var out []string
	for _, a := range strings.Split(m[1], ",") {
		a = strings.TrimSpace(a)
		if a != "" {
			out = append(out, a)
		}
	}
	return out
}

func splitParamTypes(params string) []string {
	params = strings.TrimSpace(params)
	if params == "" {
		return nil
	}
	var types []string
	for _, p := range strings.Split(params, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		typ := p
		if idx := strings.Index(stripGenerics(typ), " "); idx >= 0 {
			typ = strings.TrimSpace(typ[:idx])
		}
		types = append(types, typ)
	}
	return types
}

// stripGenerics removes the contents of angle brackets so whitespace
// splitting on "Type<A,B> name" still finds the right token count.
func stripGenerics(s string) string {
	return genericArgs.ReplaceAllString(s, "")
}

// checkSemantics runs the one semantic check this reference front end
// performs: duplicate method names within the same class (spec.md section
// 6 example sub-code "duplicate-method").
func checkSemantics(file *groovyast.File, sourceName string) (errs, warnings []compileresult.CompilationError) {
	for _, cls := range file.Classes {
		seen := map[string]bool{}
		for _, m := range cls.Methods {
			if seen[m.Name] {
				errs = append(errs, compileresult.NewError(
					fmt.Sprintf("method %s already defined in class %s", m.Name, cls.Name),
					0, 0, sourceName, compileresult.KindSemantic))
			}
			seen[m.Name] = true
		}
	}
	return errs, warnings
}

func lineColAt(text string, idx int) (line, col int) {
	if idx < 0 {
		idx = 0
	}
	if idx > len(text) {
		idx = len(text)
	}
	line = 1
	lastNewline := -1
	for i := 0; i < idx; i++ {
		if text[i] == '\n' {
			line++
			lastNewline = i
		}
	}
	col = idx - lastNewline
	return line, col
}

func bracesBalanced(text string) bool {
	depth := 0
	for _, r := range text {
		switch r {
		case '{':
			depth++
		case '}':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}

// matchingBrace returns the index of the '}' matching the '{' at openIdx,
// or -1 if unbalanced (analyze already rejected unbalanced source, so this
// should not happen in practice).
func matchingBrace(text string, openIdx int) int {
	depth := 0
	for i := openIdx; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
