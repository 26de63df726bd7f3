package compileresult

import (
	"fmt"
	"strings"
)

// ErrorKind classifies a CompilationError the way the LSP diagnostics
// surface needs: syntax/semantic/type problems plus non-blocking warnings.
type ErrorKind int

const (
	KindSyntax ErrorKind = iota
	KindSemantic
	KindType
	KindWarning
)

func (k ErrorKind) String() string {
	switch k {
	case KindSyntax:
		return "SYNTAX"
	case KindSemantic:
		return "SEMANTIC"
	case KindType:
		return "TYPE"
	case KindWarning:
		return "WARNING"
	default:
		return "UNKNOWN"
	}
}

// ErrorCode is a stable diagnostic identifier, per spec.md section 6.
type ErrorCode int

// Ranges, one per ErrorKind, each with a "general" sub-code plus named
// sub-codes for messages that match a known pattern.
const (
	CodeSyntaxGeneral ErrorCode = 1000 + iota
	CodeSyntaxUnexpectedToken
	CodeSyntaxMissingParenthesis
	CodeSyntaxUnclosedString
	CodeSyntaxInvalidIdentifier
	CodeSyntaxUnexpectedEOF
	CodeSyntaxInvalidExpression
)

const (
	CodeSemanticGeneral ErrorCode = 2000 + iota
	CodeSemanticUndefinedVariable
	CodeSemanticDuplicateMethod
	CodeSemanticInvalidImport
	CodeSemanticMissingReturn
	CodeSemanticUnreachableCode
)

const (
	CodeTypeGeneral ErrorCode = 3000 + iota
	CodeTypeMismatch
	CodeTypeCannotResolve
	CodeTypeIncompatibleCast
	CodeTypeInvalidAssignment
	CodeTypeUndefinedMethod
)

const (
	CodeWarningGeneral ErrorCode = 4000 + iota
	CodeWarningUnusedVariable
	CodeWarningDeprecatedMethod
	CodeWarningDeadCode
	CodeWarningUnnecessaryCast
)

var codeNames = map[ErrorCode]string{
	CodeSyntaxGeneral:            "syntax.general",
	CodeSyntaxUnexpectedToken:    "syntax.unexpected-token",
	CodeSyntaxMissingParenthesis: "syntax.missing-parenthesis",
	CodeSyntaxUnclosedString:     "syntax.unclosed-string",
	CodeSyntaxInvalidIdentifier:  "syntax.invalid-identifier",
	CodeSyntaxUnexpectedEOF:      "syntax.unexpected-eof",
	CodeSyntaxInvalidExpression:  "syntax.invalid-expression",

	CodeSemanticGeneral:           "semantic.general",
	CodeSemanticUndefinedVariable: "semantic.undefined-variable",
	CodeSemanticDuplicateMethod:   "semantic.duplicate-method",
	CodeSemanticInvalidImport:     "semantic.invalid-import",
	CodeSemanticMissingReturn:     "semantic.missing-return",
	CodeSemanticUnreachableCode:   "semantic.unreachable-code",

	CodeTypeGeneral:           "type.general",
	CodeTypeMismatch:          "type.mismatch",
	CodeTypeCannotResolve:     "type.cannot-resolve",
	CodeTypeIncompatibleCast:  "type.incompatible-cast",
	CodeTypeInvalidAssignment: "type.invalid-assignment",
	CodeTypeUndefinedMethod:   "type.undefined-method",

	CodeWarningGeneral:          "warning.general",
	CodeWarningUnusedVariable:   "warning.unused-variable",
	CodeWarningDeprecatedMethod: "warning.deprecated-method",
	CodeWarningDeadCode:         "warning.dead-code",
	CodeWarningUnnecessaryCast:  "warning.unnecessary-cast",
}

// String renders the stable sub-code name (e.g. "syntax.unexpected-token").
func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(c))
}

// subPattern pairs a case-insensitive substring with the sub-code it maps to,
// applied in order per kind (spec.md section 6 mapping rules).
type subPattern struct {
	substr string
	code   ErrorCode
}

var syntaxPatterns = []subPattern{
	{"unexpected token", CodeSyntaxUnexpectedToken},
	{"unclosed string", CodeSyntaxUnclosedString},
	{"unexpected end of file", CodeSyntaxUnexpectedEOF},
}

var semanticPatterns = []subPattern{
	{"unable to resolve", CodeSemanticInvalidImport},
	{"cannot resolve", CodeSemanticInvalidImport},
	{"no such property", CodeSemanticUndefinedVariable},
	{"method x already defined", CodeSemanticDuplicateMethod}, // literal fallback, see isUndeclaredVariable/isAlreadyDefinedMethod
	{"missing return statement", CodeSemanticMissingReturn},
}

var typePatterns = []subPattern{
	{"cannot assign value of type", CodeTypeInvalidAssignment},
	{"incompatible types", CodeTypeInvalidAssignment},
}

var warningPatterns = []subPattern{
	{"unused variable", CodeWarningUnusedVariable},
	{"deprecated", CodeWarningDeprecatedMethod},
}

// MapErrorCode assigns a stable ErrorCode to a raw compiler message,
// following the ordered pattern rules in spec.md section 6. kind determines
// which range (and "general" fallback) the code is drawn from.
func MapErrorCode(kind ErrorKind, message string) ErrorCode {
	lower := strings.ToLower(message)

	switch kind {
	case KindSyntax:
		for _, p := range syntaxPatterns {
			if strings.Contains(lower, p.substr) {
				return p.code
			}
		}
		return CodeSyntaxGeneral
	case KindSemantic:
		if isUndeclaredVariable(lower) {
			return CodeSemanticUndefinedVariable
		}
		if isAlreadyDefinedMethod(lower) {
			return CodeSemanticDuplicateMethod
		}
		for _, p := range semanticPatterns {
			if strings.Contains(lower, p.substr) {
				return p.code
			}
		}
		return CodeSemanticGeneral
	case KindType:
		for _, p := range typePatterns {
			if strings.Contains(lower, p.substr) {
				return p.code
			}
		}
		return CodeTypeGeneral
	case KindWarning:
		for _, p := range warningPatterns {
			if strings.Contains(lower, p.substr) {
				return p.code
			}
		}
		return CodeWarningGeneral
	default:
		return CodeSemanticGeneral
	}
}

// isUndeclaredVariable matches the "the variable X is undeclared" family of
// messages, where X is any identifier.
func isUndeclaredVariable(lower string) bool {
	return strings.Contains(lower, "is undeclared") && strings.Contains(lower, "variable")
}

// isAlreadyDefinedMethod matches the "method X already defined" family.
func isAlreadyDefinedMethod(lower string) bool {
	return strings.Contains(lower, "already defined") && strings.Contains(lower, "method")
}

// CompilationError is a single diagnostic produced at some phase.
type CompilationError struct {
	Message    string
	Line       int
	Column     int
	SourceName string
	Kind       ErrorKind
	Code       ErrorCode
}

// NewError constructs a CompilationError and assigns its ErrorCode from the
// message, per spec.md section 6.
func NewError(message string, line, column int, sourceName string, kind ErrorKind) CompilationError {
	return CompilationError{
		Message:    message,
		Line:       line,
		Column:     column,
		SourceName: sourceName,
		Kind:       kind,
		Code:       MapErrorCode(kind, message),
	}
}

func (e CompilationError) GetMessage() string    { return e.Message }
func (e CompilationError) GetLine() int          { return e.Line }
func (e CompilationError) GetColumn() int        { return e.Column }
func (e CompilationError) GetSourceName() string { return e.SourceName }
func (e CompilationError) GetType() ErrorKind    { return e.Kind }

func (e CompilationError) String() string {
	return fmt.Sprintf("%s:%d:%d: [%s/%s] %s", e.SourceName, e.Line, e.Column, e.Kind, e.Code, e.Message)
}

// CompilationFailedError wraps an exception surfaced by the underlying
// driver (spec.md section 4.C) as a single synthetic error, so driver
// exceptions never escape the core.
func CompilationFailedError(sourceName string, cause error) CompilationError {
	return NewError(fmt.Sprintf("compilation failed: %v", cause), 0, 0, sourceName, KindSemantic)
}
