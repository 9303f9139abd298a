package redstone

import (
	"errors"
	"fmt"
)

// Parse errors.
var (
	ErrDuplicateID           = errors.New("duplicate id")
	ErrDuplicateAttribute    = errors.New("duplicate attribute")
	ErrUnterminatedAttribute = errors.New("unterminated attribute")
	ErrBraceMismatch         = errors.New("brace mismatch")
	ErrUnknownCharacter      = errors.New("unknown character in tag data")
	ErrTokenOverflow         = errors.New("malformed tag token stream")
	ErrMissingTagName        = errors.New("missing tag name")
	ErrStandaloneElse        = errors.New("else without if")
	ErrDuplicateElse         = errors.New("duplicate else")
	ErrElseArguments         = errors.New("else takes no arguments")
	ErrUnknownBlockKeyword   = errors.New("unknown block keyword")
	ErrUnexpectedBlockClose  = errors.New("unexpected block close")
)

// Analysis errors.
var (
	ErrUnsupportedExpression     = errors.New("unsupported expression type")
	ErrComputedMemberCall        = errors.New("computed member access unsupported as call target")
	ErrNonIdentifierCallTarget   = errors.New("call target is not an identifier")
	ErrNonIdentifierExposedValue = errors.New("exposed value is not an identifier")
	ErrInvalidExpression         = errors.New("invalid expression")
)

// Structure and configuration errors.
var (
	ErrDuplicateHead         = errors.New("duplicate head")
	ErrDuplicateBody         = errors.New("duplicate body")
	ErrDisallowedTopLevelTag = errors.New("disallowed top-level tag")
	ErrInvalidSettings       = errors.New("invalid settings")
)

// SyntaxError locates a failure in the UI source. Err is one of the sentinel
// errors above.
type SyntaxError struct {
	Line int // 1-based; 0 when unknown
	Err  error
	Msg  string
}

func (e *SyntaxError) Error() string {
	prefix := ""
	if e.Line > 0 {
		prefix = fmt.Sprintf("line %d: ", e.Line)
	}
	if e.Msg == "" {
		return prefix + e.Err.Error()
	}
	return fmt.Sprintf("%s%v: %s", prefix, e.Err, e.Msg)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

func syntaxErr(line int, err error, format string, args ...any) *SyntaxError {
	return &SyntaxError{Line: line, Err: err, Msg: fmt.Sprintf(format, args...)}
}

// atLine stamps a line number on errors that do not carry one yet.
func atLine(line int, err error) error {
	var se *SyntaxError
	if errors.As(err, &se) {
		if se.Line == 0 {
			se.Line = line
		}
		return se
	}
	return &SyntaxError{Line: line, Err: err}
}
