package parser

import (
	"fmt"
	"strings"

	lerrors "github.com/lspl-lang/lspl/pkgs/errors"
)

// ErrorKind represents the categories of structural errors
type ErrorKind int

const (
	ErrorAgreement    ErrorKind = iota // missing or misplaced outer markers
	ErrorUnterminated                  // block reached the end of the agreement
	ErrorUnexpected                    // closing marker with no open block
	ErrorMissing                       // directive without its operand
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorAgreement:
		return "invalid license agreement structure"
	case ErrorUnterminated:
		return "unterminated block"
	case ErrorUnexpected:
		return "unexpected marker"
	case ErrorMissing:
		return "missing operand"
	default:
		return "structural error"
	}
}

// ParseError is a StructuralError with its location in the source.
// It matches lerrors.Structural under errors.Is.
type ParseError struct {
	Kind    ErrorKind
	Message string
	Line    int    // 1-based line in Input, 0 when unknown
	Source  string // file name, may be empty
	Input   string // raw source, for the snippet
}

// Error returns the formatted error message with the offending line
func (e *ParseError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind.String(), e.Message)
	if snippet := e.createCodeSnippet(); snippet != "" {
		msg += "\n" + snippet
	}
	return msg
}

// Unwrap exposes the structural kind to errors.Is / lerrors.IsErrorType
func (e *ParseError) Unwrap() error {
	return lerrors.Structural
}

// createCodeSnippet shows the error location in Rust/Clang style
func (e *ParseError) createCodeSnippet() string {
	if e.Input == "" || e.Line == 0 {
		return ""
	}

	lines := strings.Split(e.Input, "\n")
	if e.Line > len(lines) {
		return ""
	}
	lineContent := strings.TrimRight(lines[e.Line-1], "\r")

	location := fmt.Sprintf("%d", e.Line)
	if e.Source != "" {
		location = e.Source + ":" + location
	}

	var snippet strings.Builder
	snippet.WriteString(fmt.Sprintf("  --> %s\n", location))
	snippet.WriteString("   |\n")
	snippet.WriteString(fmt.Sprintf("%2d | %s", e.Line, lineContent))
	return snippet.String()
}

func (p *parser) errorAt(ln Line, kind ErrorKind, message string) error {
	return &ParseError{
		Kind:    kind,
		Message: message,
		Line:    ln.Num,
		Source:  p.config.name,
		Input:   p.input,
	}
}
