package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	lerrors "github.com/lspl-lang/lspl/pkgs/errors"
	"github.com/lspl-lang/lspl/pkgs/parser"
)

// CLIError represents a formatted CLI error with context
type CLIError struct {
	Type    string // "usage", "io"
	Message string
	Details string // Additional context
	Hint    string // How to fix it
}

// Error implements the error interface
func (e *CLIError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Details != "" {
		b.WriteString("\n")
		b.WriteString(e.Details)
	}
	if e.Hint != "" {
		b.WriteString("\n")
		b.WriteString(e.Hint)
	}
	return b.String()
}

// FormatError formats an error for CLI output with colors
func FormatError(w io.Writer, err error, useColor bool) {
	if err == nil {
		return
	}

	var parseErr *parser.ParseError
	var cliErr *CLIError
	switch {
	case errors.As(err, &parseErr):
		formatParseError(w, parseErr, useColor)
	case errors.As(err, &cliErr):
		formatCLIError(w, cliErr, useColor)
	default:
		_, _ = fmt.Fprintf(w, "%s%s\n", Colorize("Error: ", ColorRed, useColor), err.Error())
	}
}

// formatParseError prints the message with the offending source line
func formatParseError(w io.Writer, err *parser.ParseError, useColor bool) {
	message, snippet, _ := strings.Cut(err.Error(), "\n")
	_, _ = fmt.Fprintf(w, "%s%s\n", Colorize("Error: ", ColorRed, useColor), message)
	if snippet != "" {
		_, _ = fmt.Fprintf(w, "%s\n", Colorize(snippet, ColorGray, useColor))
	}
}

// formatCLIError formats CLI errors
func formatCLIError(w io.Writer, err *CLIError, useColor bool) {
	_, _ = fmt.Fprintf(w, "%s%s\n", Colorize("Error: ", ColorRed, useColor), err.Message)

	if err.Details != "" {
		_, _ = fmt.Fprintf(w, "\n%s\n", err.Details)
	}

	if err.Hint != "" {
		_, _ = fmt.Fprintf(w, "%s%s\n", Colorize("Hint: ", ColorYellow, useColor), err.Hint)
	}
}

// exitCode maps a top-level error onto the process exit status
func exitCode(err error) int {
	var cliErr *CLIError
	var pathErr *fs.PathError

	switch {
	case err == nil:
		return ExitSuccess
	case lerrors.IsErrorType(err, lerrors.ErrConfig):
		return ExitInvalidArguments
	case errors.Is(err, lerrors.Structural):
		return ExitParseError
	case errors.Is(err, lerrors.RecursionLimit),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return ExitRuntimeError
	case errors.Is(err, lerrors.FileNotFound), errors.As(err, &pathErr):
		return ExitIOError
	case errors.As(err, &cliErr) && cliErr.Type == "io":
		return ExitIOError
	default:
		return ExitInvalidArguments
	}
}
