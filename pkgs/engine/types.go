package engine

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/lspl-lang/lspl/pkgs/bridge"
)

const (
	DefaultMaxLoopIterations = 1000
	DefaultMaxDepth          = 128
)

// Config configures an Engine. Zero values select the defaults.
type Config struct {
	WorkDir           string         // Directory evidence and verdict files resolve against (default: cwd)
	MaxLoopIterations int            // Iterations per loophole execution before it is stopped
	MaxDepth          int            // Nested statute calls and evidence includes
	Output            io.Writer      // Receives each delivered verdict line (default: discard)
	Logger            *slog.Logger   // Diagnostics and tracing (default: discard)
	Bridge            *bridge.Bridge // Shared file bridge; created from WorkDir when nil
}

// Result holds the outcome of one Run
type Result struct {
	Verdict       []string      // Verdict log after the run
	Diagnostics   []Diagnostic  // Errors recovered during the run
	StatementsRun int           // Statements dispatched, including nested bodies
	Duration      time.Duration // Total run time
}

// Diagnostic is an error the engine recovered from
type Diagnostic struct {
	Kind    string // Error type, e.g. EXPRESSION_ERROR
	Message string // Human readable message
	Source  string // Source name of the statement, empty for inline source
	Line    int    // Line of the statement
	Err     error  // Underlying error
}

// String renders the diagnostic as source:line: message
func (d Diagnostic) String() string {
	var b strings.Builder
	if d.Source != "" {
		b.WriteString(d.Source)
		b.WriteString(":")
	}
	if d.Line > 0 {
		fmt.Fprintf(&b, "%d: ", d.Line)
	} else if b.Len() > 0 {
		b.WriteString(" ")
	}
	b.WriteString(d.Message)
	return b.String()
}
