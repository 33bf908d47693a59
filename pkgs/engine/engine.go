// Package engine executes parsed programs: it owns the variable environment,
// the statute table and the verdict log, and dispatches each statement.
package engine

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/lspl-lang/lspl/pkgs/ast"
	"github.com/lspl-lang/lspl/pkgs/bridge"
	lerrors "github.com/lspl-lang/lspl/pkgs/errors"
	"github.com/lspl-lang/lspl/pkgs/eval"
	"github.com/lspl-lang/lspl/pkgs/invariant"
	"github.com/lspl-lang/lspl/pkgs/parser"
)

// Engine interprets programs. State persists across Run and Execute calls,
// so a second program sees the variables and statutes of the first. An
// Engine is not safe for concurrent use.
type Engine struct {
	config Config
	logger *slog.Logger
	out    io.Writer
	bridge *bridge.Bridge

	env       *eval.Env
	evaluator *eval.Evaluator
	statutes  map[string][]ast.Statement
	verdict   []string

	// Execution state
	source      string
	depth       int
	stepsRun    int
	diagnostics []Diagnostic
}

// New creates an Engine with an empty environment
func New(cfg Config) *Engine {
	if cfg.WorkDir == "" {
		if wd, err := os.Getwd(); err == nil {
			cfg.WorkDir = wd
		} else {
			cfg.WorkDir = "."
		}
	}
	if cfg.MaxLoopIterations <= 0 {
		cfg.MaxLoopIterations = DefaultMaxLoopIterations
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultMaxDepth
	}
	if cfg.Output == nil {
		cfg.Output = io.Discard
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Bridge == nil {
		cfg.Bridge = bridge.New(cfg.WorkDir, cfg.Logger)
	}

	env := eval.NewEnv()
	return &Engine{
		config:    cfg,
		logger:    cfg.Logger,
		out:       cfg.Output,
		bridge:    cfg.Bridge,
		env:       env,
		evaluator: eval.New(env),
		statutes:  make(map[string][]ast.Statement),
	}
}

// Run parses source and executes it. The returned error is non-nil only for
// fatal failures: a structural parse error, the recursion limit, or
// cancellation. The Result is returned in every case.
func (e *Engine) Run(ctx context.Context, source string) (*Result, error) {
	return e.run(ctx, func() (*ast.Program, error) {
		return parser.Parse(source, parser.WithLogger(e.logger))
	})
}

// RunFile resolves name against the working directory (exact name, then
// with the .lspl extension), then parses and executes it.
func (e *Engine) RunFile(ctx context.Context, name string) (*Result, error) {
	return e.run(ctx, func() (*ast.Program, error) {
		path, content, err := e.bridge.ReadSource(name)
		if err != nil {
			return nil, err
		}
		return parser.Parse(content, parser.WithName(path), parser.WithLogger(e.logger))
	})
}

func (e *Engine) run(ctx context.Context, load func() (*ast.Program, error)) (*Result, error) {
	start := time.Now()
	firstDiagnostic := len(e.diagnostics)
	firstStep := e.stepsRun

	prog, err := load()
	if err == nil {
		err = e.Execute(ctx, prog)
	}

	diagnostics := make([]Diagnostic, len(e.diagnostics)-firstDiagnostic)
	copy(diagnostics, e.diagnostics[firstDiagnostic:])
	return &Result{
		Verdict:       e.Verdict(),
		Diagnostics:   diagnostics,
		StatementsRun: e.stepsRun - firstStep,
		Duration:      time.Since(start),
	}, err
}

// Execute runs the statements of prog in order against the engine state
func (e *Engine) Execute(ctx context.Context, prog *ast.Program) error {
	invariant.NotNil(prog, "program")

	outer := e.source
	e.source = prog.Source
	defer func() { e.source = outer }()

	return e.executeBody(ctx, prog.Statements)
}

// Verdict returns a copy of the verdict log
func (e *Engine) Verdict() []string {
	return append([]string(nil), e.verdict...)
}

// Env returns the variable environment
func (e *Engine) Env() *eval.Env {
	return e.env
}

// Statutes returns the names of the defined statutes in sorted order
func (e *Engine) Statutes() []string {
	names := make([]string, 0, len(e.statutes))
	for name := range e.statutes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Diagnostics returns every error recovered since the engine was created
func (e *Engine) Diagnostics() []Diagnostic {
	return append([]Diagnostic(nil), e.diagnostics...)
}

func (e *Engine) executeBody(ctx context.Context, body []ast.Statement) error {
	for _, stmt := range body {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.executeStatement(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// executeStatement dispatches one statement. Recoverable errors are recorded
// here; only fatal errors are returned.
func (e *Engine) executeStatement(ctx context.Context, stmt ast.Statement) error {
	e.stepsRun++
	e.logger.Debug("exec", "stmt", headline(stmt), "line", stmt.Position().Line, "depth", e.depth)

	switch s := stmt.(type) {
	case *ast.Summon:
		e.env.Declare(s.Name)

	case *ast.ReadEvidence:
		return e.readEvidence(ctx, s)

	case *ast.DeliverVerdict:
		e.deliverVerdict(s)

	case *ast.DefineStatute:
		if _, exists := e.statutes[s.Name]; exists {
			e.logger.Debug("statute redefined", "statute", s.Name)
		}
		e.statutes[s.Name] = s.Body

	case *ast.WriteVerdict:
		e.writeVerdict(s)

	case *ast.Assignment:
		e.env.Set(s.Name, e.value(s, s.Expr))

	case *ast.StatuteCall:
		return e.callStatute(ctx, s)

	case *ast.Loophole:
		return e.loophole(ctx, s)

	case *ast.Conditional:
		if eval.Truthy(e.value(s, s.Condition)) {
			return e.executeBody(ctx, s.Then)
		}
		return e.executeBody(ctx, s.Else)

	default:
		invariant.Invariant(false, "unhandled statement type %T", stmt)
	}
	return nil
}

func (e *Engine) readEvidence(ctx context.Context, s *ast.ReadEvidence) error {
	if err := e.enter(fmt.Sprintf("evidence '%s'", s.Filename)); err != nil {
		return err
	}
	defer e.leave()

	prog, err := e.bridge.LoadEvidence(s.Filename)
	if err != nil {
		e.record(s, lerrors.NewEvidenceError(s.Filename, err))
		return nil
	}
	return e.Execute(ctx, prog)
}

func (e *Engine) deliverVerdict(s *ast.DeliverVerdict) {
	message, errs := e.evaluator.Interpolate(s.Message)
	for _, err := range errs {
		e.record(s, err)
	}
	e.verdict = append(e.verdict, message)
	fmt.Fprintln(e.out, message)
}

func (e *Engine) writeVerdict(s *ast.WriteVerdict) {
	path, err := e.bridge.WriteVerdict(s.Filename, e.verdict)
	if err != nil {
		e.record(s, lerrors.NewVerdictError(s.Filename, err))
		return
	}
	e.logger.Debug("verdict written", "file", path, "lines", len(e.verdict))
}

func (e *Engine) callStatute(ctx context.Context, s *ast.StatuteCall) error {
	body, ok := e.statutes[s.Name]
	if !ok {
		e.record(s, lerrors.NewUndefinedStatuteError(s.Name, findClosestMatch(s.Name, e.Statutes())))
		return nil
	}

	if err := e.enter(fmt.Sprintf("statute call '%s'", s.Name)); err != nil {
		return err
	}
	defer e.leave()

	return e.executeBody(ctx, body)
}

// loophole runs the body while the condition holds. The iteration counter
// belongs to this execution of the loop.
func (e *Engine) loophole(ctx context.Context, s *ast.Loophole) error {
	iterations := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !eval.Truthy(e.value(s, s.Condition)) {
			return nil
		}
		if iterations >= e.config.MaxLoopIterations {
			e.record(s, lerrors.NewLoopRunawayWarning(s.Condition, e.config.MaxLoopIterations))
			return nil
		}
		if err := e.executeBody(ctx, s.Body); err != nil {
			return err
		}
		iterations++
	}
}

// value evaluates expr, recording a failure and yielding 0
func (e *Engine) value(stmt ast.Statement, expr string) float64 {
	v, err := e.evaluator.Evaluate(expr)
	if err != nil {
		e.record(stmt, err)
		return 0
	}
	return v
}

func (e *Engine) enter(what string) error {
	if e.depth >= e.config.MaxDepth {
		return lerrors.NewRecursionLimitError(what, e.config.MaxDepth).
			WithContext("source", e.source)
	}
	e.depth++
	return nil
}

func (e *Engine) leave() {
	e.depth--
	invariant.Invariant(e.depth >= 0, "call depth went negative")
}

// record logs a recovered error and appends it to the diagnostics
func (e *Engine) record(stmt ast.Statement, err error) {
	invariant.Precondition(!lerrors.IsFatal(err), "fatal error recorded as diagnostic: %v", err)

	d := Diagnostic{
		Kind:    lerrors.Kind(err),
		Message: describe(err),
		Source:  e.source,
		Line:    stmt.Position().Line,
		Err:     err,
	}
	e.diagnostics = append(e.diagnostics, d)

	attrs := []any{"kind", d.Kind, "line", d.Line}
	if d.Source != "" {
		attrs = append(attrs, "source", d.Source)
	}
	e.logger.Warn(d.Message, attrs...)
}

// findClosestMatch finds the closest string match using fuzzy matching
func findClosestMatch(target string, candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}

	ranks := fuzzy.RankFindFold(target, candidates)
	if len(ranks) == 0 {
		return ""
	}
	sort.Sort(ranks)
	return ranks[0].Target
}

// describe renders the message of the outermost LegalError with its cause
func describe(err error) string {
	var legalErr *lerrors.LegalError
	if !stderrors.As(err, &legalErr) {
		return err.Error()
	}
	if legalErr.Cause == nil {
		return legalErr.Message
	}
	return legalErr.Message + ": " + describe(legalErr.Cause)
}

// headline is the first line of a statement's source form
func headline(stmt ast.Statement) string {
	text := stmt.String()
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		return text[:i]
	}
	return text
}
