package parser

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/lspl-lang/lspl/pkgs/ast"
	"github.com/lspl-lang/lspl/pkgs/invariant"
)

// Agreement and block markers. Closers and ELSE must occupy a whole line.
const (
	BeginAgreement = "BEGIN_LICENSE_AGREEMENT"
	EndAgreement   = "END_LICENSE_AGREEMENT"

	endStatute  = "END STATUTE"
	endLoophole = "END LEGAL_LOOPHOLE"
	endIf       = "END IF"
	elseMarker  = "ELSE"

	untilKeyword = "UNTIL"
)

// markers are recognized lines that produce no statement.
var markers = map[string]bool{
	BeginAgreement:               true,
	EndAgreement:                 true,
	"COMMENCE_LEGAL_PROCEEDINGS": true,
	"CASE_DISMISSED":             true,
}

var closers = map[string]bool{
	endStatute:  true,
	endLoophole: true,
	endIf:       true,
	elseMarker:  true,
}

type directiveKind int

const (
	dirDeliver directiveKind = iota
	dirStatute
	dirLoophole
	dirEvidence
	dirWrite
	dirSummon
	dirIf
)

// directives is checked in order; multi-word keywords come first so that a
// shorter keyword can never claim a longer one's line.
var directives = []struct {
	keyword string
	kind    directiveKind
}{
	{"DELIVER VERDICT", dirDeliver},
	{"DEFINE STATUTE", dirStatute},
	{"COMMENCE LEGAL_LOOPHOLE", dirLoophole},
	{"READ_EVIDENCE", dirEvidence},
	{"WRITE_VERDICT", dirWrite},
	{"SUMMON", dirSummon},
	{"IF", dirIf},
}

// Line is one normalized source line with its original line number.
type Line struct {
	Text string
	Num  int
}

// Normalize trims every line and drops blank ones, keeping source order.
func Normalize(source string) []Line {
	var lines []Line
	for i, raw := range strings.Split(source, "\n") {
		text := strings.TrimSpace(raw)
		if text == "" {
			continue
		}
		lines = append(lines, Line{Text: text, Num: i + 1})
	}
	return lines
}

type parser struct {
	input  string
	lines  []Line
	pos    int // next line to consume
	end    int // index of END_LICENSE_AGREEMENT
	config *ParserConfig
	logger *slog.Logger
}

// Parse normalizes source and builds its statement tree.
// Every failure is a *ParseError, which matches errors.Structural.
func Parse(source string, opts ...ParserOpt) (*ast.Program, error) {
	config := &ParserConfig{}
	for _, opt := range opts {
		opt(config)
	}

	logger := config.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	p := &parser{
		input:  source,
		lines:  Normalize(source),
		config: config,
		logger: logger,
	}

	if err := p.checkAgreement(); err != nil {
		return nil, err
	}

	program := &ast.Program{Source: config.name}
	p.pos = 1
	for p.pos < p.end {
		prev := p.pos
		stmt, err := p.statement()
		if err != nil {
			return nil, err
		}
		invariant.Invariant(p.pos > prev, "parser cursor must advance (stuck at line index %d)", prev)
		if stmt != nil {
			program.Statements = append(program.Statements, stmt)
		}
	}

	invariant.Postcondition(p.pos == p.end, "parser must stop at END_LICENSE_AGREEMENT")
	p.logger.Debug("parsed agreement", "source", config.name, "statements", len(program.Statements))
	return program, nil
}

func (p *parser) checkAgreement() error {
	if len(p.lines) == 0 {
		return &ParseError{
			Kind:    ErrorAgreement,
			Message: "empty source, expected " + BeginAgreement,
			Source:  p.config.name,
		}
	}

	first, last := p.lines[0], p.lines[len(p.lines)-1]
	if first.Text != BeginAgreement {
		return p.errorAt(first, ErrorAgreement, "agreement must open with "+BeginAgreement)
	}
	if len(p.lines) < 2 || last.Text != EndAgreement {
		return p.errorAt(last, ErrorAgreement, "agreement must close with "+EndAgreement)
	}

	p.end = len(p.lines) - 1
	return nil
}

// statement consumes one line, and for block openers every line through the
// matching closer. It returns nil for marker lines.
func (p *parser) statement() (ast.Statement, error) {
	ln := p.lines[p.pos]
	p.pos++
	text := ln.Text
	pos := ast.Pos{Line: ln.Num}

	for _, d := range directives {
		operand, ok := matchKeyword(text, d.keyword)
		if !ok {
			continue
		}

		switch d.kind {
		case dirDeliver:
			return &ast.DeliverVerdict{Message: operand, Pos: pos}, nil
		case dirStatute:
			return p.defineStatute(ln, operand)
		case dirLoophole:
			return p.loophole(ln, operand)
		case dirEvidence:
			if operand == "" {
				return nil, p.errorAt(ln, ErrorMissing, "READ_EVIDENCE requires a file name")
			}
			return &ast.ReadEvidence{Filename: operand, Pos: pos}, nil
		case dirWrite:
			if operand == "" {
				return nil, p.errorAt(ln, ErrorMissing, "WRITE_VERDICT requires a file name")
			}
			return &ast.WriteVerdict{Filename: operand, Pos: pos}, nil
		case dirSummon:
			if operand == "" {
				return nil, p.errorAt(ln, ErrorMissing, "SUMMON requires a variable name")
			}
			return &ast.Summon{Name: operand, Pos: pos}, nil
		case dirIf:
			return p.conditional(ln, operand)
		default:
			panic(fmt.Sprintf("parser: unhandled directive %q", d.keyword))
		}
	}

	if closers[text] {
		return nil, p.errorAt(ln, ErrorUnexpected, fmt.Sprintf("'%s' without a matching opening block", text))
	}

	if name, expr, ok := strings.Cut(text, "="); ok {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, p.errorAt(ln, ErrorMissing, "assignment requires a variable name")
		}
		return &ast.Assignment{Name: name, Expr: strings.TrimSpace(expr), Pos: pos}, nil
	}

	if markers[text] {
		return nil, nil
	}

	return &ast.StatuteCall{Name: text, Pos: pos}, nil
}

func (p *parser) defineStatute(ln Line, name string) (ast.Statement, error) {
	if name == "" {
		return nil, p.errorAt(ln, ErrorMissing, "DEFINE STATUTE requires a name")
	}
	p.logger.Debug("→ statute", "name", name, "line", ln.Num)

	body, _, err := p.block(ln, "DEFINE STATUTE", endStatute)
	if err != nil {
		return nil, err
	}

	p.logger.Debug("← statute", "name", name, "statements", len(body))
	return &ast.DefineStatute{Name: name, Body: body, Pos: ast.Pos{Line: ln.Num}}, nil
}

func (p *parser) loophole(ln Line, operand string) (ast.Statement, error) {
	condition, ok := matchKeyword(operand, untilKeyword)
	if !ok {
		return nil, p.errorAt(ln, ErrorMissing, "COMMENCE LEGAL_LOOPHOLE requires UNTIL <condition>")
	}
	if condition == "" {
		return nil, p.errorAt(ln, ErrorMissing, "UNTIL requires a condition")
	}
	p.logger.Debug("→ loophole", "condition", condition, "line", ln.Num)

	body, _, err := p.block(ln, "COMMENCE LEGAL_LOOPHOLE", endLoophole)
	if err != nil {
		return nil, err
	}

	p.logger.Debug("← loophole", "statements", len(body))
	return &ast.Loophole{Condition: condition, Body: body, Pos: ast.Pos{Line: ln.Num}}, nil
}

func (p *parser) conditional(ln Line, condition string) (ast.Statement, error) {
	if condition == "" {
		return nil, p.errorAt(ln, ErrorMissing, "IF requires a condition")
	}
	p.logger.Debug("→ if", "condition", condition, "line", ln.Num)

	then, closer, err := p.block(ln, "IF", elseMarker, endIf)
	if err != nil {
		return nil, err
	}

	var otherwise []ast.Statement
	if closer == elseMarker {
		otherwise, _, err = p.block(ln, "IF", endIf)
		if err != nil {
			return nil, err
		}
	}

	p.logger.Debug("← if", "then", len(then), "else", len(otherwise))
	return &ast.Conditional{
		Condition: condition,
		Then:      then,
		Else:      otherwise,
		Pos:       ast.Pos{Line: ln.Num},
	}, nil
}

// block reads statements until one of the given closers, consumes it and
// reports which closer ended the block. The last closer is the one named in
// the error when the agreement ends first.
func (p *parser) block(opener Line, what string, terminators ...string) ([]ast.Statement, string, error) {
	var body []ast.Statement
	for p.pos < p.end {
		text := p.lines[p.pos].Text
		if slices.Contains(terminators, text) {
			p.pos++
			return body, text, nil
		}

		prev := p.pos
		stmt, err := p.statement()
		if err != nil {
			return nil, "", err
		}
		invariant.Invariant(p.pos > prev, "parser cursor must advance inside %s", what)
		if stmt != nil {
			body = append(body, stmt)
		}
	}

	closer := terminators[len(terminators)-1]
	return nil, "", p.errorAt(opener, ErrorUnterminated, fmt.Sprintf("%s is missing %s", what, closer))
}

// matchKeyword reports whether text starts with keyword as a whole word and
// returns the trimmed remainder.
func matchKeyword(text, keyword string) (string, bool) {
	if !strings.HasPrefix(text, keyword) {
		return "", false
	}
	rest := text[len(keyword):]
	if rest != "" && isIdentChar(rest[0]) {
		return "", false
	}
	return strings.TrimSpace(rest), true
}

func isIdentChar(ch byte) bool {
	return ch == '_' || ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z') || ('0' <= ch && ch <= '9')
}
