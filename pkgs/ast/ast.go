package ast

import (
	"fmt"
	"strings"
)

// Pos is a source location. Line is 1-based in the raw source text, before
// blank lines were dropped.
type Pos struct {
	Line int
}

func (p Pos) String() string {
	return fmt.Sprintf("line %d", p.Line)
}

// Statement is one executable line or block of a license program.
// The set of statements is closed: only this package can add variants,
// which keeps the engine's type switch exhaustive.
type Statement interface {
	String() string
	Position() Pos
	statementNode()
}

// Program is the root of a parsed source. It is never modified after the
// parser returns it, so one Program may be executed many times.
type Program struct {
	Source     string // file name or "<stdin>", empty for inline text
	Statements []Statement
}

func (p *Program) String() string {
	lines := []string{"BEGIN_LICENSE_AGREEMENT"}
	lines = append(lines, indentBody(p.Statements, "")...)
	lines = append(lines, "END_LICENSE_AGREEMENT")
	return strings.Join(lines, "\n")
}

// Summon declares a variable, initializing it to zero.
type Summon struct {
	Name string
	Pos  Pos
}

func (s *Summon) String() string { return "SUMMON " + s.Name }
func (s *Summon) Position() Pos  { return s.Pos }
func (s *Summon) statementNode() {}

// ReadEvidence includes another source file into the running program.
type ReadEvidence struct {
	Filename string
	Pos      Pos
}

func (r *ReadEvidence) String() string { return "READ_EVIDENCE " + r.Filename }
func (r *ReadEvidence) Position() Pos  { return r.Pos }
func (r *ReadEvidence) statementNode() {}

// DeliverVerdict appends an interpolated message to the verdict log.
type DeliverVerdict struct {
	Message string
	Pos     Pos
}

func (d *DeliverVerdict) String() string { return "DELIVER VERDICT " + d.Message }
func (d *DeliverVerdict) Position() Pos  { return d.Pos }
func (d *DeliverVerdict) statementNode() {}

// DefineStatute binds a name to a body of statements.
type DefineStatute struct {
	Name string
	Body []Statement
	Pos  Pos
}

func (d *DefineStatute) String() string {
	lines := []string{"DEFINE STATUTE " + d.Name}
	lines = append(lines, indentBody(d.Body, "    ")...)
	lines = append(lines, "END STATUTE")
	return strings.Join(lines, "\n")
}
func (d *DefineStatute) Position() Pos  { return d.Pos }
func (d *DefineStatute) statementNode() {}

// WriteVerdict persists the verdict log to a file.
type WriteVerdict struct {
	Filename string
	Pos      Pos
}

func (w *WriteVerdict) String() string { return "WRITE_VERDICT " + w.Filename }
func (w *WriteVerdict) Position() Pos  { return w.Pos }
func (w *WriteVerdict) statementNode() {}

// Assignment stores the value of Expr under Name.
type Assignment struct {
	Name string
	Expr string
	Pos  Pos
}

func (a *Assignment) String() string { return a.Name + " = " + a.Expr }
func (a *Assignment) Position() Pos  { return a.Pos }
func (a *Assignment) statementNode() {}

// StatuteCall runs a previously defined statute by name.
type StatuteCall struct {
	Name string
	Pos  Pos
}

func (s *StatuteCall) String() string { return s.Name }
func (s *StatuteCall) Position() Pos  { return s.Pos }
func (s *StatuteCall) statementNode() {}

// Loophole repeats Body while Condition is non-zero, up to the engine's
// iteration cap.
type Loophole struct {
	Condition string
	Body      []Statement
	Pos       Pos
}

func (l *Loophole) String() string {
	lines := []string{"COMMENCE LEGAL_LOOPHOLE UNTIL " + l.Condition}
	lines = append(lines, indentBody(l.Body, "    ")...)
	lines = append(lines, "END LEGAL_LOOPHOLE")
	return strings.Join(lines, "\n")
}
func (l *Loophole) Position() Pos  { return l.Pos }
func (l *Loophole) statementNode() {}

// Conditional runs Then when Condition is non-zero, otherwise Else.
type Conditional struct {
	Condition string
	Then      []Statement
	Else      []Statement
	Pos       Pos
}

func (c *Conditional) String() string {
	lines := []string{"IF " + c.Condition}
	lines = append(lines, indentBody(c.Then, "    ")...)
	if len(c.Else) > 0 {
		lines = append(lines, "ELSE")
		lines = append(lines, indentBody(c.Else, "    ")...)
	}
	lines = append(lines, "END IF")
	return strings.Join(lines, "\n")
}
func (c *Conditional) Position() Pos  { return c.Pos }
func (c *Conditional) statementNode() {}

func indentBody(body []Statement, indent string) []string {
	var lines []string
	for _, stmt := range body {
		for _, line := range strings.Split(stmt.String(), "\n") {
			lines = append(lines, indent+line)
		}
	}
	return lines
}
