package ast

import "fmt"

// OutlineNode is a plain mirror of a Statement for serialization. The
// statement types themselves carry no tags and no exported kind, so tools
// that dump a parsed program go through Outline instead.
type OutlineNode struct {
	Kind      string        `json:"kind" yaml:"kind" cbor:"kind"`
	Line      int           `json:"line" yaml:"line" cbor:"line"`
	Name      string        `json:"name,omitempty" yaml:"name,omitempty" cbor:"name,omitempty"`
	Filename  string        `json:"filename,omitempty" yaml:"filename,omitempty" cbor:"filename,omitempty"`
	Message   string        `json:"message,omitempty" yaml:"message,omitempty" cbor:"message,omitempty"`
	Expr      string        `json:"expr,omitempty" yaml:"expr,omitempty" cbor:"expr,omitempty"`
	Condition string        `json:"condition,omitempty" yaml:"condition,omitempty" cbor:"condition,omitempty"`
	Body      []OutlineNode `json:"body,omitempty" yaml:"body,omitempty" cbor:"body,omitempty"`
	Else      []OutlineNode `json:"else,omitempty" yaml:"else,omitempty" cbor:"else,omitempty"`
}

// Outline converts a program into serializable nodes, preserving order.
func Outline(prog *Program) []OutlineNode {
	if prog == nil {
		return nil
	}
	return outlineBody(prog.Statements)
}

func outlineBody(body []Statement) []OutlineNode {
	if len(body) == 0 {
		return nil
	}
	nodes := make([]OutlineNode, 0, len(body))
	for _, stmt := range body {
		nodes = append(nodes, outlineStatement(stmt))
	}
	return nodes
}

func outlineStatement(stmt Statement) OutlineNode {
	node := OutlineNode{Line: stmt.Position().Line}
	switch s := stmt.(type) {
	case *Summon:
		node.Kind = "summon"
		node.Name = s.Name
	case *ReadEvidence:
		node.Kind = "read_evidence"
		node.Filename = s.Filename
	case *DeliverVerdict:
		node.Kind = "deliver_verdict"
		node.Message = s.Message
	case *DefineStatute:
		node.Kind = "define_statute"
		node.Name = s.Name
		node.Body = outlineBody(s.Body)
	case *WriteVerdict:
		node.Kind = "write_verdict"
		node.Filename = s.Filename
	case *Assignment:
		node.Kind = "assignment"
		node.Name = s.Name
		node.Expr = s.Expr
	case *StatuteCall:
		node.Kind = "statute_call"
		node.Name = s.Name
	case *Loophole:
		node.Kind = "loophole"
		node.Condition = s.Condition
		node.Body = outlineBody(s.Body)
	case *Conditional:
		node.Kind = "conditional"
		node.Condition = s.Condition
		node.Body = outlineBody(s.Then)
		node.Else = outlineBody(s.Else)
	default:
		panic(fmt.Sprintf("ast: unhandled statement %T", stmt))
	}
	return node
}
