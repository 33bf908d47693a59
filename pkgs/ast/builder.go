package ast

// NewProgram creates a program AST node
func NewProgram(stmts ...Statement) *Program {
	return &Program{
		Statements: stmts,
	}
}

// Body groups statements for the block builders
func Body(stmts ...Statement) []Statement {
	return stmts
}

// Declare creates a variable declaration: SUMMON NAME
func Declare(name string) *Summon {
	return &Summon{Name: name}
}

// Evidence creates an include: READ_EVIDENCE FILE
func Evidence(filename string) *ReadEvidence {
	return &ReadEvidence{Filename: filename}
}

// Deliver creates a verdict line: DELIVER VERDICT MESSAGE
func Deliver(message string) *DeliverVerdict {
	return &DeliverVerdict{Message: message}
}

// Statute creates a statute definition with the given body
func Statute(name string, body ...Statement) *DefineStatute {
	return &DefineStatute{
		Name: name,
		Body: body,
	}
}

// Persist creates a verdict write: WRITE_VERDICT FILE
func Persist(filename string) *WriteVerdict {
	return &WriteVerdict{Filename: filename}
}

// Assign creates an assignment: NAME = EXPR
func Assign(name, expr string) *Assignment {
	return &Assignment{
		Name: name,
		Expr: expr,
	}
}

// Call creates a statute invocation
func Call(name string) *StatuteCall {
	return &StatuteCall{Name: name}
}

// Loop creates a loophole: COMMENCE LEGAL_LOOPHOLE UNTIL CONDITION
func Loop(condition string, body ...Statement) *Loophole {
	return &Loophole{
		Condition: condition,
		Body:      body,
	}
}

// If creates a conditional; pass nil for a missing ELSE branch
func If(condition string, then, otherwise []Statement) *Conditional {
	return &Conditional{
		Condition: condition,
		Then:      then,
		Else:      otherwise,
	}
}
