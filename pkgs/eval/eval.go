// Package eval substitutes variables into expression text and evaluates the
// result under a small arithmetic grammar.
//
// Evaluation runs in two steps. Substitute replaces every identifier with the
// current value of that variable, so the text handed to the grammar contains
// only numbers, operators, parentheses and the builtins abs, min and max.
// The text is then parsed as a Go expression and walked with a whitelist of
// node kinds; anything outside the whitelist is an ExpressionError.
package eval

import (
	"fmt"
	goast "go/ast"
	goparser "go/parser"
	"go/scanner"
	"go/token"
	"math"
	"regexp"
	"strconv"
	"strings"

	lerrors "github.com/lspl-lang/lspl/pkgs/errors"
	"github.com/lspl-lang/lspl/pkgs/invariant"
)

var builtins = map[string]bool{
	"abs": true,
	"min": true,
	"max": true,
}

// placeholder matches one (expr) in a verdict message; nesting is not supported
var placeholder = regexp.MustCompile(`\(([^)]+)\)`)

// Evaluator evaluates expressions against an environment it does not own.
type Evaluator struct {
	env *Env
}

// New creates an Evaluator reading variables from env
func New(env *Env) *Evaluator {
	invariant.NotNil(env, "env")
	return &Evaluator{env: env}
}

// Evaluate substitutes variables into expr and computes its value rounded to
// two decimals. On failure it returns 0 and an ExpressionError; it never
// changes the environment.
func (ev *Evaluator) Evaluate(expr string) (float64, error) {
	substituted := ev.Substitute(expr)

	if err := rejectComments(substituted); err != nil {
		return 0, ev.fail(expr, substituted, err)
	}

	node, err := goparser.ParseExpr(substituted)
	if err != nil {
		return 0, ev.fail(expr, substituted, err)
	}

	value, err := evalNode(node)
	if err != nil {
		return 0, ev.fail(expr, substituted, err)
	}

	return Round2(value), nil
}

func (ev *Evaluator) fail(expr, substituted string, cause error) error {
	return lerrors.NewExpressionError(substituted, cause).
		WithContext("source", expr)
}

// rejectComments fails on comment text, which the Go parser would otherwise
// drop without a trace. A "//" here is always an unsupported operator.
func rejectComments(src string) error {
	fset := token.NewFileSet()
	file := fset.AddFile("", fset.Base(), len(src))

	var s scanner.Scanner
	s.Init(file, []byte(src), nil, scanner.ScanComments)
	for {
		_, tok, lit := s.Scan()
		switch {
		case tok == token.EOF:
			return nil
		case tok == token.COMMENT && strings.HasPrefix(lit, "//"):
			return fmt.Errorf("unsupported operator //")
		case tok == token.COMMENT:
			return fmt.Errorf("comments are not allowed in expressions")
		}
	}
}

// Substitute replaces each identifier in expr with its rendered value in one
// left-to-right pass over the original text. Numeric literals are copied as
// they are, and builtin names directly followed by "(" are kept.
func (ev *Evaluator) Substitute(expr string) string {
	var b strings.Builder
	b.Grow(len(expr) + 8)

	for i := 0; i < len(expr); {
		ch := expr[i]
		switch {
		case isDigit(ch) || (ch == '.' && i+1 < len(expr) && isDigit(expr[i+1])):
			j := i + 1
			for j < len(expr) && (isIdentPart(expr[j]) || expr[j] == '.') {
				j++
			}
			b.WriteString(expr[i:j])
			i = j

		case isIdentStart(ch):
			j := i + 1
			for j < len(expr) && isIdentPart(expr[j]) {
				j++
			}
			name := expr[i:j]
			if builtins[name] && nextNonSpace(expr, j) == '(' {
				b.WriteString(name)
			} else {
				b.WriteString(literal(ev.env.Get(name)))
			}
			i = j

		default:
			b.WriteByte(ch)
			i++
		}
	}

	return b.String()
}

// Interpolate replaces every (expr) in message with the rendered value of
// expr. Failed placeholders render as 0.0 and are reported in errs.
func (ev *Evaluator) Interpolate(message string) (string, []error) {
	var errs []error
	out := placeholder.ReplaceAllStringFunc(message, func(match string) string {
		value, err := ev.Evaluate(match[1 : len(match)-1])
		if err != nil {
			errs = append(errs, err)
		}
		return FormatNumber(value)
	})
	return out, errs
}

// Truthy reports whether a condition value selects its branch
func Truthy(v float64) bool {
	return v != 0
}

// Round2 rounds to two decimal places. Exact ties go to the even digit, and
// the tie is decided on the binary value, so 2.675 becomes 2.67.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	invariant.Postcondition(err == nil, "rounded value %v must parse: %v", v, err)
	return r
}

// FormatNumber renders a value the way the verdict log shows it: the
// shortest decimal that round-trips, always with a fractional part, and
// exponent form for very large or very small magnitudes.
func FormatNumber(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}

	if a := math.Abs(v); a != 0 && (a >= 1e16 || a < 1e-4) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}

	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// literal renders a substituted value; negatives are parenthesized so that
// "a-b" with b=-2 stays "2.0-(-2.0)" rather than a decrement token.
func literal(v float64) string {
	s := FormatNumber(v)
	if math.Signbit(v) {
		return "(" + s + ")"
	}
	return s
}

func evalNode(node goast.Expr) (float64, error) {
	switch n := node.(type) {
	case *goast.BasicLit:
		return evalLiteral(n)

	case *goast.ParenExpr:
		return evalNode(n.X)

	case *goast.UnaryExpr:
		x, err := evalNode(n.X)
		if err != nil {
			return 0, err
		}
		switch n.Op {
		case token.SUB:
			return -x, nil
		case token.ADD:
			return x, nil
		case token.NOT:
			return boolValue(!Truthy(x)), nil
		default:
			return 0, fmt.Errorf("unsupported unary operator %s", n.Op)
		}

	case *goast.BinaryExpr:
		return evalBinary(n)

	case *goast.CallExpr:
		return evalCall(n)

	case *goast.Ident:
		return 0, fmt.Errorf("name '%s' is not defined", n.Name)

	default:
		return 0, fmt.Errorf("unsupported syntax %T", node)
	}
}

func evalLiteral(lit *goast.BasicLit) (float64, error) {
	switch lit.Kind {
	case token.INT:
		if hasLeadingZero(lit.Value) {
			return 0, fmt.Errorf("leading zeros in decimal integer literals are not permitted: %s", lit.Value)
		}
		n, err := strconv.ParseInt(lit.Value, 0, 64)
		if err != nil {
			return strconv.ParseFloat(lit.Value, 64)
		}
		return float64(n), nil
	case token.FLOAT:
		return strconv.ParseFloat(lit.Value, 64)
	default:
		return 0, fmt.Errorf("unsupported literal %s", lit.Value)
	}
}

// hasLeadingZero reports a decimal literal such as 010. Prefixed literals
// (0x, 0o, 0b) and runs of zeros are fine.
func hasLeadingZero(lit string) bool {
	if len(lit) < 2 || lit[0] != '0' || !(isDigit(lit[1]) || lit[1] == '_') {
		return false
	}
	return strings.Trim(lit, "0_") != ""
}

func isComparison(op token.Token) bool {
	switch op {
	case token.EQL, token.NEQ, token.LSS, token.LEQ, token.GTR, token.GEQ:
		return true
	}
	return false
}

func compare(op token.Token, left, right float64) bool {
	switch op {
	case token.EQL:
		return left == right
	case token.NEQ:
		return left != right
	case token.LSS:
		return left < right
	case token.LEQ:
		return left <= right
	case token.GTR:
		return left > right
	default:
		return left >= right
	}
}

// evalComparison treats a < b < c as a < b && b < c. Each operand is
// evaluated at most once and evaluation stops at the first false link.
// A parenthesized comparison is an ordinary operand and does not chain.
func evalComparison(n *goast.BinaryExpr) (float64, error) {
	operands := []goast.Expr{n.Y}
	ops := []token.Token{n.Op}
	x := n.X
	for {
		inner, ok := x.(*goast.BinaryExpr)
		if !ok || !isComparison(inner.Op) {
			break
		}
		operands = append(operands, inner.Y)
		ops = append(ops, inner.Op)
		x = inner.X
	}
	operands = append(operands, x)

	left, err := evalNode(operands[len(operands)-1])
	if err != nil {
		return 0, err
	}
	for i := len(ops) - 1; i >= 0; i-- {
		right, err := evalNode(operands[i])
		if err != nil {
			return 0, err
		}
		if !compare(ops[i], left, right) {
			return 0, nil
		}
		left = right
	}
	return 1, nil
}

func evalBinary(n *goast.BinaryExpr) (float64, error) {
	if isComparison(n.Op) {
		return evalComparison(n)
	}

	left, err := evalNode(n.X)
	if err != nil {
		return 0, err
	}

	// Short-circuit evaluation for && and ||
	switch n.Op {
	case token.LAND:
		if !Truthy(left) {
			return 0, nil
		}
		right, err := evalNode(n.Y)
		if err != nil {
			return 0, err
		}
		return boolValue(Truthy(right)), nil

	case token.LOR:
		if Truthy(left) {
			return 1, nil
		}
		right, err := evalNode(n.Y)
		if err != nil {
			return 0, err
		}
		return boolValue(Truthy(right)), nil
	}

	right, err := evalNode(n.Y)
	if err != nil {
		return 0, err
	}

	switch n.Op {
	case token.ADD:
		return left + right, nil
	case token.SUB:
		return left - right, nil
	case token.MUL:
		return left * right, nil
	case token.QUO:
		if right == 0 {
			return 0, fmt.Errorf("division by zero")
		}
		return left / right, nil
	case token.REM:
		if right == 0 {
			return 0, fmt.Errorf("modulo by zero")
		}
		// floored modulo, so the result takes the sign of the divisor
		m := math.Mod(left, right)
		if m != 0 && (m < 0) != (right < 0) {
			m += right
		}
		return m, nil
	default:
		return 0, fmt.Errorf("unsupported operator %s", n.Op)
	}
}

func evalCall(n *goast.CallExpr) (float64, error) {
	fn, ok := n.Fun.(*goast.Ident)
	if !ok || !builtins[fn.Name] {
		return 0, fmt.Errorf("only abs, min and max may be called")
	}
	if n.Ellipsis.IsValid() {
		return 0, fmt.Errorf("unsupported variadic call to %s", fn.Name)
	}

	args := make([]float64, 0, len(n.Args))
	for _, arg := range n.Args {
		v, err := evalNode(arg)
		if err != nil {
			return 0, err
		}
		args = append(args, v)
	}

	switch fn.Name {
	case "abs":
		if len(args) != 1 {
			return 0, fmt.Errorf("abs() takes exactly one argument (%d given)", len(args))
		}
		return math.Abs(args[0]), nil
	case "min", "max":
		if len(args) < 2 {
			return 0, fmt.Errorf("%s() expected at least 2 arguments, got %d", fn.Name, len(args))
		}
		result := args[0]
		for _, v := range args[1:] {
			if (fn.Name == "min" && v < result) || (fn.Name == "max" && v > result) {
				result = v
			}
		}
		return result, nil
	default:
		panic("eval: unhandled builtin " + fn.Name)
	}
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func nextNonSpace(s string, i int) byte {
	for ; i < len(s); i++ {
		if s[i] != ' ' && s[i] != '\t' {
			return s[i]
		}
	}
	return 0
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func isIdentStart(ch byte) bool {
	return ch == '_' || ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z')
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}
