package eval

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lerrors "github.com/lspl-lang/lspl/pkgs/errors"
)

func newEvaluator(vars map[string]float64) (*Evaluator, *Env) {
	env := NewEnv()
	for k, v := range vars {
		env.Set(k, v)
	}
	return New(env), env
}

func TestEvaluate(t *testing.T) {
	vars := map[string]float64{"a": 2, "b": 3, "neg": -1, "total_2": 10}

	tests := []struct {
		name string
		expr string
		want float64
	}{
		{"literal", "42", 42},
		{"float literal", "1.5", 1.5},
		{"addition", "a + b", 5},
		{"precedence", "a + b * 2", 8},
		{"parentheses", "(a + b) * 2", 10},
		{"division", "b / a", 1.5},
		{"rounded to two decimals", "10 / 3", 3.33},
		{"exact tie rounds to even", "0.125 + 0", 0.12},
		{"negative tie rounds to even", "-0.375 + 0", -0.38},
		{"binary value below the tie", "2.675 + 0", 2.67},
		{"modulo", "7 % 3", 1},
		{"floored modulo", "-7 % 3", 2},
		{"unary minus", "-a", -2},
		{"subtracting a negative", "a-neg", 3},
		{"multiplying a negative", "a*neg", -2},
		{"undefined variable is zero", "y + 1", 1},
		{"identifier with digits", "total_2 / 4", 2.5},
		{"greater than", "a > 1", 1},
		{"less than false", "a < 1", 0},
		{"equality", "a == 2", 1},
		{"inequality", "a != 2", 0},
		{"less or equal", "b <= 3", 1},
		{"greater or equal", "b >= 4", 0},
		{"logical and", "a > 1 && b > 1", 1},
		{"logical or", "a > 5 || b > 1", 1},
		{"logical not", "!a", 0},
		{"abs", "abs(neg)", 1},
		{"min", "min(a, b, neg)", -1},
		{"max", "max(a, b)", 3},
		{"builtin with space before paren", "max (a, b)", 3},
		{"nested builtins", "abs(min(neg, -5))", 5},
		{"exponent literal", "1e2 + 1", 101},
		{"comparison in parentheses", "(a > 0)", 1},
		{"chained comparison inside range", "0 < a < 10", 1},
		{"chained comparison outside range", "0 < total_2 < 10", 0},
		{"chained comparison first link false", "5 < a < 10", 0},
		{"chained equality", "a == 2 == 2.0", 1},
		{"parenthesized comparison does not chain", "(0 < total_2) < 10", 1},
		{"zero literal", "00 + 1", 1},
		{"hex literal", "0x10", 16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, _ := newEvaluator(vars)
			got, err := ev.Evaluate(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluateErrors(t *testing.T) {
	tests := []struct {
		name string
		expr string
	}{
		{"empty", ""},
		{"division by zero", "1 / zero"},
		{"modulo by zero", "1 % 0"},
		{"syntax error", "1 +"},
		{"assignment", "x = 1"},
		{"string literal", `"hello"`},
		{"unknown call", "print(1)"},
		{"builtin arity", "abs(1, 2)"},
		{"min needs two", "min(1)"},
		{"selector", "a.b"},
		{"index", "a[0]"},
		{"power is not supported", "2 ** 3"},
		{"floor division is not supported", "7 // 2"},
		{"floor division after a variable", "a // 3"},
		{"block comment", "5 /* n */ + 1"},
		{"leading zero literal", "010"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, _ := newEvaluator(nil)
			got, err := ev.Evaluate(tt.expr)
			require.Error(t, err)
			assert.Equal(t, 0.0, got)
			assert.True(t, lerrors.IsErrorType(err, lerrors.ErrExpression), "got %v", err)
		})
	}
}

func TestEvaluateDoesNotMutateEnv(t *testing.T) {
	ev, env := newEvaluator(map[string]float64{"x": 4})

	_, err := ev.Evaluate("x * y + z")
	require.NoError(t, err)

	assert.Equal(t, []string{"x"}, env.Names())
}

func TestSubstitute(t *testing.T) {
	ev, _ := newEvaluator(map[string]float64{"a": 2, "b": -0.5, "x1": 7})

	tests := []struct {
		expr string
		want string
	}{
		{"a + b", "2.0 + (-0.5)"},
		{"x1*10", "7.0*10"},
		{"abs(b)", "abs((-0.5))"},
		{"abs + 1", "0.0 + 1"},
		{"max(a, 3.25)", "max(2.0, 3.25)"},
		{"unknown", "0.0"},
		{"1e3", "1e3"},
		{".5 + a", ".5 + 2.0"},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			assert.Equal(t, tt.want, ev.Substitute(tt.expr))
		})
	}
}

func TestSubstituteSinglePass(t *testing.T) {
	// The value inserted for a contains digits; they must not be re-read as names.
	ev, _ := newEvaluator(map[string]float64{"a": 12.5, "e": 99})
	assert.Equal(t, "12.5 + 99.0", ev.Substitute("a + e"))
}

func TestInterpolate(t *testing.T) {
	ev, _ := newEvaluator(map[string]float64{"a": 2, "b": 3})

	tests := []struct {
		name    string
		message string
		want    string
		errs    int
	}{
		{"total", `"Total: (a+b)"`, `"Total: 5.0"`, 0},
		{"several placeholders", "(a) and (b) make (a*b)", "2.0 and 3.0 make 6.0", 0},
		{"no placeholders", "Case closed", "Case closed", 0},
		{"empty parentheses are literal", "nothing ()", "nothing ()", 0},
		{"bad placeholder renders zero", "ratio (a/0)", "ratio 0.0", 1},
		{"nested parentheses are not supported", "((a+b)*2)", "0.0*2)", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, errs := ev.Interpolate(tt.message)
			assert.Equal(t, tt.want, got)
			assert.Len(t, errs, tt.errs)
		})
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{5, "5.0"},
		{0, "0.0"},
		{-1, "-1.0"},
		{0.25, "0.25"},
		{3.33, "3.33"},
		{1234567.5, "1234567.5"},
		{1e16, "1e+16"},
		{0.00001, "1e-05"},
		{math.Inf(1), "inf"},
		{math.Inf(-1), "-inf"},
		{math.NaN(), "nan"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatNumber(tt.in))
		})
	}
}

func TestEnvDeclareKeepsExistingValue(t *testing.T) {
	env := NewEnv()
	env.Declare("x")
	v, ok := env.Lookup("x")
	assert.True(t, ok)
	assert.Equal(t, 0.0, v)

	env.Set("x", 9)
	env.Declare("x")
	assert.Equal(t, 9.0, env.Get("x"))
	assert.Equal(t, map[string]float64{"x": 9}, env.Snapshot())
}
