package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	context := map[string]any{
		"count":  float64(3),
		"name":   "alice",
		"active": true,
		"user": map[string]any{
			"age":  42,
			"role": "admin",
		},
	}

	tests := []struct {
		name     string
		expr     string
		expected bool
	}{
		{name: "true literal", expr: "true", expected: true},
		{name: "false literal", expr: "false", expected: false},
		{name: "numeric greater", expr: "count > 2", expected: true},
		{name: "numeric less", expr: "count < 2", expected: false},
		{name: "numeric less or equal", expr: "count <= 3", expected: true},
		{name: "strict equality number", expr: "count === 3", expected: true},
		{name: "strict inequality", expr: "count !== 3", expected: false},
		{name: "strict equality string", expr: "name === 'alice'", expected: true},
		{name: "no coercion across types", expr: "count === '3'", expected: false},
		{name: "dot path reference", expr: "user.age >= 18", expected: true},
		{name: "dot path string", expr: "user.role === 'admin'", expected: true},
		{name: "and connector", expr: "active && count > 1", expected: true},
		{name: "or connector", expr: "count > 10 || active", expected: true},
		{name: "negation", expr: "!(count > 10)", expected: true},
		{name: "parenthesized grouping", expr: "(count > 1 && count < 5) || false", expected: true},
		{name: "arithmetic in comparison", expr: "count + 1 === 4", expected: true},
		{name: "multiplication precedence", expr: "2 + 3 * 4 === 14", expected: true},
		{name: "unary minus", expr: "-count < 0", expected: true},
		{name: "string ordinal comparison", expr: "'abc' < 'abd'", expected: true},
		{name: "null equality", expr: "null === null", expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Evaluate(tt.expr, context)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestEvaluateErrors(t *testing.T) {
	context := map[string]any{
		"count": float64(3),
		"name":  "alice",
	}

	tests := []struct {
		name     string
		expr     string
		expected error
	}{
		{name: "undefined variable", expr: "missing > 1", expected: ErrUndefined},
		{name: "undefined nested path", expr: "user.age > 1", expected: ErrUndefined},
		{name: "non-boolean result", expr: "count + 1", expected: ErrEval},
		{name: "type mismatch comparison", expr: "count > 'abc'", expected: ErrEval},
		{name: "logical on non-boolean", expr: "count && true", expected: ErrEval},
		{name: "not on non-boolean", expr: "!count", expected: ErrEval},
		{name: "dangling operator", expr: "count >", expected: ErrSyntax},
		{name: "unbalanced parentheses", expr: "(count > 1", expected: ErrSyntax},
		{name: "loose equality rejected", expr: "count == 3", expected: ErrSyntax},
		{name: "loose inequality rejected", expr: "count != 3", expected: ErrSyntax},
		{name: "unterminated string", expr: "name === 'alice", expected: ErrSyntax},
		{name: "trailing garbage", expr: "true true", expected: ErrSyntax},
		{name: "empty expression", expr: "", expected: ErrSyntax},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Evaluate(tt.expr, context)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestEvaluateShortCircuit(t *testing.T) {
	context := map[string]any{"flag": false}

	// The right side references an undefined variable; short-circuiting
	// means it is never resolved.
	result, err := Evaluate("flag && missing > 1", context)
	require.NoError(t, err)
	assert.False(t, result)

	result, err = Evaluate("!flag || missing > 1", context)
	require.NoError(t, err)
	assert.True(t, result)
}

func TestEvaluateValue(t *testing.T) {
	context := map[string]any{
		"i":    float64(2),
		"name": "bot",
	}

	tests := []struct {
		name     string
		expr     string
		expected any
	}{
		{name: "increment", expr: "i + 1", expected: float64(3)},
		{name: "number literal", expr: "42", expected: float64(42)},
		{name: "string literal", expr: "'hello'", expected: "hello"},
		{name: "string concat", expr: "name + '-1'", expected: "bot-1"},
		{name: "boolean", expr: "i > 1", expected: true},
		{name: "null literal", expr: "null", expected: nil},
		{name: "division", expr: "i / 4", expected: float64(0.5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := EvaluateValue(tt.expr, context)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestEvaluateDoesNotMutateContext(t *testing.T) {
	context := map[string]any{"a": float64(1), "b": float64(2)}

	_, err := Evaluate("a + b > 2", context)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"a": float64(1), "b": float64(2)}, context)
}

func TestCheck(t *testing.T) {
	assert.NoError(t, Check("a > 1 && (b === 'x' || !c)"))
	assert.ErrorIs(t, Check("a >"), ErrSyntax)
	assert.ErrorIs(t, Check(")("), ErrSyntax)
	// References to variables that may not exist yet are fine at
	// validation time; only syntax is checked.
	assert.NoError(t, Check("not.seeded.yet === true"))
}

func TestNormalizeIntContextValues(t *testing.T) {
	context := map[string]any{"n": 7}

	result, err := Evaluate("n === 7", context)
	require.NoError(t, err)
	assert.True(t, result)
}
