package expr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSyntax marks malformed expressions. The workflow validator
	// rejects these before execution; evaluation rejects them again.
	ErrSyntax = errors.New("invalid expression")

	// ErrEval marks runtime evaluation failures such as type mismatches.
	ErrEval = errors.New("expression evaluation failed")

	// ErrUndefined marks references to variables absent from the context.
	// Callers seed the context completely or accept execution failure.
	ErrUndefined = errors.New("undefined variable")
)

// Check validates expression syntax without evaluating it.
func Check(input string) error {
	_, err := parse(input)

	return err
}

// Evaluate parses and evaluates a boolean expression against the context.
// A non-boolean result is an evaluation error.
func Evaluate(input string, context map[string]any) (bool, error) {
	value, err := EvaluateValue(input, context)
	if err != nil {
		return false, err
	}

	result, ok := value.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %q is not a boolean expression (got %T)", ErrEval, input, value)
	}

	return result, nil
}

// EvaluateValue parses and evaluates an expression of any result type.
// Used by variable assignment steps, where the result may be a number,
// string, boolean or null.
func EvaluateValue(input string, context map[string]any) (any, error) {
	root, err := parse(input)
	if err != nil {
		return nil, err
	}

	return eval(root, context)
}

func eval(n node, context map[string]any) (any, error) {
	switch v := n.(type) {
	case literalNode:
		return v.value, nil

	case refNode:
		return resolveRef(v.path, context)

	case unaryNode:
		return evalUnary(v, context)

	case binaryNode:
		return evalBinary(v, context)

	default:
		return nil, fmt.Errorf("%w: unknown node %T", ErrEval, n)
	}
}

func resolveRef(path []string, context map[string]any) (any, error) {
	var current any = context

	for i, segment := range path {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s (%s is not an object)",
				ErrUndefined, strings.Join(path, "."), strings.Join(path[:i], "."))
		}

		value, exists := obj[segment]
		if !exists {
			return nil, fmt.Errorf("%w: %s", ErrUndefined, strings.Join(path, "."))
		}

		current = value
	}

	return normalize(current), nil
}

// normalize folds Go numeric types to float64 so context values seeded by
// Go callers compare like JSON-decoded ones.
func normalize(value any) any {
	switch v := value.(type) {
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case float32:
		return float64(v)
	default:
		return value
	}
}

func evalUnary(n unaryNode, context map[string]any) (any, error) {
	operand, err := eval(n.operand, context)
	if err != nil {
		return nil, err
	}

	switch n.op {
	case tokenNot:
		b, ok := operand.(bool)
		if !ok {
			return nil, fmt.Errorf("%w: '!' requires a boolean, got %T", ErrEval, operand)
		}

		return !b, nil

	case tokenMinus:
		f, ok := operand.(float64)
		if !ok {
			return nil, fmt.Errorf("%w: unary '-' requires a number, got %T", ErrEval, operand)
		}

		return -f, nil

	default:
		return nil, fmt.Errorf("%w: unknown unary operator", ErrEval)
	}
}

func evalBinary(n binaryNode, context map[string]any) (any, error) {
	// && and || short-circuit: the right side is not evaluated (and its
	// references not resolved) unless needed.
	if n.op == tokenAnd || n.op == tokenOr {
		return evalLogical(n, context)
	}

	left, err := eval(n.left, context)
	if err != nil {
		return nil, err
	}

	right, err := eval(n.right, context)
	if err != nil {
		return nil, err
	}

	switch n.op {
	case tokenEq:
		return strictEquals(left, right), nil
	case tokenNotEq:
		return !strictEquals(left, right), nil
	case tokenGreater, tokenGreaterEq, tokenLess, tokenLessEq:
		return compare(n.op, left, right)
	case tokenPlus, tokenMinus, tokenStar, tokenSlash:
		return arithmetic(n.op, left, right)
	default:
		return nil, fmt.Errorf("%w: unknown binary operator", ErrEval)
	}
}

func evalLogical(n binaryNode, context map[string]any) (any, error) {
	left, err := eval(n.left, context)
	if err != nil {
		return nil, err
	}

	lb, ok := left.(bool)
	if !ok {
		return nil, fmt.Errorf("%w: logical operator requires booleans, got %T", ErrEval, left)
	}

	if n.op == tokenAnd && !lb {
		return false, nil
	}

	if n.op == tokenOr && lb {
		return true, nil
	}

	right, err := eval(n.right, context)
	if err != nil {
		return nil, err
	}

	rb, ok := right.(bool)
	if !ok {
		return nil, fmt.Errorf("%w: logical operator requires booleans, got %T", ErrEval, right)
	}

	return rb, nil
}

// strictEquals compares type and value with no implicit coercion.
func strictEquals(left, right any) bool {
	switch l := left.(type) {
	case float64:
		r, ok := right.(float64)

		return ok && l == r
	case string:
		r, ok := right.(string)

		return ok && l == r
	case bool:
		r, ok := right.(bool)

		return ok && l == r
	case nil:
		return right == nil
	default:
		return false
	}
}

func compare(op tokenKind, left, right any) (any, error) {
	if lf, ok := left.(float64); ok {
		rf, ok := right.(float64)
		if !ok {
			return nil, fmt.Errorf("%w: cannot compare number with %T", ErrEval, right)
		}

		switch op {
		case tokenGreater:
			return lf > rf, nil
		case tokenGreaterEq:
			return lf >= rf, nil
		case tokenLess:
			return lf < rf, nil
		default:
			return lf <= rf, nil
		}
	}

	if ls, ok := left.(string); ok {
		rs, ok := right.(string)
		if !ok {
			return nil, fmt.Errorf("%w: cannot compare string with %T", ErrEval, right)
		}

		switch op {
		case tokenGreater:
			return ls > rs, nil
		case tokenGreaterEq:
			return ls >= rs, nil
		case tokenLess:
			return ls < rs, nil
		default:
			return ls <= rs, nil
		}
	}

	return nil, fmt.Errorf("%w: cannot order %T values", ErrEval, left)
}

func arithmetic(op tokenKind, left, right any) (any, error) {
	if ls, ok := left.(string); ok && op == tokenPlus {
		rs, ok := right.(string)
		if !ok {
			return nil, fmt.Errorf("%w: cannot concatenate string with %T", ErrEval, right)
		}

		return ls + rs, nil
	}

	lf, ok := left.(float64)
	if !ok {
		return nil, fmt.Errorf("%w: arithmetic requires numbers, got %T", ErrEval, left)
	}

	rf, ok := right.(float64)
	if !ok {
		return nil, fmt.Errorf("%w: arithmetic requires numbers, got %T", ErrEval, right)
	}

	switch op {
	case tokenPlus:
		return lf + rf, nil
	case tokenMinus:
		return lf - rf, nil
	case tokenStar:
		return lf * rf, nil
	default:
		// IEEE-754 division: x/0 yields an infinity, not an error.
		return lf / rf, nil
	}
}
