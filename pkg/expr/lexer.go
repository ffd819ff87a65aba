// Package expr implements the condition expression language evaluated
// against execution contexts. It is deliberately capability-limited:
// literals, dot-path variable references, comparison and boolean
// operators, and basic arithmetic. Nothing in the language can call
// functions, mutate the context, or reach outside the supplied values.
package expr

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenNumber
	tokenString
	tokenIdent
	tokenLeftParen
	tokenRightParen
	tokenNot       // !
	tokenAnd       // &&
	tokenOr        // ||
	tokenEq        // ===
	tokenNotEq     // !==
	tokenGreater   // >
	tokenGreaterEq // >=
	tokenLess      // <
	tokenLessEq    // <=
	tokenPlus      // +
	tokenMinus     // -
	tokenStar      // *
	tokenSlash     // /
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func tokenize(input string) ([]token, error) {
	var tokens []token

	runes := []rune(input)
	i := 0

	for i < len(runes) {
		r := runes[i]

		switch {
		case unicode.IsSpace(r):
			i++

		case r == '(':
			tokens = append(tokens, token{tokenLeftParen, "(", i})
			i++

		case r == ')':
			tokens = append(tokens, token{tokenRightParen, ")", i})
			i++

		case r == '+':
			tokens = append(tokens, token{tokenPlus, "+", i})
			i++

		case r == '-':
			tokens = append(tokens, token{tokenMinus, "-", i})
			i++

		case r == '*':
			tokens = append(tokens, token{tokenStar, "*", i})
			i++

		case r == '/':
			tokens = append(tokens, token{tokenSlash, "/", i})
			i++

		case r == '&':
			if i+1 >= len(runes) || runes[i+1] != '&' {
				return nil, syntaxErrorf(input, i, "expected '&&'")
			}

			tokens = append(tokens, token{tokenAnd, "&&", i})
			i += 2

		case r == '|':
			if i+1 >= len(runes) || runes[i+1] != '|' {
				return nil, syntaxErrorf(input, i, "expected '||'")
			}

			tokens = append(tokens, token{tokenOr, "||", i})
			i += 2

		case r == '=':
			if i+2 >= len(runes) || runes[i+1] != '=' || runes[i+2] != '=' {
				return nil, syntaxErrorf(input, i, "expected '===' (loose equality is not supported)")
			}

			tokens = append(tokens, token{tokenEq, "===", i})
			i += 3

		case r == '!':
			if i+2 < len(runes) && runes[i+1] == '=' && runes[i+2] == '=' {
				tokens = append(tokens, token{tokenNotEq, "!==", i})
				i += 3
			} else if i+1 < len(runes) && runes[i+1] == '=' {
				return nil, syntaxErrorf(input, i, "expected '!==' (loose inequality is not supported)")
			} else {
				tokens = append(tokens, token{tokenNot, "!", i})
				i++
			}

		case r == '>':
			if i+1 < len(runes) && runes[i+1] == '=' {
				tokens = append(tokens, token{tokenGreaterEq, ">=", i})
				i += 2
			} else {
				tokens = append(tokens, token{tokenGreater, ">", i})
				i++
			}

		case r == '<':
			if i+1 < len(runes) && runes[i+1] == '=' {
				tokens = append(tokens, token{tokenLessEq, "<=", i})
				i += 2
			} else {
				tokens = append(tokens, token{tokenLess, "<", i})
				i++
			}

		case r == '\'' || r == '"':
			text, next, err := scanString(input, runes, i)
			if err != nil {
				return nil, err
			}

			tokens = append(tokens, token{tokenString, text, i})
			i = next

		case unicode.IsDigit(r):
			start := i
			for i < len(runes) && (unicode.IsDigit(runes[i]) || runes[i] == '.') {
				i++
			}

			text := string(runes[start:i])
			if _, err := strconv.ParseFloat(text, 64); err != nil {
				return nil, syntaxErrorf(input, start, "invalid number %q", text)
			}

			tokens = append(tokens, token{tokenNumber, text, start})

		case unicode.IsLetter(r) || r == '_':
			start := i
			for i < len(runes) && (unicode.IsLetter(runes[i]) || unicode.IsDigit(runes[i]) || runes[i] == '_' || runes[i] == '.') {
				i++
			}

			text := string(runes[start:i])
			if strings.HasSuffix(text, ".") || strings.Contains(text, "..") {
				return nil, syntaxErrorf(input, start, "invalid reference %q", text)
			}

			tokens = append(tokens, token{tokenIdent, text, start})

		default:
			return nil, syntaxErrorf(input, i, "unexpected character %q", string(r))
		}
	}

	tokens = append(tokens, token{tokenEOF, "", len(runes)})

	return tokens, nil
}

func scanString(input string, runes []rune, start int) (string, int, error) {
	quote := runes[start]

	var sb strings.Builder

	i := start + 1
	for i < len(runes) {
		switch runes[i] {
		case quote:
			return sb.String(), i + 1, nil
		case '\\':
			if i+1 >= len(runes) {
				return "", 0, syntaxErrorf(input, i, "dangling escape")
			}

			sb.WriteRune(runes[i+1])

			i += 2
		default:
			sb.WriteRune(runes[i])
			i++
		}
	}

	return "", 0, syntaxErrorf(input, start, "unterminated string")
}

func syntaxErrorf(input string, pos int, format string, args ...any) error {
	return fmt.Errorf("%w: %s at position %d in %q", ErrSyntax, fmt.Sprintf(format, args...), pos, input)
}
