package expr

import (
	"strconv"
	"strings"
)

type node interface {
	isNode()
}

type literalNode struct {
	value any // float64, string, bool or nil
}

type refNode struct {
	path []string
}

type unaryNode struct {
	op      tokenKind
	operand node
}

type binaryNode struct {
	op    tokenKind
	left  node
	right node
}

func (literalNode) isNode() {}
func (refNode) isNode()     {}
func (unaryNode) isNode()   {}
func (binaryNode) isNode()  {}

type parser struct {
	input  string
	tokens []token
	pos    int
}

// parse builds the AST for a full expression, rejecting trailing input.
func parse(input string) (node, error) {
	tokens, err := tokenize(input)
	if err != nil {
		return nil, err
	}

	p := &parser{input: input, tokens: tokens}

	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}

	if tok := p.peek(); tok.kind != tokenEOF {
		return nil, syntaxErrorf(input, tok.pos, "unexpected %q", tok.text)
	}

	return root, nil
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokenEOF {
		p.pos++
	}

	return tok
}

func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	for p.peek().kind == tokenOr {
		p.next()

		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}

		left = binaryNode{op: tokenOr, left: left, right: right}
	}

	return left, nil
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseEquality()
	if err != nil {
		return nil, err
	}

	for p.peek().kind == tokenAnd {
		p.next()

		right, err := p.parseEquality()
		if err != nil {
			return nil, err
		}

		left = binaryNode{op: tokenAnd, left: left, right: right}
	}

	return left, nil
}

func (p *parser) parseEquality() (node, error) {
	left, err := p.parseRelational()
	if err != nil {
		return nil, err
	}

	for {
		op := p.peek().kind
		if op != tokenEq && op != tokenNotEq {
			return left, nil
		}

		p.next()

		right, err := p.parseRelational()
		if err != nil {
			return nil, err
		}

		left = binaryNode{op: op, left: left, right: right}
	}
}

func (p *parser) parseRelational() (node, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}

	for {
		op := p.peek().kind
		if op != tokenGreater && op != tokenGreaterEq && op != tokenLess && op != tokenLessEq {
			return left, nil
		}

		p.next()

		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}

		left = binaryNode{op: op, left: left, right: right}
	}
}

func (p *parser) parseAdditive() (node, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}

	for {
		op := p.peek().kind
		if op != tokenPlus && op != tokenMinus {
			return left, nil
		}

		p.next()

		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}

		left = binaryNode{op: op, left: left, right: right}
	}
}

func (p *parser) parseMultiplicative() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for {
		op := p.peek().kind
		if op != tokenStar && op != tokenSlash {
			return left, nil
		}

		p.next()

		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}

		left = binaryNode{op: op, left: left, right: right}
	}
}

func (p *parser) parseUnary() (node, error) {
	op := p.peek().kind
	if op == tokenNot || op == tokenMinus {
		p.next()

		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}

		return unaryNode{op: op, operand: operand}, nil
	}

	return p.parsePrimary()
}

func (p *parser) parsePrimary() (node, error) {
	tok := p.next()

	switch tok.kind {
	case tokenNumber:
		value, err := strconv.ParseFloat(tok.text, 64)
		if err != nil {
			return nil, syntaxErrorf(p.input, tok.pos, "invalid number %q", tok.text)
		}

		return literalNode{value: value}, nil

	case tokenString:
		return literalNode{value: tok.text}, nil

	case tokenIdent:
		switch tok.text {
		case "true":
			return literalNode{value: true}, nil
		case "false":
			return literalNode{value: false}, nil
		case "null":
			return literalNode{value: nil}, nil
		default:
			return refNode{path: strings.Split(tok.text, ".")}, nil
		}

	case tokenLeftParen:
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}

		if closing := p.next(); closing.kind != tokenRightParen {
			return nil, syntaxErrorf(p.input, closing.pos, "missing closing parenthesis")
		}

		return inner, nil

	case tokenEOF:
		return nil, syntaxErrorf(p.input, tok.pos, "unexpected end of expression")

	default:
		return nil, syntaxErrorf(p.input, tok.pos, "unexpected %q", tok.text)
	}
}
