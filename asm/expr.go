package asm

import (
	"fmt"
	"strconv"
)

//
// exprOp
//

type exprOp byte

const (
	// operators in descending order of precedence

	// unary operations
	opUnaryMinus exprOp = iota
	opUnaryPlus

	// binary operations
	opMultiply
	opDivide
	opAdd
	opSubtract

	// value "operations"
	opNumber
	opIdentifier
	opHere

	// pseudo-operations (used only during parsing but not stored in expr's)
	opLeftParen
	opRightParen
)

type opdata struct {
	precedence      byte
	binary          bool
	leftAssociative bool
	symbol          string
	eval            func(a, b int) int
}

var ops = []opdata{
	// unary and binary operations
	{4, false, false, "-", func(a, b int) int { return -a }}, // uminus
	{4, false, false, "+", func(a, b int) int { return a }},  // uplus
	{3, true, true, "*", func(a, b int) int { return a * b }}, // multiply
	{3, true, true, "/", func(a, b int) int { return a / b }}, // divide
	{2, true, true, "+", func(a, b int) int { return a + b }}, // add
	{2, true, true, "-", func(a, b int) int { return a - b }}, // subtract

	// value operations
	{0, false, false, "", nil}, // number
	{0, false, false, "", nil}, // identifier
	{0, false, false, "", nil}, // here

	// pseudo-operations
	{0, false, false, "", nil}, // lparen
	{0, false, false, "", nil}, // rparen
}

func (op exprOp) isBinary() bool {
	return ops[op].binary
}

func (op exprOp) eval(a, b int) int {
	return ops[op].eval(a, b)
}

func (op exprOp) symbol() string {
	return ops[op].symbol
}

func (op exprOp) isCollapsible() bool {
	return ops[op].precedence > 0
}

// Compare the precendence and associativity of 'op' to 'other'.
// Return true if the shunting yard algorithm should cause an
// expression node collapse.
func (op exprOp) collapses(other exprOp) bool {
	if ops[op].leftAssociative {
		return ops[op].precedence <= ops[other].precedence
	}
	return ops[op].precedence < ops[other].precedence
}

//
// expr
//

// An expr represents a single node in a binary expression tree.
// The root node represents an entire expression.
type expr struct {
	number     int
	identifier fstring
	op         exprOp
	evaluated  bool
	child0     *expr
	child1     *expr
}

// Return the expression as a postfix notation string.
func (e *expr) String() string {
	switch {
	case e.op == opNumber:
		return fmt.Sprintf("%d", e.number)
	case e.op == opIdentifier:
		return e.identifier.str
	case e.op == opHere:
		return "*"
	case e.op.isBinary():
		return fmt.Sprintf("%s %s %s", e.child0.String(), e.child1.String(), e.op.symbol())
	default:
		return fmt.Sprintf("%s [%s]", e.child0.String(), e.op.symbol())
	}
}

// Evaluate the expression tree using the symbols of a section. The
// location counter value 'here' is substituted for '*'. Division by zero
// leaves the node unevaluated.
func (e *expr) eval(here int, symbols *SymbolTable) bool {
	if !e.evaluated {
		switch {
		case e.op == opNumber:
			e.evaluated = true
		case e.op == opHere:
			e.number, e.evaluated = here, true
		case e.op == opIdentifier:
			if addr, ok := symbols.Lookup(e.identifier.str); ok {
				e.number, e.evaluated = addr, true
			}
		case e.op.isBinary():
			e.child0.eval(here, symbols)
			e.child1.eval(here, symbols)
			if e.child0.evaluated && e.child1.evaluated {
				if e.op == opDivide && e.child1.number == 0 {
					break
				}
				e.number = e.op.eval(e.child0.number, e.child1.number)
				e.evaluated = true
			}
		default:
			e.child0.eval(here, symbols)
			if e.child0.evaluated {
				e.number = e.op.eval(e.child0.number, 0)
				e.evaluated = true
			}
		}
	}
	return e.evaluated
}

// A term is an unresolved identifier and the sign with which it
// contributes to the value of its expression.
type term struct {
	name fstring
	sign byte // '+' or '-'
}

// Collect the unresolved identifiers of an evaluated tree. The result is
// false if an unresolved identifier is scaled by multiplication or
// division, which no modification record can express.
func (e *expr) unresolved(negate bool, terms []term) ([]term, bool) {
	if e.evaluated {
		return terms, true
	}

	switch e.op {
	case opIdentifier:
		sign := byte('+')
		if negate {
			sign = '-'
		}
		return append(terms, term{e.identifier, sign}), true
	case opNumber, opHere:
		return terms, true
	case opUnaryPlus:
		return e.child0.unresolved(negate, terms)
	case opUnaryMinus:
		return e.child0.unresolved(!negate, terms)
	case opAdd, opSubtract:
		terms, ok := e.child0.unresolved(negate, terms)
		if !ok {
			return terms, false
		}
		return e.child1.unresolved(negate != (e.op == opSubtract), terms)
	default:
		return terms, false
	}
}

// Return true if the expression is a lone identifier.
func (e *expr) isIdentifier() bool {
	return e.op == opIdentifier
}

//
// token
//

type tokentype byte

const (
	tokenNil tokentype = iota
	tokenOp
	tokenNumber
	tokenIdentifier
	tokenHere
	tokenLeftParen
	tokenRightParen
)

func (tt tokentype) isValue() bool {
	return tt == tokenNumber || tt == tokenIdentifier || tt == tokenHere
}

type token struct {
	tt         tokentype
	number     int
	identifier fstring
	op         exprOp
}

//
// exprParser
//

type exprParser struct {
	operandStack  exprStack
	operatorStack opStack
	parenCounter  int
	prevToken     token
	errors        []asmerror
}

// Parse an expression from the line until it is exhausted.
func (p *exprParser) parse(line fstring) (e *expr, err error) {
	p.errors = nil
	p.prevToken = token{}

	// Process expression using Dijkstra's shunting-yard algorithm
	for err == nil {

		// Parse the next expression token
		var token token
		var out fstring
		token, out, err = p.parseToken(line)
		if err != nil {
			break
		}

		// We're done when the token parser returns the nil token
		if token.tt == tokenNil {
			break
		}

		// Handle each possible token type
		switch token.tt {

		case tokenNumber:
			p.operandStack.push(&expr{op: opNumber, number: token.number, evaluated: true})

		case tokenIdentifier:
			p.operandStack.push(&expr{op: opIdentifier, identifier: token.identifier})

		case tokenHere:
			p.operandStack.push(&expr{op: opHere})

		case tokenOp:
			for err == nil && !p.operatorStack.empty() && token.op.collapses(p.operatorStack.peek()) {
				err = p.operandStack.collapse(p.operatorStack.pop())
				if err != nil {
					p.addError(line, "expression syntax error")
				}
			}
			p.operatorStack.push(token.op)

		case tokenLeftParen:
			p.operatorStack.push(opLeftParen)

		case tokenRightParen:
			for err == nil {
				if p.operatorStack.empty() {
					p.addError(line, "mismatched parentheses")
					err = errParse
					break
				}
				op := p.operatorStack.pop()
				if op == opLeftParen {
					break
				}
				err = p.operandStack.collapse(op)
				if err != nil {
					p.addError(line, "expression syntax error")
				}
			}

		}
		line = out
	}

	// Collapse any operators (and operands) remaining on the stack
	for err == nil && !p.operatorStack.empty() {
		err = p.operandStack.collapse(p.operatorStack.pop())
		if err != nil {
			p.addError(line, "expression syntax error")
			err = errParse
		}
	}

	if err == nil {
		if len(p.operandStack.data) != 1 {
			p.addError(line, "expression syntax error")
			err = errParse
		} else {
			e = p.operandStack.peek()
		}
	}
	p.reset()
	return
}

// Attempt to parse the next token from the line.
func (p *exprParser) parseToken(line fstring) (t token, out fstring, err error) {
	line = line.consumeWhitespace()
	if line.isEmpty() {
		t.tt, out = tokenNil, line
		return
	}

	afterValue := p.prevToken.tt.isValue() || p.prevToken.tt == tokenRightParen

	switch {

	case line.startsWith(decimal):
		t.number, out, err = p.parseNumber(line)
		t.tt = tokenNumber
		if afterValue {
			p.addError(line, "unexpected number")
			err = errParse
		}

	case line.startsWithChar('*') && !afterValue:
		t.tt, out = tokenHere, line.consume(1)

	case line.startsWithChar('('):
		p.parenCounter++
		t.tt, t.op = tokenLeftParen, opLeftParen
		out = line.consume(1)

	case line.startsWithChar(')'):
		if p.parenCounter == 0 {
			p.addError(line, "mismatched parentheses")
			err = errParse
			out = line.consume(1)
		} else {
			p.parenCounter--
			t.tt, t.op, out = tokenRightParen, opRightParen, line.consume(1)
		}

	case line.startsWith(identifierStartChar):
		t.tt = tokenIdentifier
		t.identifier, out = line.consumeWhile(identifierChar)
		if afterValue {
			p.addError(line, "unexpected identifier")
			err = errParse
		}

	default:
		for i, o := range ops {
			if o.symbol != "" && line.str[0] == o.symbol[0] && o.binary == afterValue {
				t.tt, t.op, out = tokenOp, exprOp(i), line.consume(1)
				break
			}
		}
		if t.tt != tokenOp {
			p.addError(line, "invalid character in expression")
			err = errParse
		}
	}

	p.prevToken = t
	return
}

// Parse a number from the line. The following numeric formats are allowed:
//
//	[0-9]+          Decimal number
//	0x[0-9a-fA-F]+  Hexadecimal number
//	0b[01]+         Binary number
func (p *exprParser) parseNumber(line fstring) (value int, remain fstring, err error) {
	base, fn := 10, decimal
	if len(line.str) > 2 && line.str[0] == '0' && (line.str[1] == 'x' || line.str[1] == 'X') {
		line = line.consume(2)
		base, fn = 16, hexadecimal
	} else if len(line.str) > 2 && line.str[0] == '0' && (line.str[1] == 'b' || line.str[1] == 'B') {
		line = line.consume(2)
		base, fn = 2, binarynum
	}

	numstr, remain := line.consumeWhile(fn)

	num64, converr := strconv.ParseInt(numstr.str, base, 32)
	if converr != nil {
		p.addError(numstr, "failed to parse integer")
		err = errParse
	}
	value = int(num64)
	return
}

func (p *exprParser) addError(line fstring, msg string) {
	p.errors = append(p.errors, asmerror{line, msg})
}

func (p *exprParser) reset() {
	p.operandStack.data, p.operatorStack.data = nil, nil
	p.parenCounter = 0
}

// Parse a signed integer constant occupying the entire string.
func parseConstant(l fstring) (int, bool) {
	var p exprParser
	negate := l.startsWithChar('-')
	if negate {
		l = l.consume(1)
	}
	if !l.startsWith(decimal) {
		return 0, false
	}
	v, remain, err := p.parseNumber(l)
	if err != nil || !remain.isEmpty() {
		return 0, false
	}
	if negate {
		v = -v
	}
	return v, true
}

//
// exprStack
//

type exprStack struct {
	data []*expr
}

func (s *exprStack) empty() bool {
	return len(s.data) == 0
}

func (s *exprStack) push(e *expr) {
	s.data = append(s.data, e)
}

func (s *exprStack) pop() *expr {
	l := len(s.data)
	e := s.data[l-1]
	s.data = s.data[:l-1]
	return e
}

func (s *exprStack) peek() *expr {
	if len(s.data) == 0 {
		return nil
	}
	return s.data[len(s.data)-1]
}

// Collapse one or more expression nodes on the top of the
// stack into a combined expression node, and push the combined
// node back onto the stack.
func (s *exprStack) collapse(op exprOp) error {
	switch {
	case !op.isCollapsible():
		return errParse
	case op.isBinary():
		if len(s.data) < 2 {
			return errParse
		}
		s.push(&expr{op: op, child1: s.pop(), child0: s.pop()})
	default:
		if s.empty() {
			return errParse
		}
		s.push(&expr{op: op, child0: s.pop()})
	}
	return nil
}

//
// opStack
//

type opStack struct {
	data []exprOp
}

func (s *opStack) push(op exprOp) {
	s.data = append(s.data, op)
}

func (s *opStack) pop() exprOp {
	op := s.data[len(s.data)-1]
	s.data = s.data[0 : len(s.data)-1]
	return op
}

func (s *opStack) empty() bool {
	return len(s.data) == 0
}

func (s *opStack) peek() exprOp {
	return s.data[len(s.data)-1]
}
