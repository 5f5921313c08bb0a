// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"fmt"
	"strings"
)

// A Symbol associates a label with an address in its control section.
type Symbol struct {
	Name string
	Addr int
}

// A SymbolTable holds the symbols of one control section in the order
// they were defined.
type SymbolTable struct {
	index   map[string]int // name -> position in symbols
	symbols []Symbol
}

func newSymbolTable() *SymbolTable {
	return &SymbolTable{index: make(map[string]int)}
}

// Lookup returns the address of the named symbol.
func (t *SymbolTable) Lookup(name string) (addr int, ok bool) {
	if t == nil {
		return 0, false
	}
	i, ok := t.index[name]
	if !ok {
		return 0, false
	}
	return t.symbols[i].Addr, true
}

// Symbols returns the table's symbols in definition order.
func (t *SymbolTable) Symbols() []Symbol {
	return t.symbols
}

// Add a new symbol. Return false if the name is already defined.
func (t *SymbolTable) define(name string, addr int) bool {
	if _, dup := t.index[name]; dup {
		return false
	}
	t.index[name] = len(t.symbols)
	t.symbols = append(t.symbols, Symbol{name, addr})
	return true
}

// Change the address of an existing symbol.
func (t *SymbolTable) update(name string, addr int) bool {
	i, ok := t.index[name]
	if ok {
		t.symbols[i].Addr = addr
	}
	return ok
}

// LiteralKind distinguishes hexadecimal literals from character literals.
type LiteralKind byte

const (
	HexLiteral  LiteralKind = 'X'
	CharLiteral LiteralKind = 'C'
)

// A Literal is a constant referenced by an '=' operand. Its address is
// assigned when a pool containing it is placed.
type Literal struct {
	Text   string      // content between the quotes
	Kind   LiteralKind // hexadecimal or character
	Addr   int         // address once placed
	Placed bool        // whether a pool has placed the literal
}

// Len returns the number of bytes the literal occupies.
func (l *Literal) Len() int {
	if l.Kind == HexLiteral {
		return len(l.Text) / 2
	}
	return len(l.Text)
}

// Bytes returns the literal's object code.
func (l *Literal) Bytes() []byte {
	return constantBytes(l.Kind, l.Text)
}

func (l *Literal) key() string {
	return literalKey(l.Kind, l.Text)
}

func literalKey(kind LiteralKind, text string) string {
	return string(rune(kind)) + text
}

// A LiteralTable holds the literals of one control section in the order
// they were first referenced.
type LiteralTable struct {
	index    map[string]*Literal
	literals []*Literal
	pending  int // index of the first literal not yet placed
}

func newLiteralTable() *LiteralTable {
	return &LiteralTable{index: make(map[string]*Literal)}
}

// Literals returns the table's literals in first-reference order.
func (t *LiteralTable) Literals() []*Literal {
	return t.literals
}

// Lookup finds the literal referenced by an operand of the form =C'..'
// or =X'..'.
func (t *LiteralTable) Lookup(operand string) (*Literal, bool) {
	kind, text, err := parseByteConstant(strings.TrimPrefix(operand, "="))
	if err != nil {
		return nil, false
	}
	l, ok := t.index[literalKey(kind, text)]
	return l, ok
}

// Register a literal, returning the existing entry if one with the same
// content is already known.
func (t *LiteralTable) register(kind LiteralKind, text string) *Literal {
	l := &Literal{Text: text, Kind: kind}
	if prev, ok := t.index[l.key()]; ok {
		return prev
	}
	t.index[l.key()] = l
	t.literals = append(t.literals, l)
	return l
}

// Return the number of literals waiting for a pool.
func (t *LiteralTable) unplaced() int {
	return len(t.literals) - t.pending
}

// Place every pending literal consecutively starting at addr. Return the
// placed literals and the number of bytes they occupy.
func (t *LiteralTable) flush(addr int) (placed []*Literal, size int) {
	placed = t.literals[t.pending:]
	for _, l := range placed {
		l.Addr, l.Placed = addr+size, true
		size += l.Len()
	}
	t.pending = len(t.literals)
	return placed, size
}

// Parse a C'..' or X'..' constant, returning its kind and the text
// between the quotes.
func parseByteConstant(s string) (kind LiteralKind, text string, err error) {
	if len(s) < 3 || s[1] != '\'' || s[len(s)-1] != '\'' {
		return 0, "", fmt.Errorf("invalid constant '%s'", s)
	}

	text = s[2 : len(s)-1]
	switch s[0] {
	case 'C', 'c':
		kind = CharLiteral
	case 'X', 'x':
		kind = HexLiteral
		if len(text)%2 != 0 {
			return 0, "", fmt.Errorf("hex constant '%s' has an odd number of digits", s)
		}
		for i := 0; i < len(text); i++ {
			if !hexadecimal(text[i]) {
				return 0, "", fmt.Errorf("invalid hex digit in constant '%s'", s)
			}
		}
		text = strings.ToUpper(text)
	default:
		return 0, "", fmt.Errorf("invalid constant '%s'", s)
	}

	if text == "" {
		return 0, "", fmt.Errorf("empty constant '%s'", s)
	}
	return kind, text, nil
}

// Return the object code for a constant's text.
func constantBytes(kind LiteralKind, text string) []byte {
	if kind == CharLiteral {
		return []byte(text)
	}
	b := make([]byte, len(text)/2)
	for i := range b {
		b[i] = hexToByte(text[i*2:])
	}
	return b
}

// A Section is a control section: the statements between one START or
// CSECT and the next, together with the tables built for them.
type Section struct {
	Name       string        // label of the START or CSECT statement
	Start      bool          // opened by START rather than CSECT
	Statements []*Statement  // statements in source order
	Symbols    *SymbolTable  // labels defined in the section
	Literals   *LiteralTable // literals referenced in the section
	Length     int           // final location counter value
	Entry      int           // first executable address, for START sections
	Encodings  []Encoding    // pass 2 output, parallel to Statements
	Mods       []Modification
	Tail       Encoding // literal pool placed after the last statement

	externals map[string]bool          // names declared by EXTREF
	pools     map[*Statement][]*Literal // literals placed by each pool statement
	tailPool  []*Literal               // literals placed after the last statement
	base      baseRegister
	errors    []asmerror
}

func newSection(name string, start bool) *Section {
	return &Section{
		Name:      name,
		Start:     start,
		Symbols:   newSymbolTable(),
		Literals:  newLiteralTable(),
		externals: make(map[string]bool),
		pools:     make(map[*Statement][]*Literal),
	}
}

// Append an error message to the section's error state.
func (s *Section) addError(l fstring, format string, args ...any) {
	s.errors = append(s.errors, asmerror{l, fmt.Sprintf(format, args...)})
}

// Return the address of a symbol or placed literal named by an operand.
func (s *Section) resolve(operand string) (int, bool) {
	if strings.HasPrefix(operand, "=") {
		if l, ok := s.Literals.Lookup(operand); ok && l.Placed {
			return l.Addr, true
		}
		return 0, false
	}
	return s.Symbols.Lookup(operand)
}
