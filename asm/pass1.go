// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"strings"

	"github.com/golang/glog"
)

// Assign an address and size to every statement, build each section's
// symbol and literal tables, and place literal pools.
func (a *assembler) assignAddresses() error {
	a.logSection("Assigning addresses")
	return a.forEachSection((*assembler).assignSection)
}

func (a *assembler) assignSection(sec *Section) error {
	a.log("section %s", sec.Name)

	pc := 0
	for _, st := range sec.Statements {
		st.Addr = pc
		st.Size = a.statementSize(sec, st)
		pc += st.Size

		if st.Label != "" {
			a.defineLabel(sec, st)
		}
		if strings.HasPrefix(st.operand(0), "=") {
			a.registerLiteral(sec, st)
		}

		op := st.op()
		if (op == "LTORG" || op == "END") && sec.Literals.unplaced() > 0 {
			placed, size := sec.Literals.flush(pc)
			sec.pools[st] = placed
			st.Size += size
			pc += size
		}

		a.logLine(st, "%06X +%d", st.Addr, st.Size)
	}

	// Literals still pending at the end of a section have no pool
	// statement, so they are placed after the section's last statement.
	if sec.Literals.unplaced() > 0 {
		placed, size := sec.Literals.flush(pc)
		sec.tailPool = placed
		pc += size
		glog.Warningf("%s: section %s: %d literals placed without LTORG", a.filename, sec.Name, len(placed))
	}

	sec.Length = pc
	a.log("section %s length %06X", sec.Name, sec.Length)
	return nil
}

// Return the number of bytes a statement occupies, excluding any literal
// pool it places.
func (a *assembler) statementSize(sec *Section, st *Statement) int {
	if st.Operator == "" {
		return 0
	}

	if inst := a.instSet.GetInstruction(st.mnemonic()); inst != nil {
		if st.extended() && inst.Format != 3 {
			sec.addError(st.operator, "instruction '%s' has no extended format", inst.Name)
		}
		return inst.Size(st.extended())
	}

	d, ok := directives[st.op()]
	if !ok || st.extended() {
		sec.addError(st.operator, "invalid operator '%s'", st.Operator)
		return 0
	}
	if d.assign == nil {
		return 0
	}
	return d.assign(a, sec, st, d.param)
}

// Add a statement's label to the section's symbol table. An EQU label is
// first defined at the statement's own address and then updated with the
// value of its operand.
func (a *assembler) defineLabel(sec *Section, st *Statement) {
	if !sec.Symbols.define(st.Label, st.Addr) {
		sec.addError(st.label, "label '%s' used more than once", st.Label)
		return
	}
	if st.op() == "EQU" {
		sec.Symbols.update(st.Label, a.equate(sec, st))
	}
}

// Evaluate an EQU operand. A '*' operand yields the statement's own
// address. An expression that cannot be resolved yields 0 when it is a
// lone name and the statement's own address otherwise.
func (a *assembler) equate(sec *Section, st *Statement) int {
	if st.operand(0) == "" {
		return st.Addr
	}

	e := a.parseExpr(sec, st.operandPos(0))
	if e == nil {
		return st.Addr
	}
	if e.eval(st.Addr, sec.Symbols) {
		return e.number
	}

	if a.options&Strict != 0 {
		sec.addError(st.operandPos(0), "unable to resolve '%s'", st.operand(0))
	} else {
		glog.Warningf("%s:%d: unable to resolve '%s'", a.filename, st.Row, st.operand(0))
	}
	if e.isIdentifier() {
		return 0
	}
	return st.Addr
}

// Parse an expression, copying any parse errors into the section.
func (a *assembler) parseExpr(sec *Section, l fstring) *expr {
	var p exprParser
	e, err := p.parse(l)
	if err != nil {
		if len(p.errors) == 0 {
			sec.addError(l, "invalid expression '%s'", l.str)
		}
		sec.errors = append(sec.errors, p.errors...)
		return nil
	}
	return e
}

func (a *assembler) registerLiteral(sec *Section, st *Statement) {
	pos := st.operandPos(0)
	kind, text, err := parseByteConstant(pos.str[1:])
	if err != nil {
		sec.addError(pos, "%v", err)
		return
	}
	sec.Literals.register(kind, text)
}

func (a *assembler) assignReserve(sec *Section, st *Statement, unit int) int {
	n, ok := parseConstant(st.operandPos(0))
	if !ok || n < 0 {
		sec.addError(st.operandPos(0), "invalid reservation count '%s'", st.operand(0))
		return 0
	}
	return n * unit
}

func (a *assembler) assignWord(sec *Section, st *Statement, param int) int {
	if st.operand(0) == "" {
		sec.addError(st.operator, "WORD requires an operand")
	}
	return 3
}

func (a *assembler) assignByte(sec *Section, st *Statement, param int) int {
	kind, text, err := parseByteConstant(st.operand(0))
	if err != nil {
		sec.addError(st.operandPos(0), "%v", err)
		return 0
	}
	return len(constantBytes(kind, text))
}

func (a *assembler) assignRefer(sec *Section, st *Statement, param int) int {
	for _, name := range st.Operands {
		sec.externals[name] = true
	}
	return 0
}

func (a *assembler) assignEquate(sec *Section, st *Statement, param int) int {
	switch {
	case st.Label == "":
		sec.addError(st.operator, "EQU requires a label")
	case st.operand(0) == "":
		sec.addError(st.operator, "EQU requires an operand")
	}
	return 0
}
