// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"fmt"
	"strings"
)

// Generate the encoding of every statement and the modification records
// of every section.
func (a *assembler) generateCode() error {
	a.logSection("Generating code")
	return a.forEachSection((*assembler).generateSection)
}

func (a *assembler) generateSection(sec *Section) error {
	a.log("section %s", sec.Name)

	sec.Encodings = make([]Encoding, len(sec.Statements))
	sec.Mods = nil
	sec.base = baseRegister{}

	for i, st := range sec.Statements {
		var enc Encoding
		if inst := a.instSet.GetInstruction(st.mnemonic()); inst != nil {
			flags, disp, mod := a.addressing(sec, st, inst)
			if mod != nil {
				sec.Mods = append(sec.Mods, *mod)
			}
			enc = Encoding{
				Kind:  TextRecord,
				Flags: flags,
				Disp:  disp,
				Data:  encodeInstruction(inst, st.Size, flags, disp),
			}
		} else if d, ok := directives[st.op()]; ok && d.generate != nil {
			enc = d.generate(a, sec, st)
		}
		sec.Encodings[i] = enc

		if enc.Kind != 0 {
			a.logLine(st, "%c %s", enc.Kind, encodingString(enc))
		}
	}

	if len(sec.tailPool) > 0 {
		sec.Tail = Encoding{Kind: TextRecord, Data: poolBytes(sec.tailPool)}
	}
	return nil
}

func encodingString(enc Encoding) string {
	if enc.Kind == TextRecord {
		return byteString(enc.Data)
	}
	return enc.Body
}

// Return the concatenated object code of a literal pool.
func poolBytes(pool []*Literal) []byte {
	var b []byte
	for _, l := range pool {
		b = append(b, l.Bytes()...)
	}
	return b
}

func (a *assembler) generateHeader(sec *Section, st *Statement) Encoding {
	return Encoding{
		Kind: HeaderRecord,
		Body: fmt.Sprintf("%s%s%s", name6(sec.Name), hexAddr(0, 6), hexAddr(sec.Length, 6)),
	}
}

func (a *assembler) generateDefine(sec *Section, st *Statement) Encoding {
	var b strings.Builder
	for i, name := range st.Operands {
		addr, ok := sec.Symbols.Lookup(name)
		if !ok {
			sec.addError(st.operandPos(i), "exported symbol '%s' is not defined", name)
			continue
		}
		b.WriteString(name6(name))
		b.WriteString(hexAddr(addr, 6))
	}
	return Encoding{Kind: DefineRecord, Body: b.String()}
}

func (a *assembler) generateRefer(sec *Section, st *Statement) Encoding {
	var b strings.Builder
	for _, name := range st.Operands {
		b.WriteString(name6(name))
	}
	return Encoding{Kind: ReferRecord, Body: b.String()}
}

// Encode a WORD. A value that cannot be resolved locally is stored as
// zero, and each unresolved name contributes a full-word modification
// record carrying its sign in the expression. Local terms of such an
// expression are dropped.
func (a *assembler) generateWord(sec *Section, st *Statement) Encoding {
	enc := Encoding{Kind: TextRecord, Data: toBytes(3, 0)}

	e := a.parseExpr(sec, st.operandPos(0))
	if e == nil {
		return enc
	}
	if e.eval(st.Addr, sec.Symbols) {
		enc.Disp = e.number
		enc.Data = toBytes(3, e.number)
		return enc
	}

	terms, ok := e.unresolved(false, nil)
	if !ok || len(terms) == 0 {
		sec.addError(st.operandPos(0), "unable to evaluate '%s'", st.operand(0))
		return enc
	}

	for _, t := range terms {
		a.checkExternal(sec, t.name, t.name.str)
		sec.Mods = append(sec.Mods, Modification{Addr: st.Addr, Width: 6, Sign: t.sign, Symbol: t.name.str})
	}
	return enc
}

func (a *assembler) generateByte(sec *Section, st *Statement) Encoding {
	kind, text, err := parseByteConstant(st.operand(0))
	if err != nil {
		return Encoding{}
	}
	return Encoding{Kind: TextRecord, Data: constantBytes(kind, text)}
}

// Emit the literals placed by an LTORG or END statement.
func (a *assembler) generatePool(sec *Section, st *Statement) Encoding {
	pool := sec.pools[st]
	if len(pool) == 0 {
		return Encoding{}
	}
	return Encoding{Kind: TextRecord, Data: poolBytes(pool)}
}

func (a *assembler) generateBase(sec *Section, st *Statement) Encoding {
	addr, ok := sec.resolve(st.operand(0))
	if !ok {
		if v, isNum := parseConstant(st.operandPos(0)); isNum {
			addr, ok = v, true
		}
	}
	if !ok {
		sec.addError(st.operandPos(0), "unable to resolve base address '%s'", st.operand(0))
		return Encoding{}
	}
	sec.base = baseRegister{addr: addr, valid: true}
	return Encoding{}
}

func (a *assembler) generateNoBase(sec *Section, st *Statement) Encoding {
	sec.base = baseRegister{}
	return Encoding{}
}
