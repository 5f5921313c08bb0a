// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"fmt"
	"strings"

	"github.com/beevik/sicxe/isa"
	"github.com/golang/glog"
)

const (
	maxPCOffset   = 0x7ff // largest PC-relative distance in either direction
	maxBaseOffset = 0xfff // largest base-relative displacement
)

// An Encoding is the pass 2 result for one statement: the record kind it
// contributes to, the addressing bits and displacement of an instruction,
// and the payload.
type Encoding struct {
	Kind  RecordKind // zero when the statement produces no record
	Flags isa.Flags  // n i x b p e bits of a format 3 or 4 instruction
	Disp  int        // displacement, address or register field
	Data  []byte     // object code of a text record
	Body  string     // payload of a header, define or refer record
}

// A Modification asks the loader to add or subtract the address of an
// external symbol at a location of the section.
type Modification struct {
	Addr   int    // address of the field to modify
	Width  int    // length of the field in half-bytes (5 or 6)
	Sign   byte   // '+' or '-'
	Symbol string // external symbol name
}

func (m Modification) String() string {
	return fmt.Sprintf("%c%s%02X%c%s", ModRecord, hexAddr(m.Addr, 6), m.Width, m.Sign, m.Symbol)
}

// The base register value established by the BASE directive.
type baseRegister struct {
	addr  int
	valid bool
}

// Assemble an instruction's bytes from its opcode, addressing bits and
// displacement. The displacement is truncated to the width of its field.
func encodeInstruction(inst *isa.Instruction, size int, flags isa.Flags, disp int) []byte {
	op := int(inst.Opcode)
	var v int
	switch size {
	case 1:
		v = op
	case 2:
		v = (op<<4|int(flags))<<4 | disp&0xff
	case 3:
		v = (op<<4|int(flags))<<12 | disp&0xfff
	default:
		v = (op<<4|int(flags))<<20 | disp&0xfffff
	}
	return toBytes(size, v)
}

// Compute the addressing flags, displacement and modification record for
// an instruction statement. A nil modification means the operand was
// resolved within the section.
func (a *assembler) addressing(sec *Section, st *Statement, inst *isa.Instruction) (flags isa.Flags, disp int, mod *Modification) {
	switch inst.Format {
	case 1:
		if len(st.Operands) > 0 {
			sec.addError(st.operandPos(0), "%s takes no operands", inst.Name)
		}
		return 0, 0, nil
	case 2:
		return 0, a.registerOperands(sec, st, inst), nil
	}

	flags = isa.FlagN | isa.FlagI
	if st.Size == 4 {
		flags |= isa.FlagE
	}

	switch {
	case len(st.Operands) > 2:
		sec.addError(st.operandPos(2), "too many operands")
	case len(st.Operands) == 2:
		if strings.EqualFold(st.operand(1), "X") {
			flags |= isa.FlagX
		} else {
			sec.addError(st.operandPos(1), "invalid index register '%s'", st.operand(1))
		}
	}

	operand, pos := st.operand(0), st.operandPos(0)
	switch {
	case operand == "" && inst.Operands > 0:
		sec.addError(st.operator, "%s requires an operand", inst.Name)
		return flags, 0, nil
	case operand == "":
		return flags, 0, nil
	case inst.Operands == 0:
		sec.addError(pos, "%s takes no operands", inst.Name)
		return flags, 0, nil
	}

	switch operand[0] {
	case '#':
		flags &^= isa.FlagN
		v, ok := parseConstant(pos.consume(1))
		if !ok && !strings.HasPrefix(operand[1:], "=") {
			// A local symbol is loaded as its absolute address.
			v, ok = sec.Symbols.Lookup(operand[1:])
		}
		if !ok {
			sec.addError(pos, "invalid immediate operand '%s'", operand)
			return flags, 0, nil
		}
		if !fitsField(v, st.Size) {
			sec.addError(pos, "immediate value %d does not fit a format %d instruction", v, st.Size)
		}
		return flags, v, nil
	case '@':
		flags &^= isa.FlagI
		operand, pos = operand[1:], pos.consume(1)
	}

	target, ok := sec.resolve(operand)
	if !ok {
		a.checkExternal(sec, pos, operand)
		return flags, 0, &Modification{Addr: st.Addr + 1, Width: 5, Sign: '+', Symbol: operand}
	}

	offset := target - (st.Addr + st.Size)
	if offset >= -maxPCOffset && offset <= maxPCOffset {
		return flags | isa.FlagP, offset, nil
	}

	flags |= isa.FlagB
	switch {
	case !sec.base.valid:
		a.warnOrError(sec, pos, "'%s' is out of PC-relative range and no BASE is in effect", operand)
	case target-sec.base.addr < 0 || target-sec.base.addr > maxBaseOffset:
		a.warnOrError(sec, pos, "'%s' is out of range of the base register", operand)
	default:
		disp = target - sec.base.addr
	}
	return flags, disp, nil
}

// Return true if v fits the displacement field of an instruction of the
// given size, either as an unsigned or a two's complement value.
func fitsField(v, size int) bool {
	bits := 12
	if size == 4 {
		bits = 20
	}
	return v >= -(1<<(bits-1)) && v < 1<<bits
}

// Pack the register operands of a format 2 instruction into its second
// byte. SVC takes a number, and the shift count of SHIFTL and SHIFTR is
// stored minus one.
func (a *assembler) registerOperands(sec *Section, st *Statement, inst *isa.Instruction) int {
	if len(st.Operands) != inst.Operands {
		sec.addError(st.operator, "%s expects %d operands, found %d", inst.Name, inst.Operands, len(st.Operands))
		return 0
	}

	disp := 0
	for i := range st.Operands {
		var field int
		pos := st.operandPos(i)
		switch {
		case inst.Name == "SVC":
			n, ok := parseConstant(pos)
			if !ok || n < 0 || n > 15 {
				sec.addError(pos, "invalid interrupt number '%s'", pos.str)
			}
			field = n
		case i == 1 && (inst.Name == "SHIFTL" || inst.Name == "SHIFTR"):
			n, ok := parseConstant(pos)
			if !ok || n < 1 || n > 16 {
				sec.addError(pos, "invalid shift count '%s'", pos.str)
			}
			field = n - 1
		default:
			code, ok := isa.Register(pos.str)
			if !ok {
				sec.addError(pos, "invalid register '%s'", pos.str)
			}
			field = int(code)
		}
		disp |= (field & 0xf) << (4 * (1 - i))
	}
	return disp
}

// Report an operand that is neither a local symbol nor a placed literal.
// Names declared by EXTREF are expected; anything else is an error in
// strict mode and a warning otherwise.
func (a *assembler) checkExternal(sec *Section, pos fstring, name string) {
	if sec.externals[name] {
		return
	}
	if strings.HasPrefix(name, "=") {
		sec.addError(pos, "literal '%s' was never placed", name)
		return
	}
	a.warnOrError(sec, pos, "'%s' is not defined in section '%s' or declared by EXTREF", name, sec.Name)
}

func (a *assembler) warnOrError(sec *Section, pos fstring, format string, args ...any) {
	if a.options&Strict != 0 {
		sec.addError(pos, format, args...)
		return
	}
	glog.Warningf("%s:%d: %s", a.filename, pos.row, fmt.Sprintf(format, args...))
}
