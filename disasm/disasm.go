// Copyright 2014 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package disasm implements a SIC/XE instruction set
// disassembler.
package disasm

import (
	"fmt"

	"github.com/beevik/sicxe/isa"
)

// Disassemble the object code at the start of 'code', which is loaded at
// address 'addr'. Return a 'line' string representing the disassembled
// instruction and a 'next' address that starts the following instruction.
// Bytes that do not decode to an instruction are shown as BYTE constants.
func Disassemble(set *isa.InstructionSet, code []byte, addr int) (line string, next int) {
	if len(code) == 0 {
		return "", addr
	}

	inst := set.Lookup(code[0])
	if inst == nil || len(code) < inst.Format {
		return unknown(code[0], addr)
	}

	switch inst.Format {
	case 1:
		return inst.Name, addr + 1
	case 2:
		return inst.Name + registerOperands(inst, code[1]), addr + 2
	}

	flags := isa.Flags(code[0]&3)<<4 | isa.Flags(code[1]>>4)
	size := 3
	disp := int(code[1]&0xf)<<8 | int(code[2])
	if flags&isa.FlagE != 0 {
		if len(code) < 4 {
			return unknown(code[0], addr)
		}
		size = 4
		disp = disp<<8 | int(code[3])
	}

	name := inst.Name
	if size == 4 {
		name = "+" + name
	}
	if inst.Operands == 0 {
		return name, addr + size
	}

	var prefix string
	switch flags & (isa.FlagN | isa.FlagI) {
	case isa.FlagI:
		prefix = "#"
	case isa.FlagN:
		prefix = "@"
	}

	var operand string
	switch {
	case flags&isa.FlagP != 0:
		if size == 3 && disp&0x800 != 0 {
			disp -= 0x1000
		}
		operand = fmt.Sprintf("%04X", addr+size+disp)
	case flags&isa.FlagB != 0:
		operand = fmt.Sprintf("(B)+%03X", disp)
	case prefix == "#":
		operand = fmt.Sprintf("%d", disp)
	case size == 4:
		operand = fmt.Sprintf("%05X", disp)
	default:
		operand = fmt.Sprintf("%04X", disp)
	}

	if flags&isa.FlagX != 0 {
		operand += ",X"
	}

	line = fmt.Sprintf("%s %s%s", name, prefix, operand)
	return line, addr + size
}

func unknown(b byte, addr int) (line string, next int) {
	return fmt.Sprintf("BYTE X'%02X'", b), addr + 1
}

// Format the register operands packed into the second byte of a format 2
// instruction.
func registerOperands(inst *isa.Instruction, b byte) string {
	r1, r2 := b>>4, b&0xf
	switch {
	case inst.Operands == 0:
		return ""
	case inst.Name == "SVC":
		return fmt.Sprintf(" %d", r1)
	case inst.Operands == 1:
		return " " + registerName(r1)
	case inst.Name == "SHIFTL" || inst.Name == "SHIFTR":
		return fmt.Sprintf(" %s,%d", registerName(r1), r2+1)
	default:
		return fmt.Sprintf(" %s,%s", registerName(r1), registerName(r2))
	}
}

func registerName(code byte) string {
	if name := isa.RegisterName(code); name != "" {
		return name
	}
	return fmt.Sprintf("R%d", code)
}
