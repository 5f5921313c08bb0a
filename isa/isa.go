// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package isa describes the SIC/XE instruction catalog and register file.
package isa

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
)

//go:embed inst.data
var defaultCatalog string

// An Instruction describes a machine instruction, including its name, its
// base format, its opcode value and the number of operands it expects.
type Instruction struct {
	Name     string // all-caps name of the instruction
	Format   int    // base format: 1, 2 or 3 (format 4 is an extended 3)
	Opcode   byte   // opcode value with the low two bits clear
	Operands int    // number of operands the instruction expects
}

// Size returns the encoded length of the instruction in bytes. Extended
// instructions are one byte longer than their format 3 counterparts.
func (i *Instruction) Size(extended bool) int {
	if extended && i.Format == 3 {
		return 4
	}
	return i.Format
}

// An InstructionSet is a read-only catalog of instructions. It may be
// shared by concurrent assemblies once loaded.
type InstructionSet struct {
	instructions []*Instruction          // in catalog order
	variants     map[string]*Instruction // by name
	opcodes      map[byte]*Instruction   // by opcode
}

// GetInstruction returns the instruction whose name matches the provided
// string, or nil if the catalog does not contain it.
func (s *InstructionSet) GetInstruction(name string) *Instruction {
	return s.variants[strings.ToUpper(name)]
}

// Lookup retrieves the instruction corresponding to the requested opcode.
// The addressing bits of a format 3 opcode byte are ignored.
func (s *InstructionSet) Lookup(opcode byte) *Instruction {
	return s.opcodes[opcode&0xfc]
}

// Instructions returns every instruction in the order it was read from
// the catalog.
func (s *InstructionSet) Instructions() []*Instruction {
	return s.instructions
}

// Load parses an instruction catalog. Each non-blank line holds four
// whitespace-separated fields: name, format, hexadecimal opcode and
// operand count. Lines starting with '#' are ignored.
func Load(r io.Reader) (*InstructionSet, error) {
	set := &InstructionSet{
		variants: make(map[string]*Instruction),
		opcodes:  make(map[byte]*Instruction),
	}

	scanner := bufio.NewScanner(r)
	row := 0
	for scanner.Scan() {
		row++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}

		inst, err := parseInstruction(line)
		if err != nil {
			return nil, fmt.Errorf("catalog line %d: %w", row, err)
		}
		if _, dup := set.variants[inst.Name]; dup {
			return nil, fmt.Errorf("catalog line %d: instruction '%s' defined more than once", row, inst.Name)
		}

		set.instructions = append(set.instructions, inst)
		set.variants[inst.Name] = inst
		if _, seen := set.opcodes[inst.Opcode]; !seen {
			set.opcodes[inst.Opcode] = inst
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(set.instructions) == 0 {
		return nil, fmt.Errorf("catalog contains no instructions")
	}
	return set, nil
}

func parseInstruction(line string) (*Instruction, error) {
	fields := strings.Fields(line)
	if len(fields) != 4 {
		return nil, fmt.Errorf("expected 4 fields, found %d", len(fields))
	}

	// "3/4" is accepted as an alias for format 3.
	format, err := strconv.Atoi(strings.TrimSuffix(fields[1], "/4"))
	if err != nil || format < 1 || format > 3 {
		return nil, fmt.Errorf("invalid format '%s'", fields[1])
	}

	opcode, err := strconv.ParseUint(fields[2], 16, 8)
	if err != nil {
		return nil, fmt.Errorf("invalid opcode '%s'", fields[2])
	}

	operands, err := strconv.Atoi(fields[3])
	if err != nil || operands < 0 || operands > 2 {
		return nil, fmt.Errorf("invalid operand count '%s'", fields[3])
	}

	return &Instruction{
		Name:     strings.ToUpper(fields[0]),
		Format:   format,
		Opcode:   byte(opcode),
		Operands: operands,
	}, nil
}

// LoadFile reads an instruction catalog from a file.
func LoadFile(path string) (*InstructionSet, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	set, err := Load(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return set, nil
}

var defaultSet = sync.OnceValue(func() *InstructionSet {
	set, err := Load(strings.NewReader(defaultCatalog))
	if err != nil {
		panic("isa: bad built-in catalog: " + err.Error())
	}
	return set
})

// Default returns the built-in SIC/XE instruction catalog.
func Default() *InstructionSet {
	return defaultSet()
}
