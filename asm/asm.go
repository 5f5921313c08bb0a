// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package asm implements a two-pass SIC/XE assembler producing object
// programs made of header, define, refer, text, modification and end
// records.
package asm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/beevik/sicxe/isa"
	"github.com/golang/glog"
	"golang.org/x/sync/errgroup"
)

var (
	errParse = errors.New("parse error")
)

type directiveData struct {
	assign   func(a *assembler, sec *Section, st *Statement, param int) int // pass 1 size
	generate func(a *assembler, sec *Section, st *Statement) Encoding       // pass 2 output
	param    int
}

var directives = map[string]directiveData{
	"START":  {generate: (*assembler).generateHeader},
	"CSECT":  {generate: (*assembler).generateHeader},
	"EXTDEF": {generate: (*assembler).generateDefine},
	"EXTREF": {assign: (*assembler).assignRefer, generate: (*assembler).generateRefer},
	"RESW":   {assign: (*assembler).assignReserve, param: 3},
	"RESB":   {assign: (*assembler).assignReserve, param: 1},
	"WORD":   {assign: (*assembler).assignWord, generate: (*assembler).generateWord},
	"BYTE":   {assign: (*assembler).assignByte, generate: (*assembler).generateByte},
	"EQU":    {assign: (*assembler).assignEquate},
	"LTORG":  {generate: (*assembler).generatePool},
	"END":    {generate: (*assembler).generatePool},
	"BASE":   {generate: (*assembler).generateBase},
	"NOBASE": {generate: (*assembler).generateNoBase},
}

// An asmerror describes an error encountered during assembly.
type asmerror struct {
	line fstring // line causing the error
	msg  string  // error message
}

// The assembler is a state object used during the assembly of
// object records from assembly code.
type assembler struct {
	instSet  *isa.InstructionSet // instruction catalog
	r        io.Reader           // the reader passed to Assemble
	filename string              // name used in error messages
	options  Option              // assembly options
	sections []*Section          // control sections in source order
	errors   []asmerror          // errors encountered during assembly
}

// Assembly contains the control sections produced by the assembler and
// the errors encountered while producing them.
type Assembly struct {
	Sections []*Section // Assembled control sections
	Errors   []string   // Errors encountered during assembly
}

// Option type used by the Assemble function.
type Option uint

// Options for the Assemble function.
const (
	Verbose  Option = 1 << iota // log every pass and statement
	Strict                      // reject undeclared external references
	Parallel                    // process control sections concurrently
)

// Files names the outputs written by AssembleFile. An empty name skips
// the corresponding output.
type Files struct {
	Symbols   string // symbol table listing
	Literals  string // literal table listing
	Object    string // object program
	SourceMap string // JSON source map
}

// DefaultFiles returns output names derived from a source path by
// replacing its extension.
func DefaultFiles(path string) Files {
	ext := filepath.Ext(path)
	prefix := path[:len(path)-len(ext)]
	return Files{
		Symbols:   prefix + ".sym",
		Literals:  prefix + ".lit",
		Object:    prefix + ".obj",
		SourceMap: prefix + ".map",
	}
}

// AssembleFile reads a file containing SIC/XE assembly code, assembles
// it, and writes the listings, object program and source map named by
// files.
func AssembleFile(path string, files Files, set *isa.InstructionSet, options Option, out io.Writer) error {
	inFile, err := os.Open(path)
	if err != nil {
		return err
	}
	defer inFile.Close()

	assembly, sourceMap, err := Assemble(inFile, path, set, options)
	if err != nil {
		for _, e := range assembly.Errors {
			fmt.Fprintln(out, e)
		}
		return err
	}

	outputs := []struct {
		path string
		w    io.WriterTo
	}{
		{files.Symbols, writerFunc(assembly.WriteSymbols)},
		{files.Literals, writerFunc(assembly.WriteLiterals)},
		{files.Object, assembly},
		{files.SourceMap, sourceMap},
	}

	var written []string
	for _, o := range outputs {
		if o.path == "" {
			continue
		}
		if err := writeFile(o.path, o.w); err != nil {
			return err
		}
		written = append(written, "'"+filepath.Base(o.path)+"'")
	}

	fmt.Fprintf(out, "Assembled '%s' to produce %s.\n",
		filepath.Base(path), strings.Join(written, ", "))
	return nil
}

type writerFunc func(w io.Writer) (int64, error)

func (f writerFunc) WriteTo(w io.Writer) (int64, error) {
	return f(w)
}

func writeFile(path string, wt io.WriterTo) error {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	_, err = wt.WriteTo(file)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// Assemble reads data from the provided stream and attempts to assemble
// it into SIC/XE object records. A nil instruction set selects the
// built-in catalog.
func Assemble(r io.Reader, filename string, set *isa.InstructionSet, options Option) (*Assembly, *SourceMap, error) {
	if set == nil {
		set = isa.Default()
	}

	a := &assembler{
		instSet:  set,
		r:        r,
		filename: filename,
		options:  options,
	}

	// Assembly consists of the following steps
	steps := []func(a *assembler) error{
		(*assembler).parse,           // Split the source into control sections
		(*assembler).assignAddresses, // Pass 1: addresses, symbols and literals
		(*assembler).resolveEntry,    // Resolve the END statement's operand
		(*assembler).generateCode,    // Pass 2: instruction and data encodings
	}

	// Execute assembler steps, breaking if an error is encountered
	// in any one of them.
	var err error
	for _, step := range steps {
		err = step(a)
		if err != nil {
			break
		}
		if len(a.errors) > 0 {
			err = errParse
			break
		}
	}

	errors := make([]string, 0, len(a.errors))
	for _, e := range a.errors {
		s := fmt.Sprintf("Syntax error in '%s' line %d, col %d: %s", a.filename, e.line.row, e.line.column+1, e.msg)
		errors = append(errors, s)
	}

	assembly := &Assembly{
		Sections: a.sections,
		Errors:   errors,
	}

	return assembly, newSourceMap(filename, a.sections), err
}

// Read the assembly code and split its statements into control
// sections. Every statement must follow a START or CSECT.
func (a *assembler) parse() error {
	a.logSection("Parsing assembly code")

	scanner := bufio.NewScanner(a.r)
	row := 0
	for scanner.Scan() {
		row++
		line := newFstring(row, scanner.Text())
		st, ok := tokenize(line)
		if !ok {
			continue
		}

		switch st.op() {
		case "START", "CSECT":
			if st.Label == "" {
				a.addError(st.operator, "%s requires a label", st.op())
			}
			a.sections = append(a.sections, newSection(st.Label, st.op() == "START"))
		}

		if len(a.sections) == 0 {
			a.addError(line, "statement outside of a control section")
			continue
		}

		sec := a.sections[len(a.sections)-1]
		sec.Statements = append(sec.Statements, st)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading %s: %w", a.filename, err)
	}
	a.log("parsed %d control sections", len(a.sections))
	return nil
}

// Run fn on every control section, concurrently when the Parallel
// option is set. Errors recorded by the sections are gathered into the
// assembler's error state in section order.
func (a *assembler) forEachSection(fn func(a *assembler, sec *Section) error) error {
	var err error
	if a.options&Parallel == 0 {
		for _, sec := range a.sections {
			if err = fn(a, sec); err != nil {
				break
			}
		}
	} else {
		var g errgroup.Group
		for _, sec := range a.sections {
			sec := sec
			g.Go(func() error {
				return fn(a, sec)
			})
		}
		err = g.Wait()
	}

	for _, sec := range a.sections {
		a.errors = append(a.errors, sec.errors...)
		sec.errors = nil
	}
	return err
}

// Locate the END statement and resolve its operand against the symbols
// of the START section to obtain the program's entry address.
func (a *assembler) resolveEntry() error {
	var end *Statement
	for _, sec := range a.sections {
		for _, st := range sec.Statements {
			if end == nil && st.op() == "END" {
				end = st
			}
		}
	}

	if end == nil {
		glog.Warningf("%s: no END statement", a.filename)
		return nil
	}

	name := end.operand(0)
	if name == "" {
		return nil
	}

	for _, sec := range a.sections {
		if !sec.Start {
			continue
		}
		addr, ok := sec.Symbols.Lookup(name)
		if !ok {
			if a.options&Strict != 0 {
				a.addError(end.operandPos(0), "entry point '%s' is not defined in section '%s'", name, sec.Name)
			} else {
				glog.Warningf("%s:%d: entry point '%s' is not defined in section '%s'", a.filename, end.Row, name, sec.Name)
			}
			continue
		}
		sec.Entry = addr
		a.log("section %s entry point %s = %06X", sec.Name, name, addr)
	}
	return nil
}

// Append an error message to the assembler's error state.
func (a *assembler) addError(l fstring, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	a.errors = append(a.errors, asmerror{l, msg})
	if a.options&Verbose != 0 {
		glog.Infof("Syntax error in '%s' line %d, col %d: %s", a.filename, l.row, l.column+1, msg)
	}
}

// Emit a log message at the requested verbosity, or unconditionally in
// verbose mode.
func (a *assembler) infof(level glog.Level, format string, args ...any) {
	if a.options&Verbose != 0 {
		glog.Infof(format, args...)
	} else {
		glog.V(level).Infof(format, args...)
	}
}

func (a *assembler) log(format string, args ...any) {
	a.infof(2, format, args...)
}

// Log a string and its associated line of assembly code.
func (a *assembler) logLine(st *Statement, format string, args ...any) {
	detail := fmt.Sprintf(format, args...)
	a.infof(2, "%-4d | %-28s | %s", st.Row, detail, st.operator.full)
}

// Log a section header.
func (a *assembler) logSection(name string) {
	a.infof(1, "-- %s --", name)
}
