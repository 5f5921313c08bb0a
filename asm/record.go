// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"bufio"
	"fmt"
	"io"
)

// RecordKind identifies an object program record by its leading
// character.
type RecordKind byte

// Object program record kinds.
const (
	HeaderRecord RecordKind = 'H'
	DefineRecord RecordKind = 'D'
	ReferRecord  RecordKind = 'R'
	TextRecord   RecordKind = 'T'
	ModRecord    RecordKind = 'M'
	EndRecord    RecordKind = 'E'
)

// Maximum number of object code bytes in one text record.
const maxTextLen = 0x1e

// A textRun accumulates contiguous object code for one text record.
type textRun struct {
	addr int
	data []byte
}

// Records returns the object program lines of the section in order:
// header, define and refer records, text records, modification records
// and the end record.
func (s *Section) Records() []string {
	var lines []string
	var run textRun

	flush := func() {
		if len(run.data) > 0 {
			lines = append(lines, fmt.Sprintf("%c%s%02X%s",
				TextRecord, hexAddr(run.addr, 6), len(run.data), byteString(run.data)))
		}
		run = textRun{}
	}

	appendText := func(addr int, data []byte) {
		if len(run.data) > 0 && (addr != run.addr+len(run.data) || len(run.data)+len(data) > maxTextLen) {
			flush()
		}
		if len(run.data) == 0 {
			run.addr = addr
		}
		// Payloads longer than a record are split across records.
		for len(run.data)+len(data) > maxTextLen {
			n := maxTextLen - len(run.data)
			run.data = append(run.data, data[:n]...)
			data, addr = data[n:], addr+n
			flush()
			run.addr = addr
		}
		run.data = append(run.data, data...)
	}

	for i, enc := range s.Encodings {
		switch enc.Kind {
		case 0:
			continue
		case TextRecord:
			appendText(s.Statements[i].Addr, enc.Data)
		default:
			flush()
			lines = append(lines, fmt.Sprintf("%c%s", enc.Kind, enc.Body))
		}
	}

	if s.Tail.Kind == TextRecord && len(s.tailPool) > 0 {
		appendText(s.tailPool[0].Addr, s.Tail.Data)
	}
	flush()

	for _, m := range s.Mods {
		lines = append(lines, m.String())
	}

	if s.Start {
		lines = append(lines, fmt.Sprintf("%c%s", EndRecord, hexAddr(s.Entry, 6)))
	} else {
		lines = append(lines, fmt.Sprintf("%c", EndRecord))
	}
	return lines
}

// WriteTo writes the object program of every section, separating
// sections with a blank line.
func (a *Assembly) WriteTo(w io.Writer) (n int64, err error) {
	return writeBlocks(w, a.Sections, func(bw *bufio.Writer, sec *Section) {
		for _, line := range sec.Records() {
			fmt.Fprintln(bw, line)
		}
	})
}

// WriteSymbols writes the symbol table listing of every section. Each
// line holds a name padded to six characters, a tab and a four-digit
// hexadecimal address.
func (a *Assembly) WriteSymbols(w io.Writer) (n int64, err error) {
	return writeBlocks(w, a.Sections, func(bw *bufio.Writer, sec *Section) {
		for _, sym := range sec.Symbols.Symbols() {
			fmt.Fprintf(bw, "%s\t%s\n", name6(sym.Name), hexAddr(sym.Addr, 4))
		}
	})
}

// WriteLiterals writes the literal table listing of every section in the
// same layout as the symbol listing.
func (a *Assembly) WriteLiterals(w io.Writer) (n int64, err error) {
	return writeBlocks(w, a.Sections, func(bw *bufio.Writer, sec *Section) {
		for _, l := range sec.Literals.Literals() {
			fmt.Fprintf(bw, "%-6s\t%s\n", l.Text, hexAddr(l.Addr, 4))
		}
	})
}

// Write one block per section, each followed by a blank line.
func writeBlocks(w io.Writer, sections []*Section, fn func(bw *bufio.Writer, sec *Section)) (int64, error) {
	cw := &countingWriter{w: w}
	bw := bufio.NewWriter(cw)
	for _, sec := range sections {
		fn(bw, sec)
		fmt.Fprintln(bw)
	}
	err := bw.Flush()
	return cw.n, err
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
