// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func source(lines ...string) string {
	return strings.Join(lines, "\n") + "\n"
}

func assemble(code string, options Option) (*Assembly, *SourceMap, error) {
	return Assemble(strings.NewReader(code), "test", nil, options)
}

func objectString(t *testing.T, assembly *Assembly) string {
	var b bytes.Buffer
	if _, err := assembly.WriteTo(&b); err != nil {
		t.Fatal(err)
	}
	return b.String()
}

func checkObject(t *testing.T, asm string, options Option, expected string) *Assembly {
	assembly, _, err := assemble(asm, options)
	if err != nil {
		t.Error(err)
		for _, e := range assembly.Errors {
			t.Error(e)
		}
		return assembly
	}

	s := objectString(t, assembly)
	if s != expected {
		t.Error("object program doesn't match expected")
		t.Errorf("got:\n%s", s)
		t.Errorf("exp:\n%s", expected)
	}
	return assembly
}

func checkASMError(t *testing.T, asm string, options Option, msg string) {
	assembly, _, err := assemble(asm, options)
	if err == nil {
		t.Errorf("Expected error on %q, didn't get one", asm)
		return
	}
	if err != errParse {
		t.Errorf("Expected '%v', got '%v'", errParse, err)
	}
	for _, e := range assembly.Errors {
		if strings.Contains(e, msg) {
			return
		}
	}
	t.Errorf("Expected an error containing '%s', got %v", msg, assembly.Errors)
}

var copyProgram = []string{
	"COPY\tSTART\t0",
	"\tEXTDEF\tBUFFER,BUFEND,LENGTH",
	"\tEXTREF\tRDREC,WRREC",
	"FIRST\tSTL\tRETADR",
	"CLOOP\t+JSUB\tRDREC",
	"\tLDA\tLENGTH",
	"\tCOMP\t#0",
	"\tJEQ\tENDFIL",
	"\t+JSUB\tWRREC",
	"\tJ\tCLOOP",
	"ENDFIL\tLDA\t=C'EOF'",
	"\tSTA\tBUFFER",
	"\tLDA\t#3",
	"\tSTA\tLENGTH",
	"\t+JSUB\tWRREC",
	"\tJ\t@RETADR",
	"RETADR\tRESW\t1",
	"LENGTH\tRESW\t1",
	"\tLTORG",
	"BUFFER\tRESB\t4096",
	"BUFEND\tEQU\t*",
	"MAXLEN\tEQU\tBUFEND-BUFFER",
	"RDREC\tCSECT",
	".",
	".\tSUBROUTINE TO READ RECORD INTO BUFFER",
	".",
	"\tEXTREF\tBUFFER,LENGTH,BUFEND",
	"\tCLEAR\tX",
	"\tCLEAR\tA",
	"\tCLEAR\tS",
	"\tLDT\tMAXLEN",
	"RLOOP\tTD\tINPUT",
	"\tJEQ\tRLOOP",
	"\tRD\tINPUT",
	"\tCOMPR\tA,S",
	"\tJEQ\tEXIT",
	"\t+STCH\tBUFFER,X",
	"\tTIXR\tT",
	"\tJLT\tRLOOP",
	"EXIT\t+STX\tLENGTH",
	"\tRSUB",
	"INPUT\tBYTE\tX'F1'",
	"MAXLEN\tWORD\tBUFEND-BUFFER",
	"WRREC\tCSECT",
	".",
	".\tSUBROUTINE TO WRITE RECORD FROM BUFFER",
	".",
	"\tEXTREF\tLENGTH,BUFFER",
	"\tCLEAR\tX",
	"\t+LDT\tLENGTH",
	"WLOOP\tTD\t=X'05'",
	"\tJEQ\tWLOOP",
	"\t+LDCH\tBUFFER,X",
	"\tWD\t=X'05'",
	"\tTIXR\tT",
	"\tJLT\tWLOOP",
	"\tRSUB",
	"\tEND\tFIRST",
}

var copyObject = source(
	"HCOPY  000000001033",
	"DBUFFER000033BUFEND001033LENGTH00002D",
	"RRDREC WRREC ",
	"T0000001D1720274B1000000320232900003320074B1000003F2FEC0320160F2016",
	"T00001D0D0100030F200A4B1000003E2000",
	"T00003003454F46",
	"M00000405+RDREC",
	"M00001105+WRREC",
	"M00002405+WRREC",
	"E000000",
	"",
	"HRDREC 00000000002B",
	"RBUFFERLENGTHBUFEND",
	"T0000001DB410B400B44077201FE3201B332FFADB2015A00433200957900000B850",
	"T00001D0E3B2FE9131000004F0000F1000000",
	"M00001805+BUFFER",
	"M00002105+LENGTH",
	"M00002806+BUFEND",
	"M00002806-BUFFER",
	"E",
	"",
	"HWRREC 00000000001C",
	"RLENGTHBUFFER",
	"T0000001CB41077100000E32012332FFA53900000DF2008B8503B2FEE4F000005",
	"M00000305+LENGTH",
	"M00000D05+BUFFER",
	"E",
	"",
)

func TestControlSections(t *testing.T) {
	checkObject(t, source(copyProgram...), 0, copyObject)
}

func TestControlSectionsParallel(t *testing.T) {
	checkObject(t, source(copyProgram...), Parallel, copyObject)
}

func TestSymbolListing(t *testing.T) {
	assembly, _, err := assemble(source(copyProgram...), 0)
	if err != nil {
		t.Fatal(err)
	}

	var b bytes.Buffer
	assembly.WriteSymbols(&b)
	expected := source(
		"COPY  \t0000",
		"FIRST \t0000",
		"CLOOP \t0003",
		"ENDFIL\t0017",
		"RETADR\t002A",
		"LENGTH\t002D",
		"BUFFER\t0033",
		"BUFEND\t1033",
		"MAXLEN\t1000",
		"",
		"RDREC \t0000",
		"RLOOP \t0009",
		"EXIT  \t0020",
		"INPUT \t0027",
		"MAXLEN\t0028",
		"",
		"WRREC \t0000",
		"WLOOP \t0006",
		"",
	)
	if b.String() != expected {
		t.Errorf("got:\n%s\nexp:\n%s", b.String(), expected)
	}
}

func TestLiteralListing(t *testing.T) {
	assembly, _, err := assemble(source(copyProgram...), 0)
	if err != nil {
		t.Fatal(err)
	}

	var b bytes.Buffer
	assembly.WriteLiterals(&b)
	expected := "EOF   \t0030\n\n\n05    \t001B\n\n"
	if b.String() != expected {
		t.Errorf("got %q, exp %q", b.String(), expected)
	}
}

func TestSectionLengths(t *testing.T) {
	assembly, _, err := assemble(source(copyProgram...), 0)
	if err != nil {
		t.Fatal(err)
	}

	lengths := map[string]int{"COPY": 0x1033, "RDREC": 0x2b, "WRREC": 0x1c}
	if len(assembly.Sections) != 3 {
		t.Fatalf("got %d sections, want 3", len(assembly.Sections))
	}
	for _, sec := range assembly.Sections {
		if sec.Length != lengths[sec.Name] {
			t.Errorf("%s: length %04X, want %04X", sec.Name, sec.Length, lengths[sec.Name])
		}
	}
}

func TestTextMerge(t *testing.T) {
	asm := source(
		"PROG\tSTART\t0",
		"\tRESB\t16",
		"\tLDA\t#1",
		"\tLDA\t#2",
	)
	checkObject(t, asm, 0, source(
		"HPROG  000000000016",
		"T00001006010001010002",
		"E000000",
		"",
	))
}

func TestTextSplit(t *testing.T) {
	asm := source(
		"PROG\tSTART\t0",
		"\tBYTE\tX'"+strings.Repeat("AB", 40)+"'",
		"\tRSUB",
	)
	checkObject(t, asm, 0, source(
		"HPROG  00000000002B",
		"T0000001E"+strings.Repeat("AB", 30),
		"T00001E0D"+strings.Repeat("AB", 10)+"4F0000",
		"E000000",
		"",
	))
}

func TestEquateHere(t *testing.T) {
	asm := source(
		"PROG\tSTART\t0",
		"\tRESB\t32",
		"HERE\tEQU\t*",
		"SIZE\tEQU\tHERE-PROG",
		"LATER\tEQU\tUNKNOWN",
		"\tEND",
	)
	assembly, _, err := assemble(asm, 0)
	if err != nil {
		t.Fatal(err)
	}

	syms := assembly.Sections[0].Symbols
	for name, want := range map[string]int{"HERE": 0x20, "SIZE": 0x20, "LATER": 0} {
		addr, ok := syms.Lookup(name)
		if !ok || addr != want {
			t.Errorf("%s = %04X, %v; want %04X", name, addr, ok, want)
		}
	}
}

func TestUnresolvedExtended(t *testing.T) {
	asm := source(
		"PROG\tSTART\t0",
		"\tEXTREF\tNAME",
		"\tRESB\t5",
		"\t+JSUB\tNAME",
	)
	assembly := checkObject(t, asm, 0, source(
		"HPROG  000000000009",
		"RNAME  ",
		"T000005044B100000",
		"M00000605+NAME",
		"E000000",
		"",
	))

	enc := assembly.Sections[0].Encodings[3]
	if enc.Flags.String() != "110001" || enc.Disp != 0 {
		t.Errorf("got flags %s disp %d", enc.Flags, enc.Disp)
	}
}

func TestLiteralPools(t *testing.T) {
	asm := source(
		"PROG\tSTART\t0",
		"\tLDA\t=C'A'",
		"\tLTORG",
		"\tLDA\t=X'0F'",
		"\tLDA\t=C'A'",
		"\tEND\tPROG",
	)
	assembly := checkObject(t, asm, 0, source(
		"HPROG  00000000000B",
		"T0000000B03200041032003032FF90F",
		"E000000",
		"",
	))

	var b bytes.Buffer
	assembly.WriteLiterals(&b)
	if s := b.String(); s != "A     \t0003\n0F    \t000A\n\n" {
		t.Errorf("got literal listing %q", s)
	}
}

func TestTrailingLiterals(t *testing.T) {
	asm := source(
		"PROG\tSTART\t0",
		"\tLDA\t=X'01'",
		"SUB\tCSECT",
		"\tRSUB",
	)
	checkObject(t, asm, 0, source(
		"HPROG  000000000004",
		"T0000000403200001",
		"E000000",
		"",
		"HSUB   000000000003",
		"T000000034F0000",
		"E",
		"",
	))
}

func TestBaseRelative(t *testing.T) {
	noBase := source(
		"PROG\tSTART\t0",
		"\tLDA\tFAR",
		"\tRESB\t4096",
		"FAR\tBYTE\tX'01'",
	)
	checkObject(t, noBase, 0, source(
		"HPROG  000000001004",
		"T00000003034000",
		"T0010030101",
		"E000000",
		"",
	))
	checkASMError(t, noBase, Strict, "no BASE is in effect")

	withBase := source(
		"PROG\tSTART\t0",
		"\tBASE\tTABLE",
		"\tLDA\tFAR",
		"\tRESB\t4096",
		"TABLE\tBYTE\tX'00'",
		"FAR\tBYTE\tX'01'",
	)
	checkObject(t, withBase, 0, source(
		"HPROG  000000001005",
		"T00000003034001",
		"T001003020001",
		"E000000",
		"",
	))

	noBaseAgain := source(
		"PROG\tSTART\t0",
		"\tBASE\tTABLE",
		"\tNOBASE",
		"\tLDA\tFAR",
		"\tRESB\t4096",
		"TABLE\tBYTE\tX'00'",
		"FAR\tBYTE\tX'01'",
	)
	checkASMError(t, noBaseAgain, Strict, "no BASE is in effect")
}

func TestPCRelativeBackward(t *testing.T) {
	asm := source(
		"PROG\tSTART\t0",
		"LOOP\tRESB\t2045",
		"\tJ\tLOOP",
	)
	// 0 - (2045 + 3) = -2048 is beyond the PC-relative range.
	checkObject(t, asm, 0, source(
		"HPROG  000000000800",
		"T0007FD033F4000",
		"E000000",
		"",
	))

	asm = source(
		"PROG\tSTART\t0",
		"LOOP\tRESB\t2044",
		"\tJ\tLOOP",
	)
	checkObject(t, asm, 0, source(
		"HPROG  0000000007FF",
		"T0007FC033F2801",
		"E000000",
		"",
	))
}

func TestImmediate(t *testing.T) {
	asm := source(
		"PROG\tSTART\t0",
		"\tLDA\t#3",
		"\t+LDA\t#4096",
		"\tLDA\t#0x10",
	)
	checkObject(t, asm, 0, source(
		"HPROG  00000000000A",
		"T0000000A01000301101000010010",
		"E000000",
		"",
	))

	// A local symbol loads its address, which pairs with BASE.
	asm = source(
		"PROG\tSTART\t0",
		"\tLDB\t#BUF",
		"\tBASE\tBUF",
		"\tLDA\tBUF",
		"\tRESB\t4000",
		"BUF\tRESB\t1",
	)
	checkObject(t, asm, 0, source(
		"HPROG  000000000FA7",
		"T00000006690FA6034000",
		"E000000",
		"",
	))

	checkASMError(t, source("PROG\tSTART\t0", "\tLDA\t#FOO"), 0, "invalid immediate operand '#FOO'")
	checkASMError(t, source("PROG\tSTART\t0", "\tLDA\t#5000"), 0, "does not fit")
}

func TestRegisterFormats(t *testing.T) {
	asm := source(
		"PROG\tSTART\t0",
		"\tCLEAR\tX",
		"\tCOMPR\tA,S",
		"\tSHIFTL\tT,4",
		"\tSVC\t2",
		"\tFIX",
		"\tRMO\tA,B",
	)
	checkObject(t, asm, 0, source(
		"HPROG  00000000000B",
		"T0000000BB410A004A453B020C4AC03",
		"E000000",
		"",
	))

	checkASMError(t, source("PROG\tSTART\t0", "\tCLEAR\tQ"), 0, "invalid register 'Q'")
	checkASMError(t, source("PROG\tSTART\t0", "\tCOMPR\tA"), 0, "COMPR expects 2 operands")
	checkASMError(t, source("PROG\tSTART\t0", "\t+CLEAR\tA"), 0, "has no extended format")
}

func TestWord(t *testing.T) {
	asm := source(
		"PROG\tSTART\t0",
		"\tWORD\t5",
		"\tWORD\t-1",
		"A\tWORD\tB-A",
		"B\tWORD\tA-B",
	)
	checkObject(t, asm, 0, source(
		"HPROG  00000000000C",
		"T0000000C000005FFFFFF000003FFFFFD",
		"E000000",
		"",
	))

	asm = source(
		"PROG\tSTART\t0",
		"\tEXTREF\tEXT",
		"\tWORD\tEXT+5",
	)
	checkObject(t, asm, 0, source(
		"HPROG  000000000003",
		"REXT   ",
		"T00000003000000",
		"M00000006+EXT",
		"E000000",
		"",
	))

	asm = source(
		"P\tSTART\t0",
		"\tEXTREF\tEXT",
		"\tRESB\t16",
		"LOC\tRESB\t1",
		"W\tWORD\tLOC-EXT",
		"\tEND",
	)
	checkObject(t, asm, 0, source(
		"HP     000000000014",
		"REXT   ",
		"T00001103000000",
		"M00001106-EXT",
		"E000000",
		"",
	))

	checkASMError(t, source("PROG\tSTART\t0", "\tEXTREF\tEXT", "\tWORD\tEXT*2"), 0, "unable to evaluate")
}

func TestStrict(t *testing.T) {
	asm := source(
		"PROG\tSTART\t0",
		"\tJSUB\tMISSING",
	)
	checkObject(t, asm, 0, source(
		"HPROG  000000000003",
		"T000000034B0000",
		"M00000105+MISSING",
		"E000000",
		"",
	))
	checkASMError(t, asm, Strict, "'MISSING' is not defined in section 'PROG'")
}

func TestEntryPoint(t *testing.T) {
	asm := source(
		"PROG\tSTART\t0",
		"\tRESB\t6",
		"MAIN\tRSUB",
		"\tEND\tMAIN",
	)
	checkObject(t, asm, 0, source(
		"HPROG  000000000009",
		"T000006034F0000",
		"E000006",
		"",
	))
	checkASMError(t, source("PROG\tSTART\t0", "\tRSUB", "\tEND\tNOWHERE"), Strict, "entry point 'NOWHERE'")
}

func TestLongNames(t *testing.T) {
	asm := source(
		"PROGRAMX\tSTART\t0",
		"\tEXTDEF\tLONGNAME",
		"LONGNAME\tRSUB",
	)
	checkObject(t, asm, 0, source(
		"HPROGRA000000000003",
		"DLONGNA000000",
		"T000000034F0000",
		"E000000",
		"",
	))
}

func TestErrors(t *testing.T) {
	checkASMError(t, source("PROG\tSTART\t0", "\tSTDX\tBUF"), 0, "invalid operator 'STDX'")
	checkASMError(t, source("\tLDA\t#1"), 0, "statement outside of a control section")
	checkASMError(t, source("PROG\tSTART\t0", "A\tRSUB", "A\tRSUB"), 0, "label 'A' used more than once")
	checkASMError(t, source("PROG\tSTART\t0", "\tRESW\tTEN"), 0, "invalid reservation count 'TEN'")
	checkASMError(t, source("PROG\tSTART\t0", "\tBYTE\tX'ABC'"), 0, "odd number of digits")
	checkASMError(t, source("PROG\tSTART\t0", "\tBYTE\tQ'AB'"), 0, "invalid constant")
	checkASMError(t, source("PROG\tSTART\t0", "\tEQU\t5"), 0, "EQU requires a label")
	checkASMError(t, source("PROG\tSTART\t0", "\tEXTDEF\tNOPE"), 0, "exported symbol 'NOPE' is not defined")
	checkASMError(t, source("PROG\tSTART\t0", "\tLDA\tBUF,Y"), 0, "invalid index register 'Y'")
	checkASMError(t, source("PROG\tSTART\t0", "\tRSUB\tBUF"), 0, "RSUB takes no operands")
}

func TestErrorPosition(t *testing.T) {
	assembly, _, err := assemble(source("PROG\tSTART\t0", "\tSTDX\tBUF"), 0)
	if err == nil {
		t.Fatal("expected an error")
	}
	want := "Syntax error in 'test' line 2, col 9: invalid operator 'STDX'"
	if len(assembly.Errors) != 1 || assembly.Errors[0] != want {
		t.Errorf("got %v, want %s", assembly.Errors, want)
	}
}

func TestSourceMap(t *testing.T) {
	_, sm, err := assemble(source(copyProgram...), 0)
	if err != nil {
		t.Fatal(err)
	}

	row := 0
	for i, line := range copyProgram {
		if strings.HasPrefix(line, "CLOOP") {
			row = i + 1
		}
	}
	if line := sm.Search("COPY", 0x03); line != row {
		t.Errorf("Search(COPY, 3) = %d, want %d", line, row)
	}
	if line := sm.Search("COPY", 0x04); line != -1 {
		t.Errorf("Search(COPY, 4) = %d, want -1", line)
	}

	var b bytes.Buffer
	if _, err := sm.WriteTo(&b); err != nil {
		t.Fatal(err)
	}
	var sm2 SourceMap
	if _, err := sm2.ReadFrom(&b); err != nil {
		t.Fatal(err)
	}
	if len(sm2.Sections) != 3 || len(sm2.Sections[0].Exports) != 3 {
		t.Fatalf("source map did not survive a round trip: %+v", sm2)
	}
	if e := sm2.Sections[0].Exports[0]; e.Label != "LENGTH" || e.Address != 0x2d {
		t.Errorf("first export = %+v", e)
	}
}

func TestAssembleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "copy.asm")
	if err := os.WriteFile(path, []byte(source(copyProgram...)), 0644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	files := DefaultFiles(path)
	if err := AssembleFile(path, files, nil, 0, &out); err != nil {
		t.Fatal(err)
	}

	obj, err := os.ReadFile(files.Object)
	if err != nil {
		t.Fatal(err)
	}
	if string(obj) != copyObject {
		t.Errorf("object file doesn't match expected:\n%s", obj)
	}
	for _, p := range []string{files.Symbols, files.Literals, files.SourceMap} {
		if _, err := os.Stat(p); err != nil {
			t.Error(err)
		}
	}
	if !strings.Contains(out.String(), "'copy.obj'") {
		t.Errorf("unexpected summary: %s", out.String())
	}
}
