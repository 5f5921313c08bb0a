package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/beevik/sicxe/asm"
)

const program = "PROG\tSTART\t0\nFIRST\tLDA\t#3\n\tRSUB\n\tEND\tFIRST\n"

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	config = newSettings()
	dumpTables = false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeSource(t *testing.T, name, code string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(code), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSettingsSet(t *testing.T) {
	s := newSettings()
	if err := s.Set("str", "true"); err != nil {
		t.Fatal(err)
	}
	if !s.Strict {
		t.Error("Strict not set")
	}
	if err := s.Set("obj", ".o"); err != nil {
		t.Fatal(err)
	}
	if s.ObjectExt != ".o" {
		t.Errorf("ObjectExt = %q", s.ObjectExt)
	}
	if err := s.Set("parallel", "maybe"); err == nil {
		t.Error("expected error for invalid bool")
	}
	if err := s.Set("s", "1"); err == nil {
		t.Error("expected error for ambiguous prefix")
	}
	if err := s.Set("bogus", "1"); err == nil {
		t.Error("expected error for unknown setting")
	}
}

func TestSettingsApply(t *testing.T) {
	s := newSettings()
	if err := s.Apply([]string{"parallel=on", " verbose = 1 "}); err != nil {
		t.Fatal(err)
	}
	if opt := s.options(); opt != asm.Parallel|asm.Verbose {
		t.Errorf("options = %d", opt)
	}
	if err := s.Apply([]string{"strict"}); err == nil {
		t.Error("expected error for missing value")
	}
}

func TestSettingsFiles(t *testing.T) {
	if f := newSettings().files("dir/prog.asm"); f != asm.DefaultFiles("dir/prog.asm") {
		t.Errorf("default files = %+v", f)
	}

	s := newSettings()
	s.LiteralExt = ""
	s.SourceMap = false
	f := s.files("dir/prog.asm")
	exp := asm.Files{Symbols: "dir/prog.sym", Object: "dir/prog.obj"}
	if f != exp {
		t.Errorf("files = %+v", f)
	}
}

func TestSettingsDisplay(t *testing.T) {
	var b bytes.Buffer
	newSettings().Display(&b)
	if !strings.Contains(b.String(), "ObjectExt") || !strings.Contains(b.String(), "\".obj\"") {
		t.Errorf("unexpected display:\n%s", b.String())
	}
}

func TestAsmCommand(t *testing.T) {
	path := writeSource(t, "prog.asm", program)
	out, err := run(t, "asm", "--set", "mapext=.json", path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "'prog.json'") {
		t.Errorf("unexpected output: %s", out)
	}

	obj, err := os.ReadFile(strings.TrimSuffix(path, ".asm") + ".obj")
	if err != nil {
		t.Fatal(err)
	}
	exp := "HPROG  000000000006\nT000000060100034F0000\nE000000\n\n"
	if string(obj) != exp {
		t.Errorf("got:\n%s\nexp:\n%s", obj, exp)
	}
}

func TestAsmCommandError(t *testing.T) {
	path := writeSource(t, "bad.asm", "PROG\tSTART\t0\n\tFOO\t1\n")
	out, err := run(t, "asm", path)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(out, "invalid operator 'FOO'") {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestDumpCommand(t *testing.T) {
	path := writeSource(t, "prog.asm", program)
	out, err := run(t, "dump", path)
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range []string{"Section PROG", "LDA #3", "RSUB", "T000000060100034F0000"} {
		if !strings.Contains(out, s) {
			t.Errorf("dump output missing %q:\n%s", s, out)
		}
	}
}

func TestCatalogCommand(t *testing.T) {
	out, err := run(t, "catalog")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "ADD") || !strings.Contains(out, "CLEAR") {
		t.Errorf("unexpected catalog:\n%s", out)
	}
}

func TestCodeString(t *testing.T) {
	if s := codeString([]byte{0x4b, 0x10, 0x00, 0x00, 0x01}); s != "4B100000 01" {
		t.Errorf("codeString = %q", s)
	}
}
