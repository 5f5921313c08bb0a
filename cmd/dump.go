// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/beevik/sicxe/asm"
	"github.com/beevik/sicxe/disasm"
	"github.com/beevik/sicxe/isa"
	"github.com/beevik/term"
	"github.com/k0kubun/pp/v3"
	"github.com/spf13/cobra"
)

var dumpTables bool

var dumpCmd = &cobra.Command{
	Use:   "dump sourceFile",
	Short: "Assemble a source file and display its sections",
	Long: `Dump assembles a source file without writing any output files. It
prints a listing of every control section that pairs each statement's
address and object code with its disassembly, followed by the section's
object records. With --tables the section's symbols, literals and
modifications are pretty-printed as well.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		set, err := config.instructionSet()
		if err != nil {
			return err
		}

		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		w := cmd.OutOrStdout()
		assembly, _, err := asm.Assemble(f, args[0], set, config.options())
		if err != nil {
			for _, e := range assembly.Errors {
				fmt.Fprintln(w, e)
			}
			return fmt.Errorf("failed to assemble '%s': %w", args[0], err)
		}

		printer := pp.New()
		printer.SetColoringEnabled(isTerminal(w))
		for _, sec := range assembly.Sections {
			dumpSection(w, set, sec)
			if dumpTables {
				printer.Fprintln(w, sectionTables(sec))
			}
			fmt.Fprintln(w)
		}
		return nil
	},
}

func init() {
	dumpCmd.Flags().BoolVarP(&dumpTables, "tables", "t", false, "pretty-print symbol, literal and modification tables")
	rootCmd.AddCommand(dumpCmd)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func dumpSection(w io.Writer, set *isa.InstructionSet, sec *asm.Section) {
	fmt.Fprintf(w, "Section %s (length %06X)\n", sec.Name, sec.Length)

	for i, st := range sec.Statements {
		enc := sec.Encodings[i]
		code := codeString(enc.Data)
		if len(code) > 17 {
			code = code[:14] + "..."
		}

		var d string
		if enc.Kind == asm.TextRecord && set.GetInstruction(strings.TrimPrefix(st.Operator, "+")) != nil {
			d, _ = disasm.Disassemble(set, enc.Data, st.Addr)
		}

		fmt.Fprintf(w, "%04X  %-17s  %-18s %-8s %-8s %s\n",
			st.Addr, code, d, st.Label, st.Operator, strings.Join(st.Operands, ","))
	}

	fmt.Fprintln(w)
	for _, r := range sec.Records() {
		fmt.Fprintln(w, r)
	}
}

type tables struct {
	Section  string
	Symbols  []asm.Symbol
	Literals []*asm.Literal
	Mods     []string
}

func sectionTables(sec *asm.Section) tables {
	t := tables{
		Section:  sec.Name,
		Symbols:  sec.Symbols.Symbols(),
		Literals: sec.Literals.Literals(),
	}
	for _, m := range sec.Mods {
		t.Mods = append(t.Mods, m.String())
	}
	return t
}
