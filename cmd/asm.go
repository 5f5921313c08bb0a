// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmd

import (
	"fmt"

	"github.com/beevik/sicxe/asm"
	"github.com/spf13/cobra"
)

var asmCmd = &cobra.Command{
	Use:   "asm sourceFile",
	Short: "Assemble a SIC/XE source file",
	Long: `Asm assembles a source file and writes the symbol listing, literal
listing, object program and source map next to it, using the extensions
given by the SymbolExt, LiteralExt, ObjectExt and MapExt settings.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		set, err := config.instructionSet()
		if err != nil {
			return err
		}
		path := args[0]
		err = asm.AssembleFile(path, config.files(path), set, config.options(), cmd.OutOrStdout())
		if err != nil {
			return fmt.Errorf("failed to assemble '%s': %w", path, err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(asmCmd)
}
