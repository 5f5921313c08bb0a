// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cmd implements the sicxe command line: assembling source files,
// dumping assembled sections and listing the instruction catalog.
package cmd

import (
	"flag"

	"github.com/golang/glog"
	"github.com/spf13/cobra"
)

var (
	config      = newSettings()
	assignments []string
)

var rootCmd = &cobra.Command{
	Use:   "sicxe",
	Short: "A two-pass SIC/XE assembler",
	Long: `Sicxe assembles SIC/XE source files made of one or more control
sections into object programs of H, D, R, T, M and E records, along with
symbol and literal table listings and a JSON source map.

Settings are changed with --set key=value, where key is any unambiguous
prefix of a setting name. Run "sicxe settings" to list them.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// glog reads its flags from the Go flag set, which cobra has
		// already filled in.
		if err := flag.CommandLine.Parse(nil); err != nil {
			return err
		}
		return config.Apply(assignments)
	},
}

func init() {
	flag.Set("logtostderr", "true")
	rootCmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)
	rootCmd.PersistentFlags().StringArrayVar(&assignments, "set", nil,
		"change a setting (key=value)")
}

// Execute runs the command named on the command line.
func Execute() error {
	defer glog.Flush()
	return rootCmd.Execute()
}
