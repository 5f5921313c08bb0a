// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package isa

import "strings"

var registers = map[string]byte{
	"A":  0,
	"X":  1,
	"L":  2,
	"B":  3,
	"S":  4,
	"T":  5,
	"F":  6,
	"PC": 8,
	"SW": 9,
}

var registerNames = [16]string{
	0: "A", 1: "X", 2: "L", 3: "B", 4: "S", 5: "T", 6: "F", 8: "PC", 9: "SW",
}

// Register returns the numeric code of a named register.
func Register(name string) (code byte, ok bool) {
	code, ok = registers[strings.ToUpper(name)]
	return
}

// RegisterName returns the name of the register with the given code, or
// the empty string if no register uses it.
func RegisterName(code byte) string {
	if int(code) >= len(registerNames) {
		return ""
	}
	return registerNames[code]
}

// Flags holds the six addressing bits of a format 3 or format 4
// instruction, ordered n i x b p e from most to least significant.
type Flags byte

const (
	FlagE Flags = 1 << iota // extended (format 4)
	FlagP                   // program-counter relative
	FlagB                   // base relative
	FlagX                   // indexed
	FlagI                   // immediate
	FlagN                   // indirect
)

// String renders the flags as a six-character binary string.
func (f Flags) String() string {
	var b [6]byte
	for i := range b {
		if f&(FlagN>>i) != 0 {
			b[i] = '1'
		} else {
			b[i] = '0'
		}
	}
	return string(b[:])
}
