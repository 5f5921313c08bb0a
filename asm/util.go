// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import "fmt"

var hex = "0123456789ABCDEF"

func hexchar(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	default:
		return 0
	}
}

func hexToByte(s string) byte {
	return hexchar(s[0])<<4 | hexchar(s[1])
}

// Return a big-endian representation of the value using the requested
// number of bytes. Negative values are stored in two's complement.
func toBytes(bytes, value int) []byte {
	b := make([]byte, bytes)
	for i := bytes - 1; i >= 0; i-- {
		b[i] = byte(value)
		value >>= 8
	}
	return b
}

// Return a hexadecimal string representation of a byte slice, with no
// separators between bytes.
func byteString(b []byte) string {
	s := make([]byte, len(b)*2)
	for i, c := range b {
		s[i*2+0] = hex[c>>4]
		s[i*2+1] = hex[c&0x0f]
	}
	return string(s)
}

// Pad or truncate a name to the six columns used by object records.
func name6(name string) string {
	if len(name) > 6 {
		name = name[:6]
	}
	return fmt.Sprintf("%-6s", name)
}

// Format an address as a zero-padded hexadecimal field of the given
// number of digits. Negative values wrap to two's complement.
func hexAddr(addr, digits int) string {
	if addr < 0 {
		addr &= 1<<(uint(digits)*4) - 1
	}
	return fmt.Sprintf("%0*X", digits, addr)
}
