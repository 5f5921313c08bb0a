// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import "strings"

// A Statement is one tokenized source line. Pass 1 fills in its address
// and size.
type Statement struct {
	Label    string   // optional label
	Operator string   // mnemonic or directive, including any '+' prefix
	Operands []string // comma-separated operands
	Comment  string   // trailing comment text
	Row      int      // 1-based source line number
	Addr     int      // location counter value at the statement
	Size     int      // bytes occupied, including any literal pool

	label    fstring
	operator fstring
	operands []fstring
}

// Return true if the operator carries the extended-format '+' prefix.
func (st *Statement) extended() bool {
	return strings.HasPrefix(st.Operator, "+")
}

// Return the operator with any extended-format prefix removed.
func (st *Statement) mnemonic() string {
	return strings.TrimPrefix(st.Operator, "+")
}

// Return the upper-cased operator without its extended-format prefix.
func (st *Statement) op() string {
	return strings.ToUpper(st.mnemonic())
}

// Return the i'th operand, or an empty string if there are fewer.
func (st *Statement) operand(i int) string {
	if i < len(st.Operands) {
		return st.Operands[i]
	}
	return ""
}

// Return the positioned form of the i'th operand, falling back to the
// operator when the operand is missing.
func (st *Statement) operandPos(i int) fstring {
	if i < len(st.operands) {
		return st.operands[i]
	}
	return st.operator
}

// tokenize splits a tab-delimited source line into its label, operator,
// operand and comment fields. The second result is false for lines that
// produce no statement: blank lines and lines whose first field starts
// with the comment marker '.'. Tabs after the third field belong to the
// comment.
func tokenize(line fstring) (*Statement, bool) {
	if strings.TrimSpace(line.str) == "" {
		return nil, false
	}

	var fields [4]fstring
	remain := line
	n := 0
	for ; n < 3 && !remain.isEmpty(); n++ {
		fields[n], remain = remain.consumeUntilChar('\t')
		if remain.startsWithChar('\t') {
			remain = remain.consume(1)
		}
	}
	if n == 3 && !remain.isEmpty() {
		fields[3] = remain
	}

	if fields[0].startsWithChar('.') {
		return nil, false
	}

	st := &Statement{
		Row:      line.row,
		label:    fields[0].trim(),
		operator: fields[1].trim(),
	}
	st.Label = st.label.str
	st.Operator = st.operator.str
	st.Comment = strings.TrimSpace(fields[3].str)

	operands := fields[2].trim()
	for !operands.isEmpty() {
		var operand fstring
		operand, operands = operands.consumeUntilUnquotedChar(',')
		operand = operand.trim()
		st.operands = append(st.operands, operand)
		st.Operands = append(st.Operands, operand.str)
		if operands.startsWithChar(',') {
			operands = operands.consume(1)
			if operands.isEmpty() {
				st.operands = append(st.operands, operands)
				st.Operands = append(st.Operands, "")
			}
		}
	}
	return st, true
}
