// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmd

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/beevik/prefixtree/v2"
	"github.com/beevik/sicxe/asm"
	"github.com/beevik/sicxe/isa"
)

type settings struct {
	Catalog    string `doc:"instruction catalog file (empty for built-in)"`
	SymbolExt  string `doc:"symbol listing file extension"`
	LiteralExt string `doc:"literal listing file extension"`
	ObjectExt  string `doc:"object program file extension"`
	MapExt     string `doc:"source map file extension"`
	SourceMap  bool   `doc:"write a source map"`
	Strict     bool   `doc:"treat undeclared references as errors"`
	Parallel   bool   `doc:"assemble control sections concurrently"`
	Verbose    bool   `doc:"log every pass and statement"`
}

func newSettings() *settings {
	return &settings{
		SymbolExt:  ".sym",
		LiteralExt: ".lit",
		ObjectExt:  ".obj",
		MapExt:     ".map",
		SourceMap:  true,
	}
}

type settingsField struct {
	name  string
	index int
	kind  reflect.Kind
	doc   string
}

var (
	settingsTree   = prefixtree.New[*settingsField]()
	settingsFields []settingsField
)

func init() {
	settingsType := reflect.TypeOf(settings{})
	settingsFields = make([]settingsField, settingsType.NumField())
	for i := 0; i < len(settingsFields); i++ {
		f := settingsType.Field(i)
		doc, _ := f.Tag.Lookup("doc")
		settingsFields[i] = settingsField{
			name:  f.Name,
			index: i,
			kind:  f.Type.Kind(),
			doc:   doc,
		}
		settingsTree.Add(strings.ToLower(f.Name), &settingsFields[i])
	}
}

func (s *settings) Display(w io.Writer) {
	value := reflect.ValueOf(s).Elem()
	for i, f := range settingsFields {
		v := value.Field(i)
		var s string
		switch f.kind {
		case reflect.String:
			s = fmt.Sprintf("    %-12s \"%s\"", f.name, v.String())
		default:
			s = fmt.Sprintf("    %-12s %v", f.name, v)
		}
		fmt.Fprintf(w, "%-28s (%s)\n", s, f.doc)
	}
}

// Set the field matching the unambiguous prefix 'key' from its string
// representation.
func (s *settings) Set(key, value string) error {
	f, err := settingsTree.FindValue(strings.ToLower(key))
	if err != nil {
		return fmt.Errorf("setting '%s': %w", key, err)
	}

	v := reflect.ValueOf(s).Elem().Field(f.index)
	switch f.kind {
	case reflect.String:
		v.SetString(value)
	case reflect.Bool:
		b, err := stringToBool(value)
		if err != nil {
			return err
		}
		v.SetBool(b)
	case reflect.Int:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid int value '%s'", value)
		}
		v.SetInt(int64(n))
	default:
		return errors.New("invalid type")
	}
	return nil
}

// Apply a list of "key=value" assignments.
func (s *settings) Apply(assignments []string) error {
	for _, a := range assignments {
		key, value, ok := strings.Cut(a, "=")
		if !ok {
			return fmt.Errorf("invalid setting '%s' (expected key=value)", a)
		}
		if err := s.Set(strings.TrimSpace(key), strings.TrimSpace(value)); err != nil {
			return err
		}
	}
	return nil
}

func (s *settings) options() asm.Option {
	var opt asm.Option
	if s.Strict {
		opt |= asm.Strict
	}
	if s.Parallel {
		opt |= asm.Parallel
	}
	if s.Verbose {
		opt |= asm.Verbose
	}
	return opt
}

// Return the output files for the source file at 'path'. The default
// names are given the configured extensions, and an empty extension
// suppresses that output.
func (s *settings) files(path string) asm.Files {
	withExt := func(name, ext string) string {
		if ext == "" {
			return ""
		}
		return strings.TrimSuffix(name, filepath.Ext(name)) + ext
	}
	files := asm.DefaultFiles(path)
	files.Symbols = withExt(files.Symbols, s.SymbolExt)
	files.Literals = withExt(files.Literals, s.LiteralExt)
	files.Object = withExt(files.Object, s.ObjectExt)
	files.SourceMap = withExt(files.SourceMap, s.MapExt)
	if !s.SourceMap {
		files.SourceMap = ""
	}
	return files
}

func (s *settings) instructionSet() (*isa.InstructionSet, error) {
	if s.Catalog == "" {
		return isa.Default(), nil
	}
	return isa.LoadFile(s.Catalog)
}
