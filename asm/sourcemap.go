package asm

import (
	"encoding/json"
	"io"
	"sort"
)

// A SourceMap describes the mapping between source code line numbers and
// the section-relative addresses of the object code generated for them.
type SourceMap struct {
	File     string
	Sections []SectionMap
}

// A SectionMap holds the source lines and exported symbols of one control
// section.
type SectionMap struct {
	Name    string
	Length  int
	Lines   []SourceLine
	Exports []Export
}

// A SourceLine represents a mapping between an object code address and
// the source code line used to generate it.
type SourceLine struct {
	Address int // Section-relative address
	Line    int // Source code line number
}

// An Export describes a symbol published by EXTDEF.
type Export struct {
	Label   string
	Address int
}

// Build a source map from the statements of assembled sections. Only
// statements that occupy bytes are mapped.
func newSourceMap(file string, sections []*Section) *SourceMap {
	s := &SourceMap{File: file}
	for _, sec := range sections {
		m := SectionMap{Name: sec.Name, Length: sec.Length}
		for _, st := range sec.Statements {
			if st.Size > 0 {
				m.Lines = append(m.Lines, SourceLine{Address: st.Addr, Line: st.Row})
			}
			if st.op() == "EXTDEF" {
				for _, name := range st.Operands {
					if addr, ok := sec.Symbols.Lookup(name); ok {
						m.Exports = append(m.Exports, Export{Label: name, Address: addr})
					}
				}
			}
		}
		sort.Slice(m.Exports, func(i, j int) bool {
			return m.Exports[i].Address < m.Exports[j].Address
		})
		s.Sections = append(s.Sections, m)
	}
	return s
}

// Search searches the named section's map for the source line that
// generated the object code at the requested address.
func (s *SourceMap) Search(section string, addr int) (line int) {
	for _, m := range s.Sections {
		if m.Name != section {
			continue
		}
		i := sort.Search(len(m.Lines), func(i int) bool {
			return m.Lines[i].Address >= addr
		})
		if i < len(m.Lines) && m.Lines[i].Address == addr {
			return m.Lines[i].Line
		}
	}
	return -1
}

// ReadFrom reads the contents of an exported source map file.
func (s *SourceMap) ReadFrom(r io.Reader) (n int64, err error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}

	err = json.Unmarshal(b, s)
	if err != nil {
		return 0, err
	}
	return int64(len(b)), nil
}

// WriteTo writes the contents of the source map to an output stream.
func (s *SourceMap) WriteTo(w io.Writer) (n int64, err error) {
	b, err := json.Marshal(*s)
	if err != nil {
		return 0, err
	}

	nn, err := w.Write(b)
	return int64(nn), err
}
