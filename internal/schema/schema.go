// Package schema resolves header names to column positions. A Map is built
// once per ingestion run from the header row and is immutable afterwards;
// every derived view looks its columns up through it.
package schema

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// MissingColumnError reports a name absent from the header.
type MissingColumnError struct {
	Name string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("missing column %q", e.Name)
}

// Map is the header-name to column-index mapping of one ingestion run.
type Map struct {
	header []string
	index  map[string]int
}

// Resolve builds a Map from a header row. Names are trimmed of surrounding
// white space, a leading byte order mark is dropped, and Unicode is
// normalized to NFC. When a name repeats, the rightmost column wins.
// Cells that are blank after trimming are not addressable.
func Resolve(header []string) *Map {
	m := &Map{
		header: make([]string, len(header)),
		index:  make(map[string]int, len(header)),
	}
	for i, h := range header {
		name := Normalize(h)
		m.header[i] = name
		if name == "" {
			continue
		}
		m.index[name] = i
	}
	return m
}

// Normalize returns the canonical form of a header cell or lookup name.
func Normalize(s string) string {
	s = strings.TrimPrefix(s, "\uFEFF")
	return norm.NFC.String(strings.TrimSpace(s))
}

// Index returns the column index for name. The query is normalized the same
// way as header cells.
func (m *Map) Index(name string) (int, bool) {
	n := Normalize(name)
	if n == "" {
		return 0, false
	}
	i, ok := m.index[n]
	return i, ok
}

// MustIndex returns the column index for name or a *MissingColumnError.
func (m *Map) MustIndex(name string) (int, error) {
	i, ok := m.Index(name)
	if !ok {
		return 0, &MissingColumnError{Name: strings.TrimSpace(name)}
	}
	return i, nil
}

// Require checks that every non-empty name resolves. The returned error
// joins one *MissingColumnError per absent name, in argument order.
func (m *Map) Require(names ...string) error {
	var errs []error
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			continue
		}
		if _, err := m.MustIndex(n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Header returns the normalized header cells in column order.
func (m *Map) Header() []string {
	out := make([]string, len(m.header))
	copy(out, m.header)
	return out
}

// Len returns the header width.
func (m *Map) Len() int { return len(m.header) }

// Missing extracts the names of every MissingColumnError wrapped in err.
func Missing(err error) []string {
	if err == nil {
		return nil
	}
	var out []string
	var walk func(error)
	walk = func(e error) {
		if mc, ok := e.(*MissingColumnError); ok {
			out = append(out, mc.Name)
			return
		}
		switch u := e.(type) {
		case interface{ Unwrap() []error }:
			for _, x := range u.Unwrap() {
				walk(x)
			}
		case interface{ Unwrap() error }:
			if x := u.Unwrap(); x != nil {
				walk(x)
			}
		}
	}
	walk(err)
	return out
}
