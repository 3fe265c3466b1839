// Package csv parses one chunk of delimited text into rows of raw cells. It
// is the parse task run by the ingestion pool: no header handling, no type
// conversion, just records in input order.
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"waferstats/internal/config"
	"waferstats/internal/parser"
)

// checkEvery is how many records are read between context checks.
const checkEvery = 4096

// Options configures the chunk parser. The zero value parses RFC 4180 CSV.
// The delimiter is always ','.
type Options struct {
	// TrimSpace trims leading/trailing white space from every cell.
	TrimSpace bool

	// LazyQuotes tolerates a quote in an unquoted field and a non-doubled
	// quote in a quoted field.
	LazyQuotes bool
}

// OptionsFrom reads parser options from a pipeline's parser.options bag.
func OptionsFrom(o config.Options) Options {
	return Options{
		TrimSpace:  o.Bool("trim_space", false),
		LazyQuotes: o.Bool("lazy_quotes", false),
	}
}

// Parser parses chunks according to Options. It holds no mutable state and
// is safe for concurrent use.
type Parser struct{ opt Options }

// NewParser constructs a Parser with the provided Options.
func NewParser(opt Options) *Parser { return &Parser{opt: opt} }

var _ parser.Parser = (*Parser)(nil)

// Parse reads every record in req.Content.
//
// Records may have differing widths; width is the consumer's concern. Empty
// lines produce no record. A leading byte order mark is dropped. The first
// malformed record fails the whole chunk with a message naming the line
// within the chunk.
func (p *Parser) Parse(ctx context.Context, req parser.Request) parser.Response {
	if err := ctx.Err(); err != nil {
		return parser.Fail(err.Error())
	}

	cr := csv.NewReader(strings.NewReader(StripBOM(req.Content)))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = p.opt.LazyQuotes
	cr.TrimLeadingSpace = p.opt.TrimSpace

	rows := make([][]string, 0, strings.Count(req.Content, "\n")+1)
	for n := 0; ; n++ {
		if n%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return parser.Fail(err.Error())
			}
		}

		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return parser.Fail(describe(err))
		}
		if p.opt.TrimSpace {
			for i, v := range rec {
				rec[i] = strings.TrimSpace(v)
			}
		}
		rows = append(rows, rec)
	}

	return parser.Response{OK: true, Rows: rows}
}

// describe renders a csv.ParseError without the package prefix.
func describe(err error) string {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return fmt.Sprintf("line %d, column %d: %v", pe.Line, pe.Column, pe.Err)
	}
	return err.Error()
}
