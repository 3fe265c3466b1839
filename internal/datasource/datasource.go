// Package datasource abstracts where raw delimited text comes from. The
// ingestion layer only ever sees a Source; concrete kinds live in the file
// and httpds subpackages, plus the in-memory Inline source defined here.
package datasource

import (
	"context"
	"fmt"
	"io"
	"strings"

	"waferstats/internal/config"
	"waferstats/internal/datasource/file"
	"waferstats/internal/datasource/httpds"
)

// Source opens a stream of raw text. Name identifies the source in logs and
// error messages.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	Name() string
}

// Inline serves text held in memory, e.g. content handed over by a file
// picker or a test fixture.
type Inline struct {
	name string
	text string
}

// NewInline returns an Inline source. An empty name becomes "inline".
func NewInline(name, text string) *Inline {
	if name == "" {
		name = "inline"
	}
	return &Inline{name: name, text: text}
}

// Open returns a reader over the held text.
func (s *Inline) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return io.NopCloser(strings.NewReader(s.text)), nil
}

// Name implements Source.
func (s *Inline) Name() string { return s.name }

// ReadAll opens src and reads it to completion as a single string. The
// ingestion layer needs the whole text before it can split into line-aligned
// chunks.
func ReadAll(ctx context.Context, src Source) (string, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	var b strings.Builder
	if _, err := io.Copy(&b, ctxReader{ctx: ctx, r: rc}); err != nil {
		return "", err
	}
	return b.String(), nil
}

// ctxReader stops a long copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// FromConfig builds the Source described by cfg.
func FromConfig(cfg config.Source) (Source, error) {
	switch cfg.Kind {
	case "file":
		if cfg.File.Path == "" {
			return nil, fmt.Errorf("datasource: file source requires a path")
		}
		return file.NewLocal(cfg.File.Path), nil
	case "http":
		if cfg.HTTP.URL == "" {
			return nil, fmt.Errorf("datasource: http source requires a url")
		}
		c := httpds.NewClient(httpds.Config{
			Timeout:            cfg.HTTP.Timeout.D(),
			InsecureSkipVerify: cfg.HTTP.InsecureSkipVerify,
		})
		return httpds.NewRemote(c, cfg.HTTP.URL), nil
	case "inline":
		return NewInline("inline", cfg.Inline.Text), nil
	default:
		return nil, fmt.Errorf("datasource: unknown source kind %q", cfg.Kind)
	}
}
