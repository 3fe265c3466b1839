// Package parser defines the message protocol between the ingestion pool and
// its parse tasks. A task receives one Request per chunk and answers with
// exactly one Response: either every row of the chunk or a failure message.
package parser

import "context"

// Request carries the raw text of one chunk.
type Request struct {
	Content string
}

// Response is the outcome of parsing one chunk. When OK is false, Rows is
// nil and Message describes the failure.
type Response struct {
	OK      bool
	Rows    [][]string
	Message string
}

// Parser turns a chunk into rows. Implementations must be safe for
// concurrent use; the pool calls Parse from many goroutines at once.
type Parser interface {
	Parse(ctx context.Context, req Request) Response
}

// Func adapts a plain function to Parser.
type Func func(ctx context.Context, req Request) Response

// Parse calls f.
func (f Func) Parse(ctx context.Context, req Request) Response { return f(ctx, req) }

// Fail builds a failed Response.
func Fail(msg string) Response { return Response{OK: false, Message: msg} }
