package ingest

import (
	"errors"
	"fmt"
)

// ErrSuperseded is returned when a newer ingestion started before this one
// could commit. Its results were discarded.
var ErrSuperseded = errors.New("ingest: superseded by a newer ingestion")

// ErrNoHeader is returned when chunk 0 yields no rows, so the run has no
// header.
var ErrNoHeader = errors.New("ingest: source has no header row")

// SourceReadError reports that the source could not be opened or read.
type SourceReadError struct {
	Source string
	Err    error
}

func (e *SourceReadError) Error() string {
	return fmt.Sprintf("ingest: read source %s: %v", e.Source, e.Err)
}

func (e *SourceReadError) Unwrap() error { return e.Err }

// ParseError carries the message of the first parse task that failed.
type ParseError struct {
	Chunk   int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("ingest: parse chunk %d: %s", e.Chunk, e.Message)
}
