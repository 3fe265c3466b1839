// Package ingest turns raw delimited text into a merged dataset: it splits the
// text into line-aligned chunks, parses them concurrently through a fail-fast
// pool, merges the results in chunk order and resolves the header.
//
// Successive ingestions on one Ingestor are ordered by a generation counter.
// Starting a new ingestion cancels the one in flight, and a run only commits
// if its generation is still the newest, so stale results never replace
// newer state.
package ingest

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/xxh3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"waferstats/internal/datasource"
	"waferstats/internal/logging"
	"waferstats/internal/metrics"
	"waferstats/internal/parser"
	"waferstats/internal/parser/csv"
	"waferstats/internal/schema"
	"waferstats/internal/telemetry"
)

// Options configures an Ingestor. All fields are optional.
type Options struct {
	// Workers is the requested number of parse tasks; see Workers.
	Workers int
	// Parser is the chunk parse task. Defaults to a plain CSV parser.
	Parser parser.Parser
	// Job labels metrics.
	Job    string
	Logger *slog.Logger
	Tracer trace.Tracer
}

// Run is one committed ingestion.
type Run struct {
	ID         string
	Generation uint64
	Source     string
	Data       *Dataset
	Schema     *schema.Map
	// Digest is the xxh3 hash of the source text.
	Digest  uint64
	Bytes   int
	Chunks  int
	Started time.Time
	Elapsed time.Duration
}

// Ingestor runs ingestions and holds the most recent committed Run.
type Ingestor struct {
	opts Options
	log  *slog.Logger
	pool *Pool

	gen atomic.Uint64

	mu       sync.Mutex
	inflight context.CancelFunc
	current  *Run
}

// NewIngestor builds an Ingestor.
func NewIngestor(opts Options) *Ingestor {
	if opts.Parser == nil {
		opts.Parser = csv.NewParser(csv.Options{})
	}
	opts.Tracer = telemetry.Tracer(opts.Tracer)
	in := &Ingestor{opts: opts, log: logging.OrDefault(opts.Logger)}
	in.pool = NewPool(opts.Parser, PoolOptions{
		Job:     opts.Job,
		Logger:  in.log,
		Tracer:  opts.Tracer,
		Current: in.gen.Load,
	})
	return in
}

// Current returns the last committed run, or nil.
func (in *Ingestor) Current() *Run {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.current
}

// Generation returns the newest generation handed out.
func (in *Ingestor) Generation() uint64 { return in.gen.Load() }

// Ingest reads src, parses it and commits the result as the current run.
//
// Errors:
//   - *SourceReadError when src cannot be opened or read
//   - *ParseError carrying the first failing chunk's message
//   - ErrNoHeader when the text has no rows at all
//   - ErrSuperseded when a newer Ingest started before this one committed
//
// No partial dataset is ever committed.
func (in *Ingestor) Ingest(ctx context.Context, src datasource.Source) (*Run, error) {
	ctx, gen, done := in.begin(ctx)
	defer done()

	run := &Run{
		ID:         uuid.NewString(),
		Generation: gen,
		Source:     src.Name(),
		Started:    time.Now(),
	}
	ctx = logging.WithRunID(ctx, run.ID)
	ctx, span := in.opts.Tracer.Start(ctx, "ingest", trace.WithAttributes(
		attribute.String("source", run.Source),
		attribute.Int64("generation", int64(gen)),
	))
	defer span.End()

	err := in.ingest(ctx, gen, src, run)
	if err != nil && in.stale(gen) {
		err = ErrSuperseded
	}
	if err == nil {
		err = in.commit(gen, run)
	}
	run.Elapsed = time.Since(run.Started)
	metrics.RecordStep(in.opts.Job, "ingest", err, run.Elapsed)

	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, ErrSuperseded) {
			in.log.InfoContext(ctx, "ingestion superseded", "generation", gen)
		} else {
			in.log.ErrorContext(ctx, "ingestion failed", "source", run.Source, "error", err)
		}
		return nil, err
	}

	metrics.RecordRows(in.opts.Job, "merged", int64(run.Data.Len()))
	in.log.InfoContext(ctx, "ingestion committed",
		"source", run.Source,
		"generation", gen,
		"bytes", run.Bytes,
		"chunks", run.Chunks,
		"rows", run.Data.Len(),
		"columns", run.Schema.Len(),
		"elapsed", run.Elapsed,
	)
	return run, nil
}

func (in *Ingestor) ingest(ctx context.Context, gen uint64, src datasource.Source, run *Run) error {
	text, err := step(ctx, in, "read", func(ctx context.Context) (string, error) {
		t, err := datasource.ReadAll(ctx, src)
		if err != nil {
			return "", &SourceReadError{Source: src.Name(), Err: err}
		}
		return t, nil
	})
	if err != nil {
		return err
	}
	run.Bytes = len(text)
	run.Digest = xxh3.HashString(text)

	chunks, _ := step(ctx, in, "split", func(context.Context) ([]Chunk, error) {
		return Split(text, Workers(in.opts.Workers)), nil
	})
	run.Chunks = len(chunks)

	results, err := in.pool.Run(ctx, gen, chunks)
	if err != nil {
		return err
	}

	ds, err := step(ctx, in, "merge", func(context.Context) (*Dataset, error) {
		return Merge(results)
	})
	if err != nil {
		return err
	}
	run.Data = ds

	run.Schema, _ = step(ctx, in, "schema", func(context.Context) (*schema.Map, error) {
		return schema.Resolve(ds.Header), nil
	})
	return nil
}

// step runs fn inside a span and records its duration.
func step[T any](ctx context.Context, in *Ingestor, name string, fn func(context.Context) (T, error)) (T, error) {
	ctx, span := in.opts.Tracer.Start(ctx, name)
	defer span.End()

	start := time.Now()
	v, err := fn(ctx)
	metrics.RecordStep(in.opts.Job, name, err, time.Since(start))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return v, err
}

// begin opens a new generation and cancels the ingestion in flight.
func (in *Ingestor) begin(parent context.Context) (context.Context, uint64, func()) {
	ctx, cancel := context.WithCancel(parent)

	in.mu.Lock()
	gen := in.gen.Add(1)
	if in.inflight != nil {
		in.inflight()
	}
	in.inflight = cancel
	in.mu.Unlock()

	return ctx, gen, func() {
		in.mu.Lock()
		if !in.stale(gen) {
			in.inflight = nil
		}
		in.mu.Unlock()
		cancel()
	}
}

func (in *Ingestor) stale(gen uint64) bool { return in.gen.Load() != gen }

// commit installs run as current unless a newer generation exists.
func (in *Ingestor) commit(gen uint64, run *Run) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.stale(gen) {
		return ErrSuperseded
	}
	in.current = run
	return nil
}
