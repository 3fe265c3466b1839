package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"waferstats/internal/logging"
	"waferstats/internal/metrics"
	"waferstats/internal/parser"
	"waferstats/internal/telemetry"
)

// ChunkResult holds the rows parsed from one chunk, keyed by the chunk's
// original index.
type ChunkResult struct {
	Index      int
	Generation uint64
	Rows       [][]string
}

// PoolOptions configures a Pool. All fields are optional.
type PoolOptions struct {
	// Job labels metrics.
	Job string
	// Logger receives per-chunk debug records.
	Logger *slog.Logger
	// Tracer starts a span per parse task.
	Tracer trace.Tracer
	// Current reports the newest generation. When it no longer matches the
	// generation a Run was started with, the Run is abandoned with
	// ErrSuperseded. Nil means runs are never superseded.
	Current func() uint64
}

// Pool runs one parse task per chunk and joins them fail-fast.
type Pool struct {
	task parser.Parser
	opts PoolOptions
	log  *slog.Logger
}

// NewPool builds a Pool around task.
func NewPool(task parser.Parser, opts PoolOptions) *Pool {
	opts.Tracer = telemetry.Tracer(opts.Tracer)
	return &Pool{task: task, opts: opts, log: logging.OrDefault(opts.Logger)}
}

// message is what a task sends back to the collector.
type message struct {
	index int
	gen   uint64
	resp  parser.Response
}

// Run parses every chunk concurrently and returns one ChunkResult per chunk,
// positioned like the input slice regardless of completion order.
//
// The first failing task ends the Run with a *ParseError carrying its
// message; tasks still in flight are canceled and their results dropped.
// When the generation moves on before every result is in, Run returns
// ErrSuperseded.
func (p *Pool) Run(ctx context.Context, gen uint64, chunks []Chunk) ([]ChunkResult, error) {
	start := time.Now()
	results, err := p.run(ctx, gen, chunks)
	metrics.RecordStep(p.opts.Job, "parse", err, time.Since(start))
	if err == nil {
		metrics.RecordChunks(p.opts.Job, int64(len(results)))
	}
	return results, err
}

func (p *Pool) run(ctx context.Context, gen uint64, chunks []Chunk) ([]ChunkResult, error) {
	pos := make(map[int]int, len(chunks))
	for i, c := range chunks {
		if _, dup := pos[c.Index]; dup {
			return nil, fmt.Errorf("ingest: duplicate chunk index %d", c.Index)
		}
		pos[c.Index] = i
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	out := make(chan message, len(chunks))
	for _, c := range chunks {
		g.Go(func() error {
			resp := p.parse(gctx, gen, c)
			out <- message{index: c.Index, gen: gen, resp: resp}
			if !resp.OK {
				return &ParseError{Chunk: c.Index, Message: resp.Message}
			}
			return nil
		})
	}
	go func() { _ = g.Wait() }()

	results := make([]ChunkResult, len(chunks))
	for received := 0; received < len(chunks); received++ {
		select {
		case m := <-out:
			if p.superseded(gen) || m.gen != gen {
				return nil, ErrSuperseded
			}
			if !m.resp.OK {
				p.log.DebugContext(ctx, "parse task failed", "chunk", m.index, "message", m.resp.Message)
				return nil, &ParseError{Chunk: m.index, Message: m.resp.Message}
			}
			results[pos[m.index]] = ChunkResult{Index: m.index, Generation: m.gen, Rows: m.resp.Rows}
		case <-ctx.Done():
			if p.superseded(gen) {
				return nil, ErrSuperseded
			}
			return nil, ctx.Err()
		}
	}
	return results, nil
}

// parse runs the task for one chunk inside its own span.
func (p *Pool) parse(ctx context.Context, gen uint64, c Chunk) parser.Response {
	ctx, span := p.opts.Tracer.Start(ctx, "parse.chunk", trace.WithAttributes(
		attribute.Int("chunk.index", c.Index),
		attribute.Int("chunk.lines", c.Lines),
		attribute.Int64("generation", int64(gen)),
	))
	defer span.End()

	resp := p.task.Parse(ctx, parser.Request{Content: c.Content})
	if !resp.OK {
		span.SetStatus(codes.Error, resp.Message)
		return parser.Response{OK: false, Message: resp.Message}
	}
	span.SetAttributes(attribute.Int("chunk.rows", len(resp.Rows)))
	p.log.DebugContext(ctx, "chunk parsed", "chunk", c.Index, "lines", c.Lines, "rows", len(resp.Rows))
	return resp
}

func (p *Pool) superseded(gen uint64) bool {
	return p.opts.Current != nil && p.opts.Current() != gen
}
