package stream

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"waferstats/internal/config"
	"waferstats/internal/logging"
	"waferstats/internal/metrics"
)

// Sample is one generated point.
type Sample struct {
	At    time.Time
	Value float64
}

// Generator produces the value of a series at time t.
type Generator func(t time.Time, r *rand.Rand) float64

// Uniform draws values uniformly from [lo, hi).
func Uniform(lo, hi float64) Generator {
	return func(_ time.Time, r *rand.Rand) float64 {
		return lo + r.Float64()*(hi-lo)
	}
}

// Sine returns amplitude * sin(t / period), with t taken as Unix time.
func Sine(amplitude float64, period time.Duration) Generator {
	if period <= 0 {
		period = time.Second
	}
	return func(t time.Time, _ *rand.Rand) float64 {
		return math.Sin(float64(t.UnixNano())/float64(period)) * amplitude
	}
}

// Ticker is the part of time.Ticker a Feed uses.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Clock abstracts time for the Feed.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) NewTicker(d time.Duration) Ticker { return realTicker{time.NewTicker(d)} }

type realTicker struct{ t *time.Ticker }

func (t realTicker) C() <-chan time.Time { return t.t.C }
func (t realTicker) Stop()               { t.t.Stop() }

// Options configures a Feed.
type Options struct {
	Capacity    int
	MinInterval time.Duration
	MaxInterval time.Duration
	Series      []config.StreamSeries

	// Clock defaults to the wall clock.
	Clock Clock
	// Seed makes value and interval draws reproducible. Zero seeds from the
	// clock.
	Seed   uint64
	Logger *slog.Logger
}

// OptionsFrom maps a resolved StreamConfig to Options.
func OptionsFrom(c config.StreamConfig) Options {
	return Options{
		Capacity:    c.Capacity,
		MinInterval: c.MinInterval.D(),
		MaxInterval: c.MaxInterval.D(),
		Series:      c.Series,
	}
}

// series is one generated stream with its own window and timer.
type series struct {
	name     string
	gen      Generator
	rnd      *rand.Rand
	interval time.Duration

	mu   sync.Mutex
	ring *Ring[Sample]
}

// Feed drives a set of independent series. Each series pushes into its own
// Ring on its own timer; series share no state.
type Feed struct {
	opts   Options
	clock  Clock
	log    *slog.Logger
	series []*series

	mu      sync.Mutex
	rnd     *rand.Rand
	running bool
	cancel  context.CancelFunc
	// wg tracks the timers of the current start only.
	wg *sync.WaitGroup
}

// NewFeed validates opts and builds a stopped Feed.
func NewFeed(opts Options) (*Feed, error) {
	if opts.Capacity < 1 {
		opts.Capacity = config.DefaultStreamCapacity
	}
	if opts.MinInterval <= 0 {
		opts.MinInterval = config.DefaultMinInterval
	}
	if opts.MaxInterval <= 0 {
		opts.MaxInterval = config.DefaultMaxInterval
	}
	if opts.MaxInterval < opts.MinInterval {
		return nil, fmt.Errorf("stream: max interval %s is below min interval %s", opts.MaxInterval, opts.MinInterval)
	}
	if len(opts.Series) == 0 {
		opts.Series = config.DefaultSeries()
	}

	f := &Feed{
		opts:  opts,
		clock: opts.Clock,
		log:   logging.OrDefault(opts.Logger),
	}
	if f.clock == nil {
		f.clock = realClock{}
	}
	seed := opts.Seed
	if seed == 0 {
		seed = uint64(f.clock.Now().UnixNano())
	}
	f.rnd = rand.New(rand.NewPCG(seed, 0))

	seen := make(map[string]bool, len(opts.Series))
	for i, sc := range opts.Series {
		if seen[sc.Name] {
			return nil, fmt.Errorf("stream: duplicate series %q", sc.Name)
		}
		seen[sc.Name] = true

		var gen Generator
		switch sc.Kind {
		case "uniform":
			gen = Uniform(sc.Min, sc.Max)
		case "sine":
			gen = Sine(sc.Amplitude, sc.Period.D())
		default:
			return nil, fmt.Errorf("stream: series %q: unknown kind %q", sc.Name, sc.Kind)
		}
		f.series = append(f.series, &series{
			name: sc.Name,
			gen:  gen,
			rnd:  rand.New(rand.NewPCG(seed, uint64(i)+1)),
			ring: NewRing[Sample](opts.Capacity),
		})
	}
	return f, nil
}

// Start launches one timer per series, each with an interval drawn
// uniformly from [MinInterval, MaxInterval). Starting a running Feed is a
// no-op.
func (f *Feed) Start(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.running {
		return
	}
	ctx, f.cancel = context.WithCancel(ctx)
	f.running = true
	wg := &sync.WaitGroup{}
	f.wg = wg

	for _, s := range f.series {
		s.interval = f.drawInterval()
		t := f.clock.NewTicker(s.interval)
		wg.Add(1)
		go f.run(ctx, wg, s, t)
		f.log.InfoContext(ctx, "series started", "series", s.name, "interval", s.interval)
	}
}

// Stop halts every timer and waits for them to exit. Samples are kept.
// Stopping a stopped Feed is a no-op.
func (f *Feed) Stop() {
	f.mu.Lock()
	if !f.running {
		f.mu.Unlock()
		return
	}
	f.running = false
	f.cancel()
	wg := f.wg
	f.mu.Unlock()

	wg.Wait()
	f.log.Info("feed stopped")
}

// Running reports whether the Feed is started.
func (f *Feed) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

// Names returns the series names in configuration order.
func (f *Feed) Names() []string {
	out := make([]string, len(f.series))
	for i, s := range f.series {
		out[i] = s.name
	}
	return out
}

// Snapshot returns the current window of the named series, oldest first.
func (f *Feed) Snapshot(name string) ([]Sample, bool) {
	s := f.lookup(name)
	if s == nil {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ring.Snapshot(), true
}

// Interval returns the interval drawn for the named series at the last Start.
func (f *Feed) Interval(name string) (time.Duration, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.lookup(name)
	if s == nil {
		return 0, false
	}
	return s.interval, true
}

// Reset empties every window.
func (f *Feed) Reset() {
	for _, s := range f.series {
		s.mu.Lock()
		s.ring.Reset()
		s.mu.Unlock()
	}
}

func (f *Feed) lookup(name string) *series {
	for _, s := range f.series {
		if s.name == name {
			return s
		}
	}
	return nil
}

// drawInterval must be called with f.mu held.
func (f *Feed) drawInterval() time.Duration {
	lo, hi := f.opts.MinInterval, f.opts.MaxInterval
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(f.rnd.Int64N(int64(hi-lo)))
}

func (f *Feed) run(ctx context.Context, wg *sync.WaitGroup, s *series, t Ticker) {
	defer wg.Done()
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C():
			s.mu.Lock()
			s.ring.Push(Sample{At: now, Value: s.gen(now, s.rnd)})
			s.mu.Unlock()
			metrics.RecordSamples(s.name, 1)
		}
	}
}
