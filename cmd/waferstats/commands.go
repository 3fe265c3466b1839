package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"waferstats/internal/analysis"
	"waferstats/internal/config"
	"waferstats/internal/datasource"
	"waferstats/internal/export"
	"waferstats/internal/ingest"
	"waferstats/internal/parser/csv"
	"waferstats/internal/schema"
	"waferstats/internal/stats"
	"waferstats/internal/stream"
)

func newValidateCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the pipeline configuration and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := loadPipeline(g)
			if err != nil {
				return err
			}
			issues := config.ValidatePipeline(p)
			printIssues(cmd.ErrOrStderr(), issues)
			if config.HasErrors(issues) {
				return fmt.Errorf("configuration is invalid")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "configuration is valid")
			return nil
		},
	}
}

// profileRows bounds the rows sampled for the column profile.
const profileRows = 1000

func newIngestCmd(g *globalFlags) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest the source and print the run summary and column profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, g, true)
			if err != nil {
				return err
			}
			defer a.Close()

			run, err := a.ingest(cmd.Context())
			if err != nil {
				return err
			}
			cols := schema.Profile(run.Schema, run.Data.Rows, profileRows)
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), newIngestSummary(run, cols))
			}
			printIngest(cmd.OutOrStdout(), run, cols)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func newReportCmd(g *globalFlags) *cobra.Command {
	var (
		asJSON    bool
		xlsxPath  string
		deliver   bool
		batchRate float64
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Ingest the source and run every configured view",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, g, true)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			run, err := a.ingest(ctx)
			if err != nil {
				return err
			}
			rep := analysis.New(analysis.Options{Job: a.p.Job, Logger: a.log, Tracer: a.tracer.Tracer}).
				Analyze(ctx, run, a.p)

			out := cmd.OutOrStdout()
			if asJSON {
				if err := writeJSON(out, newReportSummary(rep)); err != nil {
					return err
				}
			} else {
				printReport(out, rep)
			}

			if deliver {
				if err := deliverSeries(ctx, out, rep, batchRate); err != nil {
					return err
				}
			}
			if xlsxPath != "" {
				if err := writeXLSX(xlsxPath, rep); err != nil {
					return err
				}
				a.log.Info("workbook written", "path", xlsxPath)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.BoolVar(&asJSON, "json", false, "print JSON instead of tables")
	f.StringVar(&xlsxPath, "xlsx", "", "also write the derived tables to this .xlsx file")
	f.BoolVar(&deliver, "deliver", false, "emit the scatter and trend series batch by batch")
	f.Float64Var(&batchRate, "batch-rate", 0, "batches per second when delivering (0 = unpaced)")
	return cmd
}

func newStreamCmd(g *globalFlags) *cobra.Command {
	var (
		duration time.Duration
		every    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "stream",
		Short: "Run the synthetic real-time series and print their windows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if every <= 0 {
				return fmt.Errorf("--every must be positive, got %s", every)
			}
			if duration < 0 {
				return fmt.Errorf("--duration must not be negative, got %s", duration)
			}
			a, err := newApp(cmd, g, false)
			if err != nil {
				return err
			}
			defer a.Close()

			opts := stream.OptionsFrom(a.p.Stream)
			opts.Logger = a.log
			feed, err := stream.NewFeed(opts)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}

			feed.Start(ctx)
			defer feed.Stop()

			tick := time.NewTicker(every)
			defer tick.Stop()
			for {
				select {
				case <-ctx.Done():
					feed.Stop()
					printFeed(cmd.OutOrStdout(), feed)
					return nil
				case <-tick.C:
					printFeed(cmd.OutOrStdout(), feed)
				}
			}
		},
	}
	cmd.Flags().DurationVar(&duration, "duration", 10*time.Second, "how long to run (0 = until interrupted)")
	cmd.Flags().DurationVar(&every, "every", time.Second, "print interval")
	return cmd
}

// ingest reads and parses the configured source.
func (a *app) ingest(ctx context.Context) (*ingest.Run, error) {
	src, err := datasource.FromConfig(a.p.Source)
	if err != nil {
		return nil, err
	}
	in := ingest.NewIngestor(ingest.Options{
		Workers: a.p.Runtime.Workers,
		Parser:  csv.NewParser(csv.OptionsFrom(a.p.Parser.Options)),
		Job:     a.p.Job,
		Logger:  a.log,
		Tracer:  a.tracer.Tracer,
	})
	return in.Ingest(ctx, src)
}

func deliverSeries(ctx context.Context, w io.Writer, rep *analysis.Report, perSecond float64) error {
	var limiter *rate.Limiter
	if perSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
	for _, s := range []struct {
		name string
		res  *analysis.SeriesResult
	}{
		{analysis.ViewScatter, rep.Scatter},
		{analysis.ViewTrend, rep.Trend},
	} {
		if s.res == nil {
			continue
		}
		err := stats.Deliver(ctx, s.res.Batches, limiter, func(i int, batch []stats.Point) error {
			_, err := fmt.Fprintf(w, "%s batch %d/%d: %d points\n", s.name, i+1, len(s.res.Batches), len(batch))
			return err
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func writeXLSX(path string, rep *analysis.Report) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return export.WriteWorkbook(f, rep)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printIngest(w io.Writer, run *ingest.Run, cols []schema.Column) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "run\t%s\n", run.ID)
	fmt.Fprintf(tw, "source\t%s\n", run.Source)
	fmt.Fprintf(tw, "rows\t%d\n", run.Data.Len())
	fmt.Fprintf(tw, "columns\t%d\n", run.Schema.Len())
	fmt.Fprintf(tw, "chunks\t%d\n", run.Chunks)
	fmt.Fprintf(tw, "bytes\t%d\n", run.Bytes)
	fmt.Fprintf(tw, "digest\t%016x\n", run.Digest)
	fmt.Fprintf(tw, "elapsed\t%s\n", run.Elapsed.Round(time.Microsecond))
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "COLUMN\tINDEX\tKIND\tFILLED\tNUMERIC")
	for _, c := range cols {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t%d\n", c.Name, c.Index, c.Kind, c.Filled, c.Numeric)
	}
	tw.Flush()
}

func printReport(w io.Writer, rep *analysis.Report) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "run\t%s\nsource\t%s\nrows\t%d\n\n", rep.RunID, rep.Source, rep.Rows)

	fmt.Fprintln(tw, "VIEW\tITEMS\tSKIPPED\tTIME\tWARNING")
	for _, t := range rep.Timings {
		warn := ""
		if t.Err != nil {
			warn = t.Err.Error()
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\n", t.View, t.Items, t.Skipped, t.Elapsed.Round(time.Microsecond), warn)
	}

	if h := rep.Histogram; h != nil && len(h.Bins) > 0 {
		fmt.Fprintf(tw, "\nHISTOGRAM (%s, %d bins)\tEND\tCOUNT\n", h.Rule, len(h.Bins))
		for _, b := range h.Bins {
			fmt.Fprintf(tw, "%g\t%g\t%d\n", b.Start, b.End, b.Count)
		}
	}
	if g := rep.BoxPlot; g != nil && len(g.Box) > 0 {
		fmt.Fprintln(tw, "\nCATEGORY\tN\tMIN\tQ1\tMEDIAN\tQ3\tMAX")
		for _, grp := range g.Box {
			s := grp.Summary
			fmt.Fprintf(tw, "%s\t%d\t%g\t%g\t%g\t%g\t%g\n", grp.Category, grp.Count, s.Min, s.Q1, s.Median, s.Q3, s.Max)
		}
		if g.HasRange {
			fmt.Fprintf(tw, "\ncandlestick range\t%g .. %g (%d groups)\n", g.CandleMin, g.CandleMax, len(g.Candles))
		}
	}
	for _, s := range []struct {
		name string
		res  *analysis.SeriesResult
	}{
		{analysis.ViewScatter, rep.Scatter},
		{analysis.ViewTrend, rep.Trend},
	} {
		if s.res != nil {
			fmt.Fprintf(tw, "\n%s\t%d points (from %d), %d batches\n", s.name, len(s.res.Points), s.res.Total, len(s.res.Batches))
		}
	}
	if m := rep.WaferMap; m != nil {
		fmt.Fprintf(tw, "\n%s\t%d cells\n", analysis.ViewWaferMap, len(m.Cells))
	}
	for _, warn := range rep.Warnings {
		fmt.Fprintf(tw, "\nwarning\t%v\n", warn)
	}
	tw.Flush()
}

func printFeed(w io.Writer, f *stream.Feed) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SERIES\tINTERVAL\tSAMPLES\tLAST")
	for _, name := range f.Names() {
		snap, _ := f.Snapshot(name)
		interval, _ := f.Interval(name)
		last := "-"
		if n := len(snap); n > 0 {
			last = fmt.Sprintf("%.3f @ %s", snap[n-1].Value, snap[n-1].At.Format(time.TimeOnly))
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", name, interval, len(snap), last)
	}
	tw.Flush()
}
