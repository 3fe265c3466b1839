// Command waferstats ingests delimited semiconductor test records, derives
// the statistical views configured in a pipeline file and prints or exports
// them. It also runs the synthetic real-time feed.
//
// Examples:
//
//	waferstats validate --config pipelines/leakage.yaml
//	waferstats ingest --file data/wafer.csv --workers 8
//	waferstats report --config pipelines/leakage.yaml --xlsx out/leakage.xlsx
//	waferstats stream --duration 30s
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
