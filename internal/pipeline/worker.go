package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/i94days/internal/events"
	"github.com/dgallion1/i94days/internal/lines"
	"github.com/dgallion1/i94days/internal/report"
	"github.com/dgallion1/i94days/internal/source"
	"github.com/dgallion1/i94days/internal/trips"
)

// Worker processes a single report job.
type Worker struct {
	log     *slog.Logger
	srcOpts source.Options
	stats   *RunStats
}

func NewWorker(log *slog.Logger, srcOpts source.Options, stats *RunStats) *Worker {
	return &Worker{
		log:     log,
		srcOpts: srcOpts,
		stats:   stats,
	}
}

// Process runs the full report pipeline for a job. Any failure aborts the
// whole document.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename", job.Filename)
	start := time.Now()
	failed := true
	defer func() {
		if w.stats != nil {
			w.stats.Record(time.Since(start).Milliseconds(), failed)
		}
	}()

	// Phase 1: Parse
	job.SetStatus(StatusParsing, "parsing")
	src, err := source.ForFile(job.Filename, w.srcOpts)
	if err != nil {
		log.Error("unsupported format", "error", err)
		job.Fail("parsing", err)
		return
	}

	ls, err := lines.Collect(ctx, src, bytes.NewReader(job.FileData()), job.Filename)
	if err != nil {
		log.Error("parse failed", "error", err)
		job.Fail("parsing", fmt.Errorf("parse: %w", err))
		return
	}
	log.Info("reconstructed lines", "lines", len(ls))

	// Phase 2: Pair
	job.SetStatus(StatusPairing, "pairing")
	evs := events.Extract(ls)
	p := trips.NewPairer()
	for _, ev := range evs {
		p.Feed(ev)
	}
	log.Info("paired events", "events", len(evs), "state", p.State().String())

	if err := ctx.Err(); err != nil {
		job.Fail("pairing", err)
		return
	}

	// Phase 3: Aggregate
	job.SetStatus(StatusAggregating, "aggregating")
	rep := report.Assemble(job.Filename, len(ls), evs, p, job.AsOf)
	for _, msg := range rep.Warnings {
		log.Warn("report warning", "warning", msg)
	}

	job.Complete(rep)
	failed = false
	log.Info("report complete",
		"trips", len(rep.Trips),
		"total", rep.Weighted.Total.String(),
		"verdict", rep.Verdict,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
