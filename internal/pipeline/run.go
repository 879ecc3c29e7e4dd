package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/edgar-llm/internal/model"
)

const defaultFilingDeadline = 10 * time.Minute

// Run processes the descriptors through a bounded worker pool and writes the
// run report to the object store under runs/. Individual filing failures are
// recorded in the report, never propagated; the returned error covers only
// report persistence.
func (p *Pipeline) Run(ctx context.Context, descriptors []model.FilingDescriptor, opts RunOptions) (*RunReport, error) {
	concurrency := p.cfg.Pipeline.MaxConcurrency
	if opts.Concurrency > 0 {
		concurrency = opts.Concurrency
	}
	if concurrency < 1 {
		concurrency = 1
	}
	deadline := p.cfg.Pipeline.FilingDeadline
	if deadline <= 0 {
		deadline = defaultFilingDeadline
	}

	report := &RunReport{
		RunID:     uuid.New().String(),
		StartedAt: time.Now().UTC(),
		DryRun:    opts.DryRun,
		Force:     opts.Force,
		Total:     len(descriptors),
	}
	log := zap.L().With(zap.String("run_id", report.RunID))
	log.Info("starting run",
		zap.Int("filings", len(descriptors)),
		zap.Int("concurrency", concurrency),
		zap.Bool("dry_run", opts.DryRun),
		zap.Bool("force", opts.Force))

	var mu sync.Mutex
	var passed, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, d := range descriptors {
		g.Go(func() error {
			fctx, cancel := context.WithTimeout(gctx, deadline)
			defer cancel()

			rep := p.ProcessFiling(fctx, d, opts)
			if rep.Status == StatusPass {
				passed.Add(1)
			} else {
				failed.Add(1)
			}
			mu.Lock()
			report.Filings = append(report.Filings, *rep)
			mu.Unlock()
			return nil // one bad filing never aborts the batch
		})
	}
	_ = g.Wait()

	report.FinishedAt = time.Now().UTC()
	report.DurationSeconds = report.FinishedAt.Sub(report.StartedAt).Seconds()
	report.Passed = int(passed.Load())
	report.Failed = int(failed.Load())
	sort.Slice(report.Filings, func(i, j int) bool {
		if report.Filings[i].Ticker != report.Filings[j].Ticker {
			return report.Filings[i].Ticker < report.Filings[j].Ticker
		}
		return report.Filings[i].FilingID < report.Filings[j].FilingID
	})

	if err := p.writeReport(ctx, report); err != nil {
		return report, err
	}

	log.Info("run complete",
		zap.Int("total", report.Total),
		zap.Int("passed", report.Passed),
		zap.Int("failed", report.Failed),
		zap.Float64("seconds", report.DurationSeconds))
	return report, nil
}

func (p *Pipeline) writeReport(ctx context.Context, report *RunReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return eris.Wrap(err, "pipeline: marshal run report")
	}
	key := fmt.Sprintf("runs/run_%s.json", report.RunID)
	if err := p.objects.Put(ctx, key, data); err != nil {
		return eris.Wrapf(err, "pipeline: write run report %s", key)
	}
	return nil
}
