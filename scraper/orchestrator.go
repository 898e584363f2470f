package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/aluiziolira/go-scrape-vessels/checkpoint"
	"github.com/aluiziolira/go-scrape-vessels/config"
	"github.com/aluiziolira/go-scrape-vessels/dataset"
	"github.com/aluiziolira/go-scrape-vessels/models"
)

// Fetcher executes one batch of fetches and reports an outcome for every
// requested id. *Client satisfies it; tests substitute fakes.
type Fetcher interface {
	FetchBatch(ctx context.Context, category models.Category, ids []int64) (*BatchResult, error)
}

// Orchestrator drives the scrape state machine: an initial pass over all
// remaining ids per category, a fixed number of retry passes over failed
// ids, then completion. Every batch ends with a checkpoint write, so a
// killed process resumes losing at most one batch of work.
type Orchestrator struct {
	cfg     *config.Config
	fetcher Fetcher
	data    *dataset.Store
	state   *checkpoint.Store
	metrics *Metrics
}

// NewOrchestrator wires the engine together. metrics may be shared with
// the fetch client.
func NewOrchestrator(cfg *config.Config, fetcher Fetcher, data *dataset.Store, state *checkpoint.Store, metrics *Metrics) *Orchestrator {
	return &Orchestrator{
		cfg:     cfg,
		fetcher: fetcher,
		data:    data,
		state:   state,
		metrics: metrics,
	}
}

// Run advances the state machine as far as it can in one invocation.
// Re-invoking after completion is safe and returns immediately. Any
// persistence failure aborts the run: a checkpoint we could not write is a
// checkpoint we cannot trust on restart.
func (o *Orchestrator) Run(ctx context.Context) (*models.ScrapeReport, error) {
	report := models.NewScrapeReport()

	st, err := o.state.Load()
	if err != nil {
		return nil, err
	}

	if st.Phase == models.PhaseInitialScrape {
		slog.Info("starting/continuing initial scrape")
		for _, cat := range o.cfg.Categories {
			slog.Info("starting category", slog.String("category", string(cat)))
			if err := o.scrapeRemaining(ctx, cat, report); err != nil {
				return nil, err
			}
			slog.Info("category complete", slog.String("category", string(cat)))
		}

		if o.cfg.TargetCount > 0 {
			// A capped invocation cannot have exhausted the remaining
			// ids, so the phase must not advance.
			slog.Info("target count reached, initial scrape still in progress")
			st, err = o.state.Load()
			if err != nil {
				return nil, err
			}
			return o.finish(report, st)
		}

		st, err = o.state.Load()
		if err != nil {
			return nil, err
		}
		st.Phase = models.PhaseRetryFailed
		if err := o.state.Save(st); err != nil {
			return nil, fmt.Errorf("persist phase transition: %w", err)
		}
		slog.Info("initial scrape complete")
	}

	if st.Phase == models.PhaseRetryFailed {
		for st.RetriesCompleted < o.cfg.Retries {
			slog.Info("retrying failed ids",
				slog.Int("pass", st.RetriesCompleted+1),
				slog.Int("of", o.cfg.Retries),
			)
			for _, cat := range o.cfg.Categories {
				slog.Info("starting category", slog.String("category", string(cat)))
				if err := o.retryFailed(ctx, cat, report); err != nil {
					return nil, err
				}
				slog.Info("category complete", slog.String("category", string(cat)))
			}

			st, err = o.state.Load()
			if err != nil {
				return nil, err
			}
			st.RetriesCompleted++
			if err := o.state.Save(st); err != nil {
				return nil, fmt.Errorf("persist retry progress: %w", err)
			}
			slog.Info("retry pass complete", slog.Int("pass", st.RetriesCompleted))
		}

		st.Phase = models.PhaseComplete
		if err := o.state.Save(st); err != nil {
			return nil, fmt.Errorf("persist phase transition: %w", err)
		}
		slog.Info("all retries complete")
	}

	if st.Phase == models.PhaseComplete {
		slog.Info("scrape complete")
	}
	return o.finish(report, st)
}

func (o *Orchestrator) finish(report *models.ScrapeReport, st *models.ScrapeState) (*models.ScrapeReport, error) {
	report.EndTime = time.Now()
	report.Phase = st.Phase
	report.RetriesCompleted = st.RetriesCompleted
	for cat, ids := range st.FailedIDs {
		report.FailedCounts[cat] = len(ids)
	}
	return report, nil
}

// scrapeRemaining runs the full known−fetched−failed computation for one
// category and processes the result batch by batch.
func (o *Orchestrator) scrapeRemaining(ctx context.Context, cat models.Category, report *models.ScrapeReport) error {
	ds, err := o.data.Load(cat)
	if err != nil {
		return fmt.Errorf("load %s dataset: %w", cat, err)
	}
	known, err := o.data.KnownIDs()
	if err != nil {
		return err
	}
	st, err := o.state.Load()
	if err != nil {
		return err
	}

	remaining := Remaining(known, ds.IDs(), st.FailedFor(cat))
	batches := Batches(remaining, o.cfg.TargetCount, o.cfg.BatchSize)
	if len(batches) == 0 {
		slog.Info("nothing to run", slog.String("category", string(cat)))
		return nil
	}

	total := 0
	for _, b := range batches {
		total += len(b)
	}
	slog.Info("pulling data",
		slog.String("category", string(cat)),
		slog.Int("vessels", total),
		slog.Int("batches", len(batches)),
		slog.Int("batch_size", o.cfg.BatchSize),
	)
	return o.runBatches(ctx, cat, ds, batches, false, report)
}

// retryFailed re-attempts exactly the ids currently checkpointed as failed
// for the category, removing the ones that now succeed.
func (o *Orchestrator) retryFailed(ctx context.Context, cat models.Category, report *models.ScrapeReport) error {
	st, err := o.state.Load()
	if err != nil {
		return err
	}
	// The target cap applies to the initial scrape only: a retry pass
	// counts toward RetriesCompleted, so it must cover the whole set.
	batches := Batches(st.FailedFor(cat), 0, o.cfg.BatchSize)
	if len(batches) == 0 {
		slog.Info("nothing to run", slog.String("category", string(cat)))
		return nil
	}

	ds, err := o.data.Load(cat)
	if err != nil {
		return fmt.Errorf("load %s dataset: %w", cat, err)
	}
	return o.runBatches(ctx, cat, ds, batches, true, report)
}

// runBatches is the per-batch fetch/merge/checkpoint cycle. Batches run
// strictly sequentially; the checkpoint is re-read fresh before every write
// so out-of-band edits between batches are honored.
func (o *Orchestrator) runBatches(ctx context.Context, cat models.Category, ds *dataset.Dataset, batches [][]int64, retryPass bool, report *models.ScrapeReport) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = o.cfg.FailureBackoff
	bo.MaxInterval = o.cfg.FailureBackoffMax
	bo.MaxElapsedTime = 0

	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			return err
		}
		slog.Info("starting batch",
			slog.String("category", string(cat)),
			slog.Int("batch", i+1),
			slog.Int("of", len(batches)),
			slog.Int("ids", len(batch)),
		)

		res, err := o.fetcher.FetchBatch(ctx, cat, batch)
		if err != nil {
			return fmt.Errorf("fetch %s batch: %w", cat, err)
		}

		added := ds.Merge(res.Records)
		if added > 0 {
			if err := o.data.Save(cat, ds); err != nil {
				return fmt.Errorf("persist %s dataset: %w", cat, err)
			}
		}
		o.metrics.AddRows(added)

		st, err := o.state.Load()
		if err != nil {
			return err
		}
		if retryPass {
			st.RemoveFailed(cat, succeededIDs(batch, res.Failed)...)
		} else {
			st.AddFailed(cat, res.Failed...)
		}
		if err := o.state.Save(st); err != nil {
			return fmt.Errorf("persist checkpoint: %w", err)
		}

		report.BatchesRun++
		report.RowsAdded[cat] += added
		slog.Info("batch done",
			slog.String("category", string(cat)),
			slog.Int("batch", i+1),
			slog.Int("new_rows", added),
			slog.Int("failed", len(res.Failed)),
			slog.Duration("took", res.Duration),
		)

		if res.AllFailed() {
			o.metrics.IncBatch("all_failed")
			wait := bo.NextBackOff()
			slog.Warn("whole batch failed, endpoint may be down",
				slog.String("category", string(cat)),
				slog.Int("ids", len(batch)),
				slog.Duration("backoff", wait),
			)
			if err := sleep(ctx, wait); err != nil {
				return err
			}
		} else {
			o.metrics.IncBatch("ok")
			bo.Reset()
		}
	}
	return nil
}

// succeededIDs returns the batch members that are not in failed.
func succeededIDs(batch, failed []int64) []int64 {
	failedSet := make(map[int64]struct{}, len(failed))
	for _, id := range failed {
		failedSet[id] = struct{}{}
	}
	out := make([]int64, 0, len(batch)-len(failed))
	for _, id := range batch {
		if _, ok := failedSet[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
