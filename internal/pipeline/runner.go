package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/apecorreia/ProductScraper/internal/entity"
	"github.com/apecorreia/ProductScraper/internal/monitoring"
	"github.com/apecorreia/ProductScraper/internal/progress"
	"github.com/apecorreia/ProductScraper/internal/source"
)

// IngestorFactory builds the per-source stage chain. Each worker gets its
// own Ingestor (and with it its own dedup state and batch buffer); workers
// share nothing else but the storage-backed tracker and fingerprint index.
type IngestorFactory func(src string) *Ingestor

// Runner drives one worker per source feed. Unit gating goes through the
// progress tracker; a source whose persisted progress is corrupted is
// aborted alone while the other sources keep running.
type Runner struct {
	feeds   []source.Feed
	tracker *progress.Tracker
	build   IngestorFactory
	metrics *monitoring.Metrics
	logger  *zap.Logger
}

func NewRunner(feeds []source.Feed, tracker *progress.Tracker, build IngestorFactory, metrics *monitoring.Metrics, logger *zap.Logger) *Runner {
	return &Runner{feeds: feeds, tracker: tracker, build: build, metrics: metrics, logger: logger}
}

// Run scrapes every feed concurrently and returns per-source stats. The
// returned error is non-nil only for run-level failures (cancellation);
// per-source failures are logged and reflected in the missing stats entry.
func (r *Runner) Run(ctx context.Context) (map[string]Stats, error) {
	results := make(map[string]Stats, len(r.feeds))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	for _, feed := range r.feeds {
		feed := feed
		g.Go(func() error {
			stats, err := r.runSource(ctx, feed)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				r.logger.Error("source aborted",
					zap.String("source", feed.Source()), zap.Error(err))
				return nil
			}
			mu.Lock()
			results[feed.Source()] = stats
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func (r *Runner) runSource(ctx context.Context, feed source.Feed) (Stats, error) {
	src := feed.Source()
	log := r.logger.With(zap.String("source", src))

	// Startup reconciliation: a unit left in_progress by a crash goes back
	// to not-started so this run re-attempts it.
	if err := r.tracker.Reconcile(ctx, src); err != nil {
		return Stats{}, fmt.Errorf("reconciling progress: %w", err)
	}

	units, err := feed.Units(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("listing units: %w", err)
	}

	ing := r.build(src)

	for _, unit := range units {
		err := r.tracker.BeginUnit(ctx, src, unit)
		switch {
		case errors.Is(err, entity.ErrUnitAlreadyCompleted):
			log.Debug("skipping completed unit", zap.String("unit", unit))
			continue
		case errors.Is(err, entity.ErrDailyLimitReached):
			log.Info("daily unit limit reached", zap.String("unit", unit))
			return r.finish(ctx, ing, log)
		case err != nil:
			r.salvage(ing, log)
			return Stats{}, fmt.Errorf("beginning unit %s: %w", unit, err)
		}

		if err := feed.Fetch(ctx, unit, func(raw entity.RawRecord) error {
			return ing.Ingest(ctx, raw)
		}); err != nil {
			if ctx.Err() != nil {
				r.salvage(ing, log)
				return Stats{}, ctx.Err()
			}
			// Failed unit: not marked completed, eligible for re-attempt on
			// the next run once reconciliation clears it.
			log.Warn("unit failed", zap.String("unit", unit), zap.Error(err))
			continue
		}

		if err := r.tracker.CompleteUnit(ctx, src, unit, len(units)); err != nil {
			r.salvage(ing, log)
			return Stats{}, fmt.Errorf("completing unit %s: %w", unit, err)
		}
		r.metrics.UnitsCompleted.WithLabelValues(src).Inc()
		log.Info("unit completed", zap.String("unit", unit))
	}

	return r.finish(ctx, ing, log)
}

// salvageTimeout bounds the detached final flush on an aborted source.
const salvageTimeout = 30 * time.Second

// salvage flushes whatever an aborted run left buffered. Units already
// marked completed will not be re-fetched today, so their records must land
// in storage or the overflow log before the worker exits. A detached
// context keeps the cancellation that aborted the run from cancelling the
// flush; on failure the flush itself spills.
func (r *Runner) salvage(ing *Ingestor, log *zap.Logger) {
	if ing.Pending() == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), salvageTimeout)
	defer cancel()
	if err := ing.Finish(ctx); err != nil {
		log.Error("failed to flush buffered records on abort", zap.Error(err))
		return
	}
	log.Info("buffered records flushed on abort")
}

func (r *Runner) finish(ctx context.Context, ing *Ingestor, log *zap.Logger) (Stats, error) {
	if err := ing.Finish(ctx); err != nil {
		return Stats{}, fmt.Errorf("final flush: %w", err)
	}
	stats := ing.Stats()
	log.Info("source finished",
		zap.Int("ingested", stats.Ingested),
		zap.Int("admitted", stats.Admitted),
		zap.Int("in_run_duplicates", stats.DuplicatesIn),
		zap.Int("committed_duplicates", stats.DuplicatesDB),
		zap.Int("price_updates", stats.PriceUpdates),
		zap.Int("flagged", stats.Flagged),
		zap.Int("inserted", stats.Commit.Inserted),
		zap.Int("updated", stats.Commit.Updated),
		zap.Int("spilled", stats.Commit.Spilled))
	return stats, nil
}
