package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/apecorreia/ProductScraper/internal/entity"
	"github.com/apecorreia/ProductScraper/internal/monitoring"
	"github.com/apecorreia/ProductScraper/internal/repository"
)

// Buffer is the bounded append-only staging area for admitted records. It
// never grows past its capacity; the committer flushes it the moment it
// fills.
type Buffer struct {
	capacity int
	recs     []repository.CommitRecord
	byFP     map[string]int
}

func NewBuffer(capacity int) *Buffer {
	return &Buffer{
		capacity: capacity,
		recs:     make([]repository.CommitRecord, 0, capacity),
		byFP:     make(map[string]int, capacity),
	}
}

// Append stages a record and reports whether the buffer is now full.
func (b *Buffer) Append(cr repository.CommitRecord) bool {
	b.byFP[cr.Record.Fingerprint] = len(b.recs)
	b.recs = append(b.recs, cr)
	return len(b.recs) >= b.capacity
}

// Replace swaps the staged record sharing r's fingerprint for r, keeping
// its position so stream order is preserved. Returns false when the earlier
// occurrence already flushed; the caller appends instead.
func (b *Buffer) Replace(r *entity.Record) bool {
	i, ok := b.byFP[r.Fingerprint]
	if !ok {
		return false
	}
	b.recs[i].Record = r
	return true
}

func (b *Buffer) Len() int { return len(b.recs) }

// Drain empties the buffer and returns its contents.
func (b *Buffer) Drain() []repository.CommitRecord {
	out := b.recs
	b.recs = make([]repository.CommitRecord, 0, b.capacity)
	b.byFP = make(map[string]int, b.capacity)
	return out
}

// CommitStats accumulates flush outcomes across a run.
type CommitStats struct {
	Inserted int
	Updated  int
	Rejected int
	Spilled  int
	Flushes  int
}

// Committer owns the buffer and the transactional flush discipline: a full
// buffer triggers one all-or-nothing commit; storage errors are retried with
// doubling backoff; a batch that exhausts its retries is spilled to the
// local overflow log and the run moves on.
type Committer struct {
	source  string
	buf     *Buffer
	repo    repository.ProductRepository
	spill   repository.SpillWriter
	retries int
	backoff time.Duration
	metrics *monitoring.Metrics
	logger  *zap.Logger
	stats   CommitStats

	// wait is injectable so backoff tests do not sleep.
	wait func(ctx context.Context, d time.Duration) error
}

func NewCommitter(
	source string,
	repo repository.ProductRepository,
	spill repository.SpillWriter,
	threshold, retries int,
	backoff time.Duration,
	metrics *monitoring.Metrics,
	logger *zap.Logger,
) *Committer {
	return &Committer{
		source:  source,
		buf:     NewBuffer(threshold),
		repo:    repo,
		spill:   spill,
		retries: retries,
		backoff: backoff,
		metrics: metrics,
		logger:  logger.With(zap.String("source", source)),
		wait:    sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Add stages an admitted record, flushing first if the buffer is full. The
// flush blocks the caller's record stream; that backpressure is what keeps
// the buffer bound honest.
func (c *Committer) Add(ctx context.Context, cr repository.CommitRecord) error {
	if c.buf.Append(cr) {
		return c.Flush(ctx)
	}
	return nil
}

// Replace applies last-seen-in-run-wins to a still-buffered record, or
// stages r as a fresh append when its predecessor already flushed — in that
// case storage resolves the conflict as a price update.
func (c *Committer) Replace(ctx context.Context, r *entity.Record) error {
	if c.buf.Replace(r) {
		return nil
	}
	return c.Add(ctx, repository.CommitRecord{Record: r, PriceUpdate: true})
}

// Flush commits everything currently buffered. Called automatically at
// capacity and once more at end-of-run for the remainder; flushing an empty
// buffer is a no-op.
func (c *Committer) Flush(ctx context.Context) error {
	batch := c.buf.Drain()
	if len(batch) == 0 {
		return nil
	}

	backoff := c.backoff
	var lastErr error
retry:
	for attempt := 1; attempt <= c.retries; attempt++ {
		start := time.Now()
		res, err := c.repo.CommitBatch(ctx, batch)
		c.metrics.FlushDuration.Observe(time.Since(start).Seconds())
		if err == nil {
			c.stats.Inserted += res.Inserted
			c.stats.Updated += res.Updated
			c.stats.Rejected += res.Rejected
			c.stats.Flushes++
			c.metrics.FlushesTotal.WithLabelValues("success").Inc()
			c.metrics.RecordsCommitted.WithLabelValues(c.source).Add(float64(res.Inserted + res.Updated))
			c.logger.Debug("batch committed",
				zap.Int("size", len(batch)),
				zap.Int("inserted", res.Inserted),
				zap.Int("updated", res.Updated))
			return nil
		}

		lastErr = err
		c.metrics.FlushesTotal.WithLabelValues("retry").Inc()
		c.logger.Warn("batch commit failed",
			zap.Int("attempt", attempt), zap.Int("size", len(batch)), zap.Error(err))
		if attempt < c.retries {
			// An interrupted backoff (shutdown) must not drop the drained
			// batch; it goes to the overflow log like an exhausted retry.
			if werr := c.wait(ctx, backoff); werr != nil {
				c.logger.Warn("backoff interrupted, spilling batch", zap.Error(werr))
				break retry
			}
			backoff *= 2
		}
	}

	// Retries exhausted or interrupted: spill and keep the run moving.
	path, err := c.spill.Spill(ctx, batch)
	if err != nil {
		return fmt.Errorf("batch commit failed (%w) and spill failed: %v", lastErr, err)
	}
	c.stats.Spilled += len(batch)
	c.metrics.FlushesTotal.WithLabelValues("spilled").Inc()
	c.metrics.BatchSpills.Inc()
	c.logger.Error("batch spilled to overflow log",
		zap.Int("size", len(batch)), zap.String("path", path), zap.Error(lastErr))
	return nil
}

// Pending returns the number of records awaiting commit.
func (c *Committer) Pending() int { return c.buf.Len() }

// Stats returns the accumulated flush outcomes.
func (c *Committer) Stats() CommitStats { return c.stats }
