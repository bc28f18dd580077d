package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/apecorreia/ProductScraper/internal/entity"
	"github.com/apecorreia/ProductScraper/internal/extract"
	"github.com/apecorreia/ProductScraper/internal/monitoring"
	"github.com/apecorreia/ProductScraper/internal/normalize"
	"github.com/apecorreia/ProductScraper/internal/repository"
)

// Stats counts a single source's run outcomes.
type Stats struct {
	Ingested     int
	Admitted     int
	DuplicatesIn int
	DuplicatesDB int
	PriceUpdates int
	Flagged      int
	Commit       CommitStats
}

// Ingestor is the per-source stage chain: normalize -> extract -> dedup ->
// buffer. One Ingestor serves exactly one worker; records pass through it
// strictly in stream order.
type Ingestor struct {
	source     string
	normalizer *normalize.Normalizer
	brands     *extract.BrandExtractor
	dedup      *Deduplicator
	committed  repository.FingerprintIndex
	committer  *Committer
	diags      repository.DiagnosticsRepository
	metrics    *monitoring.Metrics
	logger     *zap.Logger
	stats      Stats

	// now stamps records; injectable for tests.
	now func() time.Time
}

func NewIngestor(
	source string,
	normalizer *normalize.Normalizer,
	brands *extract.BrandExtractor,
	committed repository.FingerprintIndex,
	committer *Committer,
	diags repository.DiagnosticsRepository,
	metrics *monitoring.Metrics,
	logger *zap.Logger,
) *Ingestor {
	return &Ingestor{
		source:     source,
		normalizer: normalizer,
		brands:     brands,
		dedup:      NewDeduplicator(committed),
		committed:  committed,
		committer:  committer,
		diags:      diags,
		metrics:    metrics,
		logger:     logger.With(zap.String("source", source)),
		now:        time.Now,
	}
}

// Ingest runs one raw record through the full chain. Data-quality problems
// degrade the record; only storage-level failures surface as errors.
func (in *Ingestor) Ingest(ctx context.Context, raw entity.RawRecord) error {
	in.stats.Ingested++
	in.metrics.RecordsIngested.WithLabelValues(in.source).Inc()

	rec := in.normalizeRecord(ctx, raw)
	in.extractFields(ctx, rec)

	decision, err := in.dedup.Check(ctx, rec)
	if err != nil {
		return err
	}

	switch decision {
	case DecisionAdmit:
		in.stats.Admitted++
		return in.committer.Add(ctx, repository.CommitRecord{Record: rec})
	case DecisionPriceUpdate:
		in.stats.PriceUpdates++
		in.metrics.PriceUpdates.WithLabelValues(in.source).Inc()
		// Evict the cached committed price now; this run's repeats resolve
		// against the in-run index, so the cache will not repopulate with
		// the old price before the update flushes.
		if ev, ok := in.committed.(repository.FingerprintEvictor); ok {
			if err := ev.Invalidate(ctx, rec.Fingerprint); err != nil {
				in.logger.Warn("failed to evict stale fingerprint", zap.Error(err))
			}
		}
		return in.committer.Add(ctx, repository.CommitRecord{Record: rec, PriceUpdate: true})
	case DecisionReplaceInRun:
		return in.committer.Replace(ctx, rec)
	case DecisionDropInRun:
		in.stats.DuplicatesIn++
		in.metrics.DuplicatesTotal.WithLabelValues(in.source, "in_run").Inc()
	case DecisionDropCommitted:
		in.stats.DuplicatesDB++
		in.metrics.DuplicatesTotal.WithLabelValues(in.source, "committed").Inc()
	}
	return nil
}

// Finish flushes any partially filled buffer. No record admitted before
// shutdown is ever silently lost.
func (in *Ingestor) Finish(ctx context.Context) error {
	if err := in.committer.Flush(ctx); err != nil {
		return err
	}
	in.stats.Commit = in.committer.Stats()
	return nil
}

// Pending returns the number of admitted records not yet committed.
func (in *Ingestor) Pending() int {
	return in.committer.Pending()
}

// Stats returns the run counters, including commit outcomes after Finish.
func (in *Ingestor) Stats() Stats {
	s := in.stats
	s.Commit = in.committer.Stats()
	return s
}

func (in *Ingestor) normalizeRecord(ctx context.Context, raw entity.RawRecord) *entity.Record {
	cat, sub := in.normalizer.Normalize(ctx, raw.Source, raw.Category, raw.SubCategory)
	if cat == normalize.Uncategorized {
		in.metrics.CategoryMisses.WithLabelValues(in.source).Inc()
	}

	rec := &entity.Record{
		Raw:                  raw,
		CanonicalCategory:    cat,
		CanonicalSubCategory: sub,
		Name:                 normalize.Clean(raw.Name),
		PrimaryPrice:         extract.ParsePrice(raw.PrimaryPrice),
		PrimaryPriceUnit:     extract.StandardizePriceUnit(raw.PrimaryPriceUnit),
		SecondaryPrice:       extract.ParsePrice(raw.SecondaryPrice),
		SecondaryPriceUnit:   extract.StandardizePriceUnit(raw.SecondaryPriceUnit),
		BeforeDiscountPrice:  extract.ParsePrice(raw.BeforeDiscountPrice),
		ScrapedAt:            in.now().UTC(),
	}
	rec.HasDiscount = rec.BeforeDiscountPrice > rec.PrimaryPrice && rec.BeforeDiscountPrice != 0
	return rec
}

func (in *Ingestor) extractFields(ctx context.Context, rec *entity.Record) {
	var extErr *entity.ExtractionError

	qty, err := extract.ParseQuantity(rec.Raw.QuantityText)
	rec.Quantity = qty
	if errors.As(err, &extErr) {
		in.flagRecord(ctx, rec, extErr)
	}

	brandText := rec.Raw.Brand
	if brandText == "" {
		brandText = rec.Raw.Name
	}
	brand, err := in.brands.Extract(brandText)
	rec.Brand = brand
	if errors.As(err, &extErr) {
		in.flagRecord(ctx, rec, extErr)
	}
}

// flagRecord marks an extraction failure and appends the SkippedRecord
// diagnostic. The record keeps flowing; partial data beats silent loss.
func (in *Ingestor) flagRecord(ctx context.Context, rec *entity.Record, extErr *entity.ExtractionError) {
	rec.ExtractionFailed = true
	in.stats.Flagged++
	in.metrics.ExtractionFails.WithLabelValues(in.source, extErr.Field).Inc()

	rawFields, _ := json.Marshal(rec.Raw)
	d := entity.SkippedRecord{
		Source:    in.source,
		Name:      rec.Raw.Name,
		RawFields: string(rawFields),
		Reason:    extErr.Error(),
		At:        in.now().UTC(),
	}
	if err := in.diags.RecordSkipped(ctx, d); err != nil {
		in.logger.Warn("failed to record skipped-record diagnostic", zap.Error(err))
	}
}
