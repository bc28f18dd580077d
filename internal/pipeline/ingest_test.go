package pipeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/apecorreia/ProductScraper/internal/adapter/memory"
	"github.com/apecorreia/ProductScraper/internal/adapter/spill"
	"github.com/apecorreia/ProductScraper/internal/entity"
	"github.com/apecorreia/ProductScraper/internal/extract"
	"github.com/apecorreia/ProductScraper/internal/monitoring"
	"github.com/apecorreia/ProductScraper/internal/normalize"
)

var testMapping = normalize.Mapping{
	Version: "test",
	Sources: map[string]normalize.SourceMapping{
		"continente": {
			Categories:    map[string]string{"mercearia": "grocery", "bebidas": "drinks"},
			SubCategories: map[string]string{"cervejas": "beer"},
		},
	},
}

func testIngestor(t *testing.T, store *memory.ProductStore, threshold int) (*Ingestor, *memory.DiagnosticsStore) {
	t.Helper()
	diags := memory.NewDiagnosticsStore()
	logger := zap.NewNop()
	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	committer := NewCommitter("continente", store, spill.NewNDJSONWriter(t.TempDir()),
		threshold, 3, time.Millisecond, metrics, logger)
	committer.wait = func(context.Context, time.Duration) error { return nil }

	in := NewIngestor("continente",
		normalize.New(testMapping, diags, logger),
		extract.NewBrandExtractor([]string{"sagres", "super bock", "mimosa"}),
		store, committer, diags, metrics, logger)
	return in, diags
}

func rawBeer(price string) entity.RawRecord {
	return entity.RawRecord{
		Source:       "continente",
		Category:     "Bebidas",
		SubCategory:  "Cervejas",
		Name:         "Cerveja Sagres Branca",
		QuantityText: "6x33cl",
		PrimaryPrice: price,
	}
}

func TestIngestAdmitsAndCommits(t *testing.T) {
	store := memory.NewProductStore()
	in, _ := testIngestor(t, store, 10)
	ctx := context.Background()

	require.NoError(t, in.Ingest(ctx, rawBeer("4,99 €")))
	require.NoError(t, in.Finish(ctx))

	require.Equal(t, 1, store.Len())
	stats := in.Stats()
	assert.Equal(t, 1, stats.Admitted)
	assert.Equal(t, 1, stats.Commit.Inserted)

	var rec *entity.Record
	for _, fp := range store.Fingerprints() {
		rec, _ = store.Get(fp)
	}
	require.NotNil(t, rec)
	assert.Equal(t, "drinks", rec.CanonicalCategory)
	assert.Equal(t, "beer", rec.CanonicalSubCategory)
	assert.Equal(t, "sagres", rec.Brand)
	assert.Equal(t, entity.Quantity{Value: 330, Unit: "ml", Items: 6, Total: 1980}, rec.Quantity)
	assert.Equal(t, 4.99, rec.PrimaryPrice)
	assert.False(t, rec.ExtractionFailed)
}

func TestIngestSecondRunIsIdempotent(t *testing.T) {
	store := memory.NewProductStore()
	ctx := context.Background()

	first, _ := testIngestor(t, store, 10)
	for i := 0; i < 5; i++ {
		raw := rawBeer("4,99 €")
		raw.Name = fmt.Sprintf("Cerveja Sagres %d", i)
		require.NoError(t, first.Ingest(ctx, raw))
	}
	require.NoError(t, first.Finish(ctx))
	require.Equal(t, 5, store.Len())

	// A fresh run over identical listings commits nothing new.
	second, _ := testIngestor(t, store, 10)
	for i := 0; i < 5; i++ {
		raw := rawBeer("4,99 €")
		raw.Name = fmt.Sprintf("Cerveja Sagres %d", i)
		require.NoError(t, second.Ingest(ctx, raw))
	}
	require.NoError(t, second.Finish(ctx))

	assert.Equal(t, 5, store.Len())
	stats := second.Stats()
	assert.Equal(t, 5, stats.DuplicatesDB)
	assert.Zero(t, stats.Admitted)
	assert.Zero(t, stats.Commit.Inserted)
}

func TestIngestPriceChangeBecomesUpdate(t *testing.T) {
	store := memory.NewProductStore()
	ctx := context.Background()

	first, _ := testIngestor(t, store, 10)
	require.NoError(t, first.Ingest(ctx, rawBeer("4,99 €")))
	require.NoError(t, first.Finish(ctx))

	second, _ := testIngestor(t, store, 10)
	require.NoError(t, second.Ingest(ctx, rawBeer("3,79 €")))
	require.NoError(t, second.Finish(ctx))

	assert.Equal(t, 1, store.Len(), "price change must not create a second row")
	stats := second.Stats()
	assert.Equal(t, 1, stats.PriceUpdates)
	assert.Equal(t, 1, stats.Commit.Updated)

	fps := store.Fingerprints()
	require.Len(t, fps, 1)
	rec, _ := store.Get(fps[0])
	assert.Equal(t, 3.79, rec.PrimaryPrice)
}

// evictingIndex records Invalidate calls, standing in for the redis-backed
// cache in front of committed storage.
type evictingIndex struct {
	*memory.ProductStore
	evicted []string
}

func (e *evictingIndex) Invalidate(_ context.Context, fp string) error {
	e.evicted = append(e.evicted, fp)
	return nil
}

func TestIngestPriceUpdateEvictsCachedFingerprint(t *testing.T) {
	store := memory.NewProductStore()
	ctx := context.Background()

	first, _ := testIngestor(t, store, 10)
	require.NoError(t, first.Ingest(ctx, rawBeer("4,99 €")))
	require.NoError(t, first.Finish(ctx))

	idx := &evictingIndex{ProductStore: store}
	diags := memory.NewDiagnosticsStore()
	logger := zap.NewNop()
	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	committer := NewCommitter("continente", store, spill.NewNDJSONWriter(t.TempDir()),
		10, 3, time.Millisecond, metrics, logger)
	second := NewIngestor("continente",
		normalize.New(testMapping, diags, logger),
		extract.NewBrandExtractor([]string{"sagres"}),
		idx, committer, diags, metrics, logger)

	require.NoError(t, second.Ingest(ctx, rawBeer("3,79 €")))
	require.NoError(t, second.Finish(ctx))

	// The stale cached price is dropped so later runs see the update and
	// classify the unchanged listing as a committed duplicate.
	fps := store.Fingerprints()
	require.Len(t, fps, 1)
	assert.Equal(t, fps, idx.evicted)

	// An exact repeat in the same run stays an in-run duplicate and does
	// not evict again.
	require.NoError(t, second.Ingest(ctx, rawBeer("3,79 €")))
	assert.Len(t, idx.evicted, 1)
}

func TestIngestInRunRepeatLastPriceWins(t *testing.T) {
	store := memory.NewProductStore()
	in, _ := testIngestor(t, store, 10)
	ctx := context.Background()

	require.NoError(t, in.Ingest(ctx, rawBeer("4,99 €")))
	require.NoError(t, in.Ingest(ctx, rawBeer("4,99 €"))) // exact repeat
	require.NoError(t, in.Ingest(ctx, rawBeer("3,79 €"))) // repeat, new price
	require.NoError(t, in.Finish(ctx))

	assert.Equal(t, 1, store.Len())
	assert.Equal(t, 1, in.Stats().DuplicatesIn)

	fps := store.Fingerprints()
	require.Len(t, fps, 1)
	rec, _ := store.Get(fps[0])
	assert.Equal(t, 3.79, rec.PrimaryPrice)
}

func TestIngestUnknownCategoryStillCommits(t *testing.T) {
	store := memory.NewProductStore()
	in, diags := testIngestor(t, store, 10)
	ctx := context.Background()

	raw := rawBeer("4,99 €")
	raw.Category = "Talho"
	require.NoError(t, in.Ingest(ctx, raw))
	require.NoError(t, in.Finish(ctx))

	require.Equal(t, 1, store.Len())
	fps := store.Fingerprints()
	rec, _ := store.Get(fps[0])
	assert.Equal(t, normalize.Uncategorized, rec.CanonicalCategory)
	require.Len(t, diags.Inconsistencies, 1)
	assert.Equal(t, "Talho", diags.Inconsistencies[0].RawCategory)
}

func TestIngestExtractionFailureFlagsRecord(t *testing.T) {
	store := memory.NewProductStore()
	in, diags := testIngestor(t, store, 10)
	ctx := context.Background()

	raw := rawBeer("4,99 €")
	raw.Name = "???"
	raw.QuantityText = "sortido"
	require.NoError(t, in.Ingest(ctx, raw))
	require.NoError(t, in.Finish(ctx))

	// Flagged records still commit with defaults in place of parsed fields.
	require.Equal(t, 1, store.Len())
	fps := store.Fingerprints()
	rec, _ := store.Get(fps[0])
	assert.True(t, rec.ExtractionFailed)
	assert.Equal(t, entity.Quantity{Value: 1, Unit: "un", Items: 1, Total: 1}, rec.Quantity)
	assert.NotEmpty(t, diags.Skipped)
}

func TestIngestDiscountDetection(t *testing.T) {
	store := memory.NewProductStore()
	in, _ := testIngestor(t, store, 10)
	ctx := context.Background()

	raw := rawBeer("3,79 €")
	raw.BeforeDiscountPrice = "4,99 €"
	require.NoError(t, in.Ingest(ctx, raw))
	require.NoError(t, in.Finish(ctx))

	fps := store.Fingerprints()
	require.Len(t, fps, 1)
	rec, _ := store.Get(fps[0])
	assert.True(t, rec.HasDiscount)
	assert.Equal(t, 4.99, rec.BeforeDiscountPrice)
}
