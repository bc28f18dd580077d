package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/apecorreia/ProductScraper/internal/adapter/memory"
	"github.com/apecorreia/ProductScraper/internal/adapter/spill"
	"github.com/apecorreia/ProductScraper/internal/entity"
	"github.com/apecorreia/ProductScraper/internal/monitoring"
	"github.com/apecorreia/ProductScraper/internal/repository"
)

func testCommitter(t *testing.T, store *memory.ProductStore, threshold, retries int) *Committer {
	t.Helper()
	c := NewCommitter("continente", store, spill.NewNDJSONWriter(t.TempDir()),
		threshold, retries, time.Millisecond,
		monitoring.NewMetrics(prometheus.NewRegistry()), zap.NewNop())
	c.wait = func(context.Context, time.Duration) error { return nil }
	return c
}

func commitRecord(i int) repository.CommitRecord {
	return repository.CommitRecord{Record: &entity.Record{
		Raw:         entity.RawRecord{Source: "continente", Name: fmt.Sprintf("product %d", i)},
		Fingerprint: fmt.Sprintf("fp-%04d", i),
	}}
}

func TestFlushAtThreshold(t *testing.T) {
	store := memory.NewProductStore()
	c := testCommitter(t, store, 1000, 3)
	ctx := context.Background()

	for i := 0; i < 1350; i++ {
		require.NoError(t, c.Add(ctx, commitRecord(i)))
	}
	assert.Equal(t, 1, store.Commits, "exactly one automatic flush at the threshold")
	assert.Equal(t, 350, c.Pending())

	require.NoError(t, c.Flush(ctx))
	assert.Equal(t, 2, store.Commits)
	assert.Equal(t, 1350, store.Len())
	assert.Equal(t, 0, c.Pending())
	assert.Equal(t, CommitStats{Inserted: 1350, Flushes: 2}, c.Stats())
}

func TestFlushEmptyIsNoop(t *testing.T) {
	store := memory.NewProductStore()
	c := testCommitter(t, store, 10, 3)

	require.NoError(t, c.Flush(context.Background()))
	assert.Zero(t, store.Commits)
}

func TestFlushRetriesTransientError(t *testing.T) {
	store := memory.NewProductStore()
	store.FailNext = 2
	c := testCommitter(t, store, 5, 3)
	ctx := context.Background()

	var waits []time.Duration
	c.wait = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}

	for i := 0; i < 5; i++ {
		require.NoError(t, c.Add(ctx, commitRecord(i)))
	}

	assert.Equal(t, 5, store.Len(), "batch committed on the third attempt")
	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond}, waits, "backoff doubles")
	assert.Zero(t, c.Stats().Spilled)
}

func TestFlushSpillsAfterRetriesExhausted(t *testing.T) {
	store := memory.NewProductStore()
	store.FailNext = 10
	dir := t.TempDir()
	c := NewCommitter("continente", store, spill.NewNDJSONWriter(dir),
		3, 2, time.Millisecond,
		monitoring.NewMetrics(prometheus.NewRegistry()), zap.NewNop())
	c.wait = func(context.Context, time.Duration) error { return nil }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, c.Add(ctx, commitRecord(i)))
	}

	// Nothing committed, batch spilled, buffer clear, run keeps going.
	assert.Zero(t, store.Len())
	assert.Equal(t, 3, c.Stats().Spilled)
	assert.Equal(t, 0, c.Pending())

	// The overflow log holds the whole batch for manual recovery.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	recovered, err := spill.Read(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	require.Len(t, recovered, 3)
	assert.Equal(t, "fp-0000", recovered[0].Record.Fingerprint)

	// Storage recovers: later batches commit normally.
	store.FailNext = 0
	require.NoError(t, c.Add(ctx, commitRecord(100)))
	require.NoError(t, c.Flush(ctx))
	assert.Equal(t, 1, store.Len())
}

func TestFlushSpillsWhenBackoffInterrupted(t *testing.T) {
	store := memory.NewProductStore()
	store.FailNext = 1
	dir := t.TempDir()
	c := NewCommitter("continente", store, spill.NewNDJSONWriter(dir),
		2, 3, time.Millisecond,
		monitoring.NewMetrics(prometheus.NewRegistry()), zap.NewNop())
	c.wait = func(context.Context, time.Duration) error { return context.Canceled }
	ctx := context.Background()

	// The cancelled backoff must not drop the drained batch.
	require.NoError(t, c.Add(ctx, commitRecord(1)))
	require.NoError(t, c.Add(ctx, commitRecord(2)))

	assert.Zero(t, store.Len())
	assert.Equal(t, 2, c.Stats().Spilled)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestReplacePreservesPositionAndBound(t *testing.T) {
	store := memory.NewProductStore()
	c := testCommitter(t, store, 3, 3)
	ctx := context.Background()

	require.NoError(t, c.Add(ctx, commitRecord(1)))
	require.NoError(t, c.Add(ctx, commitRecord(2)))

	// Same fingerprint, new price: replaces in place, no growth.
	updated := commitRecord(1).Record
	updated.PrimaryPrice = 9.99
	require.NoError(t, c.Replace(ctx, updated))
	assert.Equal(t, 2, c.Pending())

	require.NoError(t, c.Flush(ctx))
	got, ok := store.Get("fp-0001")
	require.True(t, ok)
	assert.Equal(t, 9.99, got.PrimaryPrice, "last-seen-in-run price wins")
}

func TestReplaceAfterFlushBecomesPriceUpdate(t *testing.T) {
	store := memory.NewProductStore()
	c := testCommitter(t, store, 2, 3)
	ctx := context.Background()

	require.NoError(t, c.Add(ctx, commitRecord(1)))
	require.NoError(t, c.Add(ctx, commitRecord(2))) // triggers flush

	updated := commitRecord(1).Record
	updated.PrimaryPrice = 5.49
	require.NoError(t, c.Replace(ctx, updated))
	require.NoError(t, c.Flush(ctx))

	got, ok := store.Get("fp-0001")
	require.True(t, ok)
	assert.Equal(t, 5.49, got.PrimaryPrice)
	assert.Equal(t, 1, c.Stats().Updated)
}
