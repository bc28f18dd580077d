package progress

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/apecorreia/ProductScraper/internal/adapter/memory"
	"github.com/apecorreia/ProductScraper/internal/entity"
)

func newTestTracker(t *testing.T, limit int) (*Tracker, *memory.ProgressStore) {
	t.Helper()
	store := memory.NewProgressStore()
	tr := NewTracker(store, limit, zap.NewNop())
	tr.Now = func() time.Time { return time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC) }
	return tr, store
}

func units(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("cat-%02d", i+1)
	}
	return out
}

func TestDailyLimitAcrossDays(t *testing.T) {
	tr, _ := newTestTracker(t, 10)
	ctx := context.Background()
	all := units(15)

	var day1 []string
	for _, u := range all {
		err := tr.BeginUnit(ctx, "continente", u)
		if errors.Is(err, entity.ErrDailyLimitReached) {
			break
		}
		require.NoError(t, err)
		require.NoError(t, tr.CompleteUnit(ctx, "continente", u, len(all)))
		day1 = append(day1, u)
	}
	assert.Len(t, day1, 10)

	st, err := tr.State(ctx, "continente", "")
	require.NoError(t, err)
	assert.Equal(t, entity.ProgressLimitReached, st.Status)
	assert.Equal(t, 10, st.Count)

	// Next day: the remaining five units are available again.
	tr.Now = func() time.Time { return time.Date(2025, 3, 11, 9, 0, 0, 0, time.UTC) }
	var day2 []string
	for _, u := range all {
		err := tr.BeginUnit(ctx, "continente", u)
		if errors.Is(err, entity.ErrUnitAlreadyCompleted) {
			continue
		}
		if errors.Is(err, entity.ErrDailyLimitReached) {
			break
		}
		require.NoError(t, err)
		require.NoError(t, tr.CompleteUnit(ctx, "continente", u, len(all)))
		day2 = append(day2, u)
	}
	// Day two starts fresh, so all 15 not-yet-begun-today units qualify.
	assert.Len(t, day2, 10)
}

func TestRestartSkipsCompletedUnits(t *testing.T) {
	tr, store := newTestTracker(t, 10)
	ctx := context.Background()
	all := units(10)

	for _, u := range all[:4] {
		require.NoError(t, tr.BeginUnit(ctx, "auchan", u))
		require.NoError(t, tr.CompleteUnit(ctx, "auchan", u, len(all)))
	}
	// Crash mid-unit 5: BeginUnit persisted, CompleteUnit never ran.
	require.NoError(t, tr.BeginUnit(ctx, "auchan", all[4]))

	// "Restart": fresh tracker over the same persisted store.
	tr2 := NewTracker(store, 10, zap.NewNop())
	tr2.Now = tr.Now
	require.NoError(t, tr2.Reconcile(ctx, "auchan"))

	var resumed []string
	for _, u := range all {
		err := tr2.BeginUnit(ctx, "auchan", u)
		if errors.Is(err, entity.ErrUnitAlreadyCompleted) {
			continue
		}
		require.NoError(t, err)
		resumed = append(resumed, u)
		require.NoError(t, tr2.CompleteUnit(ctx, "auchan", u, len(all)))
	}
	require.NotEmpty(t, resumed)
	assert.Equal(t, all[4], resumed[0], "unit 5 resumes first after restart")

	st, err := tr2.State(ctx, "auchan", "")
	require.NoError(t, err)
	assert.Equal(t, entity.ProgressExhausted, st.Status)
	assert.Empty(t, st.ActiveUnit)
}

func TestCountIsMonotonic(t *testing.T) {
	tr, _ := newTestTracker(t, 10)
	ctx := context.Background()

	require.NoError(t, tr.BeginUnit(ctx, "pingo_doce", "cat-01"))
	require.NoError(t, tr.CompleteUnit(ctx, "pingo_doce", "cat-01", 3))
	// Completing the same unit twice must not double-count.
	require.NoError(t, tr.CompleteUnit(ctx, "pingo_doce", "cat-01", 3))

	st, err := tr.State(ctx, "pingo_doce", "")
	require.NoError(t, err)
	assert.Equal(t, 1, st.Count)
}

func TestBeginPersistsBeforeProcessing(t *testing.T) {
	tr, store := newTestTracker(t, 10)
	ctx := context.Background()

	require.NoError(t, tr.BeginUnit(ctx, "auchan", "cat-01"))

	st, err := store.Load(ctx, "auchan", "2025-03-10")
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, entity.ProgressInProgress, st.Status)
	assert.Equal(t, "cat-01", st.ActiveUnit)
}

func TestConflictRetry(t *testing.T) {
	tr, store := newTestTracker(t, 10)
	ctx := context.Background()

	// Two trackers over one store simulate two workers racing on the same
	// source; both completions must land, neither lost.
	tr2 := NewTracker(store, 10, zap.NewNop())
	tr2.Now = tr.Now

	require.NoError(t, tr.BeginUnit(ctx, "continente", "cat-01"))
	require.NoError(t, tr2.BeginUnit(ctx, "continente", "cat-02"))
	require.NoError(t, tr.CompleteUnit(ctx, "continente", "cat-01", 5))
	require.NoError(t, tr2.CompleteUnit(ctx, "continente", "cat-02", 5))

	st, err := tr.State(ctx, "continente", "")
	require.NoError(t, err)
	assert.Equal(t, 2, st.Count)
}
