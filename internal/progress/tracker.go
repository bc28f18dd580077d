package progress

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/apecorreia/ProductScraper/internal/entity"
	"github.com/apecorreia/ProductScraper/internal/repository"
)

// casAttempts bounds the reload-and-retry loop on version conflicts.
const casAttempts = 5

// Tracker enforces the per (source, day) work-unit state machine:
// not_started -> in_progress -> limit_reached | exhausted. Every transition
// is persisted before the corresponding unit processes records, so a crash
// mid-unit is recoverable by re-running the unit.
type Tracker struct {
	repo   repository.ProgressRepository
	limit  int
	logger *zap.Logger

	// Now is injectable for day-boundary tests.
	Now func() time.Time
}

// NewTracker builds a Tracker with the configured daily unit limit.
func NewTracker(repo repository.ProgressRepository, dailyLimit int, logger *zap.Logger) *Tracker {
	return &Tracker{repo: repo, limit: dailyLimit, logger: logger, Now: time.Now}
}

func (t *Tracker) today() string {
	return entity.DayKey(t.Now().UTC())
}

func (t *Tracker) load(ctx context.Context, source, day string) (*entity.ProgressState, error) {
	st, err := t.repo.Load(ctx, source, day)
	if err != nil {
		return nil, err
	}
	if st == nil {
		st = &entity.ProgressState{
			Source: source,
			Day:    day,
			Status: entity.ProgressNotStarted,
		}
	}
	return st, nil
}

// Reconcile clears a stale active unit left behind by a crash. The unit is
// not marked completed, so the next run re-attempts it; re-submitting its
// records is a no-op at the dedup stage.
func (t *Tracker) Reconcile(ctx context.Context, source string) error {
	return t.transition(ctx, source, func(st *entity.ProgressState) error {
		if st.ActiveUnit == "" {
			return errNoChange
		}
		t.logger.Warn("resetting stale in-progress unit",
			zap.String("source", source), zap.String("unit", st.ActiveUnit))
		st.ActiveUnit = ""
		if st.Count == 0 {
			st.Status = entity.ProgressNotStarted
		}
		return nil
	})
}

// BeginUnit gates a work unit. It returns entity.ErrUnitAlreadyCompleted
// for units finished earlier today, entity.ErrDailyLimitReached once the
// configured limit is hit, and otherwise durably records the unit as active
// before any of its records are processed.
func (t *Tracker) BeginUnit(ctx context.Context, source, unit string) error {
	var refuse error
	err := t.transition(ctx, source, func(st *entity.ProgressState) error {
		refuse = nil
		if st.UnitCompleted(unit) {
			return entity.ErrUnitAlreadyCompleted
		}
		if st.Count >= t.limit {
			refuse = entity.ErrDailyLimitReached
			if st.Status == entity.ProgressLimitReached {
				return errNoChange
			}
			st.Status = entity.ProgressLimitReached
			return nil
		}
		st.Status = entity.ProgressInProgress
		st.ActiveUnit = unit
		return nil
	})
	if err != nil {
		return err
	}
	return refuse
}

// CompleteUnit records a finished unit (success or permanent failure),
// incrementing the monotonic daily count. totalUnits is the number of known
// units for the source today; when all are done the source transitions to
// exhausted.
func (t *Tracker) CompleteUnit(ctx context.Context, source, unit string, totalUnits int) error {
	return t.transition(ctx, source, func(st *entity.ProgressState) error {
		if st.UnitCompleted(unit) {
			return errNoChange
		}
		st.CompletedUnits = append(st.CompletedUnits, unit)
		st.Count++
		if st.ActiveUnit == unit {
			st.ActiveUnit = ""
		}
		switch {
		case totalUnits > 0 && len(st.CompletedUnits) >= totalUnits:
			st.Status = entity.ProgressExhausted
		case st.Count >= t.limit:
			st.Status = entity.ProgressLimitReached
		default:
			st.Status = entity.ProgressInProgress
		}
		return nil
	})
}

// State returns the persisted state for (source, day). An empty day means
// today.
func (t *Tracker) State(ctx context.Context, source, day string) (*entity.ProgressState, error) {
	if day == "" {
		day = t.today()
	}
	return t.load(ctx, source, day)
}

// errNoChange aborts a transition without persisting or failing.
var errNoChange = errors.New("no state change")

// transition applies mutate under optimistic concurrency, reloading and
// retrying on version conflicts. BeginUnit's refusal errors pass through
// untouched.
func (t *Tracker) transition(ctx context.Context, source string, mutate func(*entity.ProgressState) error) error {
	day := t.today()
	var lastErr error
	for attempt := 0; attempt < casAttempts; attempt++ {
		st, err := t.load(ctx, source, day)
		if err != nil {
			return err
		}
		if err := mutate(st); err != nil {
			if errors.Is(err, errNoChange) {
				return nil
			}
			return err
		}
		if err := t.repo.Save(ctx, st); err != nil {
			if errors.Is(err, entity.ErrProgressConflict) {
				lastErr = err
				continue
			}
			return err
		}
		return nil
	}
	return fmt.Errorf("progress transition for %s did not settle: %w", source, lastErr)
}
