package entity

import "time"

// ProgressStatus is the per (source, day) scrape state.
type ProgressStatus string

const (
	ProgressNotStarted   ProgressStatus = "not_started"
	ProgressInProgress   ProgressStatus = "in_progress"
	ProgressLimitReached ProgressStatus = "limit_reached"
	ProgressExhausted    ProgressStatus = "exhausted"
)

// Valid reports whether s is one of the known states.
func (s ProgressStatus) Valid() bool {
	switch s {
	case ProgressNotStarted, ProgressInProgress, ProgressLimitReached, ProgressExhausted:
		return true
	}
	return false
}

// ProgressState tracks which work units (categories) a source has completed
// on a given day. It is the only mutable state shared across process
// restarts, persisted through the progress repository with optimistic
// version checks.
type ProgressState struct {
	Source         string         `json:"source"`
	Day            string         `json:"day"` // YYYY-MM-DD
	Status         ProgressStatus `json:"status"`
	CompletedUnits []string       `json:"completed_units"`
	Count          int            `json:"count"`
	ActiveUnit     string         `json:"active_unit,omitempty"`
	Version        int64          `json:"version"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// DayKey formats t as the calendar-date key used for progress rows.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// UnitCompleted reports whether the unit is already recorded as done.
func (s *ProgressState) UnitCompleted(unit string) bool {
	for _, u := range s.CompletedUnits {
		if u == unit {
			return true
		}
	}
	return false
}
