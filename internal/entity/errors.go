package entity

import "errors"

var (
	// ErrDailyLimitReached is returned by the progress tracker once a source
	// has completed its configured number of units for the day.
	ErrDailyLimitReached = errors.New("daily unit limit reached")

	// ErrUnitAlreadyCompleted is returned when a unit was finished in an
	// earlier run on the same day and must be skipped.
	ErrUnitAlreadyCompleted = errors.New("unit already completed today")

	// ErrProgressConflict signals a lost optimistic-concurrency race on the
	// progress row; the transition should be reloaded and retried.
	ErrProgressConflict = errors.New("progress state version conflict")

	// ErrProgressCorrupted signals unreadable or inconsistent persisted
	// progress state. Fatal for the affected source only.
	ErrProgressCorrupted = errors.New("progress state corrupted")
)

// ExtractionError describes a quantity or brand string the extractor could
// not parse. It degrades the record, it never drops it.
type ExtractionError struct {
	Field string
	Input string
}

func (e *ExtractionError) Error() string {
	return "cannot extract " + e.Field + " from " + `"` + e.Input + `"`
}
