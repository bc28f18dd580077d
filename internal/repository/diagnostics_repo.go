package repository

import (
	"context"

	"github.com/apecorreia/ProductScraper/internal/entity"
)

// DiagnosticsRepository is the append-only sink for data-quality events.
// Implementations must never block the pipeline; failures to record a
// diagnostic are logged and swallowed by callers.
type DiagnosticsRepository interface {
	RecordInconsistency(ctx context.Context, d entity.CategoryInconsistency) error
	RecordSkipped(ctx context.Context, d entity.SkippedRecord) error
}
