package history

import (
	"context"
	"time"

	"github.com/contentpilot/reddit-autopost/internal/models"
)

// Filter narrows Query results. Zero values mean "no constraint".
type Filter struct {
	RunID     string
	Community string
	Outcome   models.Outcome
	From      time.Time
	To        time.Time
	Limit     int
}

// Store persists submission-attempt records. Records are append-only:
// nothing mutates them after write except soft delete.
type Store interface {
	Append(ctx context.Context, record models.HistoryRecord) error
	Query(ctx context.Context, filter Filter) ([]models.HistoryRecord, error)
	SoftDelete(ctx context.Context, id int64) error
	Close() error
}
