package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Page bounds a query result window.
type Page struct {
	Limit  int
	Offset int
}

// DefaultPage is used when a caller passes a zero Page.
var DefaultPage = Page{Limit: 50}

// Normalize fills in defaults for zero-valued fields.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPage.Limit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// Repository is the append-only audit store with its paged query surface:
// retrieval by target, by user, by date range, or by event kind.
type Repository interface {
	Append(ctx context.Context, event *Event) error

	ListByTarget(ctx context.Context, targetID uuid.UUID, page Page) ([]*Event, int, error)
	ListByUser(ctx context.Context, userID uuid.UUID, page Page) ([]*Event, int, error)
	ListByTimeRange(ctx context.Context, from, to time.Time, page Page) ([]*Event, int, error)
	ListByKind(ctx context.Context, kind Kind, page Page) ([]*Event, int, error)
}
