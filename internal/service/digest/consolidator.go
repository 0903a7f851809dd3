package digest

import (
	"context"
	"time"

	"github.com/davidleathers/dependable-notify-backend/internal/domain/notification"
)

// Batch is one released digest: the accumulated occurrences for a correlation
// key in arrival order, plus the head/tail counts bounding how many of them
// are rendered verbatim in the final message.
type Batch struct {
	Key   notification.Correlation
	Items []notification.ExecuteNotifyCommand
	Head  int
	Tail  int
}

// ReadyFunc receives each released batch. Registered at construction.
type ReadyFunc func(ctx context.Context, batch Batch)

// Consolidator accumulates correlated items until their release time elapses,
// then emits one combined batch through the ready callback.
type Consolidator interface {
	Add(ctx context.Context, req notification.DigestRequest) error
}

// Clock abstracts time for release checks.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

type pendingDigest struct {
	key       notification.Correlation
	items     []notification.ExecuteNotifyCommand
	releaseAt time.Time
	head      int
	tail      int
}
