package digest

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/davidleathers/dependable-notify-backend/internal/domain/notification"
)

// DefaultFlushInterval is how often the consolidator checks for due batches.
const DefaultFlushInterval = 15 * time.Second

// InProcessConsolidator implements Consolidator with in-memory accumulation
// and a single timer goroutine releasing due batches. The first item of a key
// fixes the batch's release time and head/tail counts; later occurrences only
// append.
type InProcessConsolidator struct {
	mu      sync.Mutex
	pending map[string]*pendingDigest

	onReady       ReadyFunc
	clock         Clock
	flushInterval time.Duration
	logger        *zap.Logger
}

// NewInProcessConsolidator creates a consolidator delivering released batches
// to onReady. A nil clock uses the wall clock.
func NewInProcessConsolidator(onReady ReadyFunc, clock Clock, flushInterval time.Duration, logger *zap.Logger) *InProcessConsolidator {
	if clock == nil {
		clock = systemClock{}
	}
	if flushInterval <= 0 {
		flushInterval = DefaultFlushInterval
	}
	return &InProcessConsolidator{
		pending:       make(map[string]*pendingDigest),
		onReady:       onReady,
		clock:         clock,
		flushInterval: flushInterval,
		logger:        logger,
	}
}

// Add accumulates one occurrence under its correlation key.
func (c *InProcessConsolidator) Add(ctx context.Context, req notification.DigestRequest) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := req.Key.PropertyString()
	entry, ok := c.pending[id]
	if !ok {
		entry = &pendingDigest{
			key:       req.Key,
			releaseAt: req.ReleaseAt,
			head:      req.Head,
			tail:      req.Tail,
		}
		c.pending[id] = entry
	}
	entry.items = append(entry.items, req.Command)

	c.logger.Debug("digest occurrence accumulated",
		zap.String("subject", req.Command.Message.Subject),
		zap.Int("accumulated", len(entry.items)),
		zap.Time("release_at", entry.releaseAt))
	return nil
}

// Start runs the flush loop until ctx is canceled.
func (c *InProcessConsolidator) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(c.flushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.flushDue(ctx)
			}
		}
	}()
}

// flushDue releases every batch whose release time has elapsed. Callbacks run
// outside the lock.
func (c *InProcessConsolidator) flushDue(ctx context.Context) {
	now := c.clock.Now()

	c.mu.Lock()
	var due []*pendingDigest
	for id, entry := range c.pending {
		if !now.Before(entry.releaseAt) {
			due = append(due, entry)
			delete(c.pending, id)
		}
	}
	c.mu.Unlock()

	for _, entry := range due {
		c.logger.Info("releasing digest batch",
			zap.String("subject", entry.key.Subject),
			zap.Int("items", len(entry.items)))
		c.onReady(ctx, Batch{
			Key:   entry.key,
			Items: entry.items,
			Head:  entry.head,
			Tail:  entry.tail,
		})
	}
}

// PendingCount reports how many keys are currently accumulating.
func (c *InProcessConsolidator) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
