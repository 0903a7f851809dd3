package suppression

import (
	"sync"
	"time"
)

// DefaultPauseDuration is how long the engine blanket-suppresses after a
// persistence fault.
const DefaultPauseDuration = 15 * time.Minute

// emergencyPause is the fail-safe circuit breaker. A persistence fault trips
// it; until the pause expires every decision comes back Suppressed
// unconditionally, then normal operation resumes.
//
// Failing toward "drop" is deliberate: the persistence fault path may itself
// raise alerts that re-enter the notification system, and blanket-suppressing
// breaks that feedback loop where flooding would amplify it. The pause is
// process-local and uncoordinated; each engine instance degrades and recovers
// on its own.
type emergencyPause struct {
	mu       sync.Mutex
	until    time.Time
	duration time.Duration
	clock    Clock
}

func newEmergencyPause(duration time.Duration, clock Clock) *emergencyPause {
	if duration <= 0 {
		duration = DefaultPauseDuration
	}
	return &emergencyPause{duration: duration, clock: clock}
}

// Trip starts (or restarts) the blanket-suppress pause.
func (p *emergencyPause) Trip() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.until = p.clock.Now().Add(p.duration)
}

// Active reports whether the pause is still in effect.
func (p *emergencyPause) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clock.Now().Before(p.until)
}
