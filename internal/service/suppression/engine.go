package suppression

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/davidleathers/dependable-notify-backend/internal/infrastructure/messaging"
)

// Config configures a suppression engine instance.
type Config struct {
	// DecisionQueue carries envelopes from producers to the consumer worker.
	DecisionQueue string
	// ForwardQueue carries items the engine allowed.
	ForwardQueue string
	// SuppressedQueue carries items the engine suppressed, for producers that
	// asked to observe them.
	SuppressedQueue string
	// PauseDuration is the blanket-suppress pause after a persistence fault.
	PauseDuration time.Duration
}

// DefaultConfig returns the default queue layout and pause duration.
func DefaultConfig() Config {
	return Config{
		DecisionQueue:   "notify.suppression.decide",
		ForwardQueue:    "notify.suppression.allowed",
		SuppressedQueue: "notify.suppression.suppressed",
		PauseDuration:   DefaultPauseDuration,
	}
}

// Engine is the duplicate suppression engine: a producer/consumer pair
// decoupled by the transport, a persistence-backed decision core, and a
// fail-safe blanket-suppress pause. Producers and consumers may run in
// different processes; they share state only through the transport and the
// persistence collaborator.
type Engine struct {
	config   Config
	producer *Producer
	worker   *Worker
	receiver *ResultReceiver
	logger   *zap.Logger
}

// NewEngine wires an engine. The allowed/suppressed callbacks are registered
// here, at construction; pass a nil onSuppressed to drop suppressed items.
func NewEngine(
	transport messaging.Transport,
	persistence Persistence,
	clock Clock,
	config Config,
	registerer prometheus.Registerer,
	logger *zap.Logger,
	onAllowed AllowedFunc,
	onSuppressed SuppressedFunc,
) *Engine {
	if clock == nil {
		clock = SystemClock{}
	}

	var metrics *Metrics
	if registerer != nil {
		metrics = NewMetrics(registerer)
	}

	pause := newEmergencyPause(config.PauseDuration, clock)
	core := newDecisionCore(persistence, pause, clock, logger, metrics)

	suppressedQueue := config.SuppressedQueue
	if onSuppressed == nil {
		suppressedQueue = ""
	}

	return &Engine{
		config:   config,
		producer: NewProducer(transport, config.DecisionQueue, logger),
		worker:   newWorker(transport, config.DecisionQueue, core, logger, metrics),
		receiver: NewResultReceiver(transport, config.ForwardQueue, suppressedQueue, onAllowed, onSuppressed, logger),
		logger:   logger,
	}
}

// Producer returns the enqueue side for orchestrators to submit through.
func (e *Engine) Producer() *Producer {
	return e.producer
}

// ForwardQueue returns the queue allowed items are republished to.
func (e *Engine) ForwardQueue() string {
	return e.config.ForwardQueue
}

// SuppressedQueue returns the queue suppressed items are republished to.
func (e *Engine) SuppressedQueue() string {
	return e.config.SuppressedQueue
}

// Start attaches the consumer worker and the result listeners. They stop
// accepting new deliveries when ctx is canceled; in-flight items complete.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.worker.Start(ctx); err != nil {
		return err
	}
	if err := e.receiver.Start(ctx); err != nil {
		return err
	}
	e.logger.Info("suppression engine started",
		zap.String("decision_queue", e.config.DecisionQueue),
		zap.String("forward_queue", e.config.ForwardQueue),
		zap.String("suppressed_queue", e.config.SuppressedQueue))
	return nil
}
