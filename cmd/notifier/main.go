package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/davidleathers/dependable-notify-backend/internal/domain/notification"
	"github.com/davidleathers/dependable-notify-backend/internal/infrastructure/cache"
	"github.com/davidleathers/dependable-notify-backend/internal/infrastructure/config"
	"github.com/davidleathers/dependable-notify-backend/internal/infrastructure/messaging"
	"github.com/davidleathers/dependable-notify-backend/internal/infrastructure/notify"
	"github.com/davidleathers/dependable-notify-backend/internal/infrastructure/repository"
	"github.com/davidleathers/dependable-notify-backend/internal/infrastructure/telemetry"
	"github.com/davidleathers/dependable-notify-backend/internal/infrastructure/toast"
	"github.com/davidleathers/dependable-notify-backend/internal/service/digest"
	"github.com/davidleathers/dependable-notify-backend/internal/service/regulation"
	"github.com/davidleathers/dependable-notify-backend/internal/service/suppression"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		log.Fatalf("notifier failed: %v", err)
	}
}

func run(configPath string) error {
	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := telemetry.NewLogger(cfg.LogLevel, cfg.IsDevelopment())
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := newPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.URL,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}

	repos := repository.NewRepositories(pool)

	var persistence suppression.Persistence = repos.Suppression
	if cfg.Suppression.Store == "redis" {
		store, err := cache.NewSuppressionStore(redisClient, logger)
		if err != nil {
			return fmt.Errorf("building suppression store: %w", err)
		}
		persistence = store
	}

	consumer := cfg.Transport.ConsumerName
	if consumer == "" {
		consumer, _ = os.Hostname()
	}
	transport := messaging.NewStreamsTransport(redisClient, logger, messaging.StreamsConfig{
		Group:         cfg.Transport.ConsumerGroup,
		Consumer:      consumer,
		Block:         cfg.Transport.BlockTimeout,
		MaxDeliveries: cfg.Transport.MaxDeliveries,
	})
	defer transport.Close()

	hub := toast.NewHub(toast.DefaultConfig(), logger)
	defer hub.Close()

	core := buildCore(cfg, hub, logger)

	// The orchestrator, engine, and consolidator reference each other through
	// callbacks registered at construction; svc is assigned before anything
	// starts consuming.
	var svc regulation.Service

	consolidator := digest.NewInProcessConsolidator(func(ctx context.Context, batch digest.Batch) {
		svc.HandleDigestReady(ctx, batch)
	}, nil, cfg.Digest.FlushInterval, logger)

	engine := suppression.NewEngine(
		transport,
		persistence,
		nil,
		suppression.Config{
			DecisionQueue:   cfg.Transport.DecisionQueue,
			ForwardQueue:    cfg.Transport.ForwardQueue,
			SuppressedQueue: cfg.Transport.SuppressedQueue,
			PauseDuration:   cfg.Suppression.PauseDuration,
		},
		prometheus.DefaultRegisterer,
		logger,
		func(ctx context.Context, req notification.SuppressionRequest) { svc.HandleAllowed(ctx, req) },
		func(ctx context.Context, req notification.SuppressionRequest) { svc.HandleSuppressed(ctx, req) },
	)

	svc = regulation.NewService(
		repos.Directory,
		repos.Directory,
		core,
		repos.Audit,
		engine.Producer(),
		consolidator,
		regulation.Config{
			ForwardQueue:    cfg.Transport.ForwardQueue,
			SuppressedQueue: cfg.Transport.SuppressedQueue,
			DigestMaxItems:  cfg.Digest.MaxItems,
			DefaultWindow:   cfg.Suppression.DefaultWindow,
			DigestHead:      cfg.Digest.Head,
			DigestTail:      cfg.Digest.Tail,
		},
		nil,
		logger,
	)

	if err := engine.Start(ctx); err != nil {
		return fmt.Errorf("starting suppression engine: %w", err)
	}
	consolidator.Start(ctx)

	if cfg.Suppression.Store == "postgres" && cfg.Suppression.PurgeInterval > 0 {
		go purgeLoop(ctx, repos.Suppression, cfg.Suppression.PurgeInterval, logger)
	}

	server := newHTTPServer(cfg, svc, repos.Directory, hub, logger)
	errCh := make(chan error, 1)
	go func() {
		logger.Info("notifier listening", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing database url: %w", err)
	}
	if cfg.Database.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.Database.MaxOpenConns)
	}
	if cfg.Database.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating database pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	return pool, nil
}

// buildCore assembles the delivery core. Without provider credentials every
// outbound channel logs instead of sending, which keeps development and CI
// environments quiet.
func buildCore(cfg *config.Config, hub *toast.Hub, logger *zap.Logger) *notify.Core {
	sender := notify.NewLogSender(logger)
	limits := notify.Limits{
		CallPerSecond:  cfg.Providers.Call.RequestsPerSecond,
		CallBurst:      cfg.Providers.Call.Burst,
		EmailPerSecond: cfg.Providers.Email.RequestsPerSecond,
		EmailBurst:     cfg.Providers.Email.Burst,
		SMSPerSecond:   cfg.Providers.SMS.RequestsPerSecond,
		SMSBurst:       cfg.Providers.SMS.Burst,
	}
	return notify.NewCore(sender, sender, sender, hub, limits, logger)
}

func purgeLoop(ctx context.Context, repo *repository.SuppressionRepository, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purged, err := repo.PurgeExpired(ctx)
			if err != nil {
				logger.Warn("suppression window purge failed", zap.Error(err))
				continue
			}
			if purged > 0 {
				logger.Debug("purged expired suppression windows", zap.Int64("count", purged))
			}
		}
	}
}

func newHTTPServer(cfg *config.Config, svc regulation.Service, directory *repository.DirectoryRepository,
	hub *toast.Hub, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/ws/toasts", hub)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/v1/notifications", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var msg notification.NotificationMessage
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		if err := svc.Notify(r.Context(), &msg); err != nil {
			logger.Warn("notify request failed", zap.Error(err))
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("/v1/contacts", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var contact notification.NotificationContact
		if err := json.NewDecoder(r.Body).Decode(&contact); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		if contact.ID == uuid.Nil {
			http.Error(w, "contact id is required", http.StatusBadRequest)
			return
		}
		if err := directory.UpsertContact(r.Context(), &contact); err != nil {
			logger.Warn("contact upsert failed", zap.Error(err))
			http.Error(w, "store failure", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/v1/groups", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var group notification.NotificationGroup
		if err := json.NewDecoder(r.Body).Decode(&group); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		if group.ID == uuid.Nil {
			http.Error(w, "group id is required", http.StatusBadRequest)
			return
		}
		if err := directory.UpsertGroup(r.Context(), &group); err != nil {
			logger.Warn("group upsert failed", zap.Error(err))
			http.Error(w, "store failure", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}
