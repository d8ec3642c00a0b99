package main

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"google.golang.org/grpc/health"

	"github.com/example/content-platform/internal/platform/auth"
	platformconfig "github.com/example/content-platform/internal/platform/config"
	"github.com/example/content-platform/internal/platform/db"
	"github.com/example/content-platform/internal/platform/events"
	"github.com/example/content-platform/internal/platform/httpserver"
	"github.com/example/content-platform/internal/platform/logging"
	"github.com/example/content-platform/internal/platform/natsconn"
	"github.com/example/content-platform/internal/platform/run"
	"github.com/example/content-platform/services/comments/internal/cache"
	"github.com/example/content-platform/services/comments/internal/config"
	"github.com/example/content-platform/services/comments/internal/cursor"
	"github.com/example/content-platform/services/comments/internal/grpcapi"
	"github.com/example/content-platform/services/comments/internal/handlers"
	"github.com/example/content-platform/services/comments/internal/idempotency"
	"github.com/example/content-platform/services/comments/internal/migrations"
	"github.com/example/content-platform/services/comments/internal/service"
	"github.com/example/content-platform/services/comments/internal/store"
	"github.com/example/content-platform/services/comments/internal/worker"
)

func main() {
	_ = godotenv.Load()

	appCfg, err := platformconfig.Load()
	if err != nil {
		panic(err)
	}
	log, err := logging.New(appCfg.LogLevel, appCfg.ServiceName)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load(appCfg)
	if err != nil {
		fatal(log, "invalid configuration", err)
	}

	pool := initPostgres(log, cfg)
	if pool != nil {
		defer pool.Close()
	}

	var (
		commentStore store.CommentStore = store.NewInMemoryCommentStore()
		entityStore  store.EntityStore  = store.NewInMemoryEntityStore()
	)
	if pool != nil {
		commentStore = store.NewPostgresCommentStore(pool)
		entityStore = store.NewPostgresEntityStore(pool)
	}
	entities := store.NewBreakerEntityStore(entityStore, gobreaker.Settings{
		MaxRequests: cfg.CBMaxRequests,
		Interval:    cfg.CBInterval,
		Timeout:     cfg.CBTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= cfg.CBFailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state change",
				zap.String("breaker", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})

	threadCache, rdb := initCache(log, cfg)
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	idem, err := idempotency.NewStore(rdb, pool, cfg.IdempotencyTTL, cfg.IsProduction)
	if err != nil {
		fatal(log, "idempotency store", err)
	}

	nc, js := initNATS(log, cfg)
	if nc != nil {
		defer nc.Close()
	}

	codec := cursor.NewCodec(cfg.CursorSecret)
	comments := &service.CommentService{
		Comments: commentStore,
		Entities: entities,
		Cursors:  codec,
		Cache:    threadCache,
		Events:   events.New(js, log),
		Log:      log,
		MaxDepth: cfg.MaxThreadDepth,
	}
	h := &handlers.Handlers{
		Entities: &service.EntityService{
			Entities: entities,
			Comments: comments,
			Cursors:  codec,
			Log:      log,
		},
		Comments:    comments,
		Idempotency: idem,
		Log:         log,
	}
	if cfg.WriteRatePerSec > 0 {
		limiter := httpserver.NewRateLimiter(float64(cfg.WriteRatePerSec), cfg.WriteBurst)
		limiter.TrustForwardedFor = cfg.TrustForwardedFor
		h.WriteLimit = limiter.Middleware
	}

	checks := []grpcapi.Check{
		{Name: "comments", Ping: commentStore.Ping},
		{Name: "entities", Ping: entities.Ping},
	}
	ready := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		for _, c := range checks {
			if err := c.Ping(ctx); err != nil {
				return err
			}
		}
		if entities.State() == gobreaker.StateOpen {
			return errors.New("entity store circuit open")
		}
		return nil
	}

	verifier := auth.JWTVerifier{Secret: []byte(cfg.JWTSecret)}
	r := chi.NewRouter()
	httpserver.SetupRouter(r, httpserver.RouterConfig{ReadyFunc: ready, Logger: log})
	r.Group(func(r chi.Router) {
		r.Use(auth.OptionalUser(verifier))
		h.Mount(r)
	})
	srv := httpserver.New(httpserver.Options{Addr: appCfg.HTTP.Addr, ServiceName: appCfg.ServiceName, Logger: log, Router: r})

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		fatal(log, "grpc listen", err)
	}
	healthSrv := health.NewServer()
	grpcSrv := grpcapi.NewServer(healthSrv)
	reporter := &grpcapi.HealthReporter{
		Health:   healthSrv,
		Checks:   checks,
		Interval: 10 * time.Second,
		Timeout:  2 * time.Second,
		Log:      log,
	}

	components := []run.Component{
		{
			Name:  "http",
			Start: srv.Start,
			Stop:  srv.Shutdown,
		},
		{
			Name: "grpc",
			Start: func(context.Context) error {
				log.Info("grpc server starting", zap.String("addr", cfg.GRPCAddr))
				return grpcSrv.Serve(lis)
			},
			Stop: func(ctx context.Context) error {
				healthSrv.Shutdown()
				stopped := make(chan struct{})
				go func() {
					grpcSrv.GracefulStop()
					close(stopped)
				}()
				select {
				case <-stopped:
				case <-ctx.Done():
					grpcSrv.Stop()
				}
				return nil
			},
		},
		{Name: "health-reporter", Start: reporter.Run},
	}

	// Instances with a private memory cache learn about writes made by
	// other instances from the event stream. A shared Redis cache is
	// already invalidated by the writer.
	if js != nil && rdb == nil {
		consumer := &worker.InvalidationConsumer{JS: js, Cache: threadCache, Log: log}
		components = append(components, run.Component{Name: "cache-invalidation", Start: consumer.Run})
	}

	code := run.New(log).WithSignals(components...)
	log.Info("exit", zap.Int("code", code))
	_ = log.Sync()
	run.Exit(code)
}

func fatal(log *zap.Logger, msg string, err error) {
	log.Error(msg, zap.Error(err))
	_ = log.Sync()
	run.Exit(1)
}

// initPostgres connects to DATABASE_URL and applies migrations when
// asked to. Outside production a missing or unreachable database falls
// back to the in-memory stores and nil is returned.
func initPostgres(log *zap.Logger, cfg config.Config) *pgxpool.Pool {
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set, using in-memory stores (development only)")
		return nil
	}

	if cfg.MigrateOnStart {
		if err := migrations.Up(cfg.DatabaseURL, log); err != nil {
			if cfg.IsProduction {
				fatal(log, "migrations failed", err)
			}
			log.Warn("migrations failed, falling back to in-memory stores", zap.Error(err))
			return nil
		}
	}

	pool, err := db.Open(context.Background(), db.Options{URL: cfg.DatabaseURL})
	if err != nil {
		if cfg.IsProduction {
			fatal(log, "postgres is required in production but unavailable", err)
		}
		log.Warn("postgres unavailable, falling back to in-memory stores", zap.Error(err))
		return nil
	}
	log.Info("comments store: postgres")
	return pool
}

// initCache prefers Redis when REDIS_URL is set. The returned client is
// shared with the idempotency store.
func initCache(log *zap.Logger, cfg config.Config) (cache.ThreadCache, *redis.Client) {
	if cfg.RedisURL == "" {
		log.Info("thread cache: memory")
		return cache.NewMemoryCache(cfg.CacheTTL), nil
	}
	rc, err := cache.NewRedisCache(cfg.RedisURL, cfg.CacheTTL)
	if err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err = rc.Ping(ctx)
		cancel()
		if err != nil {
			_ = rc.Close()
		}
	}
	if err != nil {
		if cfg.IsProduction {
			fatal(log, "redis is configured but unavailable", err)
		}
		log.Warn("redis unavailable, using memory thread cache", zap.Error(err))
		return cache.NewMemoryCache(cfg.CacheTTL), nil
	}
	log.Info("thread cache: redis")
	return rc, rc.Client
}

// initNATS connects to NATS and makes sure the comment event stream
// exists. Events are optional: any failure leaves both results nil.
func initNATS(log *zap.Logger, cfg config.Config) (*nats.Conn, nats.JetStreamContext) {
	if cfg.NATSURL == "" {
		log.Info("NATS_URL not set, comment events disabled")
		return nil, nil
	}
	nc, err := natsconn.Connect(natsconn.Options{URL: cfg.NATSURL})
	if err != nil {
		log.Warn("nats connect, comment events disabled", zap.Error(err))
		return nil, nil
	}
	js, err := nc.JetStream()
	if err != nil {
		log.Warn("jetstream unavailable, comment events disabled", zap.Error(err))
		nc.Close()
		return nil, nil
	}
	if err := natsconn.EnsureStream(js, worker.StreamName, []string{worker.SubjectPattern}, 24*time.Hour); err != nil {
		log.Warn("ensure comment event stream", zap.Error(err))
		nc.Close()
		return nil, nil
	}
	return nc, js
}
