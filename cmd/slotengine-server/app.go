package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/clinicbook/slotengine/internal/config"
	"github.com/clinicbook/slotengine/internal/domain/appointment"
	"github.com/clinicbook/slotengine/internal/domain/availability"
	"github.com/clinicbook/slotengine/internal/domain/closure"
	"github.com/clinicbook/slotengine/internal/domain/reservation"
	"github.com/clinicbook/slotengine/internal/domain/schedulerule"
	"github.com/clinicbook/slotengine/internal/domain/servicepolicy"
	"github.com/clinicbook/slotengine/internal/domain/slot"
	"github.com/clinicbook/slotengine/internal/platform/audit"
	"github.com/clinicbook/slotengine/internal/platform/auth"
	"github.com/clinicbook/slotengine/internal/platform/clock"
	"github.com/clinicbook/slotengine/internal/platform/db"
	"github.com/clinicbook/slotengine/internal/platform/middleware"
	"github.com/clinicbook/slotengine/internal/platform/queue"
	"github.com/clinicbook/slotengine/internal/platform/redisx"
	"github.com/clinicbook/slotengine/internal/platform/telemetry"
)

const version = "0.1.0"

// app holds the wired engine for one process.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger

	pool      *pgxpool.Pool
	redis     *redis.Client
	scheduler *queue.Scheduler
	worker    *queue.Worker

	rules    *schedulerule.Service
	closures *closure.Service
	policies *servicepolicy.Service
	slots    *slot.Service
	appts    *appointment.Service
	eval     *availability.Evaluator
	mgr      *reservation.Manager
	sweeper  *reservation.Sweeper
	events   audit.Reader
	metrics  *telemetry.Metrics
}

type stores struct {
	tx       db.TxRunner
	rules    schedulerule.Repository
	closures closure.Repository
	policies servicepolicy.Repository
	slots    slot.Repository
	appts    appointment.Repository
}

func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, metrics: telemetry.New()}
	clk := clock.System{}
	sinks := audit.Fanout{
		audit.LogSink{Logger: logger.With().Str("component", "events").Logger()},
		a.metrics,
	}

	var st stores
	switch cfg.StoreBackend {
	case config.BackendMemory:
		st = stores{
			tx:       db.NewLocalTxRunner(),
			rules:    schedulerule.NewMemoryRepo(),
			closures: closure.NewMemoryRepo(),
			policies: servicepolicy.NewMemoryRepo(),
			slots:    slot.NewMemoryRepo(),
			appts:    appointment.NewMemoryRepo(),
		}
		rec := audit.NewRecorder()
		sinks = append(sinks, rec)
		a.events = rec
		logger.Warn().Msg("using in-memory store; state is lost on restart")
	default:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		a.pool = pool
		a.metrics.WithPool(pool)
		st = stores{
			tx:       db.NewTxRunner(pool),
			rules:    schedulerule.NewRepoPG(pool),
			closures: closure.NewRepoPG(pool),
			policies: servicepolicy.NewRepoPG(pool),
			slots:    slot.NewRepoPG(pool),
			appts:    appointment.NewRepoPG(pool),
		}
		pgSink := audit.NewPGSink(pool)
		sinks = append(sinks, pgSink)
		a.events = pgSink
		logger.Info().Msg("connected to database")
	}

	var locker reservation.Locker
	if cfg.RedisURL != "" {
		client, err := redisx.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			a.close()
			return nil, err
		}
		a.redis = client
		sinks = append(sinks, audit.NewRedisPublisher(client, cfg.EventsChannel))
		locker = redisx.NewLocker(client, "slotengine:sweeper", cfg.SweepInterval)
		logger.Info().Str("channel", cfg.EventsChannel).Msg("connected to redis")
	}

	a.rules = schedulerule.NewService(st.rules)
	a.closures = closure.NewService(st.closures)
	a.policies = servicepolicy.NewService(st.policies)
	a.slots = slot.NewService(st.slots, a.rules, clk, loc, logger)
	a.appts = appointment.NewService(st.appts)
	a.eval = availability.NewEvaluator(a.rules, a.closures, a.policies, a.slots, clk, loc, logger)
	a.mgr = reservation.NewManager(st.tx, st.slots, a.appts, a.policies, sinks, clk, reservation.Config{
		HoldDefault: cfg.HoldDefault(),
		HoldMax:     cfg.HoldMax(),
	}, logger)
	a.sweeper = reservation.NewSweeper(a.mgr, st.slots, clk, cfg.SweepInterval, cfg.SweepBatchSize, logger)
	if locker != nil {
		a.sweeper.WithLocker(locker)
	}

	if cfg.ExpiryQueueEnabled {
		opt, err := queue.RedisOpt(cfg.RedisURL)
		if err != nil {
			a.close()
			return nil, err
		}
		a.scheduler = queue.NewScheduler(opt)
		a.mgr.WithExpiryScheduler(a.scheduler)
		a.worker = queue.NewWorker(opt, a.mgr, logger)
	}
	return a, nil
}

func (a *app) close() {
	if a.scheduler != nil {
		a.scheduler.Close()
	}
	if a.redis != nil {
		a.redis.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
}

// router builds the HTTP surface.
func (a *app) router() *echo.Echo {
	cfg := a.cfg
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(a.metrics.Middleware())
	e.Use(middleware.Recovery(a.logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(a.logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit("64K"))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	if cfg.IsDev() && cfg.AuthSigningKey == "" {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			SigningKey: []byte(cfg.AuthSigningKey),
			Skipper:    auth.AuthSkipper,
		}))
	}

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/db", db.HealthHandler(a.pool))
	e.GET("/metrics", a.metrics.Handler())

	api := e.Group("/api/v1")
	api.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}))

	schedulerule.NewHandler(a.rules).RegisterRoutes(api)
	closure.NewHandler(a.closures).RegisterRoutes(api)
	servicepolicy.NewHandler(a.policies).RegisterRoutes(api)
	slot.NewHandler(a.slots, a.eval).RegisterRoutes(api)
	availability.NewHandler(a.eval).RegisterRoutes(api)
	reservation.NewHandler(a.mgr).RegisterRoutes(api)
	appointment.NewHandler(a.appts).RegisterRoutes(api)
	audit.NewHandler(a.events).RegisterRoutes(api)

	return e
}

// startBackground launches the sweeper and the expiry worker as configured.
func (a *app) startBackground(ctx context.Context) (stop func(), err error) {
	var stops []func()
	if a.cfg.SweeperEnabled {
		if err := a.sweeper.Start(ctx); err != nil {
			return nil, err
		}
		stops = append(stops, a.sweeper.Stop)
	}
	if a.worker != nil {
		if err := a.worker.Start(); err != nil {
			for _, s := range stops {
				s()
			}
			return nil, fmt.Errorf("start expiry worker: %w", err)
		}
		stops = append(stops, a.worker.Shutdown)
		a.logger.Info().Msg("expiry worker started")
	}
	return func() {
		for i := len(stops) - 1; i >= 0; i-- {
			stops[i]()
		}
	}, nil
}

const shutdownTimeout = 10 * time.Second
