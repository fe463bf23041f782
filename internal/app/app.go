package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Freeeeeet/lesson_scheduler/internal/api"
	"github.com/Freeeeeet/lesson_scheduler/internal/clock"
	"github.com/Freeeeeet/lesson_scheduler/internal/config"
	"github.com/Freeeeeet/lesson_scheduler/internal/controller"
	"github.com/Freeeeeet/lesson_scheduler/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/lesson_scheduler/internal/events"
	"github.com/Freeeeeet/lesson_scheduler/internal/lock"
	"github.com/Freeeeeet/lesson_scheduler/internal/metrics"
	"github.com/Freeeeeet/lesson_scheduler/internal/repository"
	"github.com/Freeeeeet/lesson_scheduler/internal/repository/memory"
	"github.com/Freeeeeet/lesson_scheduler/internal/service"
)

const (
	shutdownTimeout   = 15 * time.Second
	limiterSweepEvery = 5 * time.Minute
	limiterIdleAfter  = 10 * time.Minute
	botCalendarDays   = 14
)

// App: собранный процесс: HTTP API, фоновые задачи и (опционально) Telegram-бот
type App struct {
	cfg       *config.Config
	logger    *zap.Logger
	server    *http.Server
	scheduler *Scheduler
	bot       *controller.BotController
	closers   []func()
}

// New подключает хранилище, блокировки и брокер событий и собирает сервисы
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (_ *App, err error) {
	a := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	store, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	locker, err := a.openLocker(ctx)
	if err != nil {
		return nil, err
	}
	publisher, err := a.openPublisher()
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewSchedulingMetrics(registry)

	clk := clock.Real{Location: cfg.Location}
	bookings := service.NewBookingService(store, clk, publisher, m, logger)
	services := api.Services{
		Scheduling: service.NewSchedulingService(store, bookings, locker, clk, service.SchedulingConfig{
			DefaultDurationMinutes: cfg.DefaultLessonMinutes,
			DefaultMaxGymnasts:     cfg.DefaultMaxGymnasts,
			MaxRangeDays:           cfg.MaxRangeDays,
		}, m, logger),
		Bookings:     bookings,
		Availability: service.NewAvailabilityService(store, logger),
		Coaches:      service.NewCoachService(store, logger),
		Users:        service.NewUserService(store, logger),
		Channels:     service.NewChannelService(store, logger),
	}

	limiter := api.NewRateLimiter(cfg.RateLimitPerMinute, logger)
	a.server = &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewRouter(api.NewHandler(services, cfg.StaffToken, logger), limiter, registry),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.scheduler = NewScheduler(logger, Task{
		Name:     "rate_limiter_sweep",
		Interval: limiterSweepEvery,
		Run: func(context.Context) error {
			if n := limiter.Sweep(limiterIdleAfter); n > 0 {
				logger.Debug("Rate limiters swept", zap.Int("removed", n))
			}
			return nil
		},
	})

	if cfg.BotEnabled() {
		if a.bot, err = a.newBot(ctx, services, clk); err != nil {
			return nil, err
		}
	}

	return a, nil
}

func (a *App) openStore(ctx context.Context) (repository.Store, error) {
	if a.cfg.Store == config.StoreMemory {
		a.logger.Warn("Using in-memory store, data is lost on restart")
		return memory.NewStore(), nil
	}

	pool, err := pgxpool.New(ctx, a.cfg.GetDBDSN())
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	a.closers = append(a.closers, pool.Close)

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if a.cfg.MigrateOnStart {
		migrator, err := NewMigrator(pool, a.logger)
		if err != nil {
			return nil, err
		}
		defer migrator.Close()

		if err := migrator.Run(ctx); err != nil {
			return nil, err
		}
		if version, err := migrator.Version(ctx); err == nil {
			a.logger.Info("Database schema is up to date", zap.Int64("version", version))
		}
	}

	return repository.NewPgStore(pool, a.logger), nil
}

func (a *App) openLocker(ctx context.Context) (lock.Locker, error) {
	switch a.cfg.LockBackend {
	case config.LockMemory:
		return lock.NewMemory(), nil
	case config.LockRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     a.cfg.RedisAddr,
			Password: a.cfg.RedisPassword,
		})
		a.closers = append(a.closers, func() { _ = client.Close() })

		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		return lock.NewRedis(client, 0, a.logger), nil
	default:
		return lock.Noop{}, nil
	}
}

func (a *App) openPublisher() (events.Publisher, error) {
	if a.cfg.NatsURL == "" {
		return events.Nop{}, nil
	}

	publisher, conn, err := events.NewNatsPublisher(a.cfg.NatsURL, a.logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() {
		if err := conn.Drain(); err != nil {
			a.logger.Warn("Failed to drain nats connection", zap.Error(err))
		}
	})
	return publisher, nil
}

func (a *App) newBot(ctx context.Context, services api.Services, clk clock.Clock) (*controller.BotController, error) {
	b, err := bot.New(a.cfg.TelegramToken, bot.WithErrorsHandler(func(err error) {
		a.logger.Warn("Telegram API error", zap.Error(err))
	}))
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}

	ctrl := controller.NewBotController(b, &callbacktypes.Handler{
		UserService:       services.Users,
		SchedulingService: services.Scheduling,
		BookingService:    services.Bookings,
		CoachService:      services.Coaches,
		Clock:             clk,
		Logger:            a.logger,
		DaysAhead:         botCalendarDays,
	})
	if err := ctrl.RegisterHandlers(ctx); err != nil {
		return nil, fmt.Errorf("register bot handlers: %w", err)
	}
	return ctrl, nil
}

// Run блокируется до отмены ctx или падения HTTP-сервера, затем мягко всё останавливает
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.scheduler.Start(ctx)
	defer a.scheduler.Stop()

	var wg sync.WaitGroup
	if a.bot != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = a.bot.Start(ctx)
		}()
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		runErr = fmt.Errorf("http server: %w", err)
	}

	a.logger.Info("Shutting down...")
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("HTTP server forced to shutdown", zap.Error(err))
	}

	wg.Wait()
	return runErr
}

// Close освобождает внешние соединения в обратном порядке
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
