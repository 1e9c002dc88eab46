// Package wisepicks собирает HTTP API: хранилище, кэш, брокер, сервисы,
// realtime-хаб и сверку платежей со шлюзом.
package wisepicks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/wisepicks/internal/cache"
	"github.com/magabrotheeeer/wisepicks/internal/config"
	adminhandler "github.com/magabrotheeeer/wisepicks/internal/http/handlers/admin"
	authhandler "github.com/magabrotheeeer/wisepicks/internal/http/handlers/auth"
	dashboardhandler "github.com/magabrotheeeer/wisepicks/internal/http/handlers/dashboard"
	"github.com/magabrotheeeer/wisepicks/internal/http/handlers/health"
	"github.com/magabrotheeeer/wisepicks/internal/http/handlers/notifications"
	paymenthandler "github.com/magabrotheeeer/wisepicks/internal/http/handlers/payment"
	tipshandler "github.com/magabrotheeeer/wisepicks/internal/http/handlers/tips"
	"github.com/magabrotheeeer/wisepicks/internal/http/middlewarectx"
	"github.com/magabrotheeeer/wisepicks/internal/lib/jwt"
	"github.com/magabrotheeeer/wisepicks/internal/lib/sl"
	"github.com/magabrotheeeer/wisepicks/internal/migrations"
	"github.com/magabrotheeeer/wisepicks/internal/paymentprovider"
	"github.com/magabrotheeeer/wisepicks/internal/rabbitmq"
	"github.com/magabrotheeeer/wisepicks/internal/realtime"
	adminsvc "github.com/magabrotheeeer/wisepicks/internal/services/admin"
	authsvc "github.com/magabrotheeeer/wisepicks/internal/services/auth"
	dashboardsvc "github.com/magabrotheeeer/wisepicks/internal/services/dashboard"
	notificationsvc "github.com/magabrotheeeer/wisepicks/internal/services/notification"
	paymentsvc "github.com/magabrotheeeer/wisepicks/internal/services/payment"
	tipssvc "github.com/magabrotheeeer/wisepicks/internal/services/tips"
	"github.com/magabrotheeeer/wisepicks/internal/storage/repository"
)

const shutdownTimeout = 15 * time.Second

// App HTTP API со всеми фоновыми задачами.
type App struct {
	server       *http.Server
	logger       *slog.Logger
	db           *repository.Storage
	cache        *cache.Cache
	conn         *amqp.Connection
	ch           *amqp.Channel
	hub          *realtime.Hub
	bridge       *realtime.Bridge
	payments     *paymentsvc.PaymentService
	pollInterval time.Duration
}

// New подключает зависимости, применяет миграции и создаёт администратора.
// RabbitMQ и платёжный шлюз необязательны: без них письма не отправляются,
// а платежи подтверждаются вручную.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.wisepicks.New"

	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	app := &App{
		logger:       logger,
		db:           db,
		cache:        cacheRedis,
		pollInterval: cfg.PaymentGateway.PollInterval,
	}

	var events paymentsvc.EventPublisher
	if cfg.RabbitMQ.URL != "" {
		app.conn, err = rabbitmq.Connect(cfg.RabbitMQ.URL, cfg.RabbitMQ.Retries, cfg.RabbitMQ.RetryDelay)
		if err != nil {
			app.close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		app.ch, err = rabbitmq.SetupChannel(app.conn, rabbitmq.GetNotificationQueues())
		if err != nil {
			app.close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		events = rabbitmq.NewPublisher(app.ch)
	} else {
		logger.Warn("rabbitmq url is empty, e-mail events are disabled")
	}

	var gateway paymentsvc.Gateway
	if cfg.GatewayEnabled() {
		gateway = paymentprovider.NewClient(cfg.PaymentGateway.APIURL, cfg.PaymentGateway.APIKey)
	} else {
		logger.Info("payment gateway is not configured, payments are confirmed manually")
	}

	accessMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	refreshMaker := jwt.NewRefreshMaker(cfg.RefreshSecretKey, cfg.RefreshTokenTTL)
	authService := authsvc.NewAuthService(db, cacheRedis, accessMaker, refreshMaker, logger)
	if err = authService.Bootstrap(ctx, db, cfg.BootstrapAdmin.Email, cfg.BootstrapAdmin.Nickname, cfg.BootstrapAdmin.Password); err != nil {
		app.close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rt := realtime.NewRedisPublisher(cacheRedis)
	app.hub = realtime.NewHub(logger)
	app.bridge = realtime.NewBridge(logger, cacheRedis, app.hub)

	app.payments = paymentsvc.New(db, gateway, rt, events, logger, paymentsvc.Options{
		FrontendURL: cfg.FrontendURL,
		CheckoutTTL: cfg.PaymentGateway.CheckoutTTL,
	})
	var adminEvents adminsvc.EventPublisher
	if events != nil {
		adminEvents = events
	}

	handlers := Handlers{
		Auth:          authhandler.New(logger, authService),
		Tips:          tipshandler.New(logger, tipssvc.New(db, cacheRedis, rt, logger)),
		Payment:       paymenthandler.New(logger, app.payments),
		Dashboard:     dashboardhandler.New(logger, dashboardsvc.New(db, logger)),
		Notifications: notifications.New(logger, notificationsvc.New(db)),
		Admin:         adminhandler.New(logger, adminsvc.New(db, rt, adminEvents, logger)),
		Health:        health.New(logger, map[string]health.Pinger{"postgres": db, "redis": cacheRedis}),
		Realtime:      realtime.NewHandler(logger, app.hub, authService, cfg.FrontendURL),
	}

	router := chi.NewRouter()
	limiter := middlewarectx.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	RegisterRoutes(router, logger, authService, limiter, handlers)

	app.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return app, nil
}

// Run запускает хаб, мост redis, сверку платежей и HTTP-сервер.
// Блокируется до ошибки сервера или отмены ctx.
func (a *App) Run(ctx context.Context) error {
	bgCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
		a.close()
	}()

	wg.Add(3)
	go func() {
		defer wg.Done()
		a.hub.Run(bgCtx)
	}()
	go func() {
		defer wg.Done()
		if err := a.bridge.Run(bgCtx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error("realtime bridge failed", sl.Err(err))
		}
	}()
	go func() {
		defer wg.Done()
		a.payments.RunReconciler(bgCtx, a.pollInterval)
	}()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()
		a.logger.Info("shutting down HTTP server gracefully")
		return a.server.Shutdown(timeoutCtx)
	}
}

func (a *App) close() {
	if a.ch != nil {
		if err := a.ch.Close(); err != nil {
			a.logger.Error("failed to close channel", sl.Err(err))
		}
	}
	if a.conn != nil {
		if err := a.conn.Close(); err != nil {
			a.logger.Error("failed to close connection", sl.Err(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("failed to close cache", sl.Err(err))
		}
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close storage", sl.Err(err))
	}
}
