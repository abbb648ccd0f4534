// Package studysnap собирает приложение: хранилище, кэш, клиентов
// внешних сервисов и HTTP-сервер. Все клиенты конструируются один раз
// на процесс и внедряются явно — скрытого глобального состояния нет.
package studysnap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/streadway/amqp"

	"github.com/go-chi/chi"

	"github.com/magabrotheeeer/studysnap-backend/internal/cache"
	"github.com/magabrotheeeer/studysnap-backend/internal/config"
	"github.com/magabrotheeeer/studysnap-backend/internal/lib/identity"
	"github.com/magabrotheeeer/studysnap-backend/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/studysnap-backend/internal/lib/sl"
	"github.com/magabrotheeeer/studysnap-backend/internal/migrations"
	"github.com/magabrotheeeer/studysnap-backend/internal/paymentprovider"
	billingservice "github.com/magabrotheeeer/studysnap-backend/internal/services/billing"
	entitlementservice "github.com/magabrotheeeer/studysnap-backend/internal/services/entitlement"
	generationservice "github.com/magabrotheeeer/studysnap-backend/internal/services/generation"
	webhookservice "github.com/magabrotheeeer/studysnap-backend/internal/services/webhook"
	"github.com/magabrotheeeer/studysnap-backend/internal/storage/repository"
)

type App struct {
	server   *http.Server
	logger   *slog.Logger
	db       *repository.Storage
	amqpConn *amqp.Connection
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	// Публикация уведомлений best-effort: без RabbitMQ приложение
	// работает, события об изменении подписок просто не рассылаются.
	var amqpConn *amqp.Connection
	var publisher *rabbitmq.Publisher
	if cfg.RabbitConnectionString != "" {
		amqpConn, err = rabbitmq.Connect(cfg.RabbitConnectionString, 5, 2*time.Second)
		if err != nil {
			return nil, err
		}
		ch, err := rabbitmq.SetupChannel(amqpConn, []rabbitmq.QueueConfig{
			{QueueName: "subscription-notifications", RoutingKey: webhookservice.RoutingKeyStateChanged},
		})
		if err != nil {
			return nil, err
		}
		publisher = rabbitmq.NewPublisher(ch)
	} else {
		logger.Warn("rabbitmq connection string is empty, state change notifications disabled")
	}

	identityClient := identity.NewClient(cfg.IdentityProvider.ProviderURL, cfg.IdentityProvider.JWTSecretKey)
	providerClient := paymentprovider.NewClient(cfg.PaymentProcessor.APIURL, cfg.PaymentProcessor.SecretKey)
	logger.Info("payment provider client configured",
		slog.String("api_url", cfg.PaymentProcessor.APIURL),
		sl.Secret("secret_key", cfg.PaymentProcessor.SecretKey))
	generationClient := generationservice.NewClient(cfg.GenerationService)

	billingService := billingservice.New(db, providerClient, cfg.PaymentProcessor, logger)
	resolver := entitlementservice.New(db, logger, cfg.IdentityProvider.TrialPeriod, nil)
	var pub webhookservice.Publisher
	if publisher != nil {
		pub = publisher
	}
	reducer := webhookservice.New(db, providerClient, pub, logger, nil)

	router := chi.NewRouter()

	RegisterRoutes(router, logger, cfg,
		identityClient, resolver, billingService, reducer, generationClient, cacheRedis)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server:   srv,
		logger:   logger,
		db:       db,
		amqpConn: amqpConn,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
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
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		if closeErr := a.db.DB.Close(); closeErr != nil {
			a.logger.Error("failed to close database", sl.Err(closeErr))
		}
		if a.amqpConn != nil {
			if closeErr := a.amqpConn.Close(); closeErr != nil {
				a.logger.Error("failed to close rabbitmq connection", sl.Err(closeErr))
			}
		}
		return err
	}
}
