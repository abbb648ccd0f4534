// Package studysnap предоставляет маршруты для основного приложения.
package studysnap

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/studysnap-backend/internal/cache"
	"github.com/magabrotheeeer/studysnap-backend/internal/config"
	"github.com/magabrotheeeer/studysnap-backend/internal/http/handlers/billing/cancel"
	"github.com/magabrotheeeer/studysnap-backend/internal/http/handlers/billing/change"
	"github.com/magabrotheeeer/studysnap-backend/internal/http/handlers/billing/checkout"
	"github.com/magabrotheeeer/studysnap-backend/internal/http/handlers/billing/portal"
	"github.com/magabrotheeeer/studysnap-backend/internal/http/handlers/generate"
	"github.com/magabrotheeeer/studysnap-backend/internal/http/handlers/health"
	"github.com/magabrotheeeer/studysnap-backend/internal/http/handlers/paymentwebhook"
	"github.com/magabrotheeeer/studysnap-backend/internal/http/handlers/quota"
	"github.com/magabrotheeeer/studysnap-backend/internal/http/middlewarectx"
	"github.com/magabrotheeeer/studysnap-backend/internal/lib/identity"
	billingservice "github.com/magabrotheeeer/studysnap-backend/internal/services/billing"
	entitlementservice "github.com/magabrotheeeer/studysnap-backend/internal/services/entitlement"
	generationservice "github.com/magabrotheeeer/studysnap-backend/internal/services/generation"
	webhookservice "github.com/magabrotheeeer/studysnap-backend/internal/services/webhook"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(
	r chi.Router,
	logger *slog.Logger,
	cfg *config.Config,
	identityClient *identity.Client,
	resolver *entitlementservice.Resolver,
	billingService *billingservice.Service,
	reducer *webhookservice.Service,
	generationClient *generationservice.Client,
	cacheRedis *cache.Cache,
) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Get("/health", health.New(logger).ServeHTTP)
		r.Get("/quota", quota.New(logger, identityClient, resolver, cacheRedis, cfg.FreeTier.MaxFreeUsage).ServeHTTP)

		// Webhook endpoint: без токена, граница доверия — подпись
		r.Post("/webhooks/payments", paymentwebhook.New(logger, reducer, cfg.PaymentProcessor.WebhookSecret).ServeHTTP)

		// Группа с аутентификацией через identity-провайдера
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.IdentityMiddleware(identityClient, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger))
			r.Post("/checkout", checkout.New(logger, billingService).ServeHTTP)
			r.Post("/portal", portal.New(logger, billingService).ServeHTTP)
			r.Post("/subscription/change", change.New(logger, billingService).ServeHTTP)
			r.Post("/subscription/cancel", cancel.New(logger, billingService).ServeHTTP)

			// Платные возможности за entitlement-гейтом
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.EntitlementMiddleware(logger, resolver))
				r.Post("/generate", generate.New(logger, generationClient).ServeHTTP)
			})
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
