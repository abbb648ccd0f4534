// Package webhook реализует редьюсер событий платёжного провайдера.
// Поток событий at-least-once и без гарантий порядка, поэтому каждое
// событие сводится к перечитыванию авторитетного объекта подписки у
// провайдера и keyed upsert-у в хранилище: повторы и переупорядочивания
// сходятся к одному терминальному состоянию. Запись никогда не
// выполняется спекулятивно — сначала fetch, потом write.
package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/studysnap-backend/internal/lib/sl"
	"github.com/magabrotheeeer/studysnap-backend/internal/metrics"
	"github.com/magabrotheeeer/studysnap-backend/internal/models"
	"github.com/magabrotheeeer/studysnap-backend/internal/paymentprovider"
)

// Типы событий провайдера, которые редьюсер умеет обрабатывать.
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventSubscriptionCreated = "customer.subscription.created"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
	EventInvoicePaid         = "invoice.payment_succeeded"
	EventInvoiceFailed       = "invoice.payment_failed"
)

// RoutingKeyStateChanged ключ маршрутизации события об изменении
// состояния подписки для notification-пайплайна.
const RoutingKeyStateChanged = "subscription.state_changed"

// SubscriptionRepository определяет методы хранилища, нужные редьюсеру.
// Все побочные эффекты редьюсера строго ограничены этими методами.
type SubscriptionRepository interface {
	UpsertSubscription(ctx context.Context, sub models.Subscription) error
	CancelSubscription(ctx context.Context, processorSubscriptionID string) (int64, error)
	FindSubscriptionByProcessorID(ctx context.Context, processorSubscriptionID string) (*models.Subscription, bool, error)
	FindUserUIDByCustomerID(ctx context.Context, processorCustomerID string) (string, bool, error)
	UpsertProfilePremium(ctx context.Context, userUID, processorCustomerID string, isPremium bool) error
}

// ProviderClient определяет чтение авторитетного снапшота подписки.
type ProviderClient interface {
	GetSubscription(ctx context.Context, subscriptionID string) (*paymentprovider.Subscription, error)
}

// Publisher публикует уведомления об изменении состояния.
type Publisher interface {
	Publish(routingKey string, message any) error
}

// StateChangedMessage сообщение для notification-пайплайна.
type StateChangedMessage struct {
	UserUID                 string `json:"user_uid"`
	ProcessorSubscriptionID string `json:"processor_subscription_id"`
	Status                  string `json:"status"`
	PlanType                string `json:"plan_type"`
}

// Service редьюсер webhook-событий.
type Service struct {
	repo     SubscriptionRepository
	provider ProviderClient
	pub      Publisher
	log      *slog.Logger
	now      func() time.Time
}

// New создает новый редьюсер. pub может быть nil — тогда уведомления
// не публикуются. nowFn nil означает time.Now.
func New(repo SubscriptionRepository, provider ProviderClient, pub Publisher, log *slog.Logger, nowFn func() time.Time) *Service {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Service{
		repo:     repo,
		provider: provider,
		pub:      pub,
		log:      log,
		now:      nowFn,
	}
}

// checkoutSessionObject поля checkout-сессии, нужные редьюсеру.
type checkoutSessionObject struct {
	ID             string `json:"id"`
	Mode           string `json:"mode"`
	SubscriptionID string `json:"subscription"`
}

// subscriptionObject из payload-а берётся только идентификатор:
// остальное перечитывается у провайдера.
type subscriptionObject struct {
	ID string `json:"id"`
}

// invoiceObject поля инвойса, нужные редьюсеру.
type invoiceObject struct {
	ID             string `json:"id"`
	SubscriptionID string `json:"subscription"`
}

// ProcessEvent сводит одно событие в обновление хранилища.
// Возврат ошибки означает сбой записи или чтения: обработчик ответит
// 500 и провайдер доставит событие повторно, что безопасно благодаря
// идемпотентности. Неизвестные типы и неразрешимые пользователи —
// постоянные no-op-ы, ошибкой не являются.
func (s *Service) ProcessEvent(ctx context.Context, event *paymentprovider.Event) error {
	const op = "webhook.ProcessEvent"
	log := s.log.With(
		slog.String("op", op),
		slog.String("event_id", event.ID),
		slog.String("event_type", event.Type),
	)

	switch event.Type {
	case EventCheckoutCompleted:
		var session checkoutSessionObject
		if err := json.Unmarshal(event.Data.Object, &session); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if session.Mode != "subscription" || session.SubscriptionID == "" {
			log.Info("checkout session without subscription, skipping")
			metrics.WebhookEvents.WithLabelValues(event.Type, metrics.OutcomeNoop).Inc()
			return nil
		}
		return s.syncSubscription(ctx, log, event.Type, session.SubscriptionID)

	case EventSubscriptionCreated, EventSubscriptionUpdated:
		var sub subscriptionObject
		if err := json.Unmarshal(event.Data.Object, &sub); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return s.syncSubscription(ctx, log, event.Type, sub.ID)

	case EventSubscriptionDeleted:
		var sub subscriptionObject
		if err := json.Unmarshal(event.Data.Object, &sub); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return s.cancelSubscription(ctx, log, event.Type, sub.ID)

	case EventInvoicePaid, EventInvoiceFailed:
		// Авторитетный статус живёт на объекте подписки, а не на
		// инвойсе: успех и неуспех сводятся к одному re-sync.
		var invoice invoiceObject
		if err := json.Unmarshal(event.Data.Object, &invoice); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if invoice.SubscriptionID == "" {
			log.Info("invoice without subscription, skipping")
			metrics.WebhookEvents.WithLabelValues(event.Type, metrics.OutcomeNoop).Inc()
			return nil
		}
		return s.syncSubscription(ctx, log, event.Type, invoice.SubscriptionID)

	default:
		log.Info("ignored webhook event")
		metrics.WebhookEvents.WithLabelValues(event.Type, metrics.OutcomeIgnored).Inc()
		return nil
	}
}

// planTypeOf возвращает план подписки: сначала дословно из метаданных,
// штампованных при создании сессии, иначе из интервала инлайн-цены.
// Подстрочный разбор идентификатора цены не используется никогда.
func planTypeOf(sub *paymentprovider.Subscription) models.PlanType {
	if plan := models.PlanType(sub.Metadata[paymentprovider.MetaPlanType]); plan.Valid() {
		return plan
	}
	if sub.Price.Interval == "year" {
		return models.PlanYearly
	}
	return models.PlanMonthly
}

// resolveUser разрешает локального пользователя для подписки провайдера:
// сначала по метке user_uid, затем по customer id через хранилище.
func (s *Service) resolveUser(ctx context.Context, sub *paymentprovider.Subscription) (string, bool, error) {
	if uid := sub.Metadata[paymentprovider.MetaUserUID]; uid != "" {
		return uid, true, nil
	}
	return s.repo.FindUserUIDByCustomerID(ctx, sub.CustomerID)
}

// syncSubscription перечитывает подписку у провайдера и upsert-ит её
// снапшот в хранилище. Если пользователь не разрешается — логируем и
// выходим без единой записи: пользователь никогда не выдумывается.
func (s *Service) syncSubscription(ctx context.Context, log *slog.Logger, eventType, subscriptionID string) error {
	const op = "webhook.syncSubscription"

	remote, err := s.provider.GetSubscription(ctx, subscriptionID)
	if err != nil {
		metrics.WebhookEvents.WithLabelValues(eventType, metrics.OutcomeError).Inc()
		return fmt.Errorf("%s: %w", op, err)
	}

	userUID, found, err := s.resolveUser(ctx, remote)
	if err != nil {
		metrics.WebhookEvents.WithLabelValues(eventType, metrics.OutcomeError).Inc()
		return fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		log.Warn("no local user for processor customer, skipping",
			slog.String("customer_id", remote.CustomerID),
			slog.String("subscription_id", subscriptionID))
		metrics.WebhookEvents.WithLabelValues(eventType, metrics.OutcomeNoop).Inc()
		return nil
	}

	sub := models.Subscription{
		UserUID:                 userUID,
		ProcessorCustomerID:     remote.CustomerID,
		ProcessorSubscriptionID: remote.ID,
		Status:                  remote.Status,
		PlanType:                planTypeOf(remote),
		CurrentPeriodStart:      time.Unix(remote.CurrentPeriodStart, 0).UTC(),
		CurrentPeriodEnd:        time.Unix(remote.CurrentPeriodEnd, 0).UTC(),
	}

	if err := s.repo.UpsertSubscription(ctx, sub); err != nil {
		metrics.WebhookEvents.WithLabelValues(eventType, metrics.OutcomeError).Inc()
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.repo.UpsertProfilePremium(ctx, userUID, remote.CustomerID, sub.IsPaid(s.now())); err != nil {
		metrics.WebhookEvents.WithLabelValues(eventType, metrics.OutcomeError).Inc()
		return fmt.Errorf("%s: %w", op, err)
	}

	s.publishStateChanged(log, StateChangedMessage{
		UserUID:                 userUID,
		ProcessorSubscriptionID: remote.ID,
		Status:                  sub.Status,
		PlanType:                string(sub.PlanType),
	})

	log.Info("subscription synced",
		slog.String("subscription_id", remote.ID),
		slog.String("status", sub.Status),
		slog.String("plan_type", string(sub.PlanType)))
	metrics.WebhookEvents.WithLabelValues(eventType, metrics.OutcomeApplied).Inc()
	return nil
}

// cancelSubscription принудительно переводит строку в canceled.
// Update, а не upsert: при отсутствии строки событие — no-op.
func (s *Service) cancelSubscription(ctx context.Context, log *slog.Logger, eventType, subscriptionID string) error {
	const op = "webhook.cancelSubscription"

	rows, err := s.repo.CancelSubscription(ctx, subscriptionID)
	if err != nil {
		metrics.WebhookEvents.WithLabelValues(eventType, metrics.OutcomeError).Inc()
		return fmt.Errorf("%s: %w", op, err)
	}
	if rows == 0 {
		log.Warn("cancellation for unknown subscription, skipping",
			slog.String("subscription_id", subscriptionID))
		metrics.WebhookEvents.WithLabelValues(eventType, metrics.OutcomeNoop).Inc()
		return nil
	}

	row, found, err := s.repo.FindSubscriptionByProcessorID(ctx, subscriptionID)
	if err != nil {
		metrics.WebhookEvents.WithLabelValues(eventType, metrics.OutcomeError).Inc()
		return fmt.Errorf("%s: %w", op, err)
	}
	if found {
		if err := s.repo.UpsertProfilePremium(ctx, row.UserUID, row.ProcessorCustomerID, false); err != nil {
			metrics.WebhookEvents.WithLabelValues(eventType, metrics.OutcomeError).Inc()
			return fmt.Errorf("%s: %w", op, err)
		}
		s.publishStateChanged(log, StateChangedMessage{
			UserUID:                 row.UserUID,
			ProcessorSubscriptionID: subscriptionID,
			Status:                  models.StatusCanceled,
			PlanType:                string(row.PlanType),
		})
	}

	log.Info("subscription canceled", slog.String("subscription_id", subscriptionID))
	metrics.WebhookEvents.WithLabelValues(eventType, metrics.OutcomeApplied).Inc()
	return nil
}

// publishStateChanged отправляет уведомление best-effort: хранилище уже
// консистентно, поэтому сбой публикации только логируется.
func (s *Service) publishStateChanged(log *slog.Logger, msg StateChangedMessage) {
	if s.pub == nil {
		return
	}
	if err := s.pub.Publish(RoutingKeyStateChanged, msg); err != nil {
		log.Error("failed to publish state change", sl.Err(err))
	}
}
