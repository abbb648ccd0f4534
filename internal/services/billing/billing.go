// Package billing реализует создание hosted-сессий у платёжного
// провайдера: checkout новой подписки, self-service портал, смену плана
// и отмену. Сервис не пишет в хранилище подписок — строки появляются
// и мутируются только через редьюсер вебхуков.
package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/studysnap-backend/internal/config"
	"github.com/magabrotheeeer/studysnap-backend/internal/models"
	"github.com/magabrotheeeer/studysnap-backend/internal/paymentprovider"
)

var (
	// ErrCustomerNotFound возвращается, когда у пользователя нет
	// клиентской записи у провайдера (ни разу не проходил checkout).
	ErrCustomerNotFound = errors.New("processor customer not found")
	// ErrSubscriptionNotFound возвращается при попытке управлять
	// подпиской, которая не принадлежит пользователю или не существует.
	ErrSubscriptionNotFound = errors.New("subscription not found")
	// ErrInvalidPlan возвращается для неизвестного тарифного плана.
	ErrInvalidPlan = errors.New("invalid plan type")
)

// ProfileRepository определяет методы хранилища, нужные сервису.
type ProfileRepository interface {
	FindCustomerIDByUserUID(ctx context.Context, userUID string) (string, bool, error)
}

// ProviderClient определяет интерфейс для работы с платёжным провайдером.
type ProviderClient interface {
	CreateCustomer(ctx context.Context, req paymentprovider.CreateCustomerRequest) (*paymentprovider.Customer, error)
	CreateCheckoutSession(ctx context.Context, req paymentprovider.CreateSessionRequest) (*paymentprovider.Session, error)
	CreatePortalSession(ctx context.Context, req paymentprovider.CreatePortalSessionRequest) (*paymentprovider.Session, error)
	GetSubscription(ctx context.Context, subscriptionID string) (*paymentprovider.Subscription, error)
	CancelSubscription(ctx context.Context, subscriptionID string) (*paymentprovider.Subscription, error)
}

// Service реализует бизнес-логику платёжных сессий.
type Service struct {
	repo     ProfileRepository
	provider ProviderClient
	cfg      config.PaymentProcessor
	log      *slog.Logger
}

// New создает новый экземпляр Service.
func New(repo ProfileRepository, provider ProviderClient, cfg config.PaymentProcessor, log *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		provider: provider,
		cfg:      cfg,
		log:      log,
	}
}

// priceFor строит инлайн-цену для плана из конфига.
func (s *Service) priceFor(plan models.PlanType) (paymentprovider.RecurringPrice, error) {
	switch plan {
	case models.PlanMonthly:
		return paymentprovider.RecurringPrice{
			Currency:    s.cfg.Currency,
			UnitAmount:  s.cfg.MonthlyUnitAmount,
			Interval:    "month",
			ProductName: s.cfg.ProductName,
		}, nil
	case models.PlanYearly:
		return paymentprovider.RecurringPrice{
			Currency:    s.cfg.Currency,
			UnitAmount:  s.cfg.YearlyUnitAmount,
			Interval:    "year",
			ProductName: s.cfg.ProductName,
		}, nil
	default:
		return paymentprovider.RecurringPrice{}, fmt.Errorf("%w: %s", ErrInvalidPlan, plan)
	}
}

// ensureCustomer возвращает идентификатор клиента провайдера для
// пользователя, создавая клиента при необходимости. Метка user_uid
// проставляется всегда: это единственная связь, доступная редьюсеру.
func (s *Service) ensureCustomer(ctx context.Context, user *models.User) (string, error) {
	const op = "billing.ensureCustomer"

	customerID, found, err := s.repo.FindCustomerIDByUserUID(ctx, user.UID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if found {
		return customerID, nil
	}

	customer, err := s.provider.CreateCustomer(ctx, paymentprovider.CreateCustomerRequest{
		Email: user.Email,
		Metadata: paymentprovider.Metadata{
			paymentprovider.MetaUserUID: user.UID,
		},
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("created processor customer",
		slog.String("user_uid", user.UID),
		slog.String("customer_id", customer.ID))
	return customer.ID, nil
}

// CreateCheckoutSession создаёт checkout-сессию новой подписки и
// возвращает hosted URL. План штампуется в метаданные сессии, чтобы
// редьюсер прочитал его обратно дословно, а не выводил из цены.
func (s *Service) CreateCheckoutSession(ctx context.Context, user *models.User, plan models.PlanType) (string, error) {
	const op = "billing.CreateCheckoutSession"

	price, err := s.priceFor(plan)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	customerID, err := s.ensureCustomer(ctx, user)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	session, err := s.provider.CreateCheckoutSession(ctx, paymentprovider.CreateSessionRequest{
		CustomerID: customerID,
		Mode:       "subscription",
		Price:      price,
		SuccessURL: s.cfg.PublicBaseURL + "/checkout/success",
		CancelURL:  s.cfg.PublicBaseURL + "/pricing",
		Metadata: paymentprovider.Metadata{
			paymentprovider.MetaUserUID:  user.UID,
			paymentprovider.MetaPlanType: string(plan),
		},
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return session.URL, nil
}

// CreatePortalSession создаёт сессию self-service портала.
func (s *Service) CreatePortalSession(ctx context.Context, user *models.User) (string, error) {
	const op = "billing.CreatePortalSession"

	customerID, found, err := s.repo.FindCustomerIDByUserUID(ctx, user.UID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		return "", fmt.Errorf("%s: %w", op, ErrCustomerNotFound)
	}

	session, err := s.provider.CreatePortalSession(ctx, paymentprovider.CreatePortalSessionRequest{
		CustomerID: customerID,
		ReturnURL:  s.cfg.PublicBaseURL + "/account",
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return session.URL, nil
}

// ownedSubscription читает подписку у провайдера и проверяет, что она
// принадлежит пользователю.
func (s *Service) ownedSubscription(ctx context.Context, user *models.User, subscriptionID string) (*paymentprovider.Subscription, error) {
	sub, err := s.provider.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.Metadata[paymentprovider.MetaUserUID] != user.UID {
		return nil, ErrSubscriptionNotFound
	}
	return sub, nil
}

// CreatePlanChangeSession перекотирует существующую подписку на новый
// план и возвращает URL новой checkout-сессии. Метка change_from
// связывает сессию с исходной подпиской для аудита.
func (s *Service) CreatePlanChangeSession(ctx context.Context, user *models.User, subscriptionID string, newPlan models.PlanType) (string, error) {
	const op = "billing.CreatePlanChangeSession"

	price, err := s.priceFor(newPlan)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	sub, err := s.ownedSubscription(ctx, user, subscriptionID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	session, err := s.provider.CreateCheckoutSession(ctx, paymentprovider.CreateSessionRequest{
		CustomerID: sub.CustomerID,
		Mode:       "subscription",
		Price:      price,
		SuccessURL: s.cfg.PublicBaseURL + "/checkout/success",
		CancelURL:  s.cfg.PublicBaseURL + "/account",
		Metadata: paymentprovider.Metadata{
			paymentprovider.MetaUserUID:    user.UID,
			paymentprovider.MetaPlanType:   string(newPlan),
			paymentprovider.MetaChangeFrom: subscriptionID,
		},
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return session.URL, nil
}

// CancelSubscription запрашивает отмену подписки у провайдера.
// Статус в хранилище сменится на canceled позже, когда провайдер
// доставит событие customer.subscription.deleted.
func (s *Service) CancelSubscription(ctx context.Context, user *models.User, subscriptionID string) error {
	const op = "billing.CancelSubscription"

	if _, err := s.ownedSubscription(ctx, user, subscriptionID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err := s.provider.CancelSubscription(ctx, subscriptionID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("requested subscription cancellation",
		slog.String("user_uid", user.UID),
		slog.String("subscription_id", subscriptionID))
	return nil
}
