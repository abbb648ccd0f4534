// Package entitlement вычисляет право пользователя на вызов платной
// возможности. Это единственный источник истины для гейтинга:
// денормализованный флаг is_premium в профиле и legacy-счётчик
// бесплатных генераций вердикт не определяют.
package entitlement

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/studysnap-backend/internal/metrics"
	"github.com/magabrotheeeer/studysnap-backend/internal/models"
)

// SubscriptionRepository определяет методы хранилища, нужные резолверу.
type SubscriptionRepository interface {
	// FindActiveSubscription возвращает активную подписку пользователя
	// с концом периода строго позже now, found false если её нет.
	FindActiveSubscription(ctx context.Context, userUID string, now time.Time) (*models.Subscription, bool, error)
}

// Resolver вычисляет вердикт о доступе. Вердикт не кешируется между
// запросами: граница триала и граница оплаченного периода — временнЫе,
// они переключают состояние без какого-либо события.
type Resolver struct {
	repo        SubscriptionRepository
	log         *slog.Logger
	trialPeriod time.Duration
	now         func() time.Time
}

// New создает новый Resolver. nowFn позволяет подменять часы в тестах;
// nil означает time.Now.
func New(repo SubscriptionRepository, log *slog.Logger, trialPeriod time.Duration, nowFn func() time.Time) *Resolver {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Resolver{
		repo:        repo,
		log:         log,
		trialPeriod: trialPeriod,
		now:         nowFn,
	}
}

// TrialDeadline возвращает конец пробного периода пользователя.
// Если ни один timestamp подтверждения не заполнен, второй результат
// false — триал считается недоступным (незавершённая регистрация).
func (r *Resolver) TrialDeadline(user *models.User) (time.Time, bool) {
	confirmed, ok := user.ConfirmationTime()
	if !ok {
		return time.Time{}, false
	}
	return confirmed.Add(r.trialPeriod), true
}

// Resolve вычисляет вердикт для пользователя. Порядок строгий:
// оплаченная подписка побеждает триал, триал побеждает отказ.
func (r *Resolver) Resolve(ctx context.Context, user *models.User) (models.Verdict, error) {
	const op = "entitlement.Resolve"

	if user == nil || user.UID == "" {
		metrics.EntitlementVerdicts.WithLabelValues(string(models.VerdictUnauthenticated)).Inc()
		return models.VerdictUnauthenticated, nil
	}

	now := r.now()

	_, found, err := r.repo.FindActiveSubscription(ctx, user.UID, now)
	if err != nil {
		return models.VerdictNone, fmt.Errorf("%s: %w", op, err)
	}
	if found {
		metrics.EntitlementVerdicts.WithLabelValues(string(models.VerdictPaid)).Inc()
		return models.VerdictPaid, nil
	}

	if deadline, ok := r.TrialDeadline(user); ok && now.Before(deadline) {
		metrics.EntitlementVerdicts.WithLabelValues(string(models.VerdictTrial)).Inc()
		return models.VerdictTrial, nil
	}

	metrics.EntitlementVerdicts.WithLabelValues(string(models.VerdictNone)).Inc()
	return models.VerdictNone, nil
}
