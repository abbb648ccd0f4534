package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/studysnap-backend/internal/models"
)

// UpsertSubscription вставляет или обновляет строку подписки по ключу
// processor_subscription_id. Каждое событие несёт полный снапшот объекта
// провайдера, поэтому last-write-wins по этому ключу безопасен: повторы
// и переупорядочивания сходятся к одному терминальному состоянию.
func (s *Storage) UpsertSubscription(ctx context.Context, sub models.Subscription) error {
	const op = "storage.UpsertSubscription"

	_, err := s.DB.ExecContext(ctx, `
        INSERT INTO subscriptions (
            user_uid,
            processor_customer_id,
            processor_subscription_id,
            status,
            plan_type,
            current_period_start,
            current_period_end
        ) VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (processor_subscription_id) DO UPDATE SET
            processor_customer_id = EXCLUDED.processor_customer_id,
            status = EXCLUDED.status,
            plan_type = EXCLUDED.plan_type,
            current_period_start = EXCLUDED.current_period_start,
            current_period_end = EXCLUDED.current_period_end,
            updated_at = now()`,
		sub.UserUID,
		sub.ProcessorCustomerID,
		sub.ProcessorSubscriptionID,
		sub.Status,
		string(sub.PlanType),
		sub.CurrentPeriodStart,
		sub.CurrentPeriodEnd)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// CancelSubscription принудительно выставляет статус canceled строке
// с данным processor_subscription_id. Это update, а не upsert: если
// строки нет, возвращается 0 затронутых строк и вызывающая сторона
// трактует событие как no-op.
func (s *Storage) CancelSubscription(ctx context.Context, processorSubscriptionID string) (int64, error) {
	const op = "storage.CancelSubscription"

	commandTag, err := s.DB.ExecContext(ctx, `
        UPDATE subscriptions
        SET status = $1, updated_at = now()
        WHERE processor_subscription_id = $2`,
		models.StatusCanceled, processorSubscriptionID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rows, err := commandTag.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return rows, nil
}

// FindActiveSubscription возвращает строку пользователя со статусом active
// и концом периода строго позже now. У пользователя может накопиться
// несколько исторических строк — берётся с самым поздним концом периода.
func (s *Storage) FindActiveSubscription(ctx context.Context, userUID string, now time.Time) (*models.Subscription, bool, error) {
	const op = "storage.FindActiveSubscription"

	row := s.DB.QueryRowContext(ctx, `
        SELECT id, user_uid, processor_customer_id, processor_subscription_id,
               status, plan_type, current_period_start, current_period_end
        FROM subscriptions
        WHERE user_uid = $1 AND status = $2 AND current_period_end > $3
        ORDER BY current_period_end DESC
        LIMIT 1`,
		userUID, models.StatusActive, now)

	var sub models.Subscription
	var planType string
	err := row.Scan(&sub.ID, &sub.UserUID, &sub.ProcessorCustomerID,
		&sub.ProcessorSubscriptionID, &sub.Status, &planType,
		&sub.CurrentPeriodStart, &sub.CurrentPeriodEnd)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	sub.PlanType = models.PlanType(planType)
	return &sub, true, nil
}

// FindSubscriptionByProcessorID возвращает строку по внешнему ключу.
func (s *Storage) FindSubscriptionByProcessorID(ctx context.Context, processorSubscriptionID string) (*models.Subscription, bool, error) {
	const op = "storage.FindSubscriptionByProcessorID"

	row := s.DB.QueryRowContext(ctx, `
        SELECT id, user_uid, processor_customer_id, processor_subscription_id,
               status, plan_type, current_period_start, current_period_end
        FROM subscriptions
        WHERE processor_subscription_id = $1`,
		processorSubscriptionID)

	var sub models.Subscription
	var planType string
	err := row.Scan(&sub.ID, &sub.UserUID, &sub.ProcessorCustomerID,
		&sub.ProcessorSubscriptionID, &sub.Status, &planType,
		&sub.CurrentPeriodStart, &sub.CurrentPeriodEnd)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	sub.PlanType = models.PlanType(planType)
	return &sub, true, nil
}

// FindUserUIDByCustomerID разрешает локального пользователя по
// идентификатору клиента провайдера: сначала по профилям, затем по
// историческим строкам подписок. Если пользователь не найден — found
// false: редьюсер никогда не выдумывает пользователя.
func (s *Storage) FindUserUIDByCustomerID(ctx context.Context, processorCustomerID string) (string, bool, error) {
	const op = "storage.FindUserUIDByCustomerID"

	var userUID string
	err := s.DB.QueryRowContext(ctx, `
        SELECT user_uid FROM profiles WHERE processor_customer_id = $1`,
		processorCustomerID).Scan(&userUID)
	if err == nil {
		return userUID, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", false, fmt.Errorf("%s: %w", op, err)
	}

	err = s.DB.QueryRowContext(ctx, `
        SELECT user_uid FROM subscriptions
        WHERE processor_customer_id = $1
        ORDER BY id DESC LIMIT 1`,
		processorCustomerID).Scan(&userUID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%s: %w", op, err)
	}
	return userUID, true, nil
}
