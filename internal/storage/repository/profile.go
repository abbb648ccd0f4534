package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// UpsertProfilePremium обновляет денормализованное зеркало is_premium
// и идентификатор клиента провайдера в профиле пользователя.
// Зеркало освежается тем же редьюсером, что и подписки, и никогда
// не читается гейтинг-логикой напрямую.
func (s *Storage) UpsertProfilePremium(ctx context.Context, userUID, processorCustomerID string, isPremium bool) error {
	const op = "storage.UpsertProfilePremium"

	_, err := s.DB.ExecContext(ctx, `
        INSERT INTO profiles (user_uid, processor_customer_id, is_premium)
        VALUES ($1, $2, $3)
        ON CONFLICT (user_uid) DO UPDATE SET
            processor_customer_id = EXCLUDED.processor_customer_id,
            is_premium = EXCLUDED.is_premium,
            updated_at = now()`,
		userUID, processorCustomerID, isPremium)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// FindCustomerIDByUserUID возвращает идентификатор клиента провайдера
// для пользователя. found false означает, что пользователь ещё ни разу
// не проходил checkout.
func (s *Storage) FindCustomerIDByUserUID(ctx context.Context, userUID string) (string, bool, error) {
	const op = "storage.FindCustomerIDByUserUID"

	var customerID sql.NullString
	err := s.DB.QueryRowContext(ctx, `
        SELECT processor_customer_id FROM profiles WHERE user_uid = $1`,
		userUID).Scan(&customerID)
	if err == nil && customerID.Valid && customerID.String != "" {
		return customerID.String, true, nil
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", false, fmt.Errorf("%s: %w", op, err)
	}

	err = s.DB.QueryRowContext(ctx, `
        SELECT processor_customer_id FROM subscriptions
        WHERE user_uid = $1
        ORDER BY id DESC LIMIT 1`,
		userUID).Scan(&customerID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%s: %w", op, err)
	}
	if !customerID.Valid || customerID.String == "" {
		return "", false, nil
	}
	return customerID.String, true, nil
}
