// Package models содержит доменные структуры, описывающие подписку,
// профиль пользователя и вердикт о доступе. Структуры используются
// в бизнес-логике и при работе с хранилищем.
package models

import "time"

// PlanType тип тарифного плана подписки.
type PlanType string

const (
	// PlanMonthly — помесячный план.
	PlanMonthly PlanType = "monthly"
	// PlanYearly — годовой план.
	PlanYearly PlanType = "yearly"
)

// Valid проверяет, что значение плана известно системе.
func (p PlanType) Valid() bool {
	return p == PlanMonthly || p == PlanYearly
}

// Статусы подписки зеркалируют словарь платёжного провайдера.
const (
	StatusActive     = "active"
	StatusPastDue    = "past_due"
	StatusCanceled   = "canceled"
	StatusIncomplete = "incomplete"
)

// Subscription представляет одну подписку платёжного провайдера.
// Строки никогда физически не удаляются: отменённая подписка остаётся
// в хранилище со статусом canceled.
type Subscription struct {
	ID                      int       // Внутренний идентификатор строки
	UserUID                 string    // Владелец подписки
	ProcessorCustomerID     string    // Идентификатор клиента у провайдера
	ProcessorSubscriptionID string    // Уникальный ключ upsert-а
	Status                  string    // Статус в терминах провайдера
	PlanType                PlanType  // Тарифный план
	CurrentPeriodStart      time.Time // Начало оплаченного периода
	CurrentPeriodEnd        time.Time // Конец оплаченного периода
}

// IsPaid сообщает, даёт ли строка платный доступ в момент now.
// Граница периода строгая: подписка с current_period_end == now
// платный доступ уже не даёт.
func (s *Subscription) IsPaid(now time.Time) bool {
	return s.Status == StatusActive && s.CurrentPeriodEnd.After(now)
}

// Profile зеркало флага is_premium для быстрых вторичных проверок.
// Обновляется редьюсером вебхуков, не является источником истины
// для гейтинга.
type Profile struct {
	UserUID             string
	ProcessorCustomerID string
	IsPremium           bool
	UpdatedAt           time.Time
}
