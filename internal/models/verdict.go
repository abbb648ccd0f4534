package models

// Verdict трёхзначный (плюс unauthenticated) вердикт о праве пользователя
// вызвать платную возможность. Вычисляется на каждый запрос заново и
// никогда не персистится: границы триала и оплаченного периода — это
// wall-clock границы, которые переключают состояние без событий.
type Verdict string

const (
	// VerdictUnauthenticated — нет валидного identity-токена.
	VerdictUnauthenticated Verdict = "unauthenticated"
	// VerdictNone — пользователь аутентифицирован, доступа нет.
	VerdictNone Verdict = "none"
	// VerdictTrial — действует пробный период.
	VerdictTrial Verdict = "trial"
	// VerdictPaid — есть активная оплаченная подписка.
	VerdictPaid Verdict = "paid"
)

// Allows сообщает, разрешает ли вердикт вызов платной возможности.
func (v Verdict) Allows() bool {
	return v == VerdictTrial || v == VerdictPaid
}
