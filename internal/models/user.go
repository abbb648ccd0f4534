package models

import "time"

// User представляет учётную запись из внешнего identity-провайдера.
// Данные принадлежат провайдеру и читаются только на время запроса.
type User struct {
	UID              string     // Уникальный идентификатор пользователя
	Email            string     // Электронная почта
	EmailConfirmedAt *time.Time // Момент подтверждения почты
	ConfirmedAt      *time.Time // Момент подтверждения учётной записи
	CreatedAt        *time.Time // Момент создания учётной записи
}

// ConfirmationTime возвращает первый заполненный timestamp подтверждения
// в порядке предпочтения: подтверждение почты, общее подтверждение,
// создание аккаунта. Не все состояния провайдера заполняют все поля.
func (u *User) ConfirmationTime() (time.Time, bool) {
	switch {
	case u.EmailConfirmedAt != nil:
		return *u.EmailConfirmedAt, true
	case u.ConfirmedAt != nil:
		return *u.ConfirmedAt, true
	case u.CreatedAt != nil:
		return *u.CreatedAt, true
	default:
		return time.Time{}, false
	}
}
