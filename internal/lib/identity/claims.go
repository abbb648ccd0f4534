// Package identity реализует проверку access-токенов внешнего
// identity-провайдера и чтение метаданных пользователя через его HTTP API.
//
// Провайдер владеет учётными записями целиком: регистрация, подтверждение
// почты и выпуск токенов происходят на его стороне. Здесь токен только
// валидируется, а пользователь читается на время запроса.
package identity

import (
	"github.com/golang-jwt/jwt/v5"
)

// Claims описывает данные, хранящиеся в access-токене провайдера.
// Subject стандартного набора клеймов содержит uid пользователя.
type Claims struct {
	Email                string `json:"email"` // Электронная почта
	jwt.RegisteredClaims        // Встроенные стандартные claims JWT (ExpiresAt, Subject и пр.)
}
