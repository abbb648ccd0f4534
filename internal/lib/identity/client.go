package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/magabrotheeeer/studysnap-backend/internal/models"
)

// ErrInvalidToken возвращается при отсутствующем, просроченном или
// подделанном access-токене.
var ErrInvalidToken = errors.New("invalid or expired token")

// Client клиент identity-провайдера. Создаётся один раз на процесс
// и внедряется в middleware и обработчики.
type Client struct {
	providerURL string
	jwtSecret   string
	httpClient  *http.Client
}

// NewClient создаёт новый клиент identity-провайдера.
func NewClient(providerURL, jwtSecret string) *Client {
	return &Client{
		providerURL: providerURL,
		jwtSecret:   jwtSecret,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
}

// VerifyToken парсит access-токен, проверяет его подпись и валидность,
// возвращает Claims с данными, если токен корректен.
func (c *Client) VerifyToken(tokenStr string) (*Claims, error) {
	const op = "identity.VerifyToken"
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(_ *jwt.Token) (any, error) {
		return []byte(c.jwtSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, errors.Join(ErrInvalidToken, err))
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}
	return claims, nil
}

// userPayload формат ответа GET /auth/v1/user провайдера.
// Timestamps подтверждения могут отсутствовать: не все состояния
// учётной записи заполняют все поля.
type userPayload struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	EmailConfirmedAt *time.Time `json:"email_confirmed_at"`
	ConfirmedAt      *time.Time `json:"confirmed_at"`
	CreatedAt        *time.Time `json:"created_at"`
}

// GetUser читает метаданные пользователя из провайдера по его access-токену.
func (c *Client) GetUser(ctx context.Context, tokenStr string) (*models.User, error) {
	const op = "identity.GetUser"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.providerURL+"/auth/v1/user", nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+tokenStr)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: unexpected status %s", op, resp.Status)
	}

	var payload userPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.User{
		UID:              payload.ID,
		Email:            payload.Email,
		EmailConfirmedAt: payload.EmailConfirmedAt,
		ConfirmedAt:      payload.ConfirmedAt,
		CreatedAt:        payload.CreatedAt,
	}, nil
}

// UserFromToken проверяет токен и, если он валиден, читает пользователя
// из провайдера. Комбинация используется middleware аутентификации.
func (c *Client) UserFromToken(ctx context.Context, tokenStr string) (*models.User, error) {
	if _, err := c.VerifyToken(tokenStr); err != nil {
		return nil, err
	}
	return c.GetUser(ctx, tokenStr)
}
