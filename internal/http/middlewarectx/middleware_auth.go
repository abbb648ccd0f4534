// Package middlewarectx содержит HTTP middleware для аутентификации через
// внешнего identity-провайдера и для гейтинга платных возможностей.
//
// IdentityMiddleware проверяет наличие и валидность access-токена в
// заголовке Authorization, читает пользователя из провайдера и кладёт
// его в контекст запроса. В случае ошибки проверки возвращает
// HTTP 401 Unauthorized со стабильным кодом login_required.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/studysnap-backend/internal/http/response"
	"github.com/magabrotheeeer/studysnap-backend/internal/lib/sl"
	"github.com/magabrotheeeer/studysnap-backend/internal/models"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

const (
	// CtxUser — ключ для пользователя в контексте
	CtxUser Key = "user"
	// CtxVerdict — ключ для вычисленного вердикта в контексте
	CtxVerdict Key = "verdict"
)

// Identity описывает интерфейс identity-провайдера для middleware.
type Identity interface {
	UserFromToken(ctx context.Context, tokenStr string) (*models.User, error)
}

// UserFromContext возвращает пользователя из контекста запроса.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(CtxUser).(*models.User)
	return user, ok
}

// VerdictFromContext возвращает вердикт из контекста запроса.
func VerdictFromContext(ctx context.Context) (models.Verdict, bool) {
	verdict, ok := ctx.Value(CtxVerdict).(models.Verdict)
	return verdict, ok
}

// BearerToken извлекает токен из заголовка Authorization.
func BearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	return strings.TrimPrefix(authHeader, "Bearer "), true
}

// IdentityMiddleware возвращает HTTP middleware, который проверяет
// access-токен и кладёт пользователя в контекст запроса.
func IdentityMiddleware(identity Identity, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.IdentityMiddleware"

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			tokenStr, ok := BearerToken(r)
			if !ok {
				log.Error("missing or invalid authorization header")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.ErrorWithCode("missing or invalid authorization header", response.CodeLoginRequired))
				return
			}

			user, err := identity.UserFromToken(r.Context(), tokenStr)
			if err != nil {
				log.Error("invalid or expired token", sl.Err(err))
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.ErrorWithCode("invalid or expired token", response.CodeLoginRequired))
				return
			}

			ctx := context.WithValue(r.Context(), CtxUser, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
