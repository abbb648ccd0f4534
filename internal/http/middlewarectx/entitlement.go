package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/studysnap-backend/internal/http/response"
	"github.com/magabrotheeeer/studysnap-backend/internal/lib/sl"
	"github.com/magabrotheeeer/studysnap-backend/internal/models"
)

// Resolver определяет интерфейс резолвера вердикта о доступе.
type Resolver interface {
	Resolve(ctx context.Context, user *models.User) (models.Verdict, error)
}

// EntitlementMiddleware создает middleware-гейт платных возможностей.
// Вердикт вычисляется заново на каждый запрос: границы триала и
// оплаченного периода переключают доступ без событий. Пропускаются
// только trial и paid; остальным возвращаются стабильные коды
// login_required и subscription_required.
func EntitlementMiddleware(log *slog.Logger, resolver Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.EntitlementMiddleware"
			log := log.With(slog.String("op", op))

			user, ok := UserFromContext(r.Context())
			if !ok {
				log.Error("user missing in context")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.ErrorWithCode("login required", response.CodeLoginRequired))
				return
			}

			verdict, err := resolver.Resolve(r.Context(), user)
			if err != nil {
				log.Error("failed to resolve entitlement", sl.Err(err))
				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.Error("internal service error"))
				return
			}

			switch verdict {
			case models.VerdictUnauthenticated:
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.ErrorWithCode("login required", response.CodeLoginRequired))
				return
			case models.VerdictNone:
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, response.ErrorWithCode("active subscription or trial required", response.CodeSubscriptionRequired))
				return
			}

			ctx := context.WithValue(r.Context(), CtxVerdict, verdict)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
