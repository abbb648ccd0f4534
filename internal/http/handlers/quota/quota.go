// Package quota отдаёт текущее состояние доступа вызывающего:
// остаток бесплатных генераций, признак входа и наличие подписки.
// Конечная точка никогда не отвечает ошибкой — при внутреннем сбое
// возвращается консервативный бесплатный лимит.
package quota

import (
	"context"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/studysnap-backend/internal/http/middlewarectx"
	"github.com/magabrotheeeer/studysnap-backend/internal/lib/sl"
	"github.com/magabrotheeeer/studysnap-backend/internal/models"
)

// Identity определяет интерфейс identity-провайдера. Токен здесь
// опционален: анонимный вызов — штатный случай.
type Identity interface {
	UserFromToken(ctx context.Context, tokenStr string) (*models.User, error)
}

// Resolver определяет интерфейс резолвера вердикта.
type Resolver interface {
	Resolve(ctx context.Context, user *models.User) (models.Verdict, error)
}

// UsageCache читает legacy-счётчик бесплатных генераций.
type UsageCache interface {
	GetUsage(key string) (int64, error)
}

// Response ответ конечной точки квоты.
type Response struct {
	Remaining             int64 `json:"remaining"`
	Max                   int   `json:"max"`
	IsLoggedIn            bool  `json:"isLoggedIn"`
	HasActiveSubscription bool  `json:"hasActiveSubscription"`
}

// Handler обрабатывает запросы состояния квоты.
type Handler struct {
	log      *slog.Logger
	identity Identity
	resolver Resolver
	usage    UsageCache
	maxFree  int
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, identity Identity, resolver Resolver, usage UsageCache, maxFree int) *Handler {
	return &Handler{
		log:      log,
		identity: identity,
		resolver: resolver,
		usage:    usage,
		maxFree:  maxFree,
	}
}

// usageKey ключ legacy-счётчика: uid для залогиненных, адрес клиента
// для анонимных.
func (h *Handler) usageKey(r *http.Request, user *models.User) string {
	if user != nil && user.UID != "" {
		return "free_usage:" + user.UID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "free_usage:" + host
}

// ServeHTTP godoc
// @Summary Состояние квоты
// @Description Возвращает остаток бесплатных генераций и признаки входа и активной подписки
// @Tags Quota
// @Produce  json
// @Success 200 {object} Response
// @Router /quota [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.quota"
	log := h.log.With(slog.String("op", op))

	resp := Response{Max: h.maxFree, Remaining: int64(h.maxFree)}

	var user *models.User
	if tokenStr, ok := middlewarectx.BearerToken(r); ok {
		u, err := h.identity.UserFromToken(r.Context(), tokenStr)
		if err != nil {
			// Невалидный токен не ошибка для этой точки: вызывающий
			// просто считается анонимным.
			log.Info("quota called with invalid token", sl.Err(err))
		} else {
			user = u
			resp.IsLoggedIn = true
		}
	}

	if user != nil {
		verdict, err := h.resolver.Resolve(r.Context(), user)
		if err != nil {
			log.Error("failed to resolve entitlement, falling back to free tier", sl.Err(err))
		} else {
			resp.HasActiveSubscription = verdict == models.VerdictPaid
		}
	}

	used, err := h.usage.GetUsage(h.usageKey(r, user))
	if err != nil {
		log.Error("failed to read usage counter, falling back to full quota", sl.Err(err))
		used = 0
	}
	remaining := int64(h.maxFree) - used
	if remaining < 0 {
		remaining = 0
	}
	resp.Remaining = remaining

	render.JSON(w, r, resp)
}
