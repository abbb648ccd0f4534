// Package portal обрабатывает создание сессии self-service портала.
package portal

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/studysnap-backend/internal/http/middlewarectx"
	"github.com/magabrotheeeer/studysnap-backend/internal/http/response"
	"github.com/magabrotheeeer/studysnap-backend/internal/lib/sl"
	"github.com/magabrotheeeer/studysnap-backend/internal/models"
	"github.com/magabrotheeeer/studysnap-backend/internal/services/billing"
)

// Service определяет интерфейс сервиса платёжных сессий.
type Service interface {
	CreatePortalSession(ctx context.Context, user *models.User) (string, error)
}

// Handler обрабатывает запросы на сессию портала.
type Handler struct {
	log            *slog.Logger
	billingService Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, billingService Service) *Handler {
	return &Handler{
		log:            log,
		billingService: billingService,
	}
}

// ServeHTTP godoc
// @Summary Создать сессию биллинг-портала
// @Description Возвращает URL self-service портала платёжного провайдера
// @Tags Billing
// @Produce  json
// @Success 200 {object} map[string]string "URL hosted-сессии"
// @Failure 400 {object} response.ErrorResponse "Клиент у провайдера не найден"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка платёжного провайдера"
// @Router /portal [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.billing.portal"
	log := h.log.With(slog.String("op", op))

	user, ok := middlewarectx.UserFromContext(r.Context())
	if !ok {
		log.Error("user missing in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.ErrorWithCode("unauthorized", response.CodeLoginRequired))
		return
	}

	url, err := h.billingService.CreatePortalSession(r.Context(), user)
	if errors.Is(err, billing.ErrCustomerNotFound) {
		log.Error("customer not found", slog.String("user_uid", user.UID))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("no billing account for this user"))
		return
	}
	if err != nil {
		log.Error("failed to create portal session", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error(err.Error()))
		return
	}

	log.Info("portal session created", slog.String("user_uid", user.UID))
	render.JSON(w, r, map[string]string{"url": url})
}
