// Package change обрабатывает смену тарифного плана подписки.
package change

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/studysnap-backend/internal/http/middlewarectx"
	"github.com/magabrotheeeer/studysnap-backend/internal/http/response"
	"github.com/magabrotheeeer/studysnap-backend/internal/lib/sl"
	"github.com/magabrotheeeer/studysnap-backend/internal/models"
	"github.com/magabrotheeeer/studysnap-backend/internal/services/billing"
)

// Request представляет запрос на смену плана.
type Request struct {
	SubscriptionID string `json:"subscriptionId" validate:"required"`
	NewPlan        string `json:"newPlan" validate:"required,oneof=monthly yearly"`
}

// Service определяет интерфейс сервиса платёжных сессий.
type Service interface {
	CreatePlanChangeSession(ctx context.Context, user *models.User, subscriptionID string, newPlan models.PlanType) (string, error)
}

// Handler обрабатывает запросы на смену плана.
type Handler struct {
	log            *slog.Logger
	billingService Service
	validate       *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, billingService Service) *Handler {
	return &Handler{
		log:            log,
		billingService: billingService,
		validate:       validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Сменить тарифный план
// @Description Перекотирует подписку на новый план и возвращает URL новой checkout-сессии
// @Tags Billing
// @Accept  json
// @Produce  json
// @Param request body Request true "Подписка и новый план"
// @Success 200 {object} map[string]string "URL hosted-сессии"
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос или чужая подписка"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка платёжного провайдера"
// @Router /subscription/change [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.billing.change"
	log := h.log.With(slog.String("op", op))

	user, ok := middlewarectx.UserFromContext(r.Context())
	if !ok {
		log.Error("user missing in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.ErrorWithCode("unauthorized", response.CodeLoginRequired))
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	url, err := h.billingService.CreatePlanChangeSession(r.Context(), user, req.SubscriptionID, models.PlanType(req.NewPlan))
	if errors.Is(err, billing.ErrSubscriptionNotFound) {
		log.Error("subscription not found", slog.String("subscription_id", req.SubscriptionID))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("subscription not found"))
		return
	}
	if err != nil {
		log.Error("failed to create plan change session", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error(err.Error()))
		return
	}

	log.Info("plan change session created",
		slog.String("user_uid", user.UID),
		slog.String("subscription_id", req.SubscriptionID),
		slog.String("new_plan", req.NewPlan))
	render.JSON(w, r, map[string]string{"url": url})
}
