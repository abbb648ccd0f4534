// Package checkout обрабатывает создание checkout-сессии новой подписки.
package checkout

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/studysnap-backend/internal/http/middlewarectx"
	"github.com/magabrotheeeer/studysnap-backend/internal/http/response"
	"github.com/magabrotheeeer/studysnap-backend/internal/lib/sl"
	"github.com/magabrotheeeer/studysnap-backend/internal/models"
)

// Request представляет запрос на создание checkout-сессии.
type Request struct {
	Plan string `json:"plan" validate:"required,oneof=monthly yearly"` // Тарифный план
}

// Service определяет интерфейс сервиса платёжных сессий.
type Service interface {
	CreateCheckoutSession(ctx context.Context, user *models.User, plan models.PlanType) (string, error)
}

// Handler обрабатывает запросы на создание checkout-сессий.
type Handler struct {
	log            *slog.Logger // Логгер для записи информации и ошибок
	billingService Service
	validate       *validator.Validate // Валидатор структуры входящих данных
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
// @Summary Создать checkout-сессию
// @Description Создаёт hosted checkout-сессию подписки у платёжного провайдера и возвращает URL
// @Tags Billing
// @Accept  json
// @Produce  json
// @Param request body Request true "Тарифный план"
// @Success 200 {object} map[string]string "URL hosted-сессии"
// @Failure 400 {object} response.ErrorResponse "Некорректный план"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка платёжного провайдера"
// @Router /checkout [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.billing.checkout"
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

	url, err := h.billingService.CreateCheckoutSession(r.Context(), user, models.PlanType(req.Plan))
	if err != nil {
		log.Error("failed to create checkout session", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error(err.Error()))
		return
	}

	log.Info("checkout session created", slog.String("user_uid", user.UID), slog.String("plan", req.Plan))
	render.JSON(w, r, map[string]string{"url": url})
}
