// Package generate обрабатывает генерацию учебного материала из
// конспекта. Конечная точка платная и стоит за entitlement-гейтом.
package generate

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
)

// Request представляет запрос на генерацию.
type Request struct {
	Prompt string   `json:"prompt" validate:"required"` // Что сгенерировать
	Images []string `json:"images"`                     // Base64-страницы конспекта
}

// Service определяет интерфейс сервиса генерации контента.
type Service interface {
	Generate(ctx context.Context, prompt string, images []string) (string, error)
}

// Handler обрабатывает запросы генерации.
type Handler struct {
	log               *slog.Logger
	generationService Service
	validate          *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, generationService Service) *Handler {
	return &Handler{
		log:               log,
		generationService: generationService,
		validate:          validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Сгенерировать учебный материал
// @Description Отправляет промпт и страницы конспекта в сервис генерации и возвращает текст
// @Tags Generation
// @Accept  json
// @Produce  json
// @Param request body Request true "Промпт и изображения"
// @Success 200 {object} map[string]string
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 401 {object} response.ErrorResponse "Требуется вход"
// @Failure 403 {object} response.ErrorResponse "Требуется подписка"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервиса генерации"
// @Router /generate [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.generate"
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

	text, err := h.generationService.Generate(r.Context(), req.Prompt, req.Images)
	if err != nil {
		log.Error("failed to generate content", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("generation service error"))
		return
	}

	log.Info("content generated", slog.String("user_uid", user.UID))
	render.JSON(w, r, map[string]string{"text": text})
}
