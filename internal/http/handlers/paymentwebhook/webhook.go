// Package paymentwebhook принимает поток событий платёжного провайдера.
// Подпись запроса — граница доверия: токен аутентификации здесь не
// используется, тело запроса читается сырым для проверки HMAC.
package paymentwebhook

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/studysnap-backend/internal/http/response"
	"github.com/magabrotheeeer/studysnap-backend/internal/lib/sl"
	"github.com/magabrotheeeer/studysnap-backend/internal/paymentprovider"
)

// Service определяет интерфейс редьюсера событий.
type Service interface {
	ProcessEvent(ctx context.Context, event *paymentprovider.Event) error
}

// Handler обрабатывает webhook-запросы провайдера.
type Handler struct {
	log           *slog.Logger
	service       Service
	webhookSecret string // Секрет для проверки подписи
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service, secret string) *Handler {
	return &Handler{
		log:           log,
		service:       service,
		webhookSecret: secret,
	}
}

// ServeHTTP godoc
// @Summary Принять webhook платёжного провайдера
// @Description Проверяет подпись X-Signature и сводит событие в обновление хранилища подписок
// @Tags Webhooks
// @Accept  json
// @Produce  json
// @Success 200 {object} map[string]bool "Событие принято (включая no-op)"
// @Failure 400 {object} response.ErrorResponse "Невалидная подпись или тело"
// @Failure 500 {object} response.ErrorResponse "Сбой обработки, провайдер доставит повторно"
// @Router /webhooks/payments [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.paymentwebhook"
	log := h.log.With(slog.String("op", op))

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("failed to read body"))
		return
	}
	defer r.Body.Close()

	// Сначала и всегда — подпись. До её проверки ни одно поле тела
	// не интерпретируется и никакое состояние не меняется.
	signature := r.Header.Get("X-Signature")
	if signature == "" || !paymentprovider.VerifySignature(h.webhookSecret, body, signature) {
		log.Error("invalid or missing webhook signature")
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid signature"))
		return
	}

	var event paymentprovider.Event
	if err := json.Unmarshal(body, &event); err != nil {
		log.Error("failed to unmarshal webhook payload", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid payload"))
		return
	}

	// Ошибка после валидной подписи означает сбой чтения или записи:
	// отвечаем 500, чтобы провайдер доставил событие повторно.
	// Идемпотентность редьюсера делает повтор безопасным.
	if err := h.service.ProcessEvent(r.Context(), &event); err != nil {
		log.Error("failed to process webhook event", sl.Err(err),
			slog.String("event_type", event.Type))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to process event"))
		return
	}

	log.Info("webhook processed", slog.String("event_type", event.Type), slog.String("event_id", event.ID))
	render.JSON(w, r, map[string]bool{"received": true})
}
