// Package generation реализует клиент внешнего сервиса генерации
// учебных материалов. Сервис непрозрачный: промпт и опциональные
// изображения на входе, текст на выходе. Вызывается только из-за
// гейта entitlement.
package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/magabrotheeeer/studysnap-backend/internal/config"
)

// Client клиент сервиса генерации контента.
type Client struct {
	generationURL string
	apiKey        string
	httpClient    *http.Client
}

// NewClient создаёт новый клиент сервиса генерации.
func NewClient(cfg config.GenerationService) *Client {
	return &Client{
		generationURL: cfg.GenerationURL,
		apiKey:        cfg.APIKey,
		httpClient:    &http.Client{Timeout: cfg.Timeout},
	}
}

type completionRequest struct {
	Prompt string   `json:"prompt"`
	Images []string `json:"images,omitempty"` // base64-страницы конспекта
}

type completionResponse struct {
	Text string `json:"text"`
}

// Generate отправляет промпт и изображения страниц и возвращает
// сгенерированный текст.
func (c *Client) Generate(ctx context.Context, prompt string, images []string) (string, error) {
	const op = "generation.Generate"

	body, err := json.Marshal(completionRequest{Prompt: prompt, Images: images})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.generationURL+"/v1/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%s: unexpected status %s: %s", op, resp.Status, msg)
	}

	var payload completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return payload.Text, nil
}
