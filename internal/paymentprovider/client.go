// Package paymentprovider реализует HTTP-клиент платёжного провайдера:
// создание клиентов и hosted-сессий, чтение и отмена подписок,
// проверку подписи webhook-событий.
package paymentprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client клиент REST API платёжного провайдера. Создаётся один раз
// на процесс и внедряется в сервисы явно.
type Client struct {
	secretKey  string
	apiURL     string
	httpClient *http.Client
}

// NewClient создаёт новый клиент провайдера.
func NewClient(apiURL, secretKey string) *Client {
	return &Client{
		secretKey:  secretKey,
		apiURL:     apiURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	url := c.apiURL + path
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *Client) do(req *http.Request, result any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %s: %s", resp.Status, msg)
	}
	return json.NewDecoder(resp.Body).Decode(result)
}

// CreateCustomer создаёт клиента у провайдера. Метаданные с user_uid
// обязательны: это единственная связь для редьюсера вебхуков.
func (c *Client) CreateCustomer(ctx context.Context, reqParams CreateCustomerRequest) (*Customer, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/v1/customers", reqParams)
	if err != nil {
		return nil, err
	}
	var customer Customer
	if err := c.do(req, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

// CreateCheckoutSession создаёт hosted checkout-сессию в режиме подписки.
func (c *Client) CreateCheckoutSession(ctx context.Context, reqParams CreateSessionRequest) (*Session, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/v1/checkout/sessions", reqParams)
	if err != nil {
		return nil, err
	}
	var session Session
	if err := c.do(req, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// CreatePortalSession создаёт сессию self-service портала для клиента.
func (c *Client) CreatePortalSession(ctx context.Context, reqParams CreatePortalSessionRequest) (*Session, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/v1/billing_portal/sessions", reqParams)
	if err != nil {
		return nil, err
	}
	var session Session
	if err := c.do(req, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// GetSubscription читает полный снапшот подписки у провайдера.
func (c *Client) GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/v1/subscriptions/"+subscriptionID, nil)
	if err != nil {
		return nil, err
	}
	var sub Subscription
	if err := c.do(req, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// CancelSubscription запрашивает отмену подписки у провайдера.
// Локальная строка мутируется не здесь, а позже — событием
// customer.subscription.deleted через редьюсер.
func (c *Client) CancelSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	req, err := c.newRequest(ctx, http.MethodDelete, "/v1/subscriptions/"+subscriptionID, nil)
	if err != nil {
		return nil, err
	}
	var sub Subscription
	if err := c.do(req, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}
