// Package gateway предоставляет адаптер платёжного шлюза для списаний с карт.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ChargeCardError означает отказ или сбой платёжного шлюза при списании с
// карты. Сообщение пригодно для показа конечному пользователю и не зависит
// от конкретного шлюза.
type ChargeCardError struct {
	Message string
}

func (e *ChargeCardError) Error() string {
	return e.Message
}

// CardCharger описывает способность списать средства с карты по токену.
type CardCharger interface {
	ChargeCard(ctx context.Context, token string, amount float64) (string, error)
}

// StripeClient инкапсулирует HTTP-взаимодействие со Stripe REST API.
// Запрос на списание никогда не повторяется автоматически: повтор мог бы
// привести к двойному списанию.
type StripeClient struct {
	baseURL    string
	secretKey  string
	currency   string
	httpClient *http.Client
}

// NewStripeClient создаёт клиент шлюза. Пустой baseURL означает боевой адрес Stripe.
func NewStripeClient(baseURL, secretKey, currency string) *StripeClient {
	if baseURL == "" {
		baseURL = "https://api.stripe.com"
	}
	return &StripeClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		currency:  currency,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type chargeResponse struct {
	ID    string `json:"id"`
	Paid  bool   `json:"paid"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// ChargeCard списывает указанную сумму в основных единицах валюты и
// возвращает идентификатор транзакции шлюза. Любой отказ, сетевой сбой или
// таймаут возвращается как *ChargeCardError.
func (c *StripeClient) ChargeCard(ctx context.Context, token string, amount float64) (string, error) {
	amountCents := int64(math.Round(amount * 100))

	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amountCents, 10))
	form.Set("currency", c.currency)
	form.Set("source", token)
	form.Set("description", "Membership contribution")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/charges", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &ChargeCardError{Message: "The payment gateway could not be reached."}
	}
	defer resp.Body.Close()

	var result chargeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", &ChargeCardError{Message: "The payment gateway returned an unexpected response."}
	}

	if resp.StatusCode != http.StatusOK {
		if result.Error != nil && result.Error.Type == "card_error" && result.Error.Message != "" {
			return "", &ChargeCardError{Message: result.Error.Message}
		}
		return "", &ChargeCardError{Message: "The card has been declined by the payment gateway."}
	}

	if result.ID == "" {
		return "", &ChargeCardError{Message: "The payment gateway returned an unexpected response."}
	}

	return result.ID, nil
}
