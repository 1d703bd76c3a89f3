package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"coursepay/internal/config"
)

// CardClient talks to the card processor's intent API. An intent is
// opened at initiation time; the processor confirms it later through a
// signed webhook.
type CardClient interface {
	CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*CreateIntentResponse, error)
	GetIntent(ctx context.Context, intentID string) (*IntentStatusResponse, error)
}

type cardClientImpl struct {
	httpClient *http.Client
	baseApiURL string
	secretKey  string
}

type CreateIntentResponse struct {
	IntentID     string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
}

type IntentStatusResponse struct {
	IntentID string          `json:"id"`
	Status   string          `json:"status"`
	Raw      json.RawMessage `json:"-"`
}

func NewCardClient(cardCfg *config.Card) CardClient {
	return &cardClientImpl{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseApiURL: cardCfg.BaseApiURL,
		secretKey:  cardCfg.SecretKey,
	}
}

func (c *cardClientImpl) CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*CreateIntentResponse, error) {
	payload := map[string]interface{}{
		"amount":   amount,
		"currency": currency,
		"metadata": metadata,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal req payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseApiURL+"/v1/payment_intents",
		bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("http new request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("card processor error %d: %s", resp.StatusCode, string(b))
	}

	var result CreateIntentResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode card processor response: %w", err)
	}

	return &result, nil
}

func (c *cardClientImpl) GetIntent(ctx context.Context, intentID string) (*IntentStatusResponse, error) {
	reqURL := fmt.Sprintf("%s/v1/payment_intents/%s", c.baseApiURL, url.PathEscape(intentID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("http new request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("card intent request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("card intent fetch failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var result IntentStatusResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode card intent response: %w", err)
	}
	result.Raw = body

	return &result, nil
}
