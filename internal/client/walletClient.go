package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"coursepay/internal/config"
)

// WalletClient talks to the wallet provider's order API. Orders are
// confirmed by a caller-driven synchronous capture call, not a webhook.
type WalletClient interface {
	CreateOrder(ctx context.Context, amount int64, currency string) (*CreateOrderResponse, error)
	CaptureOrder(ctx context.Context, orderID string) (*CaptureOrderResponse, error)
}

type walletClientImpl struct {
	httpClient         *http.Client
	baseApiURL         string
	walletClientID     string
	walletClientSecret string
}

type CreateOrderResponse struct {
	OrderID    string
	ApproveURL string
}

type CaptureOrderResponse struct {
	Status string
	Raw    json.RawMessage
}

type walletLink struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

type walletOrderResult struct {
	ID     string       `json:"id"`
	Status string       `json:"status"`
	Links  []walletLink `json:"links"`
}

func NewWalletClient(walletCfg *config.Wallet) WalletClient {
	return &walletClientImpl{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseApiURL:         walletCfg.BaseApiURL,
		walletClientID:     walletCfg.ClientID,
		walletClientSecret: walletCfg.ClientSecret,
	}
}

func (c *walletClientImpl) getAccessToken(ctx context.Context) (string, error) {
	auth := base64.StdEncoding.EncodeToString(
		[]byte(c.walletClientID + ":" + c.walletClientSecret),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseApiURL+"/v1/oauth2/token",
		bytes.NewBufferString("grant_type=client_credentials"))
	if err != nil {
		return "", fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	var res struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}

	return res.AccessToken, nil
}

func (c *walletClientImpl) CreateOrder(ctx context.Context, amount int64, currency string) (*CreateOrderResponse, error) {
	accessToken, err := c.getAccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("get wallet access token: %w", err)
	}

	payload := map[string]interface{}{
		"intent": "CAPTURE",
		"purchase_units": []map[string]interface{}{
			{
				"amount": map[string]string{
					"currency_code": currency,
					"value":         minorUnitsToDecimalString(amount),
				},
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal req payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseApiURL+"/v2/checkout/orders",
		bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("http new request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wallet create order failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("wallet error %d: %s", resp.StatusCode, string(b))
	}

	var result walletOrderResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode wallet response: %w", err)
	}

	return &CreateOrderResponse{
		OrderID:    result.ID,
		ApproveURL: extractApproveURL(result.Links),
	}, nil
}

func (c *walletClientImpl) CaptureOrder(ctx context.Context, orderID string) (*CaptureOrderResponse, error) {
	accessToken, err := c.getAccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("get wallet access token: %w", err)
	}

	reqURL := fmt.Sprintf(
		"%s/v2/checkout/orders/%s/capture",
		c.baseApiURL,
		url.PathEscape(orderID),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create capture request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wallet capture request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf(
			"wallet capture failed: status=%d body=%s",
			resp.StatusCode,
			string(body),
		)
	}

	var result walletOrderResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode wallet capture response: %w", err)
	}

	return &CaptureOrderResponse{
		Status: result.Status,
		Raw:    body,
	}, nil
}

func extractApproveURL(links []walletLink) string {
	for _, link := range links {
		if link.Rel == "approve" {
			return link.Href
		}
	}
	return ""
}

// minorUnitsToDecimalString renders 12345 as "123.45" for providers
// that take decimal amount strings.
func minorUnitsToDecimalString(amount int64) string {
	return fmt.Sprintf("%d.%02d", amount/100, amount%100)
}
