package provider

import (
	"context"
	"encoding/json"
	"testing"

	"coursepay/internal/client"
	"coursepay/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWalletClient struct {
	lastAmount   int64
	lastCurrency string
	orderID      string
	captureResp  *client.CaptureOrderResponse
	captureErr   error
}

func (f *fakeWalletClient) CreateOrder(ctx context.Context, amount int64, currency string) (*client.CreateOrderResponse, error) {
	f.lastAmount = amount
	f.lastCurrency = currency
	return &client.CreateOrderResponse{OrderID: f.orderID, ApproveURL: "https://wallet.test/approve"}, nil
}

func (f *fakeWalletClient) CaptureOrder(ctx context.Context, orderID string) (*client.CaptureOrderResponse, error) {
	return f.captureResp, f.captureErr
}

type fakeCardClient struct {
	intentStatus string
}

func (f *fakeCardClient) CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*client.CreateIntentResponse, error) {
	return &client.CreateIntentResponse{IntentID: "pi_123", ClientSecret: "pi_123_secret", Status: "requires_payment_method"}, nil
}

func (f *fakeCardClient) GetIntent(ctx context.Context, intentID string) (*client.IntentStatusResponse, error) {
	return &client.IntentStatusResponse{IntentID: intentID, Status: f.intentStatus, Raw: json.RawMessage(`{}`)}, nil
}

func TestRegistryUnknownName(t *testing.T) {
	registry := NewRegistry(NewCardProvider(&fakeCardClient{}))

	_, err := registry.Get("no-such-provider")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestRegistryLookupByName(t *testing.T) {
	registry := NewRegistry(NewCardProvider(&fakeCardClient{}))

	p, err := registry.Get(CardProviderName)
	require.NoError(t, err)
	assert.Equal(t, CardProviderName, p.Name())
}

func TestWalletInitiateConvertsOnce(t *testing.T) {
	wallet := &fakeWalletClient{orderID: "ORD-1"}
	p, err := NewWalletProvider(wallet, "USD", "0.012")
	require.NoError(t, err)

	result, err := p.Initiate(context.Background(), InitiateRequest{Amount: 50000, Currency: "INR"})
	require.NoError(t, err)

	// 50000 * 0.012 = 600, exact decimal math
	require.NotNil(t, result.ConvertedAmount)
	assert.Equal(t, int64(600), *result.ConvertedAmount)
	require.NotNil(t, result.ConvertedCurrency)
	assert.Equal(t, "USD", *result.ConvertedCurrency)

	// the converted amount is what was charged
	assert.Equal(t, int64(600), wallet.lastAmount)
	assert.Equal(t, "USD", wallet.lastCurrency)

	assert.Equal(t, model.RefWalletOrder, result.Ref.Kind)
	assert.Equal(t, "ORD-1", result.Ref.ID)
}

func TestWalletInitiateRoundsHalfUp(t *testing.T) {
	wallet := &fakeWalletClient{orderID: "ORD-2"}
	p, err := NewWalletProvider(wallet, "USD", "0.012")
	require.NoError(t, err)

	// 125 * 0.012 = 1.5 -> rounds to 2
	result, err := p.Initiate(context.Background(), InitiateRequest{Amount: 125, Currency: "INR"})
	require.NoError(t, err)
	require.NotNil(t, result.ConvertedAmount)
	assert.Equal(t, int64(2), *result.ConvertedAmount)
}

func TestWalletInitiateSameCurrencySkipsConversion(t *testing.T) {
	wallet := &fakeWalletClient{orderID: "ORD-3"}
	p, err := NewWalletProvider(wallet, "USD", "0.012")
	require.NoError(t, err)

	result, err := p.Initiate(context.Background(), InitiateRequest{Amount: 1000, Currency: "USD"})
	require.NoError(t, err)

	assert.Nil(t, result.ConvertedAmount)
	assert.Nil(t, result.ConvertedCurrency)
	assert.Equal(t, int64(1000), wallet.lastAmount)
}

func TestWalletConfirmStatusStrictness(t *testing.T) {
	tests := []struct {
		status    string
		completed bool
	}{
		{"COMPLETED", true},
		{"PENDING", false},
		{"APPROVED", false},
		{"completed", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run("status_"+tt.status, func(t *testing.T) {
			wallet := &fakeWalletClient{
				captureResp: &client.CaptureOrderResponse{Status: tt.status},
			}
			p, err := NewWalletProvider(wallet, "USD", "0.012")
			require.NoError(t, err)

			result, err := p.Confirm(context.Background(), "ORD-1")
			require.NoError(t, err)
			assert.Equal(t, tt.completed, result.Completed)
			assert.Equal(t, tt.status, result.Status)
		})
	}
}

func TestWalletProviderRejectsBadRate(t *testing.T) {
	_, err := NewWalletProvider(&fakeWalletClient{}, "USD", "not-a-number")
	assert.Error(t, err)

	_, err = NewWalletProvider(&fakeWalletClient{}, "USD", "-1")
	assert.Error(t, err)
}

func TestCardInitiateReturnsIntentRef(t *testing.T) {
	p := NewCardProvider(&fakeCardClient{})

	result, err := p.Initiate(context.Background(), InitiateRequest{Amount: 500, Currency: "INR"})
	require.NoError(t, err)

	assert.Equal(t, model.RefCardIntent, result.Ref.Kind)
	assert.Equal(t, "pi_123", result.Ref.ID)
	assert.Equal(t, "pi_123_secret", result.ClientSecret)
	assert.Nil(t, result.ConvertedAmount)
}

func TestCardConfirmMapsStatus(t *testing.T) {
	p := NewCardProvider(&fakeCardClient{intentStatus: "succeeded"})
	result, err := p.Confirm(context.Background(), "pi_123")
	require.NoError(t, err)
	assert.True(t, result.Completed)

	p = NewCardProvider(&fakeCardClient{intentStatus: "processing"})
	result, err = p.Confirm(context.Background(), "pi_123")
	require.NoError(t, err)
	assert.False(t, result.Completed)
}
