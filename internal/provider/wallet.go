package provider

import (
	"context"
	"fmt"

	"coursepay/internal/client"
	"coursepay/internal/model"

	"github.com/shopspring/decimal"
)

// WalletProviderName is the registry key for the wallet provider.
const WalletProviderName = "walletpay"

// WalletOrderCompleted is the only status token the wallet provider
// documents as a finished capture.
const WalletOrderCompleted = "COMPLETED"

// walletProvider is the synchronous-capture adapter. The wallet
// settles in its own currency, so Initiate converts the base-currency
// amount with a fixed rate and reports both amounts to the caller.
type walletProvider struct {
	walletClient client.WalletClient
	currency     string
	rate         decimal.Decimal
}

func NewWalletProvider(walletClient client.WalletClient, settleCurrency, rate string) (Provider, error) {
	r, err := decimal.NewFromString(rate)
	if err != nil {
		return nil, fmt.Errorf("parse wallet conversion rate %q: %w", rate, err)
	}
	if !r.IsPositive() {
		return nil, fmt.Errorf("wallet conversion rate must be positive, got %s", r)
	}

	return &walletProvider{
		walletClient: walletClient,
		currency:     settleCurrency,
		rate:         r,
	}, nil
}

func (p *walletProvider) Name() string {
	return WalletProviderName
}

func (p *walletProvider) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	result := &InitiateResult{}

	chargeAmount := req.Amount
	if p.currency != req.Currency {
		converted := p.convert(req.Amount)
		result.ConvertedAmount = &converted
		currency := p.currency
		result.ConvertedCurrency = &currency
		chargeAmount = converted
	}

	resp, err := p.walletClient.CreateOrder(ctx, chargeAmount, p.currency)
	if err != nil {
		return nil, fmt.Errorf("wallet create order: %w", err)
	}

	result.Ref = model.Reference{Kind: model.RefWalletOrder, ID: resp.OrderID}
	result.ApproveURL = resp.ApproveURL

	return result, nil
}

func (p *walletProvider) Confirm(ctx context.Context, externalID string) (*ConfirmResult, error) {
	resp, err := p.walletClient.CaptureOrder(ctx, externalID)
	if err != nil {
		return nil, fmt.Errorf("wallet capture order: %w", err)
	}

	return &ConfirmResult{
		Completed: resp.Status == WalletOrderCompleted,
		Status:    resp.Status,
		Raw:       resp.Raw,
	}, nil
}

// convert applies the fixed rate to a minor-unit amount, rounding half
// up to the settle currency's minor unit. Exact decimal math, no
// floating point.
func (p *walletProvider) convert(amount int64) int64 {
	return decimal.NewFromInt(amount).Mul(p.rate).Round(0).IntPart()
}
