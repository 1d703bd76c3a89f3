package provider

import (
	"context"
	"fmt"

	"coursepay/internal/client"
	"coursepay/internal/model"
)

// CardProviderName is the registry key for the card processor.
const CardProviderName = "cardlike"

// cardIntentSucceeded is the card processor's terminal success status.
const cardIntentSucceeded = "succeeded"

// cardProvider is the intent/webhook-style adapter. Initiate opens a
// payment intent; confirmation normally arrives through the signed
// webhook, so Confirm only polls intent state for reconciliation.
type cardProvider struct {
	cardClient client.CardClient
}

func NewCardProvider(cardClient client.CardClient) Provider {
	return &cardProvider{cardClient: cardClient}
}

func (p *cardProvider) Name() string {
	return CardProviderName
}

func (p *cardProvider) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	resp, err := p.cardClient.CreateIntent(ctx, req.Amount, req.Currency, req.Metadata)
	if err != nil {
		return nil, fmt.Errorf("card create intent: %w", err)
	}

	return &InitiateResult{
		Ref:          model.Reference{Kind: model.RefCardIntent, ID: resp.IntentID},
		ClientSecret: resp.ClientSecret,
	}, nil
}

func (p *cardProvider) Confirm(ctx context.Context, externalID string) (*ConfirmResult, error) {
	resp, err := p.cardClient.GetIntent(ctx, externalID)
	if err != nil {
		return nil, fmt.Errorf("card get intent: %w", err)
	}

	return &ConfirmResult{
		Completed: resp.Status == cardIntentSucceeded,
		Status:    resp.Status,
		Raw:       resp.Raw,
	}, nil
}
