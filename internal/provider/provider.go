package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"coursepay/internal/model"
)

// ErrUnknownProvider means a charge was requested for a provider name
// nothing is registered under. This is a configuration error and is
// never retried.
var ErrUnknownProvider = errors.New("unknown payment provider")

// InitiateRequest carries everything an adapter needs to open a charge.
// Amount is in minor units of the platform base currency.
type InitiateRequest struct {
	Amount   int64
	Currency string
	Metadata map[string]string
}

// InitiateResult is the normalized outcome of opening a charge.
// ConvertedAmount/ConvertedCurrency are set only when the provider
// settles in a different currency than the request; the conversion is
// made exactly once, here, and never recomputed.
type InitiateResult struct {
	Ref               model.Reference
	ClientSecret      string
	ApproveURL        string
	ConvertedAmount   *int64
	ConvertedCurrency *string
}

// ConfirmResult is the normalized outcome of confirming a charge with
// the provider. Completed is true only for the provider's explicit
// completed status token; anything else, including unknown statuses,
// must be treated as failure by the caller.
type ConfirmResult struct {
	Completed bool
	Status    string
	Raw       json.RawMessage
}

// Provider is the uniform capability surface over heterogeneous
// payment providers. Callers select an adapter once by name and never
// branch on provider identity afterwards.
type Provider interface {
	Name() string
	Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error)
	Confirm(ctx context.Context, externalID string) (*ConfirmResult, error)
}

// Registry maps provider names to adapters.
type Registry struct {
	providers map[string]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	m := make(map[string]Provider, len(providers))
	for _, p := range providers {
		m[p.Name()] = p
	}
	return &Registry{providers: m}
}

func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return p, nil
}
