// README: Thin HTTP client for the external payment authority.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Checkout is the authority's handle for a deferred charge.
type Checkout struct {
	SessionRef  string
	CheckoutURL string
}

// Authority creates checkout sessions with the external payment provider.
// The provider reports success or failure later, via webhook.
type Authority interface {
	CreateCheckout(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (Checkout, error)
}

type HTTPAuthority struct {
	baseURL string
	client  *http.Client
}

func NewHTTPAuthority(baseURL string) *HTTPAuthority {
	return &HTTPAuthority{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type checkoutRequest struct {
	AmountCents int64             `json:"amount_cents"`
	Currency    string            `json:"currency"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type checkoutResponse struct {
	SessionRef  string `json:"session_ref"`
	CheckoutURL string `json:"checkout_url"`
}

func (a *HTTPAuthority) CreateCheckout(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (Checkout, error) {
	body, err := json.Marshal(checkoutRequest{
		AmountCents: amountCents,
		Currency:    currency,
		Metadata:    metadata,
	})
	if err != nil {
		return Checkout{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/checkout-sessions", bytes.NewReader(body))
	if err != nil {
		return Checkout{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return Checkout{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return Checkout{}, fmt.Errorf("payment authority returned status %d", resp.StatusCode)
	}

	var out checkoutResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Checkout{}, err
	}
	if out.SessionRef == "" {
		return Checkout{}, fmt.Errorf("payment authority returned empty session ref")
	}
	return Checkout{SessionRef: out.SessionRef, CheckoutURL: out.CheckoutURL}, nil
}
