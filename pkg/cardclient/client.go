/**
 * @description
 * Client for the card-tokenizing payment channel. Confirm submits the card
 * token against the intent's client secret; AwaitChallenge polls the intent
 * status while a secondary-authentication challenge is outstanding, bounded
 * by the caller's context deadline.
 *
 * @dependencies
 * - bytes, context, encoding/json, fmt, net/http, net/url, time: Standard Go libraries.
 * - internal/domain: Confirmation result shape.
 */
package cardclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/will383842/Outil-sos-expat-sub004/internal/domain"
)

const challengePollInterval = 3 * time.Second

// Client is a client for the card processor API.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient creates a new card processor client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type confirmRequest struct {
	ClientSecret string `json:"clientSecret"`
	CardToken    string `json:"cardToken"`
}

type intentStatusResponse struct {
	Status         string `json:"status"`
	RequiresAction bool   `json:"requiresAction"`
	Message        string `json:"message,omitempty"`
}

// Confirm submits the collected card token for the intent.
func (c *Client) Confirm(ctx context.Context, clientSecret string, instrument domain.PaymentInstrument) (*domain.ConfirmResult, error) {
	body, err := json.Marshal(confirmRequest{ClientSecret: clientSecret, CardToken: instrument.CardToken})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/intents/confirm", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("card confirmation request failed: %w", err)
	}
	defer resp.Body.Close()

	var parsed intentStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to parse card confirmation response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode >= 400 {
		if parsed.Message != "" {
			return nil, fmt.Errorf("card confirmation rejected: %s", parsed.Message)
		}
		return nil, fmt.Errorf("card confirmation rejected with status %d", resp.StatusCode)
	}

	return &domain.ConfirmResult{
		Status:         parsed.Status,
		RequiresAction: parsed.RequiresAction,
		Message:        parsed.Message,
	}, nil
}

// AwaitChallenge polls the intent until the secondary-authentication
// challenge resolves or the context deadline expires.
func (c *Client) AwaitChallenge(ctx context.Context, clientSecret string) (*domain.ConfirmResult, error) {
	ticker := time.NewTicker(challengePollInterval)
	defer ticker.Stop()

	for {
		status, err := c.readStatus(ctx, clientSecret)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}
		if !status.RequiresAction && status.Status != domain.ProcessorStatusRequiresAction {
			return status, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) readStatus(ctx context.Context, clientSecret string) (*domain.ConfirmResult, error) {
	endpoint := c.BaseURL + "/v1/intents/status?client_secret=" + url.QueryEscape(clientSecret)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("intent status request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("intent status rejected with status %d", resp.StatusCode)
	}

	var parsed intentStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to parse intent status: %w", err)
	}
	return &domain.ConfirmResult{
		Status:         parsed.Status,
		RequiresAction: parsed.RequiresAction,
		Message:        parsed.Message,
	}, nil
}
