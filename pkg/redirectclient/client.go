/**
 * @description
 * Client for the redirect-based payment channel. Confirm opens the order at
 * the processor and returns the approval redirect URL; AwaitChallenge polls
 * until the payer has approved (or abandoned) the order at the processor,
 * bounded by the caller's context deadline.
 *
 * @dependencies
 * - bytes, context, encoding/json, fmt, net/http, net/url, time: Standard Go libraries.
 * - internal/domain: Confirmation result shape.
 */
package redirectclient

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

const approvalPollInterval = 5 * time.Second

// Client is a client for the redirect processor API.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient creates a new redirect processor client.
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
	ReturnURL    string `json:"returnUrl"`
}

type orderStatusResponse struct {
	Status      string `json:"status"`
	ApprovalURL string `json:"approvalUrl,omitempty"`
	Message     string `json:"message,omitempty"`
}

// Confirm opens the order for approval. The returned result carries the
// processor's approval URL and RequiresAction until the payer approves.
func (c *Client) Confirm(ctx context.Context, clientSecret string, instrument domain.PaymentInstrument) (*domain.ConfirmResult, error) {
	body, err := json.Marshal(confirmRequest{ClientSecret: clientSecret, ReturnURL: instrument.ReturnURL})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/orders/confirm", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("redirect confirmation request failed: %w", err)
	}
	defer resp.Body.Close()

	var parsed orderStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to parse redirect confirmation response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode >= 400 {
		if parsed.Message != "" {
			return nil, fmt.Errorf("redirect confirmation rejected: %s", parsed.Message)
		}
		return nil, fmt.Errorf("redirect confirmation rejected with status %d", resp.StatusCode)
	}

	return &domain.ConfirmResult{
		Status:         parsed.Status,
		RequiresAction: parsed.Status == domain.ProcessorStatusRequiresAction,
		Message:        parsed.Message,
		RedirectURL:    parsed.ApprovalURL,
	}, nil
}

// AwaitChallenge polls the order until the payer's approval resolves or the
// context deadline expires.
func (c *Client) AwaitChallenge(ctx context.Context, clientSecret string) (*domain.ConfirmResult, error) {
	ticker := time.NewTicker(approvalPollInterval)
	defer ticker.Stop()

	for {
		status, err := c.readStatus(ctx, clientSecret)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}
		if status.Status != domain.ProcessorStatusRequiresAction {
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
	endpoint := c.BaseURL + "/v1/orders/status?client_secret=" + url.QueryEscape(clientSecret)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("order status request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("order status rejected with status %d", resp.StatusCode)
	}

	var parsed orderStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to parse order status: %w", err)
	}
	return &domain.ConfirmResult{
		Status:      parsed.Status,
		Message:     parsed.Message,
		RedirectURL: parsed.ApprovalURL,
	}, nil
}
