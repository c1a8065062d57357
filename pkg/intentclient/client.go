/**
 * @description
 * This package provides a client for the payment backend's intent endpoint.
 * It encapsulates the logic for making authenticated HTTP requests, request
 * body construction, and response parsing. Creating an intent carries the
 * attempt's call session id so the backend can de-duplicate retried
 * submissions.
 *
 * @dependencies
 * - bytes, context, encoding/json, fmt, net/http, time: Standard Go libraries.
 * - internal/domain: Intent request/response shapes.
 */
package intentclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/will383842/Outil-sos-expat-sub004/internal/domain"
)

// Client is a client for the payment backend API.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient creates a new payment backend client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type createIntentResponse struct {
	Success            bool               `json:"success"`
	ClientSecret       string             `json:"clientSecret"`
	ProcessorReference string             `json:"processorReference"`
	Amount             int64              `json:"amount"`
	Currency           string             `json:"currency"`
	ServiceKind        domain.ServiceKind `json:"serviceKind"`
	Status             string             `json:"status"`
	ExpiresAt          time.Time          `json:"expiresAt"`
	Error              string             `json:"error,omitempty"`
}

// CreateIntent asks the backend to create a payment intent for the attempt.
func (c *Client) CreateIntent(ctx context.Context, req domain.IntentRequest) (*domain.IntentResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal intent request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/payments/intents", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build intent request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("intent request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read intent response: %w", err)
	}

	var parsed createIntentResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse intent response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode >= 400 || !parsed.Success {
		if parsed.Error != "" {
			return nil, fmt.Errorf("intent creation rejected: %s", parsed.Error)
		}
		return nil, fmt.Errorf("intent creation rejected with status %d", resp.StatusCode)
	}

	return &domain.IntentResult{
		ClientSecret:       parsed.ClientSecret,
		ProcessorReference: parsed.ProcessorReference,
		AmountCents:        parsed.Amount,
		Currency:           parsed.Currency,
		ServiceKind:        parsed.ServiceKind,
		Status:             parsed.Status,
		ExpiresAt:          parsed.ExpiresAt,
	}, nil
}
