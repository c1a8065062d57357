/**
 * @description
 * Client for the call-scheduling backend. A single request books the
 * post-payment phone call between client and provider with a fixed delay.
 * The caller treats every failure as non-fatal.
 *
 * @dependencies
 * - bytes, context, encoding/json, fmt, net/http, time: Standard Go libraries.
 * - internal/domain: Scheduling request model.
 */
package callclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/will383842/Outil-sos-expat-sub004/internal/domain"
)

// Client is a client for the call scheduling API.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient creates a new call scheduling client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type scheduleCallRequest struct {
	ProviderID         string   `json:"providerId"`
	ClientID           string   `json:"clientId"`
	ProviderPhone      string   `json:"providerPhone"`
	ClientPhone        string   `json:"clientPhone"`
	ServiceKind        string   `json:"serviceKind"`
	ProviderType       string   `json:"providerType"`
	ProcessorReference string   `json:"processorReference"`
	Amount             int64    `json:"amount"`
	Currency           string   `json:"currency"`
	DelayMinutes       int      `json:"delayMinutes"`
	ClientLanguages    []string `json:"clientLanguages"`
	ProviderLanguages  []string `json:"providerLanguages"`
	CallSessionID      string   `json:"callSessionId"`
}

type scheduleCallResponse struct {
	Success bool   `json:"success"`
	CallID  string `json:"callId,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ScheduleCall books the post-payment call and returns the backend's call id.
func (c *Client) ScheduleCall(ctx context.Context, req domain.CallSchedulingRequest) (string, error) {
	payload := scheduleCallRequest{
		ProviderID:         req.ProviderID,
		ClientID:           req.ClientID,
		ProviderPhone:      req.ProviderPhone,
		ClientPhone:        req.ClientPhone,
		ServiceKind:        string(req.ServiceKind),
		ProviderType:       req.ProviderType,
		ProcessorReference: req.ProcessorReference,
		Amount:             req.AmountCents,
		Currency:           req.Currency,
		DelayMinutes:       req.DelayMinutes,
		ClientLanguages:    req.ClientLanguages,
		ProviderLanguages:  req.ProviderLanguages,
		CallSessionID:      req.CallSessionID,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/calls/schedule", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("call scheduling request failed: %w", err)
	}
	defer resp.Body.Close()

	var parsed scheduleCallResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to parse call scheduling response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode >= 400 || !parsed.Success {
		if parsed.Error != "" {
			return "", fmt.Errorf("call scheduling rejected: %s", parsed.Error)
		}
		return "", fmt.Errorf("call scheduling rejected with status %d", resp.StatusCode)
	}

	return parsed.CallID, nil
}
