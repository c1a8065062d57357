/**
 * @description
 * Client for the remote "recommend gateway" endpoint. The gateway router
 * treats every failure here as a soft miss and falls back to the card
 * channel, so this client only reports errors, it never retries.
 *
 * @dependencies
 * - bytes, context, encoding/json, fmt, net/http, time: Standard Go libraries.
 * - internal/domain: Gateway decision model.
 */
package gatewayclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/will383842/Outil-sos-expat-sub004/internal/domain"
)

// Client is a client for the gateway recommendation API.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient creates a new gateway recommendation client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type recommendRequest struct {
	CountryCode string `json:"countryCode"`
}

type recommendResponse struct {
	Channel            string `json:"channel"`
	IsChannelExclusive bool   `json:"isChannelExclusive"`
	CountryCode        string `json:"countryCode"`
}

// RecommendGateway asks the backend which channel serves a country.
func (c *Client) RecommendGateway(ctx context.Context, countryCode string) (*domain.GatewayDecision, error) {
	body, err := json.Marshal(recommendRequest{CountryCode: countryCode})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/gateway/recommend", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway recommendation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("gateway recommendation rejected with status %d", resp.StatusCode)
	}

	var parsed recommendResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to parse gateway recommendation: %w", err)
	}

	return &domain.GatewayDecision{
		CountryCode:      parsed.CountryCode,
		Channel:          domain.PaymentChannel(parsed.Channel),
		ChannelExclusive: parsed.IsChannelExclusive,
	}, nil
}
