/**
 * @description
 * Wire shapes exchanged with the payment backend and the payment channels:
 * the intent creation request/response and the channel confirmation result.
 * They live in the domain package so the orchestrator and the RPC clients can
 * share them without importing each other.
 *
 * @dependencies
 * - time: Standard Go library.
 */

package domain

import "time"

// PaymentInstrument is the collected payment detail submitted to a channel.
// CardToken is used by the card channel; ReturnURL by the redirect channel.
type PaymentInstrument struct {
	CardToken string `json:"card_token,omitempty"`
	ReturnURL string `json:"return_url,omitempty"`
}

// IntentMetadata travels with the intent so the backend can reconcile and
// de-duplicate. CallSessionID is the attempt's idempotency key.
type IntentMetadata struct {
	ProviderType    string    `json:"provider_type"`
	DurationMinutes int       `json:"duration"`
	ClientName      string    `json:"client_name"`
	ClientPhone     string    `json:"client_phone"`
	Currency        string    `json:"currency"`
	RequestTitle    string    `json:"request_title"`
	Timestamp       time.Time `json:"timestamp"`
	CallSessionID   string    `json:"call_session_id"`
}

// IntentCoupon describes the applied promo code for the backend's records.
type IntentCoupon struct {
	Code        string       `json:"code"`
	Type        DiscountType `json:"type"`
	AmountCents int64        `json:"amount"`
}

// IntentRequest is the "create payment intent" RPC payload.
type IntentRequest struct {
	AmountCents int64          `json:"amount"`
	Currency    string         `json:"currency"`
	ServiceKind ServiceKind    `json:"service_kind"`
	ProviderID  string         `json:"provider_id"`
	ClientID    string         `json:"client_id"`
	ClientEmail string         `json:"client_email"`
	Description string         `json:"description"`
	Metadata    IntentMetadata `json:"metadata"`
	Coupon      *IntentCoupon  `json:"coupon,omitempty"`
}

// IntentResult is the backend's answer to a create-intent request.
type IntentResult struct {
	ClientSecret       string      `json:"client_secret"`
	ProcessorReference string      `json:"processor_reference"`
	AmountCents        int64       `json:"amount"`
	Currency           string      `json:"currency"`
	ServiceKind        ServiceKind `json:"service_kind"`
	Status             string      `json:"status"`
	ExpiresAt          time.Time   `json:"expires_at"`
}

// ConfirmResult is a channel's answer to a confirmation or challenge call.
type ConfirmResult struct {
	Status         string `json:"status"`
	RequiresAction bool   `json:"requires_action"`
	Message        string `json:"message,omitempty"`
	RedirectURL    string `json:"redirect_url,omitempty"`
}
