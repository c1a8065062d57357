/**
 * @description
 * This file defines the payment attempt state machine for the checkout-service.
 * The attempt moves through an explicit set of states with an allowed-transition
 * table, so an illegal transition is an error at the point it is attempted
 * rather than a silent inconsistency discovered later.
 *
 * The idempotency key (the call session id sent to the payment backend) is
 * assigned exactly once when the attempt is created and is never regenerated:
 * retrying a submission reuses it so the backend can collapse duplicates.
 *
 * @dependencies
 * - fmt, time: Standard Go libraries.
 * - github.com/google/uuid: For attempt and idempotency key generation.
 */

package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AttemptState is a state of the payment submission state machine.
type AttemptState string

const (
	StateIdle             AttemptState = "idle"
	StateValidating       AttemptState = "validating"
	StateIntentRequested  AttemptState = "intent_requested"
	StateConfirming       AttemptState = "confirming"
	StateChallengePending AttemptState = "challenge_pending"
	StateFinalizing       AttemptState = "finalizing"
	StateSucceeded        AttemptState = "succeeded"
	StateFailed           AttemptState = "failed"
	StateCanceled         AttemptState = "canceled"
)

// Terminal reports whether a submission run has ended in the state. A failed
// attempt is terminal for its run but may still be resubmitted.
func (s AttemptState) Terminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateCanceled
}

// Final reports whether the attempt can never be submitted again.
func (s AttemptState) Final() bool {
	return s == StateSucceeded || s == StateCanceled
}

// allowedTransitions is the single source of truth for legal state moves.
// A failed attempt may be resubmitted; the idempotency key is retained so the
// backend collapses the duplicate.
var allowedTransitions = map[AttemptState][]AttemptState{
	StateIdle:             {StateValidating, StateCanceled},
	StateValidating:       {StateIntentRequested, StateFailed},
	StateIntentRequested:  {StateConfirming, StateFailed},
	StateConfirming:       {StateChallengePending, StateFinalizing, StateFailed},
	StateChallengePending: {StateFinalizing, StateFailed},
	StateFinalizing:       {StateSucceeded, StateFailed, StateCanceled},
	StateFailed:           {StateValidating},
}

// CanTransition reports whether moving from one state to another is legal.
func CanTransition(from, to AttemptState) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Payment channels. A card channel tokenizes the instrument in place; a
// redirect channel sends the payer to the processor and back.
type PaymentChannel string

const (
	ChannelCard     PaymentChannel = "card"
	ChannelRedirect PaymentChannel = "redirect"
)

// Processor intent statuses as reported by the payment backend.
const (
	ProcessorStatusSucceeded             = "succeeded"
	ProcessorStatusRequiresCapture       = "requires_capture"
	ProcessorStatusProcessing            = "processing"
	ProcessorStatusRequiresAction        = "requires_action"
	ProcessorStatusRequiresPaymentMethod = "requires_payment_method"
	ProcessorStatusCanceled              = "canceled"
)

// PaymentAttempt is one end-to-end run of the checkout orchestrator for a
// single booking. Attempts are independent of each other; the only shared
// in-process state is the gateway decision cache.
type PaymentAttempt struct {
	ID             uuid.UUID
	IdempotencyKey uuid.UUID
	State          AttemptState

	ServiceKind ServiceKind
	Currency    string

	ProviderID        string
	ProviderType      string
	ProviderCountry   string
	ProviderPhone     string
	ProviderLanguages []string

	ClientID        string
	ClientEmail     string
	ClientName      string
	ClientPhone     string
	ClientLanguages []string

	RequestTitle    string
	DurationMinutes int

	Pricing PricingResolution
	Gateway GatewayDecision

	ClientSecret       string
	ProcessorReference string
	FailureMessage     string

	CreatedAt time.Time
}

// NewPaymentAttempt creates an attempt in the idle state with a freshly minted
// idempotency key. The key must not be regenerated afterwards.
func NewPaymentAttempt() *PaymentAttempt {
	return &PaymentAttempt{
		ID:             uuid.New(),
		IdempotencyKey: uuid.New(),
		State:          StateIdle,
		CreatedAt:      time.Now().UTC(),
	}
}

// TransitionTo moves the attempt to the given state, enforcing the
// allowed-transition table.
func (a *PaymentAttempt) TransitionTo(to AttemptState) error {
	if !CanTransition(a.State, to) {
		return fmt.Errorf("illegal attempt state transition %s -> %s", a.State, to)
	}
	a.State = to
	return nil
}

// GatewayDecision is the routing outcome for a provider country.
type GatewayDecision struct {
	CountryCode      string         `json:"country_code"`
	Channel          PaymentChannel `json:"channel"`
	ChannelExclusive bool           `json:"channel_exclusive"`
}
