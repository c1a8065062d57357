/**
 * @description
 * Error taxonomy for the checkout orchestrator. Validation and configuration
 * errors surface before any side effect; processor and challenge-timeout
 * errors surface as the final attempt outcome and may be retried with the
 * same idempotency key; persistence, scheduling and notification errors are
 * observability concerns that never change a committed payment outcome.
 *
 * @dependencies
 * - errors, fmt, time: Standard Go libraries.
 */

package app

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrConfirmationRequired is returned when the resolved amount exceeds
	// the confirmation threshold and the request did not carry the explicit
	// confirmation flag. No side effect has occurred.
	ErrConfirmationRequired = errors.New("explicit confirmation required for high-value submission")

	// ErrAttemptNotFound is returned when the attempt id is unknown to the
	// in-process registry.
	ErrAttemptNotFound = errors.New("checkout attempt not found")

	// ErrAttemptNotSubmittable is returned when an attempt in a final state
	// is submitted again.
	ErrAttemptNotSubmittable = errors.New("checkout attempt is already finalized")
)

// ValidationError is a failed precondition. No network call was made.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Reason
}

// ConfigurationError is a missing channel or client initialization.
type ConfigurationError struct {
	Missing string
}

func (e *ConfigurationError) Error() string {
	return "checkout misconfigured: " + e.Missing
}

// PricingBoundsError is raised when a resolved total falls outside the
// allowed range, before any network call.
type PricingBoundsError struct {
	AmountCents int64
	MinCents    int64
	MaxCents    int64
}

func (e *PricingBoundsError) Error() string {
	return fmt.Sprintf("resolved amount %d out of bounds [%d, %d]", e.AmountCents, e.MinCents, e.MaxCents)
}

// ProcessorError is a failure reported by the payment backend or a channel:
// network failure, declined instrument, invalid payment method, cancellation,
// or an unexpected intent status.
type ProcessorError struct {
	Stage   string // intent, confirm, challenge, finalize
	Status  string // processor status when known
	Message string
	Err     error
}

func (e *ProcessorError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("processor error at %s: %s", e.Stage, e.Message)
	}
	return fmt.Sprintf("processor error at %s (status %q)", e.Stage, e.Status)
}

func (e *ProcessorError) Unwrap() error { return e.Err }

// ChallengeTimeoutError is distinct from a declined challenge so the caller
// can tell "try again" apart from "authentication window expired".
type ChallengeTimeoutError struct {
	Timeout time.Duration
}

func (e *ChallengeTimeoutError) Error() string {
	return fmt.Sprintf("secondary authentication not completed within %s", e.Timeout)
}
