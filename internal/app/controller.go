/**
 * @description
 * PaymentSubmissionController drives a checkout attempt through its state
 * machine: Validating -> IntentRequested -> Confirming -> ChallengePending ->
 * Finalizing -> {Succeeded, Failed, Canceled}. Every transition goes through
 * the attempt's allowed-transition table, so an illegal move is an error at
 * the point it happens.
 *
 * Key contracts:
 * - All validation failures short-circuit before any network call.
 * - The idempotency key travels with every intent request and is never
 *   regenerated: a retried submission reuses the attempt and therefore the
 *   key, letting the backend collapse duplicates.
 * - The secondary-authentication challenge is bounded by a hard timeout
 *   (default 10 minutes) via context deadline; expiry yields a
 *   ChallengeTimeoutError distinct from a declined challenge.
 * - Every RPC call site carries a bounded context.
 * - Once Succeeded, persistence, call scheduling and notification run in that
 *   order; none of them can downgrade the outcome.
 *
 * @dependencies
 * - context, errors, fmt, log, time: Standard Go libraries.
 * - github.com/google/uuid: Order id in the outcome.
 * - internal/domain: Attempt state machine and wire shapes.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/will383842/Outil-sos-expat-sub004/internal/domain"
)

// IntentClient is the backend "create payment intent" endpoint.
type IntentClient interface {
	CreateIntent(ctx context.Context, req domain.IntentRequest) (*domain.IntentResult, error)
}

// ChannelConfirmer is a payment channel that can confirm an intent and await
// a secondary-authentication challenge.
type ChannelConfirmer interface {
	Confirm(ctx context.Context, clientSecret string, instrument domain.PaymentInstrument) (*domain.ConfirmResult, error)
	AwaitChallenge(ctx context.Context, clientSecret string) (*domain.ConfirmResult, error)
}

// SubmissionInput is what the caller provides when submitting an attempt.
type SubmissionInput struct {
	DisplayedAmountCents int64
	Confirmed            bool
	Instrument           domain.PaymentInstrument
}

// SubmissionOutcome is the final result of one submission run.
type SubmissionOutcome struct {
	Status             domain.AttemptState       `json:"status"`
	OrderID            uuid.UUID                 `json:"order_id,omitempty"`
	ProcessorReference string                    `json:"processor_reference,omitempty"`
	Call               domain.CallScheduleResult `json:"call,omitempty"`
	Message            string                    `json:"message,omitempty"`
}

// ControllerConfig bounds amounts and timeouts for the controller.
type ControllerConfig struct {
	MinAmountCents     int64
	MaxAmountCents     int64
	ConfirmAmountCents int64
	ChallengeTimeout   time.Duration
	RPCTimeout         time.Duration
}

// PaymentSubmissionController executes submissions. It is stateless across
// attempts; all per-checkout state lives on the attempt, whose idempotency
// key was minted exactly once at attempt construction.
type PaymentSubmissionController struct {
	intents     IntentClient
	channels    map[domain.PaymentChannel]ChannelConfirmer
	persistence *OrderPersistenceService
	scheduler   *CallSchedulingAdapter
	notifier    *NotificationDispatcher
	cfg         ControllerConfig
}

// NewPaymentSubmissionController wires the controller.
func NewPaymentSubmissionController(
	intents IntentClient,
	channels map[domain.PaymentChannel]ChannelConfirmer,
	persistence *OrderPersistenceService,
	scheduler *CallSchedulingAdapter,
	notifier *NotificationDispatcher,
	cfg ControllerConfig,
) *PaymentSubmissionController {
	if cfg.ChallengeTimeout <= 0 {
		cfg.ChallengeTimeout = 10 * time.Minute
	}
	if cfg.RPCTimeout <= 0 {
		cfg.RPCTimeout = 30 * time.Second
	}
	return &PaymentSubmissionController{
		intents:     intents,
		channels:    channels,
		persistence: persistence,
		scheduler:   scheduler,
		notifier:    notifier,
		cfg:         cfg,
	}
}

// Cancel discards an attempt that has not been submitted yet. Nothing
// external exists at that point, so there is no cleanup.
func (c *PaymentSubmissionController) Cancel(attempt *domain.PaymentAttempt) error {
	return attempt.TransitionTo(domain.StateCanceled)
}

// Submit runs one end-to-end submission of the attempt.
func (c *PaymentSubmissionController) Submit(ctx context.Context, attempt *domain.PaymentAttempt, input SubmissionInput) (*SubmissionOutcome, error) {
	if attempt.State.Final() {
		return nil, ErrAttemptNotSubmittable
	}
	if err := attempt.TransitionTo(domain.StateValidating); err != nil {
		return nil, ErrAttemptNotSubmittable
	}

	if err := c.validate(attempt, input); err != nil {
		return c.fail(attempt, err)
	}

	if err := attempt.TransitionTo(domain.StateIntentRequested); err != nil {
		return nil, err
	}
	intent, err := c.createIntent(ctx, attempt)
	if err != nil {
		return c.fail(attempt, err)
	}
	attempt.ClientSecret = intent.ClientSecret
	attempt.ProcessorReference = intent.ProcessorReference

	if err := attempt.TransitionTo(domain.StateConfirming); err != nil {
		return nil, err
	}
	confirmer := c.channels[attempt.Gateway.Channel]
	result, err := c.confirm(ctx, confirmer, attempt, input.Instrument)
	if err != nil {
		return c.fail(attempt, err)
	}

	if result.RequiresAction {
		if err := attempt.TransitionTo(domain.StateChallengePending); err != nil {
			return nil, err
		}
		result, err = c.awaitChallenge(ctx, confirmer, attempt)
		if err != nil {
			return c.fail(attempt, err)
		}
	}

	if err := attempt.TransitionTo(domain.StateFinalizing); err != nil {
		return nil, err
	}
	return c.finalize(ctx, attempt, result)
}

// validate runs every precondition. All of them complete before the first
// network call of the attempt.
func (c *PaymentSubmissionController) validate(attempt *domain.PaymentAttempt, input SubmissionInput) error {
	if attempt.Gateway.Channel == "" {
		return &ConfigurationError{Missing: "payment channel not resolved"}
	}
	if c.channels[attempt.Gateway.Channel] == nil {
		return &ConfigurationError{Missing: "no confirmer registered for channel " + string(attempt.Gateway.Channel)}
	}
	if attempt.ClientID == "" {
		return &ConfigurationError{Missing: "client not initialized"}
	}
	if attempt.ClientID == attempt.ProviderID {
		return &ValidationError{Reason: "a provider cannot book a consultation with themselves"}
	}

	amount := attempt.Pricing.Entry.TotalCents
	if amount < c.cfg.MinAmountCents || amount > c.cfg.MaxAmountCents {
		return &ValidationError{Reason: fmt.Sprintf("amount %d outside allowed bounds", amount)}
	}
	if input.DisplayedAmountCents != amount {
		return &ValidationError{Reason: fmt.Sprintf("displayed amount %d does not match resolved amount %d", input.DisplayedAmountCents, amount)}
	}
	if !domain.IsValidE164(attempt.ClientPhone) {
		return &ValidationError{Reason: "client phone is not a valid E.164 number"}
	}
	if c.cfg.ConfirmAmountCents > 0 && amount >= c.cfg.ConfirmAmountCents && !input.Confirmed {
		return ErrConfirmationRequired
	}
	return nil
}

func (c *PaymentSubmissionController) createIntent(ctx context.Context, attempt *domain.PaymentAttempt) (*domain.IntentResult, error) {
	req := domain.IntentRequest{
		AmountCents: attempt.Pricing.Entry.TotalCents,
		Currency:    attempt.Currency,
		ServiceKind: attempt.ServiceKind,
		ProviderID:  attempt.ProviderID,
		ClientID:    attempt.ClientID,
		ClientEmail: attempt.ClientEmail,
		Description: attempt.RequestTitle,
		Metadata: domain.IntentMetadata{
			ProviderType:    attempt.ProviderType,
			DurationMinutes: attempt.Pricing.Entry.DurationMinutes,
			ClientName:      attempt.ClientName,
			ClientPhone:     attempt.ClientPhone,
			Currency:        attempt.Currency,
			RequestTitle:    attempt.RequestTitle,
			Timestamp:       time.Now().UTC(),
			CallSessionID:   attempt.IdempotencyKey.String(),
		},
	}
	if attempt.Pricing.DiscountApplied {
		// The discount is always reported as the resolved fixed amount; the
		// backend does not re-derive percentages.
		req.Coupon = &domain.IntentCoupon{
			Code:        attempt.Pricing.PromoCode,
			Type:        domain.DiscountFixed,
			AmountCents: attempt.Pricing.DiscountCents,
		}
	}

	rpcCtx, cancel := context.WithTimeout(ctx, c.cfg.RPCTimeout)
	defer cancel()

	intent, err := c.intents.CreateIntent(rpcCtx, req)
	if err != nil {
		// Surfaced verbatim; the caller may retry with the same attempt and
		// therefore the same idempotency key.
		return nil, &ProcessorError{Stage: "intent", Message: "payment intent creation failed", Err: err}
	}
	return intent, nil
}

func (c *PaymentSubmissionController) confirm(ctx context.Context, confirmer ChannelConfirmer, attempt *domain.PaymentAttempt, instrument domain.PaymentInstrument) (*domain.ConfirmResult, error) {
	rpcCtx, cancel := context.WithTimeout(ctx, c.cfg.RPCTimeout)
	defer cancel()

	result, err := confirmer.Confirm(rpcCtx, attempt.ClientSecret, instrument)
	if err != nil {
		return nil, &ProcessorError{Stage: "confirm", Message: err.Error(), Err: err}
	}
	return result, nil
}

// awaitChallenge waits for the secondary-authentication challenge under the
// hard timeout. The deadline maps to ChallengeTimeoutError; any other failure
// is a declined challenge.
func (c *PaymentSubmissionController) awaitChallenge(ctx context.Context, confirmer ChannelConfirmer, attempt *domain.PaymentAttempt) (*domain.ConfirmResult, error) {
	challengeCtx, cancel := context.WithTimeout(ctx, c.cfg.ChallengeTimeout)
	defer cancel()

	result, err := confirmer.AwaitChallenge(challengeCtx, attempt.ClientSecret)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || challengeCtx.Err() == context.DeadlineExceeded {
			return nil, &ChallengeTimeoutError{Timeout: c.cfg.ChallengeTimeout}
		}
		return nil, &ProcessorError{Stage: "challenge", Message: err.Error(), Err: err}
	}
	return result, nil
}

// finalize classifies the processor status and, on success, runs the
// post-success pipeline: persistence, then scheduling, then notification.
func (c *PaymentSubmissionController) finalize(ctx context.Context, attempt *domain.PaymentAttempt, result *domain.ConfirmResult) (*SubmissionOutcome, error) {
	switch result.Status {
	case domain.ProcessorStatusSucceeded, domain.ProcessorStatusRequiresCapture, domain.ProcessorStatusProcessing:
		if err := attempt.TransitionTo(domain.StateSucceeded); err != nil {
			return nil, err
		}
		return c.completeSuccess(ctx, attempt), nil

	case domain.ProcessorStatusRequiresAction:
		return c.fail(attempt, &ProcessorError{Stage: "finalize", Status: result.Status, Message: "secondary authentication was not completed"})

	case domain.ProcessorStatusRequiresPaymentMethod:
		return c.fail(attempt, &ProcessorError{Stage: "finalize", Status: result.Status, Message: "payment method was declined"})

	case domain.ProcessorStatusCanceled:
		if err := attempt.TransitionTo(domain.StateCanceled); err != nil {
			return nil, err
		}
		attempt.FailureMessage = "payment was canceled"
		return &SubmissionOutcome{
			Status:             domain.StateCanceled,
			ProcessorReference: attempt.ProcessorReference,
			Message:            attempt.FailureMessage,
		}, &ProcessorError{Stage: "finalize", Status: result.Status, Message: "payment was canceled"}

	default:
		return c.fail(attempt, &ProcessorError{Stage: "finalize", Status: result.Status, Message: "unexpected payment status"})
	}
}

// completeSuccess runs the best-effort post-success steps. None of them can
// downgrade the outcome.
func (c *PaymentSubmissionController) completeSuccess(ctx context.Context, attempt *domain.PaymentAttempt) *SubmissionOutcome {
	orderID, err := c.persistence.RecordSuccess(ctx, attempt)
	if err != nil {
		log.Printf("CRITICAL: primary payment record write failed for reference %s: %v", attempt.ProcessorReference, err)
	}

	var call domain.CallScheduleResult
	if orderID != uuid.Nil {
		// Scheduling and notification happen-after the primary write.
		call = c.scheduler.Schedule(ctx, attempt)
		c.notifier.Dispatch(ctx, attempt, orderID)
	} else {
		call = domain.CallScheduleResult{Status: domain.CallSkipped}
	}

	return &SubmissionOutcome{
		Status:             domain.StateSucceeded,
		OrderID:            orderID,
		ProcessorReference: attempt.ProcessorReference,
		Call:               call,
	}
}

// fail moves the attempt to Failed, recording the message, and returns the
// typed error alongside the outcome snapshot.
func (c *PaymentSubmissionController) fail(attempt *domain.PaymentAttempt, cause error) (*SubmissionOutcome, error) {
	if err := attempt.TransitionTo(domain.StateFailed); err != nil {
		log.Printf("level=error component=controller msg=\"failure transition rejected\" state=%s err=%v", attempt.State, err)
	}
	attempt.FailureMessage = cause.Error()
	return &SubmissionOutcome{
		Status:             domain.StateFailed,
		ProcessorReference: attempt.ProcessorReference,
		Message:            cause.Error(),
	}, cause
}
