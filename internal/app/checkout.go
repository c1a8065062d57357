/**
 * @description
 * This file contains the checkout façade used by the API layer. Creating an
 * attempt resolves pricing and the gateway decision and mints the attempt
 * (and with it the idempotency key) exactly once; submitting runs the payment
 * state machine. Attempts live in an in-process registry and are independent
 * of each other — the gateway decision cache is the only cross-attempt shared
 * state.
 *
 * @dependencies
 * - context, strings, sync: Standard Go libraries.
 * - github.com/google/uuid: Attempt identifiers.
 * - internal/domain: Attempt and decision models.
 */

package app

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/will383842/Outil-sos-expat-sub004/internal/domain"
)

// Service exposes the checkout orchestrator to the API layer.
type Service struct {
	pricing    *PricingResolver
	gateway    *GatewayRouter
	controller *PaymentSubmissionController
	attempts   *AttemptRegistry
}

// NewService wires the checkout façade.
func NewService(pricing *PricingResolver, gateway *GatewayRouter, controller *PaymentSubmissionController) *Service {
	return &Service{
		pricing:    pricing,
		gateway:    gateway,
		controller: controller,
		attempts:   NewAttemptRegistry(),
	}
}

// NewAttemptInput carries the booking context for a checkout attempt.
type NewAttemptInput struct {
	ServiceKind domain.ServiceKind
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

	PromoCode       string
	RequestTitle    string
	DurationMinutes int
}

// CreateAttempt resolves pricing and routing and registers a fresh attempt.
// The idempotency key is minted here and never again.
func (s *Service) CreateAttempt(ctx context.Context, in NewAttemptInput) (*domain.PaymentAttempt, error) {
	resolution, err := s.pricing.Resolve(ctx, ResolveInput{
		ServiceKind: in.ServiceKind,
		Currency:    strings.ToLower(strings.TrimSpace(in.Currency)),
		ProviderID:  in.ProviderID,
		PromoCode:   in.PromoCode,
	})
	if err != nil {
		return nil, err
	}

	decision := s.gateway.Decide(ctx, in.ProviderCountry)

	attempt := domain.NewPaymentAttempt()
	attempt.ServiceKind = in.ServiceKind
	attempt.Currency = strings.ToLower(strings.TrimSpace(in.Currency))
	attempt.ProviderID = in.ProviderID
	attempt.ProviderType = in.ProviderType
	attempt.ProviderCountry = decision.CountryCode
	attempt.ProviderPhone = in.ProviderPhone
	attempt.ProviderLanguages = in.ProviderLanguages
	attempt.ClientID = in.ClientID
	attempt.ClientEmail = in.ClientEmail
	attempt.ClientName = in.ClientName
	attempt.ClientPhone = in.ClientPhone
	attempt.ClientLanguages = in.ClientLanguages
	attempt.RequestTitle = in.RequestTitle
	attempt.DurationMinutes = resolution.Entry.DurationMinutes
	attempt.Pricing = *resolution
	attempt.Gateway = decision

	s.attempts.Put(attempt)
	return attempt, nil
}

// Submit runs the state machine for a registered attempt. The registry
// serializes submissions per attempt; two browser tabs submitting the same
// attempt run one after the other against the same idempotency key.
func (s *Service) Submit(ctx context.Context, attemptID uuid.UUID, input SubmissionInput) (*SubmissionOutcome, error) {
	attempt, unlock, err := s.attempts.Acquire(attemptID)
	if err != nil {
		return nil, err
	}
	defer unlock()
	return s.controller.Submit(ctx, attempt, input)
}

// GetAttempt returns the current attempt snapshot.
func (s *Service) GetAttempt(attemptID uuid.UUID) (*domain.PaymentAttempt, error) {
	return s.attempts.Get(attemptID)
}

// CancelAttempt discards an attempt before submission.
func (s *Service) CancelAttempt(attemptID uuid.UUID) error {
	attempt, unlock, err := s.attempts.Acquire(attemptID)
	if err != nil {
		return err
	}
	defer unlock()
	return s.controller.Cancel(attempt)
}

// RefreshGateway evicts and re-resolves the routing decision for a country.
func (s *Service) RefreshGateway(ctx context.Context, countryCode string) domain.GatewayDecision {
	return s.gateway.Refresh(ctx, countryCode)
}

// ConfirmationThresholdCents reports the two-step confirmation threshold so
// the API can tell callers up front whether an explicit confirmation will be
// needed.
func (s *Service) ConfirmationThresholdCents() int64 {
	return s.controller.cfg.ConfirmAmountCents
}

// AttemptRegistry holds in-flight attempts for this process. Each attempt has
// its own lock so checkout attempts stay independent.
type AttemptRegistry struct {
	mu       sync.Mutex
	attempts map[uuid.UUID]*registeredAttempt
}

type registeredAttempt struct {
	attempt *domain.PaymentAttempt
	lock    sync.Mutex
}

// NewAttemptRegistry creates an empty registry.
func NewAttemptRegistry() *AttemptRegistry {
	return &AttemptRegistry{attempts: make(map[uuid.UUID]*registeredAttempt)}
}

// Put registers an attempt.
func (r *AttemptRegistry) Put(attempt *domain.PaymentAttempt) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts[attempt.ID] = &registeredAttempt{attempt: attempt}
}

// Get returns an attempt without locking it.
func (r *AttemptRegistry) Get(id uuid.UUID) (*domain.PaymentAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.attempts[id]
	if !ok {
		return nil, ErrAttemptNotFound
	}
	return entry.attempt, nil
}

// Acquire returns an attempt with its submission lock held. The returned
// function releases the lock.
func (r *AttemptRegistry) Acquire(id uuid.UUID) (*domain.PaymentAttempt, func(), error) {
	r.mu.Lock()
	entry, ok := r.attempts[id]
	r.mu.Unlock()
	if !ok {
		return nil, nil, ErrAttemptNotFound
	}
	entry.lock.Lock()
	return entry.attempt, entry.lock.Unlock, nil
}
