package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/will383842/Outil-sos-expat-sub004/internal/domain"
	"github.com/will383842/Outil-sos-expat-sub004/internal/store"
)

type intentClientStub struct {
	err      error
	calls    int
	requests []domain.IntentRequest
}

func (s *intentClientStub) CreateIntent(ctx context.Context, req domain.IntentRequest) (*domain.IntentResult, error) {
	s.calls++
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	return &domain.IntentResult{
		ClientSecret:       "secret_123",
		ProcessorReference: "pi_123",
		AmountCents:        req.AmountCents,
		Currency:           req.Currency,
		Status:             "requires_confirmation",
	}, nil
}

type channelConfirmerStub struct {
	confirmResult   *domain.ConfirmResult
	confirmErr      error
	challengeResult *domain.ConfirmResult
	challengeErr    error
	blockChallenge  bool
	confirmCalls    int
	challengeCalls  int
}

func (s *channelConfirmerStub) Confirm(ctx context.Context, clientSecret string, instrument domain.PaymentInstrument) (*domain.ConfirmResult, error) {
	s.confirmCalls++
	if s.confirmErr != nil {
		return nil, s.confirmErr
	}
	return s.confirmResult, nil
}

func (s *channelConfirmerStub) AwaitChallenge(ctx context.Context, clientSecret string) (*domain.ConfirmResult, error) {
	s.challengeCalls++
	if s.blockChallenge {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if s.challengeErr != nil {
		return nil, s.challengeErr
	}
	return s.challengeResult, nil
}

// controllerRepoStub is a minimal in-memory store for the post-success
// pipeline.
type controllerRepoStub struct {
	store.Repository

	primaryErr error
	records    map[string]*domain.PaymentRecord
}

func newControllerRepoStub() *controllerRepoStub {
	return &controllerRepoStub{records: make(map[string]*domain.PaymentRecord)}
}

func (s *controllerRepoStub) UpsertPaymentRecord(ctx context.Context, record *domain.PaymentRecord) error {
	if s.primaryErr != nil {
		return s.primaryErr
	}
	if existing, ok := s.records[record.ProcessorReference]; ok {
		record.OrderID = existing.OrderID
	}
	s.records[record.ProcessorReference] = record
	return nil
}

func (s *controllerRepoStub) GetPaymentByProcessorReference(ctx context.Context, ref string) (*domain.PaymentRecord, error) {
	record, ok := s.records[ref]
	if !ok {
		return nil, store.ErrPaymentNotFound
	}
	return record, nil
}

func (s *controllerRepoStub) UpsertClientPaymentView(ctx context.Context, view *domain.PartyPaymentView) error {
	return nil
}

func (s *controllerRepoStub) UpsertProviderPaymentView(ctx context.Context, view *domain.PartyPaymentView) error {
	return nil
}

func (s *controllerRepoStub) UpsertOrderSummary(ctx context.Context, summary *domain.OrderSummary) error {
	return nil
}

func (s *controllerRepoStub) MarkPaymentNotified(ctx context.Context, ref string, notifiedAt time.Time) error {
	if record, ok := s.records[ref]; ok {
		record.NotifiedAt = &notifiedAt
	}
	return nil
}

func (s *controllerRepoStub) CreateInAppNotification(ctx context.Context, item domain.InAppNotification) error {
	return nil
}

func testController(intents IntentClient, confirmer ChannelConfirmer, repo store.Repository, cfg ControllerConfig) *PaymentSubmissionController {
	if cfg.MinAmountCents == 0 {
		cfg.MinAmountCents = 500
	}
	if cfg.MaxAmountCents == 0 {
		cfg.MaxAmountCents = 50000
	}
	return NewPaymentSubmissionController(
		intents,
		map[domain.PaymentChannel]ChannelConfirmer{domain.ChannelCard: confirmer},
		NewOrderPersistenceService(repo),
		NewCallSchedulingAdapter(&callSchedulerStub{callID: "call_1"}, 5),
		NewNotificationDispatcher(repo, &publisherStub{}, "fr"),
		cfg,
	)
}

func submittableAttempt() *domain.PaymentAttempt {
	attempt := domain.NewPaymentAttempt()
	attempt.ServiceKind = domain.ServiceKindLawyerCall
	attempt.Currency = domain.CurrencyEUR
	attempt.ProviderID = "prov_1"
	attempt.ProviderPhone = "+33612345678"
	attempt.ClientID = "cli_1"
	attempt.ClientName = "Ada"
	attempt.ClientPhone = "+14155552671"
	attempt.RequestTitle = "Visa question"
	attempt.Gateway = domain.GatewayDecision{CountryCode: "FR", Channel: domain.ChannelCard}
	attempt.Pricing.Entry = domain.PricingEntry{
		TotalCents:         4900,
		ConnectionFeeCents: 1900,
		ProviderCents:      3000,
		DurationMinutes:    20,
		Currency:           domain.CurrencyEUR,
	}
	return attempt
}

func validInput() SubmissionInput {
	return SubmissionInput{
		DisplayedAmountCents: 4900,
		Instrument:           domain.PaymentInstrument{CardToken: "tok_visa"},
	}
}

func TestSubmit_SucceedsEndToEnd(t *testing.T) {
	intents := &intentClientStub{}
	confirmer := &channelConfirmerStub{
		confirmResult: &domain.ConfirmResult{Status: domain.ProcessorStatusSucceeded},
	}
	repo := newControllerRepoStub()
	controller := testController(intents, confirmer, repo, ControllerConfig{})

	attempt := submittableAttempt()
	outcome, err := controller.Submit(context.Background(), attempt, validInput())
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if outcome.Status != domain.StateSucceeded {
		t.Fatalf("expected succeeded outcome, got %s", outcome.Status)
	}
	if outcome.OrderID == uuid.Nil {
		t.Fatal("expected an order id on success")
	}
	if outcome.Call.Status != domain.CallScheduled {
		t.Fatalf("expected the call to be scheduled, got %s", outcome.Call.Status)
	}
	if attempt.State != domain.StateSucceeded {
		t.Fatalf("expected attempt state succeeded, got %s", attempt.State)
	}

	record, err := repo.GetPaymentByProcessorReference(context.Background(), "pi_123")
	if err != nil {
		t.Fatalf("expected the payment record to be persisted: %v", err)
	}
	if record.NotifiedAt == nil {
		t.Fatal("expected the provider notification marker to be written")
	}
}

func TestSubmit_ValidationFailuresShortCircuit(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(a *domain.PaymentAttempt, in *SubmissionInput)
		wantErr func(err error) bool
	}{
		{
			name: "displayed amount mismatch",
			mutate: func(a *domain.PaymentAttempt, in *SubmissionInput) {
				in.DisplayedAmountCents = 4400
			},
			wantErr: func(err error) bool {
				var v *ValidationError
				return errors.As(err, &v)
			},
		},
		{
			name: "self booking",
			mutate: func(a *domain.PaymentAttempt, in *SubmissionInput) {
				a.ClientID = a.ProviderID
			},
			wantErr: func(err error) bool {
				var v *ValidationError
				return errors.As(err, &v)
			},
		},
		{
			name: "amount outside bounds",
			mutate: func(a *domain.PaymentAttempt, in *SubmissionInput) {
				a.Pricing.Entry.TotalCents = 100
				in.DisplayedAmountCents = 100
			},
			wantErr: func(err error) bool {
				var v *ValidationError
				return errors.As(err, &v)
			},
		},
		{
			name: "invalid client phone",
			mutate: func(a *domain.PaymentAttempt, in *SubmissionInput) {
				a.ClientPhone = "0612345678"
			},
			wantErr: func(err error) bool {
				var v *ValidationError
				return errors.As(err, &v)
			},
		},
		{
			name: "unresolved channel",
			mutate: func(a *domain.PaymentAttempt, in *SubmissionInput) {
				a.Gateway.Channel = ""
			},
			wantErr: func(err error) bool {
				var c *ConfigurationError
				return errors.As(err, &c)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intents := &intentClientStub{}
			confirmer := &channelConfirmerStub{
				confirmResult: &domain.ConfirmResult{Status: domain.ProcessorStatusSucceeded},
			}
			controller := testController(intents, confirmer, newControllerRepoStub(), ControllerConfig{})

			attempt := submittableAttempt()
			input := validInput()
			tt.mutate(attempt, &input)

			_, err := controller.Submit(context.Background(), attempt, input)
			if err == nil || !tt.wantErr(err) {
				t.Fatalf("expected a precondition error, got %v", err)
			}
			if intents.calls != 0 {
				t.Fatalf("validation failures must precede any network call, got %d intent calls", intents.calls)
			}
			if attempt.State != domain.StateFailed {
				t.Fatalf("expected attempt state failed, got %s", attempt.State)
			}
		})
	}
}

func TestSubmit_HighValueRequiresExplicitConfirmation(t *testing.T) {
	intents := &intentClientStub{}
	confirmer := &channelConfirmerStub{
		confirmResult: &domain.ConfirmResult{Status: domain.ProcessorStatusSucceeded},
	}
	controller := testController(intents, confirmer, newControllerRepoStub(), ControllerConfig{ConfirmAmountCents: 4000})

	attempt := submittableAttempt()
	_, err := controller.Submit(context.Background(), attempt, validInput())
	if !errors.Is(err, ErrConfirmationRequired) {
		t.Fatalf("expected ErrConfirmationRequired, got %v", err)
	}
	if intents.calls != 0 {
		t.Fatal("the confirmation gate must fire before any network call")
	}

	// A confirmed resubmission of the same attempt goes through.
	input := validInput()
	input.Confirmed = true
	outcome, err := controller.Submit(context.Background(), attempt, input)
	if err != nil {
		t.Fatalf("confirmed submission failed: %v", err)
	}
	if outcome.Status != domain.StateSucceeded {
		t.Fatalf("expected succeeded outcome, got %s", outcome.Status)
	}
}

func TestSubmit_RetryReusesIdempotencyKey(t *testing.T) {
	intents := &intentClientStub{err: errors.New("backend unavailable")}
	confirmer := &channelConfirmerStub{
		confirmResult: &domain.ConfirmResult{Status: domain.ProcessorStatusSucceeded},
	}
	controller := testController(intents, confirmer, newControllerRepoStub(), ControllerConfig{})

	attempt := submittableAttempt()
	mintedKey := attempt.IdempotencyKey

	_, err := controller.Submit(context.Background(), attempt, validInput())
	var processorErr *ProcessorError
	if !errors.As(err, &processorErr) {
		t.Fatalf("expected ProcessorError on intent failure, got %v", err)
	}
	if attempt.State != domain.StateFailed {
		t.Fatalf("expected attempt state failed, got %s", attempt.State)
	}

	intents.err = nil
	outcome, err := controller.Submit(context.Background(), attempt, validInput())
	if err != nil {
		t.Fatalf("retried submission failed: %v", err)
	}
	if outcome.Status != domain.StateSucceeded {
		t.Fatalf("expected succeeded outcome on retry, got %s", outcome.Status)
	}

	if len(intents.requests) != 2 {
		t.Fatalf("expected two intent requests, got %d", len(intents.requests))
	}
	for i, req := range intents.requests {
		if req.Metadata.CallSessionID != mintedKey.String() {
			t.Fatalf("request %d carried session id %s, want the minted key %s", i, req.Metadata.CallSessionID, mintedKey)
		}
	}
	if attempt.IdempotencyKey != mintedKey {
		t.Fatal("the idempotency key must never be regenerated")
	}
}

func TestSubmit_ChallengeTimeout(t *testing.T) {
	intents := &intentClientStub{}
	confirmer := &channelConfirmerStub{
		confirmResult:  &domain.ConfirmResult{Status: domain.ProcessorStatusRequiresAction, RequiresAction: true},
		blockChallenge: true,
	}
	controller := testController(intents, confirmer, newControllerRepoStub(), ControllerConfig{
		ChallengeTimeout: 20 * time.Millisecond,
	})

	attempt := submittableAttempt()
	_, err := controller.Submit(context.Background(), attempt, validInput())

	var timeoutErr *ChallengeTimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("expected ChallengeTimeoutError, got %v", err)
	}
	if attempt.State != domain.StateFailed {
		t.Fatalf("expected attempt state failed after the timeout, got %s", attempt.State)
	}
}

func TestSubmit_ChallengeResolvesToSuccess(t *testing.T) {
	intents := &intentClientStub{}
	confirmer := &channelConfirmerStub{
		confirmResult:   &domain.ConfirmResult{Status: domain.ProcessorStatusRequiresAction, RequiresAction: true},
		challengeResult: &domain.ConfirmResult{Status: domain.ProcessorStatusSucceeded},
	}
	controller := testController(intents, confirmer, newControllerRepoStub(), ControllerConfig{})

	attempt := submittableAttempt()
	outcome, err := controller.Submit(context.Background(), attempt, validInput())
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if outcome.Status != domain.StateSucceeded {
		t.Fatalf("expected succeeded outcome after the challenge, got %s", outcome.Status)
	}
	if confirmer.challengeCalls != 1 {
		t.Fatalf("expected one challenge wait, got %d", confirmer.challengeCalls)
	}
}

func TestSubmit_DeclinedPaymentMethodFails(t *testing.T) {
	intents := &intentClientStub{}
	confirmer := &channelConfirmerStub{
		confirmResult: &domain.ConfirmResult{Status: domain.ProcessorStatusRequiresPaymentMethod},
	}
	controller := testController(intents, confirmer, newControllerRepoStub(), ControllerConfig{})

	attempt := submittableAttempt()
	outcome, err := controller.Submit(context.Background(), attempt, validInput())

	var processorErr *ProcessorError
	if !errors.As(err, &processorErr) {
		t.Fatalf("expected ProcessorError, got %v", err)
	}
	if outcome.Status != domain.StateFailed {
		t.Fatalf("expected failed outcome, got %s", outcome.Status)
	}
	if attempt.FailureMessage == "" {
		t.Fatal("expected a recorded failure message")
	}
}

func TestSubmit_CanceledIsFinal(t *testing.T) {
	intents := &intentClientStub{}
	confirmer := &channelConfirmerStub{
		confirmResult: &domain.ConfirmResult{Status: domain.ProcessorStatusCanceled},
	}
	controller := testController(intents, confirmer, newControllerRepoStub(), ControllerConfig{})

	attempt := submittableAttempt()
	outcome, err := controller.Submit(context.Background(), attempt, validInput())

	var processorErr *ProcessorError
	if !errors.As(err, &processorErr) {
		t.Fatalf("expected ProcessorError, got %v", err)
	}
	if outcome.Status != domain.StateCanceled {
		t.Fatalf("expected canceled outcome, got %s", outcome.Status)
	}
	if attempt.State != domain.StateCanceled {
		t.Fatalf("expected attempt state canceled, got %s", attempt.State)
	}

	// A canceled attempt can never be resubmitted.
	_, err = controller.Submit(context.Background(), attempt, validInput())
	if !errors.Is(err, ErrAttemptNotSubmittable) {
		t.Fatalf("expected ErrAttemptNotSubmittable, got %v", err)
	}
}

func TestSubmit_UnexpectedStatusFails(t *testing.T) {
	intents := &intentClientStub{}
	confirmer := &channelConfirmerStub{
		confirmResult: &domain.ConfirmResult{Status: "mystery_status"},
	}
	controller := testController(intents, confirmer, newControllerRepoStub(), ControllerConfig{})

	attempt := submittableAttempt()
	_, err := controller.Submit(context.Background(), attempt, validInput())

	var processorErr *ProcessorError
	if !errors.As(err, &processorErr) {
		t.Fatalf("expected ProcessorError for an unexpected status, got %v", err)
	}
	if processorErr.Stage != "finalize" {
		t.Fatalf("expected the finalize stage, got %s", processorErr.Stage)
	}
}

func TestSubmit_PrimaryPersistenceFailureNeverDowngrades(t *testing.T) {
	intents := &intentClientStub{}
	confirmer := &channelConfirmerStub{
		confirmResult: &domain.ConfirmResult{Status: domain.ProcessorStatusSucceeded},
	}
	repo := newControllerRepoStub()
	repo.primaryErr = errors.New("payments table unavailable")
	controller := testController(intents, confirmer, repo, ControllerConfig{})

	attempt := submittableAttempt()
	outcome, err := controller.Submit(context.Background(), attempt, validInput())
	if err != nil {
		t.Fatalf("a persistence failure must not fail the submission: %v", err)
	}
	if outcome.Status != domain.StateSucceeded {
		t.Fatalf("a succeeded payment is never downgraded, got %s", outcome.Status)
	}
	if outcome.OrderID != uuid.Nil {
		t.Fatalf("expected no order id when the primary write failed, got %s", outcome.OrderID)
	}
	// Scheduling and notification happen-after the primary write; without it
	// they are skipped.
	if outcome.Call.Status != domain.CallSkipped {
		t.Fatalf("expected the call to be skipped, got %s", outcome.Call.Status)
	}
}

func TestCancel_DiscardsIdleAttempt(t *testing.T) {
	controller := testController(&intentClientStub{}, &channelConfirmerStub{}, newControllerRepoStub(), ControllerConfig{})

	attempt := submittableAttempt()
	if err := controller.Cancel(attempt); err != nil {
		t.Fatalf("Cancel returned error: %v", err)
	}
	if attempt.State != domain.StateCanceled {
		t.Fatalf("expected canceled state, got %s", attempt.State)
	}

	_, err := controller.Submit(context.Background(), attempt, validInput())
	if !errors.Is(err, ErrAttemptNotSubmittable) {
		t.Fatalf("expected ErrAttemptNotSubmittable after cancel, got %v", err)
	}
}
