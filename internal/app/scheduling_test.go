package app

import (
	"context"
	"errors"
	"testing"

	"github.com/will383842/Outil-sos-expat-sub004/internal/domain"
)

type callSchedulerStub struct {
	callID  string
	err     error
	calls   int
	lastReq domain.CallSchedulingRequest
}

func (s *callSchedulerStub) ScheduleCall(ctx context.Context, req domain.CallSchedulingRequest) (string, error) {
	s.calls++
	s.lastReq = req
	if s.err != nil {
		return "", s.err
	}
	return s.callID, nil
}

func scheduledAttempt() *domain.PaymentAttempt {
	attempt := domain.NewPaymentAttempt()
	attempt.ServiceKind = domain.ServiceKindLawyerCall
	attempt.Currency = domain.CurrencyEUR
	attempt.ProviderID = "prov_1"
	attempt.ProviderPhone = "+33612345678"
	attempt.ClientID = "cli_1"
	attempt.ClientPhone = "+14155552671"
	attempt.ProcessorReference = "pi_123"
	attempt.Pricing.Entry.TotalCents = 4900
	return attempt
}

func TestSchedule_BooksCallWithConfiguredDelay(t *testing.T) {
	client := &callSchedulerStub{callID: "call_42"}
	adapter := NewCallSchedulingAdapter(client, 5)

	got := adapter.Schedule(context.Background(), scheduledAttempt())
	if got.Status != domain.CallScheduled {
		t.Fatalf("expected scheduled status, got %s", got.Status)
	}
	if got.CallID != "call_42" {
		t.Fatalf("expected call id call_42, got %s", got.CallID)
	}
	if client.lastReq.DelayMinutes != 5 {
		t.Fatalf("expected delay 5, got %d", client.lastReq.DelayMinutes)
	}
	if client.lastReq.CallSessionID == "" {
		t.Fatal("expected the attempt's idempotency key as call session id")
	}
}

func TestSchedule_SkipsOnInvalidPhones(t *testing.T) {
	tests := []struct {
		name          string
		clientPhone   string
		providerPhone string
	}{
		{name: "client phone in national format", clientPhone: "0612345678", providerPhone: "+33612345678"},
		{name: "provider phone with leading zero", clientPhone: "+33612345678", providerPhone: "+0612345678"},
		{name: "client phone too short", clientPhone: "123", providerPhone: "+33612345678"},
		{name: "both phones empty", clientPhone: "", providerPhone: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &callSchedulerStub{callID: "call_42"}
			adapter := NewCallSchedulingAdapter(client, 5)

			attempt := scheduledAttempt()
			attempt.ClientPhone = tt.clientPhone
			attempt.ProviderPhone = tt.providerPhone

			got := adapter.Schedule(context.Background(), attempt)
			if got.Status != domain.CallSkipped {
				t.Fatalf("expected skipped status, got %s", got.Status)
			}
			if client.calls != 0 {
				t.Fatalf("invalid phones must not reach the scheduling backend, got %d calls", client.calls)
			}
		})
	}
}

func TestSchedule_RPCFailureIsNonFatal(t *testing.T) {
	client := &callSchedulerStub{err: errors.New("scheduling backend down")}
	adapter := NewCallSchedulingAdapter(client, 5)

	got := adapter.Schedule(context.Background(), scheduledAttempt())
	if got.Status != domain.CallSkipped {
		t.Fatalf("expected skipped status on RPC failure, got %s", got.Status)
	}
}
