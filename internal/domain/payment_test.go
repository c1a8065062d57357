package domain

import "testing"

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from AttemptState
		to   AttemptState
		want bool
	}{
		{name: "idle to validating", from: StateIdle, to: StateValidating, want: true},
		{name: "idle to canceled", from: StateIdle, to: StateCanceled, want: true},
		{name: "idle cannot skip to confirming", from: StateIdle, to: StateConfirming, want: false},
		{name: "validating to intent requested", from: StateValidating, to: StateIntentRequested, want: true},
		{name: "confirming may skip the challenge", from: StateConfirming, to: StateFinalizing, want: true},
		{name: "confirming to challenge pending", from: StateConfirming, to: StateChallengePending, want: true},
		{name: "challenge pending to finalizing", from: StateChallengePending, to: StateFinalizing, want: true},
		{name: "finalizing to succeeded", from: StateFinalizing, to: StateSucceeded, want: true},
		{name: "finalizing to canceled", from: StateFinalizing, to: StateCanceled, want: true},
		{name: "failed may be resubmitted", from: StateFailed, to: StateValidating, want: true},
		{name: "failed cannot jump to succeeded", from: StateFailed, to: StateSucceeded, want: false},
		{name: "succeeded is final", from: StateSucceeded, to: StateValidating, want: false},
		{name: "canceled is final", from: StateCanceled, to: StateValidating, want: false},
		{name: "no backwards move from confirming", from: StateConfirming, to: StateValidating, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Fatalf("CanTransition(%s, %s) = %t, want %t", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestTransitionTo_RejectsIllegalMove(t *testing.T) {
	attempt := NewPaymentAttempt()

	if err := attempt.TransitionTo(StateSucceeded); err == nil {
		t.Fatal("expected illegal transition idle -> succeeded to be rejected")
	}
	if attempt.State != StateIdle {
		t.Fatalf("state must not change on a rejected transition, got %s", attempt.State)
	}

	if err := attempt.TransitionTo(StateValidating); err != nil {
		t.Fatalf("expected idle -> validating to be legal: %v", err)
	}
	if attempt.State != StateValidating {
		t.Fatalf("expected state validating, got %s", attempt.State)
	}
}

func TestAttemptState_TerminalAndFinal(t *testing.T) {
	if !StateFailed.Terminal() {
		t.Fatal("failed must be terminal for the run")
	}
	if StateFailed.Final() {
		t.Fatal("failed must not be final; the attempt may be resubmitted")
	}
	if !StateSucceeded.Final() || !StateCanceled.Final() {
		t.Fatal("succeeded and canceled must be final")
	}
	if StateChallengePending.Terminal() {
		t.Fatal("challenge_pending is not terminal")
	}
}

func TestNewPaymentAttempt_MintsIdempotencyKeyOnce(t *testing.T) {
	attempt := NewPaymentAttempt()

	if attempt.IdempotencyKey.String() == "00000000-0000-0000-0000-000000000000" {
		t.Fatal("expected a minted idempotency key")
	}
	if attempt.State != StateIdle {
		t.Fatalf("expected a fresh attempt to be idle, got %s", attempt.State)
	}

	other := NewPaymentAttempt()
	if attempt.IdempotencyKey == other.IdempotencyKey {
		t.Fatal("two attempts must not share an idempotency key")
	}
}

func TestRoundToWholeUnit(t *testing.T) {
	tests := []struct {
		cents int64
		want  int64
	}{
		{cents: 4410, want: 4400},
		{cents: 950, want: 1000},
		{cents: 1049, want: 1000},
		{cents: 1050, want: 1100},
		{cents: 0, want: 0},
		{cents: 100, want: 100},
	}

	for _, tt := range tests {
		if got := RoundToWholeUnit(tt.cents); got != tt.want {
			t.Fatalf("RoundToWholeUnit(%d) = %d, want %d", tt.cents, got, tt.want)
		}
	}
}
