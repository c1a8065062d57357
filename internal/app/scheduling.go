/**
 * @description
 * CallSchedulingAdapter requests the post-payment phone call. Both phone
 * numbers must be syntactically valid E.164; otherwise scheduling is skipped
 * entirely and logged. The payment has already succeeded when this runs, so
 * every failure here is non-fatal and surfaces only as a skipped status.
 *
 * @dependencies
 * - context, log: Standard Go libraries.
 * - internal/domain: Scheduling request/result models and phone validation.
 */

package app

import (
	"context"
	"log"

	"github.com/will383842/Outil-sos-expat-sub004/internal/domain"
)

// CallScheduler is the remote "schedule call" endpoint.
type CallScheduler interface {
	ScheduleCall(ctx context.Context, req domain.CallSchedulingRequest) (callID string, err error)
}

// CallSchedulingAdapter validates phones and issues the scheduling request.
type CallSchedulingAdapter struct {
	client       CallScheduler
	delayMinutes int
}

// NewCallSchedulingAdapter creates an adapter with the configured call delay.
func NewCallSchedulingAdapter(client CallScheduler, delayMinutes int) *CallSchedulingAdapter {
	if delayMinutes <= 0 {
		delayMinutes = 5
	}
	return &CallSchedulingAdapter{client: client, delayMinutes: delayMinutes}
}

// Schedule requests the call for a succeeded attempt. It always returns a
// result; a validation or RPC failure yields CallSkipped.
func (a *CallSchedulingAdapter) Schedule(ctx context.Context, attempt *domain.PaymentAttempt) domain.CallScheduleResult {
	if !domain.IsValidE164(attempt.ClientPhone) || !domain.IsValidE164(attempt.ProviderPhone) {
		log.Printf("WARN: call scheduling skipped for reference %s: invalid phone number (client_valid=%t provider_valid=%t)",
			attempt.ProcessorReference,
			domain.IsValidE164(attempt.ClientPhone),
			domain.IsValidE164(attempt.ProviderPhone),
		)
		return domain.CallScheduleResult{Status: domain.CallSkipped}
	}

	req := domain.CallSchedulingRequest{
		ProviderID:         attempt.ProviderID,
		ClientID:           attempt.ClientID,
		ProviderPhone:      attempt.ProviderPhone,
		ClientPhone:        attempt.ClientPhone,
		ServiceKind:        attempt.ServiceKind,
		ProviderType:       attempt.ProviderType,
		ProcessorReference: attempt.ProcessorReference,
		AmountCents:        attempt.Pricing.Entry.TotalCents,
		Currency:           attempt.Currency,
		DelayMinutes:       a.delayMinutes,
		ClientLanguages:    attempt.ClientLanguages,
		ProviderLanguages:  attempt.ProviderLanguages,
		CallSessionID:      attempt.IdempotencyKey.String(),
	}

	callID, err := a.client.ScheduleCall(ctx, req)
	if err != nil {
		log.Printf("WARN: call scheduling failed for reference %s: %v", attempt.ProcessorReference, err)
		return domain.CallScheduleResult{Status: domain.CallSkipped}
	}

	return domain.CallScheduleResult{Status: domain.CallScheduled, CallID: callID}
}
