/**
 * @description
 * OrderPersistenceService writes the outcome of a successful payment to the
 * durable store. Writes fan out to four logical partitions — the primary
 * payments record keyed by the processor reference, the per-client and
 * per-provider views, and the order summary. Each write is attempted
 * independently; a failed non-primary write is logged and tolerated because
 * the primary record is the source of truth. All writes are upserts, so a
 * repeated persistence of the same processor reference is safe.
 *
 * @dependencies
 * - context, log, time: Standard Go libraries.
 * - github.com/google/uuid: Order id generation.
 * - internal/domain, internal/store: Records and data access.
 */

package app

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/will383842/Outil-sos-expat-sub004/internal/domain"
	"github.com/will383842/Outil-sos-expat-sub004/internal/store"
)

// OrderPersistenceService persists payment outcomes idempotently.
type OrderPersistenceService struct {
	repo store.Repository
}

// NewOrderPersistenceService creates a persistence service over the repository.
func NewOrderPersistenceService(repo store.Repository) *OrderPersistenceService {
	return &OrderPersistenceService{repo: repo}
}

// RecordSuccess writes all partitions for a succeeded attempt and returns the
// generated order id. Only a primary-record failure is returned; it is still
// non-fatal to the attempt outcome (a succeeded payment is never downgraded)
// but the caller logs it at critical level.
func (s *OrderPersistenceService) RecordSuccess(ctx context.Context, attempt *domain.PaymentAttempt) (uuid.UUID, error) {
	now := time.Now().UTC()
	orderID := uuid.New()

	record := &domain.PaymentRecord{
		ProcessorReference: attempt.ProcessorReference,
		OrderID:            orderID,
		IdempotencyKey:     attempt.IdempotencyKey,
		ProviderID:         attempt.ProviderID,
		ClientID:           attempt.ClientID,
		ServiceKind:        attempt.ServiceKind,
		Currency:           attempt.Currency,
		AmountCents:        attempt.Pricing.Entry.TotalCents,
		ProviderCents:      attempt.Pricing.Entry.ProviderCents,
		ConnectionFeeCents: attempt.Pricing.Entry.ConnectionFeeCents,
		Channel:            attempt.Gateway.Channel,
		Status:             domain.PaymentRecordSucceeded,
		CreatedAt:          now,
	}
	if err := s.repo.UpsertPaymentRecord(ctx, record); err != nil {
		return uuid.Nil, err
	}

	// A previous write for this reference may already exist; reuse its order
	// id so receipts stay stable across retried persistence.
	if existing, err := s.repo.GetPaymentByProcessorReference(ctx, attempt.ProcessorReference); err == nil && existing.OrderID != uuid.Nil {
		orderID = existing.OrderID
	}

	clientView := &domain.PartyPaymentView{
		PartyID:            attempt.ClientID,
		ProcessorReference: attempt.ProcessorReference,
		OrderID:            orderID,
		CounterpartyID:     attempt.ProviderID,
		ServiceKind:        attempt.ServiceKind,
		Currency:           attempt.Currency,
		AmountCents:        record.AmountCents,
		Status:             record.Status,
		CreatedAt:          now,
	}
	if err := s.repo.UpsertClientPaymentView(ctx, clientView); err != nil {
		log.Printf("WARN: client payment view write failed for reference %s: %v", attempt.ProcessorReference, err)
	}

	providerView := &domain.PartyPaymentView{
		PartyID:            attempt.ProviderID,
		ProcessorReference: attempt.ProcessorReference,
		OrderID:            orderID,
		CounterpartyID:     attempt.ClientID,
		ServiceKind:        attempt.ServiceKind,
		Currency:           attempt.Currency,
		AmountCents:        record.AmountCents,
		Status:             record.Status,
		CreatedAt:          now,
	}
	if err := s.repo.UpsertProviderPaymentView(ctx, providerView); err != nil {
		log.Printf("WARN: provider payment view write failed for reference %s: %v", attempt.ProcessorReference, err)
	}

	summary := &domain.OrderSummary{
		OrderID:            orderID,
		ProcessorReference: attempt.ProcessorReference,
		ProviderID:         attempt.ProviderID,
		ClientID:           attempt.ClientID,
		ServiceKind:        attempt.ServiceKind,
		RequestTitle:       attempt.RequestTitle,
		Currency:           attempt.Currency,
		AmountCents:        record.AmountCents,
		DurationMinutes:    attempt.Pricing.Entry.DurationMinutes,
		CreatedAt:          now,
	}
	if err := s.repo.UpsertOrderSummary(ctx, summary); err != nil {
		log.Printf("WARN: order summary write failed for order %s: %v", orderID, err)
	}

	return orderID, nil
}
