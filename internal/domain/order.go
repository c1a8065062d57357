/**
 * @description
 * This file defines the durable records written after a successful payment:
 * the primary payment record keyed by the processor's reference, the
 * per-client and per-provider partition views, and the order summary used for
 * navigation and receipts. Records are created once and updated at most once
 * (a status transition); they are never deleted by this service.
 *
 * @dependencies
 * - time: Standard Go library.
 * - github.com/google/uuid: For order identifiers.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Durable payment record statuses.
const (
	PaymentRecordSucceeded = "succeeded"
	PaymentRecordAbandoned = "abandoned"
)

// PaymentRecord is the primary durable record for a completed attempt, keyed
// by the processor reference. NotifiedAt is the sole idempotency guard for
// provider notification dispatch.
type PaymentRecord struct {
	ProcessorReference string         `json:"processor_reference"`
	OrderID            uuid.UUID      `json:"order_id"`
	IdempotencyKey     uuid.UUID      `json:"idempotency_key"`
	ProviderID         string         `json:"provider_id"`
	ClientID           string         `json:"client_id"`
	ServiceKind        ServiceKind    `json:"service_kind"`
	Currency           string         `json:"currency"`
	AmountCents        int64          `json:"amount_cents"`
	ProviderCents      int64          `json:"provider_cents"`
	ConnectionFeeCents int64          `json:"connection_fee_cents"`
	Channel            PaymentChannel `json:"channel"`
	Status             string         `json:"status"`
	NotifiedAt         *time.Time     `json:"notified_at,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
}

// OrderSummary is the denormalized record shown on receipts.
type OrderSummary struct {
	OrderID            uuid.UUID   `json:"order_id"`
	ProcessorReference string      `json:"processor_reference"`
	ProviderID         string      `json:"provider_id"`
	ClientID           string      `json:"client_id"`
	ServiceKind        ServiceKind `json:"service_kind"`
	RequestTitle       string      `json:"request_title"`
	Currency           string      `json:"currency"`
	AmountCents        int64       `json:"amount_cents"`
	DurationMinutes    int         `json:"duration_minutes"`
	CreatedAt          time.Time   `json:"created_at"`
}

// PartyPaymentView is the shape shared by the per-client and per-provider
// partition records. A failed write of a partition view is logged and
// tolerated; the primary PaymentRecord is the source of truth.
type PartyPaymentView struct {
	PartyID            string      `json:"party_id"`
	ProcessorReference string      `json:"processor_reference"`
	OrderID            uuid.UUID   `json:"order_id"`
	CounterpartyID     string      `json:"counterparty_id"`
	ServiceKind        ServiceKind `json:"service_kind"`
	Currency           string      `json:"currency"`
	AmountCents        int64       `json:"amount_cents"`
	Status             string      `json:"status"`
	CreatedAt          time.Time   `json:"created_at"`
}
