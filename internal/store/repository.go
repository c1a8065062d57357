/**
 * @description
 * This file defines the `Repository` interface, which specifies the contract
 * for all data access operations required by the checkout-service. The
 * interface decouples the orchestrator's business logic from the PostgreSQL
 * implementation and lets tests substitute deterministic stubs.
 *
 * @dependencies
 * - context, time: Standard Go libraries.
 * - github.com/google/uuid: For identifiers.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/will383842/Outil-sos-expat-sub004/internal/domain"
)

// Repository defines the set of methods for interacting with the database.
type Repository interface {
	// Pricing methods
	GetBasePricing(ctx context.Context, kind domain.ServiceKind, currency string) (*domain.PricingEntry, error)
	GetProviderPricingOverride(ctx context.Context, providerID string, kind domain.ServiceKind, currency string) (*domain.ProviderPricingOverride, error)
	GetPromoCode(ctx context.Context, code string) (*domain.PromoCode, error)

	// Payment record methods. Upserts are keyed by processor reference so a
	// repeated write for the same reference is safe.
	UpsertPaymentRecord(ctx context.Context, record *domain.PaymentRecord) error
	UpsertClientPaymentView(ctx context.Context, view *domain.PartyPaymentView) error
	UpsertProviderPaymentView(ctx context.Context, view *domain.PartyPaymentView) error
	UpsertOrderSummary(ctx context.Context, summary *domain.OrderSummary) error
	GetPaymentByProcessorReference(ctx context.Context, processorReference string) (*domain.PaymentRecord, error)
	MarkPaymentNotified(ctx context.Context, processorReference string, notifiedAt time.Time) error

	// Stale attempt sweeping
	FindStalePayments(ctx context.Context, olderThan time.Time, limit int) ([]domain.PaymentRecord, error)
	MarkPaymentAbandoned(ctx context.Context, processorReference string) error

	// In-app notification methods
	CreateInAppNotification(ctx context.Context, item domain.InAppNotification) error
	ListInAppNotifications(ctx context.Context, userID string, limit int) ([]domain.InAppNotification, error)
	MarkInAppNotificationRead(ctx context.Context, userID string, notificationID uuid.UUID) (bool, error)
}
