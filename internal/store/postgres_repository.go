/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository`
 * interface. It contains all the SQL needed by the checkout orchestrator:
 * pricing lookups (admin base table, per-provider overrides, promo codes),
 * idempotent payment record upserts keyed by the processor reference, the
 * notification marker, stale payment sweeping, and the in-app notification
 * feed.
 *
 * @dependencies
 * - context, errors, time: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/will383842/Outil-sos-expat-sub004/internal/domain"
)

var (
	ErrPricingNotFound  = errors.New("pricing entry not found")
	ErrOverrideNotFound = errors.New("provider pricing override not found")
	ErrPromoNotFound    = errors.New("promo code not found")
	ErrPaymentNotFound  = errors.New("payment record not found")
)

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetBasePricing retrieves the admin-managed base pricing entry for a service
// kind and currency.
func (r *PostgresRepository) GetBasePricing(ctx context.Context, kind domain.ServiceKind, currency string) (*domain.PricingEntry, error) {
	var entry domain.PricingEntry
	query := `
		SELECT total_cents, connection_fee_cents, provider_cents, duration_minutes, currency
		FROM admin_pricing
		WHERE service_kind = $1 AND currency = $2
	`
	err := r.db.QueryRow(ctx, query, kind, currency).Scan(
		&entry.TotalCents,
		&entry.ConnectionFeeCents,
		&entry.ProviderCents,
		&entry.DurationMinutes,
		&entry.Currency,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrPricingNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// GetProviderPricingOverride retrieves the per-provider override, if any.
func (r *PostgresRepository) GetProviderPricingOverride(ctx context.Context, providerID string, kind domain.ServiceKind, currency string) (*domain.ProviderPricingOverride, error) {
	override := domain.ProviderPricingOverride{ProviderID: providerID, ServiceKind: kind}
	query := `
		SELECT total_cents, connection_fee_cents, provider_cents, duration_minutes, currency, stackable_with_coupons
		FROM provider_pricing_overrides
		WHERE provider_id = $1 AND service_kind = $2 AND currency = $3
	`
	err := r.db.QueryRow(ctx, query, providerID, kind, currency).Scan(
		&override.Entry.TotalCents,
		&override.Entry.ConnectionFeeCents,
		&override.Entry.ProviderCents,
		&override.Entry.DurationMinutes,
		&override.Entry.Currency,
		&override.StackableWithCoupons,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrOverrideNotFound
		}
		return nil, err
	}
	return &override, nil
}

// GetPromoCode retrieves a promo code by its code, case-insensitively.
func (r *PostgresRepository) GetPromoCode(ctx context.Context, code string) (*domain.PromoCode, error) {
	var promo domain.PromoCode
	var kinds []string
	query := `
		SELECT code, discount_type, discount_value, eligible_service_kinds, stackable
		FROM promo_codes
		WHERE lower(btrim(code)) = lower(btrim($1)) AND active = TRUE
	`
	err := r.db.QueryRow(ctx, query, code).Scan(
		&promo.Code,
		&promo.DiscountType,
		&promo.DiscountValue,
		&kinds,
		&promo.Stackable,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrPromoNotFound
		}
		return nil, err
	}
	for _, k := range kinds {
		promo.EligibleServiceKinds = append(promo.EligibleServiceKinds, domain.ServiceKind(k))
	}
	return &promo, nil
}

// UpsertPaymentRecord writes the primary payment record. The processor
// reference is the key; a repeated write updates the status snapshot and
// leaves created_at and notified_at untouched.
func (r *PostgresRepository) UpsertPaymentRecord(ctx context.Context, record *domain.PaymentRecord) error {
	query := `
		INSERT INTO payments (
			processor_reference, order_id, idempotency_key, provider_id, client_id,
			service_kind, currency, amount_cents, provider_cents, connection_fee_cents,
			channel, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (processor_reference) DO UPDATE SET
			status = EXCLUDED.status,
			amount_cents = EXCLUDED.amount_cents,
			provider_cents = EXCLUDED.provider_cents,
			connection_fee_cents = EXCLUDED.connection_fee_cents
	`
	_, err := r.db.Exec(ctx, query,
		record.ProcessorReference,
		record.OrderID,
		record.IdempotencyKey,
		record.ProviderID,
		record.ClientID,
		record.ServiceKind,
		record.Currency,
		record.AmountCents,
		record.ProviderCents,
		record.ConnectionFeeCents,
		record.Channel,
		record.Status,
		record.CreatedAt,
	)
	return err
}

// UpsertClientPaymentView writes the per-client partition record.
func (r *PostgresRepository) UpsertClientPaymentView(ctx context.Context, view *domain.PartyPaymentView) error {
	return r.upsertPartyView(ctx, "client_payments", view)
}

// UpsertProviderPaymentView writes the per-provider partition record.
func (r *PostgresRepository) UpsertProviderPaymentView(ctx context.Context, view *domain.PartyPaymentView) error {
	return r.upsertPartyView(ctx, "provider_payments", view)
}

func (r *PostgresRepository) upsertPartyView(ctx context.Context, table string, view *domain.PartyPaymentView) error {
	// table is one of two compile-time constants, never user input.
	query := `
		INSERT INTO ` + table + ` (
			party_id, processor_reference, order_id, counterparty_id,
			service_kind, currency, amount_cents, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (party_id, processor_reference) DO UPDATE SET
			status = EXCLUDED.status,
			amount_cents = EXCLUDED.amount_cents
	`
	_, err := r.db.Exec(ctx, query,
		view.PartyID,
		view.ProcessorReference,
		view.OrderID,
		view.CounterpartyID,
		view.ServiceKind,
		view.Currency,
		view.AmountCents,
		view.Status,
		view.CreatedAt,
	)
	return err
}

// UpsertOrderSummary writes the order summary used for receipts.
func (r *PostgresRepository) UpsertOrderSummary(ctx context.Context, summary *domain.OrderSummary) error {
	query := `
		INSERT INTO order_summaries (
			order_id, processor_reference, provider_id, client_id,
			service_kind, request_title, currency, amount_cents, duration_minutes, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (order_id) DO UPDATE SET
			amount_cents = EXCLUDED.amount_cents,
			request_title = EXCLUDED.request_title
	`
	_, err := r.db.Exec(ctx, query,
		summary.OrderID,
		summary.ProcessorReference,
		summary.ProviderID,
		summary.ClientID,
		summary.ServiceKind,
		summary.RequestTitle,
		summary.Currency,
		summary.AmountCents,
		summary.DurationMinutes,
		summary.CreatedAt,
	)
	return err
}

// GetPaymentByProcessorReference retrieves the primary payment record.
func (r *PostgresRepository) GetPaymentByProcessorReference(ctx context.Context, processorReference string) (*domain.PaymentRecord, error) {
	var record domain.PaymentRecord
	query := `
		SELECT processor_reference, order_id, idempotency_key, provider_id, client_id,
			service_kind, currency, amount_cents, provider_cents, connection_fee_cents,
			channel, status, notified_at, created_at
		FROM payments
		WHERE processor_reference = $1
	`
	err := r.db.QueryRow(ctx, query, processorReference).Scan(
		&record.ProcessorReference,
		&record.OrderID,
		&record.IdempotencyKey,
		&record.ProviderID,
		&record.ClientID,
		&record.ServiceKind,
		&record.Currency,
		&record.AmountCents,
		&record.ProviderCents,
		&record.ConnectionFeeCents,
		&record.Channel,
		&record.Status,
		&record.NotifiedAt,
		&record.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return &record, nil
}

// MarkPaymentNotified sets the notified_at marker on the primary record. The
// marker is only ever set, never cleared.
func (r *PostgresRepository) MarkPaymentNotified(ctx context.Context, processorReference string, notifiedAt time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE payments SET notified_at = $2 WHERE processor_reference = $1 AND notified_at IS NULL`,
		processorReference, notifiedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// Either the record does not exist or it was already marked; both are
		// fine for an at-most-once guard.
		return nil
	}
	return nil
}

// FindStalePayments returns payments stuck in a non-terminal status older
// than the given cutoff, for the sweeper job.
func (r *PostgresRepository) FindStalePayments(ctx context.Context, olderThan time.Time, limit int) ([]domain.PaymentRecord, error) {
	query := `
		SELECT processor_reference, order_id, idempotency_key, provider_id, client_id,
			service_kind, currency, amount_cents, provider_cents, connection_fee_cents,
			channel, status, notified_at, created_at
		FROM payments
		WHERE status NOT IN ('succeeded', 'canceled', 'abandoned') AND created_at < $1
		ORDER BY created_at ASC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, olderThan, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.PaymentRecord
	for rows.Next() {
		var record domain.PaymentRecord
		if err := rows.Scan(
			&record.ProcessorReference,
			&record.OrderID,
			&record.IdempotencyKey,
			&record.ProviderID,
			&record.ClientID,
			&record.ServiceKind,
			&record.Currency,
			&record.AmountCents,
			&record.ProviderCents,
			&record.ConnectionFeeCents,
			&record.Channel,
			&record.Status,
			&record.NotifiedAt,
			&record.CreatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// MarkPaymentAbandoned transitions a stale non-terminal payment to abandoned.
func (r *PostgresRepository) MarkPaymentAbandoned(ctx context.Context, processorReference string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE payments SET status = 'abandoned' WHERE processor_reference = $1 AND status NOT IN ('succeeded', 'canceled', 'abandoned')`,
		processorReference,
	)
	return err
}

// CreateInAppNotification inserts one row into the in-app notification feed.
func (r *PostgresRepository) CreateInAppNotification(ctx context.Context, item domain.InAppNotification) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO in_app_notifications (id, user_id, category, title, body, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, item.ID, item.UserID, item.Category, item.Title, item.Body, item.Read, item.CreatedAt)
	return err
}

// ListInAppNotifications returns the most recent notifications for a user.
func (r *PostgresRepository) ListInAppNotifications(ctx context.Context, userID string, limit int) ([]domain.InAppNotification, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, category, title, body, read, created_at
		FROM in_app_notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.InAppNotification
	for rows.Next() {
		var item domain.InAppNotification
		if err := rows.Scan(&item.ID, &item.UserID, &item.Category, &item.Title, &item.Body, &item.Read, &item.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// MarkInAppNotificationRead marks a single notification as read. It reports
// whether a row was actually updated.
func (r *PostgresRepository) MarkInAppNotificationRead(ctx context.Context, userID string, notificationID uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE in_app_notifications SET read = TRUE WHERE id = $1 AND user_id = $2 AND read = FALSE`,
		notificationID, userID,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
