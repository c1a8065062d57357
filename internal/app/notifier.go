/**
 * @description
 * NotificationDispatcher sends exactly one provider notification per
 * successful payment. Before dispatch it re-reads the persisted payment
 * record; a present notified_at marker means the work is already done and the
 * dispatcher returns immediately. Otherwise it writes an in-app notification
 * and publishes the event to the external multi-channel (SMS/email) queue,
 * each attempted independently and logged on failure. The marker is then
 * written unconditionally: a notification counts as attempted even if the
 * external enqueue failed, bounding retries.
 *
 * @dependencies
 * - context, errors, fmt, log, time: Standard Go libraries.
 * - github.com/google/uuid: Event id generation.
 * - internal/domain, internal/store: Models and the notification marker.
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
	"github.com/will383842/Outil-sos-expat-sub004/internal/store"
)

// EventPublisher is the external multi-channel enqueue.
type EventPublisher interface {
	PublishProviderPaymentEvent(ctx context.Context, event domain.ProviderPaymentEvent) error
}

// NotificationDispatcher delivers the provider's payment notification with an
// at-most-once guarantee.
type NotificationDispatcher struct {
	repo      store.Repository
	publisher EventPublisher
	locale    string
}

// NewNotificationDispatcher creates a dispatcher publishing with the given
// default locale.
func NewNotificationDispatcher(repo store.Repository, publisher EventPublisher, locale string) *NotificationDispatcher {
	if locale == "" {
		locale = "fr"
	}
	return &NotificationDispatcher{repo: repo, publisher: publisher, locale: locale}
}

// Dispatch notifies the provider about a succeeded attempt. It never fails
// the payment outcome; every error is logged and swallowed.
func (d *NotificationDispatcher) Dispatch(ctx context.Context, attempt *domain.PaymentAttempt, orderID uuid.UUID) {
	record, err := d.repo.GetPaymentByProcessorReference(ctx, attempt.ProcessorReference)
	if err != nil {
		if !errors.Is(err, store.ErrPaymentNotFound) {
			log.Printf("WARN: notification guard read failed for reference %s: %v", attempt.ProcessorReference, err)
		}
		// Without the persisted record there is no marker to guard with;
		// skip rather than risk duplicate notifications on a later retry.
		return
	}
	if record.NotifiedAt != nil {
		return
	}

	inApp := domain.InAppNotification{
		ID:       uuid.New(),
		UserID:   attempt.ProviderID,
		Category: "payment",
		Title:    "New paid consultation",
		Body: fmt.Sprintf("%s booked a %s (%s) — %s",
			attempt.ClientName,
			attempt.ServiceKind,
			attempt.RequestTitle,
			formatAmount(attempt.Pricing.Entry.TotalCents, attempt.Currency),
		),
		CreatedAt: time.Now().UTC(),
	}
	if err := d.repo.CreateInAppNotification(ctx, inApp); err != nil {
		log.Printf("WARN: in-app notification write failed for provider %s: %v", attempt.ProviderID, err)
	}

	event := domain.ProviderPaymentEvent{
		EventID:       uuid.New(),
		Locale:        d.locale,
		ProviderID:    attempt.ProviderID,
		ProviderPhone: attempt.ProviderPhone,
		ClientID:      attempt.ClientID,
		ClientName:    attempt.ClientName,
		RequestTitle:  attempt.RequestTitle,
		ServiceKind:   attempt.ServiceKind,
		AmountCents:   attempt.Pricing.Entry.TotalCents,
		Currency:      attempt.Currency,
		OrderID:       orderID,
		Timestamp:     time.Now().UTC(),
	}
	if err := d.publisher.PublishProviderPaymentEvent(ctx, event); err != nil {
		log.Printf("WARN: provider payment event enqueue failed for provider %s: %v", attempt.ProviderID, err)
	}

	// Written even when the enqueue failed: one attempt per payment.
	if err := d.repo.MarkPaymentNotified(ctx, attempt.ProcessorReference, time.Now().UTC()); err != nil {
		log.Printf("WARN: notified_at marker write failed for reference %s: %v", attempt.ProcessorReference, err)
	}
}

func formatAmount(cents int64, currency string) string {
	return fmt.Sprintf("%d.%02d %s", cents/100, cents%100, currency)
}
