/**
 * @description
 * Notification models: the payload enqueued to the external multi-channel
 * (SMS/email) pipeline and the in-app notification row written for the
 * provider's feed. Both are attempted independently; failures are logged and
 * do not block the other path.
 *
 * @dependencies
 * - time: Standard Go library.
 * - github.com/google/uuid: For notification identifiers.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// ProviderPaymentEvent is the payload published to the external notification
// pipeline when a provider has been paid for a consultation.
type ProviderPaymentEvent struct {
	EventID       uuid.UUID   `json:"event_id"`
	Locale        string      `json:"locale"`
	ProviderID    string      `json:"provider_id"`
	ProviderPhone string      `json:"provider_phone,omitempty"`
	ClientID      string      `json:"client_id"`
	ClientName    string      `json:"client_name"`
	RequestTitle  string      `json:"request_title"`
	ServiceKind   ServiceKind `json:"service_kind"`
	AmountCents   int64       `json:"amount_cents"`
	Currency      string      `json:"currency"`
	OrderID       uuid.UUID   `json:"order_id"`
	Timestamp     time.Time   `json:"timestamp"`
}

// InAppNotification is one row of a user's in-app notification feed.
type InAppNotification struct {
	ID        uuid.UUID `json:"id"`
	UserID    string    `json:"user_id"`
	Category  string    `json:"category"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}
