/**
 * @description
 * Call scheduling models. A scheduling request is ephemeral: the orchestrator
 * keeps nothing beyond the request/response pair, and a scheduling failure
 * never alters the payment outcome.
 */

package domain

// CallScheduleStatus is the outcome of a best-effort scheduling attempt.
type CallScheduleStatus string

const (
	CallScheduled CallScheduleStatus = "scheduled"
	CallSkipped   CallScheduleStatus = "skipped"
)

// CallSchedulingRequest carries everything the call backend needs to place
// the post-payment phone call.
type CallSchedulingRequest struct {
	ProviderID         string
	ClientID           string
	ProviderPhone      string
	ClientPhone        string
	ServiceKind        ServiceKind
	ProviderType       string
	ProcessorReference string
	AmountCents        int64
	Currency           string
	DelayMinutes       int
	ClientLanguages    []string
	ProviderLanguages  []string
	CallSessionID      string
}

// CallScheduleResult reports whether the call was scheduled or skipped, with
// the backend's call id when available.
type CallScheduleResult struct {
	Status CallScheduleStatus `json:"status"`
	CallID string             `json:"call_id,omitempty"`
}
