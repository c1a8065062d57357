/**
 * @description
 * This file contains the HTTP handlers for the checkout-service's API endpoints.
 * Handlers are responsible for parsing incoming requests, calling the appropriate
 * methods on the application service, and writing the HTTP response. They act as the
 * bridge between the web layer and the payment orchestration logic.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - github.com/go-chi/chi/v5: URL parameter extraction.
 * - github.com/google/uuid: Attempt identifiers.
 * - internal/app, internal/domain, internal/store: For service logic, models, and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/will383842/Outil-sos-expat-sub004/internal/app"
	"github.com/will383842/Outil-sos-expat-sub004/internal/domain"
	"github.com/will383842/Outil-sos-expat-sub004/internal/store"
)

// CheckoutHandlers holds the application service that handlers will use.
type CheckoutHandlers struct {
	service *app.Service
	repo    store.Repository
}

// NewCheckoutHandlers creates a new instance of CheckoutHandlers.
func NewCheckoutHandlers(service *app.Service, repo store.Repository) *CheckoutHandlers {
	return &CheckoutHandlers{service: service, repo: repo}
}

type partyPayload struct {
	ID          string   `json:"id"`
	CountryCode string   `json:"countryCode,omitempty"`
	Email       string   `json:"email,omitempty"`
	Name        string   `json:"name,omitempty"`
	Phone       string   `json:"phone"`
	Type        string   `json:"type,omitempty"`
	Languages   []string `json:"languages,omitempty"`
}

type createAttemptRequest struct {
	ServiceKind     string       `json:"serviceKind"`
	Currency        string       `json:"currency"`
	Provider        partyPayload `json:"provider"`
	Client          partyPayload `json:"client"`
	PromoCode       string       `json:"promoCode,omitempty"`
	RequestTitle    string       `json:"requestTitle,omitempty"`
	DurationMinutes int          `json:"durationMinutes,omitempty"`
}

// createAttemptResponse is sent back to the web client after a checkout
// attempt has been opened. Amounts are minor units; `amount` duplicates the
// total in whole currency units for display.
type createAttemptResponse struct {
	AttemptID            string                   `json:"attempt_id"`
	Status               string                   `json:"status"`
	AmountCents          int64                    `json:"amount_cents"`
	Amount               float64                  `json:"amount"`
	Currency             string                   `json:"currency"`
	Channel              string                   `json:"channel"`
	Pricing              domain.PricingResolution `json:"pricing"`
	ConfirmationRequired bool                     `json:"confirmation_required"`
}

type submitAttemptRequest struct {
	DisplayedAmount json.Number `json:"displayedAmount"`
	Confirmed       bool        `json:"confirmed"`
	PaymentMethod   struct {
		Token     string `json:"token,omitempty"`
		ReturnURL string `json:"returnUrl,omitempty"`
	} `json:"paymentMethod"`
}

type gatewayRefreshRequest struct {
	CountryCode string `json:"countryCode"`
}

type attemptSnapshotResponse struct {
	AttemptID          string                   `json:"attempt_id"`
	Status             string                   `json:"status"`
	Channel            string                   `json:"channel"`
	Currency           string                   `json:"currency"`
	Pricing            domain.PricingResolution `json:"pricing"`
	ProcessorReference string                   `json:"processor_reference,omitempty"`
	FailureMessage     string                   `json:"failure_message,omitempty"`
}

// CreateAttemptHandler opens a checkout attempt: pricing is resolved, the
// gateway channel is decided, and the idempotency key is minted.
func (h *CheckoutHandlers) CreateAttemptHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetAuthUserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get user ID from context")
		return
	}

	var req createAttemptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("level=warn component=api endpoint=create_attempt outcome=reject reason=invalid_json err=%v", err)
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	clientID := strings.TrimSpace(req.Client.ID)
	if clientID == "" {
		clientID = userID
	}

	attempt, err := h.service.CreateAttempt(r.Context(), app.NewAttemptInput{
		ServiceKind:       domain.ServiceKind(strings.TrimSpace(req.ServiceKind)),
		Currency:          req.Currency,
		ProviderID:        strings.TrimSpace(req.Provider.ID),
		ProviderType:      strings.TrimSpace(req.Provider.Type),
		ProviderCountry:   req.Provider.CountryCode,
		ProviderPhone:     strings.TrimSpace(req.Provider.Phone),
		ProviderLanguages: req.Provider.Languages,
		ClientID:          clientID,
		ClientEmail:       strings.TrimSpace(req.Client.Email),
		ClientName:        strings.TrimSpace(req.Client.Name),
		ClientPhone:       strings.TrimSpace(req.Client.Phone),
		ClientLanguages:   req.Client.Languages,
		PromoCode:         req.PromoCode,
		RequestTitle:      strings.TrimSpace(req.RequestTitle),
		DurationMinutes:   req.DurationMinutes,
	})
	if err != nil {
		log.Printf("level=warn component=api endpoint=create_attempt outcome=failed user_id=%s err=%v", userID, err)
		h.writeCheckoutError(w, err)
		return
	}

	log.Printf("level=info component=api endpoint=create_attempt outcome=accepted attempt_id=%s client_id=%s provider_id=%s amount=%d channel=%s",
		attempt.ID, attempt.ClientID, attempt.ProviderID, attempt.Pricing.Entry.TotalCents, attempt.Gateway.Channel)

	h.writeJSON(w, http.StatusCreated, createAttemptResponse{
		AttemptID:            attempt.ID.String(),
		Status:               string(attempt.State),
		AmountCents:          attempt.Pricing.Entry.TotalCents,
		Amount:               float64(attempt.Pricing.Entry.TotalCents) / 100,
		Currency:             attempt.Currency,
		Channel:              string(attempt.Gateway.Channel),
		Pricing:              attempt.Pricing,
		ConfirmationRequired: attempt.Pricing.Entry.TotalCents > h.service.ConfirmationThresholdCents(),
	})
}

// SubmitAttemptHandler runs the payment state machine for a registered attempt.
func (h *CheckoutHandlers) SubmitAttemptHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetAuthUserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get user ID from context")
		return
	}

	attemptID, err := uuid.Parse(chi.URLParam(r, "attemptID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid attempt ID")
		return
	}

	var req submitAttemptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("level=warn component=api endpoint=submit_attempt outcome=reject reason=invalid_json attempt_id=%s err=%v", attemptID, err)
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	displayedCents, err := parseDisplayedAmountCents(req.DisplayedAmount)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid displayedAmount")
		return
	}

	log.Printf("level=info component=api endpoint=submit_attempt outcome=accepted attempt_id=%s user_id=%s displayed_cents=%d confirmed=%t",
		attemptID, userID, displayedCents, req.Confirmed)

	outcome, err := h.service.Submit(r.Context(), attemptID, app.SubmissionInput{
		DisplayedAmountCents: displayedCents,
		Confirmed:            req.Confirmed,
		Instrument: domain.PaymentInstrument{
			CardToken: strings.TrimSpace(req.PaymentMethod.Token),
			ReturnURL: strings.TrimSpace(req.PaymentMethod.ReturnURL),
		},
	})
	if err != nil {
		log.Printf("level=warn component=api endpoint=submit_attempt outcome=failed attempt_id=%s err=%v", attemptID, err)
		h.writeCheckoutError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, outcome)
}

// GetAttemptHandler returns the current snapshot of an attempt.
func (h *CheckoutHandlers) GetAttemptHandler(w http.ResponseWriter, r *http.Request) {
	attemptID, err := uuid.Parse(chi.URLParam(r, "attemptID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid attempt ID")
		return
	}

	attempt, err := h.service.GetAttempt(attemptID)
	if err != nil {
		h.writeCheckoutError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, attemptSnapshotResponse{
		AttemptID:          attempt.ID.String(),
		Status:             string(attempt.State),
		Channel:            string(attempt.Gateway.Channel),
		Currency:           attempt.Currency,
		Pricing:            attempt.Pricing,
		ProcessorReference: attempt.ProcessorReference,
		FailureMessage:     attempt.FailureMessage,
	})
}

// CancelAttemptHandler discards an attempt before submission.
func (h *CheckoutHandlers) CancelAttemptHandler(w http.ResponseWriter, r *http.Request) {
	attemptID, err := uuid.Parse(chi.URLParam(r, "attemptID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid attempt ID")
		return
	}

	if err := h.service.CancelAttempt(attemptID); err != nil {
		h.writeCheckoutError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": string(domain.StateCanceled)})
}

// RefreshGatewayHandler evicts and re-resolves the routing decision for a country.
func (h *CheckoutHandlers) RefreshGatewayHandler(w http.ResponseWriter, r *http.Request) {
	var req gatewayRefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if strings.TrimSpace(req.CountryCode) == "" {
		h.writeError(w, http.StatusBadRequest, "countryCode is required")
		return
	}

	decision := h.service.RefreshGateway(r.Context(), req.CountryCode)
	h.writeJSON(w, http.StatusOK, decision)
}

// ListNotificationsHandler lists inbox notifications for the authenticated user.
func (h *CheckoutHandlers) ListNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetAuthUserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get user ID from context")
		return
	}

	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			h.writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = parsed
	}

	items, err := h.repo.ListInAppNotifications(r.Context(), userID, limit)
	if err != nil {
		log.Printf("level=error component=api endpoint=list_notifications outcome=failed user_id=%s err=%v", userID, err)
		h.writeError(w, http.StatusInternalServerError, "Could not retrieve notifications.")
		return
	}

	h.writeJSON(w, http.StatusOK, items)
}

// MarkNotificationReadHandler marks one notification as read.
func (h *CheckoutHandlers) MarkNotificationReadHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetAuthUserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get user ID from context")
		return
	}

	notificationID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid notification ID")
		return
	}

	updated, err := h.repo.MarkInAppNotificationRead(r.Context(), userID, notificationID)
	if err != nil {
		log.Printf("level=error component=api endpoint=mark_notification_read outcome=failed user_id=%s notification_id=%s err=%v", userID, notificationID, err)
		h.writeError(w, http.StatusInternalServerError, "Could not update notification.")
		return
	}
	if !updated {
		h.writeError(w, http.StatusNotFound, "Notification not found.")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]bool{"updated": true})
}

// parseDisplayedAmountCents accepts the displayed amount either as whole
// currency units (possibly fractional, e.g. 49 or 49.00) or as an integer
// already in cents when suffixed handling is done client side. The web client
// sends whole units.
func parseDisplayedAmountCents(raw json.Number) (int64, error) {
	s := strings.TrimSpace(raw.String())
	if s == "" {
		return 0, errors.New("displayedAmount is required")
	}
	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if value < 0 {
		return 0, errors.New("displayedAmount must be >= 0")
	}
	cents := int64(value*100 + 0.5)
	return cents, nil
}

// writeCheckoutError maps application errors onto HTTP status codes.
func (h *CheckoutHandlers) writeCheckoutError(w http.ResponseWriter, err error) {
	var validationErr *app.ValidationError
	var configErr *app.ConfigurationError
	var boundsErr *app.PricingBoundsError
	var processorErr *app.ProcessorError
	var timeoutErr *app.ChallengeTimeoutError

	switch {
	case errors.Is(err, app.ErrConfirmationRequired):
		h.writeError(w, http.StatusPreconditionRequired, err.Error())
	case errors.Is(err, app.ErrAttemptNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, app.ErrAttemptNotSubmittable):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &boundsErr):
		h.writeError(w, http.StatusBadRequest, boundsErr.Error())
	case errors.As(err, &validationErr):
		h.writeError(w, http.StatusBadRequest, validationErr.Error())
	case errors.As(err, &timeoutErr):
		h.writeError(w, http.StatusRequestTimeout, timeoutErr.Error())
	case errors.As(err, &processorErr):
		h.writeError(w, http.StatusPaymentRequired, processorErr.Error())
	case errors.As(err, &configErr):
		h.writeError(w, http.StatusInternalServerError, configErr.Error())
	default:
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func (h *CheckoutHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func (h *CheckoutHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
