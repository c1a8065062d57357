package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/will383842/Outil-sos-expat-sub004/internal/app"
	"github.com/will383842/Outil-sos-expat-sub004/internal/domain"
	"github.com/will383842/Outil-sos-expat-sub004/internal/store"
)

type handlerRepoStub struct {
	store.Repository

	records       map[string]*domain.PaymentRecord
	notifications []domain.InAppNotification
}

func newHandlerRepoStub() *handlerRepoStub {
	return &handlerRepoStub{records: make(map[string]*domain.PaymentRecord)}
}

func (s *handlerRepoStub) GetBasePricing(ctx context.Context, kind domain.ServiceKind, currency string) (*domain.PricingEntry, error) {
	return &domain.PricingEntry{
		TotalCents:         4900,
		ConnectionFeeCents: 1900,
		ProviderCents:      3000,
		DurationMinutes:    20,
		Currency:           currency,
	}, nil
}

func (s *handlerRepoStub) GetProviderPricingOverride(ctx context.Context, providerID string, kind domain.ServiceKind, currency string) (*domain.ProviderPricingOverride, error) {
	return nil, store.ErrOverrideNotFound
}

func (s *handlerRepoStub) GetPromoCode(ctx context.Context, code string) (*domain.PromoCode, error) {
	return nil, store.ErrPromoNotFound
}

func (s *handlerRepoStub) UpsertPaymentRecord(ctx context.Context, record *domain.PaymentRecord) error {
	if existing, ok := s.records[record.ProcessorReference]; ok {
		record.OrderID = existing.OrderID
	}
	s.records[record.ProcessorReference] = record
	return nil
}

func (s *handlerRepoStub) GetPaymentByProcessorReference(ctx context.Context, ref string) (*domain.PaymentRecord, error) {
	record, ok := s.records[ref]
	if !ok {
		return nil, store.ErrPaymentNotFound
	}
	return record, nil
}

func (s *handlerRepoStub) UpsertClientPaymentView(ctx context.Context, view *domain.PartyPaymentView) error {
	return nil
}

func (s *handlerRepoStub) UpsertProviderPaymentView(ctx context.Context, view *domain.PartyPaymentView) error {
	return nil
}

func (s *handlerRepoStub) UpsertOrderSummary(ctx context.Context, summary *domain.OrderSummary) error {
	return nil
}

func (s *handlerRepoStub) MarkPaymentNotified(ctx context.Context, ref string, notifiedAt time.Time) error {
	if record, ok := s.records[ref]; ok {
		record.NotifiedAt = &notifiedAt
	}
	return nil
}

func (s *handlerRepoStub) CreateInAppNotification(ctx context.Context, item domain.InAppNotification) error {
	s.notifications = append(s.notifications, item)
	return nil
}

func (s *handlerRepoStub) ListInAppNotifications(ctx context.Context, userID string, limit int) ([]domain.InAppNotification, error) {
	var items []domain.InAppNotification
	for _, n := range s.notifications {
		if n.UserID == userID {
			items = append(items, n)
		}
	}
	return items, nil
}

func (s *handlerRepoStub) MarkInAppNotificationRead(ctx context.Context, userID string, notificationID uuid.UUID) (bool, error) {
	for i, n := range s.notifications {
		if n.UserID == userID && n.ID == notificationID {
			s.notifications[i].Read = true
			return true, nil
		}
	}
	return false, nil
}

type handlerIntentStub struct{}

func (handlerIntentStub) CreateIntent(ctx context.Context, req domain.IntentRequest) (*domain.IntentResult, error) {
	return &domain.IntentResult{
		ClientSecret:       "secret_123",
		ProcessorReference: "pi_123",
		AmountCents:        req.AmountCents,
		Currency:           req.Currency,
	}, nil
}

type handlerConfirmerStub struct{}

func (handlerConfirmerStub) Confirm(ctx context.Context, clientSecret string, instrument domain.PaymentInstrument) (*domain.ConfirmResult, error) {
	return &domain.ConfirmResult{Status: domain.ProcessorStatusSucceeded}, nil
}

func (handlerConfirmerStub) AwaitChallenge(ctx context.Context, clientSecret string) (*domain.ConfirmResult, error) {
	return &domain.ConfirmResult{Status: domain.ProcessorStatusSucceeded}, nil
}

type handlerRecommenderStub struct{}

func (handlerRecommenderStub) RecommendGateway(ctx context.Context, countryCode string) (*domain.GatewayDecision, error) {
	return &domain.GatewayDecision{Channel: domain.ChannelCard}, nil
}

type handlerSchedulerStub struct{}

func (handlerSchedulerStub) ScheduleCall(ctx context.Context, req domain.CallSchedulingRequest) (string, error) {
	return "call_1", nil
}

type handlerPublisherStub struct{}

func (handlerPublisherStub) PublishProviderPaymentEvent(ctx context.Context, event domain.ProviderPaymentEvent) error {
	return nil
}

func newTestHandlers() (*CheckoutHandlers, *handlerRepoStub) {
	repo := newHandlerRepoStub()
	pricing := app.NewPricingResolver(repo, 500, 50000)
	gateway := app.NewGatewayRouter(app.NewMemoryDecisionCache(), handlerRecommenderStub{})
	controller := app.NewPaymentSubmissionController(
		handlerIntentStub{},
		map[domain.PaymentChannel]app.ChannelConfirmer{domain.ChannelCard: handlerConfirmerStub{}},
		app.NewOrderPersistenceService(repo),
		app.NewCallSchedulingAdapter(handlerSchedulerStub{}, 5),
		app.NewNotificationDispatcher(repo, handlerPublisherStub{}, "fr"),
		app.ControllerConfig{MinAmountCents: 500, MaxAmountCents: 50000, ConfirmAmountCents: 10000},
	)
	service := app.NewService(pricing, gateway, controller)
	return NewCheckoutHandlers(service, repo), repo
}

func authedRequest(method, target string, body []byte) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	ctx := context.WithValue(req.Context(), authUserIDKey, "cli_1")
	return req.WithContext(ctx)
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func createTestAttempt(t *testing.T, h *CheckoutHandlers) string {
	t.Helper()

	body := []byte(`{
		"serviceKind": "lawyer_call",
		"currency": "eur",
		"provider": {"id": "prov_1", "countryCode": "FR", "phone": "+33612345678"},
		"client": {"id": "cli_1", "name": "Ada", "phone": "+14155552671"},
		"requestTitle": "Visa question"
	}`)
	rec := httptest.NewRecorder()
	h.CreateAttemptHandler(rec, authedRequest(http.MethodPost, "/checkout/attempts", body))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var parsed createAttemptResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &parsed); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	return parsed.AttemptID
}

func TestCreateAttemptHandler(t *testing.T) {
	h, _ := newTestHandlers()

	body := []byte(`{
		"serviceKind": "lawyer_call",
		"currency": "eur",
		"provider": {"id": "prov_1", "countryCode": "FR", "phone": "+33612345678"},
		"client": {"id": "cli_1", "name": "Ada", "phone": "+14155552671"}
	}`)
	rec := httptest.NewRecorder()
	h.CreateAttemptHandler(rec, authedRequest(http.MethodPost, "/checkout/attempts", body))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var parsed createAttemptResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &parsed); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if parsed.AmountCents != 4900 {
		t.Fatalf("expected amount 4900, got %d", parsed.AmountCents)
	}
	if parsed.Channel != "card" {
		t.Fatalf("expected card channel, got %s", parsed.Channel)
	}
	if parsed.ConfirmationRequired {
		t.Fatal("4900 is below the 10000 threshold; no confirmation required")
	}
}

func TestCreateAttemptHandler_UnknownServiceKind(t *testing.T) {
	h, _ := newTestHandlers()

	body := []byte(`{"serviceKind": "video_call", "currency": "eur", "provider": {"id": "prov_1"}, "client": {"id": "cli_1"}}`)
	rec := httptest.NewRecorder()
	h.CreateAttemptHandler(rec, authedRequest(http.MethodPost, "/checkout/attempts", body))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSubmitAttemptHandler_Succeeds(t *testing.T) {
	h, repo := newTestHandlers()
	attemptID := createTestAttempt(t, h)

	body := []byte(`{"displayedAmount": 49, "paymentMethod": {"token": "tok_visa"}}`)
	req := withURLParam(authedRequest(http.MethodPost, "/checkout/attempts/"+attemptID+"/submit", body), "attemptID", attemptID)
	rec := httptest.NewRecorder()
	h.SubmitAttemptHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var outcome app.SubmissionOutcome
	if err := json.Unmarshal(rec.Body.Bytes(), &outcome); err != nil {
		t.Fatalf("failed to parse outcome: %v", err)
	}
	if outcome.Status != domain.StateSucceeded {
		t.Fatalf("expected succeeded, got %s", outcome.Status)
	}
	if _, ok := repo.records["pi_123"]; !ok {
		t.Fatal("expected the payment record to be persisted")
	}
}

func TestSubmitAttemptHandler_DisplayedAmountMismatch(t *testing.T) {
	h, _ := newTestHandlers()
	attemptID := createTestAttempt(t, h)

	body := []byte(`{"displayedAmount": 44, "paymentMethod": {"token": "tok_visa"}}`)
	req := withURLParam(authedRequest(http.MethodPost, "/checkout/attempts/"+attemptID+"/submit", body), "attemptID", attemptID)
	rec := httptest.NewRecorder()
	h.SubmitAttemptHandler(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on displayed-amount mismatch, got %d", rec.Code)
	}
}

func TestSubmitAttemptHandler_UnknownAttempt(t *testing.T) {
	h, _ := newTestHandlers()

	unknown := uuid.NewString()
	body := []byte(`{"displayedAmount": 49, "paymentMethod": {"token": "tok_visa"}}`)
	req := withURLParam(authedRequest(http.MethodPost, "/checkout/attempts/"+unknown+"/submit", body), "attemptID", unknown)
	rec := httptest.NewRecorder()
	h.SubmitAttemptHandler(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for an unknown attempt, got %d", rec.Code)
	}
}

func TestSubmitAttemptHandler_InvalidAttemptID(t *testing.T) {
	h, _ := newTestHandlers()

	req := withURLParam(authedRequest(http.MethodPost, "/checkout/attempts/not-a-uuid/submit", []byte(`{}`)), "attemptID", "not-a-uuid")
	rec := httptest.NewRecorder()
	h.SubmitAttemptHandler(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a malformed attempt id, got %d", rec.Code)
	}
}

func TestGetAttemptHandler(t *testing.T) {
	h, _ := newTestHandlers()
	attemptID := createTestAttempt(t, h)

	req := withURLParam(authedRequest(http.MethodGet, "/checkout/attempts/"+attemptID, nil), "attemptID", attemptID)
	rec := httptest.NewRecorder()
	h.GetAttemptHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var parsed attemptSnapshotResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &parsed); err != nil {
		t.Fatalf("failed to parse snapshot: %v", err)
	}
	if parsed.Status != string(domain.StateIdle) {
		t.Fatalf("expected idle snapshot before submission, got %s", parsed.Status)
	}
}

func TestRefreshGatewayHandler_RequiresCountryCode(t *testing.T) {
	h, _ := newTestHandlers()

	rec := httptest.NewRecorder()
	h.RefreshGatewayHandler(rec, authedRequest(http.MethodPost, "/checkout/gateway/refresh", []byte(`{"countryCode": ""}`)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without a country code, got %d", rec.Code)
	}
}

func TestRefreshGatewayHandler(t *testing.T) {
	h, _ := newTestHandlers()

	rec := httptest.NewRecorder()
	h.RefreshGatewayHandler(rec, authedRequest(http.MethodPost, "/checkout/gateway/refresh", []byte(`{"countryCode": "cu"}`)))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var decision domain.GatewayDecision
	if err := json.Unmarshal(rec.Body.Bytes(), &decision); err != nil {
		t.Fatalf("failed to parse decision: %v", err)
	}
	if decision.Channel != domain.ChannelRedirect {
		t.Fatalf("expected redirect for CU, got %s", decision.Channel)
	}
}

func TestNotificationHandlers(t *testing.T) {
	h, repo := newTestHandlers()

	item := domain.InAppNotification{
		ID:        uuid.New(),
		UserID:    "cli_1",
		Category:  "payment",
		Title:     "New paid consultation",
		CreatedAt: time.Now().UTC(),
	}
	repo.notifications = append(repo.notifications, item)

	rec := httptest.NewRecorder()
	h.ListNotificationsHandler(rec, authedRequest(http.MethodGet, "/notifications", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var items []domain.InAppNotification
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("failed to parse notifications: %v", err)
	}
	if len(items) != 1 || items[0].ID != item.ID {
		t.Fatalf("expected the seeded notification, got %+v", items)
	}

	req := withURLParam(authedRequest(http.MethodPost, "/notifications/"+item.ID.String()+"/read", nil), "id", item.ID.String())
	rec = httptest.NewRecorder()
	h.MarkNotificationReadHandler(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !repo.notifications[0].Read {
		t.Fatal("expected the notification to be marked read")
	}

	missing := uuid.NewString()
	req = withURLParam(authedRequest(http.MethodPost, "/notifications/"+missing+"/read", nil), "id", missing)
	rec = httptest.NewRecorder()
	h.MarkNotificationReadHandler(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for an unknown notification, got %d", rec.Code)
	}
}
