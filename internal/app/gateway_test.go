package app

import (
	"context"
	"errors"
	"testing"

	"github.com/will383842/Outil-sos-expat-sub004/internal/domain"
)

type recommenderStub struct {
	decision *domain.GatewayDecision
	err      error
	calls    int
}

func (s *recommenderStub) RecommendGateway(ctx context.Context, countryCode string) (*domain.GatewayDecision, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.decision, nil
}

func TestDecide_RedirectOnlyCountrySkipsRemote(t *testing.T) {
	remote := &recommenderStub{}
	router := NewGatewayRouter(NewMemoryDecisionCache(), remote)

	got := router.Decide(context.Background(), "cu")
	if got.Channel != domain.ChannelRedirect {
		t.Fatalf("expected redirect channel for CU, got %s", got.Channel)
	}
	if !got.ChannelExclusive {
		t.Fatal("expected the redirect-only decision to be exclusive")
	}
	if got.CountryCode != "CU" {
		t.Fatalf("expected normalized country code CU, got %s", got.CountryCode)
	}
	if remote.calls != 0 {
		t.Fatalf("redirect-only countries must not hit the remote endpoint, got %d calls", remote.calls)
	}
}

func TestDecide_CachesRemoteDecision(t *testing.T) {
	remote := &recommenderStub{
		decision: &domain.GatewayDecision{Channel: domain.ChannelCard},
	}
	router := NewGatewayRouter(NewMemoryDecisionCache(), remote)

	first := router.Decide(context.Background(), "FR")
	second := router.Decide(context.Background(), "FR")

	if first.Channel != domain.ChannelCard || second.Channel != domain.ChannelCard {
		t.Fatalf("expected card channel, got %s and %s", first.Channel, second.Channel)
	}
	if remote.calls != 1 {
		t.Fatalf("expected a single remote call for repeated lookups, got %d", remote.calls)
	}
}

func TestDecide_RemoteFailureFallsBackToCard(t *testing.T) {
	remote := &recommenderStub{err: errors.New("backend unreachable")}
	cache := NewMemoryDecisionCache()
	router := NewGatewayRouter(cache, remote)

	got := router.Decide(context.Background(), "FR")
	if got.Channel != domain.ChannelCard {
		t.Fatalf("expected card fallback on remote failure, got %s", got.Channel)
	}

	// The fallback is not cached; the next lookup retries the remote endpoint.
	router.Decide(context.Background(), "FR")
	if remote.calls != 2 {
		t.Fatalf("expected the fallback decision to stay uncached, got %d remote calls", remote.calls)
	}
}

func TestRefresh_EvictsAndReResolves(t *testing.T) {
	remote := &recommenderStub{
		decision: &domain.GatewayDecision{Channel: domain.ChannelCard},
	}
	router := NewGatewayRouter(NewMemoryDecisionCache(), remote)

	router.Decide(context.Background(), "FR")
	remote.decision = &domain.GatewayDecision{Channel: domain.ChannelRedirect}

	got := router.Refresh(context.Background(), "FR")
	if got.Channel != domain.ChannelRedirect {
		t.Fatalf("expected refreshed decision, got %s", got.Channel)
	}
	if remote.calls != 2 {
		t.Fatalf("expected refresh to re-run resolution, got %d remote calls", remote.calls)
	}
}

func TestMemoryDecisionCache_SetGetEvict(t *testing.T) {
	cache := NewMemoryDecisionCache()
	ctx := context.Background()

	if _, ok := cache.Get(ctx, "FR"); ok {
		t.Fatal("expected a miss on an empty cache")
	}

	cache.Set(ctx, "FR", domain.GatewayDecision{CountryCode: "FR", Channel: domain.ChannelCard})
	got, ok := cache.Get(ctx, "FR")
	if !ok || got.Channel != domain.ChannelCard {
		t.Fatalf("expected cached card decision, got %+v ok=%t", got, ok)
	}

	cache.Evict(ctx, "FR")
	if _, ok := cache.Get(ctx, "FR"); ok {
		t.Fatal("expected a miss after eviction")
	}
}
