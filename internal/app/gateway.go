/**
 * @description
 * GatewayRouter decides which payment channel serves a provider country. The
 * decision is resolved read-through: an injected cache first, then a static
 * set of countries that only support the redirect channel, then the remote
 * "recommend gateway" endpoint. Any remote failure falls back to the card
 * channel with a logged soft warning; this path never returns an error to the
 * caller.
 *
 * The cache is the only mutable state shared between checkout attempts. It is
 * monotonic: an entry, once set, is removed only by an explicit Refresh, so
 * concurrent readers of an uncached key may both call the remote endpoint —
 * bounded duplication, not a correctness hazard.
 *
 * @dependencies
 * - context, log, strings: Standard Go libraries.
 * - internal/domain: Gateway decision model.
 */

package app

import (
	"context"
	"log"
	"strings"

	"github.com/will383842/Outil-sos-expat-sub004/internal/domain"
)

// redirectOnlyCountries are countries the card processor does not serve; they
// are routed to the redirect channel without a remote call.
var redirectOnlyCountries = map[string]bool{
	"BD": true,
	"BO": true,
	"CD": true,
	"CU": true,
	"HT": true,
	"IR": true,
	"KP": true,
	"LY": true,
	"SD": true,
	"SY": true,
	"VE": true,
	"YE": true,
}

// DecisionCache is the injected cache abstraction for gateway decisions.
type DecisionCache interface {
	Get(ctx context.Context, countryCode string) (*domain.GatewayDecision, bool)
	Set(ctx context.Context, countryCode string, decision domain.GatewayDecision)
	Evict(ctx context.Context, countryCode string)
}

// GatewayRecommender is the remote "recommend gateway" endpoint.
type GatewayRecommender interface {
	RecommendGateway(ctx context.Context, countryCode string) (*domain.GatewayDecision, error)
}

// GatewayRouter routes a provider country to a payment channel.
type GatewayRouter struct {
	cache       DecisionCache
	recommender GatewayRecommender
}

// NewGatewayRouter creates a router over the given cache and recommender.
func NewGatewayRouter(cache DecisionCache, recommender GatewayRecommender) *GatewayRouter {
	return &GatewayRouter{cache: cache, recommender: recommender}
}

// Decide returns the channel decision for a country code. It never fails: a
// remote error degrades to the card channel with a soft warning.
func (g *GatewayRouter) Decide(ctx context.Context, countryCode string) domain.GatewayDecision {
	code := strings.ToUpper(strings.TrimSpace(countryCode))

	if decision, ok := g.cache.Get(ctx, code); ok {
		return *decision
	}

	if redirectOnlyCountries[code] {
		decision := domain.GatewayDecision{
			CountryCode:      code,
			Channel:          domain.ChannelRedirect,
			ChannelExclusive: true,
		}
		g.cache.Set(ctx, code, decision)
		return decision
	}

	remote, err := g.recommender.RecommendGateway(ctx, code)
	if err != nil || remote == nil || !validChannel(remote) {
		log.Printf("level=warn component=gateway msg=\"remote recommendation unavailable; defaulting to card\" country=%s err=%v", code, err)
		return domain.GatewayDecision{CountryCode: code, Channel: domain.ChannelCard}
	}

	decision := *remote
	decision.CountryCode = code
	g.cache.Set(ctx, code, decision)
	return decision
}

// Refresh evicts the cached entry for a country and re-runs resolution.
func (g *GatewayRouter) Refresh(ctx context.Context, countryCode string) domain.GatewayDecision {
	code := strings.ToUpper(strings.TrimSpace(countryCode))
	g.cache.Evict(ctx, code)
	return g.Decide(ctx, code)
}

func validChannel(d *domain.GatewayDecision) bool {
	return d.Channel == domain.ChannelCard || d.Channel == domain.ChannelRedirect
}
