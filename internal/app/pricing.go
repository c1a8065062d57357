/**
 * @description
 * PricingResolver computes the final chargeable amount for a checkout attempt
 * from the admin base table, an optional per-provider override, and an
 * optional promo code, emitting an audit trace naming the source of the
 * effective entry and the discount applied.
 *
 * Resolution order: provider override, then the admin table, then a built-in
 * fallback table so checkout keeps working when the admin table is
 * unreachable. Discounted totals are rounded to the nearest whole currency
 * unit, half away from zero, and the result must land inside the configured
 * bounds before any network call is made.
 *
 * @dependencies
 * - context, errors, log: Standard Go libraries.
 * - internal/domain, internal/store: Domain models and pricing lookups.
 */

package app

import (
	"context"
	"errors"
	"log"

	"github.com/will383842/Outil-sos-expat-sub004/internal/domain"
	"github.com/will383842/Outil-sos-expat-sub004/internal/store"
)

// fallbackPricing is the built-in last-resort table, used when neither an
// override nor an admin entry can be found.
var fallbackPricing = map[domain.ServiceKind]map[string]domain.PricingEntry{
	domain.ServiceKindLawyerCall: {
		domain.CurrencyEUR: {TotalCents: 4900, ConnectionFeeCents: 1900, ProviderCents: 3000, DurationMinutes: 20, Currency: domain.CurrencyEUR},
		domain.CurrencyUSD: {TotalCents: 4900, ConnectionFeeCents: 1900, ProviderCents: 3000, DurationMinutes: 20, Currency: domain.CurrencyUSD},
	},
	domain.ServiceKindExpatCall: {
		domain.CurrencyEUR: {TotalCents: 1900, ConnectionFeeCents: 900, ProviderCents: 1000, DurationMinutes: 30, Currency: domain.CurrencyEUR},
		domain.CurrencyUSD: {TotalCents: 1900, ConnectionFeeCents: 900, ProviderCents: 1000, DurationMinutes: 30, Currency: domain.CurrencyUSD},
	},
}

// PricingResolver resolves final amounts and their audit trail.
type PricingResolver struct {
	repo     store.Repository
	minCents int64
	maxCents int64
}

// NewPricingResolver creates a resolver enforcing the given amount bounds.
func NewPricingResolver(repo store.Repository, minCents, maxCents int64) *PricingResolver {
	return &PricingResolver{repo: repo, minCents: minCents, maxCents: maxCents}
}

// ResolveInput identifies what is being priced.
type ResolveInput struct {
	ServiceKind domain.ServiceKind
	Currency    string
	ProviderID  string
	PromoCode   string
}

// Resolve computes the final pricing entry and its trace. It returns a
// *PricingBoundsError when the final total falls outside the configured
// bounds; no network call has been made at that point.
func (p *PricingResolver) Resolve(ctx context.Context, in ResolveInput) (*domain.PricingResolution, error) {
	if !in.ServiceKind.IsValid() {
		return nil, &ValidationError{Reason: "unknown service kind " + string(in.ServiceKind)}
	}
	if !domain.IsSupportedCurrency(in.Currency) {
		return nil, &ValidationError{Reason: "unsupported currency " + in.Currency}
	}

	effective, source, override, err := p.effectiveEntry(ctx, in)
	if err != nil {
		return nil, err
	}

	resolution := &domain.PricingResolution{
		Entry:  effective,
		Source: source,
	}

	promo := p.lookupPromo(ctx, in.PromoCode)
	if promo != nil && promo.EligibleFor(in.ServiceKind) && promoMayStack(promo, override) {
		discount := discountCents(promo, effective.TotalCents)
		if discount > 0 {
			finalTotal := domain.RoundToWholeUnit(effective.TotalCents - discount)
			if finalTotal < 0 {
				finalTotal = 0
			}
			reduction := effective.TotalCents - finalTotal
			finalProvider := effective.ProviderCents - reduction
			if finalProvider < 0 {
				finalProvider = 0
			}
			resolution.Entry.TotalCents = finalTotal
			resolution.Entry.ProviderCents = finalProvider
			resolution.Entry.ConnectionFeeCents = finalTotal - finalProvider
			resolution.DiscountApplied = true
			resolution.DiscountCents = reduction
			resolution.PromoCode = promo.Code
		}
	}

	if resolution.Entry.TotalCents < p.minCents || resolution.Entry.TotalCents > p.maxCents {
		return nil, &PricingBoundsError{
			AmountCents: resolution.Entry.TotalCents,
			MinCents:    p.minCents,
			MaxCents:    p.maxCents,
		}
	}

	return resolution, nil
}

// effectiveEntry picks the base entry: override, then admin table, then the
// built-in fallback.
func (p *PricingResolver) effectiveEntry(ctx context.Context, in ResolveInput) (domain.PricingEntry, domain.PricingSource, *domain.ProviderPricingOverride, error) {
	if in.ProviderID != "" {
		override, err := p.repo.GetProviderPricingOverride(ctx, in.ProviderID, in.ServiceKind, in.Currency)
		if err == nil {
			return override.Entry, domain.PricingSourceOverride, override, nil
		}
		if !errors.Is(err, store.ErrOverrideNotFound) {
			log.Printf("level=warn component=pricing msg=\"override lookup failed; continuing with admin table\" provider_id=%s err=%v", in.ProviderID, err)
		}
	}

	entry, err := p.repo.GetBasePricing(ctx, in.ServiceKind, in.Currency)
	if err == nil {
		return *entry, domain.PricingSourceAdmin, nil, nil
	}
	if !errors.Is(err, store.ErrPricingNotFound) {
		log.Printf("level=warn component=pricing msg=\"admin pricing lookup failed; using fallback table\" service_kind=%s currency=%s err=%v", in.ServiceKind, in.Currency, err)
	}

	if fallback, ok := fallbackPricing[in.ServiceKind][in.Currency]; ok {
		return fallback, domain.PricingSourceFallback, nil, nil
	}
	return domain.PricingEntry{}, "", nil, &ValidationError{Reason: "no pricing available for " + string(in.ServiceKind) + "/" + in.Currency}
}

// lookupPromo resolves the promo code, treating an unknown or unreadable code
// as no promo at all.
func (p *PricingResolver) lookupPromo(ctx context.Context, code string) *domain.PromoCode {
	if code == "" {
		return nil
	}
	promo, err := p.repo.GetPromoCode(ctx, code)
	if err != nil {
		if !errors.Is(err, store.ErrPromoNotFound) {
			log.Printf("level=warn component=pricing msg=\"promo lookup failed; ignoring code\" code=%s err=%v", code, err)
		}
		return nil
	}
	return promo
}

// promoMayStack applies the stacking rule: a promo applies when it is
// stackable, when there is no override, or when the override explicitly
// allows coupons on top.
func promoMayStack(promo *domain.PromoCode, override *domain.ProviderPricingOverride) bool {
	if promo.Stackable {
		return true
	}
	if override == nil {
		return true
	}
	return override.StackableWithCoupons
}

func discountCents(promo *domain.PromoCode, totalCents int64) int64 {
	switch promo.DiscountType {
	case domain.DiscountPercentage:
		return totalCents * promo.DiscountValue / 100
	case domain.DiscountFixed:
		if promo.DiscountValue > totalCents {
			return totalCents
		}
		return promo.DiscountValue
	default:
		return 0
	}
}
