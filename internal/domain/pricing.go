/**
 * @description
 * This file defines the pricing domain models for the checkout-service: the
 * service kinds that can be booked, the pricing entry that describes how a
 * chargeable amount is split between the provider and the platform connection
 * fee, promo codes, and the resolution trace that records where a final price
 * came from.
 *
 * All monetary values are int64 minor units (cents). The public API converts
 * to and from decimal major units at the boundary.
 *
 * @dependencies
 * - math: Standard Go library, for rounding.
 */

package domain

import "math"

// ServiceKind identifies the type of consultation being booked.
type ServiceKind string

const (
	ServiceKindLawyerCall ServiceKind = "lawyer_call"
	ServiceKindExpatCall  ServiceKind = "expat_call"
)

// IsValid reports whether the service kind is one the platform sells.
func (k ServiceKind) IsValid() bool {
	return k == ServiceKindLawyerCall || k == ServiceKindExpatCall
}

// Supported currency codes, lower-case three-letter.
const (
	CurrencyEUR = "eur"
	CurrencyUSD = "usd"
)

// IsSupportedCurrency reports whether the currency code is one of the two
// currencies the platform charges in.
func IsSupportedCurrency(currency string) bool {
	return currency == CurrencyEUR || currency == CurrencyUSD
}

// PricingEntry describes a chargeable amount and its split. The invariant
// TotalCents = ConnectionFeeCents + ProviderCents holds within rounding.
type PricingEntry struct {
	TotalCents         int64  `json:"total_cents"`
	ConnectionFeeCents int64  `json:"connection_fee_cents"`
	ProviderCents      int64  `json:"provider_cents"`
	DurationMinutes    int    `json:"duration_minutes"`
	Currency           string `json:"currency"`
}

// ProviderPricingOverride is a per-provider replacement for the admin base
// entry. StackableWithCoupons allows a non-stackable promo code to apply on
// top of the override anyway.
type ProviderPricingOverride struct {
	ProviderID           string       `json:"provider_id"`
	ServiceKind          ServiceKind  `json:"service_kind"`
	Entry                PricingEntry `json:"entry"`
	StackableWithCoupons bool         `json:"stackable_with_coupons"`
}

// DiscountType is how a promo code's value is interpreted.
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// PromoCode is read once per checkout attempt and never mutated by the
// orchestrator. DiscountValue is a percentage for DiscountPercentage and a
// minor-unit amount for DiscountFixed.
type PromoCode struct {
	Code                 string        `json:"code"`
	DiscountType         DiscountType  `json:"discount_type"`
	DiscountValue        int64         `json:"discount_value"`
	EligibleServiceKinds []ServiceKind `json:"eligible_service_kinds"`
	Stackable            bool          `json:"stackable"`
}

// EligibleFor reports whether the promo code may apply to a service kind.
func (p PromoCode) EligibleFor(kind ServiceKind) bool {
	for _, k := range p.EligibleServiceKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// PricingSource records where the effective base entry came from.
type PricingSource string

const (
	PricingSourceAdmin    PricingSource = "admin"
	PricingSourceOverride PricingSource = "override"
	PricingSourceFallback PricingSource = "fallback"
)

// PricingResolution is the audit trace emitted alongside a resolved price.
// It is used for display and audit only, never for control flow.
type PricingResolution struct {
	Entry           PricingEntry  `json:"entry"`
	Source          PricingSource `json:"source"`
	DiscountApplied bool          `json:"discount_applied"`
	DiscountCents   int64         `json:"discount_cents"`
	PromoCode       string        `json:"promo_code,omitempty"`
}

// RoundToWholeUnit rounds a minor-unit amount to the nearest whole currency
// unit (100 cents), half away from zero. Discounted totals are always
// presented in whole units.
func RoundToWholeUnit(cents int64) int64 {
	return int64(math.Round(float64(cents)/100.0)) * 100
}
