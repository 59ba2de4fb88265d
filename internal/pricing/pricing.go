// Package pricing computes session-package totals from the session count and
// a counselor's per-session price.
package pricing

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	// MinSessions and MaxSessions bound the number of sessions in one package.
	MinSessions = 1
	MaxSessions = 200

	bpsScale = 10000
)

// ErrSessionCountOutOfRange is returned for counts outside [MinSessions, MaxSessions].
var (
	ErrSessionCountOutOfRange = errors.New("pricing: session count out of range")
	ErrInvalidUnitPrice       = errors.New("pricing: unit price must not be negative")
)

// Tier is a discount band of the package table.
type Tier struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	Milestone   string `json:"milestone"`
	DiscountBps int64  `json:"discount_bps"`
	MinSessions int    `json:"min_sessions"`
}

var (
	TierFirstContact = Tier{Key: "first_contact", Label: "First Contact", Milestone: "Begin an initial exploration", DiscountBps: 0, MinSessions: 1}
	TierCustom       = Tier{Key: "custom", Label: "Custom", Milestone: "Flexible at your own pace", DiscountBps: 0, MinSessions: 2}
	TierFocus        = Tier{Key: "focus", Label: "Focus", Milestone: "Rapid work on a specific concern", DiscountBps: 500, MinSessions: 10}
	TierShortTerm    = Tier{Key: "short_term", Label: "Short-term", Milestone: "Symptom relief and behavior change", DiscountBps: 1000, MinSessions: 20}
	TierMediumTerm   = Tier{Key: "medium_term", Label: "Medium-term", Milestone: "Emotional patterns and early integration", DiscountBps: 1500, MinSessions: 40}
	TierLongTerm     = Tier{Key: "long_term", Label: "Long-term", Milestone: "Self-reconstruction and unconscious exploration", DiscountBps: 2000, MinSessions: 100}
)

// tiers is ordered by MinSessions descending so the first match wins.
var tiers = []Tier{TierLongTerm, TierMediumTerm, TierShortTerm, TierFocus, TierCustom, TierFirstContact}

// TierFor returns the tier a session count falls into.
func TierFor(sessionCount int) (Tier, error) {
	if err := ValidateCount(sessionCount); err != nil {
		return Tier{}, err
	}
	for _, t := range tiers {
		if sessionCount >= t.MinSessions {
			return t, nil
		}
	}
	return TierFirstContact, nil
}

// ValidateCount rejects session counts outside the accepted range.
func ValidateCount(sessionCount int) error {
	if sessionCount < MinSessions || sessionCount > MaxSessions {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrSessionCountOutOfRange, sessionCount, MinSessions, MaxSessions)
	}
	return nil
}

// Quote is the priced result for one package. Money is in cents.
type Quote struct {
	SessionCount   int   `json:"session_count"`
	UnitPriceCents int64 `json:"unit_price_cents"`
	Tier           Tier  `json:"tier"`
	OriginalCents  int64 `json:"original_total_cents"`

	// finalScaled is the exact final total in cents multiplied by bpsScale.
	finalScaled int64
}

// Compute prices sessionCount sessions at unitPriceCents each.
func Compute(sessionCount int, unitPriceCents int64) (Quote, error) {
	tier, err := TierFor(sessionCount)
	if err != nil {
		return Quote{}, err
	}
	if unitPriceCents < 0 {
		return Quote{}, fmt.Errorf("%w: %d", ErrInvalidUnitPrice, unitPriceCents)
	}
	original := unitPriceCents * int64(sessionCount)
	return Quote{
		SessionCount:   sessionCount,
		UnitPriceCents: unitPriceCents,
		Tier:           tier,
		OriginalCents:  original,
		finalScaled:    original * (bpsScale - tier.DiscountBps),
	}, nil
}

// DiscountRate returns the discount as a fraction, e.g. 0.1 for 10%.
func (q Quote) DiscountRate() float64 {
	return float64(q.Tier.DiscountBps) / bpsScale
}

// FinalTotalCents returns the discounted total rounded half-up to a whole cent.
func (q Quote) FinalTotalCents() int64 {
	return (q.finalScaled + bpsScale/2) / bpsScale
}

// FinalTotalExact returns the discounted total as a numerator over bpsScale
// cents, with no rounding applied.
func (q Quote) FinalTotalExact() (numerator int64, denominator int64) {
	return q.finalScaled, bpsScale
}

// SavingsCents is the rounded difference between original and final totals.
func (q Quote) SavingsCents() int64 {
	return q.OriginalCents - q.FinalTotalCents()
}

// Package is one of the preset package cards offered next to the free-form count.
type Package struct {
	Count       int    `json:"count"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Kind        string `json:"kind"`
}

// Packages lists the preset package cards.
func Packages() []Package {
	return []Package{
		{Count: 1, Label: "Single Session", Description: "Build safety and clarify initial goals", Kind: "short"},
		{Count: 10, Label: "Focus", Description: "Focused work on a specific concern", Kind: "short"},
		{Count: 20, Label: "Short-term", Description: "Explore behavior patterns and ease core symptoms", Kind: "medium"},
		{Count: 40, Label: "Medium-term", Description: "Deep emotional integration", Kind: "long"},
		{Count: 100, Label: "Long-term", Description: "Deep exploration and transformation of the core self", Kind: "custom"},
	}
}

type quoteJSON struct {
	SessionCount    int     `json:"session_count"`
	UnitPriceCents  int64   `json:"unit_price_cents"`
	Tier            Tier    `json:"tier"`
	DiscountRate    float64 `json:"discount_rate"`
	OriginalCents   int64   `json:"original_total_cents"`
	FinalTotalCents int64   `json:"final_total_cents"`
	SavingsCents    int64   `json:"savings_cents"`
}

// MarshalJSON includes the derived totals alongside the stored fields.
func (q Quote) MarshalJSON() ([]byte, error) {
	return json.Marshal(quoteJSON{
		SessionCount:    q.SessionCount,
		UnitPriceCents:  q.UnitPriceCents,
		Tier:            q.Tier,
		DiscountRate:    q.DiscountRate(),
		OriginalCents:   q.OriginalCents,
		FinalTotalCents: q.FinalTotalCents(),
		SavingsCents:    q.SavingsCents(),
	})
}
