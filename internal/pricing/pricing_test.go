package pricing

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTierBoundaries(t *testing.T) {
	cases := []struct {
		count int
		tier  Tier
		rate  float64
	}{
		{1, TierFirstContact, 0},
		{2, TierCustom, 0},
		{9, TierCustom, 0},
		{10, TierFocus, 0.05},
		{19, TierFocus, 0.05},
		{20, TierShortTerm, 0.10},
		{39, TierShortTerm, 0.10},
		{40, TierMediumTerm, 0.15},
		{99, TierMediumTerm, 0.15},
		{100, TierLongTerm, 0.20},
		{200, TierLongTerm, 0.20},
	}
	for _, tc := range cases {
		q, err := Compute(tc.count, 60000)
		require.NoError(t, err, "count %d", tc.count)
		assert.Equal(t, tc.tier.Key, q.Tier.Key, "count %d", tc.count)
		assert.InDelta(t, tc.rate, q.DiscountRate(), 1e-9, "count %d", tc.count)
	}
}

func TestComputeShortTermScenario(t *testing.T) {
	q, err := Compute(20, 60000)
	require.NoError(t, err)
	assert.Equal(t, 0.10, q.DiscountRate())
	assert.Equal(t, int64(1200000), q.OriginalCents)
	assert.Equal(t, int64(1080000), q.FinalTotalCents())
	assert.Equal(t, int64(120000), q.SavingsCents())
}

func TestComputeFirstContact(t *testing.T) {
	q, err := Compute(1, 60000)
	require.NoError(t, err)
	assert.Equal(t, "First Contact", q.Tier.Label)
	assert.Zero(t, q.DiscountRate())
	assert.Equal(t, q.OriginalCents, q.FinalTotalCents())
}

func TestComputeRejectsOutOfRange(t *testing.T) {
	for _, n := range []int{-1, 0, 201, 1000} {
		_, err := Compute(n, 60000)
		if !errors.Is(err, ErrSessionCountOutOfRange) {
			t.Fatalf("count %d: expected ErrSessionCountOutOfRange, got %v", n, err)
		}
	}
}

func TestComputeRejectsNegativePrice(t *testing.T) {
	_, err := Compute(1, -1)
	require.ErrorIs(t, err, ErrInvalidUnitPrice)
}

func TestFinalTotalExactKeepsFraction(t *testing.T) {
	q, err := Compute(10, 1)
	require.NoError(t, err)
	num, den := q.FinalTotalExact()
	assert.Equal(t, int64(10*9500), num)
	assert.Equal(t, int64(10000), den)
	assert.Equal(t, int64(10), q.FinalTotalCents())

	q, err = Compute(10, 3990)
	require.NoError(t, err)
	assert.Equal(t, int64(37905), q.FinalTotalCents())
}

func TestDiscountNonDecreasingAndTotalsMonotonicWithinTier(t *testing.T) {
	for _, price := range []int64{1, 3990, 60000, 80000} {
		prev, err := Compute(MinSessions, price)
		require.NoError(t, err)
		for n := MinSessions + 1; n <= MaxSessions; n++ {
			q, err := Compute(n, price)
			require.NoError(t, err)
			if q.DiscountRate() < prev.DiscountRate() {
				t.Fatalf("price %d: discount decreased at %d sessions", price, n)
			}
			if q.Tier.DiscountBps == prev.Tier.DiscountBps {
				pn, _ := prev.FinalTotalExact()
				qn, _ := q.FinalTotalExact()
				if qn < pn {
					t.Fatalf("price %d: final total decreased inside a tier at %d sessions", price, n)
				}
			}
			prev = q
		}
	}
}

func TestFinalTotalDropsAtTierBoundary(t *testing.T) {
	before, err := Compute(19, 60000)
	require.NoError(t, err)
	after, err := Compute(20, 60000)
	require.NoError(t, err)
	assert.Equal(t, int64(1083000), before.FinalTotalCents())
	assert.Equal(t, int64(1080000), after.FinalTotalCents())
}

func TestQuoteJSONIncludesTotals(t *testing.T) {
	q, err := Compute(40, 50000)
	require.NoError(t, err)
	raw, err := json.Marshal(q)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, float64(2000000), decoded["original_total_cents"])
	assert.Equal(t, float64(1700000), decoded["final_total_cents"])
	assert.Equal(t, 0.15, decoded["discount_rate"])
}

func TestPackagesMatchTiers(t *testing.T) {
	for _, p := range Packages() {
		_, err := TierFor(p.Count)
		require.NoError(t, err)
	}
	assert.Len(t, Packages(), 5)
}
