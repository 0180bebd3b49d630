package draw

import (
	"sync"
	"testing"

	"github.com/atinyakov/HorosCase/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedSource float64

func (f fixedSource) Float64() float64 { return float64(f) }

func standardTiers() []models.RewardTier {
	return []models.RewardTier{
		{Name: "common", Weight: 60, Value: 100},
		{Name: "rare", Weight: 25, Value: 500},
		{Name: "epic", Weight: 10, Value: 2000},
		{Name: "legendary", Weight: 5, Value: 10000},
	}
}

func TestDraw_Boundaries(t *testing.T) {
	tiers := standardTiers()

	tests := []struct {
		name string
		u    float64
		want int
	}{
		{"zero", 0, 0},
		{"inside common", 0.3, 0},
		{"common upper edge inclusive", 0.60, 0},
		{"just past common", 0.6000001, 1},
		{"rare upper edge", 0.85, 1},
		{"epic", 0.90, 2},
		{"legendary", 0.96, 3},
		{"top of range", 0.9999999999, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, tier := Draw(tiers, fixedSource(tt.u))
			assert.Equal(t, tt.want, idx)
			assert.Equal(t, tiers[tt.want], tier)
		})
	}
}

func TestDraw_FallsBackToFirstTier(t *testing.T) {
	tiers := []models.RewardTier{
		{Name: "a", Weight: 33.3},
		{Name: "b", Weight: 33.3},
		{Name: "c", Weight: 33.3},
	}
	idx, tier := Draw(tiers, fixedSource(0.9995))
	assert.Equal(t, 0, idx)
	assert.Equal(t, "a", tier.Name)
}

func TestDraw_Empty(t *testing.T) {
	idx, tier := Draw(nil, fixedSource(0.5))
	assert.Equal(t, -1, idx)
	assert.Equal(t, models.RewardTier{}, tier)
}

func TestDraw_NeverOutsideDeclaredSet(t *testing.T) {
	tiers := standardTiers()
	names := map[string]bool{}
	for _, tr := range tiers {
		names[tr.Name] = true
	}

	src := NewSeededSource(7)
	for i := 0; i < 50_000; i++ {
		idx, tier := Draw(tiers, src)
		require.GreaterOrEqual(t, idx, 0)
		require.Less(t, idx, len(tiers))
		require.True(t, names[tier.Name], "unexpected tier %q", tier.Name)
	}
}

func TestDraw_FrequenciesConverge(t *testing.T) {
	cases := map[string][]models.RewardTier{
		"standard": standardTiers(),
		"three tiers": {
			{Name: "common", Weight: 70},
			{Name: "rare", Weight: 20},
			{Name: "epic", Weight: 10},
		},
		"fractional": {
			{Name: "common", Weight: 79.5},
			{Name: "rare", Weight: 15},
			{Name: "epic", Weight: 5},
			{Name: "legendary", Weight: 0.5},
		},
	}

	const n = 200_000
	for name, tiers := range cases {
		t.Run(name, func(t *testing.T) {
			src := NewSeededSource(42)
			observed := make([]int64, len(tiers))
			for i := 0; i < n; i++ {
				idx, _ := Draw(tiers, src)
				observed[idx]++
			}

			rep, err := GoodnessOfFit(tiers, observed)
			require.NoError(t, err)
			assert.Greater(t, rep.PValue, 0.001, "chi-square %v", rep.ChiSquare)

			for i, tr := range tiers {
				freq := float64(observed[i]) / n
				assert.InDelta(t, tr.Weight/TotalWeight, freq, 0.005, tr.Name)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		tiers   []models.RewardTier
		wantErr error
	}{
		{"valid four", standardTiers(), nil},
		{"valid three", []models.RewardTier{{Name: "a", Weight: 50}, {Name: "b", Weight: 30}, {Name: "c", Weight: 20}}, nil},
		{"too few", []models.RewardTier{{Name: "a", Weight: 50}, {Name: "b", Weight: 50}}, ErrTierCount},
		{"too many", []models.RewardTier{{Name: "a", Weight: 20}, {Name: "b", Weight: 20}, {Name: "c", Weight: 20}, {Name: "d", Weight: 20}, {Name: "e", Weight: 20}}, ErrTierCount},
		{"sum below", []models.RewardTier{{Name: "a", Weight: 50}, {Name: "b", Weight: 30}, {Name: "c", Weight: 10}}, ErrWeightSum},
		{"zero weight", []models.RewardTier{{Name: "a", Weight: 100}, {Name: "b", Weight: 0}, {Name: "c", Weight: 0}}, ErrInvalidWeight},
		{"negative weight", []models.RewardTier{{Name: "a", Weight: 110}, {Name: "b", Weight: -5}, {Name: "c", Weight: -5}}, ErrInvalidWeight},
		{"duplicate", []models.RewardTier{{Name: "a", Weight: 50}, {Name: "a", Weight: 30}, {Name: "c", Weight: 20}}, ErrDuplicateTier},
		{"negative value", []models.RewardTier{{Name: "a", Weight: 50, Value: -1}, {Name: "b", Weight: 30}, {Name: "c", Weight: 20}}, ErrNegativeValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.tiers)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSeededSource_Deterministic(t *testing.T) {
	a, b := NewSeededSource(99), NewSeededSource(99)
	for i := 0; i < 100; i++ {
		require.Equal(t, a.Float64(), b.Float64())
	}
}

func TestLockedSource_Concurrent(t *testing.T) {
	src := NewLockedSource(NewSource())
	tiers := standardTiers()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				u := src.Float64()
				if u < 0 || u >= 1 {
					t.Errorf("out of range: %v", u)
					return
				}
				Draw(tiers, src)
			}
		}()
	}
	wg.Wait()
}

func TestGoodnessOfFit(t *testing.T) {
	tiers := standardTiers()

	t.Run("perfect fit", func(t *testing.T) {
		rep, err := GoodnessOfFit(tiers, []int64{600, 250, 100, 50})
		require.NoError(t, err)
		assert.Equal(t, int64(1000), rep.Draws)
		assert.Equal(t, 3, rep.DegreesOfFreedom)
		assert.InDelta(t, 0, rep.ChiSquare, 1e-12)
		assert.InDelta(t, 1, rep.PValue, 1e-9)
		assert.InDelta(t, 600, rep.Tiers[0].Expected, 1e-9)
	})

	t.Run("rigged", func(t *testing.T) {
		rep, err := GoodnessOfFit(tiers, []int64{1000, 0, 0, 0})
		require.NoError(t, err)
		assert.Greater(t, rep.ChiSquare, 100.0)
		assert.Less(t, rep.PValue, 1e-6)
	})

	t.Run("no draws", func(t *testing.T) {
		rep, err := GoodnessOfFit(tiers, []int64{0, 0, 0, 0})
		require.NoError(t, err)
		assert.Equal(t, 1.0, rep.PValue)
	})

	t.Run("mismatch", func(t *testing.T) {
		_, err := GoodnessOfFit(tiers, []int64{1, 2})
		assert.ErrorIs(t, err, ErrCountMismatch)
	})
}
