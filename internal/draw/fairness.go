package draw

import (
	"errors"

	"github.com/atinyakov/HorosCase/internal/models"
	"gonum.org/v1/gonum/stat/distuv"
)

// ErrCountMismatch is returned when observed counts do not line up with the tiers.
var ErrCountMismatch = errors.New("observed counts do not match tier table")

// GoodnessOfFit runs Pearson's chi-square test of observed draw counts
// against the declared weights. observed[i] is the count for tiers[i].
// With no draws the statistic is 0 and the p-value 1.
func GoodnessOfFit(tiers []models.RewardTier, observed []int64) (models.FairnessReport, error) {
	if len(tiers) != len(observed) || len(tiers) < 2 {
		return models.FairnessReport{}, ErrCountMismatch
	}

	var n int64
	for _, o := range observed {
		n += o
	}

	rep := models.FairnessReport{
		Draws:            n,
		Tiers:            make([]models.TierFairness, len(tiers)),
		DegreesOfFreedom: len(tiers) - 1,
		PValue:           1,
	}

	var chi float64
	for i, t := range tiers {
		expected := float64(n) * t.Weight / TotalWeight
		rep.Tiers[i] = models.TierFairness{
			Name:     t.Name,
			Weight:   t.Weight,
			Expected: expected,
			Observed: observed[i],
		}
		if expected > 0 {
			d := float64(observed[i]) - expected
			chi += d * d / expected
		}
	}
	if n == 0 {
		return rep, nil
	}

	rep.ChiSquare = chi
	rep.PValue = distuv.ChiSquared{K: float64(rep.DegreesOfFreedom)}.Survival(chi)
	return rep, nil
}
