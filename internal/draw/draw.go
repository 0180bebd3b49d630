// Package draw implements the weighted reward draw used when a case is opened.
package draw

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	mrand "math/rand/v2"
	"sync"

	"github.com/atinyakov/HorosCase/internal/models"
)

// TotalWeight is the sum every valid tier table must reach.
const TotalWeight = 100.0

const weightEpsilon = 1e-9

var (
	ErrTierCount     = errors.New("case must declare 3 or 4 reward tiers")
	ErrWeightSum     = errors.New("reward tier weights must sum to 100")
	ErrInvalidWeight = errors.New("reward tier weight must be positive")
	ErrDuplicateTier = errors.New("duplicate reward tier name")
	ErrNegativeValue = errors.New("reward tier value must not be negative")
)

// Source yields uniform values in [0, 1).
type Source interface {
	Float64() float64
}

// Draw picks one tier. It draws u in [0, 100), walks the tiers in declared
// order accumulating weights, and returns the first tier whose cumulative
// weight reaches u. If rounding leaves u unmatched the first tier is returned.
// An empty table yields index -1.
func Draw(tiers []models.RewardTier, src Source) (int, models.RewardTier) {
	if len(tiers) == 0 {
		return -1, models.RewardTier{}
	}

	u := src.Float64() * TotalWeight
	var cumulative float64
	for i, t := range tiers {
		cumulative += t.Weight
		if cumulative >= u {
			return i, t
		}
	}
	return 0, tiers[0]
}

// Validate checks that a tier table can be drawn from.
func Validate(tiers []models.RewardTier) error {
	if len(tiers) < 3 || len(tiers) > 4 {
		return fmt.Errorf("%w: got %d", ErrTierCount, len(tiers))
	}

	seen := make(map[string]struct{}, len(tiers))
	var sum float64
	for _, t := range tiers {
		if !(t.Weight > 0) || math.IsInf(t.Weight, 0) {
			return fmt.Errorf("%w: %q has %v", ErrInvalidWeight, t.Name, t.Weight)
		}
		if t.Value < 0 {
			return fmt.Errorf("%w: %q", ErrNegativeValue, t.Name)
		}
		if _, ok := seen[t.Name]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicateTier, t.Name)
		}
		seen[t.Name] = struct{}{}
		sum += t.Weight
	}
	if math.Abs(sum-TotalWeight) > weightEpsilon {
		return fmt.Errorf("%w: got %v", ErrWeightSum, sum)
	}
	return nil
}

// NewSource returns a ChaCha8 generator seeded from the operating system.
func NewSource() *mrand.Rand {
	var seed [32]byte
	if _, err := rand.Read(seed[:]); err != nil {
		// crypto/rand.Read does not fail on supported platforms.
		panic(fmt.Sprintf("draw: read seed: %v", err))
	}
	return mrand.New(mrand.NewChaCha8(seed))
}

// NewSeededSource returns a deterministic generator for tests and replays.
func NewSeededSource(seed uint64) *mrand.Rand {
	var s [32]byte
	binary.LittleEndian.PutUint64(s[:8], seed)
	return mrand.New(mrand.NewChaCha8(s))
}

// LockedSource makes a Source safe for concurrent use.
type LockedSource struct {
	mu  sync.Mutex
	src Source
}

// NewLockedSource wraps src.
func NewLockedSource(src Source) *LockedSource {
	return &LockedSource{src: src}
}

// Float64 implements Source.
func (l *LockedSource) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.Float64()
}
