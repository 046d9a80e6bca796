package bot

import (
	"math/rand"
	"sync"
)

// plannerRng seeds per-planner sources when a match has no explicit seed.
// When nil, seeds come from the global math/rand source.
var (
	plannerRngMu sync.Mutex
	plannerRng   *rand.Rand
)

// SeedPlannerRng makes unseeded matches reproducible.
func SeedPlannerRng(seed int64) {
	plannerRngMu.Lock()
	defer plannerRngMu.Unlock()
	plannerRng = rand.New(rand.NewSource(seed))
}

// ResetPlannerRng reverts to the non-deterministic global source.
func ResetPlannerRng() {
	plannerRngMu.Lock()
	defer plannerRngMu.Unlock()
	plannerRng = nil
}

func randomSeed() int64 {
	plannerRngMu.Lock()
	defer plannerRngMu.Unlock()
	if plannerRng != nil {
		return plannerRng.Int63()
	}
	return rand.Int63()
}

// newRand returns a source for seed, or a freshly seeded one when seed is 0.
func newRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = randomSeed()
	}
	return rand.New(rand.NewSource(seed))
}
