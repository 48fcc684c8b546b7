// Package budget derives the Orchestrator's fan-out bounds and the
// ArtifactCache's hot-tier size from a single token/worker budget, by the
// same proportional-allocation shape a memory-constrained pipeline would
// use to size workers and caches from a memory budget — repurposed here to
// a token/worker budget (§4.10, §11).
package budget

import (
	"errors"
	"runtime"
)

// Allocation proportions for budget distribution, mirroring the
// cache/worker/buffer split of a native-memory solver.
const (
	cacheAllocationPercent  = 60
	workerAllocationPercent = 30
	bufferAllocationPercent = 10
	slackPercent            = 5
	percentDivisor          = 100

	// tier1WorkerMultiplier and maxTier1Workers cap Tier-1 fan-out at
	// min(8, CPUs*2), matching §4.10's default — workers here are
	// lightweight goroutines awaiting network I/O, not native processes, so
	// the ratio is expressed as a multiplier rather than a sub-1.0 fraction.
	tier1WorkerMultiplier = 2
	maxTier1Workers       = 8

	defaultTier2Workers = 4
	defaultTier3Workers = 1

	// avgCacheEntrySize approximates one CacheEntry's on-disk/in-memory
	// footprint (payload + bookkeeping) for converting a byte allocation
	// into a hot-tier entry count.
	avgCacheEntrySize = 8 * 1024

	minHotEntries = 128
	maxHotEntries = 1_000_000
)

// MinimumBudget is the smallest token/worker budget the solver accepts.
const MinimumBudget = 1 << 20 // 1Mi budget units

// ErrBudgetTooSmall indicates the budget is below MinimumBudget.
var ErrBudgetTooSmall = errors.New("budget: value is too small")

// Knobs are the derived Orchestrator/ArtifactCache sizing parameters.
type Knobs struct {
	Tier1Workers int // fan-out bound C1
	Tier2Workers int // fan-out bound C2
	Tier3Workers int // fan-out bound C3 (serial by default)
	HotEntries   int // ArtifactCache in-memory hot-tier capacity
}

// SolveForBudget distributes budget across the orchestrator's worker pools
// and the cache's hot tier.
func SolveForBudget(budget int64) (Knobs, error) {
	if budget < MinimumBudget {
		return Knobs{}, ErrBudgetTooSmall
	}

	usable := budget * (percentDivisor - slackPercent) / percentDivisor

	cacheAlloc := usable * cacheAllocationPercent / percentDivisor
	workerAlloc := usable * workerAllocationPercent / percentDivisor

	return deriveKnobs(cacheAlloc, workerAlloc), nil
}

// deriveKnobs calculates individual knobs from allocation budgets.
func deriveKnobs(cacheAlloc, workerAlloc int64) Knobs {
	maxWorkers := min(maxTier1Workers, runtime.NumCPU()*tier1WorkerMultiplier)

	tier1 := max(1, min(maxWorkers, int(workerAlloc/avgCacheEntrySize)))

	hotEntries := max(minHotEntries, int(cacheAlloc/avgCacheEntrySize))
	hotEntries = min(hotEntries, maxHotEntries)

	return Knobs{
		Tier1Workers: tier1,
		Tier2Workers: defaultTier2Workers,
		Tier3Workers: defaultTier3Workers,
		HotEntries:   hotEntries,
	}
}
