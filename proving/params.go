package proving

import (
	"math"
)

// maxBlockBits caps K so the block table of the optimized prover stays at most 2^20 entries.
const maxBlockBits = 20

// Params is the time/memory tradeoff of the optimized Wesolowski prover.
type Params struct {
	// L is the number of k-bit blocks between checkpoints: a checkpoint is kept every K·L squarings.
	L uint64
	// K is the number of exponent bits processed per block.
	K uint
	// W is the estimated number of squarings saved per group operation.
	// The vdfcli params table reports it; the prover does not read it.
	W uint64
}

// CheckpointInterval is the number of squarings between two retained checkpoints.
func (p Params) CheckpointInterval() uint64 {
	return uint64(p.K) * p.L
}

// NumCheckpoints is how many checkpoints a proof for t iterations keeps, not counting the output.
func (p Params) NumCheckpoints(t uint64) uint64 {
	if t == 0 {
		return 0
	}
	interval := p.CheckpointInterval()
	return (t + interval - 1) / interval
}

// ApproximateParameters balances the prover's T/k + L·2^(k+1) group operations
// against keeping roughly 2^logMemory checkpoints. L grows once t exceeds the
// memory budget, and never decreases as t grows.
func ApproximateParameters(t uint64, logMemory float64) Params {
	ft := float64(t)

	l := 1.0
	if math.Log2(ft) > logMemory {
		l = math.Ceil(math.Pow(2, logMemory-20))
		if l < 1 {
			l = 1
		}
	}

	k := 1.0
	if intermediate := ft * math.Ln2 / (2 * l); intermediate > 1 {
		ln := math.Log(intermediate)
		k = math.Round(ln - math.Log(ln) + 0.25)
	}
	k = math.Max(1, math.Min(k, maxBlockBits))

	w := math.Floor(ft/(ft/k+l*math.Pow(2, k+1))) - 2
	if w < 0 || math.IsNaN(w) {
		w = 0
	}

	return Params{L: uint64(l), K: uint(k), W: uint64(w)}
}
