package proving

import (
	"context"
	"slices"
	"sort"

	"github.com/spacemeshos/vdf/group"
)

type Checkpoint struct {
	Iteration uint64
	Element   group.Element
}

// Checkpoints is an ascending list of x^(2^i) for the requested iterations i.
type Checkpoints []Checkpoint

// At returns the element recorded for iteration i.
func (c Checkpoints) At(i uint64) (group.Element, bool) {
	idx := sort.Search(len(c), func(j int) bool { return c[j].Iteration >= i })
	if idx == len(c) || c[idx].Iteration != i {
		return nil, false
	}
	return c[idx].Element, true
}

// IterateSquarings squares x forward once, recording the element at each
// requested iteration count. counts may be unordered and contain duplicates.
func IterateSquarings(ctx context.Context, g group.Group, x group.Element, counts []uint64) (Checkpoints, error) {
	sorted := slices.Clone(counts)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	res := make(Checkpoints, 0, len(sorted))
	cur := x
	var done uint64
	for _, count := range sorted {
		var err error
		cur, err = g.RepeatedSquare(ctx, cur, count-done)
		if err != nil {
			return nil, err
		}
		done = count
		res = append(res, Checkpoint{Iteration: count, Element: cur})
	}
	return res, nil
}

// checkpointCounts are the iterations the optimized prover needs: every
// multiple of the checkpoint interval below t, and t itself.
func checkpointCounts(t uint64, params Params) []uint64 {
	interval := params.CheckpointInterval()
	counts := make([]uint64, 0, params.NumCheckpoints(t)+1)
	for i := uint64(0); i < t; i += interval {
		counts = append(counts, i)
	}
	return append(counts, t)
}
