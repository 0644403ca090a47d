package proving

import (
	"context"
	"math/big"

	"github.com/spacemeshos/vdf/group"
	"github.com/spacemeshos/vdf/shared"
)

// checkInterval is how many prover iterations run between context checks.
const checkInterval = 1 << 10

// ProveLongDivision computes π = x^⌊2^t/l⌋ bit by bit: each iteration doubles
// the remainder r and, when 2r >= l, the next quotient bit is 1. It returns
// π and the final remainder r = 2^t mod l.
func ProveLongDivision(ctx context.Context, g group.Group, x group.Element, t uint64, l *big.Int) (group.Element, *big.Int, error) {
	r := big.NewInt(1)
	pi := g.Identity()
	for i := uint64(0); i < t; i++ {
		if i%checkInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
		}
		r.Lsh(r, 1)
		pi = g.Square(pi)
		if r.Cmp(l) >= 0 {
			r.Sub(r, l)
			pi = g.Mul(pi, x)
		}
	}
	return pi, r, nil
}

// ProveWithTrapdoor computes π = x^(⌊2^t/l⌋ mod φ(n)). With s = 2^t mod l·φ(n)
// and r = s mod l, the quotient is (s - r)/l modulo φ(n).
func ProveWithTrapdoor(g group.Group, x group.Element, t uint64, l *big.Int, td *shared.Trapdoor) (group.Element, error) {
	phi, err := totient(g, td)
	if err != nil {
		return nil, err
	}

	lphi := new(big.Int).Mul(l, phi)
	s := new(big.Int).Exp(bigTwo, new(big.Int).SetUint64(t), lphi)
	r := new(big.Int).Mod(s, l)
	q := s.Sub(s, r)
	q.Quo(q, l)
	return g.Pow(x, q), nil
}

// ProveOptimized computes π = x^⌊2^t/l⌋ from checkpoints x^(2^(i·K·L)), in
// about t/K + L·2^(K+1) group operations. The quotient is consumed in K-bit
// blocks; the blocks that share a checkpoint offset j are bucketed by value
// and combined with two half-width passes.
func ProveOptimized(ctx context.Context, g group.Group, t uint64, l *big.Int, params Params, checkpoints Checkpoints) (group.Element, error) {
	k := params.K
	k1 := k / 2
	k0 := k - k1
	interval := params.CheckpointInterval()

	blocks := make([]group.Element, 1<<k)
	x := g.Identity()
	for j := int64(params.L) - 1; j >= 0; j-- {
		x = g.Pow(x, new(big.Int).Lsh(big.NewInt(1), k))

		for b := range blocks {
			blocks[b] = nil
		}
		for i := uint64(0); i*interval < t; i++ {
			if i%checkInterval == 0 {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
			}
			index := i*params.L + uint64(j)
			if (index+1)*uint64(k) > t {
				continue
			}
			c, ok := checkpoints.At(i * interval)
			if !ok {
				panic("proving: missing checkpoint")
			}
			b := block(index, k, t, l)
			if blocks[b] == nil {
				blocks[b] = c
			} else {
				blocks[b] = g.Mul(blocks[b], c)
			}
		}

		// x *= Π_b blocks[b]^b, split as b = b1·2^k0 + b0.
		for b1 := uint64(0); b1 < 1<<k1; b1++ {
			z := g.Identity()
			for b0 := uint64(0); b0 < 1<<k0; b0++ {
				if y := blocks[b1<<k0+b0]; y != nil {
					z = g.Mul(z, y)
				}
			}
			x = g.Mul(x, g.Pow(z, new(big.Int).SetUint64(b1<<k0)))
		}
		for b0 := uint64(0); b0 < 1<<k0; b0++ {
			z := g.Identity()
			for b1 := uint64(0); b1 < 1<<k1; b1++ {
				if y := blocks[b1<<k0+b0]; y != nil {
					z = g.Mul(z, y)
				}
			}
			x = g.Mul(x, g.Pow(z, new(big.Int).SetUint64(b0)))
		}
	}
	return x, nil
}

// block returns the i-th K-bit digit, from the least significant end, of ⌊2^t/l⌋:
// ⌊2^k · (2^(t-k(i+1)) mod l) / l⌋.
func block(i uint64, k uint, t uint64, l *big.Int) uint64 {
	e := new(big.Int).SetUint64(t - uint64(k)*(i+1))
	v := new(big.Int).Exp(bigTwo, e, l)
	v.Lsh(v, k)
	return v.Quo(v, l).Uint64()
}
