package proving

import (
	"context"
	"fmt"
	"math/big"

	"github.com/spacemeshos/vdf/config"
	"github.com/spacemeshos/vdf/group"
	"github.com/spacemeshos/vdf/shared"
)

var bigTwo = big.NewInt(2)

// Evaluate computes x^(2^t) by t sequential squarings.
func Evaluate(ctx context.Context, g group.Group, x group.Element, t uint64) (group.Element, error) {
	return g.RepeatedSquare(ctx, x, t)
}

// EvaluateWithTrapdoor computes x^(2^t) as x^(2^t mod φ(n)), in O(log t)
// multiplications. It requires the RSA group and a trapdoor that factors its modulus.
func EvaluateWithTrapdoor(g group.Group, x group.Element, t uint64, td *shared.Trapdoor) (group.Element, error) {
	phi, err := totient(g, td)
	if err != nil {
		return nil, err
	}
	e := new(big.Int).Exp(bigTwo, new(big.Int).SetUint64(t), phi)
	return g.Pow(x, e), nil
}

func totient(g group.Group, td *shared.Trapdoor) (*big.Int, error) {
	if g.Kind() != config.GroupRSA {
		return nil, fmt.Errorf("%w: %v group has no trapdoor", shared.ErrNoTrapdoor, g.Kind())
	}
	rsa, ok := g.(interface{ Modulus() *big.Int })
	if !ok {
		return nil, fmt.Errorf("%w: group does not expose its modulus", shared.ErrNoTrapdoor)
	}
	if !td.Valid(rsa.Modulus()) {
		return nil, shared.ErrNoTrapdoor
	}
	return td.Phi(), nil
}

// squarer computes a^(2^n); with a trapdoor it shortcuts through φ(n).
type squarer func(ctx context.Context, a group.Element, n uint64) (group.Element, error)

func sequentialSquarer(g group.Group) squarer {
	return func(ctx context.Context, a group.Element, n uint64) (group.Element, error) {
		return g.RepeatedSquare(ctx, a, n)
	}
}

func trapdoorSquarer(g group.Group, phi *big.Int) squarer {
	return func(_ context.Context, a group.Element, n uint64) (group.Element, error) {
		e := new(big.Int).Exp(bigTwo, new(big.Int).SetUint64(n), phi)
		return g.Pow(a, e), nil
	}
}
