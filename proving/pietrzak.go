package proving

import (
	"context"
	"fmt"

	"github.com/spacemeshos/vdf/config"
	"github.com/spacemeshos/vdf/group"
	"github.com/spacemeshos/vdf/oracle"
	"github.com/spacemeshos/vdf/shared"
)

// CheckIterations rejects delays a proof type cannot prove. Wesolowski
// proofs accept any t; Pietrzak proofs need an even t of at least 66.
func CheckIterations(proofType config.ProofType, t uint64) error {
	if t > config.MaxIterations {
		return shared.InvalidIterationsError{
			ProofType:  string(proofType),
			Iterations: t,
			Reason:     fmt.Sprintf("expected: <= %d", uint64(config.MaxIterations)),
		}
	}
	if proofType != config.ProofPietrzak {
		return nil
	}
	if t < config.PietrzakMinIterations {
		return shared.InvalidIterationsError{
			ProofType:  string(proofType),
			Iterations: t,
			Reason:     fmt.Sprintf("expected: >= %d", config.PietrzakMinIterations),
		}
	}
	if t%2 != 0 {
		return shared.InvalidIterationsError{
			ProofType:  string(proofType),
			Iterations: t,
			Reason:     "expected: an even number",
		}
	}
	return nil
}

// ProvePietrzak proves y = x^(2^t) by recursive halving. Each round commits to
// the midpoint μ = x^(2^(T/2)) and folds both halves into one claim of half
// the delay with the challenge r: x' = x^r·μ, y' = μ^r·y. Odd delays are
// padded with one squaring of y. The proof is the list of midpoints.
func ProvePietrzak(ctx context.Context, g group.Group, o *oracle.Oracle, x, y group.Element, t uint64) ([]group.Element, error) {
	return provePietrzak(ctx, g, o, x, y, t, sequentialSquarer(g))
}

func provePietrzak(ctx context.Context, g group.Group, o *oracle.Oracle, x, y group.Element, t uint64, square squarer) ([]group.Element, error) {
	if err := CheckIterations(config.ProofPietrzak, t); err != nil {
		return nil, err
	}

	mus := make([]group.Element, 0, config.PietrzakRounds(t))
	for delay := t; delay > 1; {
		if delay%2 == 1 {
			y = g.Square(y)
			delay++
		}
		half := delay / 2

		mu, err := square(ctx, x, half)
		if err != nil {
			return nil, err
		}
		r := o.PietrzakChallenge(g.Marshal(x), g.Marshal(y), g.Marshal(mu), delay)
		x = g.Mul(g.Pow(x, r), mu)
		y = g.Mul(g.Pow(mu, r), y)

		mus = append(mus, mu)
		delay = half
	}
	return mus, nil
}
