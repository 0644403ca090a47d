package proving

import (
	"errors"
	"fmt"

	"github.com/spacemeshos/vdf/shared"
)

// Strategy selects how a Wesolowski proof is computed. All strategies produce the same proof.
type Strategy string

const (
	// StrategyAuto uses the trapdoor when one is given, and the optimized prover otherwise.
	StrategyAuto Strategy = "auto"
	// StrategyLongDivision keeps no checkpoints and spends t extra group operations.
	StrategyLongDivision Strategy = "long-division"
	// StrategyOptimized keeps checkpoints per ApproximateParameters.
	StrategyOptimized Strategy = "optimized"
	// StrategyTrapdoor needs the factorization of the RSA modulus.
	StrategyTrapdoor Strategy = "trapdoor"
)

func (s Strategy) Validate() error {
	switch s {
	case StrategyAuto, StrategyLongDivision, StrategyOptimized, StrategyTrapdoor:
		return nil
	default:
		return fmt.Errorf("invalid `strategy`; expected: one of %v, %v, %v, %v, given: %q",
			StrategyAuto, StrategyLongDivision, StrategyOptimized, StrategyTrapdoor, string(s))
	}
}

type option struct {
	trapdoor  *shared.Trapdoor
	zeroize   bool
	strategy  Strategy
	logMemory float64
}

func (o *option) validate() error {
	if err := o.strategy.Validate(); err != nil {
		return err
	}
	if o.strategy == StrategyTrapdoor && o.trapdoor == nil {
		return fmt.Errorf("%w: strategy %v requires `WithTrapdoor`", shared.ErrNoTrapdoor, StrategyTrapdoor)
	}
	if o.zeroize && o.trapdoor == nil {
		return errors.New("`WithZeroizeTrapdoor` requires `WithTrapdoor`")
	}
	if o.logMemory <= 0 {
		return fmt.Errorf("invalid `log-memory`; expected: > 0, given: %v", o.logMemory)
	}
	return nil
}

// OptionFunc is a function that sets an option for proof generation.
type OptionFunc func(*option) error

// WithTrapdoor lets the setup party shortcut evaluation and proving through
// the factorization of the RSA modulus.
func WithTrapdoor(td *shared.Trapdoor) OptionFunc {
	return func(opts *option) error {
		if td == nil {
			return errors.New("`trapdoor` is nil")
		}
		opts.trapdoor = td
		return nil
	}
}

// WithZeroizeTrapdoor wipes the trapdoor once Generate returns.
func WithZeroizeTrapdoor() OptionFunc {
	return func(opts *option) error {
		opts.zeroize = true
		return nil
	}
}

func WithStrategy(s Strategy) OptionFunc {
	return func(opts *option) error {
		opts.strategy = s
		return nil
	}
}

// WithLogMemory overrides the config's memory budget of the optimized prover.
func WithLogMemory(logMemory float64) OptionFunc {
	return func(opts *option) error {
		opts.logMemory = logMemory
		return nil
	}
}
