// Package setup constructs VDF instances: public RSA setups, trapdoor RSA
// setups that keep the factorization on the side, and class-group setups
// derived entirely from the challenge.
package setup

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/spacemeshos/vdf/config"
	"github.com/spacemeshos/vdf/group"
	"github.com/spacemeshos/vdf/oracle"
	"github.com/spacemeshos/vdf/shared"
)

// SeedLength is the size in bytes of challenges sampled by RandomChallenge.
const SeedLength = 32

// RandomChallenge samples an n-byte challenge.
func RandomChallenge(random io.Reader, n int) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("invalid challenge size; expected: > 0, given: %d", n)
	}
	if random == nil {
		random = rand.Reader
	}
	x := make([]byte, n)
	if _, err := io.ReadFull(random, x); err != nil {
		return nil, fmt.Errorf("failed to sample challenge: %w", err)
	}
	return x, nil
}

func validateBits(bits uint16) error {
	if bits < config.MinIntSizeBits || bits > config.MaxIntSizeBits {
		return fmt.Errorf("invalid `bits`; expected: [%d, %d], given: %d", config.MinIntSizeBits, config.MaxIntSizeBits, bits)
	}
	return nil
}

func newInstance(x []byte, setup shared.Setup) (*shared.Instance, error) {
	if err := setup.Validate(); err != nil {
		return nil, err
	}
	return &shared.Instance{X: append([]byte{}, x...), Setup: setup}, nil
}

// NewRSA is the public setup: anyone holding n can evaluate, nobody can shortcut.
func NewRSA(x []byte, t uint64, n *big.Int, bits uint16) (*shared.Instance, error) {
	if err := validateBits(bits); err != nil {
		return nil, err
	}
	if n == nil || n.Bit(0) == 0 {
		return nil, fmt.Errorf("invalid RSA modulus; expected: odd, given: %v", n)
	}
	return newInstance(x, shared.Setup{
		Group:       config.GroupRSA,
		IntSizeBits: bits,
		Iterations:  t,
		Modulus:     new(big.Int).Set(n),
	})
}

// FromFactors builds the setup for n = p·q and returns the trapdoor separately.
// Both factors must be prime.
func FromFactors(x []byte, t uint64, p, q *big.Int, bits uint16) (*shared.Instance, *shared.Trapdoor, error) {
	if p == nil || q == nil || p.Cmp(bigOne) <= 0 || q.Cmp(bigOne) <= 0 {
		return nil, nil, fmt.Errorf("%w: factors must be greater than 1", shared.ErrNoTrapdoor)
	}
	if p.Cmp(q) == 0 {
		return nil, nil, errors.New("factors must be distinct")
	}
	for _, f := range []*big.Int{p, q} {
		if !f.ProbablyPrime(config.DefaultPrimalityRounds) {
			return nil, nil, fmt.Errorf("%w: factors must be prime", shared.ErrNoTrapdoor)
		}
	}

	td := &shared.Trapdoor{P: new(big.Int).Set(p), Q: new(big.Int).Set(q)}
	inst, err := NewRSA(x, t, new(big.Int).Mul(p, q), bits)
	if err != nil {
		return nil, nil, err
	}
	return inst, td, nil
}

// GenerateRSA samples a fresh modulus of bits bits and keeps its factorization as the trapdoor.
func GenerateRSA(random io.Reader, x []byte, t uint64, bits uint16) (*shared.Instance, *shared.Trapdoor, error) {
	if err := validateBits(bits); err != nil {
		return nil, nil, err
	}
	n, td, err := group.GenerateModulus(random, bits)
	if err != nil {
		return nil, nil, err
	}
	inst, err := NewRSA(x, t, n, bits)
	if err != nil {
		return nil, nil, err
	}
	return inst, td, nil
}

// NewClassGroup derives the discriminant from x. There is no trapdoor.
func NewClassGroup(o *oracle.Oracle, x []byte, t uint64, bits uint16) (*shared.Instance, error) {
	if err := validateBits(bits); err != nil {
		return nil, err
	}
	if o == nil {
		return nil, errors.New("oracle is required")
	}
	return newInstance(x, shared.Setup{
		Group:       config.GroupClass,
		IntSizeBits: bits,
		Iterations:  t,
		Modulus:     group.CreateDiscriminant(o, x, bits),
	})
}

// New creates an instance for the group selected by cfg. For the RSA group a
// fresh modulus is sampled from random and its trapdoor is returned.
func New(cfg config.Config, o *oracle.Oracle, random io.Reader, x []byte, t uint64) (*shared.Instance, *shared.Trapdoor, error) {
	kind, err := cfg.GroupKind()
	if err != nil {
		return nil, nil, err
	}

	switch kind {
	case config.GroupRSA:
		return GenerateRSA(random, x, t, cfg.IntSizeBits)
	case config.GroupClass:
		inst, err := NewClassGroup(o, x, t, cfg.IntSizeBits)
		return inst, nil, err
	default:
		return nil, nil, fmt.Errorf("unsupported group: %v", kind)
	}
}

var bigOne = big.NewInt(1)
