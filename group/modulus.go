package group

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/spacemeshos/vdf/oracle"
	"github.com/spacemeshos/vdf/shared"
)

var modulusSeedTag = []byte("vdf/rsa/modulus")

// GenerateModulus samples two distinct primes of bits/2 bits each and returns
// their product together with the factorization. The caller owns the trapdoor
// and should Zeroize it once it is no longer needed.
func GenerateModulus(random io.Reader, bits uint16) (*big.Int, *shared.Trapdoor, error) {
	if bits < 16 || bits%2 != 0 {
		return nil, nil, fmt.Errorf("invalid `bits`; expected: even and >= 16, given: %d", bits)
	}
	if random == nil {
		random = rand.Reader
	}

	for {
		p, err := rand.Prime(random, int(bits/2))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to sample p: %w", err)
		}
		q, err := rand.Prime(random, int(bits/2))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to sample q: %w", err)
		}
		if p.Cmp(q) == 0 {
			continue
		}

		// rand.Prime sets the top two bits, so the product has exactly `bits` bits.
		n := new(big.Int).Mul(p, q)
		return n, &shared.Trapdoor{P: p, Q: q}, nil
	}
}

// ModulusFromSeed deterministically derives n = p·q from seed, so independent
// parties can reconstruct the same modulus. Anyone who knows seed can
// recompute the factorization; use it for reproducible test setups only.
func ModulusFromSeed(o *oracle.Oracle, seed []byte, bits uint16) (*big.Int, *shared.Trapdoor, error) {
	if o == nil {
		return nil, nil, errors.New("oracle is required")
	}
	if bits < 16 || bits%2 != 0 {
		return nil, nil, fmt.Errorf("invalid `bits`; expected: even and >= 16, given: %d", bits)
	}

	half := int(bits / 2)
	derive := func(label byte) *big.Int {
		buf := append(append([]byte{}, modulusSeedTag...), label)
		buf = append(buf, seed...)
		return nextPrime(o, o.Expand(buf, (half+7)/8), half)
	}

	p := derive('p')
	q := derive('q')
	for p.Cmp(q) == 0 {
		q = nextPrime(o, q.Add(q, bigTwo).Bytes(), half)
	}
	return new(big.Int).Mul(p, q), &shared.Trapdoor{P: p, Q: q}, nil
}

// nextPrime returns the first probable prime >= the candidate built from
// entropy, with the top two and the lowest bit set.
func nextPrime(o *oracle.Oracle, entropy []byte, bits int) *big.Int {
	c := new(big.Int).SetBytes(entropy)
	if extra := c.BitLen() - bits; extra > 0 {
		c.Rsh(c, uint(extra))
	}
	c.SetBit(c, bits-1, 1)
	c.SetBit(c, bits-2, 1)
	c.SetBit(c, 0, 1)
	for !o.IsPrime(c) {
		c.Add(c, bigTwo)
	}
	return c
}
