package shared

import (
	"math/big"

	"github.com/spacemeshos/vdf/config"
)

var one = big.NewInt(1)

// Trapdoor is the factorization of an RSA modulus. It is held only by the party
// that ran the setup and is never embedded into a Setup or Instance.
type Trapdoor struct {
	P *big.Int
	Q *big.Int
}

// Valid reports whether the trapdoor is present and splits n into two
// distinct primes. Phi is only meaningful for a valid trapdoor.
func (td *Trapdoor) Valid(n *big.Int) bool {
	if td == nil || td.P == nil || td.Q == nil || n == nil {
		return false
	}
	if td.P.Cmp(one) <= 0 || td.Q.Cmp(one) <= 0 || td.P.Cmp(td.Q) == 0 {
		return false
	}
	if new(big.Int).Mul(td.P, td.Q).Cmp(n) != 0 {
		return false
	}
	return td.P.ProbablyPrime(config.DefaultPrimalityRounds) && td.Q.ProbablyPrime(config.DefaultPrimalityRounds)
}

// Phi returns Euler's totient (p-1)(q-1).
func (td *Trapdoor) Phi() *big.Int {
	p := new(big.Int).Sub(td.P, one)
	q := new(big.Int).Sub(td.Q, one)
	return p.Mul(p, q)
}

// Zeroize wipes the factors in place.
func (td *Trapdoor) Zeroize() {
	if td == nil {
		return
	}
	wipe(td.P)
	wipe(td.Q)
}

func wipe(x *big.Int) {
	if x == nil {
		return
	}
	words := x.Bits()
	for i := range words {
		words[i] = 0
	}
	x.SetInt64(0)
}
