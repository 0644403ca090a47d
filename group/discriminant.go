package group

import (
	"encoding/binary"
	"math/big"

	"github.com/spacemeshos/vdf/oracle"
)

const (
	// discriminantModulus is 8·3·5·7·11·13. Candidates are kept in residue
	// classes that avoid these factors and are ≡ 7 (mod 8).
	discriminantModulus = 8 * 3 * 5 * 7 * 11 * 13
	sieveSize           = 1 << 16
	sievePrimeBound     = 1 << 13
)

var (
	discriminantResidues = func() []int64 {
		var res []int64
		for x := int64(7); x < discriminantModulus; x += 8 {
			if x%3 != 0 && x%5 != 0 && x%7 != 0 && x%11 != 0 && x%13 != 0 {
				res = append(res, x)
			}
		}
		return res
	}()

	// sievePrimes are the odd primes below sievePrimeBound not dividing discriminantModulus,
	// each paired with the inverse of discriminantModulus modulo it.
	sievePrimes = func() [][2]int64 {
		composite := make([]bool, sievePrimeBound)
		var res [][2]int64
		m := big.NewInt(discriminantModulus)
		for p := 2; p < sievePrimeBound; p++ {
			if composite[p] {
				continue
			}
			for q := p * p; q < sievePrimeBound; q += p {
				composite[q] = true
			}
			if p <= 13 {
				continue
			}
			inv := new(big.Int).ModInverse(m, big.NewInt(int64(p)))
			res = append(res, [2]int64{int64(p), inv.Int64()})
		}
		return res
	}()
)

// CreateDiscriminant deterministically derives a negative prime discriminant
// d ≡ 1 (mod 8) of exactly bits bits from seed. -d ≡ 7 (mod 8) makes 2 split,
// so (2, 1, (1-d)/8) is a valid form.
func CreateDiscriminant(o *oracle.Oracle, seed []byte, bits uint16) *big.Int {
	extra := uint(bits) % 8
	byteCount := int(bits)/8 + 2
	if extra != 0 {
		byteCount++
	}
	entropy := o.Expand(seed, byteCount)

	n := new(big.Int).SetBytes(entropy[:len(entropy)-2])
	if extra != 0 {
		n.Rsh(n, 8-extra)
	}
	n.SetBit(n, int(bits)-1, 1)

	m := big.NewInt(discriminantModulus)
	n.Sub(n, new(big.Int).Mod(n, m))
	selector := binary.BigEndian.Uint16(entropy[len(entropy)-2:])
	n.Add(n, big.NewInt(discriminantResidues[int(selector)%len(discriminantResidues)]))

	sieve := make([]bool, sieveSize)
	candidate := new(big.Int)
	step := new(big.Int).Mul(m, big.NewInt(sieveSize))
	tmp := new(big.Int)
	for {
		// sieve[i] marks n + m·i as divisible by a small prime
		for i := range sieve {
			sieve[i] = false
		}
		for _, pi := range sievePrimes {
			p, inv := pi[0], pi[1]
			nModP := tmp.Mod(n, big.NewInt(p)).Int64()
			start := ((p - nModP) % p) * inv % p
			for i := start; i < sieveSize; i += p {
				sieve[i] = true
			}
		}

		for i, composite := range sieve {
			if composite {
				continue
			}
			candidate.Mul(m, big.NewInt(int64(i)))
			candidate.Add(candidate, n)
			if o.IsPrime(candidate) {
				return candidate.Neg(candidate)
			}
		}
		n.Add(n, step)
	}
}
