package group

import (
	"context"
	"fmt"
	"math/big"

	"github.com/spacemeshos/vdf/config"
	"github.com/spacemeshos/vdf/oracle"
	"github.com/spacemeshos/vdf/shared"
)

// hashToGroupTag separates H_G expansions from other oracle uses.
var hashToGroupTag = []byte("vdf/rsa/hash-to-group")

// Residue is an element of the signed group Z_n^*/{±1}, kept as the smaller
// of v and n-v, so its value lies in [0, n/2].
type Residue struct {
	v *big.Int
}

func (r *Residue) String() string {
	return r.v.Text(16)
}

// Int returns a copy of the residue value.
func (r *Residue) Int() *big.Int {
	return new(big.Int).Set(r.v)
}

// RSA is the multiplicative group of integers modulo an RSA modulus of unknown factorization.
type RSA struct {
	n           *big.Int
	intSizeBits uint16
	oracle      *oracle.Oracle
}

var _ Group = (*RSA)(nil)

func NewRSA(n *big.Int, intSizeBits uint16, o *oracle.Oracle) (*RSA, error) {
	if n == nil || n.Sign() <= 0 || n.Bit(0) == 0 {
		return nil, fmt.Errorf("invalid RSA modulus; expected: positive odd integer, given: %v", n)
	}
	if n.BitLen() > int(intSizeBits) {
		return nil, fmt.Errorf("invalid RSA modulus; expected: <= %d bits, given: %d bits", intSizeBits, n.BitLen())
	}
	if o == nil {
		return nil, fmt.Errorf("RSA group requires an oracle")
	}
	return &RSA{n: new(big.Int).Set(n), intSizeBits: intSizeBits, oracle: o}, nil
}

func (g *RSA) Kind() config.GroupKind {
	return config.GroupRSA
}

// Modulus returns a copy of n.
func (g *RSA) Modulus() *big.Int {
	return new(big.Int).Set(g.n)
}

func (g *RSA) residue(a Element) *big.Int {
	r, ok := a.(*Residue)
	if !ok {
		panic(fmt.Sprintf("group: %T is not an RSA residue", a))
	}
	return r.v
}

// FromInt reduces v modulo n and folds it into [0, n/2].
func (g *RSA) FromInt(v *big.Int) Element {
	return &Residue{v: g.fold(new(big.Int).Mod(v, g.n))}
}

// fold replaces z in [0, n) with min(z, n-z) in place.
func (g *RSA) fold(z *big.Int) *big.Int {
	if new(big.Int).Lsh(z, 1).Cmp(g.n) > 0 {
		z.Sub(g.n, z)
	}
	return z
}

func (g *RSA) Identity() Element {
	return &Residue{v: big.NewInt(1)}
}

// Base is H_G(n, x): the oracle expansion of n ‖ x, 128 bits longer than n to
// make the bias of the final reduction negligible.
func (g *RSA) Base(x []byte) Element {
	seed := make([]byte, 0, len(hashToGroupTag)+len(x)+g.n.BitLen()/8+1)
	seed = append(seed, hashToGroupTag...)
	seed = append(seed, g.n.Bytes()...)
	seed = append(seed, x...)

	wide := g.oracle.Expand(seed, (g.n.BitLen()+7)/8+16)
	return g.FromInt(new(big.Int).SetBytes(wide))
}

func (g *RSA) Mul(a, b Element) Element {
	z := new(big.Int).Mul(g.residue(a), g.residue(b))
	return &Residue{v: g.fold(z.Mod(z, g.n))}
}

func (g *RSA) Square(a Element) Element {
	v := g.residue(a)
	z := new(big.Int).Mul(v, v)
	return &Residue{v: g.fold(z.Mod(z, g.n))}
}

// RepeatedSquare squares in place, reusing two buffers for the whole chain.
// Squaring ignores the sign, so only the final value is folded.
func (g *RSA) RepeatedSquare(ctx context.Context, a Element, n uint64) (Element, error) {
	z := new(big.Int).Set(g.residue(a))
	tmp := new(big.Int)
	for i := uint64(0); i < n; i++ {
		if i%checkInterval == 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
		}
		tmp.Mul(z, z)
		z.Mod(tmp, g.n)
	}
	return &Residue{v: g.fold(z)}, nil
}

func (g *RSA) Pow(a Element, e *big.Int) Element {
	if e.Sign() < 0 {
		panic("group: negative exponent")
	}
	return &Residue{v: g.fold(new(big.Int).Exp(g.residue(a), e, g.n))}
}

func (g *RSA) Equal(a, b Element) bool {
	return g.residue(a).Cmp(g.residue(b)) == 0
}

func (g *RSA) ElementSize() int {
	return config.ElementSize(g.intSizeBits)
}

func (g *RSA) Marshal(a Element) []byte {
	return g.residue(a).FillBytes(make([]byte, g.ElementSize()))
}

// Unmarshal rejects values outside [0, n/2] with shared.ErrOutOfRange. Values in
// (n/2, n) name the same element as n-v and are not canonical.
func (g *RSA) Unmarshal(b []byte) (Element, error) {
	if len(b) != g.ElementSize() {
		return nil, shared.DeserializationError{What: "RSA residue", Expected: g.ElementSize(), Given: len(b)}
	}
	v := new(big.Int).SetBytes(b)
	if v.Cmp(g.n) >= 0 || new(big.Int).Lsh(v, 1).Cmp(g.n) > 0 {
		return nil, shared.ErrOutOfRange
	}
	return &Residue{v: v}, nil
}
