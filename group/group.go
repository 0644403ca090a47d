// Package group implements the groups of unknown order a VDF is evaluated in:
// the multiplicative group of integers modulo an RSA modulus, and the class
// group of an imaginary quadratic order.
package group

import (
	"context"
	"fmt"
	"math/big"

	"github.com/spacemeshos/vdf/config"
	"github.com/spacemeshos/vdf/oracle"
	"github.com/spacemeshos/vdf/shared"
)

// checkInterval is how many squarings RepeatedSquare performs between context checks.
const checkInterval = 1 << 10

// Element is an opaque member of a Group. Elements are immutable and always
// kept in canonical form, so structural equality is group equality.
type Element interface {
	fmt.Stringer
}

// Group is the set of operations a VDF needs. Passing an Element of another
// backend to a Group is a programming error and panics.
type Group interface {
	Kind() config.GroupKind
	Identity() Element
	// Base maps the instance challenge into the group (H_G).
	Base(x []byte) Element
	Mul(a, b Element) Element
	Square(a Element) Element
	// RepeatedSquare returns a^(2^n). It is equivalent to n calls to Square and
	// stops early with ctx.Err() when ctx is done.
	RepeatedSquare(ctx context.Context, a Element, n uint64) (Element, error)
	Pow(a Element, e *big.Int) Element
	Equal(a, b Element) bool
	// ElementSize is the fixed width of Marshal output.
	ElementSize() int
	Marshal(a Element) []byte
	Unmarshal(b []byte) (Element, error)
}

// New returns the backend selected by setup.Group.
func New(setup shared.Setup, o *oracle.Oracle) (Group, error) {
	if err := setup.Validate(); err != nil {
		return nil, err
	}

	switch setup.Group {
	case config.GroupRSA:
		return NewRSA(setup.Modulus, setup.IntSizeBits, o)
	case config.GroupClass:
		return NewClassGroup(setup.Modulus, setup.IntSizeBits)
	default:
		return nil, fmt.Errorf("unsupported group: %v", setup.Group)
	}
}

// repeatedSquare is the generic squaring loop shared by the backends.
func repeatedSquare(ctx context.Context, g Group, a Element, n uint64) (Element, error) {
	for i := uint64(0); i < n; i++ {
		if i%checkInterval == 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
		}
		a = g.Square(a)
	}
	return a, nil
}

// pow is left-to-right square-and-multiply for backends without a native exponentiation.
func pow(g Group, a Element, e *big.Int) Element {
	if e.Sign() < 0 {
		panic("group: negative exponent")
	}
	res := g.Identity()
	for i := e.BitLen() - 1; i >= 0; i-- {
		res = g.Square(res)
		if e.Bit(i) == 1 {
			res = g.Mul(res, a)
		}
	}
	return res
}
