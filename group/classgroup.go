package group

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/spacemeshos/vdf/config"
	"github.com/spacemeshos/vdf/shared"
)

var (
	bigOne   = big.NewInt(1)
	bigTwo   = big.NewInt(2)
	bigFour  = big.NewInt(4)
	bigEight = big.NewInt(8)
)

// Form is a reduced positive definite binary quadratic form ax² + bxy + cy².
type Form struct {
	a, b, c *big.Int
}

func (f *Form) String() string {
	return fmt.Sprintf("(%v, %v, %v)", f.a, f.b, f.c)
}

// AB returns copies of the first two coefficients, which together with the discriminant determine the form.
func (f *Form) AB() (*big.Int, *big.Int) {
	return new(big.Int).Set(f.a), new(big.Int).Set(f.b)
}

// ClassGroup is the class group of the imaginary quadratic order of discriminant d.
// Its order is unknown to everyone, so it needs no trusted setup.
type ClassGroup struct {
	d           *big.Int
	intSizeBits uint16
}

var _ Group = (*ClassGroup)(nil)

// NewClassGroup requires d < 0 and d ≡ 1 (mod 8), so that (2, 1, c) is a form of discriminant d.
func NewClassGroup(d *big.Int, intSizeBits uint16) (*ClassGroup, error) {
	if d == nil || d.Sign() >= 0 {
		return nil, fmt.Errorf("invalid discriminant; expected: negative, given: %v", d)
	}
	if new(big.Int).Mod(d, bigEight).Cmp(bigOne) != 0 {
		return nil, fmt.Errorf("invalid discriminant; expected: ≡ 1 mod 8, given: %v", d)
	}
	if d.BitLen() > int(intSizeBits) {
		return nil, fmt.Errorf("invalid discriminant; expected: <= %d bits, given: %d bits", intSizeBits, d.BitLen())
	}
	return &ClassGroup{d: new(big.Int).Set(d), intSizeBits: intSizeBits}, nil
}

func (g *ClassGroup) Kind() config.GroupKind {
	return config.GroupClass
}

// Discriminant returns a copy of d.
func (g *ClassGroup) Discriminant() *big.Int {
	return new(big.Int).Set(g.d)
}

func (g *ClassGroup) form(a Element) *Form {
	f, ok := a.(*Form)
	if !ok {
		panic(fmt.Sprintf("group: %T is not a quadratic form", a))
	}
	return f
}

// fromAB completes (a, b) with c = (b² - d) / 4a. It fails if the division is not exact.
func (g *ClassGroup) fromAB(a, b *big.Int) (*Form, bool) {
	num := new(big.Int).Mul(b, b)
	num.Sub(num, g.d)
	den := new(big.Int).Mul(a, bigFour)
	c, rem := new(big.Int).QuoRem(num, den, new(big.Int))
	if rem.Sign() != 0 {
		return nil, false
	}
	return &Form{a: new(big.Int).Set(a), b: new(big.Int).Set(b), c: c}, true
}

func (g *ClassGroup) mustFromAB(a, b *big.Int) *Form {
	f, ok := g.fromAB(a, b)
	if !ok {
		panic(fmt.Sprintf("group: (%v, %v) is not a form of discriminant %v", a, b, g.d))
	}
	return f
}

func (g *ClassGroup) Identity() Element {
	return g.mustFromAB(bigOne, bigOne)
}

// Base returns the form (2, 1, c). The challenge is already bound through the
// discriminant, which is derived from it.
func (g *ClassGroup) Base([]byte) Element {
	return g.mustFromAB(bigTwo, bigOne).reduce()
}

// Mul composes two forms (Shanks' composition, as in the chia reference code).
func (g *ClassGroup) Mul(x, y Element) Element {
	f1, f2 := g.form(x), g.form(y)

	gg := new(big.Int).Add(f1.b, f2.b)
	gg.Rsh(gg, 1)
	h := new(big.Int).Sub(f2.b, f1.b)
	h.Rsh(h, 1)

	w := new(big.Int).GCD(nil, nil, f1.a, f2.a)
	w.GCD(nil, nil, w, gg)

	j := w
	s := new(big.Int).Quo(f1.a, w)
	t := new(big.Int).Quo(f2.a, w)
	u := new(big.Int).Quo(gg, w)
	st := new(big.Int).Mul(s, t)

	// (t·u)·k ≡ h·u + s·c1 (mod s·t)
	tu := new(big.Int).Mul(t, u)
	rhs := new(big.Int).Mul(h, u)
	rhs.Add(rhs, new(big.Int).Mul(s, f1.c))
	kTemp, constFactor, ok := solveMod(tu, rhs, st)
	if !ok {
		panic(fmt.Sprintf("group: no composition of %v and %v", f1, f2))
	}

	// (t·constFactor)·n ≡ h - t·kTemp (mod s)
	rhs = new(big.Int).Mul(t, kTemp)
	rhs.Sub(h, rhs)
	n, _, ok := solveMod(new(big.Int).Mul(t, constFactor), rhs, s)
	if !ok {
		panic(fmt.Sprintf("group: no composition of %v and %v", f1, f2))
	}

	k := new(big.Int).Mul(constFactor, n)
	k.Add(k, kTemp)

	l := new(big.Int).Mul(t, k)
	l.Sub(l, h)
	l.Quo(l, s)

	m := new(big.Int).Mul(tu, k)
	m.Sub(m, new(big.Int).Mul(h, u))
	m.Sub(m, new(big.Int).Mul(f1.c, s))
	m.Quo(m, st)

	b3 := new(big.Int).Mul(j, u)
	b3.Sub(b3, new(big.Int).Mul(k, t))
	b3.Sub(b3, new(big.Int).Mul(l, s))

	c3 := new(big.Int).Mul(k, l)
	c3.Sub(c3, new(big.Int).Mul(j, m))

	return (&Form{a: st, b: b3, c: c3}).reduce()
}

// Square is composition with itself, specialized: with b·μ ≡ c (mod a),
// f² = (a², b - 2aμ, μ² - (bμ - c)/a).
func (g *ClassGroup) Square(x Element) Element {
	f := g.form(x)
	mu, _, ok := solveMod(f.b, f.c, f.a)
	if !ok {
		return g.Mul(x, x)
	}

	a := new(big.Int).Mul(f.a, f.a)

	b := new(big.Int).Mul(f.a, mu)
	b.Lsh(b, 1)
	b.Sub(f.b, b)

	c := new(big.Int).Mul(f.b, mu)
	c.Sub(c, f.c)
	c.Quo(c, f.a)
	c.Sub(new(big.Int).Mul(mu, mu), c)

	return (&Form{a: a, b: b, c: c}).reduce()
}

func (g *ClassGroup) RepeatedSquare(ctx context.Context, a Element, n uint64) (Element, error) {
	return repeatedSquare(ctx, g, a, n)
}

func (g *ClassGroup) Pow(a Element, e *big.Int) Element {
	return pow(g, a, e)
}

func (g *ClassGroup) Equal(x, y Element) bool {
	f1, f2 := g.form(x), g.form(y)
	return f1.a.Cmp(f2.a) == 0 && f1.b.Cmp(f2.b) == 0 && f1.c.Cmp(f2.c) == 0
}

func (g *ClassGroup) ElementSize() int {
	return config.ElementSize(g.intSizeBits)
}

// Marshal writes a ‖ b, each as a signed big-endian two's complement integer.
func (g *ClassGroup) Marshal(x Element) []byte {
	f := g.form(x)
	size := config.IntSize(g.intSizeBits)
	buf := make([]byte, 2*size)
	putSigned(buf[:size], f.a)
	putSigned(buf[size:], f.b)
	return buf
}

// Unmarshal accepts only reduced forms of this group's discriminant.
func (g *ClassGroup) Unmarshal(buf []byte) (Element, error) {
	if len(buf) != g.ElementSize() {
		return nil, shared.DeserializationError{What: "quadratic form", Expected: g.ElementSize(), Given: len(buf)}
	}
	size := config.IntSize(g.intSizeBits)
	a := getSigned(buf[:size])
	b := getSigned(buf[size:])

	if a.Sign() <= 0 {
		return nil, shared.DeserializationError{What: "quadratic form", Err: errors.New("`a` must be positive")}
	}
	f, ok := g.fromAB(a, b)
	if !ok {
		return nil, shared.DeserializationError{What: "quadratic form", Err: fmt.Errorf("(%v, %v) does not match the discriminant", a, b)}
	}
	if !f.isReduced() {
		return nil, shared.DeserializationError{What: "quadratic form", Err: fmt.Errorf("%v is not reduced", f)}
	}
	return f, nil
}

// normalize moves b into (-a, a] with the substitution x → x + ry.
func (f *Form) normalize() *Form {
	negA := new(big.Int).Neg(f.a)
	if f.b.Cmp(negA) > 0 && f.b.Cmp(f.a) <= 0 {
		return f
	}

	twoA := new(big.Int).Lsh(f.a, 1)
	r := new(big.Int).Sub(f.a, f.b)
	r = floorDiv(r, twoA)

	// c' = a·r² + b·r + c, using the old b
	c := new(big.Int).Mul(f.a, r)
	c.Add(c, f.b)
	c.Mul(c, r)
	c.Add(c, f.c)

	f.b.Add(f.b, twoA.Mul(twoA, r))
	f.c = c
	return f
}

// reduce brings f to the unique reduced form of its class.
func (f *Form) reduce() *Form {
	f.normalize()
	for f.a.Cmp(f.c) > 0 || (f.a.Cmp(f.c) == 0 && f.b.Sign() < 0) {
		// s = ⌊(c + b) / 2c⌋
		twoC := new(big.Int).Lsh(f.c, 1)
		s := floorDiv(new(big.Int).Add(f.c, f.b), twoC)

		// (a, b, c) ← (c, -b + 2sc, cs² - bs + a)
		newB := new(big.Int).Mul(twoC, s)
		newB.Sub(newB, f.b)

		newC := new(big.Int).Mul(f.c, s)
		newC.Sub(newC, f.b)
		newC.Mul(newC, s)
		newC.Add(newC, f.a)

		f.a, f.b, f.c = f.c, newB, newC
	}
	return f.normalize()
}

func (f *Form) isReduced() bool {
	negA := new(big.Int).Neg(f.a)
	if f.b.Cmp(negA) <= 0 || f.b.Cmp(f.a) > 0 {
		return false
	}
	switch f.a.Cmp(f.c) {
	case -1:
		return true
	case 0:
		return f.b.Sign() >= 0
	default:
		return false
	}
}

// solveMod solves a·x ≡ b (mod m). All solutions are x + k·step.
func solveMod(a, b, m *big.Int) (x, step *big.Int, ok bool) {
	d := new(big.Int)
	gcd := new(big.Int).GCD(d, nil, a, m)
	if gcd.Sign() == 0 {
		return nil, nil, false
	}
	q, r := new(big.Int).QuoRem(b, gcd, new(big.Int))
	if r.Sign() != 0 {
		return nil, nil, false
	}
	x = q.Mul(q, d)
	x.Mod(x, m)
	return x, new(big.Int).Quo(m, gcd), true
}

// floorDiv rounds toward negative infinity, unlike big.Int.Quo.
func floorDiv(x, y *big.Int) *big.Int {
	q, r := new(big.Int).QuoRem(x, y, new(big.Int))
	if r.Sign() != 0 && r.Sign() != y.Sign() {
		q.Sub(q, bigOne)
	}
	return q
}

func putSigned(dst []byte, v *big.Int) {
	if v.Sign() >= 0 {
		v.FillBytes(dst)
		if dst[0]&0x80 != 0 {
			panic(fmt.Sprintf("group: %v overflows %d signed bytes", v, len(dst)))
		}
		return
	}
	t := new(big.Int).Lsh(bigOne, uint(8*len(dst)))
	t.Add(t, v)
	if t.Sign() < 0 {
		panic(fmt.Sprintf("group: %v overflows %d signed bytes", v, len(dst)))
	}
	t.FillBytes(dst)
	if dst[0]&0x80 == 0 {
		panic(fmt.Sprintf("group: %v overflows %d signed bytes", v, len(dst)))
	}
}

func getSigned(src []byte) *big.Int {
	v := new(big.Int).SetBytes(src)
	if len(src) > 0 && src[0]&0x80 != 0 {
		v.Sub(v, new(big.Int).Lsh(bigOne, uint(8*len(src))))
	}
	return v
}
