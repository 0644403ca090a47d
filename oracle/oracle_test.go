package oracle_test

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spacemeshos/vdf/config"
	"github.com/spacemeshos/vdf/oracle"
)

func TestNewDefaults(t *testing.T) {
	r := require.New(t)

	o, err := oracle.New()
	r.NoError(err)
	r.Equal(config.HashSHA256, o.Hash())
	r.Equal(config.DefaultPrimalityRounds, o.Rounds())

	_, err = oracle.New(oracle.WithHash("md5"))
	r.ErrorContains(err, "invalid `hash`")

	_, err = oracle.New(oracle.WithPrimalityRounds(0))
	r.Error(err)
}

func TestHashToPrimeIsDeterministic(t *testing.T) {
	r := require.New(t)

	for _, alg := range []config.HashAlgorithm{config.HashSHA256, config.HashBlake2b} {
		o, err := oracle.New(oracle.WithHash(alg))
		r.NoError(err)

		a := o.HashToPrime([]byte("g"), []byte("y"))
		b := o.HashToPrime([]byte("g"), []byte("y"))
		r.Equal(0, a.Cmp(b), alg)
		r.True(a.ProbablyPrime(20), alg)
		r.LessOrEqual(a.BitLen(), 8*oracle.PrimeBytes, alg)

		c := o.HashToPrime([]byte("g"), []byte("y'"))
		r.NotEqual(0, a.Cmp(c), alg)
	}
}

func TestHashToPrimeDependsOnHash(t *testing.T) {
	r := require.New(t)

	sha, err := oracle.New(oracle.WithHash(config.HashSHA256))
	r.NoError(err)
	blake, err := oracle.New(oracle.WithHash(config.HashBlake2b))
	r.NoError(err)

	r.NotEqual(0, sha.HashToPrime([]byte("seed")).Cmp(blake.HashToPrime([]byte("seed"))))
}

func TestHashToPrimeMatchesCounterConstruction(t *testing.T) {
	r := require.New(t)

	o, err := oracle.New()
	r.NoError(err)
	p := o.HashToPrime([]byte("abc"))

	// Re-derive by hand: the first counter whose 16-byte prefix is prime.
	for j := uint64(0); ; j++ {
		sum := o.Sum([]byte("prime"), oracle.Uint64Bytes(j), []byte("abc"))
		candidate := new(big.Int).SetBytes(sum[:oracle.PrimeBytes])
		if candidate.ProbablyPrime(o.Rounds()) {
			r.Equal(0, candidate.Cmp(p))
			return
		}
	}
}

func TestExpand(t *testing.T) {
	r := require.New(t)

	o, err := oracle.New()
	r.NoError(err)

	long := o.Expand([]byte("seed"), 100)
	r.Len(long, 100)
	short := o.Expand([]byte("seed"), 10)
	r.True(bytes.HasPrefix(long, short))
	r.Equal(long, o.Expand([]byte("seed"), 100))
	r.NotEqual(long, o.Expand([]byte("other"), 100))
}

func TestHashToIntNonZero(t *testing.T) {
	o, err := oracle.New()
	require.NoError(t, err)

	v := o.HashToInt([]byte("x"), []byte("y"))
	require.Positive(t, v.Sign())
	require.LessOrEqual(t, v.BitLen(), 128)
}
