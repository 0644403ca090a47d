package oracle

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"math/big"

	"github.com/spacemeshos/vdf/config"
)

// PrimeBytes is the width of hash-to-prime candidates (128-bit challenges).
const PrimeBytes = 16

var primeTag = []byte("prime")

type option struct {
	hash   config.HashAlgorithm
	rounds int
}

func (o *option) validate() error {
	if err := o.hash.Validate(); err != nil {
		return err
	}

	if o.rounds < config.MinPrimalityRounds || o.rounds > config.MaxPrimalityRounds {
		return fmt.Errorf("invalid `rounds`; expected: [%d, %d], given: %d", config.MinPrimalityRounds, config.MaxPrimalityRounds, o.rounds)
	}

	return nil
}

// OptionFunc is a function that sets an option for an Oracle instance.
type OptionFunc func(*option) error

// WithHash sets the hash algorithm used for every derivation.
func WithHash(h config.HashAlgorithm) OptionFunc {
	return func(opts *option) error {
		opts.hash = h
		return nil
	}
}

// WithPrimalityRounds sets the number of Miller-Rabin rounds used by the primality test.
func WithPrimalityRounds(rounds int) OptionFunc {
	return func(opts *option) error {
		if rounds <= 0 {
			return errors.New("`rounds` must be greater than 0")
		}
		opts.rounds = rounds
		return nil
	}
}

// WithConfig takes the hash algorithm and primality rounds from cfg.
func WithConfig(cfg config.Config) OptionFunc {
	return func(opts *option) error {
		opts.hash = cfg.Hash
		opts.rounds = cfg.PrimalityRounds
		return nil
	}
}

// Oracle is the deterministic random oracle shared by prover and verifier.
// Both sides must construct it with the same options, otherwise challenges diverge.
// An Oracle has no mutable state and is safe for concurrent use.
type Oracle struct {
	options *option
}

// New returns an Oracle. If not specified, SHA-256 and the default primality rounds are used.
func New(opts ...OptionFunc) (*Oracle, error) {
	options := &option{
		hash:   config.HashSHA256,
		rounds: config.DefaultPrimalityRounds,
	}

	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}

	if err := options.validate(); err != nil {
		return nil, err
	}

	return &Oracle{options: options}, nil
}

func (o *Oracle) Hash() config.HashAlgorithm {
	return o.options.hash
}

func (o *Oracle) Rounds() int {
	return o.options.rounds
}

func (o *Oracle) newHash() hash.Hash {
	return newHash(o.options.hash)
}

// Sum hashes the concatenation of parts.
func (o *Oracle) Sum(parts ...[]byte) []byte {
	h := o.newHash()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

// Expand deterministically stretches seed to n bytes: H(seed ‖ be16(0)) ‖ H(seed ‖ be16(1)) ‖ ...
func (o *Oracle) Expand(seed []byte, n int) []byte {
	out := make([]byte, 0, n+64)
	var counter [2]byte
	for extra := uint16(0); len(out) < n; extra++ {
		binary.BigEndian.PutUint16(counter[:], extra)
		out = append(out, o.Sum(seed, counter[:])...)
	}
	return out[:n]
}

// HashToPrime derives a prime from parts. For j = 0, 1, ... it hashes
// "prime" ‖ be64(j) ‖ parts and returns the first 16-byte digest prefix that
// passes the primality test.
func (o *Oracle) HashToPrime(parts ...[]byte) *big.Int {
	candidate := new(big.Int)
	var counter [8]byte
	for j := uint64(0); ; j++ {
		binary.BigEndian.PutUint64(counter[:], j)

		h := o.newHash()
		h.Write(primeTag)
		h.Write(counter[:])
		for _, p := range parts {
			h.Write(p)
		}
		candidate.SetBytes(h.Sum(nil)[:PrimeBytes])

		if candidate.ProbablyPrime(o.options.rounds) {
			return candidate
		}
	}
}

// HashToInt derives a non-zero 128-bit integer from parts.
func (o *Oracle) HashToInt(parts ...[]byte) *big.Int {
	v := new(big.Int).SetBytes(o.Sum(parts...)[:PrimeBytes])
	if v.Sign() == 0 {
		v.SetInt64(1)
	}
	return v
}

// IsPrime runs the configured primality test.
func (o *Oracle) IsPrime(n *big.Int) bool {
	return n.ProbablyPrime(o.options.rounds)
}

// Uint64Bytes is the big-endian encoding used to bind counters and delays into hashes.
func Uint64Bytes(v uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, v)
}

// WesolowskiChallenge is the Fiat-Shamir prime l = HashToPrime(g ‖ y ‖ be64(t) ‖ |modulus|).
// Elements are passed serialized at the group's fixed width.
func (o *Oracle) WesolowskiChallenge(g, y []byte, t uint64, modulus []byte) *big.Int {
	return o.HashToPrime(g, y, Uint64Bytes(t), modulus)
}

// PietrzakChallenge is the 128-bit round challenge r = HashToInt(x ‖ y ‖ μ ‖ be64(t)).
func (o *Oracle) PietrzakChallenge(x, y, mu []byte, t uint64) *big.Int {
	return o.HashToInt(x, y, mu, Uint64Bytes(t))
}
