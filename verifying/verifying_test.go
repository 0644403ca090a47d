package verifying

import (
	"context"
	"encoding/hex"
	"math/big"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/spacemeshos/vdf/config"
	"github.com/spacemeshos/vdf/group"
	"github.com/spacemeshos/vdf/oracle"
	"github.com/spacemeshos/vdf/proving"
	"github.com/spacemeshos/vdf/setup"
	"github.com/spacemeshos/vdf/shared"
)

const testBits = 256

type fixture struct {
	name string
	cfg  config.Config
	inst *shared.Instance
	sol  *shared.Solution
}

func newInstance(t *testing.T, cfg config.Config, x []byte, iterations uint64) *shared.Instance {
	t.Helper()
	o, err := oracle.New(oracle.WithConfig(cfg))
	require.NoError(t, err)

	if cfg.Group == config.GroupClass.String() {
		inst, err := setup.NewClassGroup(o, x, iterations, cfg.IntSizeBits)
		require.NoError(t, err)
		return inst
	}
	n, _, err := group.ModulusFromSeed(o, []byte("verifying test"), cfg.IntSizeBits)
	require.NoError(t, err)
	inst, err := setup.NewRSA(x, iterations, n, cfg.IntSizeBits)
	require.NoError(t, err)
	return inst
}

func fixtures(t *testing.T) []fixture {
	var res []fixture
	for _, kind := range []config.GroupKind{config.GroupRSA, config.GroupClass} {
		for _, proof := range []config.ProofType{config.ProofWesolowski, config.ProofPietrzak} {
			cfg := config.DefaultConfig()
			cfg.IntSizeBits = testBits
			cfg.Group = kind.String()
			cfg.ProofType = proof

			inst := newInstance(t, cfg, []byte{0xaa, 0x12, 0x34}, 130)
			sol, err := proving.Generate(context.Background(), inst, cfg, zaptest.NewLogger(t))
			require.NoError(t, err)

			res = append(res, fixture{name: kind.String() + "/" + string(proof), cfg: cfg, inst: inst, sol: sol})
		}
	}
	return res
}

func TestVerify_RoundTrip(t *testing.T) {
	for _, f := range fixtures(t) {
		t.Run(f.name, func(t *testing.T) {
			r := require.New(t)
			v, err := NewProofVerifier(f.cfg, WithLogger(zaptest.NewLogger(t)))
			r.NoError(err)

			r.NoError(v.Verify(f.sol, f.inst))
			r.NoError(v.VerifyBlob(f.inst, f.sol.ProofType, f.sol.Blob()))
		})
	}
}

func TestVerify_Tamper(t *testing.T) {
	for _, f := range fixtures(t) {
		t.Run(f.name, func(t *testing.T) {
			r := require.New(t)
			v, err := NewProofVerifier(f.cfg)
			r.NoError(err)

			blob := f.sol.Blob()
			for i := 0; i < len(blob); i += 3 {
				for _, bit := range []byte{0x01, 0x80} {
					tampered := append([]byte{}, blob...)
					tampered[i] ^= bit
					err := v.VerifyBlob(f.inst, f.sol.ProofType, tampered)
					r.ErrorIs(err, shared.ErrVerificationFailed, "byte %d bit %x", i, bit)
				}
			}
		})
	}
}

func TestVerify_CrossInstance(t *testing.T) {
	for _, f := range fixtures(t) {
		t.Run(f.name, func(t *testing.T) {
			r := require.New(t)
			v, err := NewProofVerifier(f.cfg)
			r.NoError(err)

			other := newInstance(t, f.cfg, []byte{0xaa, 0x12, 0x35}, f.inst.Setup.Iterations)
			r.ErrorIs(v.Verify(f.sol, other), shared.ErrInstanceMismatch)

			longer := newInstance(t, f.cfg, f.inst.X, f.inst.Setup.Iterations+2)
			r.ErrorIs(v.Verify(f.sol, longer), shared.ErrInstanceMismatch)

			// replaying the proof under another instance's label is caught by the algebra
			replayed := *f.sol
			replayed.Instance = *other
			r.ErrorIs(v.Verify(&replayed, other), shared.ErrVerificationFailed)
		})
	}
}

func TestVerify_BlobLength(t *testing.T) {
	for _, f := range fixtures(t) {
		t.Run(f.name, func(t *testing.T) {
			r := require.New(t)
			v, err := NewProofVerifier(f.cfg)
			r.NoError(err)

			blob := f.sol.Blob()
			for _, b := range [][]byte{blob[:len(blob)-1], append(blob, 0), nil} {
				err := v.VerifyBlob(f.inst, f.sol.ProofType, b)
				var derr shared.DeserializationError
				r.ErrorAs(err, &derr)
				r.Equal(len(blob), derr.Expected)
			}

			sol := *f.sol
			sol.Proof = sol.Proof[1:]
			r.ErrorIs(v.Verify(&sol, f.inst), shared.ErrVerificationFailed)
		})
	}
}

func TestVerify_WesolowskiBlobSize(t *testing.T) {
	r := require.New(t)
	f := fixtures(t)[0]
	r.Equal(config.ProofWesolowski, f.sol.ProofType)
	r.Len(f.sol.Blob(), 4*config.IntSize(testBits))
}

func TestVerify_OutOfRange(t *testing.T) {
	r := require.New(t)
	f := fixtures(t)[0]
	r.Equal(config.GroupRSA, f.inst.Setup.Group)

	v, err := NewProofVerifier(f.cfg)
	r.NoError(err)

	sol := *f.sol
	sol.Output = f.inst.Setup.Modulus.FillBytes(make([]byte, len(sol.Output)))
	r.ErrorIs(v.Verify(&sol, f.inst), shared.ErrOutOfRange)
}

func TestVerify_NegatedOutput(t *testing.T) {
	r := require.New(t)
	f := fixtures(t)[0]
	r.Equal(config.GroupRSA, f.inst.Setup.Group)
	r.Equal(config.ProofWesolowski, f.sol.ProofType)

	o, err := oracle.New(oracle.WithConfig(f.cfg))
	r.NoError(err)
	g, err := group.New(f.inst.Setup, o)
	r.NoError(err)
	v, err := NewProofVerifier(f.cfg)
	r.NoError(err)

	// -y is y's twin in Z_n^*; a proof for it satisfies π^l · x^r == -y whenever l is odd
	n := f.inst.Setup.Modulus
	size := len(f.sol.Output)
	x := g.Base(f.inst.X).(*group.Residue).Int()
	negY := new(big.Int).Sub(n, new(big.Int).SetBytes(f.sol.Output))
	negYBytes := negY.FillBytes(make([]byte, size))

	t2 := new(big.Int).Lsh(big.NewInt(1), uint(f.inst.Setup.Iterations))
	l := o.WesolowskiChallenge(g.Marshal(g.Base(f.inst.X)), negYBytes, f.inst.Setup.Iterations, f.inst.Setup.ModulusBytes())
	pi := new(big.Int).Exp(x, new(big.Int).Quo(t2, l), n)
	negPi := new(big.Int).Sub(n, pi)

	blob := append(negYBytes, negPi.FillBytes(make([]byte, size))...)
	r.ErrorIs(v.VerifyBlob(f.inst, f.sol.ProofType, blob), shared.ErrVerificationFailed)

	sol := *f.sol
	sol.Output = negYBytes
	r.ErrorIs(v.Verify(&sol, f.inst), shared.ErrOutOfRange)
}

func TestVerify_InvalidIterations(t *testing.T) {
	r := require.New(t)
	cfg := config.DefaultConfig()
	cfg.IntSizeBits = testBits

	inst := newInstance(t, cfg, []byte{1}, 65)
	sol := &shared.Solution{Instance: *inst, ProofType: config.ProofPietrzak}

	v, err := NewProofVerifier(cfg)
	r.NoError(err)
	var ierr shared.InvalidIterationsError
	r.ErrorAs(v.Verify(sol, inst), &ierr)
}

func TestVerify_ZeroIterations(t *testing.T) {
	r := require.New(t)
	cfg := config.DefaultConfig()
	cfg.IntSizeBits = testBits
	cfg.Group = config.GroupClass.String()

	inst := newInstance(t, cfg, []byte("zero"), 0)
	sol, err := proving.Generate(context.Background(), inst, cfg, nil)
	r.NoError(err)

	v, err := NewProofVerifier(cfg)
	r.NoError(err)
	r.NoError(v.Verify(sol, inst))
}

func TestVerify_HashMismatch(t *testing.T) {
	r := require.New(t)
	f := fixtures(t)[0]

	cfg := f.cfg
	cfg.Hash = config.HashBlake2b
	v, err := NewProofVerifier(cfg)
	r.NoError(err)
	r.ErrorIs(v.Verify(f.sol, f.inst), shared.ErrVerificationFailed)
}

func TestVerify_Concurrent(t *testing.T) {
	r := require.New(t)
	f := fixtures(t)[1]

	v, err := NewProofVerifier(f.cfg)
	r.NoError(err)

	var wg sync.WaitGroup
	errs := make([]error, 16)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = v.Verify(f.sol, f.inst)
		}()
	}
	wg.Wait()
	for _, err := range errs {
		r.NoError(err)
	}
}

func TestVerifyBatch(t *testing.T) {
	r := require.New(t)
	fs := fixtures(t)

	v, err := NewProofVerifier(fs[0].cfg)
	r.NoError(err)

	jobs := make([]Job, 0, len(fs)+1)
	for _, f := range fs {
		jobs = append(jobs, Job{Solution: f.sol, Instance: f.inst})
	}
	jobs = append(jobs, Job{Solution: fs[0].sol, Instance: fs[2].inst})

	errs := v.VerifyBatch(context.Background(), jobs, 3)
	r.Len(errs, len(jobs))
	for i := range fs {
		r.NoError(errs[i])
	}
	r.ErrorIs(errs[len(fs)], shared.ErrInstanceMismatch)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, err := range v.VerifyBatch(ctx, jobs, 2) {
		r.ErrorIs(err, context.Canceled)
	}
}

func TestConcreteScenario(t *testing.T) {
	if testing.Short() {
		t.Skip("2048-bit modulus")
	}
	r := require.New(t)
	ctx := context.Background()

	cfg := config.DefaultConfig()
	x, err := hex.DecodeString("aa1234")
	r.NoError(err)

	inst, td, err := setup.GenerateRSA(nil, x, 1024, config.DefaultIntSizeBits)
	r.NoError(err)
	r.Equal(2048, inst.Setup.Modulus.BitLen())

	sol, err := proving.Generate(ctx, inst, cfg, zaptest.NewLogger(t))
	r.NoError(err)

	withTrapdoor, err := proving.Generate(ctx, inst, cfg, zaptest.NewLogger(t), proving.WithTrapdoor(td), proving.WithZeroizeTrapdoor())
	r.NoError(err)
	r.Equal(sol.Blob(), withTrapdoor.Blob())

	v, err := NewProofVerifier(cfg)
	r.NoError(err)
	r.NoError(v.Verify(sol, inst))

	for i := range sol.Proof {
		tampered := *sol
		tampered.Proof = append([]byte{}, sol.Proof...)
		tampered.Proof[i] ^= 0x5a
		r.ErrorIs(v.Verify(&tampered, inst), shared.ErrVerificationFailed, "byte %d", i)
	}
}
