// Package verifying checks VDF solutions. Verification is pure: a
// ProofVerifier holds no mutable state and is safe for concurrent use.
package verifying

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spacemeshos/vdf/config"
	"github.com/spacemeshos/vdf/group"
	"github.com/spacemeshos/vdf/metrics"
	"github.com/spacemeshos/vdf/oracle"
	"github.com/spacemeshos/vdf/proving"
	"github.com/spacemeshos/vdf/shared"
)

var (
	verifyingMetrics = metrics.NewVerifyingMetrics()

	bigTwo = big.NewInt(2)
)

type ProofVerifier struct {
	oracle *oracle.Oracle
	logger *zap.Logger
}

// NewProofVerifier returns a verifier using the hash algorithm and primality
// rounds of cfg. They must match the ones the prover used.
func NewProofVerifier(cfg config.Config, opts ...OptionFunc) (*ProofVerifier, error) {
	options := &option{
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}
	if err := options.validate(); err != nil {
		return nil, err
	}

	o, err := oracle.New(oracle.WithConfig(cfg))
	if err != nil {
		return nil, err
	}
	return &ProofVerifier{oracle: o, logger: options.logger}, nil
}

// Verify checks that sol is a valid solution of inst. Besides configuration
// errors it returns shared.ErrInstanceMismatch, shared.InvalidIterationsError,
// or an error wrapping shared.ErrVerificationFailed.
func (v *ProofVerifier) Verify(sol *shared.Solution, inst *shared.Instance) (err error) {
	if sol == nil || inst == nil {
		return errors.New("solution and instance are required")
	}
	if !sol.Instance.Equal(inst) {
		return shared.ErrInstanceMismatch
	}

	kind, proofType := inst.Setup.Group.String(), string(sol.ProofType)
	timer := verifyingMetrics.Latency(kind, proofType)
	defer func() {
		status := metrics.StatusOK
		switch {
		case errors.Is(err, shared.ErrVerificationFailed):
			status = metrics.StatusRejected
		case err != nil:
			status = metrics.StatusError
		default:
			timer.ObserveDuration()
		}
		verifyingMetrics.Verifications(kind, proofType, status).Inc()
		v.logger.Debug("verifying: verified solution",
			zap.Stringer("instance", inst),
			zap.String("proof", proofType),
			zap.String("status", status),
			zap.Error(err),
		)
	}()

	if err := sol.ProofType.Validate(); err != nil {
		return err
	}
	if err := proving.CheckIterations(sol.ProofType, inst.Setup.Iterations); err != nil {
		return err
	}

	g, err := group.New(inst.Setup, v.oracle)
	if err != nil {
		return err
	}
	layout := config.DeriveBlobLayout(inst.Setup.IntSizeBits, sol.ProofType, inst.Setup.Iterations)
	if len(sol.Output) != layout.ElementSize {
		return fmt.Errorf("%w: %w", shared.ErrVerificationFailed,
			shared.DeserializationError{What: "output", Expected: layout.ElementSize, Given: len(sol.Output)})
	}
	if size := layout.ElementSize * layout.NumProofElements; len(sol.Proof) != size {
		return fmt.Errorf("%w: %w", shared.ErrVerificationFailed,
			shared.DeserializationError{What: "proof", Expected: size, Given: len(sol.Proof)})
	}

	y, err := decode(g, sol.Output)
	if err != nil {
		return err
	}
	proof := make([]group.Element, layout.NumProofElements)
	for i := range proof {
		if proof[i], err = decode(g, sol.Proof[i*layout.ElementSize:(i+1)*layout.ElementSize]); err != nil {
			return err
		}
	}

	x := g.Base(inst.X)
	switch sol.ProofType {
	case config.ProofPietrzak:
		return verifyPietrzak(g, v.oracle, x, y, inst.Setup.Iterations, proof)
	default:
		return verifyWesolowski(g, v.oracle, inst.Setup, x, y, proof[0])
	}
}

// VerifyBlob verifies a `y ‖ proof` blob produced for inst.
func (v *ProofVerifier) VerifyBlob(inst *shared.Instance, proofType config.ProofType, blob []byte) error {
	if err := proofType.Validate(); err != nil {
		return err
	}
	layout := config.DeriveBlobLayout(inst.Setup.IntSizeBits, proofType, inst.Setup.Iterations)
	output, proof, err := shared.SplitBlob(blob, layout)
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrVerificationFailed, err)
	}
	return v.Verify(&shared.Solution{
		Instance:  *inst,
		ProofType: proofType,
		Output:    output,
		Proof:     proof,
	}, inst)
}

// Job is one solution to check against the instance it claims to solve.
type Job struct {
	Solution *shared.Solution
	Instance *shared.Instance
}

// VerifyBatch verifies independent jobs on up to workers goroutines. The
// result holds one error per job, nil for accepted solutions. Jobs not started
// before ctx is done get ctx.Err().
func (v *ProofVerifier) VerifyBatch(ctx context.Context, jobs []Job, workers int) []error {
	if workers <= 0 {
		workers = 1
	}
	results := make([]error, len(jobs))

	var eg errgroup.Group
	eg.SetLimit(workers)
	for i, job := range jobs {
		if err := ctx.Err(); err != nil {
			results[i] = err
			continue
		}
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = err
				return nil
			}
			results[i] = v.Verify(job.Solution, job.Instance)
			return nil
		})
	}
	_ = eg.Wait()
	return results
}

func decode(g group.Group, b []byte) (group.Element, error) {
	e, err := g.Unmarshal(b)
	switch {
	case err == nil:
		return e, nil
	case errors.Is(err, shared.ErrVerificationFailed):
		return nil, err
	default:
		return nil, fmt.Errorf("%w: %w", shared.ErrVerificationFailed, err)
	}
}

// verifyWesolowski accepts iff π^l · x^r == y, with l the challenge prime and r = 2^t mod l.
func verifyWesolowski(g group.Group, o *oracle.Oracle, setup shared.Setup, x, y, pi group.Element) error {
	l := o.WesolowskiChallenge(g.Marshal(x), g.Marshal(y), setup.Iterations, setup.ModulusBytes())
	r := new(big.Int).Exp(bigTwo, new(big.Int).SetUint64(setup.Iterations), l)

	if !g.Equal(g.Mul(g.Pow(pi, l), g.Pow(x, r)), y) {
		return shared.ErrVerificationFailed
	}
	return nil
}

// verifyPietrzak replays the prover's halving rounds and checks the final claim y == x².
func verifyPietrzak(g group.Group, o *oracle.Oracle, x, y group.Element, t uint64, mus []group.Element) error {
	delay := t
	for _, mu := range mus {
		if delay <= 1 {
			return shared.ErrVerificationFailed
		}
		if delay%2 == 1 {
			y = g.Square(y)
			delay++
		}
		r := o.PietrzakChallenge(g.Marshal(x), g.Marshal(y), g.Marshal(mu), delay)
		x = g.Mul(g.Pow(x, r), mu)
		y = g.Mul(g.Pow(mu, r), y)
		delay /= 2
	}
	if delay != 1 || !g.Equal(y, g.Square(x)) {
		return shared.ErrVerificationFailed
	}
	return nil
}
