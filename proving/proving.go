// Package proving evaluates VDF instances and generates Wesolowski and Pietrzak proofs.
package proving

import (
	"context"
	"errors"
	"fmt"
	"time"

	"code.cloudfoundry.org/bytefmt"
	"go.uber.org/zap"

	"github.com/spacemeshos/vdf/config"
	"github.com/spacemeshos/vdf/group"
	"github.com/spacemeshos/vdf/metrics"
	"github.com/spacemeshos/vdf/oracle"
	"github.com/spacemeshos/vdf/shared"
)

var provingMetrics = metrics.NewProvingMetrics()

// Generate evaluates inst and proves the output with the proof type of cfg.
func Generate(ctx context.Context, inst *shared.Instance, cfg config.Config, logger *zap.Logger, opts ...OptionFunc) (*shared.Solution, error) {
	options := &option{
		strategy:  StrategyAuto,
		logMemory: cfg.LogMemory,
	}
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}
	if err := options.validate(); err != nil {
		return nil, err
	}
	if options.zeroize {
		defer options.trapdoor.Zeroize()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := shared.CheckConfig(cfg, inst); err != nil {
		return nil, err
	}
	t := inst.Setup.Iterations
	if err := CheckIterations(cfg.ProofType, t); err != nil {
		return nil, err
	}

	o, err := oracle.New(oracle.WithConfig(cfg))
	if err != nil {
		return nil, err
	}
	g, err := group.New(inst.Setup, o)
	if err != nil {
		return nil, err
	}

	strategy := options.strategy
	if strategy == StrategyAuto {
		strategy = StrategyOptimized
		if options.trapdoor != nil {
			strategy = StrategyTrapdoor
		}
	}

	logger = logger.With(
		zap.Stringer("group", g.Kind()),
		zap.String("proof", string(cfg.ProofType)),
		zap.String("strategy", string(strategy)),
		zap.Uint64("t", t),
		zap.Uint16("bits", inst.Setup.IntSizeBits),
	)
	logger.Info("proving: starting proof generation")

	timer := provingMetrics.Latency(g.Kind().String(), string(cfg.ProofType))
	start := time.Now()

	p := &prover{
		g:        g,
		o:        o,
		setup:    inst.Setup,
		x:        g.Base(inst.X),
		trapdoor: options.trapdoor,
		logger:   logger,
	}

	var y group.Element
	var proof []group.Element
	switch cfg.ProofType {
	case config.ProofPietrzak:
		y, proof, err = p.pietrzak(ctx, strategy)
	default:
		var pi group.Element
		y, pi, err = p.wesolowski(ctx, strategy, options.logMemory)
		proof = []group.Element{pi}
	}
	if err != nil {
		status := metrics.StatusError
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			logger.Info("proving: proof generation interrupted", zap.Error(err))
		} else {
			logger.Error("proving: proof generation failed", zap.Error(err))
		}
		provingMetrics.Proofs(g.Kind().String(), string(cfg.ProofType), string(strategy), status).Inc()
		return nil, err
	}
	timer.ObserveDuration()
	provingMetrics.Proofs(g.Kind().String(), string(cfg.ProofType), string(strategy), metrics.StatusOK).Inc()

	sol := &shared.Solution{
		Instance:  *inst,
		ProofType: cfg.ProofType,
		Output:    g.Marshal(y),
	}
	for _, e := range proof {
		sol.Proof = append(sol.Proof, g.Marshal(e)...)
	}

	logger.Info("proving: generated proof",
		zap.Duration("duration", time.Since(start)),
		zap.String("blob size", bytefmt.ByteSize(uint64(len(sol.Output)+len(sol.Proof)))),
	)
	return sol, nil
}

type prover struct {
	g        group.Group
	o        *oracle.Oracle
	setup    shared.Setup
	x        group.Element
	trapdoor *shared.Trapdoor
	logger   *zap.Logger
}

func (p *prover) wesolowski(ctx context.Context, strategy Strategy, logMemory float64) (y, pi group.Element, err error) {
	t := p.setup.Iterations
	kind := p.g.Kind().String()

	switch strategy {
	case StrategyTrapdoor:
		if y, err = EvaluateWithTrapdoor(p.g, p.x, t, p.trapdoor); err != nil {
			return nil, nil, err
		}
		l := p.o.WesolowskiChallenge(p.g.Marshal(p.x), p.g.Marshal(y), t, p.setup.ModulusBytes())
		pi, err = ProveWithTrapdoor(p.g, p.x, t, l, p.trapdoor)
		return y, pi, err

	case StrategyLongDivision:
		provingMetrics.Squarings(kind).Add(float64(t))
		if y, err = Evaluate(ctx, p.g, p.x, t); err != nil {
			return nil, nil, err
		}
		l := p.o.WesolowskiChallenge(p.g.Marshal(p.x), p.g.Marshal(y), t, p.setup.ModulusBytes())
		pi, _, err = ProveLongDivision(ctx, p.g, p.x, t, l)
		return y, pi, err

	default:
		params := ApproximateParameters(t, logMemory)
		counts := checkpointCounts(t, params)
		p.logger.Debug("proving: computing checkpoints",
			zap.Uint64("L", params.L),
			zap.Uint("k", params.K),
			zap.Uint64("w", params.W),
			zap.Int("checkpoints", len(counts)),
			zap.String("checkpoint memory", bytefmt.ByteSize(uint64(len(counts))*uint64(p.g.ElementSize()))),
		)

		provingMetrics.Squarings(kind).Add(float64(t))
		var checkpoints Checkpoints
		if checkpoints, err = IterateSquarings(ctx, p.g, p.x, counts); err != nil {
			return nil, nil, err
		}
		y, _ = checkpoints.At(t)
		l := p.o.WesolowskiChallenge(p.g.Marshal(p.x), p.g.Marshal(y), t, p.setup.ModulusBytes())
		pi, err = ProveOptimized(ctx, p.g, t, l, params, checkpoints)
		return y, pi, err
	}
}

func (p *prover) pietrzak(ctx context.Context, strategy Strategy) (group.Element, []group.Element, error) {
	t := p.setup.Iterations

	square := sequentialSquarer(p.g)
	if strategy == StrategyTrapdoor {
		phi, err := totient(p.g, p.trapdoor)
		if err != nil {
			return nil, nil, err
		}
		square = trapdoorSquarer(p.g, phi)
	} else {
		provingMetrics.Squarings(p.g.Kind().String()).Add(float64(2 * t))
	}

	y, err := square(ctx, p.x, t)
	if err != nil {
		return nil, nil, err
	}
	mus, err := provePietrzak(ctx, p.g, p.o, p.x, y, t, square)
	if err != nil {
		return nil, nil, fmt.Errorf("pietrzak proof: %w", err)
	}
	return y, mus, nil
}
