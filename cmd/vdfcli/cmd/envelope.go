package cmd

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/spacemeshos/vdf/config"
	"github.com/spacemeshos/vdf/group"
	"github.com/spacemeshos/vdf/oracle"
	"github.com/spacemeshos/vdf/proving"
	"github.com/spacemeshos/vdf/setup"
	"github.com/spacemeshos/vdf/shared"
)

// envelope is the JSON document exchanged by encrypt and decrypt. The setup
// fields `t, x, n, p, q` come from the embedded record.
type envelope struct {
	setup.Record

	MessageLength int             `json:"message_length"`
	Nonce         shared.HexBytes `json:"nonce,omitempty"`
	OriginalText  string          `json:"original_text,omitempty"`
	CipherText    shared.HexBytes `json:"cipher_text,omitempty"`
}

func parseEnvelope(arg string) (envelope, error) {
	var env envelope
	if err := json.Unmarshal([]byte(arg), &env); err != nil {
		return envelope{}, fmt.Errorf("failed to parse json data: %w", err)
	}
	return env, nil
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// instanceAAD binds a capsule to the public instance it was sealed for.
func instanceAAD(inst *shared.Instance) []byte {
	aad := make([]byte, 0, 1+2+8+len(inst.X)+len(inst.Setup.ModulusBytes()))
	aad = append(aad, byte(inst.Setup.Group))
	aad = binary.BigEndian.AppendUint16(aad, inst.Setup.IntSizeBits)
	aad = binary.BigEndian.AppendUint64(aad, inst.Setup.Iterations)
	aad = append(aad, inst.X...)
	return append(aad, inst.Setup.ModulusBytes()...)
}

// evaluate computes the serialized VDF output of inst, through the trapdoor when one is given.
func evaluate(ctx context.Context, o *oracle.Oracle, inst *shared.Instance, td *shared.Trapdoor, logger *zap.Logger) ([]byte, error) {
	g, err := group.New(inst.Setup, o)
	if err != nil {
		return nil, err
	}

	x := g.Base(inst.X)
	start := time.Now()
	var y group.Element
	if td != nil {
		y, err = proving.EvaluateWithTrapdoor(g, x, inst.Setup.Iterations, td)
	} else {
		logger.Info("evaluating delay function", zap.Uint64("t", inst.Setup.Iterations), zap.Stringer("group", inst.Setup.Group))
		y, err = proving.Evaluate(ctx, g, x, inst.Setup.Iterations)
	}
	if err != nil {
		return nil, err
	}
	logger.Debug("evaluation completed", zap.Duration("duration", time.Since(start)), zap.Bool("trapdoor", td != nil))
	return g.Marshal(y), nil
}

// instance reconstructs the instance described by rec under the configured
// group. With fresh set, a missing challenge is sampled and an RSA record
// without a modulus gets a newly generated one together with its trapdoor.
func (c *cli) instance(rec setup.Record, o *oracle.Oracle, fresh bool) (*shared.Instance, *shared.Trapdoor, error) {
	kind, err := c.cfg.GroupKind()
	if err != nil {
		return nil, nil, err
	}
	t, err := rec.Iterations()
	if err != nil {
		return nil, nil, err
	}
	if err := proving.CheckIterations(c.cfg.ProofType, t); err != nil {
		return nil, nil, err
	}

	if fresh && len(rec.X) == 0 {
		if rec.X, err = setup.RandomChallenge(nil, config.DefaultChallengeSize); err != nil {
			return nil, nil, err
		}
	}
	if fresh && kind == config.GroupRSA && rec.N == nil && rec.P == nil && rec.Q == nil {
		c.logger.Info("generating RSA modulus", zap.Uint16("bits", c.cfg.IntSizeBits))
		return setup.GenerateRSA(nil, rec.X, t, c.cfg.IntSizeBits)
	}
	return rec.Instance(kind, c.cfg.IntSizeBits, o)
}
