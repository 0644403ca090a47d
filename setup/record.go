package setup

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/spacemeshos/vdf/config"
	"github.com/spacemeshos/vdf/oracle"
	"github.com/spacemeshos/vdf/shared"
)

// Record is the setup exchange format: hex-encoded `t`, `x` and `n`, plus `p`
// and `q` on the trapdoor side only.
type Record struct {
	T *shared.HexInt `json:"t"`
	X shared.HexBytes `json:"x"`
	N *shared.HexInt  `json:"n,omitempty"`
	P *shared.HexInt  `json:"p,omitempty"`
	Q *shared.HexInt  `json:"q,omitempty"`
}

// FromInstance builds a record for inst. The factors are included only when td is non-nil.
func FromInstance(inst *shared.Instance, td *shared.Trapdoor) Record {
	rec := Record{
		T: shared.NewHexInt(new(big.Int).SetUint64(inst.Setup.Iterations)),
		X: append(shared.HexBytes{}, inst.X...),
		N: shared.NewHexInt(inst.Setup.Modulus),
	}
	if td != nil {
		rec.P = shared.NewHexInt(td.P)
		rec.Q = shared.NewHexInt(td.Q)
	}
	return rec
}

// Iterations decodes `t`.
func (r Record) Iterations() (uint64, error) {
	t := r.T.Int()
	if t == nil {
		return 0, errors.New("record is missing `t`")
	}
	if t.Sign() < 0 || !t.IsUint64() || t.Uint64() > config.MaxIterations {
		return 0, fmt.Errorf("invalid `t`; expected: [0, %d], given: %v", uint64(config.MaxIterations), t)
	}
	return t.Uint64(), nil
}

// Instance reconstructs the instance described by the record. For the RSA
// group the trapdoor is returned when both factors are present; for the class
// group the discriminant is rederived from `x` and must match `n` if given.
func (r Record) Instance(kind config.GroupKind, bits uint16, o *oracle.Oracle) (*shared.Instance, *shared.Trapdoor, error) {
	t, err := r.Iterations()
	if err != nil {
		return nil, nil, err
	}

	switch kind {
	case config.GroupRSA:
		if r.P != nil && r.Q != nil {
			inst, td, err := FromFactors(r.X, t, r.P.Int(), r.Q.Int(), bits)
			if err != nil {
				return nil, nil, err
			}
			if n := r.N.Int(); n != nil && n.Cmp(inst.Setup.Modulus) != 0 {
				return nil, nil, errors.New("`n` does not match `p`·`q`")
			}
			return inst, td, nil
		}
		if r.N == nil {
			return nil, nil, errors.New("record needs either `n` or both `p` and `q`")
		}
		inst, err := NewRSA(r.X, t, r.N.Int(), bits)
		return inst, nil, err

	case config.GroupClass:
		inst, err := NewClassGroup(o, r.X, t, bits)
		if err != nil {
			return nil, nil, err
		}
		if d := r.N.Int(); d != nil && d.Cmp(inst.Setup.Modulus) != 0 {
			return nil, nil, errors.New("`n` does not match the discriminant derived from `x`")
		}
		return inst, nil, nil

	default:
		return nil, nil, fmt.Errorf("unsupported group: %v", kind)
	}
}

func (r Record) MarshalIndent() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// ParseRecord decodes a JSON setup record.
func ParseRecord(data []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return Record{}, fmt.Errorf("failed to parse setup record: %w", err)
	}
	return r, nil
}
