package shared_test

import (
	"encoding/json"
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spacemeshos/vdf/config"
	"github.com/spacemeshos/vdf/shared"
)

func TestMarshalHexBytes(t *testing.T) {
	n := shared.HexBytes{0x01, 0x02, 0x03}
	data, err := n.MarshalJSON()
	require.NoError(t, err)
	require.EqualValues(t, `"010203"`, data)
}

func TestUnmarshalHexBytes(t *testing.T) {
	data := `"010203"`
	n := shared.HexBytes{}
	err := n.UnmarshalJSON([]byte(data))
	require.NoError(t, err)
	require.Equal(t, shared.HexBytes{0x01, 0x02, 0x03}, n)

	require.Error(t, n.UnmarshalJSON([]byte(`"0g"`)))
}

func TestHexInt(t *testing.T) {
	r := require.New(t)

	var v struct {
		N *shared.HexInt `json:"n"`
	}
	r.NoError(json.Unmarshal([]byte(`{"n": "-f1"}`), &v))
	r.Zero(v.N.Int().Cmp(big.NewInt(-241)))

	data, err := json.Marshal(v)
	r.NoError(err)
	r.JSONEq(`{"n": "-f1"}`, string(data))

	r.Error(json.Unmarshal([]byte(`{"n": "0x10"}`), &v))

	// the wrapper does not alias its source
	src := big.NewInt(5)
	h := shared.NewHexInt(src)
	src.SetInt64(6)
	r.Zero(h.Int().Cmp(big.NewInt(5)))

	r.Nil(shared.NewHexInt(nil))
	r.Nil((*shared.HexInt)(nil).Int())
}

func TestTrapdoor(t *testing.T) {
	r := require.New(t)

	td := &shared.Trapdoor{P: big.NewInt(11), Q: big.NewInt(13)}
	r.True(td.Valid(big.NewInt(143)))
	r.False(td.Valid(big.NewInt(145)))
	r.Zero(td.Phi().Cmp(big.NewInt(120)))

	for _, bad := range []*shared.Trapdoor{
		{P: big.NewInt(143), Q: big.NewInt(1)},
		{P: big.NewInt(1), Q: big.NewInt(143)},
		{P: big.NewInt(-11), Q: big.NewInt(-13)},
		{P: big.NewInt(15), Q: big.NewInt(7)},
		{P: big.NewInt(3), Q: big.NewInt(35)},
	} {
		r.False(bad.Valid(new(big.Int).Mul(bad.P, bad.Q)), "%v·%v", bad.P, bad.Q)
	}
	r.False((&shared.Trapdoor{P: big.NewInt(11), Q: big.NewInt(11)}).Valid(big.NewInt(121)))

	td.Zeroize()
	r.False(td.Valid(big.NewInt(143)))
	r.Zero(td.P.Sign())

	var missing *shared.Trapdoor
	r.False(missing.Valid(big.NewInt(143)))
	missing.Zeroize()
}

func TestSetup_Validate(t *testing.T) {
	tests := []struct {
		name  string
		setup shared.Setup
		valid bool
	}{
		{"rsa", shared.Setup{Group: config.GroupRSA, IntSizeBits: 16, Modulus: big.NewInt(143)}, true},
		{"class group", shared.Setup{Group: config.GroupClass, IntSizeBits: 16, Modulus: big.NewInt(-23)}, true},
		{"missing modulus", shared.Setup{Group: config.GroupRSA, IntSizeBits: 16}, false},
		{"negative rsa modulus", shared.Setup{Group: config.GroupRSA, IntSizeBits: 16, Modulus: big.NewInt(-143)}, false},
		{"positive discriminant", shared.Setup{Group: config.GroupClass, IntSizeBits: 16, Modulus: big.NewInt(23)}, false},
		{"unknown group", shared.Setup{IntSizeBits: 16, Modulus: big.NewInt(143)}, false},
		{"too wide", shared.Setup{Group: config.GroupRSA, IntSizeBits: 4, Modulus: big.NewInt(143)}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.setup.Validate()
			if tc.valid {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}

func TestInstance_Equal(t *testing.T) {
	r := require.New(t)

	a := &shared.Instance{X: []byte{1}, Setup: shared.Setup{Group: config.GroupRSA, IntSizeBits: 16, Iterations: 3, Modulus: big.NewInt(143)}}
	b := &shared.Instance{X: []byte{1}, Setup: shared.Setup{Group: config.GroupRSA, IntSizeBits: 16, Iterations: 3, Modulus: big.NewInt(143)}}
	r.True(a.Equal(b))

	b.Setup.Iterations = 4
	r.False(a.Equal(b))
	b.Setup.Iterations = 3
	b.X = []byte{2}
	r.False(a.Equal(b))

	r.False(a.Equal(nil))
	r.True((*shared.Instance)(nil).Equal(nil))
}

func TestSplitBlob(t *testing.T) {
	r := require.New(t)
	layout := config.DeriveBlobLayout(128, config.ProofWesolowski, 10)

	sol := &shared.Solution{Output: make([]byte, layout.ElementSize), Proof: make([]byte, layout.ElementSize)}
	sol.Output[0], sol.Proof[0] = 1, 2

	y, pi, err := shared.SplitBlob(sol.Blob(), layout)
	r.NoError(err)
	r.Equal(sol.Output, y)
	r.Equal(sol.Proof, pi)

	_, _, err = shared.SplitBlob(sol.Blob()[1:], layout)
	var derr shared.DeserializationError
	r.ErrorAs(err, &derr)
	r.Equal(layout.Size(), derr.Expected)
	r.Equal(layout.Size()-1, derr.Given)
}

func TestErrors(t *testing.T) {
	r := require.New(t)

	r.ErrorIs(shared.ErrOutOfRange, shared.ErrVerificationFailed)

	inner := errors.New("bad form")
	err := shared.DeserializationError{What: "element", Err: inner}
	r.ErrorIs(err, inner)
	r.Contains(err.Error(), "bad form")
}

func TestCheckConfig(t *testing.T) {
	r := require.New(t)

	cfg := config.DefaultConfig()
	inst := &shared.Instance{Setup: shared.Setup{Group: config.GroupRSA, IntSizeBits: cfg.IntSizeBits}}
	r.NoError(shared.CheckConfig(cfg, inst))

	inst.Setup.IntSizeBits = 1024
	var mismatch shared.ConfigMismatchError
	r.ErrorAs(shared.CheckConfig(cfg, inst), &mismatch)
	r.Equal("bits", mismatch.Param)

	inst.Setup.Group = config.GroupClass
	r.ErrorAs(shared.CheckConfig(cfg, inst), &mismatch)
	r.Equal("group", mismatch.Param)
}
