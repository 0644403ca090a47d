package config_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spacemeshos/vdf/config"
)

func TestDefaultConfigIsValid(t *testing.T) {
	t.Parallel()
	cfg := config.DefaultConfig()
	require.NoError(t, cfg.Validate())

	kind, err := cfg.GroupKind()
	require.NoError(t, err)
	require.Equal(t, config.GroupRSA, kind)
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(*config.Config)
		errMsg string
	}{
		{"unknown group", func(c *config.Config) { c.Group = "ecc" }, "invalid `group`"},
		{"bits too small", func(c *config.Config) { c.IntSizeBits = 64 }, "invalid `bits`"},
		{"odd bits", func(c *config.Config) { c.IntSizeBits = 1025 }, "invalid `bits`"},
		{"zero rounds", func(c *config.Config) { c.PrimalityRounds = 0 }, "invalid `rounds`"},
		{"unknown hash", func(c *config.Config) { c.Hash = "md5" }, "invalid `hash`"},
		{"unknown proof", func(c *config.Config) { c.ProofType = "snark" }, "invalid `proof`"},
		{"no memory", func(c *config.Config) { c.LogMemory = 0 }, "invalid `log-memory`"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := config.DefaultConfig()
			tc.modify(&cfg)
			require.ErrorContains(t, cfg.Validate(), tc.errMsg)
		})
	}
}

func TestParseGroupKind(t *testing.T) {
	r := require.New(t)

	k, err := config.ParseGroupKind("RSA")
	r.NoError(err)
	r.Equal(config.GroupRSA, k)

	k, err = config.ParseGroupKind("classgroup")
	r.NoError(err)
	r.Equal(config.GroupClass, k)
	r.Equal("classgroup", k.String())

	_, err = config.ParseGroupKind("")
	r.Error(err)
}

func TestElementSize(t *testing.T) {
	r := require.New(t)

	r.Equal(129, config.IntSize(2048))
	r.Equal(258, config.ElementSize(2048))
	r.Equal(2*((1024+16)>>4), config.ElementSize(1024))
}

func TestPietrzakRounds(t *testing.T) {
	r := require.New(t)

	r.Equal(0, config.PietrzakRounds(0))
	r.Equal(0, config.PietrzakRounds(1))
	r.Equal(1, config.PietrzakRounds(2))
	r.Equal(2, config.PietrzakRounds(3)) // 3 -> 4 -> 2 -> 1
	r.Equal(6, config.PietrzakRounds(64))
	r.Equal(7, config.PietrzakRounds(66)) // 66 -> 33 -> 17 -> 9 -> 5 -> 3 -> 2 -> 1
}

func TestDeriveBlobLayout(t *testing.T) {
	r := require.New(t)

	l := config.DeriveBlobLayout(2048, config.ProofWesolowski, 1<<20)
	r.Equal(4*((2048+16)>>4), l.Size())

	l = config.DeriveBlobLayout(2048, config.ProofPietrzak, 66)
	r.Equal(7, l.NumProofElements)
	r.Equal(8*258, l.Size())
}
