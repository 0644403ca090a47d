package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spacemeshos/vdf/group"
	"github.com/spacemeshos/vdf/oracle"
	"github.com/spacemeshos/vdf/setup"
	"github.com/spacemeshos/vdf/shared"
	"github.com/spacemeshos/vdf/timelock"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := NewRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--log-level", "error", "--bits", "256"}, args...))
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func testRecord(t *testing.T) string {
	t.Helper()
	o, err := oracle.New()
	require.NoError(t, err)
	n, _, err := group.ModulusFromSeed(o, []byte("cli"), 256)
	require.NoError(t, err)
	inst, err := setup.NewRSA([]byte{0xaa, 0x12, 0x34}, 1024, n, 256)
	require.NoError(t, err)
	data, err := json.Marshal(setup.FromInstance(inst, nil))
	require.NoError(t, err)
	return string(data)
}

func TestEncryptDecrypt(t *testing.T) {
	for _, grp := range []string{"rsa", "classgroup"} {
		t.Run(grp, func(t *testing.T) {
			r := require.New(t)

			out, _, err := execute(t, "--group", grp, "encrypt", `{"t": "80", "original_text": "attack at dawn"}`)
			r.NoError(err)

			var env envelope
			r.NoError(json.Unmarshal([]byte(out), &env))
			r.Equal(14, env.MessageLength)
			r.Len(env.Nonce, timelock.NonceSize)
			r.NotEmpty(env.CipherText)
			r.NotEmpty(env.X)
			r.Nil(env.P)
			r.Nil(env.Q)
			r.NotContains(out, "original_text")

			out, _, err = execute(t, "--group", grp, "decrypt", out)
			r.NoError(err)
			var text string
			r.NoError(json.Unmarshal([]byte(out), &text))
			r.Equal("attack at dawn", text)
		})
	}
}

func TestDecrypt_Tampered(t *testing.T) {
	r := require.New(t)

	out, _, err := execute(t, "encrypt", `{"t": "20", "original_text": "hello"}`)
	r.NoError(err)
	var env envelope
	r.NoError(json.Unmarshal([]byte(out), &env))

	env.CipherText[0] ^= 1
	tampered, err := json.Marshal(env)
	r.NoError(err)
	_, _, err = execute(t, "decrypt", string(tampered))
	r.ErrorIs(err, timelock.ErrAuthentication)

	// a different delay gives a different key
	env.CipherText[0] ^= 1
	env.T = shared.NewHexInt(env.T.Int().Add(env.T.Int(), env.T.Int()))
	shifted, err := json.Marshal(env)
	r.NoError(err)
	_, _, err = execute(t, "decrypt", string(shifted))
	r.ErrorIs(err, timelock.ErrAuthentication)

	_, _, err = execute(t, "decrypt", `{"t": "20", "x": "aa"}`)
	r.Error(err)
}

func TestEncrypt_WithFactors(t *testing.T) {
	r := require.New(t)
	o, err := oracle.New()
	r.NoError(err)
	_, td, err := group.ModulusFromSeed(o, []byte("factors"), 256)
	r.NoError(err)

	in, err := json.Marshal(envelope{
		Record:       setup.Record{T: shared.NewHexInt(big.NewInt(512)), X: shared.HexBytes{1}, P: shared.NewHexInt(td.P), Q: shared.NewHexInt(td.Q)},
		OriginalText: "x",
	})
	r.NoError(err)

	out, _, err := execute(t, "encrypt", string(in))
	r.NoError(err)
	r.NotContains(out, td.P.Text(16))

	out, _, err = execute(t, "decrypt", out)
	r.NoError(err)
	r.Equal("\"x\"\n", out)
}

func TestInvalidIterations(t *testing.T) {
	r := require.New(t)

	_, _, err := execute(t, "--proof", "pietrzak", "encrypt", `{"t": "41", "original_text": "a"}`)
	var iterErr shared.InvalidIterationsError
	r.ErrorAs(err, &iterErr)
	r.Equal(2, exitCode(err))

	_, _, err = execute(t, "encrypt", `{"t": "zz"}`)
	r.Error(err)
	r.Equal(1, exitCode(err))
}

func TestProveVerify(t *testing.T) {
	for _, proof := range []string{"wesolowski", "pietrzak"} {
		t.Run(proof, func(t *testing.T) {
			r := require.New(t)
			datadir := t.TempDir()
			rec := testRecord(t)

			out, _, err := execute(t, "--datadir", datadir, "--proof", proof, "prove", rec)
			r.NoError(err)

			var sol solutionOutput
			r.NoError(json.Unmarshal([]byte(out), &sol))
			r.Equal(proof, sol.Proof)
			r.FileExists(sol.File)
			r.Equal("solutions", filepath.Base(filepath.Dir(sol.File)))

			// blob given explicitly
			out, _, err = execute(t, "--datadir", datadir, "verify", out)
			r.NoError(err)
			r.JSONEq(`{"valid": true}`, out)

			// stored solution
			out, _, err = execute(t, "--datadir", datadir, "--proof", proof, "verify", rec)
			r.NoError(err)
			r.JSONEq(`{"valid": true}`, out)

			sol.Blob[len(sol.Blob)-1] ^= 1
			tampered, err := json.Marshal(sol)
			r.NoError(err)
			_, _, err = execute(t, "--datadir", datadir, "verify", string(tampered))
			r.ErrorIs(err, shared.ErrVerificationFailed)
			r.Equal(3, exitCode(err))
		})
	}
}

func TestVerify_NoSolution(t *testing.T) {
	r := require.New(t)

	_, _, err := execute(t, "--datadir", t.TempDir(), "verify", testRecord(t))
	r.Error(err)

	out, _, err := execute(t, "--datadir", t.TempDir(), "prove", "--no-save", testRecord(t))
	r.NoError(err)
	r.NotContains(out, `"file"`)
}

func TestParams(t *testing.T) {
	r := require.New(t)

	out, _, err := execute(t, "params", "1024", "0x100000")
	r.NoError(err)
	r.Contains(out, "CHECKPOINTS")
	r.Contains(out, "1048576")

	_, _, err = execute(t, "params", "-1")
	r.Error(err)
}

func TestConfig_EnvAndFile(t *testing.T) {
	r := require.New(t)

	t.Setenv("VDF_HASH", "blake2b")
	_, stderr, err := execute(t, "--print-config", "params", "1024")
	r.NoError(err)
	r.Contains(stderr, `Hash: (config.HashAlgorithm) (len=7) "blake2b"`)

	cfgFile := filepath.Join(t.TempDir(), "config.toml")
	r.NoError(os.WriteFile(cfgFile, []byte("rounds = 7\ngroup = \"classgroup\"\n"), 0o600))
	_, stderr, err = execute(t, "--config", cfgFile, "--print-config", "params")
	r.NoError(err)
	r.Contains(stderr, "PrimalityRounds: (int) 7")
	r.Contains(stderr, `Group: (string) (len=10) "classgroup"`)

	// flags win over the file
	_, stderr, err = execute(t, "--config", cfgFile, "--rounds", "9", "--print-config", "params")
	r.NoError(err)
	r.Contains(stderr, "PrimalityRounds: (int) 9")

	_, _, err = execute(t, "--group", "ec", "params")
	r.Error(err)
	r.False(errors.Is(err, shared.ErrVerificationFailed))
}
