package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spacemeshos/vdf/oracle"
	"github.com/spacemeshos/vdf/setup"
	"github.com/spacemeshos/vdf/timelock"
)

func newEncryptCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "encrypt <json>",
		Short: "Seal a message until the delay function of a fresh instance is evaluated",
		Long: `Encrypt reads {"t": <hex>, "original_text": <string>} and seals the text under a key
derived from the VDF output of a new instance. With the RSA group the modulus is generated
here and the trapdoor is used to evaluate quickly; it is wiped afterwards and never printed.
Optional "x", "n", "p" and "q" fields reuse an existing setup.

The output is the JSON input for decrypt.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := parseEnvelope(args[0])
			if err != nil {
				return err
			}

			o, err := oracle.New(oracle.WithConfig(c.cfg))
			if err != nil {
				return err
			}
			inst, td, err := c.instance(env.Record, o, true)
			if err != nil {
				return err
			}
			defer td.Zeroize()

			y, err := evaluate(cmd.Context(), o, inst, td, c.logger)
			if err != nil {
				return err
			}

			plaintext := []byte(env.OriginalText)
			capsule, err := timelock.Seal(nil, y, plaintext, instanceAAD(inst))
			if err != nil {
				return err
			}
			c.logger.Info("message sealed", zap.Int("length", len(plaintext)), zap.Stringer("instance", inst))

			return writeJSON(cmd.OutOrStdout(), envelope{
				Record:        setup.FromInstance(inst, nil),
				MessageLength: len(plaintext),
				Nonce:         capsule.Nonce,
				CipherText:    capsule.Ciphertext,
			})
		},
	}
}
