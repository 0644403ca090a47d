package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spacemeshos/vdf/oracle"
	"github.com/spacemeshos/vdf/timelock"
)

func newDecryptCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "decrypt <json>",
		Short: "Evaluate the delay function and open a sealed message",
		Long: `Decrypt reads the output of encrypt, evaluates the VDF of the public instance by
sequential squaring and prints the recovered text as a JSON string.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := parseEnvelope(args[0])
			if err != nil {
				return err
			}
			if len(env.CipherText) == 0 || len(env.Nonce) == 0 {
				return errors.New("`cipher_text` and `nonce` are required")
			}

			o, err := oracle.New(oracle.WithConfig(c.cfg))
			if err != nil {
				return err
			}
			inst, td, err := c.instance(env.Record, o, false)
			if err != nil {
				return err
			}
			defer td.Zeroize()

			y, err := evaluate(cmd.Context(), o, inst, td, c.logger)
			if err != nil {
				return err
			}

			capsule := &timelock.Capsule{Nonce: env.Nonce, Ciphertext: env.CipherText}
			plaintext, err := timelock.Open(y, capsule, instanceAAD(inst))
			if err != nil {
				return err
			}
			if len(plaintext) != env.MessageLength {
				return fmt.Errorf("invalid `message_length`; expected: %d, given: %d", len(plaintext), env.MessageLength)
			}
			return writeJSON(cmd.OutOrStdout(), string(plaintext))
		},
	}
}
