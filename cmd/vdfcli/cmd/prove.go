package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spacemeshos/vdf/config"
	"github.com/spacemeshos/vdf/oracle"
	"github.com/spacemeshos/vdf/persistence"
	"github.com/spacemeshos/vdf/proving"
	"github.com/spacemeshos/vdf/setup"
	"github.com/spacemeshos/vdf/shared"
	"github.com/spacemeshos/vdf/verifying"
)

// solutionOutput is printed by prove and accepted by verify.
type solutionOutput struct {
	setup.Record

	Proof string          `json:"proof"`
	Blob  shared.HexBytes `json:"blob"`
	File  string          `json:"file,omitempty"`
}

func newProveCmd(c *cli) *cobra.Command {
	var (
		strategy string
		noSave   bool
	)

	cmd := &cobra.Command{
		Use:   "prove <json>",
		Short: "Evaluate an instance and prove the output",
		Long: `Prove reads a setup record {"t", "x", "n"} and computes the VDF output together with a
proof of the configured type. If the record carries the factors "p" and "q" they are used as a
trapdoor. The solution is stored under the datadir unless --no-save is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := setup.ParseRecord([]byte(args[0]))
			if err != nil {
				return err
			}
			o, err := oracle.New(oracle.WithConfig(c.cfg))
			if err != nil {
				return err
			}
			inst, td, err := c.instance(rec, o, false)
			if err != nil {
				return err
			}

			opts := []proving.OptionFunc{proving.WithStrategy(proving.Strategy(strategy))}
			if td != nil {
				opts = append(opts, proving.WithTrapdoor(td), proving.WithZeroizeTrapdoor())
			}

			stop := c.serveMetrics(cmd.Context())
			defer stop()

			sol, err := proving.Generate(cmd.Context(), inst, c.cfg, c.logger, opts...)
			if err != nil {
				return err
			}

			out := solutionOutput{
				Record: setup.FromInstance(inst, nil),
				Proof:  string(sol.ProofType),
				Blob:   sol.Blob(),
			}
			if !noSave {
				if out.File, err = persistence.SaveSolution(c.cfg.DataDir, sol); err != nil {
					return err
				}
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().StringVar(&strategy, "strategy", string(proving.StrategyAuto), "wesolowski prover (auto, long-division, optimized, trapdoor)")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the solution in the datadir")
	return cmd
}

func newVerifyCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <json>",
		Short: "Verify a solution",
		Long: `Verify reads the output of prove. If it carries a "blob" (y ‖ proof, hex) that blob is
checked, otherwise the solution stored in the datadir for the instance is loaded and checked.
A "proof" field overrides the configured proof type.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in solutionOutput
			if err := json.Unmarshal([]byte(args[0]), &in); err != nil {
				return fmt.Errorf("failed to parse json data: %w", err)
			}
			if in.Proof != "" {
				proofType := config.ProofType(in.Proof)
				if err := proofType.Validate(); err != nil {
					return err
				}
				c.cfg.ProofType = proofType
			}

			o, err := oracle.New(oracle.WithConfig(c.cfg))
			if err != nil {
				return err
			}
			inst, td, err := c.instance(in.Record, o, false)
			if err != nil {
				return err
			}
			td.Zeroize()

			verifier, err := verifying.NewProofVerifier(c.cfg, verifying.WithLogger(c.logger))
			if err != nil {
				return err
			}

			stop := c.serveMetrics(cmd.Context())
			defer stop()

			if len(in.Blob) > 0 {
				err = verifier.VerifyBlob(inst, c.cfg.ProofType, in.Blob)
			} else {
				var sol *shared.Solution
				sol, err = persistence.LoadSolution(c.cfg.DataDir, inst, c.cfg.ProofType)
				if errors.Is(err, persistence.ErrSolutionNotExist) {
					return fmt.Errorf("no `blob` given: %w", err)
				}
				if err != nil {
					return err
				}
				err = verifier.Verify(sol, inst)
			}
			if err != nil {
				return err
			}
			c.logger.Info("solution is valid", zap.Stringer("instance", inst))
			return writeJSON(cmd.OutOrStdout(), map[string]bool{"valid": true})
		},
	}
}
