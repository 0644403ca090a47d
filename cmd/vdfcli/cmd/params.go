package cmd

import (
	"fmt"
	"strconv"

	"code.cloudfoundry.org/bytefmt"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/spacemeshos/vdf/config"
	"github.com/spacemeshos/vdf/proving"
)

var defaultParamsDelays = []uint64{1 << 10, 1 << 16, 1 << 20, 1 << 24, 1 << 28, 1 << 32}

func newParamsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "params [t...]",
		Short: "Print the optimized prover's parameters and the proof sizes for some delays",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			delays := defaultParamsDelays
			if len(args) > 0 {
				delays = make([]uint64, 0, len(args))
				for _, arg := range args {
					t, err := strconv.ParseUint(arg, 0, 64)
					if err != nil {
						return fmt.Errorf("invalid delay %q: %w", arg, err)
					}
					delays = append(delays, t)
				}
			}

			elementSize := uint64(config.ElementSize(c.cfg.IntSizeBits))
			data := make([][]string, 0, len(delays))
			for _, t := range delays {
				params := proving.ApproximateParameters(t, c.cfg.LogMemory)
				checkpoints := params.NumCheckpoints(t)

				blob := "-"
				if proving.CheckIterations(c.cfg.ProofType, t) == nil {
					layout := config.DeriveBlobLayout(c.cfg.IntSizeBits, c.cfg.ProofType, t)
					blob = bytefmt.ByteSize(uint64(layout.Size()))
				}

				data = append(data, []string{
					strconv.FormatUint(t, 10),
					strconv.FormatUint(params.L, 10),
					strconv.FormatUint(uint64(params.K), 10),
					strconv.FormatUint(params.W, 10),
					strconv.FormatUint(checkpoints, 10),
					bytefmt.ByteSize(checkpoints * elementSize),
					blob,
				})
			}

			fmt.Fprintf(cmd.OutOrStdout(), "group=%v bits=%d proof=%v log-memory=%.2f\n",
				c.cfg.Group, c.cfg.IntSizeBits, c.cfg.ProofType, c.cfg.LogMemory)
			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"t", "L", "k", "w", "checkpoints", "cache", "blob"})
			table.SetBorder(true)
			table.AppendBulk(data)
			table.Render()
			return nil
		},
	}
}
