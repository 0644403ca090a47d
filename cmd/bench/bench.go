package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"time"

	"code.cloudfoundry.org/bytefmt"
	"github.com/olekukonko/tablewriter"
	"github.com/shirou/gopsutil/mem"
	"go.uber.org/zap"

	"github.com/spacemeshos/vdf/config"
	"github.com/spacemeshos/vdf/group"
	"github.com/spacemeshos/vdf/oracle"
	"github.com/spacemeshos/vdf/proving"
	"github.com/spacemeshos/vdf/setup"
	"github.com/spacemeshos/vdf/verifying"
)

var challenge = []byte("this is a challenge")

type testCase struct {
	cfg config.Config
	t   uint64
}

func main() {
	defaults := config.DefaultConfig()
	bits := flag.Uint("bits", uint(defaults.IntSizeBits), "length in bits of the modulus or discriminant")
	minLogT := flag.Uint("min-log-t", 10, "log2 of the smallest delay")
	maxLogT := flag.Uint("max-log-t", 16, "log2 of the largest delay")
	single := flag.Bool("single", false, "whether to execute a single test instead of the complete set")
	flag.Parse()

	logMemory := memoryBudget(uint16(*bits), defaults.LogMemory)
	log.Printf("bench config: bits: %v, delays: 2^%v..2^%v, log-memory: %.2f", *bits, *minLogT, *maxLogT, logMemory)

	cases := genTestCases(uint16(*bits), *minLogT, *maxLogT, logMemory, *single)
	data := make([][]string, 0, len(cases))
	for i, tc := range cases {
		log.Printf("test %v/%v starting...", i+1, len(cases))
		tStart := time.Now()

		row, err := run(tc)
		if err != nil {
			log.Fatalf("test %v/%v failed: %v", i+1, len(cases), err)
		}
		data = append(data, row)

		log.Printf("test %v/%v completed, %v", i+1, len(cases), time.Since(tStart))
	}

	header := []string{"group", "proof", "t", "eval", "eval-td", "prove", "verify", "blob"}
	report(uint16(*bits), header, data)
}

// memoryBudget lowers logMemory so the prover's checkpoints fit into half of the available memory.
func memoryBudget(bits uint16, logMemory float64) float64 {
	vm, err := mem.VirtualMemory()
	if err != nil {
		log.Printf("failed to query available memory, using log-memory %.2f: %v", logMemory, err)
		return logMemory
	}
	elements := float64(vm.Available/2) / float64(config.ElementSize(bits))
	if elements < 2 {
		return 1
	}
	return math.Min(logMemory, math.Log2(elements))
}

func run(tc testCase) ([]string, error) {
	ctx := context.Background()
	o, err := oracle.New(oracle.WithConfig(tc.cfg))
	if err != nil {
		return nil, err
	}
	inst, td, err := setup.New(tc.cfg, o, nil, challenge, tc.t)
	if err != nil {
		return nil, err
	}
	g, err := group.New(inst.Setup, o)
	if err != nil {
		return nil, err
	}
	x := g.Base(inst.X)

	t := time.Now()
	if _, err := proving.Evaluate(ctx, g, x, tc.t); err != nil {
		return nil, err
	}
	eEval := time.Since(t)

	eEvalTd := "-"
	if td != nil {
		t = time.Now()
		if _, err := proving.EvaluateWithTrapdoor(g, x, tc.t, td); err != nil {
			return nil, err
		}
		eEvalTd = round(time.Since(t))
	}

	t = time.Now()
	sol, err := proving.Generate(ctx, inst, tc.cfg, zap.NewNop(), proving.WithStrategy(proving.StrategyOptimized))
	if err != nil {
		return nil, err
	}
	eProve := time.Since(t)

	verifier, err := verifying.NewProofVerifier(tc.cfg)
	if err != nil {
		return nil, err
	}
	t = time.Now()
	if err := verifier.Verify(sol, inst); err != nil {
		return nil, err
	}
	eVerify := time.Since(t)

	return []string{
		tc.cfg.Group,
		string(tc.cfg.ProofType),
		strconv.FormatUint(tc.t, 10),
		round(eEval),
		eEvalTd,
		round(eProve),
		round(eVerify),
		bytefmt.ByteSize(uint64(len(sol.Blob()))),
	}, nil
}

func round(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}

func report(bits uint16, header []string, data [][]string) {
	fmt.Printf("\n\nBENCHMARKS: bits=%v\n", bits)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(header)
	table.SetBorder(true)
	table.AppendBulk(data)
	table.Render()
}

func genTestCases(bits uint16, minLogT, maxLogT uint, logMemory float64, single bool) []testCase {
	def := config.DefaultConfig()
	def.IntSizeBits = bits
	def.LogMemory = logMemory

	if single {
		return []testCase{{cfg: def, t: 1 << minLogT}}
	}

	cases := make([]testCase, 0)
	for _, kind := range []config.GroupKind{config.GroupRSA, config.GroupClass} {
		for _, proof := range []config.ProofType{config.ProofWesolowski, config.ProofPietrzak} {
			for logT := minLogT; logT <= maxLogT; logT += 2 {
				cfg := def
				cfg.Group = kind.String()
				cfg.ProofType = proof
				t := uint64(1) << logT
				if proving.CheckIterations(proof, t) != nil {
					continue
				}
				cases = append(cases, testCase{cfg: cfg, t: t})
			}
		}
	}
	return cases
}
