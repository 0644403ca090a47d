// Package cmd implements the vdf command line: timelock encryption on top of
// the VDF plus the prove / verify / params tooling around it.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/spacemeshos/smutil"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/spacemeshos/vdf/config"
	"github.com/spacemeshos/vdf/metrics"
	"github.com/spacemeshos/vdf/shared"
)

var (
	// Version is the version of the binary.
	Version = "0.0.0"

	// Commit is the commit hash of the binary.
	Commit = ""
)

const envPrefix = "VDF"

// cli holds the state shared by all subcommands of one root command.
type cli struct {
	vip    *viper.Viper
	cfg    config.Config
	logger *zap.Logger

	configFile      string
	logLevel        string
	printConfig     bool
	metricsEndpoint string
}

// NewRootCmd builds the command tree. Each call gets its own viper instance so
// commands can be executed repeatedly in one process.
func NewRootCmd() *cobra.Command {
	c := &cli{vip: viper.New()}

	root := &cobra.Command{
		Use:           "vdf",
		Short:         "Verifiable delay functions and timelock encryption",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := c.loadConfig(cmd); err != nil {
				return err
			}
			if c.printConfig {
				spew.Fdump(cmd.ErrOrStderr(), c.cfg)
			}
			return c.buildLogger()
		},
	}
	if Commit != "" {
		root.Version = fmt.Sprintf("%s (%s)", Version, Commit)
	}

	c.setFlags(root)

	root.AddCommand(
		newEncryptCmd(c),
		newDecryptCmd(c),
		newProveCmd(c),
		newVerifyCmd(c),
		newParamsCmd(c),
	)
	return root
}

// Execute runs the CLI and exits with a non-zero status on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := NewRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "vdf:", err)
		stop()
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	var iterErr shared.InvalidIterationsError
	switch {
	case errors.As(err, &iterErr):
		return 2
	case errors.Is(err, shared.ErrVerificationFailed):
		return 3
	default:
		return 1
	}
}

func (c *cli) setFlags(cmd *cobra.Command) {
	def := config.DefaultConfig()
	flags := cmd.PersistentFlags()

	flags.StringVar(&c.configFile, "config", "", "Path to configuration file")
	flags.StringVar(&c.logLevel, "log-level", zapcore.InfoLevel.String(), "log level (debug, info, warn, error)")
	flags.BoolVar(&c.printConfig, "print-config", false, "print the used config to stderr")
	flags.StringVar(&c.metricsEndpoint, "metrics", "", "serve prometheus metrics on this address, e.g. localhost:9090")

	flags.String("datadir", def.DataDir, "filesystem datadir path for stored solutions")
	flags.String("group", def.Group, "group backend (rsa, classgroup)")
	flags.Uint16("bits", def.IntSizeBits, "length in bits of the modulus or discriminant")
	flags.Int("rounds", def.PrimalityRounds, "Miller-Rabin rounds used by hash-to-prime")
	flags.String("hash", string(def.Hash), "hash used by the oracle (sha256, blake2b)")
	flags.String("proof", string(def.ProofType), "proof type (wesolowski, pietrzak)")
	flags.Float64("log-memory", def.LogMemory, "log2 of the number of group elements the prover may cache")

	flags.VisitAll(func(f *pflag.Flag) {
		switch f.Name {
		case "config", "log-level", "print-config", "metrics":
			return
		}
		if err := c.vip.BindPFlag(f.Name, f); err != nil {
			panic(err)
		}
	})
}

// loadConfig merges, by increasing priority, the defaults, the config file,
// VDF_* environment variables and explicitly set flags.
func (c *cli) loadConfig(cmd *cobra.Command) error {
	c.vip.SetEnvPrefix(envPrefix)
	c.vip.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.vip.AutomaticEnv()

	if c.configFile != "" {
		c.vip.SetConfigFile(smutil.GetCanonicalPath(c.configFile))
		if err := c.vip.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := config.DefaultConfig()
	if err := c.vip.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.DataDir = smutil.GetCanonicalPath(cfg.DataDir)

	if err := cfg.Validate(); err != nil {
		return err
	}
	c.cfg = cfg
	return nil
}

func (c *cli) buildLogger() error {
	level, err := zapcore.ParseLevel(c.logLevel)
	if err != nil {
		return fmt.Errorf("invalid `log-level`: %w", err)
	}

	zapCfg := zap.Config{
		Level:    zap.NewAtomicLevelAt(level),
		Encoding: "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "T",
			LevelKey:       "L",
			NameKey:        "N",
			MessageKey:     "M",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
		},
		// stdout carries the command's JSON output.
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize zap logger: %w", err)
	}
	c.logger = logger.Named("vdf")
	return nil
}

// serveMetrics starts the pull service if an endpoint was configured. The
// returned function stops it.
func (c *cli) serveMetrics(ctx context.Context) func() {
	if c.metricsEndpoint == "" {
		return func() {}
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := metrics.NewPullService(c.metricsEndpoint, c.logger).Run(ctx); err != nil {
			c.logger.Error("metrics service failed", zap.Error(err))
		}
	}()
	return func() {
		cancel()
		<-done
	}
}
