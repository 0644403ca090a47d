package config

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/spacemeshos/smutil"
)

const (
	MinIntSizeBits = 128
	MaxIntSizeBits = 1 << 14

	MinPrimalityRounds = 1
	MaxPrimalityRounds = 128

	// MaxIterations bounds t so that the parameter selector's float arithmetic stays exact.
	MaxIterations = 1 << 53

	// PietrzakMinIterations is the smallest delay accepted for Pietrzak proofs.
	PietrzakMinIterations = 66
)

const (
	DefaultDataDirName     = "data"
	DefaultIntSizeBits     = 2048
	DefaultPrimalityRounds = 20
	DefaultChallengeSize   = 32 // 256 bits
)

var (
	DefaultDataDir = filepath.Join(smutil.GetUserHomeDirectory(), "vdf", DefaultDataDirName)

	// DefaultLogMemory is log2 of the number of group elements the optimized prover may keep around.
	DefaultLogMemory = math.Log2(10_000_000)
)

// GroupKind selects the group backend a VDF instance is evaluated in.
type GroupKind uint8

const (
	GroupRSA GroupKind = iota + 1
	GroupClass
)

func (k GroupKind) String() string {
	switch k {
	case GroupRSA:
		return "rsa"
	case GroupClass:
		return "classgroup"
	default:
		return fmt.Sprintf("GroupKind(%d)", uint8(k))
	}
}

// ParseGroupKind parses the textual group name used in configuration files and flags.
func ParseGroupKind(s string) (GroupKind, error) {
	switch strings.ToLower(s) {
	case "rsa":
		return GroupRSA, nil
	case "classgroup", "class":
		return GroupClass, nil
	default:
		return 0, fmt.Errorf("invalid `group`; expected: rsa or classgroup, given: %q", s)
	}
}

type ProofType string

const (
	ProofWesolowski ProofType = "wesolowski"
	ProofPietrzak   ProofType = "pietrzak"
)

func (p ProofType) Validate() error {
	switch p {
	case ProofWesolowski, ProofPietrzak:
		return nil
	default:
		return fmt.Errorf("invalid `proof`; expected: %v or %v, given: %q", ProofWesolowski, ProofPietrzak, string(p))
	}
}

type HashAlgorithm string

const (
	HashSHA256  HashAlgorithm = "sha256"
	HashBlake2b HashAlgorithm = "blake2b"
)

func (h HashAlgorithm) Validate() error {
	switch h {
	case HashSHA256, HashBlake2b:
		return nil
	default:
		return fmt.Errorf("invalid `hash`; expected: %v or %v, given: %q", HashSHA256, HashBlake2b, string(h))
	}
}

type Config struct {
	DataDir string `mapstructure:"datadir"`

	// Protocol params. Prover and verifier must agree on all of them.
	Group           string        `mapstructure:"group"`
	IntSizeBits     uint16        `mapstructure:"bits"`
	PrimalityRounds int           `mapstructure:"rounds"`
	Hash            HashAlgorithm `mapstructure:"hash"`
	ProofType       ProofType     `mapstructure:"proof"`

	// LogMemory only affects how the optimized prover trades memory for time.
	LogMemory float64 `mapstructure:"log-memory"`
}

func (cfg *Config) GroupKind() (GroupKind, error) {
	return ParseGroupKind(cfg.Group)
}

func (cfg *Config) Validate() error {
	if _, err := cfg.GroupKind(); err != nil {
		return err
	}

	if cfg.IntSizeBits < MinIntSizeBits {
		return fmt.Errorf("invalid `bits`; expected: >= %d, given: %d", MinIntSizeBits, cfg.IntSizeBits)
	}

	if cfg.IntSizeBits > MaxIntSizeBits {
		return fmt.Errorf("invalid `bits`; expected: <= %d, given: %d", MaxIntSizeBits, cfg.IntSizeBits)
	}

	if cfg.IntSizeBits%2 != 0 {
		return fmt.Errorf("invalid `bits`; expected: an even number, given: %d", cfg.IntSizeBits)
	}

	if cfg.PrimalityRounds < MinPrimalityRounds || cfg.PrimalityRounds > MaxPrimalityRounds {
		return fmt.Errorf("invalid `rounds`; expected: [%d, %d], given: %d", MinPrimalityRounds, MaxPrimalityRounds, cfg.PrimalityRounds)
	}

	if err := cfg.Hash.Validate(); err != nil {
		return err
	}

	if err := cfg.ProofType.Validate(); err != nil {
		return err
	}

	if cfg.LogMemory <= 0 || math.IsNaN(cfg.LogMemory) || math.IsInf(cfg.LogMemory, 0) {
		return fmt.Errorf("invalid `log-memory`; expected: > 0, given: %v", cfg.LogMemory)
	}

	return nil
}

func DefaultConfig() Config {
	return Config{
		DataDir:         DefaultDataDir,
		Group:           GroupRSA.String(),
		IntSizeBits:     DefaultIntSizeBits,
		PrimalityRounds: DefaultPrimalityRounds,
		Hash:            HashSHA256,
		ProofType:       ProofWesolowski,
		LogMemory:       DefaultLogMemory,
	}
}
