package shared

import (
	"errors"
	"fmt"

	"github.com/spacemeshos/vdf/config"
)

var (
	ErrInstanceMismatch   = errors.New("solution was computed for a different instance")
	ErrVerificationFailed = errors.New("proof verification failed")
	ErrNoTrapdoor         = errors.New("trapdoor is missing or incomplete")

	// ErrOutOfRange is also a verification failure, so callers checking for
	// ErrVerificationFailed treat out-of-group values as rejected proofs.
	ErrOutOfRange = fmt.Errorf("%w: value is not less than the group modulus", ErrVerificationFailed)
)

// InvalidIterationsError is returned when the delay violates a constraint of the requested proof type.
type InvalidIterationsError struct {
	ProofType  string
	Iterations uint64
	Reason     string
}

func (err InvalidIterationsError) Error() string {
	return fmt.Sprintf("invalid iterations for %v proof; given: %d, %v", err.ProofType, err.Iterations, err.Reason)
}

// DeserializationError is returned when bytes don't decode to a valid group element or proof blob.
type DeserializationError struct {
	What     string
	Expected int
	Given    int
	Err      error
}

func (err DeserializationError) Error() string {
	if err.Err != nil {
		return fmt.Sprintf("failed to deserialize %v: %v", err.What, err.Err)
	}
	return fmt.Sprintf("failed to deserialize %v; expected length: %d, given: %d", err.What, err.Expected, err.Given)
}

func (err DeserializationError) Unwrap() error {
	return err.Err
}

// ConfigMismatchError is returned when an instance was set up with different protocol params than the config in use.
type ConfigMismatchError struct {
	Param    string
	Expected string
	Found    string
}

func (err ConfigMismatchError) Error() string {
	return fmt.Sprintf("`%v` config mismatch; expected: %v, found: %v", err.Param, err.Expected, err.Found)
}

// CheckConfig verifies that inst was set up for the group and security parameter of cfg.
func CheckConfig(cfg config.Config, inst *Instance) error {
	kind, err := cfg.GroupKind()
	if err != nil {
		return err
	}
	if kind != inst.Setup.Group {
		return ConfigMismatchError{Param: "group", Expected: kind.String(), Found: inst.Setup.Group.String()}
	}
	if cfg.IntSizeBits != inst.Setup.IntSizeBits {
		return ConfigMismatchError{
			Param:    "bits",
			Expected: fmt.Sprintf("%d", cfg.IntSizeBits),
			Found:    fmt.Sprintf("%d", inst.Setup.IntSizeBits),
		}
	}
	return nil
}
