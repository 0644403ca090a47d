package shared

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/spacemeshos/vdf/config"
)

// Setup holds the public parameters of a VDF instance.
// It never carries the factorization of the modulus, see Trapdoor.
type Setup struct {
	Group       config.GroupKind
	IntSizeBits uint16
	Iterations  uint64
	// Modulus is the RSA modulus n, or the negative discriminant D of the class group.
	Modulus *big.Int
}

func (s Setup) Equal(other Setup) bool {
	if s.Group != other.Group || s.IntSizeBits != other.IntSizeBits || s.Iterations != other.Iterations {
		return false
	}
	if s.Modulus == nil || other.Modulus == nil {
		return s.Modulus == other.Modulus
	}
	return s.Modulus.Cmp(other.Modulus) == 0
}

// ModulusBytes is the big-endian absolute value of the modulus, as bound into challenges.
func (s Setup) ModulusBytes() []byte {
	if s.Modulus == nil {
		return nil
	}
	return new(big.Int).Abs(s.Modulus).Bytes()
}

func (s Setup) Validate() error {
	if s.Modulus == nil {
		return fmt.Errorf("invalid setup; modulus is missing")
	}
	switch s.Group {
	case config.GroupRSA:
		if s.Modulus.Sign() <= 0 {
			return fmt.Errorf("invalid setup; expected: positive RSA modulus, given: %v", s.Modulus)
		}
	case config.GroupClass:
		if s.Modulus.Sign() >= 0 {
			return fmt.Errorf("invalid setup; expected: negative discriminant, given: %v", s.Modulus)
		}
	default:
		return fmt.Errorf("invalid setup; unknown group: %v", s.Group)
	}
	if bits := s.Modulus.BitLen(); bits > int(s.IntSizeBits) {
		return fmt.Errorf("invalid setup; modulus has %d bits, security parameter is %d", bits, s.IntSizeBits)
	}
	return nil
}

// Instance is an unsolved VDF problem: a challenge under a setup.
type Instance struct {
	X     []byte
	Setup Setup
}

func (i *Instance) Equal(other *Instance) bool {
	if i == nil || other == nil {
		return i == other
	}
	return bytes.Equal(i.X, other.X) && i.Setup.Equal(other.Setup)
}

func (i *Instance) String() string {
	return fmt.Sprintf("Instance{group: %v, t: %d, bits: %d, x: %x}", i.Setup.Group, i.Setup.Iterations, i.Setup.IntSizeBits, i.X)
}

// Solution is a solved instance: the claimed output and its proof, both serialized at the element width.
type Solution struct {
	Instance  Instance
	ProofType config.ProofType
	Output    []byte
	Proof     []byte
}

// Blob returns the `y ‖ proof` wire layout.
func (s *Solution) Blob() []byte {
	blob := make([]byte, 0, len(s.Output)+len(s.Proof))
	blob = append(blob, s.Output...)
	return append(blob, s.Proof...)
}

// SplitBlob validates the length of a `y ‖ proof` blob and splits it.
func SplitBlob(blob []byte, layout config.BlobLayout) (output []byte, proof []byte, err error) {
	if len(blob) != layout.Size() {
		return nil, nil, DeserializationError{What: "proof blob", Expected: layout.Size(), Given: len(blob)}
	}
	return blob[:layout.ElementSize], blob[layout.ElementSize:], nil
}
