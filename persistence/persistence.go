// Package persistence stores solved instances in a data directory, so a
// solution computed once can be verified or reused later without redoing the delay.
package persistence

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
	"github.com/nullstyle/go-xdr/xdr3"
	"github.com/spacemeshos/sha256-simd"

	"github.com/spacemeshos/vdf/config"
	"github.com/spacemeshos/vdf/shared"
)

const (
	// OwnerReadWriteExec is a standard owner read / write / exec file permission.
	OwnerReadWriteExec = 0o700

	// OwnerReadWrite is a standard owner read / write file permission.
	OwnerReadWrite = 0o600

	solutionsDir   = "solutions"
	solutionSuffix = ".vdf"
)

var (
	ErrSolutionNotExist  = errors.New("solution doesn't exist")
	ErrInsufficientSpace = errors.New("not enough space available in datadir")
)

// solutionRecord is the XDR layout of a stored solution. The modulus is stored
// as its absolute value; its sign follows from the group.
type solutionRecord struct {
	Group       uint32
	IntSizeBits uint32
	Iterations  uint64
	Modulus     []byte
	X           []byte
	ProofType   string
	Output      []byte
	Proof       []byte
}

func EncodeSolution(sol *shared.Solution) ([]byte, error) {
	rec := solutionRecord{
		Group:       uint32(sol.Instance.Setup.Group),
		IntSizeBits: uint32(sol.Instance.Setup.IntSizeBits),
		Iterations:  sol.Instance.Setup.Iterations,
		Modulus:     sol.Instance.Setup.ModulusBytes(),
		X:           sol.Instance.X,
		ProofType:   string(sol.ProofType),
		Output:      sol.Output,
		Proof:       sol.Proof,
	}

	var w bytes.Buffer
	if _, err := xdr.Marshal(&w, &rec); err != nil {
		return nil, fmt.Errorf("serialization failure: %w", err)
	}
	return w.Bytes(), nil
}

func DecodeSolution(data []byte) (*shared.Solution, error) {
	var rec solutionRecord
	if _, err := xdr.Unmarshal(bytes.NewReader(data), &rec); err != nil {
		return nil, fmt.Errorf("deserialization failure: %w", err)
	}
	if rec.IntSizeBits > config.MaxIntSizeBits {
		return nil, fmt.Errorf("invalid stored `bits`: %d", rec.IntSizeBits)
	}

	modulus := new(big.Int).SetBytes(rec.Modulus)
	kind := config.GroupKind(rec.Group)
	if kind == config.GroupClass {
		modulus.Neg(modulus)
	}

	sol := &shared.Solution{
		Instance: shared.Instance{
			X: rec.X,
			Setup: shared.Setup{
				Group:       kind,
				IntSizeBits: uint16(rec.IntSizeBits),
				Iterations:  rec.Iterations,
				Modulus:     modulus,
			},
		},
		ProofType: config.ProofType(rec.ProofType),
		Output:    rec.Output,
		Proof:     rec.Proof,
	}
	if err := sol.Instance.Setup.Validate(); err != nil {
		return nil, err
	}
	if err := sol.ProofType.Validate(); err != nil {
		return nil, err
	}
	return sol, nil
}

// SolutionFilename is the path a solution of inst with the given proof type is stored at.
// It is keyed by a digest of the public instance, so the file name leaks nothing beyond it.
func SolutionFilename(datadir string, inst *shared.Instance, proofType config.ProofType) string {
	h := sha256.New()
	h.Write([]byte{byte(inst.Setup.Group)})
	h.Write(binary.BigEndian.AppendUint64(nil, uint64(inst.Setup.IntSizeBits)))
	h.Write(binary.BigEndian.AppendUint64(nil, inst.Setup.Iterations))
	h.Write(binary.BigEndian.AppendUint64(nil, uint64(len(inst.X))))
	h.Write(inst.X)
	h.Write(inst.Setup.ModulusBytes())
	name := fmt.Sprintf("%s-%s-%s%s", inst.Setup.Group, proofType, hex.EncodeToString(h.Sum(nil)[:16]), solutionSuffix)
	return filepath.Join(datadir, solutionsDir, name)
}

// SaveSolution atomically writes sol under datadir and returns the file name.
func SaveSolution(datadir string, sol *shared.Solution) (string, error) {
	data, err := EncodeSolution(sol)
	if err != nil {
		return "", err
	}

	filename := SolutionFilename(datadir, &sol.Instance, sol.ProofType)
	if err := os.MkdirAll(filepath.Dir(filename), OwnerReadWriteExec); err != nil {
		return "", fmt.Errorf("dir creation failure: %w", err)
	}
	// atomic.WriteFile goes through a temporary file next to the target.
	if available := shared.AvailableSpace(filepath.Dir(filename)); available < uint64(len(data)) {
		return "", fmt.Errorf("%w: required: %d, available: %d", ErrInsufficientSpace, len(data), available)
	}
	if err := atomic.WriteFile(filename, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("write to disk failure: %w", err)
	}
	if err := os.Chmod(filename, OwnerReadWrite); err != nil {
		return "", fmt.Errorf("chmod failure: %w", err)
	}
	return filename, nil
}

// LoadSolution reads the stored solution of inst, or returns ErrSolutionNotExist.
func LoadSolution(datadir string, inst *shared.Instance, proofType config.ProofType) (*shared.Solution, error) {
	filename := SolutionFilename(datadir, inst, proofType)
	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrSolutionNotExist
		}
		return nil, fmt.Errorf("read file failure: %w", err)
	}

	sol, err := DecodeSolution(data)
	if err != nil {
		return nil, err
	}
	if !sol.Instance.Equal(inst) {
		return nil, fmt.Errorf("%v: %w", filename, shared.ErrInstanceMismatch)
	}
	return sol, nil
}
