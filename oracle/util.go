package oracle

import (
	"hash"

	"github.com/spacemeshos/sha256-simd"
	"golang.org/x/crypto/blake2b"

	"github.com/spacemeshos/vdf/config"
)

func newHash(alg config.HashAlgorithm) hash.Hash {
	switch alg {
	case config.HashBlake2b:
		h, err := blake2b.New256(nil)
		if err != nil {
			// only fails for oversized keys
			panic(err)
		}
		return h
	default:
		return sha256.New()
	}
}
