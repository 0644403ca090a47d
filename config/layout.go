package config

// IntSize is the width in bytes of one serialized integer for the given security parameter.
func IntSize(intSizeBits uint16) int {
	return (int(intSizeBits) + 16) >> 4
}

// ElementSize is the width in bytes of one serialized group element.
func ElementSize(intSizeBits uint16) int {
	return 2 * IntSize(intSizeBits)
}

// PietrzakRounds returns how many halving rounds a Pietrzak proof for t iterations has.
// Odd intermediate delays are padded by one squaring before halving.
func PietrzakRounds(t uint64) int {
	rounds := 0
	for t > 1 {
		if t&1 == 1 {
			t++
		}
		t >>= 1
		rounds++
	}
	return rounds
}

type BlobLayout struct {
	ElementSize int
	// NumProofElements is the number of elements following the output in a proof blob.
	NumProofElements int
}

func (l BlobLayout) Size() int {
	return l.ElementSize * (1 + l.NumProofElements)
}

// DeriveBlobLayout describes the `y ‖ proof` blob for a proof type and delay.
func DeriveBlobLayout(intSizeBits uint16, proofType ProofType, t uint64) BlobLayout {
	layout := BlobLayout{
		ElementSize:      ElementSize(intSizeBits),
		NumProofElements: 1,
	}
	if proofType == ProofPietrzak {
		layout.NumProofElements = PietrzakRounds(t)
	}
	return layout
}
