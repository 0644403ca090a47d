package shared

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAvailableSpace(t *testing.T) {
	r := require.New(t)

	// Sanity test.
	space := AvailableSpace(t.TempDir())
	r.True(space > 0)
}
