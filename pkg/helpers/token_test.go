package helpers

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	v, err := GenerateToken(32)
	require.NoError(t, err)
	// 32 bytes base64url without padding is 43 characters.
	require.Len(t, v, 43)
	// URL-safe: no characters that need escaping in a path segment.
	require.NotContains(t, v, "+")
	require.NotContains(t, v, "/")
	require.NotContains(t, v, "=")
}

func TestGenerateTokenUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		v, err := GenerateToken(32)
		require.NoError(t, err)
		_, dup := seen[v]
		require.False(t, dup)
		seen[v] = struct{}{}
	}
}
