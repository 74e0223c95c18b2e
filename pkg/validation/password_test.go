package validation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckPassword(t *testing.T) {
	require.NoError(t, CheckPassword("correct-horse-battery"))
	require.NoError(t, CheckPassword("s3cure-Enough"))

	require.ErrorIs(t, CheckPassword("short1"), ErrPasswordTooShort)
	require.ErrorIs(t, CheckPassword(""), ErrPasswordTooShort)

	require.ErrorIs(t, CheckPassword("92847561023"), ErrPasswordNumeric)

	require.ErrorIs(t, CheckPassword("password123"), ErrPasswordCommon)
	// Deny-list matching is case-insensitive.
	require.ErrorIs(t, CheckPassword("PASSWORD123"), ErrPasswordCommon)
}
