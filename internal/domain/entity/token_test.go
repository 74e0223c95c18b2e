package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTokenTTLPerPurpose(t *testing.T) {
	require.Equal(t, 7*24*time.Hour, TokenTTL(PurposeVerifyEmail))
	require.Equal(t, time.Hour, TokenTTL(PurposeResetPassword))
}

func TestTokenValid(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	fresh := &Token{Purpose: PurposeResetPassword, CreatedAt: now.Add(-30 * time.Minute)}
	require.True(t, fresh.Valid(now))

	used := &Token{Purpose: PurposeResetPassword, Used: true, CreatedAt: now.Add(-time.Minute)}
	require.False(t, used.Valid(now))
}

func TestTokenValidExpiryBoundary(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	// Just inside the reset window.
	inside := &Token{Purpose: PurposeResetPassword, CreatedAt: now.Add(-time.Hour + time.Second)}
	require.True(t, inside.Valid(now))

	// Exactly at the window is expired: validity is strict.
	atBoundary := &Token{Purpose: PurposeResetPassword, CreatedAt: now.Add(-time.Hour)}
	require.False(t, atBoundary.Valid(now))

	// A verification token lives far longer than a reset token.
	oldVerify := &Token{Purpose: PurposeVerifyEmail, CreatedAt: now.Add(-6 * 24 * time.Hour)}
	require.True(t, oldVerify.Valid(now))
	deadVerify := &Token{Purpose: PurposeVerifyEmail, CreatedAt: now.Add(-8 * 24 * time.Hour)}
	require.False(t, deadVerify.Valid(now))
}
