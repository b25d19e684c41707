package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestNewTokenIssuer_RequiresSecret(t *testing.T) {
	_, err := NewTokenIssuer("   ")
	require.Error(t, err)
}

func TestTokenIssuer_SessionRoundTrip(t *testing.T) {
	issuer, err := NewTokenIssuer("super-secret")
	require.NoError(t, err)

	tok, err := issuer.IssueSession("user-123", "alice")
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	claims, err := issuer.VerifyPurpose(tok, PurposeSession)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID())
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, PurposeSession, claims.Purpose)
	assert.WithinDuration(t, claims.IssuedAt.Add(SessionTTL), claims.ExpiresAt.Time, time.Second)
}

func TestTokenIssuer_ExpiryWindow(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	issuer, err := NewTokenIssuer("secret")
	require.NoError(t, err)

	tok, err := issuer.WithClock(fixedClock(base)).IssueSession("u1", "bob")
	require.NoError(t, err)

	_, err = issuer.WithClock(fixedClock(base.Add(SessionTTL - time.Second))).Verify(tok)
	assert.NoError(t, err, "token must be accepted inside its validity window")

	_, err = issuer.WithClock(fixedClock(base.Add(SessionTTL + time.Second))).Verify(tok)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestTokenIssuer_ResetTokenLifetime(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	issuer, err := NewTokenIssuer("secret")
	require.NoError(t, err)

	tok, err := issuer.WithClock(fixedClock(base)).IssueReset("u1")
	require.NoError(t, err)

	claims, err := issuer.WithClock(fixedClock(base.Add(9 * time.Minute))).VerifyPurpose(tok, PurposeReset)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID())

	_, err = issuer.WithClock(fixedClock(base.Add(11 * time.Minute))).Verify(tok)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestTokenIssuer_TamperedSignature(t *testing.T) {
	issuer, err := NewTokenIssuer("secret")
	require.NoError(t, err)

	tok, err := issuer.IssueSession("u1", "bob")
	require.NoError(t, err)

	sigStart := strings.LastIndex(tok, ".") + 1
	replacement := byte('A')
	if tok[sigStart] == 'A' {
		replacement = 'B'
	}
	tampered := tok[:sigStart] + string(replacement) + tok[sigStart+1:]

	_, err = issuer.Verify(tampered)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestTokenIssuer_TamperedPayload(t *testing.T) {
	issuer, err := NewTokenIssuer("secret")
	require.NoError(t, err)

	tok, err := issuer.IssueSession("u1", "bob")
	require.NoError(t, err)

	payloadStart := strings.Index(tok, ".") + 1
	replacement := byte('x')
	if tok[payloadStart+2] == 'x' {
		replacement = 'y'
	}
	tampered := tok[:payloadStart+2] + string(replacement) + tok[payloadStart+3:]

	_, err = issuer.Verify(tampered)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestTokenIssuer_WrongSecretAndGarbage(t *testing.T) {
	issuer, err := NewTokenIssuer("right-secret")
	require.NoError(t, err)
	other, err := NewTokenIssuer("wrong-secret")
	require.NoError(t, err)

	tok, err := issuer.IssueSession("u1", "bob")
	require.NoError(t, err)

	_, err = other.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = issuer.Verify("not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestTokenIssuer_WrongPurpose(t *testing.T) {
	issuer, err := NewTokenIssuer("secret")
	require.NoError(t, err)

	reset, err := issuer.IssueReset("u1")
	require.NoError(t, err)

	_, err = issuer.VerifyPurpose(reset, PurposeSession)
	assert.ErrorIs(t, err, ErrWrongPurpose)
}
