package jwt

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionToken_RoundTrip(t *testing.T) {
	svc := NewHMACService("secret", time.Hour, "matchmap")
	id := uuid.New()

	tok, exp, err := svc.GenerateSessionToken(id, "a@example.com")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	c, err := svc.ValidateToken(tok)
	require.NoError(t, err)
	assert.Equal(t, id, c.UserID)
	assert.Equal(t, "a@example.com", c.Email)
	assert.Equal(t, "matchmap", c.Issuer)
}

func TestValidateToken_Expired(t *testing.T) {
	svc := NewHMACService("secret", time.Hour, "matchmap")
	issued := time.Now().Add(-2 * time.Hour)
	svc.now = func() time.Time { return issued }
	tok, _, err := svc.GenerateSessionToken(uuid.New(), "")
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.ValidateToken(tok)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	tok, _, err := NewHMACService("one", time.Hour, "").GenerateSessionToken(uuid.New(), "")
	require.NoError(t, err)

	_, err = NewHMACService("two", time.Hour, "").ValidateToken(tok)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = NewHMACService("two", time.Hour, "").ValidateToken("not-a-jwt")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestGenerateSessionToken_RequiresSecret(t *testing.T) {
	_, _, err := NewHMACService("", time.Hour, "").GenerateSessionToken(uuid.New(), "")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestValidateToken_ForeignIssuer(t *testing.T) {
	tok, _, err := NewHMACService("secret", time.Hour, "someone-else").GenerateSessionToken(uuid.New(), "")
	require.NoError(t, err)

	_, err = NewHMACService("secret", time.Hour, "matchmap").ValidateToken(tok)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
