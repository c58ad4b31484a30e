package auth

import (
	"testing"
	"time"

	"github.com/dkeye/Meet/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyRoundTrip(t *testing.T) {
	v, err := NewVerifier("s3cret", "meet")
	require.NoError(t, err)

	tok, err := v.Issue("user-x", time.Minute)
	require.NoError(t, err)

	id, err := v.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, domain.UserID("user-x"), id)
}

func TestParseReportsExpiry(t *testing.T) {
	v, err := NewVerifier("s3cret", "")
	require.NoError(t, err)

	tok, err := v.Issue("user-x", time.Hour)
	require.NoError(t, err)
	id, exp, err := v.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, domain.UserID("user-x"), id)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 2*time.Second)

	forever, err := v.Issue("user-x", 0)
	require.NoError(t, err)
	_, exp, err = v.Parse(forever)
	require.NoError(t, err)
	assert.True(t, exp.IsZero())
}

func TestVerifyRejects(t *testing.T) {
	v, err := NewVerifier("s3cret", "meet")
	require.NoError(t, err)
	other, err := NewVerifier("other", "meet")
	require.NoError(t, err)
	wrongIssuer, err := NewVerifier("s3cret", "someone-else")
	require.NoError(t, err)

	forged, err := other.Issue("user-x", time.Minute)
	require.NoError(t, err)
	expired, err := v.Issue("user-x", -time.Minute)
	require.NoError(t, err)
	foreign, err := wrongIssuer.Issue("user-x", time.Minute)
	require.NoError(t, err)
	noSubject, err := v.Issue("", time.Minute)
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "x", Issuer: "meet"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, tok := range map[string]string{
		"empty":      "",
		"garbage":    "not-a-token",
		"forged":     forged,
		"expired":    expired,
		"issuer":     foreign,
		"no subject": noSubject,
		"alg none":   none,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(tok)
			assert.ErrorIs(t, err, domain.ErrUnauthorized)
		})
	}
}

func TestNewVerifierNeedsSecret(t *testing.T) {
	_, err := NewVerifier("", "")
	assert.ErrorIs(t, err, ErrNoSecret)
}

func TestSFUTokens(t *testing.T) {
	var disabled *SFUTokens
	assert.False(t, disabled.Enabled())
	_, err := NewSFUTokens("", "k", "s", 0).Issue("r", "u")
	assert.ErrorIs(t, err, ErrSFUDisabled)

	tokens := NewSFUTokens("wss://sfu.example.com", "api-key", "api-secret-api-secret-api-secret", time.Hour)
	raw, err := tokens.Issue("room-1", "user-x")
	require.NoError(t, err)

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte("api-secret-api-secret-api-secret"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "user-x", claims["sub"])
	assert.Equal(t, "api-key", claims["iss"])
	video, ok := claims["video"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "room-1", video["room"])
	assert.Equal(t, true, video["roomJoin"])
}
