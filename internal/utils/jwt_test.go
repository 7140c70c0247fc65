package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessToken_RoundTrip(t *testing.T) {
	tok, err := NewAccessToken("secret", "profile-1", time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), tok.Exp, 5*time.Second)

	sub, err := ParseSubject("secret", tok.Token)
	require.NoError(t, err)
	assert.Equal(t, "profile-1", sub)
}

func TestParseSubject_Rejects(t *testing.T) {
	good, err := NewAccessToken("secret", "profile-1", time.Hour)
	require.NoError(t, err)
	_, err = ParseSubject("other", good.Token)
	assert.Error(t, err, "wrong secret")

	expired, err := NewAccessToken("secret", "profile-1", -time.Minute)
	require.NoError(t, err)
	_, err = ParseSubject("secret", expired.Token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	noSub, err := NewAccessToken("secret", "", time.Hour)
	require.NoError(t, err)
	_, err = ParseSubject("secret", noSub.Token)
	assert.ErrorIs(t, err, ErrNoSubject)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "x"}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = ParseSubject("secret", noExp)
	assert.Error(t, err)

	_, err = ParseSubject("secret", "not-a-token")
	assert.Error(t, err)
}
