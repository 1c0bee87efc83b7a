package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionToken_RoundTrip(t *testing.T) {
	token, err := GenerateSessionToken("secret", "user-1", "a@x.com", time.Hour)
	require.NoError(t, err)

	claims, err := ParseSessionToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "a@x.com", claims.Email)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestSessionToken_Expired(t *testing.T) {
	token, err := GenerateSessionToken("secret", "user-1", "a@x.com", -time.Minute)
	require.NoError(t, err)

	_, err = ParseSessionToken(token, "secret")
	assert.Error(t, err)
}

func TestSessionToken_WrongSecret(t *testing.T) {
	token, err := GenerateSessionToken("secret", "user-1", "a@x.com", time.Hour)
	require.NoError(t, err)

	_, err = ParseSessionToken(token, "other-secret")
	assert.Error(t, err)
}
