package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	token, err := GenerateJWT(17, "s3cret", 1)
	require.NoError(t, err)

	claims, err := ValidateJWT(token, "s3cret")
	require.NoError(t, err)
	id, err := claims.ProfileID()
	require.NoError(t, err)
	assert.Equal(t, uint(17), id)
}

func TestJWTRejectsWrongSecret(t *testing.T) {
	token, err := GenerateJWT(17, "s3cret", 1)
	require.NoError(t, err)

	_, err = ValidateJWT(token, "other")
	assert.Error(t, err)
}

func TestJWTRejectsExpired(t *testing.T) {
	token, err := GenerateJWT(17, "s3cret", -1)
	require.NoError(t, err)

	_, err = ValidateJWT(token, "s3cret")
	assert.Error(t, err)
}

func TestProfileIDRejectsGarbage(t *testing.T) {
	for _, sub := range []string{"", "0", "alice", "-3"} {
		c := &Claims{}
		c.Subject = sub
		_, err := c.ProfileID()
		assert.Error(t, err, sub)
	}
}
