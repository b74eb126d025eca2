package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashing(t *testing.T) {
	digest, err := HashPassword("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", digest)

	assert.True(t, CheckPassword("secret1", digest))
	assert.False(t, CheckPassword("wrong", digest))
	assert.False(t, CheckPassword("secret1", "not-a-digest"))

	// bcrypt солить: однакові паролі дають різні дайджести.
	second, err := HashPassword("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, digest, second)
}
