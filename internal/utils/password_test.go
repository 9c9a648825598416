package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// low cost keeps the test fast; the contract is cost-independent
var testHasher = NewPasswordHasher(4)

func TestPasswordHasher_Hash(t *testing.T) {
	password := "pass1234word"
	digest, err := testHasher.Hash(password)

	assert.NoError(t, err)
	assert.NotEmpty(t, digest)
	assert.NotEqual(t, password, digest)
}

func TestPasswordHasher_Verify(t *testing.T) {
	password := "pass1234word"
	digest, _ := testHasher.Hash(password)

	assert.True(t, testHasher.Verify(password, digest))
	assert.False(t, testHasher.Verify("wrongpassword", digest))
}

func TestPasswordHasher_Verify_MalformedDigest(t *testing.T) {
	assert.False(t, testHasher.Verify("pass1234word", "not-a-bcrypt-digest"))
	assert.False(t, testHasher.Verify("pass1234word", ""))
}

func TestNewPasswordHasher_DefaultCost(t *testing.T) {
	h := NewPasswordHasher(0)
	assert.Equal(t, DefaultBcryptCost, h.cost)
}
