package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDigest(t *testing.T) {
	d := Digest([]byte("hello"))
	assert.Len(t, d, 64)
	assert.True(t, ValidDigest(d))
	// Deterministic.
	assert.Equal(t, d, Digest([]byte("hello")))
}

func TestValidDigest(t *testing.T) {
	assert.False(t, ValidDigest(""))
	assert.False(t, ValidDigest("abc"))
	assert.False(t, ValidDigest(Digest([]byte("x"))+"00"))
	// Uppercase hex is rejected.
	assert.False(t, ValidDigest("2CF24DBA5FB0A30E26E83B2AC5B9E29E1B161E5C1FA7425E73043362938B9824"))
	assert.True(t, ValidDigest("2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"))
}
