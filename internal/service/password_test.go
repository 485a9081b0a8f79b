package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPasswords(t *testing.T) {
	t.Parallel()

	for _, mode := range []string{"", PasswordHashingPlain, PasswordHashingBcrypt} {
		p, err := NewPasswords(mode)
		require.NoError(t, err, mode)

		stored, err := p.Store("s3cret")
		require.NoError(t, err)
		assert.True(t, p.Matches(stored, "s3cret"), mode)
		assert.False(t, p.Matches(stored, "S3cret"), mode)
		assert.False(t, p.Matches(stored, ""), mode)
	}

	_, err := NewPasswords("md5")
	assert.Error(t, err)
}
