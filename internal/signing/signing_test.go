package signing

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndValidate(t *testing.T) {
	s := NewSigner([]byte("secret"))
	expires := time.Now().Add(time.Hour).Unix()
	sig := s.Sign("job-1.pdf", expires)
	require.NotEmpty(t, sig)
	assert.True(t, s.Validate("job-1.pdf", strconv.FormatInt(expires, 10), sig))
}

func TestSignIsDeterministic(t *testing.T) {
	s := NewSigner([]byte("secret"))
	assert.Equal(t, s.Sign("job-1.pdf", 1700000000), s.Sign("job-1.pdf", 1700000000))
	assert.NotEqual(t, s.Sign("job-1.pdf", 1700000000), s.Sign("job-1.pdf", 1700000001))
	assert.NotEqual(t, s.Sign("job-1.pdf", 1700000000), s.Sign("job-2.pdf", 1700000000))
}

func TestValidateRejectsBadInput(t *testing.T) {
	s := NewSigner([]byte("secret"))
	expires := strconv.FormatInt(time.Now().Add(time.Hour).Unix(), 10)
	sig := s.Sign("job-1.pdf", time.Now().Add(time.Hour).Unix())

	assert.False(t, s.Validate("job-1.pdf", "not-a-number", sig))
	assert.False(t, s.Validate("job-1.pdf", expires, "deadbeef"))
	assert.False(t, s.Validate("other.pdf", expires, sig))

	// A signer with a different secret must not accept the signature.
	assert.False(t, NewSigner([]byte("other")).Validate("job-1.pdf", expires, sig))
}
