package otp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Test vectors from RFC 4226 appendix D
var rfcSecret = []byte("12345678901234567890")

func TestCodeMatchesRFC4226(t *testing.T) {
	g, err := NewGenerator(6)
	require.NoError(t, err)

	expected := []string{
		"755224", "287082", "359152", "969429", "338314",
		"254676", "287922", "162583", "399871", "520489",
	}

	for counter, want := range expected {
		got, err := g.Code(rfcSecret, int64(counter))
		require.NoError(t, err)
		require.Equal(t, want, got, "counter %d", counter)
	}
}

func TestCodeIsDeterministic(t *testing.T) {
	g, err := NewGenerator(6)
	require.NoError(t, err)

	secret := []byte("secret")

	a, err := g.Code(secret, 7)
	require.NoError(t, err)
	b, err := g.Code(secret, 7)
	require.NoError(t, err)
	require.Equal(t, a, b)

	c, err := g.Code(secret, 8)
	require.NoError(t, err)
	require.NotEqual(t, a, c)
}

func TestCodeLength(t *testing.T) {
	g, err := NewGenerator(8)
	require.NoError(t, err)

	code, err := g.Code(rfcSecret, 1)
	require.NoError(t, err)
	require.Len(t, code, 8)

	_, err = NewGenerator(4)
	require.ErrorIs(t, err, ErrInvalidDigits)

	_, err = NewGenerator(9)
	require.ErrorIs(t, err, ErrInvalidDigits)
}

func TestCodeRejectsBadInput(t *testing.T) {
	g, err := NewGenerator(6)
	require.NoError(t, err)

	_, err = g.Code(nil, 1)
	require.Error(t, err)

	_, err = g.Code(rfcSecret, -1)
	require.Error(t, err)
}
