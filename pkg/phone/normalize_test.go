package phone

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeSameNumber(t *testing.T) {
	n := NewNormalizer("")

	inputs := []string{
		"+16502530000",
		"+1 650 253 0000",
		"+1 (650) 253-0000",
		"+1-650-253-0000",
		"  +1.650.253.0000  ",
	}

	for _, in := range inputs {
		got, err := n.Normalize(in)
		require.NoError(t, err, in)
		require.Equal(t, "+16502530000", got, in)
	}
}

func TestNormalizeDefaultRegion(t *testing.T) {
	n := NewNormalizer("us")

	got, err := n.Normalize("(650) 253-0000")
	require.NoError(t, err)
	require.Equal(t, "+16502530000", got)

	got, err = n.Normalize("+44 20 7031 3000")
	require.NoError(t, err)
	require.Equal(t, "+442070313000", got)
}

func TestNormalizeMissing(t *testing.T) {
	n := NewNormalizer("")

	for _, in := range []string{"", "   ", "\t\n"} {
		_, err := n.Normalize(in)
		require.ErrorIs(t, err, ErrMissing)
	}
}

func TestNormalizeInvalid(t *testing.T) {
	n := NewNormalizer("")

	for _, in := range []string{"abc1234", "+1 123", "6502530000", "+999 1234567", "hello"} {
		_, err := n.Normalize(in)
		require.ErrorIs(t, err, ErrInvalid, in)
	}
}
