package capture

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsValidImageContentType(t *testing.T) {
	t.Parallel()

	cases := []struct {
		contentType string
		valid       bool
	}{
		{"image/jpeg", true},
		{"image/png", true},
		{"IMAGE/JPEG", true},
		{" image/webp ", true},
		{"image/jpeg; charset=binary", true},
		{"text/html", false},
		{"application/octet-stream", false},
		{"", false},
		{"image", false},
	}
	for _, tc := range cases {
		require.Equal(t, tc.valid, IsValidImageContentType(tc.contentType), "content type %q", tc.contentType)
	}
}

func TestContentPolicy_CheckImage(t *testing.T) {
	t.Parallel()

	policy := NewContentPolicy(DefaultMaxImageBytes)

	require.NoError(t, policy.CheckImage("image/jpeg", 1024))
	require.NoError(t, policy.CheckImage("image/jpeg", DefaultMaxImageBytes))

	err := policy.CheckImage("text/html", 1024)
	require.ErrorIs(t, err, ErrInvalidContentType)

	err = policy.CheckImage("image/jpeg", DefaultMaxImageBytes+1)
	require.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestContentPolicy_ZeroLimitFallsBackToDefault(t *testing.T) {
	t.Parallel()

	policy := NewContentPolicy(0)
	require.NoError(t, policy.CheckSize(DefaultMaxImageBytes))
	require.ErrorIs(t, policy.CheckSize(DefaultMaxImageBytes+1), ErrPayloadTooLarge)
}
