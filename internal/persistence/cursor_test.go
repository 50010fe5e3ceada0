package persistence

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/kaitrack/internal/domain"
	"example.com/kaitrack/internal/progression"
)

func TestCursorRoundTrip(t *testing.T) {
	in := &domain.Cursor{Date: progression.NewDate(2024, 3, 9), ID: "c7b1a8a2-0d7e-4b39-9d8f-2f1f0a6a1d11"}
	token := EncodeCursor(in)
	require.NotEmpty(t, token)
	require.NotContains(t, token, "=")

	out, err := DecodeCursor(token)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestDecodeCursorRejectsForeignTokens(t *testing.T) {
	c, err := DecodeCursor("  ")
	require.NoError(t, err)
	require.Nil(t, c)
	require.Empty(t, EncodeCursor(nil))

	for name, token := range map[string]string{
		"not base64":   "%%%",
		"not json":     base64.RawURLEncoding.EncodeToString([]byte("2024-03-09|abc")),
		"missing id":   base64.RawURLEncoding.EncodeToString([]byte(`{"d":"2024-03-09"}`)),
		"missing date": base64.RawURLEncoding.EncodeToString([]byte(`{"i":"abc"}`)),
		"bad date":     base64.RawURLEncoding.EncodeToString([]byte(`{"d":"09/03/2024","i":"abc"}`)),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeCursor(token)
			require.ErrorIs(t, err, ErrInvalidCursor)
		})
	}
}
