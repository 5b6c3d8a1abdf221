package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGenerateVerifyRoundTrip(t *testing.T) {
	opts := DefaultOptions([]byte("test-secret"))

	token, exp, err := Generate(opts, "u1")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.True(t, exp.After(time.Now()))

	sub, err := Verify(opts, token)
	require.NoError(t, err)
	require.Equal(t, "u1", sub)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, _, err := Generate(DefaultOptions([]byte("secret-a")), "u1")
	require.NoError(t, err)

	_, err = Verify(DefaultOptions([]byte("secret-b")), token)
	require.Error(t, err)
}

func TestVerifyRejectsExpired(t *testing.T) {
	opts := Options{Secret: []byte("s"), Alg: "HS256", TTL: -time.Hour}
	// TTL <= 0 falls back to the default, so build an expired token manually
	opts.TTL = time.Millisecond
	token, _, err := Generate(opts, "u1")
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	_, err = Verify(opts, token)
	require.Error(t, err)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	_, err := Verify(DefaultOptions([]byte("s")), "not.a.token")
	require.Error(t, err)
}
