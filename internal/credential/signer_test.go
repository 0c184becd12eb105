package credential

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignerMintDeterministic(t *testing.T) {
	signer, err := NewSigner("unit-test-secret")
	require.NoError(t, err)

	first, err := signer.Mint("reg-1")
	require.NoError(t, err)
	second, err := signer.Mint("reg-1")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSignerRoundTrip(t *testing.T) {
	signer, err := NewSigner("unit-test-secret")
	require.NoError(t, err)

	token, err := signer.Mint("reg-1")
	require.NoError(t, err)

	id, err := signer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "reg-1", id)
}

func TestSignerRejectsTamperedToken(t *testing.T) {
	signer, err := NewSigner("unit-test-secret")
	require.NoError(t, err)

	token, err := signer.Mint("reg-1")
	require.NoError(t, err)
	other, err := signer.Mint("reg-2")
	require.NoError(t, err)

	// Splice reg-2's identifier onto reg-1's signature.
	forged := strings.Split(other, ".")[0] + "." + strings.Split(token, ".")[1]
	_, err = signer.Parse(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSignerRejectsGarbage(t *testing.T) {
	signer, err := NewSigner("unit-test-secret")
	require.NoError(t, err)

	for _, token := range []string{"", "no-separator", "a.b.c", "!!!.???"} {
		_, err := signer.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken, token)
	}
}

func TestSignerTokensDifferAcrossRegistrations(t *testing.T) {
	signer, err := NewSigner("unit-test-secret")
	require.NoError(t, err)

	first, err := signer.Mint("reg-1")
	require.NoError(t, err)
	second, err := signer.Mint("reg-2")
	require.NoError(t, err)
	assert.NotEqual(t, strings.Split(first, ".")[1], strings.Split(second, ".")[1])
}

func TestNewSignerRequiresSecret(t *testing.T) {
	_, err := NewSigner("")
	assert.Error(t, err)
}
