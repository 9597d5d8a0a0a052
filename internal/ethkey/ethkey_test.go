package ethkey_test

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/kms/internal/ethkey"
)

func randomKey(t *testing.T) []byte {
	t.Helper()
	b := make([]byte, 32)
	_, err := rand.Read(b)
	require.NoError(t, err)
	return b
}

func TestAddressIsDeterministicForSameKey(t *testing.T) {
	key := randomKey(t)
	a1, err := ethkey.AddressFromPrivateKey(key)
	require.NoError(t, err)
	a2, err := ethkey.AddressFromPrivateKey(key)
	require.NoError(t, err)
	assert.Equal(t, a1, a2)
}

func TestSignThenVerifyRoundTrip(t *testing.T) {
	key := randomKey(t)
	addr, err := ethkey.AddressFromPrivateKey(key)
	require.NoError(t, err)

	msg := []byte("Hello, world!")
	sig, err := ethkey.SignPersonalMessage(key, msg)
	require.NoError(t, err)
	assert.Len(t, sig, 65)

	ok, err := ethkey.VerifyPersonalMessage(addr, msg, sig)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSameKeySameMessageSameSignature(t *testing.T) {
	key := randomKey(t)
	msg := []byte("Hello, world!")

	sig1, err := ethkey.SignPersonalMessage(key, msg)
	require.NoError(t, err)
	sig2, err := ethkey.SignPersonalMessage(key, msg)
	require.NoError(t, err)

	assert.Equal(t, sig1, sig2)
}
