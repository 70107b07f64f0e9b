package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	key, err := GenerateKeyHex()
	require.NoError(t, err)

	a, err := NewFromHex(key)
	require.NoError(t, err)

	sealed, err := a.EncryptToString(`{"username":"u","password":"p"}`)
	require.NoError(t, err)

	plain, err := a.DecryptString(sealed)
	require.NoError(t, err)
	assert.Equal(t, `{"username":"u","password":"p"}`, plain)
}

func TestWrongKeyFails(t *testing.T) {
	k1, _ := GenerateKeyHex()
	k2, _ := GenerateKeyHex()
	a1, err := NewFromHex(k1)
	require.NoError(t, err)
	a2, err := NewFromHex(k2)
	require.NoError(t, err)

	sealed, err := a1.EncryptToString("secret")
	require.NoError(t, err)

	_, err = a2.DecryptString(sealed)
	assert.Error(t, err)
}

func TestTruncatedCiphertext(t *testing.T) {
	key, _ := GenerateKeyHex()
	a, err := NewFromHex(key)
	require.NoError(t, err)

	_, err = a.DecryptString("AAAA")
	assert.Error(t, err)
}
