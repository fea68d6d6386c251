package crypto

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeystoreRoundTrip(t *testing.T) {
	private := NewBLS12381PrivateKeyFromRandom()
	password := []byte("correct horse battery staple")
	encrypted, err := EncryptPrivateKey(private, password)
	require.NoError(t, err)
	require.Equal(t, HexString(private.PublicKey().Bytes()), encrypted.PublicKey)
	decrypted, err := encrypted.Decrypt(password)
	require.NoError(t, err)
	require.True(t, private.Equals(decrypted))
}

func TestKeystoreWrongPassword(t *testing.T) {
	private := NewBLS12381PrivateKeyFromRandom()
	encrypted, err := EncryptPrivateKey(private, []byte("right"))
	require.NoError(t, err)
	_, err = encrypted.Decrypt([]byte("wrong"))
	require.Error(t, err)
}

func TestKeystoreFileRoundTrip(t *testing.T) {
	private := NewBLS12381PrivateKeyFromRandom()
	password := []byte("pw")
	encrypted, err := EncryptPrivateKey(private, password)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "miner_key.json")
	require.NoError(t, encrypted.SaveToFile(path))
	loaded, err := EncryptedPrivateKeyFromFile(path)
	require.NoError(t, err)
	require.Equal(t, encrypted.PublicKey, loaded.PublicKey)
	decrypted, err := loaded.Decrypt(password)
	require.NoError(t, err)
	require.True(t, private.Equals(decrypted))
}
