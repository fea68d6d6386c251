package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBLSSignVerify(t *testing.T) {
	private := NewBLS12381PrivateKeyFromRandom()
	public := private.PublicKey()
	msg := []byte("block seed")
	sig := private.Sign(msg)
	require.Len(t, sig, BLS12381SignatureSize)
	require.True(t, public.VerifyBytes(msg, sig))
	require.False(t, public.VerifyBytes([]byte("other"), sig))
	// BLS signatures are deterministic for a given key and message
	require.Equal(t, sig, private.Sign(msg))
	// another key's signature must not verify
	other := NewBLS12381PrivateKeyFromRandom()
	require.False(t, public.VerifyBytes(msg, other.Sign(msg)))
}

func TestBLSKeyBytesRoundTrip(t *testing.T) {
	private := NewBLS12381PrivateKeyFromRandom()
	require.Len(t, private.Bytes(), BLS12381PrivKeySize)
	require.Len(t, private.PublicKey().Bytes(), BLS12381PubKeySize)
	restored, err := NewBLSPrivateKeyFromBytes(private.Bytes())
	require.NoError(t, err)
	require.True(t, private.Equals(restored))
	restoredPub, err := NewBLSPublicKeyFromBytes(private.PublicKey().Bytes())
	require.NoError(t, err)
	require.True(t, private.PublicKey().Equals(restoredPub))
	_, err = NewBLSPublicKeyFromBytes([]byte{1, 2, 3})
	require.Error(t, err)
}

func TestED25519SignVerify(t *testing.T) {
	private, err := NewED25519PrivateKeyFromRandom()
	require.NoError(t, err)
	public := private.PublicKey()
	msg := []byte("message")
	sig := private.Sign(msg)
	require.Len(t, sig, Ed25519SignatureSize)
	require.True(t, public.VerifyBytes(msg, sig))
	require.False(t, public.VerifyBytes([]byte("other"), sig))
}

func TestKeyDispatchBySize(t *testing.T) {
	bls := NewBLS12381PrivateKeyFromRandom()
	ed, err := NewED25519PrivateKeyFromRandom()
	require.NoError(t, err)
	// the curve is inferred from the key length
	fromBLS, err := NewPrivateKeyFromBytes(bls.Bytes())
	require.NoError(t, err)
	require.IsType(t, &BLS12381PrivateKey{}, fromBLS)
	fromED, err := NewPrivateKeyFromBytes(ed.Bytes())
	require.NoError(t, err)
	require.IsType(t, &ED25519PrivateKey{}, fromED)
	fromPub, err := NewPublicKeyFromBytes(bls.PublicKey().Bytes())
	require.NoError(t, err)
	require.IsType(t, &BLS12381PublicKey{}, fromPub)
	_, err = NewPublicKeyFromBytes([]byte{1})
	require.Error(t, err)
}

func TestKeyGroup(t *testing.T) {
	private := NewBLS12381PrivateKeyFromRandom()
	group := NewKeyGroup(private)
	require.True(t, group.PrivateKey.Equals(private))
	require.True(t, group.PublicKey.Equals(private.PublicKey()))
	require.Equal(t, private.PublicKey().Address().Bytes(), group.Address.Bytes())
	require.Len(t, group.Address.Bytes(), AddressSize)
}
