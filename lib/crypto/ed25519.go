package crypto

import (
	ed25519 "crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
)

const (
	Ed25519PrivKeySize   = ed25519.PrivateKeySize
	Ed25519PubKeySize    = ed25519.PublicKeySize
	Ed25519SignatureSize = ed25519.SignatureSize
)

var _ PrivateKeyI = &ED25519PrivateKey{} // enforce the PrivateKeyI interface
var _ PublicKeyI = &ED25519PublicKey{}   // enforce the PublicKeyI interface

// ED25519PrivateKey is a Curve25519 private key wrapper that satisfies the PrivateKeyI interface,
// offered for deployments that prefer small keys over VRF-capable BLS signatures
type ED25519PrivateKey struct{ ed25519.PrivateKey }

// NewED25519PrivateKeyFromRandom() generates a fresh ed25519 private key from a crypto-secure source
func NewED25519PrivateKeyFromRandom() (*ED25519PrivateKey, error) {
	_, private, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &ED25519PrivateKey{PrivateKey: private}, nil
}

// NewED25519PrivateKeyFromBytes() creates an ed25519 private key reference from raw bytes
func NewED25519PrivateKeyFromBytes(bz []byte) (PrivateKeyI, error) {
	if len(bz) != Ed25519PrivKeySize {
		return nil, errors.New("invalid ed25519 private key size")
	}
	return &ED25519PrivateKey{PrivateKey: bz}, nil
}

// Bytes() casts the private key to bytes
func (e *ED25519PrivateKey) Bytes() []byte { return e.PrivateKey }

// Sign() digitally signs a message and returns the signature output
func (e *ED25519PrivateKey) Sign(msg []byte) []byte { return ed25519.Sign(e.PrivateKey, msg) }

// PublicKey() returns the public key that pairs with this private key
func (e *ED25519PrivateKey) PublicKey() PublicKeyI {
	return &ED25519PublicKey{PublicKey: e.PrivateKey.Public().(ed25519.PublicKey)}
}

// Equals() compares two private key objects and returns true if they are equal
func (e *ED25519PrivateKey) Equals(i PrivateKeyI) bool {
	private, ok := i.(*ED25519PrivateKey)
	if !ok {
		return false
	}
	return e.PrivateKey.Equal(private.PrivateKey)
}

// String() returns the hex string representation of the private key
func (e *ED25519PrivateKey) String() string { return hex.EncodeToString(e.Bytes()) }

// ED25519PublicKey is a Curve25519 public key wrapper that satisfies the PublicKeyI interface
type ED25519PublicKey struct{ ed25519.PublicKey }

// NewED25519PublicKeyFromBytes() creates an ed25519 public key reference from raw bytes
func NewED25519PublicKeyFromBytes(bz []byte) (PublicKeyI, error) {
	if len(bz) != Ed25519PubKeySize {
		return nil, errors.New("invalid ed25519 public key size")
	}
	return &ED25519PublicKey{PublicKey: bz}, nil
}

// Address() returns the short version of the public key
func (e *ED25519PublicKey) Address() AddressI {
	address := Address(ShortHash(e.Bytes()))
	return &address
}

// Bytes() casts the public key to bytes
func (e *ED25519PublicKey) Bytes() []byte { return e.PublicKey }

// VerifyBytes() verifies a digital signature given the message and the signature output
func (e *ED25519PublicKey) VerifyBytes(msg []byte, sig []byte) bool {
	return ed25519.Verify(e.PublicKey, msg, sig)
}

// Equals() compares two public key objects and returns true if they are equal
func (e *ED25519PublicKey) Equals(i PublicKeyI) bool {
	pub2, ok := i.(*ED25519PublicKey)
	if !ok {
		return false
	}
	return e.PublicKey.Equal(pub2.PublicKey)
}

// String() returns the hex string representation of the public key
func (e *ED25519PublicKey) String() string { return hex.EncodeToString(e.Bytes()) }

// MarshalJSON() implements the json.Marshaller interface for the ED25519PublicKey
func (e *ED25519PublicKey) MarshalJSON() ([]byte, error) { return json.Marshal(e.String()) }
