package crypto

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
)

const (
	AddressSize = 20
)

// Address is the short version of a public key
type Address []byte

var _ AddressI = &Address{} // enforce the AddressI interface

// Bytes() casts the address to bytes
func (a *Address) Bytes() []byte { return (*a)[:] }

// String() returns the hex string representation of the address
func (a *Address) String() string { return hex.EncodeToString(a.Bytes()) }

// Equals() compares two addresses and returns true if they are equal
func (a *Address) Equals(e AddressI) bool { return bytes.Equal(a.Bytes(), e.Bytes()) }

// MarshalJSON() implements the json.Marshaller interface for the Address
func (a *Address) MarshalJSON() ([]byte, error) { return json.Marshal(a.String()) }

// NewAddressFromBytes() creates an Address reference from raw bytes
func NewAddressFromBytes(bz []byte) (AddressI, error) {
	if len(bz) != AddressSize {
		return nil, errors.New("invalid address size")
	}
	address := Address(bz)
	return &address, nil
}

// NewPublicKeyFromBytes() creates a PublicKeyI reference from raw bytes, inferring the curve from the key size
func NewPublicKeyFromBytes(bz []byte) (PublicKeyI, error) {
	switch len(bz) {
	case Ed25519PubKeySize:
		return NewED25519PublicKeyFromBytes(bz)
	case BLS12381PubKeySize:
		return NewBLSPublicKeyFromBytes(bz)
	default:
		return nil, errors.New("unrecognized public key size")
	}
}

// NewPrivateKeyFromBytes() creates a PrivateKeyI reference from raw bytes, inferring the curve from the key size
func NewPrivateKeyFromBytes(bz []byte) (PrivateKeyI, error) {
	switch len(bz) {
	case Ed25519PrivKeySize:
		return NewED25519PrivateKeyFromBytes(bz)
	case BLS12381PrivKeySize:
		return NewBLSPrivateKeyFromBytes(bz)
	default:
		return nil, errors.New("unrecognized private key size")
	}
}

// KeyGroup is a convenience structure holding the Address and PublicKey that correspond to a PrivateKey
type KeyGroup struct {
	Address    AddressI    // short version of the public key
	PublicKey  PublicKeyI  // verifies signatures produced by the private key
	PrivateKey PrivateKeyI // produces digital signatures
}

// NewKeyGroup() derives the public key and address that pair with the private key
func NewKeyGroup(pk PrivateKeyI) *KeyGroup {
	pub := pk.PublicKey()
	return &KeyGroup{
		Address:    pub.Address(),
		PublicKey:  pub,
		PrivateKey: pk,
	}
}
