package crypto

import "encoding/json"

// PublicKeyI is an interface model for a cryptographic code shared openly, used to verify digital signatures of its paired private key
type PublicKeyI interface {
	// Address() creates a unique shorter fixed length version of the public key
	Address() AddressI
	// Bytes() casts the public key to bytes
	Bytes() []byte
	// VerifyBytes() verifies a digital signature from its corresponding private key
	VerifyBytes(msg []byte, sig []byte) bool
	// String() returns the hex string representation
	String() string
	// Equals() compares two PublicKeys and returns true if they're equal
	Equals(PublicKeyI) bool
	// models the json.Marshaller encoding interface
	json.Marshaler
}

// PrivateKeyI is an interface model for a secret cryptographic code that is used to produce digital signatures
type PrivateKeyI interface {
	// Bytes() casts the private key to bytes
	Bytes() []byte
	// Sign() digitally signs a message
	Sign(msg []byte) []byte
	// PublicKey() returns the paired public key
	PublicKey() PublicKeyI
	// String() returns the hex string representation
	String() string
	// Equals() compares two PrivateKeys and returns true if they're equal
	Equals(PrivateKeyI) bool
}

// AddressI is an interface model for the short version of the PublicKey
type AddressI interface {
	// Bytes() casts the address to bytes
	Bytes() []byte
	// String() returns the hex string representation
	String() string
	// Equals() compares two Addresses and returns true if they're equal
	Equals(AddressI) bool
	// models the json.Marshaller encoding interface
	json.Marshaler
}
