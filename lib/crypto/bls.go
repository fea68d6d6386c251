package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"

	"github.com/drand/kyber"
	bls12381 "github.com/drand/kyber-bls12381"
	"github.com/drand/kyber/pairing"
	"github.com/drand/kyber/sign/bdn"
	"github.com/drand/kyber/util/random"
)

const (
	BLS12381PrivKeySize   = 32
	BLS12381PubKeySize    = 48
	BLS12381SignatureSize = 96
)

var _ PrivateKeyI = &BLS12381PrivateKey{} // enforce the PrivateKeyI interface
var _ PublicKeyI = &BLS12381PublicKey{}   // enforce the PublicKeyI interface

// BLS12381PrivateKey is a private key wrapper implementation that satisfies the PrivateKeyI interface
// Boneh-Lynn-Shacham (BLS) signatures are deterministic and unique for a given key and message, which
// makes them usable as a practical verifiable random function for consensus scheduling
type BLS12381PrivateKey struct {
	kyber.Scalar
	scheme *bdn.Scheme
}

// NewBLS12381PrivateKey() creates a new BLS private key reference from a kyber.Scalar
func NewBLS12381PrivateKey(privateKey kyber.Scalar) *BLS12381PrivateKey {
	return &BLS12381PrivateKey{Scalar: privateKey, scheme: newBLSScheme()}
}

// NewBLS12381PrivateKeyFromRandom() generates a fresh BLS private key from a crypto-secure source
func NewBLS12381PrivateKeyFromRandom() *BLS12381PrivateKey {
	return NewBLS12381PrivateKey(newBLSSuite().G2().Scalar().Pick(random.New(rand.Reader)))
}

// NewBLSPrivateKeyFromBytes() creates a BLS private key reference from raw bytes
func NewBLSPrivateKeyFromBytes(bz []byte) (PrivateKeyI, error) {
	if len(bz) != BLS12381PrivKeySize {
		return nil, errors.New("invalid bls private key size")
	}
	scalar := newBLSSuite().G2().Scalar()
	if err := scalar.UnmarshalBinary(bz); err != nil {
		return nil, err
	}
	return NewBLS12381PrivateKey(scalar), nil
}

// Bytes() returns the binary representation of the private key
func (b *BLS12381PrivateKey) Bytes() []byte {
	bz, _ := b.MarshalBinary()
	return bz
}

// Sign() digitally signs a message and returns the signature output
func (b *BLS12381PrivateKey) Sign(msg []byte) []byte {
	bz, _ := b.scheme.Sign(b.Scalar, msg)
	return bz
}

// PublicKey() returns the public key that pairs with this BLS private key
func (b *BLS12381PrivateKey) PublicKey() PublicKeyI {
	suite := newBLSSuite()
	public := suite.G1().Point().Mul(b.Scalar, suite.G1().Point().Base())
	return NewBLS12381PublicKey(public)
}

// Equals() compares two private key objects and returns true if they are equal
func (b *BLS12381PrivateKey) Equals(i PrivateKeyI) bool {
	private, ok := i.(*BLS12381PrivateKey)
	if !ok {
		return false
	}
	return b.Equal(private.Scalar)
}

// String() returns the hex string representation of the private key
func (b *BLS12381PrivateKey) String() string { return hex.EncodeToString(b.Bytes()) }

// BLS12381PublicKey is a public key wrapper implementation that satisfies the PublicKeyI interface
type BLS12381PublicKey struct {
	kyber.Point
	scheme *bdn.Scheme
}

// NewBLS12381PublicKey() creates a new BLS public key reference from a kyber point
func NewBLS12381PublicKey(publicKey kyber.Point) *BLS12381PublicKey {
	return &BLS12381PublicKey{Point: publicKey, scheme: newBLSScheme()}
}

// NewBLSPublicKeyFromBytes() creates a BLS public key reference from raw bytes
func NewBLSPublicKeyFromBytes(bz []byte) (PublicKeyI, error) {
	if len(bz) != BLS12381PubKeySize {
		return nil, errors.New("invalid bls public key size")
	}
	point := newBLSSuite().G1().Point()
	if err := point.UnmarshalBinary(bz); err != nil {
		return nil, err
	}
	return NewBLS12381PublicKey(point), nil
}

// Address() returns the short version of the public key
func (b *BLS12381PublicKey) Address() AddressI {
	address := Address(ShortHash(b.Bytes()))
	return &address
}

// Bytes() returns the binary representation of the public key
func (b *BLS12381PublicKey) Bytes() []byte {
	bz, _ := b.MarshalBinary()
	return bz
}

// VerifyBytes() verifies an individual BLS signature given the message and the signature output
func (b *BLS12381PublicKey) VerifyBytes(msg []byte, sig []byte) bool {
	return b.scheme.Verify(b.Point, msg, sig) == nil
}

// Equals() compares two public key objects and returns true if they are equal
func (b *BLS12381PublicKey) Equals(i PublicKeyI) bool {
	pub2, ok := i.(*BLS12381PublicKey)
	if !ok {
		return false
	}
	return b.Equal(pub2.Point)
}

// String() returns the hex string representation of the public key
func (b *BLS12381PublicKey) String() string { return hex.EncodeToString(b.Bytes()) }

// MarshalJSON() implements the json.Marshaller interface for the BLS12381PublicKey
func (b *BLS12381PublicKey) MarshalJSON() ([]byte, error) { return json.Marshal(b.String()) }

func newBLSScheme() *bdn.Scheme  { return bdn.NewSchemeOnG2(newBLSSuite()) }
func newBLSSuite() pairing.Suite { return bls12381.NewBLS12381Suite() }
