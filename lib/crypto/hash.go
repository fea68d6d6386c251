package crypto

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"hash"
)

const (
	HashSize = sha256.Size
)

var (
	MaxHash = bytes.Repeat([]byte{0xFF}, HashSize)
)

// Hasher() returns the global hashing algorithm used
func Hasher() hash.Hash { return sha256.New() }

// Hash() executes the global hashing algorithm on input bytes
func Hash(msg []byte) []byte {
	h := sha256.Sum256(msg)
	return h[:]
}

// HashString() returns the hex string version of a hash
func HashString(msg []byte) string { return hex.EncodeToString(Hash(msg)) }

// ShortHash() executes the global hashing algorithm on input bytes
// and truncates the output to 20 bytes
func ShortHash(msg []byte) []byte {
	h := sha256.Sum256(msg)
	return h[:AddressSize]
}

// Concat() joins byte slices without separators for hash pre-image construction
func Concat(items ...[]byte) (res []byte) {
	for _, item := range items {
		res = append(res, item...)
	}
	return
}
