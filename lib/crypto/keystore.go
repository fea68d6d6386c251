package crypto

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

/*
	This file implements encryption-at-rest for the miner's private key.
	The key file holds an argon2id-derived AEAD encryption of the private key,
	so a stolen data directory does not leak the miner identity.
*/

const (
	keystoreSaltSize = 16

	// argon2id parameters
	argonTime    = 1
	argonMemory  = 64 * 1024 // KiB
	argonThreads = 4
)

// EncryptedPrivateKey is the on-disk form of a miner private key
type EncryptedPrivateKey struct {
	PublicKey HexString `json:"publicKey"` // the plaintext public key for identification
	Salt      HexString `json:"salt"`      // the argon2id salt
	Encrypted HexString `json:"encrypted"` // AEAD(nonce || ciphertext) of the private key
}

// HexString is a byte slice json-encoded as hex, local to the keystore file format
type HexString []byte

// MarshalJSON() implements the json.Marshaller interface for HexString
func (h HexString) MarshalJSON() ([]byte, error) { return json.Marshal(hex.EncodeToString(h)) }

// UnmarshalJSON() implements the json.Unmarshaler interface for HexString
func (h *HexString) UnmarshalJSON(b []byte) (err error) {
	var s string
	if err = json.Unmarshal(b, &s); err != nil {
		return
	}
	*h, err = hex.DecodeString(s)
	return
}

// EncryptPrivateKey() seals a private key under a password
func EncryptPrivateKey(pk PrivateKeyI, password []byte) (*EncryptedPrivateKey, error) {
	salt := make([]byte, keystoreSaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	aead, err := newKeystoreAEAD(password, salt)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err = rand.Read(nonce); err != nil {
		return nil, err
	}
	sealed := aead.Seal(nil, nonce, pk.Bytes(), nil)
	return &EncryptedPrivateKey{
		PublicKey: pk.PublicKey().Bytes(),
		Salt:      salt,
		Encrypted: append(nonce, sealed...),
	}, nil
}

// Decrypt() opens the encrypted private key with the password
func (e *EncryptedPrivateKey) Decrypt(password []byte) (PrivateKeyI, error) {
	aead, err := newKeystoreAEAD(password, e.Salt)
	if err != nil {
		return nil, err
	}
	if len(e.Encrypted) < aead.NonceSize() {
		return nil, errors.New("encrypted key too short")
	}
	nonce, ciphertext := e.Encrypted[:aead.NonceSize()], e.Encrypted[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, errors.New("wrong password or corrupted key file")
	}
	return NewPrivateKeyFromBytes(plaintext)
}

// EncryptedPrivateKeyFromFile() loads an encrypted key file from the path
func EncryptedPrivateKeyFromFile(path string) (*EncryptedPrivateKey, error) {
	bz, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	e := new(EncryptedPrivateKey)
	if err = json.Unmarshal(bz, e); err != nil {
		return nil, err
	}
	return e, nil
}

// SaveToFile() writes the encrypted key file to the path
func (e *EncryptedPrivateKey) SaveToFile(path string) error {
	bz, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, bz, 0o600)
}

// newKeystoreAEAD() derives the AEAD cipher from the password and salt
func newKeystoreAEAD(password, salt []byte) (cipher.AEAD, error) {
	key := argon2.IDKey(password, salt, argonTime, argonMemory, argonThreads, chacha20poly1305.KeySize)
	return chacha20poly1305.New(key)
}
