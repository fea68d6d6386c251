package dpos

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"

	"github.com/sequoia-network/sequoia/lib"
	"github.com/sequoia-network/sequoia/lib/crypto"
)

/*
	RANDOMNESS / SECRET SHARING:

	Each miner commits to a fresh secret (in value) by publishing its hash
	(out value) during the round, and reveals the secret during the following
	round. The round signature is derived from the revealed previous secret
	and the new commitment, which chains each round's ordering seed to the
	previous round's randomness. Because the signature is the sole seed for
	next-round ordering and for on-chain randomness consumers, validators
	always recompute it instead of trusting the miner-supplied value.
*/

// NewInValue() generates a fresh random round secret
func NewInValue() (lib.HexBytes, error) {
	in := make([]byte, crypto.HashSize)
	if _, err := rand.Read(in); err != nil {
		return nil, err
	}
	return in, nil
}

// OutValueOf() derives the public commitment of a round secret
func OutValueOf(inValue lib.HexBytes) lib.HexBytes { return crypto.Hash(inValue) }

// CalculateSignature() derives the round signature from the revealed previous
// secret and the new commitment; the first round of a miner has no previous
// secret and signs the commitment alone
func CalculateSignature(previousInValue, outValue lib.HexBytes) lib.HexBytes {
	if len(previousInValue) == 0 {
		return crypto.Hash(outValue)
	}
	return crypto.Hash(crypto.Concat(previousInValue, outValue))
}

// VerifySignatureDerivation() recomputes the commitment binding and the
// signature derivation of a miner slot against the out value the miner
// committed during the previous round
func VerifySignatureDerivation(miner *MinerInRound, previousRoundOutValue lib.HexBytes) lib.ErrorI {
	// a revealed secret must hash to the previously committed out value
	if len(previousRoundOutValue) != 0 {
		if len(miner.PreviousInValue) == 0 || !bytes.Equal(crypto.Hash(miner.PreviousInValue), previousRoundOutValue) {
			return ErrInvalidPreviousInValue()
		}
	}
	if !bytes.Equal(miner.Signature, CalculateSignature(miner.PreviousInValue, miner.OutValue)) {
		return ErrInvalidSignature()
	}
	return nil
}

// SignatureToOrder() maps a round signature onto a slot order in [1, minerCount]
func SignatureToOrder(signature lib.HexBytes, minerCount int64) int64 {
	if minerCount <= 0 {
		return 0
	}
	return absInt64(signatureToInt64(signature))%minerCount + 1
}

// SignatureToIndex() maps a round signature onto a miner index in [0, minerCount)
func SignatureToIndex(signature lib.HexBytes, minerCount int64) int64 {
	if minerCount <= 0 {
		return 0
	}
	return absInt64(signatureToInt64(signature)) % minerCount
}

// signatureToInt64() folds a signature into an int64 through the global hash
// so arbitrary-length signatures map uniformly
func signatureToInt64(signature lib.HexBytes) int64 {
	digest := crypto.Hash(signature)
	return int64(binary.BigEndian.Uint64(digest[:8]))
}

// absInt64() returns the absolute value, saturating the minimum int64
func absInt64(i int64) int64 {
	if i == -1<<63 {
		return 1<<63 - 1
	}
	if i < 0 {
		return -i
	}
	return i
}

// ProduceRandomProof() signs the random seed with the miner key; BLS signatures
// are deterministic and unique per key and message which makes the output a
// practical verifiable random function
func ProduceRandomProof(privateKey crypto.PrivateKeyI, previousRandomSeed []byte) []byte {
	return privateKey.Sign(previousRandomSeed)
}

// VerifyRandomProof() verifies a miner's random proof against the seed and
// returns the beta output consumed by on-chain randomness users
func VerifyRandomProof(publicKey crypto.PublicKeyI, previousRandomSeed, proof []byte) ([]byte, lib.ErrorI) {
	if !publicKey.VerifyBytes(previousRandomSeed, proof) {
		return nil, ErrInvalidRandomProof()
	}
	return crypto.Hash(proof), nil
}
