package dpos

import (
	"github.com/sequoia-network/sequoia/lib"
	"github.com/sequoia-network/sequoia/lib/crypto"
)

/*
	This file contains the collaborator contracts of the consensus core. The
	election module owns vote tallying and candidate selection; the core only
	consumes the resulting miner lists. Implementations live outside the core.
*/

// MinerListProviderI is the election collaborator contract
type MinerListProviderI interface {
	// GetCurrentMinerList() returns the active miner public keys in election order
	GetCurrentMinerList() ([][]byte, lib.ErrorI)
	// GetVictories() returns the public keys elected for the next term
	GetVictories() ([][]byte, lib.ErrorI)
}

// RandomVerifierI is the randomness collaborator contract
type RandomVerifierI interface {
	// VerifyRandomProof() verifies a miner's random proof against the seed and returns the beta output
	VerifyRandomProof(publicKey, previousRandomSeed, proof []byte) ([]byte, lib.ErrorI)
}

var _ RandomVerifierI = &BLSRandomVerifier{} // enforce the RandomVerifierI interface

// BLSRandomVerifier is the default RandomVerifierI backed by BLS signature verification
type BLSRandomVerifier struct{}

// VerifyRandomProof() parses the BLS public key and verifies the proof against the seed
func (v *BLSRandomVerifier) VerifyRandomProof(publicKey, previousRandomSeed, proof []byte) ([]byte, lib.ErrorI) {
	pub, err := crypto.NewBLSPublicKeyFromBytes(publicKey)
	if err != nil {
		return nil, ErrInvalidPublicKey(err)
	}
	return VerifyRandomProof(pub, previousRandomSeed, proof)
}
