package dpos

import (
	"fmt"

	"github.com/sequoia-network/sequoia/lib"
)

/* This file contains the consensus module error constructors; every rejection a proposal can receive has exactly one */

func ErrNilRound() lib.ErrorI {
	return lib.NewError(lib.CodeNilRound, lib.ConsensusModule, "round is nil")
}

func ErrEmptyMinerList() lib.ErrorI {
	return lib.NewError(lib.CodeEmptyMinerList, lib.ConsensusModule, "miner list is empty")
}

func ErrInvalidOrderRange(order, minerCount int64) lib.ErrorI {
	return lib.NewError(lib.CodeInvalidOrderRange, lib.ConsensusModule, fmt.Sprintf("order %d outside [1, %d]", order, minerCount))
}

func ErrDuplicateOrder(order int64) lib.ErrorI {
	return lib.NewError(lib.CodeDuplicateOrder, lib.ConsensusModule, fmt.Sprintf("duplicate order %d", order))
}

func ErrWrongExtraBlockProducer() lib.ErrorI {
	return lib.NewError(lib.CodeWrongExtraBlockProducer, lib.ConsensusModule, "extra block producer does not match the deterministic selection")
}

func ErrMinerNotInRound(publicKey string) lib.ErrorI {
	return lib.NewError(lib.CodeMinerNotInRound, lib.ConsensusModule, fmt.Sprintf("miner %s is not a member of the round", publicKey))
}

func ErrTimeSlotViolation(publicKey string) lib.ErrorI {
	return lib.NewError(lib.CodeTimeSlotViolation, lib.ConsensusModule, fmt.Sprintf("mining time of %s falls outside its assigned slot", publicKey))
}

func ErrValueAlreadySet() lib.ErrorI {
	return lib.NewError(lib.CodeValueAlreadySet, lib.ConsensusModule, "out value and signature are already set for this round")
}

func ErrMissingOutValue() lib.ErrorI {
	return lib.NewError(lib.CodeMissingOutValue, lib.ConsensusModule, "proposal does not fill exactly the sender's out value and signature")
}

func ErrInvalidPreviousInValue() lib.ErrorI {
	return lib.NewError(lib.CodeInvalidPreviousInValue, lib.ConsensusModule, "previous in value does not hash to the committed out value")
}

func ErrInvalidSignature() lib.ErrorI {
	return lib.NewError(lib.CodeInvalidSignature, lib.ConsensusModule, "signature is not derivable from the revealed secret and commitment")
}

func ErrRoundIdMismatch() lib.ErrorI {
	return lib.NewError(lib.CodeRoundIdMismatch, lib.ConsensusModule, "proposal schedule does not identify the authoritative round")
}

func ErrInvalidSupposedOrder(got, want int64) lib.ErrorI {
	return lib.NewError(lib.CodeInvalidSupposedOrder, lib.ConsensusModule, fmt.Sprintf("supposed order of next round is %d, recomputed %d", got, want))
}

func ErrInvalidFinalOrder(publicKey string, got, want int64) lib.ErrorI {
	return lib.NewError(lib.CodeInvalidFinalOrder, lib.ConsensusModule, fmt.Sprintf("final order of %s is %d, deterministic resolution yields %d", publicKey, got, want))
}

func ErrWrongRoundNumber(got, want uint64) lib.ErrorI {
	return lib.NewError(lib.CodeWrongRoundNumber, lib.ConsensusModule, fmt.Sprintf("round number is %d, expected %d", got, want))
}

func ErrWrongTermNumber(got, want uint64) lib.ErrorI {
	return lib.NewError(lib.CodeWrongTermNumber, lib.ConsensusModule, fmt.Sprintf("term number is %d, expected %d", got, want))
}

func ErrRoundHashMismatch() lib.ErrorI {
	return lib.NewError(lib.CodeRoundHashMismatch, lib.ConsensusModule, "merged round hash does not equal the proposer's committed hash")
}

func ErrInvalidRandomProof() lib.ErrorI {
	return lib.NewError(lib.CodeInvalidRandomProof, lib.ConsensusModule, "random proof verification failed")
}

func ErrContinuousBlocksExceeded(publicKey string) lib.ErrorI {
	return lib.NewError(lib.CodeContinuousBlocksExceeded, lib.ConsensusModule, fmt.Sprintf("miner %s exceeded its continuous block allowance", publicKey))
}

func ErrUnknownBehaviour(b Behaviour) lib.ErrorI {
	return lib.NewError(lib.CodeUnknownBehaviour, lib.ConsensusModule, fmt.Sprintf("unknown consensus behaviour: %d", b))
}

func ErrHeightAlreadyApplied(height uint64) lib.ErrorI {
	return lib.NewError(lib.CodeHeightAlreadyApplied, lib.ConsensusModule, fmt.Sprintf("a consensus mutation was already applied at height %d", height))
}

func ErrSenderSignerMismatch() lib.ErrorI {
	return lib.NewError(lib.CodeSenderSignerMismatch, lib.ConsensusModule, "declared sender does not match the block signer")
}

func ErrEmptyProposal() lib.ErrorI {
	return lib.NewError(lib.CodeEmptyProposal, lib.ConsensusModule, "proposal round is empty")
}

func ErrInvalidTermTransition() lib.ErrorI {
	return lib.NewError(lib.CodeInvalidTermTransition, lib.ConsensusModule, "proposed term does not match the election victories")
}

func ErrInvalidPublicKey(err error) lib.ErrorI {
	return lib.NewError(lib.CodeInvalidPublicKey, lib.ConsensusModule, fmt.Sprintf("invalid public key: %s", err.Error()))
}

func ErrNotAuthorized(publicKey string) lib.ErrorI {
	return lib.NewError(lib.CodeNotAuthorized, lib.ConsensusModule, fmt.Sprintf("miner %s is not authorized for this action", publicKey))
}
