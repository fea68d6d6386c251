package dpos

import (
	"bytes"
	"time"

	"github.com/sequoia-network/sequoia/lib"
)

/*
	VALIDATION PIPELINE:

	A proposed round arrives inside a block produced by one miner and is
	untrusted until it passes an ordered, short-circuiting chain of checks
	against the authoritative round read from the local state. Every
	signature-derived value (supposed order, final order, extra block
	producer) is recomputed locally and compared - a proposer can never
	assert a privilege or an order the deterministic algorithms disagree
	with. Rejection is non-fatal: the block is simply not accepted.
*/

// ProposalContext carries the state snapshots one validation run operates on
type ProposalContext struct {
	Authoritative *Round              // the round read from local state
	Previous      *Round              // the authoritative previous round, nil during the first round
	Proposed      *Round              // the untrusted round supplied by the block producer
	Sender        string              // hex public key declared in the block header extra data
	Behaviour     Behaviour           // the consensus action the proposal claims to perform
	Victories     [][]byte            // the election victories, consulted for term transitions only
	Config        lib.ConsensusConfig // the chain's scheduling configuration
	BlockTime     time.Time           // the timestamp of the block carrying the proposal
}

// checkFn is a single independent stage of the validation pipeline
type checkFn func(*ProposalContext) lib.ErrorI

// validationChain() selects the ordered check chain for the behaviour; the
// switch is exhaustive over the behaviour set so a new behaviour cannot ship
// without a validator
func validationChain(b Behaviour) ([]checkFn, lib.ErrorI) {
	switch b {
	case BehaviourUpdateValue:
		return []checkFn{checkProposalBasic, checkAuthorization, checkTimeSlot, checkContinuousBlocks, checkUpdateValue}, nil
	case BehaviourTinyBlock:
		return []checkFn{checkProposalBasic, checkAuthorization, checkTimeSlot, checkContinuousBlocks, checkTinyBlock}, nil
	case BehaviourNextRound:
		return []checkFn{checkProposalBasic, checkAuthorization, checkTimeSlot, checkNextRound}, nil
	case BehaviourNextTerm:
		return []checkFn{checkProposalBasic, checkAuthorization, checkTimeSlot, checkNextTerm}, nil
	case BehaviourNothing:
		return nil, ErrUnknownBehaviour(b)
	default:
		return nil, ErrUnknownBehaviour(b)
	}
}

// ValidateBeforeExecution() runs the pre-execution chain; authorization and
// structure are checked before any merge may touch authoritative state
func ValidateBeforeExecution(ctx *ProposalContext) lib.ErrorI {
	chain, err := validationChain(ctx.Behaviour)
	if err != nil {
		return err
	}
	for _, check := range chain {
		if err = check(ctx); err != nil {
			return err
		}
	}
	return nil
}

// ValidateAfterExecution() requires the locally merged round to hash to the
// round the proposer committed; the merge copies only field-validated data so
// the equality proves the proposer and the validator agree on the result
func ValidateAfterExecution(merged, proposed *Round) lib.ErrorI {
	if !bytes.Equal(merged.Hash(), proposed.Hash()) {
		return ErrRoundHashMismatch()
	}
	return nil
}

// checkProposalBasic() rejects structurally malformed proposals
func checkProposalBasic(ctx *ProposalContext) lib.ErrorI {
	if ctx.Proposed == nil || ctx.Proposed.MinerCount() == 0 {
		return ErrEmptyProposal()
	}
	if ctx.Authoritative == nil {
		return ErrNilRound()
	}
	return ctx.Proposed.CheckBasic()
}

// checkAuthorization() requires the sender to hold a slot in the authoritative
// round; a term transition may also be proposed by a member of the previous
// round since the sender may have been voted out by the election being applied
func checkAuthorization(ctx *ProposalContext) lib.ErrorI {
	if ctx.Authoritative.IsMember(ctx.Sender) {
		return nil
	}
	if ctx.Behaviour == BehaviourNextTerm && ctx.Previous.IsMember(ctx.Sender) {
		return nil
	}
	return ErrMinerNotInRound(ctx.Sender)
}

// checkTimeSlot() validates the block time against the sender's assigned slot
// in the authoritative round
func checkTimeSlot(ctx *ProposalContext) lib.ErrorI {
	auth, interval := ctx.Authoritative, ctx.Config.MiningInterval()
	switch ctx.Behaviour {
	case BehaviourUpdateValue:
		// the main commitment must land inside the sender's own slot
		if !auth.IsInTimeSlot(ctx.Sender, ctx.BlockTime, interval) {
			return ErrTimeSlotViolation(ctx.Sender)
		}
	case BehaviourTinyBlock:
		// tiny blocks land inside the sender's slot, or - exclusively for the
		// previous round's extra block producer - before the round's official start
		if auth.IsInTimeSlot(ctx.Sender, ctx.BlockTime, interval) {
			return nil
		}
		if auth.ExtraBlockProducerOfPreviousRound == ctx.Sender && ctx.BlockTime.Before(auth.RoundStartTime()) {
			return nil
		}
		return ErrTimeSlotViolation(ctx.Sender)
	case BehaviourNextRound, BehaviourNextTerm:
		// termination is only valid once the sender's own slot has elapsed
		member := auth
		if !member.IsMember(ctx.Sender) {
			member = ctx.Previous
		}
		if !member.IsTimeSlotPassed(ctx.Sender, ctx.BlockTime, interval) {
			return ErrTimeSlotViolation(ctx.Sender)
		}
	}
	return nil
}

// checkContinuousBlocks() rate-limits the sender's block production; the
// produced count and the cap are keyed exclusively off the authoritative
// round so a spoofed round number in the proposal cannot reset the counter
func checkContinuousBlocks(ctx *ProposalContext) lib.ErrorI {
	auth := ctx.Authoritative
	slot := auth.GetMiner(ctx.Sender)
	if slot == nil {
		return ErrMinerNotInRound(ctx.Sender)
	}
	produced := int64(len(slot.ActualMiningTimes))
	var allowed int64
	if auth.ExtraBlockProducerOfPreviousRound == ctx.Sender && ctx.BlockTime.Before(auth.RoundStartTime()) {
		// the extra block producer's doubled pre-round quota
		allowed = ctx.Config.MaximumTinyBlocksCount + auth.BlocksBeforeRoundStart(ctx.Sender)
	} else {
		allowed = MaximumTinyBlocksCount(ctx.Config, auth, ctx.Previous)
	}
	if produced >= allowed {
		return ErrContinuousBlocksExceeded(ctx.Sender)
	}
	return nil
}

// checkUpdateValue() validates the sender's main commitment for the round
func checkUpdateValue(ctx *ProposalContext) lib.ErrorI {
	auth, proposed := ctx.Authoritative, ctx.Proposed
	// an update never moves the round or term counters
	if proposed.RoundNumber != auth.RoundNumber {
		return ErrWrongRoundNumber(proposed.RoundNumber, auth.RoundNumber)
	}
	if proposed.TermNumber != auth.TermNumber {
		return ErrWrongTermNumber(proposed.TermNumber, auth.TermNumber)
	}
	// the schedule identifies the round independently of the counters; a
	// proposal carrying tampered expected mining times is caught here before
	// the field checks
	if proposed.RoundId() != auth.RoundId() {
		return ErrRoundIdMismatch()
	}
	authSlot := auth.GetMiner(ctx.Sender)
	// out value and signature are immutable once set for the round
	if authSlot.MinedThisRound() {
		return ErrValueAlreadySet()
	}
	proposedSlot := proposed.GetMiner(ctx.Sender)
	if proposedSlot == nil || len(proposedSlot.OutValue) == 0 || len(proposedSlot.Signature) == 0 {
		return ErrMissingOutValue()
	}
	// the update block itself occupies one mining time
	if proposed.MinerCount() != auth.MinerCount() || len(proposedSlot.ActualMiningTimes) != len(authSlot.ActualMiningTimes)+1 {
		return ErrEmptyProposal()
	}
	// exactly one commitment may be newly filled per call: every other slot's
	// cryptographic fields must match the authoritative round byte for byte
	for k, m := range proposed.Miners {
		if k == ctx.Sender {
			continue
		}
		am := auth.GetMiner(k)
		if am == nil {
			return ErrMinerNotInRound(k)
		}
		if !bytes.Equal(m.OutValue, am.OutValue) || !bytes.Equal(m.Signature, am.Signature) || !bytes.Equal(m.PreviousInValue, am.PreviousInValue) {
			return ErrMissingOutValue()
		}
		if m.ImpliedIrreversibleBlockHeight != am.ImpliedIrreversibleBlockHeight {
			return ErrNotAuthorized(ctx.Sender)
		}
	}
	// the revealed secret must bind to the previous round's commitment and the
	// signature must derive from it; never accept a miner-supplied signature uncritically
	var previousOutValue lib.HexBytes
	if prevSlot := ctx.Previous.GetMiner(ctx.Sender); prevSlot != nil {
		previousOutValue = prevSlot.OutValue
	}
	if err := VerifySignatureDerivation(proposedSlot, previousOutValue); err != nil {
		return err
	}
	// recompute the supposed order from the signature
	want := SignatureToOrder(proposedSlot.Signature, int64(auth.MinerCount()))
	if proposedSlot.SupposedOrderOfNextRound != want {
		return ErrInvalidSupposedOrder(proposedSlot.SupposedOrderOfNextRound, want)
	}
	// replay the deterministic conflict resolution over the authoritative
	// round plus the sender's new commitment; every final order the proposal
	// carries - the sender's own and any tuning of other miners - must equal
	// the replayed assignment
	replay := auth.Clone()
	replaySlot := replay.Miners[ctx.Sender]
	replaySlot.OutValue, replaySlot.Signature = proposedSlot.OutValue, proposedSlot.Signature
	expected := ResolveNextRoundOrders(replay)
	for _, k := range proposed.OrderedMinerKeys() {
		m := proposed.Miners[k]
		wantFinal, mined := expected[k]
		if !mined {
			wantFinal = 0
		}
		if m.FinalOrderOfNextRound != wantFinal {
			return ErrInvalidFinalOrder(k, m.FinalOrderOfNextRound, wantFinal)
		}
	}
	return nil
}

// checkTinyBlock() validates that the proposal only appends one mining time for the sender
func checkTinyBlock(ctx *ProposalContext) lib.ErrorI {
	auth, proposed := ctx.Authoritative, ctx.Proposed
	if proposed.RoundNumber != auth.RoundNumber {
		return ErrWrongRoundNumber(proposed.RoundNumber, auth.RoundNumber)
	}
	if proposed.TermNumber != auth.TermNumber {
		return ErrWrongTermNumber(proposed.TermNumber, auth.TermNumber)
	}
	if proposed.RoundId() != auth.RoundId() {
		return ErrRoundIdMismatch()
	}
	authSlot, proposedSlot := auth.GetMiner(ctx.Sender), proposed.GetMiner(ctx.Sender)
	if proposedSlot == nil || proposed.MinerCount() != auth.MinerCount() {
		return ErrEmptyProposal()
	}
	// exactly one new actual mining time for the sender
	if len(proposedSlot.ActualMiningTimes) != len(authSlot.ActualMiningTimes)+1 {
		return ErrEmptyProposal()
	}
	// the cryptographic fields never change inside a tiny block
	if !bytes.Equal(proposedSlot.OutValue, authSlot.OutValue) || !bytes.Equal(proposedSlot.Signature, authSlot.Signature) {
		return ErrValueAlreadySet()
	}
	// no other slot may be touched
	for k, m := range proposed.Miners {
		if k == ctx.Sender {
			continue
		}
		am := auth.GetMiner(k)
		if am == nil {
			return ErrMinerNotInRound(k)
		}
		if !bytes.Equal(m.OutValue, am.OutValue) || len(m.ActualMiningTimes) != len(am.ActualMiningTimes) || m.FinalOrderOfNextRound != am.FinalOrderOfNextRound {
			return ErrNotAuthorized(ctx.Sender)
		}
	}
	return nil
}

// checkNextRound() independently regenerates the next round from authoritative
// data and requires the proposal to equal it; the proposer cannot name itself
// the extra block producer or re-order the schedule
func checkNextRound(ctx *ProposalContext) lib.ErrorI {
	auth, proposed := ctx.Authoritative, ctx.Proposed
	// the round counter advances by exactly one; this is checked against the
	// authoritative counter, a spoofed low round number cannot pass
	if proposed.RoundNumber != auth.RoundNumber+1 {
		return ErrWrongRoundNumber(proposed.RoundNumber, auth.RoundNumber+1)
	}
	if proposed.TermNumber != auth.TermNumber {
		return ErrWrongTermNumber(proposed.TermNumber, auth.TermNumber)
	}
	expected, err := GenerateNextRound(auth, ctx.Config, ctx.BlockTime)
	if err != nil {
		return err
	}
	return compareGeneratedRound(expected, proposed)
}

// checkNextTerm() independently regenerates the first round of the next term
// from the election victories and requires the proposal to equal it
func checkNextTerm(ctx *ProposalContext) lib.ErrorI {
	auth, proposed := ctx.Authoritative, ctx.Proposed
	if proposed.RoundNumber != auth.RoundNumber+1 {
		return ErrWrongRoundNumber(proposed.RoundNumber, auth.RoundNumber+1)
	}
	if proposed.TermNumber != auth.TermNumber+1 {
		return ErrWrongTermNumber(proposed.TermNumber, auth.TermNumber+1)
	}
	// the first round of a term must flag the miner list change: it suppresses
	// secret revelation checks and pins the finality quorum basis
	if !proposed.IsMinerListJustChanged {
		return ErrInvalidTermTransition()
	}
	expected, err := GenerateNextTerm(auth, ctx.Victories, ctx.Config, ctx.BlockTime)
	if err != nil {
		return err
	}
	// the proposed miner set must be exactly the election victories
	if expected.MinerCount() != proposed.MinerCount() {
		return ErrInvalidTermTransition()
	}
	for k := range expected.Miners {
		if !proposed.IsMember(k) {
			return ErrInvalidTermTransition()
		}
	}
	return compareGeneratedRound(expected, proposed)
}

// compareGeneratedRound() compares a proposal against the locally generated
// round, surfacing the targeted rejection reasons before the hash catch-all
func compareGeneratedRound(expected, proposed *Round) lib.ErrorI {
	for k, em := range expected.Miners {
		pm := proposed.GetMiner(k)
		if pm == nil {
			return ErrMinerNotInRound(k)
		}
		if pm.Order != em.Order {
			return ErrInvalidFinalOrder(k, pm.Order, em.Order)
		}
		// the extra block producer flag is signature-derived, never miner-asserted
		if pm.IsExtraBlockProducer != em.IsExtraBlockProducer {
			return ErrWrongExtraBlockProducer()
		}
	}
	if proposed.ExtraBlockProducerOfPreviousRound != expected.ExtraBlockProducerOfPreviousRound {
		return ErrWrongExtraBlockProducer()
	}
	// the finality watermark is carried, never proposer-adjusted
	if proposed.ConfirmedIrreversibleBlockHeight != expected.ConfirmedIrreversibleBlockHeight ||
		proposed.ConfirmedIrreversibleBlockRoundNumber != expected.ConfirmedIrreversibleBlockRoundNumber {
		return ErrRoundHashMismatch()
	}
	// catch-all equality over every remaining field
	if !bytes.Equal(expected.Hash(), proposed.Hash()) {
		return ErrRoundHashMismatch()
	}
	return nil
}
