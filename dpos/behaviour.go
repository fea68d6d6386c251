package dpos

import (
	"time"

	"github.com/sequoia-network/sequoia/lib"
)

/*
	BEHAVIOUR DECISION:

	Before each block production attempt a miner asks the decision engine which
	consensus action it is permitted to take next. The answer is a pure
	function of the authoritative rounds and the clock; it has no side effects
	and is safely re-entrant.
*/

// Behaviour is the closed set of consensus actions a miner may take
type Behaviour int

const (
	BehaviourNothing     Behaviour = iota // no mining rights at this moment
	BehaviourUpdateValue                  // publish the round's main commitment (out value + signature)
	BehaviourTinyBlock                    // produce an additional block within the miner's own slot
	BehaviourNextRound                    // terminate the round and propose the next one
	BehaviourNextTerm                     // terminate the term and propose the first round of the next one
)

// String() returns the human readable name of the behaviour
func (b Behaviour) String() string {
	switch b {
	case BehaviourNothing:
		return "Nothing"
	case BehaviourUpdateValue:
		return "UpdateValue"
	case BehaviourTinyBlock:
		return "TinyBlock"
	case BehaviourNextRound:
		return "NextRound"
	case BehaviourNextTerm:
		return "NextTerm"
	default:
		return "Unknown"
	}
}

// DecideBehaviour() decides which consensus action the miner may take next.
// termStartTime is the start time of the current term's first round; previous may be nil
// during the first round of the chain
func DecideBehaviour(publicKey string, current, previous *Round, termStartTime time.Time, cfg lib.ConsensusConfig, now time.Time) Behaviour {
	miner := current.GetMiner(publicKey)
	// a non-member has no mining rights
	if miner == nil {
		return BehaviourNothing
	}
	interval := cfg.MiningInterval()
	termination := terminationBehaviour(termStartTime, cfg, now)
	// before the main commitment is published the only choices are committing or terminating
	if !miner.MinedThisRound() {
		if current.IsTimeSlotPassed(publicKey, now, interval) {
			return termination
		}
		return BehaviourUpdateValue
	}
	produced := int64(len(miner.ActualMiningTimes))
	// the previous round's extra block producer may keep mining before the
	// round's official start, up to a doubled quota; the privilege is read
	// exclusively from the authoritative, already-validated field. a fresh
	// slot exits through the commitment branch above, so in practice the
	// pre-round continuation reaches the chain as tiny blocks gated by
	// checkContinuousBlocks
	if current.ExtraBlockProducerOfPreviousRound == publicKey && now.Before(current.RoundStartTime()) {
		if produced < cfg.MaximumTinyBlocksCount+current.BlocksBeforeRoundStart(publicKey) {
			return BehaviourTinyBlock
		}
		return BehaviourNothing
	}
	// within the miner's own slot, tiny blocks are allowed up to the dynamic cap
	if current.IsInTimeSlot(publicKey, now, interval) {
		if produced < MaximumTinyBlocksCount(cfg, current, previous) {
			return BehaviourTinyBlock
		}
		return termination
	}
	// the slot has ended; the extra block producer terminates the round once its turn comes
	if current.IsTimeSlotPassed(publicKey, now, interval) {
		return termination
	}
	return BehaviourNothing
}

// terminationBehaviour() selects between ending the round and ending the term
func terminationBehaviour(termStartTime time.Time, cfg lib.ConsensusConfig, now time.Time) Behaviour {
	if !termStartTime.IsZero() && now.After(termStartTime.Add(cfg.TermPeriod())) {
		return BehaviourNextTerm
	}
	return BehaviourNextRound
}

// mining status bands for the dynamic tiny block cap; the ratio is the share
// of current miners that also produced a block in the previous round
const (
	severeStatusRatio   = 0.5       // below this the network is considered severely degraded
	abnormalStatusRatio = 2.0 / 3.0 // below this the network is considered abnormal
)

// MaximumTinyBlocksCount() computes the dynamic per-slot tiny block cap from
// the cross-round miner overlap. The cap never degrades below 1: a computed
// cap of 0 would halt honest miners under abnormal network conditions
func MaximumTinyBlocksCount(cfg lib.ConsensusConfig, current, previous *Round) int64 {
	base := cfg.MaximumTinyBlocksCount
	if base < 1 {
		base = 1
	}
	if current == nil || previous == nil || current.MinerCount() == 0 {
		return base
	}
	// count the current miners that also produced a block last round
	overlap := 0
	for publicKey := range current.Miners {
		if prev := previous.GetMiner(publicKey); prev != nil && prev.SupposedOrderOfNextRound != 0 {
			overlap++
		}
	}
	ratio := float64(overlap) / float64(current.MinerCount())
	switch {
	case ratio < severeStatusRatio:
		return 1
	case ratio < abnormalStatusRatio:
		count := int64(float64(base) * ratio)
		if count < 1 {
			return 1
		}
		return count
	default:
		return base
	}
}
