package dpos

import (
	"github.com/sequoia-network/sequoia/lib"
)

/*
	RECOVERY / MERGE:

	After a proposal passes field-level validation, the merge step produces
	the round that will actually be persisted: a clone of the authoritative
	round with only the sender's own validated fields copied in. Merging
	happens after - never instead of - validation, so the post-execution hash
	check proves agreement without letting unvalidated proposer fields
	overwrite authoritative state.

	A tune-order entry addressing a miner that no longer exists is skipped
	rather than rejected: a key replacement is a legitimate operation that may
	land between the proposer building its delta and this node applying it.
*/

// RecoverFromUpdateValue() merges the sender's main commitment into a clone of the authoritative round
func RecoverFromUpdateValue(authoritative, proposed *Round, sender string) (*Round, lib.ErrorI) {
	proposedSlot := proposed.GetMiner(sender)
	if proposedSlot == nil {
		return nil, ErrEmptyProposal()
	}
	merged := authoritative.Clone()
	slot := merged.GetMiner(sender)
	if slot == nil {
		return nil, ErrMinerNotInRound(sender)
	}
	// only the sender's own cryptographic and scheduling fields are copied
	slot.OutValue = append(lib.HexBytes(nil), proposedSlot.OutValue...)
	slot.Signature = append(lib.HexBytes(nil), proposedSlot.Signature...)
	slot.PreviousInValue = append(lib.HexBytes(nil), proposedSlot.PreviousInValue...)
	slot.SupposedOrderOfNextRound = proposedSlot.SupposedOrderOfNextRound
	slot.FinalOrderOfNextRound = proposedSlot.FinalOrderOfNextRound
	slot.ImpliedIrreversibleBlockHeight = proposedSlot.ImpliedIrreversibleBlockHeight
	slot.ActualMiningTimes = append(slot.ActualMiningTimes, proposedSlot.ActualMiningTimes[len(proposedSlot.ActualMiningTimes)-1])
	slot.ProducedBlocks++
	// apply the validated order tuning to the other miners, skipping any key
	// that was rotated out since the proposer built its delta
	for k, m := range proposed.Miners {
		if k == sender {
			continue
		}
		target, exists := merged.Miners[k]
		if !exists {
			continue
		}
		if m.FinalOrderOfNextRound != 0 && m.FinalOrderOfNextRound != target.FinalOrderOfNextRound {
			target.FinalOrderOfNextRound = m.FinalOrderOfNextRound
		}
	}
	return merged, nil
}

// RecoverFromTinyBlock() appends the sender's new mining time to a clone of the authoritative round
func RecoverFromTinyBlock(authoritative, proposed *Round, sender string) (*Round, lib.ErrorI) {
	proposedSlot := proposed.GetMiner(sender)
	if proposedSlot == nil || len(proposedSlot.ActualMiningTimes) == 0 {
		return nil, ErrEmptyProposal()
	}
	merged := authoritative.Clone()
	slot := merged.GetMiner(sender)
	if slot == nil {
		return nil, ErrMinerNotInRound(sender)
	}
	slot.ActualMiningTimes = append(slot.ActualMiningTimes, proposedSlot.ActualMiningTimes[len(proposedSlot.ActualMiningTimes)-1])
	slot.ProducedBlocks++
	if proposedSlot.ImpliedIrreversibleBlockHeight > slot.ImpliedIrreversibleBlockHeight {
		slot.ImpliedIrreversibleBlockHeight = proposedSlot.ImpliedIrreversibleBlockHeight
	}
	return merged, nil
}

// Recover() dispatches the merge for the behaviour; round and term
// transitions persist the independently regenerated round rather than a merge
func Recover(authoritative, proposed *Round, sender string, behaviour Behaviour) (*Round, lib.ErrorI) {
	switch behaviour {
	case BehaviourUpdateValue:
		return RecoverFromUpdateValue(authoritative, proposed, sender)
	case BehaviourTinyBlock:
		return RecoverFromTinyBlock(authoritative, proposed, sender)
	default:
		return nil, ErrUnknownBehaviour(behaviour)
	}
}
