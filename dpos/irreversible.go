package dpos

import (
	"sort"
)

/*
	LAST IRREVERSIBLE BLOCK:

	Finality derives from cross-attestation: each miner that produces a block
	attests the height it considers irreversible. Once a Byzantine quorum of
	miners that produced in both of the last two rounds agree, the chain's
	finality watermark advances to the lower-third order statistic of the
	attested heights.

	Quorum basis policy: the basis n of floor(2n/3)+1 is the miner count of
	the round the committer sample was drawn from. During the single round
	after a miner list change the sample still comes from the previous
	membership, so the basis stays at the previous round's count; silently
	switching to a grown count while sampling the old membership stalls
	finality.
*/

// MinimumIrreversibleBlockQuorum() returns the Byzantine quorum floor(2n/3)+1
func MinimumIrreversibleBlockQuorum(minerCount int) int {
	return minerCount*2/3 + 1
}

// CalculateIrreversibleHeight() gathers the implied irreversible heights of
// the miners that produced a block in both of the last two rounds and returns
// the new finality height, or false when the quorum is not met. Failure to
// meet quorum is a 'no advance', never an error
func CalculateIrreversibleHeight(current, previous *Round) (height uint64, ok bool) {
	if current == nil || previous == nil {
		return 0, false
	}
	// the committer sample: mined in the previous round (supposed order set)
	// and attested a height in the current one
	heights := make([]uint64, 0, len(current.Miners))
	for publicKey, miner := range current.Miners {
		prev := previous.GetMiner(publicKey)
		if prev == nil || prev.SupposedOrderOfNextRound == 0 {
			continue
		}
		if miner.ImpliedIrreversibleBlockHeight == 0 {
			continue
		}
		heights = append(heights, miner.ImpliedIrreversibleBlockHeight)
	}
	// pin the quorum basis to the membership the sample was drawn from
	basis := current.MinerCount()
	if current.IsMinerListJustChanged {
		basis = previous.MinerCount()
	}
	if len(heights) < MinimumIrreversibleBlockQuorum(basis) {
		return 0, false
	}
	sort.Slice(heights, func(i, j int) bool { return heights[i] < heights[j] })
	// the lower-third order statistic: at least two thirds of the committers
	// attest a height at or above the returned one
	return heights[len(heights)/3], true
}

// AdvanceIrreversibleHeight() applies a computed finality height to the round
// respecting monotonicity; returns true only when the watermark moved
func AdvanceIrreversibleHeight(round *Round, height uint64) bool {
	if height <= round.ConfirmedIrreversibleBlockHeight {
		return false
	}
	round.ConfirmedIrreversibleBlockHeight = height
	round.ConfirmedIrreversibleBlockRoundNumber = round.RoundNumber
	return true
}
