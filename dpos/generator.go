package dpos

import (
	"bytes"
	"sort"
	"time"

	"github.com/sequoia-network/sequoia/lib"
)

/*
	ROUND GENERATION:

	The generator produces the next round's schedule from the current one.
	Ordering for a fresh term is a fixed deterministic sort of the elected
	miner keys; ordering for round-to-round continuation derives from each
	miner's round signature with deterministic conflict resolution. Both paths
	are pure functions so every node generates the identical round from the
	identical inputs.
*/

// GenerateFirstRoundOfTerm() produces the first round of a term from the elected miner list
func GenerateFirstRoundOfTerm(minerList [][]byte, cfg lib.ConsensusConfig, now time.Time, roundNumber, termNumber uint64) (*Round, lib.ErrorI) {
	if len(minerList) == 0 {
		return nil, ErrEmptyMinerList()
	}
	// deduplicate and hex-encode the keys
	dedup, keys := lib.NewDeDuplicator[string](), make([]string, 0, len(minerList))
	raw := make(map[string][]byte, len(minerList))
	for _, pub := range minerList {
		k := lib.BytesToString(pub)
		if dedup.Found(k) {
			continue
		}
		keys = append(keys, k)
		raw[k] = pub
	}
	// fixed deterministic ordering for a fresh term: first byte descending,
	// full key descending on ties
	sort.Slice(keys, func(i, j int) bool {
		a, b := raw[keys[i]], raw[keys[j]]
		if a[0] != b[0] {
			return a[0] > b[0]
		}
		return bytes.Compare(a, b) > 0
	})
	interval := cfg.MiningInterval()
	round := &Round{
		RoundNumber:            roundNumber,
		TermNumber:             termNumber,
		Miners:                 make(map[string]*MinerInRound, len(keys)),
		IsMinerListJustChanged: true,
	}
	for i, k := range keys {
		order := int64(i + 1)
		round.Miners[k] = &MinerInRound{
			Order:              order,
			ExpectedMiningTime: now.Add(interval * time.Duration(order)),
		}
	}
	// the first miner in the deterministic order is the round's extra block producer
	first := keys[0]
	round.Miners[first].IsExtraBlockProducer = true
	round.ExtraBlockProducerOfPreviousRound = first
	return round, nil
}

// GenerateNextRound() produces the next round's schedule from the round being closed
func GenerateNextRound(current *Round, cfg lib.ConsensusConfig, now time.Time) (*Round, lib.ErrorI) {
	if err := current.CheckBasic(); err != nil {
		return nil, err
	}
	n, interval := int64(current.MinerCount()), cfg.MiningInterval()
	next := &Round{
		RoundNumber:                           current.RoundNumber + 1,
		TermNumber:                            current.TermNumber,
		Miners:                                make(map[string]*MinerInRound, n),
		ExtraBlockProducerOfPreviousRound:     current.ExtraBlockProducer(),
		ConfirmedIrreversibleBlockHeight:      current.ConfirmedIrreversibleBlockHeight,
		ConfirmedIrreversibleBlockRoundNumber: current.ConfirmedIrreversibleBlockRoundNumber,
	}
	// deterministic orders for the miners that produced a block this round
	finalOrders := ResolveNextRoundOrders(current)
	occupied := make(map[int64]bool, len(finalOrders))
	for _, order := range finalOrders {
		occupied[order] = true
	}
	// the miners that missed their slot fill the remaining orders ascending,
	// walked in current-round order so every node fills identically
	free := make([]int64, 0, n)
	for order := int64(1); order <= n; order++ {
		if !occupied[order] {
			free = append(free, order)
		}
	}
	for _, k := range current.OrderedMinerKeys() {
		if _, mined := finalOrders[k]; !mined {
			finalOrders[k] = free[0]
			free = free[1:]
		}
	}
	for k, m := range current.Miners {
		order := finalOrders[k]
		slot := &MinerInRound{
			Order:              order,
			ExpectedMiningTime: now.Add(interval * time.Duration(order)),
			ProducedBlocks:     m.ProducedBlocks,
			MissedTimeSlots:    m.MissedTimeSlots,
		}
		if !m.MinedThisRound() {
			slot.MissedTimeSlots++
		}
		next.Miners[k] = slot
	}
	// next round's extra block producer derives from the signature of the
	// order-1 miner of the round being closed, taken mod the miner count
	ebpOrder := int64(1)
	if _, first := current.FirstMiner(); first != nil && len(first.Signature) != 0 {
		ebpOrder = SignatureToIndex(first.Signature, n) + 1
	}
	if k, _ := next.MinerAtOrder(ebpOrder); k != "" {
		next.Miners[k].IsExtraBlockProducer = true
	}
	return next, nil
}

// GenerateNextTerm() produces the first round of the next term from the election victories
func GenerateNextTerm(current *Round, victories [][]byte, cfg lib.ConsensusConfig, now time.Time) (*Round, lib.ErrorI) {
	round, err := GenerateFirstRoundOfTerm(victories, cfg, now, current.RoundNumber+1, current.TermNumber+1)
	if err != nil {
		return nil, err
	}
	// the pre-round privilege of the new term's first round belongs to the
	// extra block producer of the round being closed
	round.ExtraBlockProducerOfPreviousRound = current.ExtraBlockProducer()
	// the finality watermark survives term boundaries
	round.ConfirmedIrreversibleBlockHeight = current.ConfirmedIrreversibleBlockHeight
	round.ConfirmedIrreversibleBlockRoundNumber = current.ConfirmedIrreversibleBlockRoundNumber
	return round, nil
}

// ResolveNextRoundOrders() is the single source of truth for FinalOrderOfNextRound.
// It replays, in slot order, every miner that produced a block this round:
// each computed supposed order claims its slot if free, otherwise probes
// upward (wrapping) until a free slot is found. The first claimant of a slot
// keeps it; later collisions probe. No other path may set a final order
func ResolveNextRoundOrders(current *Round) map[string]int64 {
	n := int64(current.MinerCount())
	finals, occupied := make(map[string]int64), make(map[int64]bool)
	for _, k := range current.OrderedMinerKeys() {
		m := current.Miners[k]
		if !m.MinedThisRound() {
			continue
		}
		order := probeFreeOrder(SignatureToOrder(m.Signature, n), occupied, n)
		finals[k], occupied[order] = order, true
	}
	return finals
}

// probeFreeOrder() linearly probes from the supposed order, wrapping at minerCount
func probeFreeOrder(supposed int64, occupied map[int64]bool, n int64) int64 {
	order := supposed
	for occupied[order] {
		order = order%n + 1
	}
	return order
}
