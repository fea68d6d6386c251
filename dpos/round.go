package dpos

import (
	"bytes"
	"sort"
	"time"

	"github.com/sequoia-network/sequoia/lib"
	"github.com/sequoia-network/sequoia/lib/crypto"
)

/*
	ROUND MODEL:

	A Round is one scheduling cycle covering every current miner's turn. Each
	miner owns exactly one time slot per round, identified by its order in
	[1, minerCount]. One miner per round is additionally designated the 'extra
	block producer': it terminates the round and enjoys a doubled tiny block
	quota before the start of the following round.

	A Round is created by the generator at a round or term boundary, mutated
	in place (per-miner fields only) as miners submit their commitments, and
	superseded - retained as history - when the next round is generated.
*/

// Round is the unit of consensus scheduling
type Round struct {
	RoundNumber                           uint64                   `json:"roundNumber"`                           // strictly increasing across accepted rounds
	TermNumber                            uint64                   `json:"termNumber"`                            // increments only at term boundaries
	Miners                                map[string]*MinerInRound `json:"miners"`                                // hex public key -> the miner's slot
	ExtraBlockProducerOfPreviousRound     string                   `json:"extraBlockProducerOfPreviousRound"`     // hex public key of the miner holding the pre-round privilege this round
	ConfirmedIrreversibleBlockHeight      uint64                   `json:"confirmedIrreversibleBlockHeight"`      // the finality watermark, monotonically non-decreasing
	ConfirmedIrreversibleBlockRoundNumber uint64                   `json:"confirmedIrreversibleBlockRoundNumber"` // the round during which the watermark was set
	IsMinerListJustChanged                bool                     `json:"isMinerListJustChanged"`                // true only for the first round of a new term
}

// MinerInRound is the per-miner state within a Round
type MinerInRound struct {
	Order                          int64        `json:"order"`                          // unique within the round, in [1, minerCount]; determines the mining time offset
	IsExtraBlockProducer           bool         `json:"isExtraBlockProducer"`           // exactly one slot per round; assigned from the order-1 signature, never miner-asserted
	ExpectedMiningTime             time.Time    `json:"expectedMiningTime"`             // the scheduled start of this miner's time slot
	ActualMiningTimes              []time.Time  `json:"actualMiningTimes"`              // the observed block production times of this miner this round
	OutValue                       lib.HexBytes `json:"outValue"`                       // the hash commitment to the miner's round secret
	Signature                      lib.HexBytes `json:"signature"`                      // the secret-derived value seeding next round ordering
	InValue                        lib.HexBytes `json:"inValue"`                        // the round secret; only ever populated on the miner's own node
	PreviousInValue                lib.HexBytes `json:"previousInValue"`                // the revealed secret of the previous round
	SupposedOrderOfNextRound       int64        `json:"supposedOrderOfNextRound"`       // abs(signature) mod minerCount + 1; doubles as the 'mined this round' indicator
	FinalOrderOfNextRound          int64        `json:"finalOrderOfNextRound"`          // the supposed order after deterministic conflict resolution
	ProducedBlocks                 uint64       `json:"producedBlocks"`                 // blocks produced by this miner during the current term
	MissedTimeSlots                uint64       `json:"missedTimeSlots"`                // time slots missed by this miner during the current term
	ImpliedIrreversibleBlockHeight uint64       `json:"impliedIrreversibleBlockHeight"` // the height this miner attests as irreversible
}

// MinerCount() returns the number of miner slots in the round
func (r *Round) MinerCount() int { return len(r.Miners) }

// GetMiner() returns the slot of the hex public key, nil if not a member
func (r *Round) GetMiner(publicKey string) *MinerInRound {
	if r == nil || r.Miners == nil {
		return nil
	}
	return r.Miners[publicKey]
}

// IsMember() returns true if the hex public key owns a slot in the round
func (r *Round) IsMember(publicKey string) bool { return r.GetMiner(publicKey) != nil }

// OrderedMinerKeys() returns the hex public keys sorted by their slot order
// map iteration order is not deterministic, so every cross-node walk over the
// miner set must go through this accessor
func (r *Round) OrderedMinerKeys() []string {
	keys := make([]string, 0, len(r.Miners))
	for k := range r.Miners {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := r.Miners[keys[i]], r.Miners[keys[j]]
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		return keys[i] < keys[j]
	})
	return keys
}

// MinerAtOrder() returns the hex public key and slot holding the order, empty if absent
func (r *Round) MinerAtOrder(order int64) (string, *MinerInRound) {
	for k, m := range r.Miners {
		if m.Order == order {
			return k, m
		}
	}
	return "", nil
}

// FirstMiner() returns the hex public key and slot of the order-1 miner
func (r *Round) FirstMiner() (string, *MinerInRound) { return r.MinerAtOrder(1) }

// ExtraBlockProducer() returns the hex public key of the designated extra block producer of this round
func (r *Round) ExtraBlockProducer() string {
	for k, m := range r.Miners {
		if m.IsExtraBlockProducer {
			return k
		}
	}
	return ""
}

// RoundStartTime() returns the expected mining time of the order-1 miner
func (r *Round) RoundStartTime() time.Time {
	_, first := r.FirstMiner()
	if first == nil {
		return time.Time{}
	}
	return first.ExpectedMiningTime
}

// RoundEndTime() returns the end of the last ordinary time slot plus the extra block slot
func (r *Round) RoundEndTime(miningInterval time.Duration) time.Time {
	return r.RoundStartTime().Add(time.Duration(r.MinerCount()+1) * miningInterval)
}

// RoundId() derives the round identity from all slots' expected mining times;
// it detects 'is this the same round' without trusting miner-supplied round numbers
func (r *Round) RoundId() int64 {
	var id int64
	for _, m := range r.Miners {
		id += m.ExpectedMiningTime.UnixMilli()
	}
	return id
}

// Clone() returns a deep copy of the round
func (r *Round) Clone() *Round {
	if r == nil {
		return nil
	}
	clone := &Round{
		RoundNumber:                           r.RoundNumber,
		TermNumber:                            r.TermNumber,
		Miners:                                make(map[string]*MinerInRound, len(r.Miners)),
		ExtraBlockProducerOfPreviousRound:     r.ExtraBlockProducerOfPreviousRound,
		ConfirmedIrreversibleBlockHeight:      r.ConfirmedIrreversibleBlockHeight,
		ConfirmedIrreversibleBlockRoundNumber: r.ConfirmedIrreversibleBlockRoundNumber,
		IsMinerListJustChanged:                r.IsMinerListJustChanged,
	}
	for k, m := range r.Miners {
		clone.Miners[k] = m.Clone()
	}
	return clone
}

// Clone() returns a deep copy of the miner slot
func (m *MinerInRound) Clone() *MinerInRound {
	if m == nil {
		return nil
	}
	clone := *m
	clone.ActualMiningTimes = append([]time.Time(nil), m.ActualMiningTimes...)
	clone.OutValue = append(lib.HexBytes(nil), m.OutValue...)
	clone.Signature = append(lib.HexBytes(nil), m.Signature...)
	clone.InValue = append(lib.HexBytes(nil), m.InValue...)
	clone.PreviousInValue = append(lib.HexBytes(nil), m.PreviousInValue...)
	return &clone
}

// Hash() deterministically encodes the consensus-relevant content of the round
// and hashes it; used for the post-merge equality check between the proposer's
// committed round and the locally merged round
func (r *Round) Hash() []byte {
	buf := new(bytes.Buffer)
	buf.Write(lib.FormatUint64(r.RoundNumber))
	buf.Write(lib.FormatUint64(r.TermNumber))
	buf.WriteString(r.ExtraBlockProducerOfPreviousRound)
	buf.Write(lib.FormatUint64(r.ConfirmedIrreversibleBlockHeight))
	buf.Write(lib.FormatUint64(r.ConfirmedIrreversibleBlockRoundNumber))
	if r.IsMinerListJustChanged {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
	// walk the miners in sorted key order for a canonical encoding
	keys := make([]string, 0, len(r.Miners))
	for k := range r.Miners {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		m := r.Miners[k]
		buf.WriteString(k)
		buf.Write(lib.FormatUint64(uint64(m.Order)))
		if m.IsExtraBlockProducer {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
		buf.Write(lib.FormatUint64(uint64(m.ExpectedMiningTime.UnixMilli())))
		// the count keeps the mining times from aliasing into the next section
		buf.Write(lib.FormatUint64(uint64(len(m.ActualMiningTimes))))
		for _, t := range m.ActualMiningTimes {
			buf.Write(lib.FormatUint64(uint64(t.UnixMilli())))
		}
		// note: InValue is deliberately excluded, it is local-only until revealed
		// every field carries an unconditional length prefix: a nil field and the
		// empty field a json decode produces must hash identically
		writeLenPrefixed(buf, m.OutValue)
		writeLenPrefixed(buf, m.Signature)
		writeLenPrefixed(buf, m.PreviousInValue)
		buf.Write(lib.FormatUint64(uint64(m.SupposedOrderOfNextRound)))
		buf.Write(lib.FormatUint64(uint64(m.FinalOrderOfNextRound)))
		buf.Write(lib.FormatUint64(m.ProducedBlocks))
		buf.Write(lib.FormatUint64(m.MissedTimeSlots))
		buf.Write(lib.FormatUint64(m.ImpliedIrreversibleBlockHeight))
	}
	return crypto.Hash(buf.Bytes())
}

// writeLenPrefixed() writes the field behind a fixed-width length prefix
func writeLenPrefixed(buf *bytes.Buffer, bz []byte) {
	buf.Write(lib.FormatUint64(uint64(len(bz))))
	buf.Write(bz)
}

// CheckBasic() validates the structural invariants any accepted round must satisfy:
// orders form the contiguous set {1..minerCount} and exactly one slot is the extra block producer
func (r *Round) CheckBasic() lib.ErrorI {
	if r == nil {
		return ErrNilRound()
	}
	n := int64(r.MinerCount())
	if n == 0 {
		return ErrEmptyMinerList()
	}
	seen, extraProducers := lib.NewDeDuplicator[int64](), 0
	for _, m := range r.Miners {
		if m.Order < 1 || m.Order > n {
			return ErrInvalidOrderRange(m.Order, n)
		}
		if seen.Found(m.Order) {
			return ErrDuplicateOrder(m.Order)
		}
		if m.IsExtraBlockProducer {
			extraProducers++
		}
	}
	// a contiguous, duplicate-free set of n orders in [1, n] is exactly {1..n}
	if extraProducers != 1 {
		return ErrWrongExtraBlockProducer()
	}
	return nil
}

// IsTimeSlotPassed() returns true if the miner's slot end precedes the given time
func (r *Round) IsTimeSlotPassed(publicKey string, now time.Time, miningInterval time.Duration) bool {
	miner := r.GetMiner(publicKey)
	if miner == nil {
		return false
	}
	return miner.ExpectedMiningTime.Add(miningInterval).Before(now)
}

// IsInTimeSlot() returns true if the given time falls within the miner's assigned slot
func (r *Round) IsInTimeSlot(publicKey string, now time.Time, miningInterval time.Duration) bool {
	miner := r.GetMiner(publicKey)
	if miner == nil {
		return false
	}
	return !now.Before(miner.ExpectedMiningTime) && now.Before(miner.ExpectedMiningTime.Add(miningInterval))
}

// BlocksBeforeRoundStart() counts the miner's actual mining times that precede the round start;
// these are the pre-round blocks of the previous round's extra block producer
func (r *Round) BlocksBeforeRoundStart(publicKey string) int64 {
	miner := r.GetMiner(publicKey)
	if miner == nil {
		return 0
	}
	start, count := r.RoundStartTime(), int64(0)
	for _, t := range miner.ActualMiningTimes {
		if t.Before(start) {
			count++
		}
	}
	return count
}

// MinedThisRound() returns true if the miner committed its value this round
func (m *MinerInRound) MinedThisRound() bool { return len(m.OutValue) != 0 }
