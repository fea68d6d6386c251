package dpos

import (
	"bytes"
	"testing"
	"time"

	"github.com/sequoia-network/sequoia/lib"
	"github.com/stretchr/testify/require"
)

// newTestMiners() returns n distinct public keys with descending-friendly first bytes
func newTestMiners(n int) [][]byte {
	miners := make([][]byte, n)
	for i := 0; i < n; i++ {
		miners[i] = bytes.Repeat([]byte{byte(i + 1)}, 4)
	}
	return miners
}

// newTestRound() generates the first round of a term over n fresh miners
func newTestRound(t *testing.T, n int, start time.Time) *Round {
	round, err := GenerateFirstRoundOfTerm(newTestMiners(n), lib.DefaultConsensusConfig(), start, 1, 1)
	require.NoError(t, err)
	return round
}

// commitMiner() simulates a miner's accepted main commitment within the round
func commitMiner(round *Round, publicKey string, previousInValue lib.HexBytes, blockTime time.Time) {
	slot := round.Miners[publicKey]
	inValue := lib.HexBytes(lib.FormatUint64(uint64(len(publicKey))))
	slot.OutValue = OutValueOf(append(inValue, publicKey...))
	slot.PreviousInValue = previousInValue
	slot.Signature = CalculateSignature(previousInValue, slot.OutValue)
	slot.ActualMiningTimes = append(slot.ActualMiningTimes, blockTime)
	slot.ProducedBlocks++
	slot.SupposedOrderOfNextRound = SignatureToOrder(slot.Signature, int64(round.MinerCount()))
	for k, order := range ResolveNextRoundOrders(round) {
		round.Miners[k].FinalOrderOfNextRound = order
	}
}

// testTime() returns a fixed wall clock time with no sub-millisecond component
func testTime() time.Time { return time.UnixMilli(1700000000000).UTC() }

func TestCheckBasic(t *testing.T) {
	start := testTime()
	tests := []struct {
		name   string
		detail string
		round  func() *Round
		code   lib.ErrorCode
	}{
		{
			name:   "valid",
			detail: "a freshly generated round satisfies the structural invariants",
			round:  func() *Round { return newTestRound(t, 5, start) },
		},
		{
			name:   "nil round",
			detail: "a nil round is rejected",
			round:  func() *Round { return nil },
			code:   lib.CodeNilRound,
		},
		{
			name:   "empty miner list",
			detail: "a round without miners is rejected",
			round:  func() *Round { return &Round{RoundNumber: 1, TermNumber: 1} },
			code:   lib.CodeEmptyMinerList,
		},
		{
			name:   "order out of range",
			detail: "orders must fall within [1, minerCount]",
			round: func() *Round {
				round := newTestRound(t, 3, start)
				_, slot := round.MinerAtOrder(3)
				slot.Order = 4
				return round
			},
			code: lib.CodeInvalidOrderRange,
		},
		{
			name:   "duplicate order",
			detail: "two slots may not share an order",
			round: func() *Round {
				round := newTestRound(t, 3, start)
				_, slot := round.MinerAtOrder(3)
				slot.Order = 1
				return round
			},
			code: lib.CodeDuplicateOrder,
		},
		{
			name:   "two extra block producers",
			detail: "exactly one slot per round carries the extra block producer flag",
			round: func() *Round {
				round := newTestRound(t, 3, start)
				_, slot := round.MinerAtOrder(2)
				slot.IsExtraBlockProducer = true
				return round
			},
			code: lib.CodeWrongExtraBlockProducer,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := test.round().CheckBasic()
			if test.code == 0 {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Equal(t, test.code, err.Code())
		})
	}
}

func TestOrderedMinerKeys(t *testing.T) {
	round := newTestRound(t, 5, testTime())
	keys := round.OrderedMinerKeys()
	require.Len(t, keys, 5)
	for i, k := range keys {
		require.EqualValues(t, i+1, round.Miners[k].Order)
	}
}

func TestClone(t *testing.T) {
	round := newTestRound(t, 3, testTime())
	first, _ := round.FirstMiner()
	commitMiner(round, first, nil, testTime())
	clone := round.Clone()
	require.Equal(t, round.Hash(), clone.Hash())
	// mutating the clone must not leak into the original
	clone.Miners[first].OutValue[0] ^= 0xff
	clone.Miners[first].ActualMiningTimes = append(clone.Miners[first].ActualMiningTimes, testTime())
	require.NotEqual(t, round.Miners[first].OutValue, clone.Miners[first].OutValue)
	require.Len(t, round.Miners[first].ActualMiningTimes, 1)
}

func TestRoundHash(t *testing.T) {
	round := newTestRound(t, 3, testTime())
	first, _ := round.FirstMiner()
	commitMiner(round, first, nil, testTime())
	other := round.Clone()
	require.Equal(t, round.Hash(), other.Hash())
	// the local-only secret must not affect the hash
	other.Miners[first].InValue = lib.HexBytes{1, 2, 3}
	require.Equal(t, round.Hash(), other.Hash())
	// any consensus-relevant field must
	other.Miners[first].ProducedBlocks++
	require.NotEqual(t, round.Hash(), other.Hash())
}

func TestRoundHashStableAcrossEncoding(t *testing.T) {
	round := newTestRound(t, 3, testTime())
	first, _ := round.FirstMiner()
	commitMiner(round, first, nil, testTime())
	// a json decode turns unset byte fields into empty non-nil slices; the
	// canonical encoding must not distinguish them from nil
	bz, err := lib.Marshal(round)
	require.NoError(t, err)
	decoded := new(Round)
	require.NoError(t, lib.Unmarshal(bz, decoded))
	require.Equal(t, round.Hash(), decoded.Hash())
	// the same equivalence holds field by field
	normalized := round.Clone()
	for _, m := range normalized.Miners {
		if m.OutValue == nil {
			m.OutValue = lib.HexBytes{}
		}
		if m.Signature == nil {
			m.Signature = lib.HexBytes{}
		}
		if m.PreviousInValue == nil {
			m.PreviousInValue = lib.HexBytes{}
		}
	}
	require.Equal(t, round.Hash(), normalized.Hash())
	// moving bytes between adjacent fields must change the hash
	shifted := round.Clone()
	slot := shifted.Miners[first]
	slot.OutValue, slot.Signature = slot.OutValue[:len(slot.OutValue)-1], append(lib.HexBytes{slot.OutValue[len(slot.OutValue)-1]}, slot.Signature...)
	require.NotEqual(t, round.Hash(), shifted.Hash())
}

func TestTimeSlots(t *testing.T) {
	cfg, start := lib.DefaultConsensusConfig(), testTime()
	round := newTestRound(t, 3, start)
	interval := cfg.MiningInterval()
	key, slot := round.MinerAtOrder(2)
	require.True(t, round.IsInTimeSlot(key, slot.ExpectedMiningTime, interval))
	require.True(t, round.IsInTimeSlot(key, slot.ExpectedMiningTime.Add(interval-time.Millisecond), interval))
	require.False(t, round.IsInTimeSlot(key, slot.ExpectedMiningTime.Add(interval), interval))
	require.False(t, round.IsTimeSlotPassed(key, slot.ExpectedMiningTime.Add(interval), interval))
	require.True(t, round.IsTimeSlotPassed(key, slot.ExpectedMiningTime.Add(interval+time.Millisecond), interval))
	require.False(t, round.IsInTimeSlot("not a member", start, interval))
}

func TestBlocksBeforeRoundStart(t *testing.T) {
	round := newTestRound(t, 3, testTime())
	key, slot := round.FirstMiner()
	start := round.RoundStartTime()
	slot.ActualMiningTimes = []time.Time{start.Add(-2 * time.Second), start.Add(-time.Second), start.Add(time.Second)}
	require.EqualValues(t, 2, round.BlocksBeforeRoundStart(key))
	require.EqualValues(t, 0, round.BlocksBeforeRoundStart("not a member"))
}

func TestRoundStartAndEnd(t *testing.T) {
	cfg, start := lib.DefaultConsensusConfig(), testTime()
	round := newTestRound(t, 3, start)
	interval := cfg.MiningInterval()
	// order 1 mines one interval after generation time
	require.Equal(t, start.Add(interval), round.RoundStartTime())
	// the round ends after every ordinary slot plus the extra block slot
	require.Equal(t, start.Add(interval).Add(4*interval), round.RoundEndTime(interval))
}
