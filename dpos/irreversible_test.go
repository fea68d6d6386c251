package dpos

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMinimumIrreversibleBlockQuorum(t *testing.T) {
	require.Equal(t, 1, MinimumIrreversibleBlockQuorum(1))
	require.Equal(t, 3, MinimumIrreversibleBlockQuorum(4))
	require.Equal(t, 4, MinimumIrreversibleBlockQuorum(5))
	require.Equal(t, 5, MinimumIrreversibleBlockQuorum(7))
	require.Equal(t, 15, MinimumIrreversibleBlockQuorum(21))
}

// attest() marks the miner as having produced in the previous round and
// attested the height in the current one
func attest(current, previous *Round, publicKey string, height uint64) {
	previous.Miners[publicKey].SupposedOrderOfNextRound = 1
	current.Miners[publicKey].ImpliedIrreversibleBlockHeight = height
}

func TestCalculateIrreversibleHeight(t *testing.T) {
	start := testTime()
	tests := []struct {
		name   string
		detail string
		rounds func() (current, previous *Round)
		want   uint64
		ok     bool
	}{
		{
			name:   "quorum met",
			detail: "with 5 miners the quorum is 4; the lower-third statistic of the sorted heights wins",
			rounds: func() (*Round, *Round) {
				current, previous := newTestRound(t, 5, start), newTestRound(t, 5, start)
				heights := []uint64{12, 10, 11, 13}
				for i, k := range current.OrderedMinerKeys()[:4] {
					attest(current, previous, k, heights[i])
				}
				return current, previous
			},
			want: 11, // sorted {10,11,12,13}, index 4/3 = 1
			ok:   true,
		},
		{
			name:   "quorum missed",
			detail: "three attestations out of five miners do not advance finality",
			rounds: func() (*Round, *Round) {
				current, previous := newTestRound(t, 5, start), newTestRound(t, 5, start)
				for _, k := range current.OrderedMinerKeys()[:3] {
					attest(current, previous, k, 10)
				}
				return current, previous
			},
		},
		{
			name:   "attestation without prior production ignored",
			detail: "a miner that did not produce in the previous round is outside the committer sample",
			rounds: func() (*Round, *Round) {
				current, previous := newTestRound(t, 5, start), newTestRound(t, 5, start)
				for _, k := range current.OrderedMinerKeys()[:3] {
					attest(current, previous, k, 10)
				}
				// the fourth attests but never produced last round
				current.Miners[current.OrderedMinerKeys()[3]].ImpliedIrreversibleBlockHeight = 10
				return current, previous
			},
		},
		{
			name:   "grown miner list pins basis to previous membership",
			detail: "during the round after a list change the quorum basis stays at the sampled membership's size",
			rounds: func() (*Round, *Round) {
				// previous round had 5 miners, the list grew to 7
				previous := newTestRound(t, 5, start)
				current := newTestRound(t, 7, start)
				current.IsMinerListJustChanged = true
				for _, k := range previous.OrderedMinerKeys()[:4] {
					attest(current, previous, k, 20)
				}
				return current, previous
			},
			want: 20, // quorum basis 5 needs 4, not the 6 a basis of 7 would
			ok:   true,
		},
		{
			name:   "nil previous round",
			detail: "the first round has no committer sample",
			rounds: func() (*Round, *Round) {
				return newTestRound(t, 5, start), nil
			},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			current, previous := test.rounds()
			height, ok := CalculateIrreversibleHeight(current, previous)
			require.Equal(t, test.ok, ok, test.detail)
			require.Equal(t, test.want, height, test.detail)
		})
	}
}

func TestAdvanceIrreversibleHeight(t *testing.T) {
	round := newTestRound(t, 3, testTime())
	round.RoundNumber = 9
	require.True(t, AdvanceIrreversibleHeight(round, 5))
	require.EqualValues(t, 5, round.ConfirmedIrreversibleBlockHeight)
	require.EqualValues(t, 9, round.ConfirmedIrreversibleBlockRoundNumber)
	// equal or lower heights never move the watermark
	require.False(t, AdvanceIrreversibleHeight(round, 5))
	require.False(t, AdvanceIrreversibleHeight(round, 3))
	require.True(t, AdvanceIrreversibleHeight(round, 6))
	require.EqualValues(t, 6, round.ConfirmedIrreversibleBlockHeight)
}
