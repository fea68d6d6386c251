package dpos

import (
	"testing"
	"time"

	"github.com/sequoia-network/sequoia/lib"
	"github.com/stretchr/testify/require"
)

// memRoundStore is an in-memory RoundStoreI used by the handle tests
type memRoundStore struct {
	rounds map[uint64]*Round
	terms  map[uint64]uint64
	latest uint64
}

func newMemRoundStore() *memRoundStore {
	return &memRoundStore{rounds: map[uint64]*Round{}, terms: map[uint64]uint64{}}
}

func (m *memRoundStore) GetRound(roundNumber uint64) (*Round, lib.ErrorI) {
	round, ok := m.rounds[roundNumber]
	if !ok {
		return nil, ErrNilRound()
	}
	return round.Clone(), nil
}

func (m *memRoundStore) SetRound(round *Round) lib.ErrorI {
	m.rounds[round.RoundNumber] = round.Clone()
	if round.RoundNumber > m.latest {
		m.latest = round.RoundNumber
	}
	return nil
}

func (m *memRoundStore) LatestRoundNumber() (uint64, lib.ErrorI) { return m.latest, nil }

func (m *memRoundStore) FirstRoundNumberOfTerm(termNumber uint64) (uint64, lib.ErrorI) {
	first, ok := m.terms[termNumber]
	if !ok {
		return 0, ErrNilRound()
	}
	return first, nil
}

func (m *memRoundStore) SetFirstRoundNumberOfTerm(termNumber, roundNumber uint64) lib.ErrorI {
	m.terms[termNumber] = roundNumber
	return nil
}

// fakeProvider is a static MinerListProviderI used by the handle tests
type fakeProvider struct {
	miners    [][]byte
	victories [][]byte
}

func (f *fakeProvider) GetCurrentMinerList() ([][]byte, lib.ErrorI) { return f.miners, nil }
func (f *fakeProvider) GetVictories() ([][]byte, lib.ErrorI)        { return f.victories, nil }

// newTestConsensus() wires a handle over the in-memory store and runs genesis
func newTestConsensus(t *testing.T, n int, start time.Time) (*Consensus, *memRoundStore) {
	store := newMemRoundStore()
	provider := &fakeProvider{miners: newTestMiners(n), victories: newTestMiners(n)}
	c := New(store, provider, lib.DefaultConfig(), lib.NewNullLogger())
	_, err := c.InitGenesis(start)
	require.NoError(t, err)
	return c, store
}

func TestInitGenesis(t *testing.T) {
	c, store := newTestConsensus(t, 4, testTime())
	round, err := c.CurrentRound()
	require.NoError(t, err)
	require.EqualValues(t, 1, round.RoundNumber)
	require.EqualValues(t, 1, round.TermNumber)
	require.Equal(t, 4, round.MinerCount())
	require.EqualValues(t, 1, store.terms[1])
}

func TestApplyUpdateValue(t *testing.T) {
	start := testTime()
	c, store := newTestConsensus(t, 4, start)
	current, err := c.CurrentRound()
	require.NoError(t, err)
	sender, slot := current.FirstMiner()
	senderPub, convErr := lib.StringToBytes(sender)
	require.NoError(t, convErr)
	blockTime := slot.ExpectedMiningTime.Add(time.Second)
	inValue, randErr := NewInValue()
	require.NoError(t, randErr)
	proposal, err := c.BuildUpdateValue(senderPub, inValue, nil, 0, blockTime)
	require.NoError(t, err)
	// the secret never travels with the proposal
	require.Empty(t, proposal.Miners[sender].InValue)
	events, err := c.ApplyProposal(1, senderPub, senderPub, BehaviourUpdateValue, proposal, blockTime)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, lib.EventTypeMiningInfoUpdated, events[0].Type)
	// persisted state equals the proposer's committed round
	persisted := store.rounds[1]
	require.Equal(t, proposal.Hash(), persisted.Hash())
	require.Equal(t, lib.HexBytes(OutValueOf(inValue)), persisted.Miners[sender].OutValue)
}

func TestApplyHeightReplayGuard(t *testing.T) {
	start := testTime()
	c, _ := newTestConsensus(t, 4, start)
	current, err := c.CurrentRound()
	require.NoError(t, err)
	sender, slot := current.FirstMiner()
	senderPub, _ := lib.StringToBytes(sender)
	blockTime := slot.ExpectedMiningTime.Add(time.Second)
	inValue, _ := NewInValue()
	proposal, err := c.BuildUpdateValue(senderPub, inValue, nil, 0, blockTime)
	require.NoError(t, err)
	_, err = c.ApplyProposal(5, senderPub, senderPub, BehaviourUpdateValue, proposal, blockTime)
	require.NoError(t, err)
	// a second mutation at the same height is rejected
	_, err = c.ApplyProposal(5, senderPub, senderPub, BehaviourTinyBlock, proposal, blockTime)
	require.Error(t, err)
	require.Equal(t, lib.CodeHeightAlreadyApplied, err.Code())
}

func TestApplySenderSignerMismatch(t *testing.T) {
	start := testTime()
	c, _ := newTestConsensus(t, 4, start)
	current, err := c.CurrentRound()
	require.NoError(t, err)
	sender, slot := current.FirstMiner()
	senderPub, _ := lib.StringToBytes(sender)
	otherKey, _ := current.MinerAtOrder(2)
	otherPub, _ := lib.StringToBytes(otherKey)
	blockTime := slot.ExpectedMiningTime.Add(time.Second)
	inValue, _ := NewInValue()
	proposal, err := c.BuildUpdateValue(senderPub, inValue, nil, 0, blockTime)
	require.NoError(t, err)
	// the declared sender must be the block signer
	_, err = c.ApplyProposal(1, senderPub, otherPub, BehaviourUpdateValue, proposal, blockTime)
	require.Error(t, err)
	require.Equal(t, lib.CodeSenderSignerMismatch, err.Code())
}

func TestApplyNextRound(t *testing.T) {
	cfg, start := lib.DefaultConsensusConfig(), testTime()
	c, store := newTestConsensus(t, 4, start)
	current, err := c.CurrentRound()
	require.NoError(t, err)
	sender := current.ExtraBlockProducer()
	senderPub, _ := lib.StringToBytes(sender)
	blockTime := current.RoundEndTime(cfg.MiningInterval()).Add(time.Second)
	proposal, err := c.BuildNextRound(blockTime)
	require.NoError(t, err)
	_, err = c.ApplyProposal(1, senderPub, senderPub, BehaviourNextRound, proposal, blockTime)
	require.NoError(t, err)
	require.EqualValues(t, 2, store.latest)
	next := store.rounds[2]
	require.EqualValues(t, 2, next.RoundNumber)
	require.EqualValues(t, 1, next.TermNumber)
	// the terminating block counts toward the sender's new slot
	require.EqualValues(t, 1, next.Miners[sender].ProducedBlocks)
	// round 1 stays persisted as history
	require.EqualValues(t, 1, store.rounds[1].RoundNumber)
}

func TestApplyNextTerm(t *testing.T) {
	cfg, start := lib.DefaultConsensusConfig(), testTime()
	store := newMemRoundStore()
	provider := &fakeProvider{miners: newTestMiners(4), victories: newTestMiners(3)}
	c := New(store, provider, lib.DefaultConfig(), lib.NewNullLogger())
	_, err := c.InitGenesis(start)
	require.NoError(t, err)
	current, err := c.CurrentRound()
	require.NoError(t, err)
	sender := current.ExtraBlockProducer()
	senderPub, _ := lib.StringToBytes(sender)
	blockTime := current.RoundEndTime(cfg.MiningInterval()).Add(time.Second)
	proposal, err := c.BuildNextTerm(blockTime)
	require.NoError(t, err)
	events, err := c.ApplyProposal(1, senderPub, senderPub, BehaviourNextTerm, proposal, blockTime)
	require.NoError(t, err)
	// the new miner list and the closed term's snapshot are both announced
	require.Len(t, events, 2)
	require.Equal(t, lib.EventTypeNewMinerList, events[0].Type)
	require.Equal(t, lib.EventTypeTermSnapshot, events[1].Type)
	require.EqualValues(t, 2, store.terms[2])
	next := store.rounds[2]
	require.EqualValues(t, 2, next.TermNumber)
	require.Equal(t, 3, next.MinerCount())
	require.True(t, next.IsMinerListJustChanged)
}

func TestDecideBehaviourHandle(t *testing.T) {
	cfg, start := lib.DefaultConsensusConfig(), testTime()
	c, _ := newTestConsensus(t, 4, start)
	current, err := c.CurrentRound()
	require.NoError(t, err)
	sender, slot := current.FirstMiner()
	senderPub, _ := lib.StringToBytes(sender)
	// within the slot and uncommitted: publish the main commitment
	behaviour, err := c.DecideBehaviour(senderPub, slot.ExpectedMiningTime.Add(time.Second))
	require.NoError(t, err)
	require.Equal(t, BehaviourUpdateValue, behaviour)
	// after the term period: terminate the term
	behaviour, err = c.DecideBehaviour(senderPub, slot.ExpectedMiningTime.Add(cfg.TermPeriod()).Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, BehaviourNextTerm, behaviour)
	// a stranger has no rights
	behaviour, err = c.DecideBehaviour([]byte{0xaa, 0xbb}, start)
	require.NoError(t, err)
	require.Equal(t, BehaviourNothing, behaviour)
}
