package store

import (
	"testing"
	"time"

	"github.com/sequoia-network/sequoia/dpos"
	"github.com/sequoia-network/sequoia/lib"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *Store {
	store, err := NewInMemory(lib.NewNullLogger())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, store.Close()) })
	return store
}

func TestStoreCRUD(t *testing.T) {
	store := testStore(t)
	key, value := []byte("key"), []byte("value")
	// absent keys read as nil without error
	got, err := store.Get(key)
	require.NoError(t, err)
	require.Nil(t, got)
	require.NoError(t, store.Set(key, value))
	got, err = store.Get(key)
	require.NoError(t, err)
	require.Equal(t, value, got)
	require.NoError(t, store.Delete(key))
	got, err = store.Get(key)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestStoreUpdateRollback(t *testing.T) {
	store := testStore(t)
	boom := lib.NewError(lib.NoCode, lib.StoreModule, "boom")
	// a failing callback must abort every write of the transaction
	err := store.Update(func(txn lib.RWStoreI) lib.ErrorI {
		if err := txn.Set([]byte("a"), []byte("1")); err != nil {
			return err
		}
		return boom
	})
	require.Error(t, err)
	require.Equal(t, boom, err)
	got, err := store.Get([]byte("a"))
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestRoundStoreRoundTrip(t *testing.T) {
	rounds := NewRoundStore(testStore(t))
	miners := [][]byte{{1, 1, 1, 1}, {2, 2, 2, 2}, {3, 3, 3, 3}}
	round, err := dpos.GenerateFirstRoundOfTerm(miners, lib.DefaultConsensusConfig(), time.UnixMilli(1700000000000).UTC(), 1, 1)
	require.NoError(t, err)
	first, _ := round.FirstMiner()
	round.Miners[first].OutValue = lib.HexBytes{0xde, 0xad}
	require.NoError(t, rounds.SetRound(round))
	got, err := rounds.GetRound(1)
	require.NoError(t, err)
	// json round-trips the full consensus-relevant content
	require.Equal(t, round.Hash(), got.Hash())
	require.Equal(t, round.Miners[first].OutValue, got.Miners[first].OutValue)
}

func TestRoundStoreLatestPointer(t *testing.T) {
	rounds := NewRoundStore(testStore(t))
	miners := [][]byte{{1, 1, 1, 1}, {2, 2, 2, 2}}
	now := time.UnixMilli(1700000000000).UTC()
	for _, n := range []uint64{1, 2, 3} {
		round, err := dpos.GenerateFirstRoundOfTerm(miners, lib.DefaultConsensusConfig(), now, n, 1)
		require.NoError(t, err)
		require.NoError(t, rounds.SetRound(round))
	}
	latest, err := rounds.LatestRoundNumber()
	require.NoError(t, err)
	require.EqualValues(t, 3, latest)
	// overwriting an older round never regresses the pointer
	round, err := rounds.GetRound(2)
	require.NoError(t, err)
	round.ConfirmedIrreversibleBlockHeight = 10
	require.NoError(t, rounds.SetRound(round))
	latest, err = rounds.LatestRoundNumber()
	require.NoError(t, err)
	require.EqualValues(t, 3, latest)
}

func TestRoundStoreTermIndex(t *testing.T) {
	rounds := NewRoundStore(testStore(t))
	require.NoError(t, rounds.SetFirstRoundNumberOfTerm(2, 17))
	first, err := rounds.FirstRoundNumberOfTerm(2)
	require.NoError(t, err)
	require.EqualValues(t, 17, first)
	_, err = rounds.FirstRoundNumberOfTerm(9)
	require.Error(t, err)
	require.Equal(t, lib.CodeTermNotFound, err.Code())
}

func TestRoundStoreMissingRound(t *testing.T) {
	rounds := NewRoundStore(testStore(t))
	_, err := rounds.GetRound(42)
	require.Error(t, err)
	require.Equal(t, lib.CodeRoundNotFound, err.Code())
	_, err = rounds.LatestRoundNumber()
	require.Error(t, err)
	require.Equal(t, lib.CodeRoundNotFound, err.Code())
}
