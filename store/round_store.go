package store

import (
	"encoding/binary"

	"github.com/sequoia-network/sequoia/dpos"
	"github.com/sequoia-network/sequoia/lib"
)

/*
	This file implements the round history on top of the key value store.

	Key space:
	  r/<roundNumber big endian>  -> the round, json encoded
	  t/<termNumber big endian>   -> the round number that opened the term
	  a                           -> the latest round number

	Round numbers are encoded big endian so the history iterates in numeric
	order. Rounds are append-mostly: the latest round is overwritten as miners
	commit, superseded rounds stay untouched as history.
*/

var (
	roundKeyPrefix = []byte("r/")
	termKeyPrefix  = []byte("t/")
	latestKey      = []byte("a")
)

var _ dpos.RoundStoreI = &RoundStore{} // enforce the RoundStoreI interface

// RoundStore persists the round history behind the consensus core
type RoundStore struct {
	store lib.StoreI
}

// NewRoundStore() wraps a key value store with the round history schema
func NewRoundStore(store lib.StoreI) *RoundStore {
	return &RoundStore{store: store}
}

// GetRound() returns the round stored under the round number
func (r *RoundStore) GetRound(roundNumber uint64) (*dpos.Round, lib.ErrorI) {
	bz, err := r.store.Get(roundKey(roundNumber))
	if err != nil {
		return nil, err
	}
	if bz == nil {
		return nil, ErrRoundNotFound(roundNumber)
	}
	round := new(dpos.Round)
	if err = lib.Unmarshal(bz, round); err != nil {
		return nil, err
	}
	return round, nil
}

// SetRound() persists the round and advances the latest pointer if needed;
// both writes land in one transaction
func (r *RoundStore) SetRound(round *dpos.Round) lib.ErrorI {
	bz, err := lib.Marshal(round)
	if err != nil {
		return err
	}
	return r.store.Update(func(txn lib.RWStoreI) lib.ErrorI {
		if err := txn.Set(roundKey(round.RoundNumber), bz); err != nil {
			return err
		}
		latest, err := getUint64(txn, latestKey)
		if err != nil {
			return err
		}
		if round.RoundNumber > latest {
			return txn.Set(latestKey, lib.FormatUint64(round.RoundNumber))
		}
		return nil
	})
}

// LatestRoundNumber() returns the highest round number ever persisted
func (r *RoundStore) LatestRoundNumber() (uint64, lib.ErrorI) {
	bz, err := r.store.Get(latestKey)
	if err != nil {
		return 0, err
	}
	if bz == nil {
		return 0, ErrRoundNotFound(0)
	}
	return binary.BigEndian.Uint64(bz), nil
}

// FirstRoundNumberOfTerm() returns the round number that opened the term
func (r *RoundStore) FirstRoundNumberOfTerm(termNumber uint64) (uint64, lib.ErrorI) {
	bz, err := r.store.Get(termKey(termNumber))
	if err != nil {
		return 0, err
	}
	if bz == nil {
		return 0, ErrTermNotFound(termNumber)
	}
	return binary.BigEndian.Uint64(bz), nil
}

// SetFirstRoundNumberOfTerm() records the round number that opened the term
func (r *RoundStore) SetFirstRoundNumberOfTerm(termNumber, roundNumber uint64) lib.ErrorI {
	return r.store.Set(termKey(termNumber), lib.FormatUint64(roundNumber))
}

// getUint64() reads a big endian uint64 under the key, 0 if absent
func getUint64(txn lib.RStoreI, key []byte) (uint64, lib.ErrorI) {
	bz, err := txn.Get(key)
	if err != nil {
		return 0, err
	}
	if bz == nil {
		return 0, nil
	}
	return binary.BigEndian.Uint64(bz), nil
}

// roundKey() returns the store key of the round number
func roundKey(roundNumber uint64) []byte {
	return lib.JoinLenPrefix(roundKeyPrefix, lib.FormatUint64(roundNumber))
}

// termKey() returns the store key of the term number
func termKey(termNumber uint64) []byte {
	return lib.JoinLenPrefix(termKeyPrefix, lib.FormatUint64(termNumber))
}
