package store

import (
	"fmt"

	"github.com/sequoia-network/sequoia/lib"
)

func ErrStoreOpen(err error) lib.ErrorI {
	return lib.NewError(lib.CodeStoreOpen, lib.StoreModule, fmt.Sprintf("store open failed with err: %s", err.Error()))
}

func ErrStoreGet(err error) lib.ErrorI {
	return lib.NewError(lib.CodeStoreGet, lib.StoreModule, fmt.Sprintf("store get failed with err: %s", err.Error()))
}

func ErrStoreSet(err error) lib.ErrorI {
	return lib.NewError(lib.CodeStoreSet, lib.StoreModule, fmt.Sprintf("store set failed with err: %s", err.Error()))
}

func ErrStoreDelete(err error) lib.ErrorI {
	return lib.NewError(lib.CodeStoreDelete, lib.StoreModule, fmt.Sprintf("store delete failed with err: %s", err.Error()))
}

func ErrStoreClose(err error) lib.ErrorI {
	return lib.NewError(lib.CodeStoreClose, lib.StoreModule, fmt.Sprintf("store close failed with err: %s", err.Error()))
}

func ErrRoundNotFound(roundNumber uint64) lib.ErrorI {
	return lib.NewError(lib.CodeRoundNotFound, lib.StoreModule, fmt.Sprintf("round %d not found", roundNumber))
}

func ErrTermNotFound(termNumber uint64) lib.ErrorI {
	return lib.NewError(lib.CodeTermNotFound, lib.StoreModule, fmt.Sprintf("first round of term %d not found", termNumber))
}
