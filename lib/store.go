package lib

/* This file contains the persistence contracts implemented by the store module */

// RStoreI defines the read interface for basic db operations
type RStoreI interface {
	// Get() returns the value bytes under the key, nil if the key is absent
	Get(key []byte) ([]byte, ErrorI)
}

// WStoreI defines the write interface for basic db operations
type WStoreI interface {
	// Set() writes the value bytes under the key
	Set(key, value []byte) ErrorI
	// Delete() removes the key and its value
	Delete(key []byte) ErrorI
}

// RWStoreI defines the read/write interface for basic db CRUD operations
type RWStoreI interface {
	RStoreI
	WStoreI
}

// StoreI is the full contract of the persistent key value store
// all writes within one block's execution must be transactionally consistent
type StoreI interface {
	RWStoreI
	// Update() runs the callback inside a read-write transaction committed atomically
	Update(func(txn RWStoreI) ErrorI) ErrorI
	// View() runs the callback inside a read-only transaction
	View(func(txn RStoreI) ErrorI) ErrorI
	// Close() gracefully stops the database
	Close() ErrorI
}
