package lib

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
)

/* This file contains small shared helpers used across the modules */

// Marshal() serializes an object into JSON bytes
func Marshal(message any) ([]byte, ErrorI) {
	bz, err := json.Marshal(message)
	if err != nil {
		return nil, ErrJSONMarshal(err)
	}
	return bz, nil
}

// Unmarshal() populates an object from JSON bytes
func Unmarshal(data []byte, ptr any) ErrorI {
	if err := json.Unmarshal(data, ptr); err != nil {
		return ErrJSONUnmarshal(err)
	}
	return nil
}

// MarshalJSONIndentString() serializes an object into indented JSON string
func MarshalJSONIndentString(message any) (string, ErrorI) {
	bz, err := json.MarshalIndent(message, "", "  ")
	if err != nil {
		return "", ErrJSONMarshal(err)
	}
	return string(bz), nil
}

// BytesToString() encodes bytes into a hex string
func BytesToString(b []byte) string {
	return hex.EncodeToString(b)
}

// StringToBytes() decodes a hex string into bytes
func StringToBytes(s string) ([]byte, ErrorI) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, ErrStringToBytes(err)
	}
	return b, nil
}

// BytesToTruncatedString() truncates the bytes to 10 and encodes them into a hex string
func BytesToTruncatedString(b []byte) string {
	if len(b) > 10 {
		return BytesToString(b[:10])
	}
	return BytesToString(b)
}

// HexBytes is a byte slice that is json marshalled to and from a hex string
type HexBytes []byte

// String() returns the hex string representation
func (x HexBytes) String() string { return BytesToString(x) }

// MarshalJSON() implements the json.Marshaller interface for HexBytes
func (x HexBytes) MarshalJSON() ([]byte, error) { return json.Marshal(x.String()) }

// UnmarshalJSON() implements the json.Unmarshaler interface for HexBytes
func (x *HexBytes) UnmarshalJSON(b []byte) (err error) {
	var s string
	if err = json.Unmarshal(b, &s); err != nil {
		return
	}
	*x, err = hex.DecodeString(s)
	return
}

// FormatUint64() encodes a uint64 into fixed-width big endian bytes
// big endian preserves the lexicographical ordering of the numbers which
// keeps numeric keys iterable in the store
func FormatUint64(u uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, u)
	return b
}

// JoinLenPrefix() creates a key by appending the segments with their length prefixes
func JoinLenPrefix(toAppend ...[]byte) (res []byte) {
	for _, bz := range toAppend {
		if bz == nil {
			continue
		}
		res = append(res, byte(len(bz)))
		res = append(res, bz...)
	}
	return
}

// DeDuplicator is a generic structure to prevent duplicates with O(1) tracking
type DeDuplicator[T comparable] struct {
	m map[T]struct{}
}

// NewDeDuplicator() constructs a DeDuplicator for the comparable type
func NewDeDuplicator[T comparable]() *DeDuplicator[T] {
	return &DeDuplicator[T]{m: make(map[T]struct{})}
}

// Found() returns true if the key was already seen, marking it seen either way
func (d *DeDuplicator[T]) Found(k T) bool {
	if _, found := d.m[k]; found {
		return true
	}
	d.m[k] = struct{}{}
	return false
}
