// Package codec serializes cache entries to the versioned binary format
// stored under each fingerprint key.
//
// Layout: magic byte, version byte, msgpack map of the entry. Fields are
// encoded by name so a reader ignores fields added by a newer writer.
package codec

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/lk2023060901/metasearch/internal/search/types"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	magic   byte = 0xC5
	Version byte = 1

	headerSize = 2
)

// ErrCorruptEntry is returned for bytes that are not a well-formed entry.
// Callers treat it as a cache miss.
var ErrCorruptEntry = errors.New("codec: corrupt cache entry")

// Encode serializes an entry
func Encode(entry *types.CacheEntry) ([]byte, error) {
	if entry == nil {
		return nil, errors.New("codec: nil entry")
	}

	var buf bytes.Buffer
	buf.WriteByte(magic)
	buf.WriteByte(Version)

	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(entry); err != nil {
		return nil, fmt.Errorf("codec: encode entry: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode deserializes an entry. Every failure wraps ErrCorruptEntry.
func Decode(data []byte) (*types.CacheEntry, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrCorruptEntry, len(data))
	}
	if data[0] != magic {
		return nil, fmt.Errorf("%w: bad magic 0x%02x", ErrCorruptEntry, data[0])
	}
	if data[1] != Version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptEntry, data[1])
	}

	r := bytes.NewReader(data[headerSize:])
	dec := msgpack.NewDecoder(r)

	var entry types.CacheEntry
	if err := dec.Decode(&entry); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptEntry, err)
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorruptEntry, r.Len())
	}
	return &entry, nil
}
