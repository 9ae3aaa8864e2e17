package seqstore

import (
	"errors"
	"fmt"
)

// ErrMalformed is wrapped by errors returned from Check
var ErrMalformed = errors.New("seqstore: malformed store")

// CheckResult summarizes a store pair verified by Check
type CheckResult struct {
	Records  uint64
	DataSize uint64
	// bytes at the end of data store not referenced by any entry
	// e.g. left over by an Append that failed to write the index entry
	UnindexedBytes uint64
}

// Check verifies the store pair:
//   - index size is a multiple of EntrySize
//   - entries are contiguous, starting at offset 0
//   - the last entry ends within the data store
//
// Read doesn't do any of those checks.
func (s *Store) Check() (*CheckResult, error) {
	if s.closed {
		return nil, ErrClosed
	}
	indexSize, err := s.index.Size()
	if err != nil {
		return nil, fmt.Errorf("seqstore: check: %w", err)
	}
	if indexSize%EntrySize != 0 {
		return nil, fmt.Errorf("%w: index size %d is not a multiple of %d", ErrMalformed, indexSize, EntrySize)
	}
	dataSize, err := s.data.Size()
	if err != nil {
		return nil, fmt.Errorf("seqstore: check: %w", err)
	}
	res := &CheckResult{
		Records:  indexSize / EntrySize,
		DataSize: dataSize,
	}
	var expOffset uint64
	for i := uint64(0); i < res.Records; i++ {
		e, err := s.index.Get(i)
		if err != nil {
			return nil, fmt.Errorf("seqstore: check: %w", err)
		}
		if e.Offset != expOffset {
			return nil, fmt.Errorf("%w: entry %d has offset %d, expected %d", ErrMalformed, i, e.Offset, expOffset)
		}
		if e.Offset > dataSize || e.Length > dataSize-e.Offset {
			return nil, fmt.Errorf("%w: entry %d (%d+%d) ends past data size %d", ErrMalformed, i, e.Offset, e.Length, dataSize)
		}
		expOffset = e.End()
	}
	res.UnindexedBytes = dataSize - expOffset
	return res, nil
}

// endOffset returns the end of the last record, which must match the data size
func (s *Store) endOffset() (uint64, error) {
	indexSize, err := s.index.Size()
	if err != nil {
		return 0, fmt.Errorf("seqstore: %w", err)
	}
	if indexSize%EntrySize != 0 {
		return 0, fmt.Errorf("%w: index size %d is not a multiple of %d", ErrMalformed, indexSize, EntrySize)
	}
	dataSize, err := s.data.Size()
	if err != nil {
		return 0, fmt.Errorf("seqstore: %w", err)
	}
	var end uint64
	if n := indexSize / EntrySize; n > 0 {
		e, err := s.index.Get(n - 1)
		if err != nil {
			return 0, fmt.Errorf("seqstore: %w", err)
		}
		end = e.End()
	}
	if end != dataSize {
		return 0, fmt.Errorf("%w: last record ends at %d, data size is %d", ErrMalformed, end, dataSize)
	}
	return end, nil
}
