package seqstore

import (
	"errors"
	"fmt"
	"io"
	"math"
)

var errOffsetTooLarge = errors.New("offset doesn't fit in int64")

// DataStore holds record payloads back-to-back with no framing.
// Boundaries between records are owned by IndexStore.
type DataStore struct {
	rws io.ReadSeeker
}

// NewDataStore wraps rws. To Append, rws must also implement io.Writer.
func NewDataStore(rws io.ReadSeeker) *DataStore {
	return &DataStore{rws: rws}
}

// Append writes p at the end of the stream
func (s *DataStore) Append(p []byte) error {
	w, ok := s.rws.(io.Writer)
	if !ok {
		return ErrReadOnly
	}
	if _, err := s.rws.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("data: seek to end: %w", err)
	}
	if _, err := w.Write(p); err != nil {
		return fmt.Errorf("data: append %d bytes: %w", len(p), err)
	}
	return nil
}

// ReadRange reads exactly length bytes starting at offset.
// If the stream is shorter than offset+length, returns an error wrapping io.ErrUnexpectedEOF.
func (s *DataStore) ReadRange(offset uint64, length uint64) ([]byte, error) {
	if offset > math.MaxInt64 || length > math.MaxInt64-offset {
		return nil, fmt.Errorf("data: range %d+%d: %w", offset, length, errOffsetTooLarge)
	}
	if length == 0 {
		return []byte{}, nil
	}
	// a corrupted index entry can have any length, don't allocate past the end
	size, err := streamSize(s.rws)
	if err != nil {
		return nil, fmt.Errorf("data: %w", err)
	}
	if offset > size || length > size-offset {
		return nil, fmt.Errorf("data: read %d bytes at %d, size is %d: %w", length, offset, size, io.ErrUnexpectedEOF)
	}
	if _, err := s.rws.Seek(int64(offset), io.SeekStart); err != nil {
		return nil, fmt.Errorf("data: seek to %d: %w", offset, err)
	}
	buf := make([]byte, length)
	n, err := io.ReadFull(s.rws, buf)
	if err != nil {
		return nil, fmt.Errorf("data: read %d bytes at %d, got %d: %w", length, offset, n, err)
	}
	return buf, nil
}

// Size returns size of the data stream in bytes
func (s *DataStore) Size() (uint64, error) {
	size, err := streamSize(s.rws)
	if err != nil {
		return 0, fmt.Errorf("data: %w", err)
	}
	return size, nil
}
