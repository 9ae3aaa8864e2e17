package seqstore

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// EntrySize is the size in bytes of a single index entry
const EntrySize = 16

// Entry describes where a record lives in the data store
type Entry struct {
	Offset uint64
	Length uint64
}

// End returns the offset just past the record's last byte
func (e Entry) End() uint64 {
	return e.Offset + e.Length
}

// EncodeEntry writes e into the first EntrySize bytes of buf:
// 8 bytes little-endian offset followed by 8 bytes little-endian length
func EncodeEntry(e Entry, buf []byte) {
	_ = buf[EntrySize-1]
	binary.LittleEndian.PutUint64(buf[0:8], e.Offset)
	binary.LittleEndian.PutUint64(buf[8:16], e.Length)
}

// DecodeEntry is the inverse of EncodeEntry
func DecodeEntry(buf []byte) Entry {
	_ = buf[EntrySize-1]
	return Entry{
		Offset: binary.LittleEndian.Uint64(buf[0:8]),
		Length: binary.LittleEndian.Uint64(buf[8:16]),
	}
}

// IndexStore is a fixed-stride array of entries backed by a seekable stream.
// Entry n occupies bytes [n*EntrySize, n*EntrySize+EntrySize).
type IndexStore struct {
	rws io.ReadSeeker
	// re-used for every Get / Append
	buf [EntrySize]byte
}

// NewIndexStore wraps rws. To Append, rws must also implement io.Writer.
func NewIndexStore(rws io.ReadSeeker) *IndexStore {
	return &IndexStore{rws: rws}
}

// Append appends an entry at the end of the stream
func (s *IndexStore) Append(offset uint64, length uint64) error {
	w, ok := s.rws.(io.Writer)
	if !ok {
		return ErrReadOnly
	}
	// a preceding Get leaves the cursor in the middle of the stream
	if _, err := s.rws.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("index: seek to end: %w", err)
	}
	EncodeEntry(Entry{Offset: offset, Length: length}, s.buf[:])
	if _, err := w.Write(s.buf[:]); err != nil {
		return fmt.Errorf("index: append entry: %w", err)
	}
	return nil
}

// Get returns entry n. Reading past the end of the stream means
// n was never written and returns an error wrapping io.EOF or io.ErrUnexpectedEOF.
func (s *IndexStore) Get(n uint64) (Entry, error) {
	if n > math.MaxInt64/EntrySize {
		return Entry{}, fmt.Errorf("index: entry %d: %w", n, errOffsetTooLarge)
	}
	pos := int64(n * EntrySize)
	if _, err := s.rws.Seek(pos, io.SeekStart); err != nil {
		return Entry{}, fmt.Errorf("index: seek to entry %d: %w", n, err)
	}
	if _, err := io.ReadFull(s.rws, s.buf[:]); err != nil {
		return Entry{}, fmt.Errorf("index: read entry %d: %w", n, err)
	}
	return DecodeEntry(s.buf[:]), nil
}

// Size returns size of the index stream in bytes
func (s *IndexStore) Size() (uint64, error) {
	return streamSize(s.rws)
}

// Count returns number of complete entries in the index.
// A trailing partial entry is not counted, use Check to detect it.
func (s *IndexStore) Count() (uint64, error) {
	size, err := s.Size()
	if err != nil {
		return 0, fmt.Errorf("index: %w", err)
	}
	return size / EntrySize, nil
}

func streamSize(s io.Seeker) (uint64, error) {
	size, err := s.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, fmt.Errorf("seek to end: %w", err)
	}
	return uint64(size), nil
}
