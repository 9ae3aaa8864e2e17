package seqstore

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"math"
)

var (
	// ErrReadOnly is returned by Append on a store opened for reading
	ErrReadOnly = errors.New("seqstore: store is read-only")
	// ErrBroken wraps the failure of an Append that left data and index out of sync.
	// A broken store rejects all further appends.
	ErrBroken = errors.New("seqstore: store is broken")
	// ErrClosed is returned by calls subsequent to Close()
	ErrClosed = errors.New("seqstore: store is closed")
)

// Mode is fixed when a Store is created
type Mode int

const (
	ModeWrite Mode = iota
	ModeRead
)

func (m Mode) String() string {
	switch m {
	case ModeWrite:
		return "write"
	case ModeRead:
		return "read"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

const (
	DefaultIndexFileName = "index.bin"
	DefaultDataFileName  = "data.bin"
)

// Options configures a Store. nil *Options means defaults.
type Options struct {
	// defaults to DefaultIndexFileName
	IndexFileName string
	// defaults to DefaultDataFileName
	DataFileName string

	// if true, will call Sync() on both handles after every Append
	// (if they implement it). Much slower.
	SyncWrite bool
}

func (o *Options) withDefaults() Options {
	var res Options
	if o != nil {
		res = *o
	}
	if res.IndexFileName == "" {
		res.IndexFileName = DefaultIndexFileName
	}
	if res.DataFileName == "" {
		res.DataFileName = DefaultDataFileName
	}
	return res
}

// Store binds an index store and a data store into a sequence of records
// addressed by 0-based sequence number.
//
// Store is not safe for concurrent use.
type Store struct {
	index *IndexStore
	data  *DataStore

	indexHandle io.ReadSeeker
	dataHandle  io.ReadSeeker

	mode Mode
	opts Options

	// offset in data store at which next record will be written.
	// only tracked in ModeWrite
	writeOffset uint64

	// first error that left the store pair inconsistent
	err    error
	closed bool
}

// New returns a Store in write mode over two fresh (empty) handles.
// The write offset starts at 0: handles that already hold records
// would get wrong offsets for newly appended records.
func New(index io.ReadWriteSeeker, data io.ReadWriteSeeker, opts *Options) *Store {
	return newStore(index, data, ModeWrite, opts)
}

// NewReader returns a Store in read mode. Append always fails with ErrReadOnly.
func NewReader(index io.ReadSeeker, data io.ReadSeeker, opts *Options) *Store {
	return newStore(index, data, ModeRead, opts)
}

func newStore(index io.ReadSeeker, data io.ReadSeeker, mode Mode, opts *Options) *Store {
	return &Store{
		index:       NewIndexStore(index),
		data:        NewDataStore(data),
		indexHandle: index,
		dataHandle:  data,
		mode:        mode,
		opts:        opts.withDefaults(),
	}
}

func (s *Store) Mode() Mode {
	return s.mode
}

// WriteOffset returns the data store offset at which the next record will be
// written. Always 0 in read mode.
func (s *Store) WriteOffset() uint64 {
	return s.writeOffset
}

// Err returns the error that broke the store, if any
func (s *Store) Err() error {
	return s.err
}

func (s *Store) fail(err error) error {
	if s.err == nil {
		s.err = fmt.Errorf("%w: %w", ErrBroken, err)
	}
	return s.err
}

// Append appends payload as the next record.
// Data goes to the data store first, then the index entry. Those two writes
// are not atomic: if either fails the store is broken and every subsequent
// Append returns the same error.
func (s *Store) Append(payload []byte) error {
	if s.closed {
		return ErrClosed
	}
	if s.mode != ModeWrite {
		return ErrReadOnly
	}
	if s.err != nil {
		return s.err
	}
	length := uint64(len(payload))
	if s.writeOffset > math.MaxInt64-length {
		return fmt.Errorf("seqstore: append %d bytes at %d: %w", length, s.writeOffset, errOffsetTooLarge)
	}

	// a failed data write may have left a partial payload behind
	if err := s.data.Append(payload); err != nil {
		return s.fail(err)
	}
	// the payload is written but not referenced by any entry
	if err := s.index.Append(s.writeOffset, length); err != nil {
		return s.fail(err)
	}
	s.writeOffset += length

	if s.opts.SyncWrite {
		if err := s.Sync(); err != nil {
			return s.fail(err)
		}
	}
	return nil
}

// Read returns the payload of record seq exactly as it was appended.
// Reading past the last record fails with the index store's read error.
func (s *Store) Read(seq uint64) ([]byte, error) {
	if s.closed {
		return nil, ErrClosed
	}
	e, err := s.index.Get(seq)
	if err != nil {
		return nil, fmt.Errorf("seqstore: read record %d: %w", seq, err)
	}
	d, err := s.data.ReadRange(e.Offset, e.Length)
	if err != nil {
		return nil, fmt.Errorf("seqstore: read record %d: %w", seq, err)
	}
	return d, nil
}

// Entry returns the index entry for record seq
func (s *Store) Entry(seq uint64) (Entry, error) {
	if s.closed {
		return Entry{}, ErrClosed
	}
	return s.index.Get(seq)
}

// Count returns number of records in the store
func (s *Store) Count() (uint64, error) {
	if s.closed {
		return 0, ErrClosed
	}
	return s.index.Count()
}

// All returns an iterator over records in sequence order.
// Call the returned error function after iteration to check for read errors.
func (s *Store) All() (iter.Seq2[uint64, []byte], func() error) {
	var iterErr error

	seq := func(yield func(uint64, []byte) bool) {
		n, err := s.Count()
		if err != nil {
			iterErr = err
			return
		}
		for i := uint64(0); i < n; i++ {
			d, err := s.Read(i)
			if err != nil {
				iterErr = err
				return
			}
			if !yield(i, d) {
				return
			}
		}
	}
	return seq, func() error { return iterErr }
}

type syncer interface {
	Sync() error
}

// Sync flushes both handles to stable storage if they support it
func (s *Store) Sync() error {
	if s.closed {
		return ErrClosed
	}
	if f, ok := s.dataHandle.(syncer); ok {
		if err := f.Sync(); err != nil {
			return fmt.Errorf("seqstore: sync data: %w", err)
		}
	}
	if f, ok := s.indexHandle.(syncer); ok {
		if err := f.Sync(); err != nil {
			return fmt.Errorf("seqstore: sync index: %w", err)
		}
	}
	return nil
}

// Close closes both handles if they implement io.Closer.
// Can be called multiple times.
func (s *Store) Close() error {
	if s == nil || s.closed {
		return nil
	}
	s.closed = true
	var err1, err2 error
	if c, ok := s.indexHandle.(io.Closer); ok {
		err1 = c.Close()
	}
	if c, ok := s.dataHandle.(io.Closer); ok {
		err2 = c.Close()
	}
	if err1 != nil {
		return err1
	}
	return err2
}
