package seqstore

import (
	"errors"
	"io"
)

var errNegativeOffset = errors.New("negative offset")

// MemFile is an in-memory io.ReadWriteSeeker, usable as either handle of a Store
// e.g. for tests or for building a store pair before writing it out
type MemFile struct {
	data []byte
	off  int64
}

// NewMemFile returns MemFile with initial content d (not copied)
func NewMemFile(d []byte) *MemFile {
	return &MemFile{data: d}
}

// Bytes returns current content
func (f *MemFile) Bytes() []byte {
	return f.data
}

func (f *MemFile) Read(p []byte) (int, error) {
	if f.off >= int64(len(f.data)) {
		return 0, io.EOF
	}
	n := copy(p, f.data[f.off:])
	f.off += int64(n)
	return n, nil
}

func (f *MemFile) Write(p []byte) (int, error) {
	end := f.off + int64(len(p))
	if end > int64(len(f.data)) {
		if end > int64(cap(f.data)) {
			grown := make([]byte, end, 2*end)
			copy(grown, f.data)
			f.data = grown
		}
		f.data = f.data[:end]
	}
	copy(f.data[f.off:], p)
	f.off = end
	return len(p), nil
}

func (f *MemFile) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = f.off + offset
	case io.SeekEnd:
		abs = int64(len(f.data)) + offset
	default:
		return 0, errors.New("invalid whence")
	}
	if abs < 0 {
		return 0, errNegativeOffset
	}
	f.off = abs
	return abs, nil
}
