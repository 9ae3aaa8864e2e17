package dump

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"time"
)

// Reader reads blocks written by Writer or MarshalLine
type Reader struct {
	r *bufio.Reader

	// set if blocks were written with a timestamp (MarshalLine with non-zero time).
	// Writer never writes timestamps.
	WithTimestamp bool

	// Data / Name / Timestamp are available after Next().
	// They are over-written in next Next().
	Data      []byte
	Name      string
	Timestamp time.Time

	// position of the current block within the reader
	CurrPos int64
	// position of the next block within the reader
	NextPos int64

	err  error
	done bool
}

// NewReader creates a new reader
func NewReader(r io.Reader) *Reader {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &Reader{r: br}
}

// Done returns true if we're finished reading
func (r *Reader) Done() bool {
	return r.err != nil || r.done
}

// Err returns error from last Next(). io.EOF at the block boundary is not an error.
func (r *Reader) Err() error {
	return r.err
}

// Seq parses Name as a record sequence number
func (r *Reader) Seq() (uint64, error) {
	seq, err := strconv.ParseUint(r.Name, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid sequence number '%s' at %d", r.Name, r.CurrPos)
	}
	return seq, nil
}

func (r *Reader) badHeader(hdr []byte) bool {
	r.err = fmt.Errorf("unexpected header '%s' at %d", string(bytes.TrimSpace(hdr)), r.CurrPos)
	return false
}

// Next reads next block, returns false when there are no more blocks.
// If returns false, check Err() to see if there were errors.
func (r *Reader) Next() bool {
	if r.Done() {
		return false
	}
	r.Name = ""
	r.Timestamp = time.Time{}
	r.CurrPos = r.NextPos

	hdr, err := r.r.ReadBytes('\n')
	if err != nil {
		if err == io.EOF && len(hdr) == 0 {
			r.done = true
		} else if err == io.EOF {
			r.err = fmt.Errorf("truncated header at %d: %w", r.CurrPos, io.ErrUnexpectedEOF)
		} else {
			r.err = err
		}
		return false
	}
	recSize := len(hdr)
	if !bytes.HasPrefix(hdr, hdrPrefix) {
		return r.badHeader(hdr)
	}
	rest := hdr[len(hdrPrefix) : len(hdr)-1]

	var sizeStr, tsStr []byte
	sizeStr, rest, _ = bytes.Cut(rest, []byte{' '})
	if r.WithTimestamp {
		tsStr, rest, _ = bytes.Cut(rest, []byte{' '})
		if len(tsStr) == 0 {
			return r.badHeader(hdr)
		}
	}
	size, err := strconv.ParseInt(string(sizeStr), 10, 64)
	if err != nil || size < 0 {
		return r.badHeader(hdr)
	}
	if len(tsStr) > 0 {
		ms, err := strconv.ParseInt(string(tsStr), 10, 64)
		if err != nil {
			return r.badHeader(hdr)
		}
		r.Timestamp = time.UnixMilli(ms)
	}
	r.Name = string(rest)

	// re-use r.Data as long as it doesn't grow too much
	if cap(r.Data) > 1024*1024 {
		r.Data = nil
	}
	if size > int64(cap(r.Data)) {
		r.Data = make([]byte, size)
	} else {
		r.Data = r.Data[:size]
	}
	n, err := io.ReadFull(r.r, r.Data)
	if err != nil {
		r.err = fmt.Errorf("reading %d bytes of data at %d: %w", size, r.CurrPos, err)
		return false
	}
	recSize += n

	// same as in MarshalLine
	if n > 0 && r.Data[n-1] != '\n' {
		c, err := r.r.ReadByte()
		if err != nil {
			r.err = fmt.Errorf("missing newline after data at %d: %w", r.CurrPos, err)
			return false
		}
		if c != '\n' {
			r.err = fmt.Errorf("expected newline after data at %d, got 0x%x", r.CurrPos, c)
			return false
		}
		recSize++
	}
	r.NextPos += int64(recSize)
	return true
}
