package dump

import (
	"bytes"
	"io"
	"strconv"
	"time"
)

var hdrPrefix = []byte("--- ")

// Writer writes records of a store in dump format:
//
//	--- ${size} ${seq}\n
//	${data}\n
//
// Newline after data is only written if data doesn't end with one.
type Writer struct {
	w        io.Writer
	writeBuf bytes.Buffer
	// number of records written
	N int
}

// NewWriter creates a writer
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write writes record seq. Returns number of bytes written, including header.
func (w *Writer) Write(seq uint64, d []byte) (int, error) {
	// most records should be small. if buffer gets big, don't keep it
	// around (unbounded cache is a mem leak)
	if w.writeBuf.Cap() > 100*1024 && len(d) < 50*1024 {
		w.writeBuf = bytes.Buffer{}
	}
	name := strconv.FormatUint(seq, 10)
	d2 := MarshalLine(name, time.Time{}, d, &w.writeBuf)
	n, err := w.w.Write(d2)
	if err == nil {
		w.N++
	}
	return n, err
}

// MarshalLine serializes a block of data with a header:
//
//	--- ${size} [${timestamp_ms}] [${name}]\n
//
// if t is zero, timestamp is not written
func MarshalLine(name string, t time.Time, d []byte, wb *bytes.Buffer) []byte {
	if wb == nil {
		wb = &bytes.Buffer{}
	} else {
		wb.Reset()
	}
	// it's ok to estimate more, estimating less will require an alloc
	wb.Grow(len(hdrPrefix) + len(name) + len(d) + 64)

	wb.Write(hdrPrefix)
	dataLen := len(d)
	wb.WriteString(strconv.Itoa(dataLen))
	if !t.IsZero() {
		wb.WriteByte(' ')
		wb.WriteString(strconv.FormatInt(t.UnixMilli(), 10))
	}
	if name != "" {
		wb.WriteByte(' ')
		wb.WriteString(name)
	}
	wb.WriteByte('\n')
	if dataLen > 0 {
		wb.Write(d)
		// for readability
		if d[dataLen-1] != '\n' {
			wb.WriteByte('\n')
		}
	}
	return wb.Bytes()
}
