package backup

import (
	"compress/gzip"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
)

type Compression int

const (
	None Compression = iota
	Gzip
	Zstd
	Brotli
)

func (c Compression) String() string {
	switch c {
	case None:
		return "none"
	case Gzip:
		return "gzip"
	case Zstd:
		return "zstd"
	case Brotli:
		return "brotli"
	}
	return fmt.Sprintf("Compression(%d)", int(c))
}

// Ext returns file extension for c e.g. ".zst"
func (c Compression) Ext() string {
	switch c {
	case Gzip:
		return ".gz"
	case Zstd:
		return ".zst"
	case Brotli:
		return ".br"
	}
	return ""
}

// ParseCompression parses name as returned by Compression.String()
func ParseCompression(name string) (Compression, error) {
	switch strings.ToLower(name) {
	case "", "none":
		return None, nil
	case "gzip", "gz":
		return Gzip, nil
	case "zstd", "zst":
		return Zstd, nil
	case "brotli", "br":
		return Brotli, nil
	}
	return None, fmt.Errorf("unknown compression '%s'", name)
}

// CompressionFromPath picks compression based on file extension
func CompressionFromPath(path string) Compression {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		return Gzip
	case ".zst", ".zstd":
		return Zstd
	case ".br":
		return Brotli
	}
	return None
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error {
	return nil
}

// newCompressor returns a writer compressing into w.
// Close() must be called to flush, it doesn't close w.
func newCompressor(w io.Writer, c Compression) (io.WriteCloser, error) {
	switch c {
	case None:
		return nopWriteCloser{w}, nil
	case Gzip:
		return gzip.NewWriterLevel(w, gzip.BestCompression)
	case Zstd:
		// zstd.SpeedBestCompression is much slower and not much better
		return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	case Brotli:
		return brotli.NewWriterLevel(w, brotli.DefaultCompression), nil
	}
	return nil, fmt.Errorf("unknown compression %s", c)
}

// newDecompressor returns a reader decompressing r.
// Close() releases decoder resources, it doesn't close r.
func newDecompressor(r io.Reader, c Compression) (io.ReadCloser, error) {
	switch c {
	case None:
		return io.NopCloser(r), nil
	case Gzip:
		return gzip.NewReader(r)
	case Zstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return zr.IOReadCloser(), nil
	case Brotli:
		return io.NopCloser(brotli.NewReader(r)), nil
	}
	return nil, fmt.Errorf("unknown compression %s", c)
}
