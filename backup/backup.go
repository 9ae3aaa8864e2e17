// Package backup exports records of a store to a compressed dump
// and imports them into a new store.
package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/kjk/seqstore"
	"github.com/kjk/seqstore/dump"
	"github.com/kjk/seqstore/log"
)

// ErrSequence is returned by Import when dump records are not dense
var ErrSequence = errors.New("backup: unexpected sequence number")

// Export writes all records of s to w in dump format compressed with c.
// Returns number of records written.
func Export(s *seqstore.Store, w io.Writer, c Compression) (int, error) {
	cw, err := newCompressor(w, c)
	if err != nil {
		return 0, err
	}
	dw := dump.NewWriter(cw)
	recs, errFn := s.All()
	for seq, d := range recs {
		if _, err = dw.Write(seq, d); err != nil {
			break
		}
	}
	if err == nil {
		err = errFn()
	}
	errClose := cw.Close()
	if err == nil {
		err = errClose
	}
	if err != nil {
		return dw.N, fmt.Errorf("backup: export: %w", err)
	}
	return dw.N, nil
}

// Import appends records from a dump in r (compressed with c) to s.
// Sequence numbers in the dump must start at the number of records
// already in s and have no gaps.
func Import(r io.Reader, c Compression, s *seqstore.Store) (int, error) {
	cr, err := newDecompressor(r, c)
	if err != nil {
		return 0, err
	}
	defer cr.Close()

	expSeq, err := s.Count()
	if err != nil {
		return 0, fmt.Errorf("backup: import: %w", err)
	}
	n := 0
	dr := dump.NewReader(cr)
	for dr.Next() {
		seq, err := dr.Seq()
		if err != nil {
			return n, fmt.Errorf("backup: import: %w", err)
		}
		if seq != expSeq {
			return n, fmt.Errorf("%w: got %d, expected %d", ErrSequence, seq, expSeq)
		}
		if err = s.Append(dr.Data); err != nil {
			return n, fmt.Errorf("backup: import record %d: %w", seq, err)
		}
		expSeq++
		n++
	}
	if err = dr.Err(); err != nil {
		return n, fmt.Errorf("backup: import: %w", err)
	}
	return n, nil
}

// ExportFile exports s to a file at path. Compression is picked based on
// extension of path (.gz, .zst, .br). The file is only created if export succeeds.
func ExportFile(s *seqstore.Store, path string) (int, error) {
	timeStart := time.Now()
	f, err := newAtomicFile(path)
	if err != nil {
		return 0, err
	}
	defer f.Cancel()

	c := CompressionFromPath(path)
	n, err := Export(s, f, c)
	if err != nil {
		return n, err
	}
	if err = f.Close(); err != nil {
		return n, err
	}
	log.EventWithDuration("export", time.Since(timeStart), "path", path, "records", n, "compression", c.String())
	return n, nil
}

// ImportFile creates a new store pair in dir and imports the dump at path into it
func ImportFile(path string, dir string, opts *seqstore.Options) (int, error) {
	timeStart := time.Now()
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	s, err := seqstore.CreateForWrite(dir, opts)
	if err != nil {
		return 0, err
	}
	n, err := Import(f, CompressionFromPath(path), s)
	errClose := s.Close()
	if err == nil {
		err = errClose
	}
	if err != nil {
		return n, err
	}
	log.EventWithDuration("import", time.Since(timeStart), "path", path, "records", n, "dir", dir)
	return n, nil
}

// Transfer copies files to and from remote storage
type Transfer interface {
	Upload(ctx context.Context, remotePath string, localPath string) error
	Download(ctx context.Context, localPath string, remotePath string) error
}

// Push exports s to a temporary file in tmpDir and uploads it as remotePath.
// Compression is picked based on extension of remotePath.
func Push(ctx context.Context, t Transfer, s *seqstore.Store, remotePath string, tmpDir string) (int, error) {
	localPath := filepath.Join(tmpDir, "push-"+filepath.Base(remotePath))
	n, err := ExportFile(s, localPath)
	if err != nil {
		return n, err
	}
	defer os.Remove(localPath)

	log.Verbosef("uploading '%s' (%d records) to '%s'\n", localPath, n, remotePath)
	if err = t.Upload(ctx, remotePath, localPath); err != nil {
		return n, fmt.Errorf("backup: upload '%s': %w", remotePath, err)
	}
	return n, nil
}

// Pull downloads remotePath to tmpDir and imports it into a new store pair in dir
func Pull(ctx context.Context, t Transfer, remotePath string, dir string, tmpDir string, opts *seqstore.Options) (int, error) {
	localPath := filepath.Join(tmpDir, "pull-"+filepath.Base(remotePath))
	log.Verbosef("downloading '%s' to '%s'\n", remotePath, localPath)
	if err := t.Download(ctx, localPath, remotePath); err != nil {
		return 0, fmt.Errorf("backup: download '%s': %w", remotePath, err)
	}
	defer os.Remove(localPath)
	return ImportFile(localPath, dir, opts)
}
