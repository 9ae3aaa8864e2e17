package backup

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert"
	"github.com/kjk/seqstore"
	"github.com/kjk/seqstore/require"
)

func mkStore(t *testing.T, records [][]byte) *seqstore.Store {
	s := seqstore.New(seqstore.NewMemFile(nil), seqstore.NewMemFile(nil), nil)
	for _, rec := range records {
		require.NoError(t, s.Append(rec))
	}
	return s
}

func testRecords() [][]byte {
	var res [][]byte
	for i := 0; i < 200; i++ {
		d := bytes.Repeat([]byte(fmt.Sprintf("record %d ", i)), i%7)
		res = append(res, d)
	}
	res = append(res, []byte{0, '\n', 0xff})
	return res
}

func verifyStore(t *testing.T, s *seqstore.Store, records [][]byte) {
	n, err := s.Count()
	require.NoError(t, err)
	require.Equal(t, uint64(len(records)), n)
	for i, exp := range records {
		d, err := s.Read(uint64(i))
		require.NoError(t, err)
		require.True(t, bytes.Equal(exp, d), "record %d mismatch", i)
	}
}

func TestExportImport(t *testing.T) {
	records := testRecords()
	for _, c := range []Compression{None, Gzip, Zstd, Brotli} {
		src := mkStore(t, records)
		var buf bytes.Buffer
		n, err := Export(src, &buf, c)
		require.NoError(t, err, "compression: %s", c)
		require.Equal(t, len(records), n)

		dst := seqstore.New(seqstore.NewMemFile(nil), seqstore.NewMemFile(nil), nil)
		n, err = Import(&buf, c, dst)
		require.NoError(t, err, "compression: %s", c)
		require.Equal(t, len(records), n)
		verifyStore(t, dst, records)
	}
}

func TestImportBadSequence(t *testing.T) {
	dump := "--- 1 0\na\n--- 1 2\nb\n"
	dst := seqstore.New(seqstore.NewMemFile(nil), seqstore.NewMemFile(nil), nil)
	n, err := Import(bytes.NewBufferString(dump), None, dst)
	require.ErrorIs(t, err, ErrSequence)
	assert.Equal(t, 1, n)

	// appending to a store that already has records
	dst = mkStore(t, [][]byte{[]byte("x")})
	n, err = Import(bytes.NewBufferString("--- 1 1\nb\n"), None, dst)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	verifyStore(t, dst, [][]byte{[]byte("x"), []byte("b")})
}

func TestExportImportFile(t *testing.T) {
	records := testRecords()
	src := mkStore(t, records)
	tmpDir := t.TempDir()
	for _, name := range []string{"dump.txt", "dump.txt.gz", "dump.zst", "dump.br"} {
		path := filepath.Join(tmpDir, name)
		n, err := ExportFile(src, path)
		require.NoError(t, err)
		require.Equal(t, len(records), n)

		dir := filepath.Join(tmpDir, "store-"+name)
		n, err = ImportFile(path, dir, nil)
		require.NoError(t, err)
		require.Equal(t, len(records), n)

		s, err := seqstore.OpenForRead(dir, nil)
		require.NoError(t, err)
		verifyStore(t, s, records)
		require.NoError(t, s.Close())
	}
	// no leftover temporary files
	files, err := os.ReadDir(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, 8, len(files))
}

// brokenReader fails reading records from the index store
type brokenReader struct {
	io.ReadSeeker
}

func (brokenReader) Read(p []byte) (int, error) {
	return 0, io.ErrClosedPipe
}

func TestExportFileFailureLeavesNoFile(t *testing.T) {
	index := brokenReader{bytes.NewReader(make([]byte, 32))}
	s := seqstore.NewReader(index, seqstore.NewMemFile(nil), nil)
	path := filepath.Join(t.TempDir(), "dump.zst")
	_, err := ExportFile(s, path)
	require.ErrorIs(t, err, io.ErrClosedPipe)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestParseCompression(t *testing.T) {
	for _, c := range []Compression{None, Gzip, Zstd, Brotli} {
		got, err := ParseCompression(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, got)
		if c != None {
			assert.Equal(t, c, CompressionFromPath("foo"+c.Ext()))
		}
	}
	_, err := ParseCompression("lzma")
	assert.Error(t, err)
	assert.Equal(t, None, CompressionFromPath("foo.txt"))
}

// dirTransfer "uploads" by copying files to a local directory
type dirTransfer struct {
	dir string
}

func copyFile(dst, src string) error {
	d, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, d, 0644)
}

func (t *dirTransfer) Upload(ctx context.Context, remotePath string, localPath string) error {
	return copyFile(filepath.Join(t.dir, remotePath), localPath)
}

func (t *dirTransfer) Download(ctx context.Context, localPath string, remotePath string) error {
	return copyFile(localPath, filepath.Join(t.dir, remotePath))
}

func TestPushPull(t *testing.T) {
	records := testRecords()
	src := mkStore(t, records)
	tr := &dirTransfer{dir: t.TempDir()}
	tmpDir := t.TempDir()
	ctx := context.Background()

	n, err := Push(ctx, tr, src, "backup.zst", tmpDir)
	require.NoError(t, err)
	require.Equal(t, len(records), n)
	_, err = os.Stat(filepath.Join(tr.dir, "backup.zst"))
	require.NoError(t, err)

	dir := filepath.Join(tmpDir, "restored")
	n, err = Pull(ctx, tr, "backup.zst", dir, tmpDir, nil)
	require.NoError(t, err)
	require.Equal(t, len(records), n)
	s, err := seqstore.OpenForRead(dir, nil)
	require.NoError(t, err)
	defer s.Close()
	verifyStore(t, s, records)

	_, err = Pull(ctx, tr, "missing.zst", dir, tmpDir, nil)
	require.ErrorIs(t, err, os.ErrNotExist)
}
