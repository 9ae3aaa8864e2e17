package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/assert"
	"github.com/kjk/seqstore/require"
)

func runCmd(t *testing.T, stdin string, args ...string) (string, error) {
	var out bytes.Buffer
	err := run(args, strings.NewReader(stdin), &out)
	return out.String(), err
}

func TestUsage(t *testing.T) {
	out, err := runCmd(t, "")
	assert.Equal(t, errUsage, err)
	assert.True(t, strings.Contains(out, "commands:"))

	_, err = runCmd(t, "", "-dir", t.TempDir(), "frobnicate")
	assert.Error(t, err)

	// no -dir and no config
	_, err = runCmd(t, "", "count")
	assert.Error(t, err)
}

func TestAppendReadCount(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")

	out, err := runCmd(t, "first\nsecond\n\nfourth\n", "-dir", dir, "append")
	require.NoError(t, err)
	assert.Equal(t, "appended 4 records, 4 total, data size: 17 bytes\n", out)

	// appending to an existing store continues the sequence
	path := filepath.Join(t.TempDir(), "rec.bin")
	require.NoError(t, os.WriteFile(path, []byte{0, 1, 2, '\n'}, 0644))
	_, err = runCmd(t, "", "-dir", dir, "append", path)
	require.NoError(t, err)

	out, err = runCmd(t, "", "-dir", dir, "count")
	require.NoError(t, err)
	assert.Equal(t, "5\n", out)

	out, err = runCmd(t, "", "-dir", dir, "read", "-n", "1")
	require.NoError(t, err)
	assert.Equal(t, "second", out)

	out, err = runCmd(t, "", "-dir", dir, "read", "-n", "2")
	require.NoError(t, err)
	assert.Equal(t, "", out)

	out, err = runCmd(t, "", "-dir", dir, "read", "-n", "4")
	require.NoError(t, err)
	assert.Equal(t, string([]byte{0, 1, 2, '\n'}), out)

	_, err = runCmd(t, "", "-dir", dir, "read", "-n", "5")
	assert.Error(t, err)
	_, err = runCmd(t, "", "-dir", dir, "read", "-n", "x")
	assert.Error(t, err)
	_, err = runCmd(t, "", "-dir", dir, "read")
	assert.Error(t, err)

	out, err = runCmd(t, "", "-dir", dir, "check")
	require.NoError(t, err)
	assert.Equal(t, "ok: 5 records, data size: 21 bytes\n", out)
}

func TestStats(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")
	_, err := runCmd(t, "a\nbbb\n", "-dir", dir, "append")
	require.NoError(t, err)

	out, err := runCmd(t, "", "-dir", dir, "stats")
	require.NoError(t, err)
	var st Stats
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.Equal(t, uint64(2), st.Records)
	assert.Equal(t, uint64(32), st.IndexSize)
	assert.Equal(t, uint64(4), st.DataSize)
	assert.Equal(t, uint64(3), st.MaxRecordSize)
	assert.Equal(t, 2.0, st.AvgRecordSize)
	assert.Equal(t, dir, st.Dir)
}

func TestExportImport(t *testing.T) {
	tmpDir := t.TempDir()
	dir := filepath.Join(tmpDir, "store")
	_, err := runCmd(t, "one\ntwo\nthree\n", "-dir", dir, "append")
	require.NoError(t, err)

	// compression extension is added based on config, zstd by default
	dumpPath := filepath.Join(tmpDir, "dump.txt")
	_, err = runCmd(t, "", "-dir", dir, "export", "-o", dumpPath)
	require.NoError(t, err)
	_, err = os.Stat(dumpPath + ".zst")
	require.NoError(t, err)

	dir2 := filepath.Join(tmpDir, "store2")
	out, err := runCmd(t, "", "-dir", dir2, "import", "-i", dumpPath+".zst")
	require.NoError(t, err)
	assert.Equal(t, "imported 3 records to '"+dir2+"'\n", out)

	out, err = runCmd(t, "", "-dir", dir2, "read", "-n", "2")
	require.NoError(t, err)
	assert.Equal(t, "three", out)

	// refuses to overwrite existing store
	_, err = runCmd(t, "", "-dir", dir2, "import", "-i", dumpPath+".zst")
	assert.Error(t, err)
}

func TestConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	dir := filepath.Join(tmpDir, "store")
	confPath := filepath.Join(tmpDir, "seqstore.yaml")
	conf := "dir: " + dir + "\nindex_file: idx\ndata_file: dat\nbackup:\n  compression: gzip\n"
	require.NoError(t, os.WriteFile(confPath, []byte(conf), 0644))

	_, err := runCmd(t, "x\n", "-config", confPath, "append")
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "idx"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "dat"))
	require.NoError(t, err)

	dumpPath := filepath.Join(tmpDir, "dump")
	_, err = runCmd(t, "", "-config", confPath, "export", "-o", dumpPath)
	require.NoError(t, err)
	_, err = os.Stat(dumpPath + ".gz")
	require.NoError(t, err)

	// s3 isn't configured
	_, err = runCmd(t, "", "-config", confPath, "push", "-to", "s3")
	assert.Error(t, err)
	_, err = runCmd(t, "", "-config", confPath, "push", "-to", "ftp")
	assert.Error(t, err)
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "17 bytes", formatSize(17))
	assert.Equal(t, "1 kB", formatSize(1024))
	assert.Equal(t, "1.50 MB", formatSize(1024*1024*3/2))
}
