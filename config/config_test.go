package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert"
	"github.com/kjk/seqstore/backup"
	"github.com/kjk/seqstore/require"
)

const testConfig = `
dir: /data/events
server:
  addr: "127.0.0.1:9000"
backup:
  compression: brotli
  s3:
    endpoint: s3.example.com
    access: $SEQSTORE_TEST_ACCESS
    secret: "${SEQSTORE_TEST_SECRET}"
    bucket: backups
  sftp:
    user: root
    host: backup.example.com:22
    key_path: ~/.ssh/id_ed25519
`

func TestParse(t *testing.T) {
	t.Setenv("SEQSTORE_TEST_ACCESS", "access-key")
	t.Setenv("SEQSTORE_TEST_SECRET", "secret$key")

	c, err := Parse([]byte(testConfig))
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	assert.Equal(t, "/data/events", c.Dir)
	assert.Equal(t, "127.0.0.1:9000", c.Server.Addr)
	assert.Equal(t, backup.Brotli, c.Compression())

	s3 := c.S3Config()
	require.True(t, s3 != nil)
	assert.Equal(t, "access-key", s3.Access)
	assert.Equal(t, "secret$key", s3.Secret)
	assert.Equal(t, "backups", s3.Bucket)

	sc := c.SFTPConfig()
	require.True(t, sc != nil)
	assert.Equal(t, "backup.example.com:22", sc.Host)
	assert.Equal(t, "", sc.Dir)
}

func TestDefaults(t *testing.T) {
	c, err := Parse([]byte("dir: store\n"))
	require.NoError(t, err)
	require.NoError(t, c.Validate())
	assert.Equal(t, DefaultServerAddr, c.Server.Addr)
	assert.Equal(t, backup.Zstd, c.Compression())
	assert.True(t, c.S3Config() == nil)
	assert.True(t, c.SFTPConfig() == nil)
	assert.Equal(t, os.TempDir(), c.TmpDir())
}

func TestValidate(t *testing.T) {
	c, err := Parse([]byte("backup:\n  compression: lzma\n"))
	require.NoError(t, err)
	assert.Error(t, c.Validate())

	c, err = Parse([]byte("backup:\n  s3:\n    endpoint: s3.example.com\n"))
	require.NoError(t, err)
	assert.Error(t, c.Validate())

	c, err = Parse([]byte("server:\n  addr: $SEQSTORE_TEST_UNSET_VAR\n"))
	require.NoError(t, err)
	assert.Error(t, c.Validate())

	_, err = Parse([]byte("dir: [1, 2"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seqstore.yaml")
	_, err := Load(path)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0600))
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/events", c.Dir)
}
