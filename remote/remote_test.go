package remote

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert"
)

func TestS3ConfigValidate(t *testing.T) {
	var c *S3Config
	assert.Error(t, c.Validate())

	c = &S3Config{Endpoint: "s3.example.com", Bucket: "backups"}
	err := c.Validate()
	assert.Error(t, err)
	assert.Equal(t, "remote: s3 config is missing access, secret", err.Error())

	c.Access = "a"
	c.Secret = "s"
	assert.NoError(t, c.Validate())

	_, err = NewS3(context.Background(), &S3Config{})
	assert.Error(t, err)
}

func TestSFTPConfig(t *testing.T) {
	var c *SFTPConfig
	assert.Error(t, c.Validate())

	c = &SFTPConfig{Host: "example.com:22"}
	err := c.Validate()
	assert.Error(t, err)
	assert.Equal(t, "remote: sftp config is missing user, key_path", err.Error())

	c.User = "root"
	c.KeyPath = "~/.ssh/id_ed25519"
	assert.NoError(t, c.Validate())

	assert.Equal(t, "backup.zst", c.FullPath("backup.zst"))
	c.Dir = "/root/backups"
	assert.Equal(t, "/root/backups/2024/backup.zst", c.FullPath("2024/backup.zst"))
	assert.Equal(t, "/tmp/backup.zst", c.FullPath("/tmp/backup.zst"))
}

func TestNewSFTPBadKey(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "missing_key")
	_, err := NewSFTP(&SFTPConfig{User: "root", Host: "127.0.0.1", KeyPath: keyPath})
	assert.Error(t, err)
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}
	assert.Equal(t, filepath.Join(home, ".ssh", "id_rsa"), expandHome("~/.ssh/id_rsa"))
	assert.Equal(t, "/etc/key", expandHome("/etc/key"))
}

func TestObjectName(t *testing.T) {
	assert.Equal(t, "dumps/a.zst", objectName("/dumps/a.zst"))
	assert.Equal(t, "application/zstd", contentTypeForPath("a.zst"))
	assert.Equal(t, "application/gzip", contentTypeForPath("a.txt.gz"))
	assert.Equal(t, "application/octet-stream", contentTypeForPath("a"))
}
