// Package remote copies backup files to and from remote storage:
// S3-compatible object storage or a server reachable over SSH.
package remote

import (
	"context"
	"errors"
)

// Storage is implemented by *S3 and *SFTP. It satisfies backup.Transfer.
type Storage interface {
	Upload(ctx context.Context, remotePath string, localPath string) error
	Download(ctx context.Context, localPath string, remotePath string) error
	Close() error
}

var errNoConfig = errors.New("remote: must provide config")

var (
	_ Storage = (*S3)(nil)
	_ Storage = (*SFTP)(nil)
)
