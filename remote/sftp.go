package remote

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/melbahja/goph"
	"github.com/pkg/sftp"
)

type SFTPConfig struct {
	User    string
	Host    string
	KeyPath string
	// remote paths are relative to Dir
	Dir string
}

func (c *SFTPConfig) Validate() error {
	if c == nil {
		return errNoConfig
	}
	var missing []string
	if c.User == "" {
		missing = append(missing, "user")
	}
	if c.Host == "" {
		missing = append(missing, "host")
	}
	if c.KeyPath == "" {
		missing = append(missing, "key_path")
	}
	if len(missing) > 0 {
		return fmt.Errorf("remote: sftp config is missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// FullPath returns the path of remotePath on the server
func (c *SFTPConfig) FullPath(remotePath string) string {
	remotePath = filepath.ToSlash(remotePath)
	if c.Dir == "" || path.IsAbs(remotePath) {
		return remotePath
	}
	return path.Join(c.Dir, remotePath)
}

type SFTP struct {
	config *SFTPConfig
	ssh    *goph.Client
	sftp   *sftp.Client
}

// NewSFTP connects to the server over ssh using private key auth
func NewSFTP(config *SFTPConfig) (*SFTP, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	keyPath := expandHome(config.KeyPath)
	auth, err := goph.Key(keyPath, "")
	if err != nil {
		return nil, fmt.Errorf("remote: goph.Key('%s'): %w", keyPath, err)
	}
	client, err := goph.New(config.User, config.Host, auth)
	if err != nil {
		return nil, fmt.Errorf("remote: ssh %s@%s: %w", config.User, config.Host, err)
	}
	sc, err := client.NewSftp()
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("remote: client.NewSftp(): %w", err)
	}
	return &SFTP{
		config: config,
		ssh:    client,
		sftp:   sc,
	}, nil
}

// Upload refuses to overwrite an existing remote file
func (s *SFTP) Upload(ctx context.Context, remotePath string, localPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fullPath := s.config.FullPath(remotePath)
	if _, err := s.sftp.Stat(fullPath); err == nil {
		return fmt.Errorf("remote: '%s': %w", fullPath, os.ErrExist)
	}
	if err := s.sftp.MkdirAll(path.Dir(fullPath)); err != nil {
		return fmt.Errorf("remote: sftp.MkdirAll('%s'): %w", path.Dir(fullPath), err)
	}
	return s.ssh.Upload(localPath, fullPath)
}

func (s *SFTP) Download(ctx context.Context, localPath string, remotePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fullPath := s.config.FullPath(remotePath)
	if _, err := s.sftp.Stat(fullPath); err != nil {
		return fmt.Errorf("remote: '%s': %w", fullPath, err)
	}
	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return err
	}
	return s.ssh.Download(fullPath, localPath)
}

func (s *SFTP) Close() error {
	err1 := s.sftp.Close()
	err2 := s.ssh.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
