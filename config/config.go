// Package config loads seqstore configuration from a YAML file:
//
//	dir: /data/events
//	log_dir: /data/logs
//	server:
//	  addr: ":8080"
//	backup:
//	  compression: zstd
//	  s3:
//	    endpoint: s3.us-west-1.amazonaws.com
//	    access: $S3_ACCESS
//	    secret: $S3_SECRET
//	    bucket: backups
//	  sftp:
//	    user: root
//	    host: backup.example.com
//	    key_path: ~/.ssh/id_ed25519
//	    dir: /root/backups
//
// String values of the form $NAME are replaced with the value of
// environment variable NAME.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kjk/seqstore/backup"
	"github.com/kjk/seqstore/remote"
	"gopkg.in/yaml.v3"
)

const DefaultServerAddr = ":8080"

type Server struct {
	Addr string `yaml:"addr"`
}

type S3 struct {
	Endpoint string `yaml:"endpoint"`
	Access   string `yaml:"access"`
	Secret   string `yaml:"secret"`
	Bucket   string `yaml:"bucket"`
	Region   string `yaml:"region"`
	Insecure bool   `yaml:"insecure"`
}

type SFTP struct {
	User    string `yaml:"user"`
	Host    string `yaml:"host"`
	KeyPath string `yaml:"key_path"`
	Dir     string `yaml:"dir"`
}

type Backup struct {
	// none, gzip, zstd or brotli
	Compression string `yaml:"compression"`
	// where temporary dump files are written, defaults to os.TempDir()
	TmpDir string `yaml:"tmp_dir"`
	S3     *S3    `yaml:"s3"`
	SFTP   *SFTP  `yaml:"sftp"`
}

type Config struct {
	// directory with index and data files
	Dir string `yaml:"dir"`
	// if set, logs are also written to per-day files in this directory
	LogDir string `yaml:"log_dir"`
	// file names within Dir, default to index.bin and data.bin
	IndexFileName string `yaml:"index_file"`
	DataFileName  string `yaml:"data_file"`
	SyncWrite     bool   `yaml:"sync_write"`

	Server Server `yaml:"server"`
	Backup Backup `yaml:"backup"`
}

// Default returns configuration used when there's no config file
func Default() *Config {
	return &Config{
		Server: Server{Addr: DefaultServerAddr},
		Backup: Backup{Compression: "zstd"},
	}
}

// Load reads config from a YAML file at path. Values not in the file
// keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse parses config from YAML data
func Parse(data []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal YAML: %w", err)
	}
	c.expandEnv()
	return c, nil
}

func expandEnv(s *string) {
	v := *s
	if len(v) < 2 || v[0] != '$' {
		return
	}
	name := strings.TrimSuffix(strings.TrimPrefix(v[1:], "{"), "}")
	*s = os.Getenv(name)
}

func (c *Config) expandEnv() {
	for _, s := range []*string{&c.Dir, &c.LogDir, &c.Server.Addr, &c.Backup.TmpDir} {
		expandEnv(s)
	}
	if s3 := c.Backup.S3; s3 != nil {
		for _, s := range []*string{&s3.Endpoint, &s3.Access, &s3.Secret, &s3.Bucket, &s3.Region} {
			expandEnv(s)
		}
	}
	if sc := c.Backup.SFTP; sc != nil {
		for _, s := range []*string{&sc.User, &sc.Host, &sc.KeyPath, &sc.Dir} {
			expandEnv(s)
		}
	}
}

// Validate checks that values are consistent. Dir is not checked
// because command line flags can provide it.
func (c *Config) Validate() error {
	if _, err := backup.ParseCompression(c.Backup.Compression); err != nil {
		return fmt.Errorf("config: backup.compression: %w", err)
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("config: server.addr can't be empty")
	}
	if c.Backup.S3 != nil {
		if err := c.S3Config().Validate(); err != nil {
			return fmt.Errorf("config: backup.s3: %w", err)
		}
	}
	if c.Backup.SFTP != nil {
		if err := c.SFTPConfig().Validate(); err != nil {
			return fmt.Errorf("config: backup.sftp: %w", err)
		}
	}
	return nil
}

// Compression returns parsed Backup.Compression
func (c *Config) Compression() backup.Compression {
	res, _ := backup.ParseCompression(c.Backup.Compression)
	return res
}

// TmpDir returns directory for temporary backup files
func (c *Config) TmpDir() string {
	if c.Backup.TmpDir != "" {
		return c.Backup.TmpDir
	}
	return os.TempDir()
}

// S3Config returns nil if there's no s3 section
func (c *Config) S3Config() *remote.S3Config {
	s := c.Backup.S3
	if s == nil {
		return nil
	}
	return &remote.S3Config{
		Endpoint: s.Endpoint,
		Access:   s.Access,
		Secret:   s.Secret,
		Bucket:   s.Bucket,
		Region:   s.Region,
		Insecure: s.Insecure,
	}
}

// SFTPConfig returns nil if there's no sftp section
func (c *Config) SFTPConfig() *remote.SFTPConfig {
	s := c.Backup.SFTP
	if s == nil {
		return nil
	}
	return &remote.SFTPConfig{
		User:    s.User,
		Host:    s.Host,
		KeyPath: s.KeyPath,
		Dir:     s.Dir,
	}
}
