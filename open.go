package seqstore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Paths returns paths of index and data files for a store in dir
func Paths(dir string, opts *Options) (indexPath string, dataPath string) {
	o := opts.withDefaults()
	return filepath.Join(dir, o.IndexFileName), filepath.Join(dir, o.DataFileName)
}

// mkdir creates dir. Unlike os.MkdirAll, a failure to create a parent is
// not hidden and a non-directory at dir is an error.
func mkdir(dir string) error {
	err := os.Mkdir(dir, 0755)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrExist) {
		return err
	}
	st, err2 := os.Stat(dir)
	if err2 != nil {
		return err2
	}
	if !st.IsDir() {
		return fmt.Errorf("'%s' exists and is not a directory", dir)
	}
	return nil
}

// CreateForWrite creates dir if it doesn't exist and creates empty index and
// data files inside it, truncating existing ones. The returned Store is in write mode.
func CreateForWrite(dir string, opts *Options) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("seqstore: directory is not set. For current directory, use '.'")
	}
	if err := mkdir(dir); err != nil {
		return nil, fmt.Errorf("seqstore: create directory: %w", err)
	}
	indexPath, dataPath := Paths(dir, opts)
	indexFile, err := os.Create(indexPath)
	if err != nil {
		return nil, fmt.Errorf("seqstore: create index file: %w", err)
	}
	dataFile, err := os.Create(dataPath)
	if err != nil {
		indexFile.Close()
		return nil, fmt.Errorf("seqstore: create data file: %w", err)
	}
	return New(indexFile, dataFile, opts), nil
}

// OpenForRead opens existing index and data files in dir.
// The returned Store is in read mode.
func OpenForRead(dir string, opts *Options) (*Store, error) {
	indexPath, dataPath := Paths(dir, opts)
	indexFile, err := os.Open(indexPath)
	if err != nil {
		return nil, fmt.Errorf("seqstore: open index file: %w", err)
	}
	dataFile, err := os.Open(dataPath)
	if err != nil {
		indexFile.Close()
		return nil, fmt.Errorf("seqstore: open data file: %w", err)
	}
	return NewReader(indexFile, dataFile, opts), nil
}

// OpenForAppend opens existing index and data files in dir in write mode.
// Appended records continue the sequence. Fails with ErrMalformed if the
// last index entry doesn't end exactly at the end of the data file.
func OpenForAppend(dir string, opts *Options) (*Store, error) {
	indexPath, dataPath := Paths(dir, opts)
	indexFile, err := os.OpenFile(indexPath, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("seqstore: open index file: %w", err)
	}
	dataFile, err := os.OpenFile(dataPath, os.O_RDWR, 0)
	if err != nil {
		indexFile.Close()
		return nil, fmt.Errorf("seqstore: open data file: %w", err)
	}
	s := New(indexFile, dataFile, opts)
	end, err := s.endOffset()
	if err != nil {
		s.Close()
		return nil, err
	}
	s.writeOffset = end
	return s, nil
}

// Exists returns true if both index and data files exist in dir
func Exists(dir string, opts *Options) bool {
	indexPath, dataPath := Paths(dir, opts)
	return fileExists(indexPath) && fileExists(dataPath)
}

func fileExists(path string) bool {
	st, err := os.Lstat(path)
	return err == nil && st.Mode().IsRegular()
}
