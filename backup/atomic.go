package backup

import (
	"errors"
	"os"
	"path/filepath"
)

var errCancelled = errors.New("cancelled")

// atomicFile writes to a temporary file in the destination directory
// and renames it to destination path on successful Close().
// The first error is remembered and returned by all subsequent calls.
type atomicFile struct {
	dstPath string
	dir     string
	tmpFile *os.File
	tmpPath string
	err     error
}

func newAtomicFile(path string) (*atomicFile, error) {
	dir, name := filepath.Split(path)
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, &os.PathError{Op: "open", Path: path, Err: os.ErrInvalid}
	}
	tmpFile, err := os.CreateTemp(dir, name+".tmp*")
	if err != nil {
		return nil, err
	}
	return &atomicFile{
		dstPath: path,
		dir:     dir,
		tmpFile: tmpFile,
		tmpPath: tmpFile.Name(),
	}, nil
}

func (f *atomicFile) Write(d []byte) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	n, err := f.tmpFile.Write(d)
	if err != nil {
		f.err = err
		_ = f.Close()
	}
	return n, err
}

// Cancel removes the temp file if not closed yet, destination is not touched.
// Use with defer. A no-op after Close().
func (f *atomicFile) Cancel() {
	if f.tmpFile == nil {
		return
	}
	f.err = errCancelled
	_ = f.Close()
}

// Close can be called multiple times
func (f *atomicFile) Close() error {
	if f.tmpFile == nil {
		return f.err
	}
	tmpFile := f.tmpFile
	f.tmpFile = nil

	errSync := tmpFile.Sync()
	errClose := tmpFile.Close()
	didRename := false
	defer func() {
		if !didRename {
			_ = os.Remove(f.tmpPath)
		}
	}()
	if f.err != nil {
		return f.err
	}
	err := errSync
	if err == nil {
		err = errClose
	}
	if err == nil {
		err = os.Rename(f.tmpPath, f.dstPath)
		didRename = err == nil
		// sync the directory so that rename survives a crash
		if fdir, _ := os.Open(f.dir); fdir != nil {
			_ = fdir.Sync()
			_ = fdir.Close()
		}
	}
	f.err = err
	return err
}
