package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// WriteDaily appends to a file named after the current UTC day
// e.g. 2025-03-12.txt, in Dir. A new file is started when the day changes.
type WriteDaily struct {
	Dir         string
	currentDate int // YYYYMMDD format
	file        *os.File
	mu          sync.Mutex
}

func NewWriteDaily(dir string) *WriteDaily {
	return &WriteDaily{
		Dir: dir,
	}
}

// dayFromTime converts a time.Time to YYYYMMDD integer
func dayFromTime(t time.Time) int {
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}

// Path returns path of the log file for time t
func (w *WriteDaily) Path(t time.Time) string {
	return filepath.Join(w.Dir, t.UTC().Format("2006-01-02")+".txt")
}

// writer returns an io.Writer for today's log file, creating it if needed
func (w *WriteDaily) writer(now time.Time) (io.Writer, error) {
	today := dayFromTime(now)
	if w.file != nil && w.currentDate != today {
		if err := w.close(); err != nil {
			return nil, err
		}
	}
	if w.file == nil {
		if err := os.MkdirAll(w.Dir, 0755); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(w.Path(now), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, err
		}
		w.file = f
		w.currentDate = today
	}
	return w.file, nil
}

// Write writes data to today's log file
// it's safe to call on nil receiver
func (w *WriteDaily) Write(d []byte) error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	wr, err := w.writer(time.Now().UTC())
	if err != nil {
		return fmt.Errorf("log: %w", err)
	}
	_, err = wr.Write(d)
	return err
}

// it's safe to call on nil receiver
func (w *WriteDaily) WriteString(s string) error {
	return w.Write([]byte(s))
}

func (w *WriteDaily) close() error {
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	w.currentDate = 0
	return err
}

// Close closes the current log file
// it's safe to call on nil receiver
func (w *WriteDaily) Close() error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.close()
}

// Sync flushes the current log file to disk
// it's safe to call on nil receiver
func (w *WriteDaily) Sync() error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file != nil {
		return w.file.Sync()
	}
	return nil
}
