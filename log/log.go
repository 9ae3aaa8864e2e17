// Package log writes logs to stdout and, after Init, to per-day files.
package log

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/kjk/seqstore/dump"
	"github.com/toon-format/toon-go"
)

var (
	log       *WriteDaily
	errorsLog *WriteDaily
	eventsLog *WriteDaily
	httpLog   *WriteDaily

	// if true, Verbosef() will log messages
	Verbose bool
)

type Config struct {
	// directory where log files are stored
	// each log type (regular, errors, events, http) has its own subdirectory
	Dir string
}

// Init enables logging to files in config.Dir.
// Files are only created when something is logged to them.
func Init(config *Config) {
	dir := config.Dir
	log = NewWriteDaily(filepath.Join(dir, "log"))
	errorsLog = NewWriteDaily(filepath.Join(dir, "errors"))
	eventsLog = NewWriteDaily(filepath.Join(dir, "events"))
	httpLog = NewWriteDaily(filepath.Join(dir, "http"))
}

// CloseWriteDaily syncs and closes wd and sets it to nil
func CloseWriteDaily(wd **WriteDaily) {
	if *wd == nil {
		return
	}
	(*wd).Sync()
	(*wd).Close()
	*wd = nil
}

func Close() {
	CloseWriteDaily(&log)
	CloseWriteDaily(&errorsLog)
	CloseWriteDaily(&eventsLog)
	CloseWriteDaily(&httpLog)
}

func Logf(s string, args ...any) {
	if len(args) > 0 {
		s = fmt.Sprintf(s, args...)
	}
	fmt.Print(s)
	log.WriteString(s)
}

func Verbosef(format string, args ...any) {
	if !Verbose {
		return
	}
	Logf(format, args...)
}

// callstack returns file:line of callers, one per line, skipping skip frames
func callstack(skip int) string {
	pcs := make([]uintptr, 32)
	pcs = pcs[:runtime.Callers(skip+2, pcs)]
	var sb strings.Builder
	frames := runtime.CallersFrames(pcs)
	for {
		frame, more := frames.Next()
		sb.WriteString(frame.File)
		sb.WriteByte(':')
		sb.WriteString(strconv.Itoa(frame.Line))
		if !more {
			break
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Errorf logs an error message along with the callstack
func Errorf(s string, args ...any) {
	if len(args) > 0 {
		s = fmt.Sprintf(s, args...)
	}
	s = s + "\n" + callstack(1) + "\n"
	fmt.Fprint(os.Stderr, s)
	log.WriteString(s)
	errorsLog.WriteString(s)
}

// event keys must be strings, anything else is a bug in the caller
func eventKey(v any) string {
	k, ok := v.(string)
	if !ok {
		panic(fmt.Sprintf("FormatEvent: key %v is %T, not string", v, v))
	}
	return k
}

// FormatEvent serializes event name and key / value pairs as a dump block
// with toon-encoded values
func FormatEvent(name string, t time.Time, vals ...any) []byte {
	n := len(vals)
	if n%2 != 0 {
		panic(fmt.Sprintf("FormatEvent: odd number of values (%d)", n))
	}
	var d []byte
	if n > 0 {
		m := map[string]any{}
		for i := 0; i < n; i += 2 {
			k := eventKey(vals[i])
			m[k] = vals[i+1]
		}
		d, _ = toon.Marshal(m)
	}
	return dump.MarshalLine(name, t, d, nil)
}

// Event logs an event to events log e.g. Event("append", "seq", 5, "size", 128)
func Event(name string, vals ...any) {
	d := FormatEvent(name, time.Now().UTC(), vals...)
	Verbosef("event: %s", d)
	eventsLog.Write(d)
}

func EventWithDuration(name string, dur time.Duration, vals ...any) {
	vals = append(vals, "durmicro", dur.Microseconds())
	Event(name, vals...)
}

// RemoteIP returns the client address, preferring headers set by a reverse proxy.
// Only the first address of a comma-separated list is used.
func RemoteIP(r *http.Request) string {
	for _, v := range []string{r.Header.Get("X-Real-Ip"), r.Header.Get("X-Forwarded-For"), r.RemoteAddr} {
		if v != "" {
			first, _, _ := strings.Cut(v, ",")
			return strings.TrimSpace(first)
		}
	}
	return ""
}

// FormatHTTPRequest serializes a request as a single JSON line
func FormatHTTPRequest(r *http.Request, code int, nWritten int64, dur time.Duration) ([]byte, error) {
	entry := map[string]any{
		"ts":     time.Now().UTC().Unix(),
		"method": r.Method,
		"url":    r.URL.Path,
		"ip":     RemoteIP(r),
		"code":   code,
		"size":   nWritten,
		"dur":    float64(dur.Microseconds()) / 1000.0, // milliseconds
	}
	if ua := r.Header.Get("User-Agent"); ua != "" {
		entry["ua"] = ua
	}
	d, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}
	return append(d, '\n'), nil
}

// HTTPRequest logs a request to http log
func HTTPRequest(r *http.Request, code int, nWritten int64, dur time.Duration) error {
	d, err := FormatHTTPRequest(r, code, nWritten, dur)
	if err != nil {
		return err
	}
	Verbosef("%s %s %d %d\n", r.Method, r.URL.Path, code, nWritten)
	return httpLog.Write(d)
}
