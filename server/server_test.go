package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/assert"
	"github.com/kjk/seqstore"
	"github.com/kjk/seqstore/require"
)

func newTestStore(t *testing.T, records ...string) *seqstore.Store {
	s := seqstore.New(seqstore.NewMemFile(nil), seqstore.NewMemFile(nil), nil)
	for _, rec := range records {
		require.NoError(t, s.Append([]byte(rec)))
	}
	return s
}

func get(t *testing.T, h http.Handler, uri string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodGet, uri, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestGetRecord(t *testing.T) {
	srv := New(newTestStore(t, "hello", "", "world"))
	h := srv.Handler()

	w := get(t, h, "/records/0")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello", w.Body.String())
	assert.Equal(t, "application/octet-stream", w.Header().Get("Content-Type"))

	w = get(t, h, "/records/1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "", w.Body.String())

	w = get(t, h, "/records/2")
	assert.Equal(t, "world", w.Body.String())

	w = get(t, h, "/records/3")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = get(t, h, "/records/18446744073709551615")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = get(t, h, "/records/-1")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = get(t, h, "/records/abc")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	r := httptest.NewRequest(http.MethodPost, "/records/0", strings.NewReader("x"))
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestGetCount(t *testing.T) {
	s := newTestStore(t)
	h := New(s).Handler()

	var res CountResponse
	w := get(t, h, "/count")
	assert.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, uint64(0), res.Count)

	require.NoError(t, s.Append([]byte("a")))
	require.NoError(t, s.Append([]byte("b")))
	w = get(t, h, "/count")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, uint64(2), res.Count)
}

func TestClosedStore(t *testing.T) {
	s := newTestStore(t, "a")
	h := New(s).Handler()
	require.NoError(t, s.Close())
	w := get(t, h, "/records/0")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	w = get(t, h, "/count")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestMetrics(t *testing.T) {
	h := New(newTestStore(t, "hello", "world!")).Handler()
	get(t, h, "/records/0")
	get(t, h, "/records/1")
	get(t, h, "/records/5")

	w := get(t, h, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, "seqstore_reads_total 2"), body)
	assert.True(t, strings.Contains(body, "seqstore_read_bytes_total 11"), body)
	assert.True(t, strings.Contains(body, "seqstore_read_errors_total 0"), body)
	assert.True(t, strings.Contains(body, `seqstore_http_request_duration_seconds_count{code="404",path="GET /records/{seq}"} 1`), body)
}

func TestServeShutdown(t *testing.T) {
	srv := New(newTestStore(t, "hello"))
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	chErr := make(chan error, 1)
	go func() {
		chErr <- srv.Serve(ctx, ln)
	}()

	resp, err := http.Get("http://" + ln.Addr().String() + "/records/0")
	require.NoError(t, err)
	d, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, "hello", string(d))

	cancel()
	select {
	case err = <-chErr:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server didn't shut down")
	}
}
